package services

import (
	"testing"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
)

func mustParseDay(t *testing.T, raw string) time.Time {
	t.Helper()

	parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		t.Fatalf("parse day %q: %v", raw, err)
	}
	return parsed
}

func intPtr(value int) *int {
	return &value
}

func observedPeriod(t *testing.T, start string, lengthDays int) models.Period {
	t.Helper()

	startDay := mustParseDay(t, start)
	period := models.Period{StartDate: startDay}
	if lengthDays >= 0 {
		end := startDay.AddDate(0, 0, lengthDays)
		period.EndDate = &end
	}
	return period
}

func predictedPeriod(t *testing.T, start string) models.Period {
	t.Helper()

	startDay := mustParseDay(t, start)
	end := startDay.AddDate(0, 0, models.DefaultPeriodLength)
	return models.Period{StartDate: startDay, EndDate: &end, IsPredicted: true}
}

func baselineUser(periods ...models.Period) *models.User {
	return &models.User{
		ID:           1,
		Email:        "user@example.com",
		CycleLength:  models.DefaultCycleLength,
		PeriodLength: models.DefaultPeriodLength,
		Periods:      periods,
	}
}

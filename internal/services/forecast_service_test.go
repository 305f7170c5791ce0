package services

import (
	"context"
	"errors"
	"testing"

	"github.com/terraincognita07/cycleapp/internal/models"
	"gorm.io/gorm"
)

type filteringPeriodReader struct {
	periods []models.Period
	filters []models.PeriodFilter
}

func (reader *filteringPeriodReader) List(_ context.Context, _ uint, filter models.PeriodFilter) ([]models.Period, error) {
	reader.filters = append(reader.filters, filter)
	result := make([]models.Period, 0)
	for _, period := range reader.periods {
		if filter.Predicted != nil && period.IsPredicted != *filter.Predicted {
			continue
		}
		result = append(result, period)
	}
	return result, nil
}

type stubOvulationReader struct {
	ovulations []models.Ovulation
	filter     models.OvulationFilter
}

func (reader *stubOvulationReader) List(_ context.Context, _ uint, filter models.OvulationFilter) ([]models.Ovulation, error) {
	reader.filter = filter
	return reader.ovulations, nil
}

func TestForecastCombinesCalculatedAndStored(t *testing.T) {
	t.Parallel()

	calculator, _ := newTestCalculator(t, "2026-05-10")
	periods := &filteringPeriodReader{periods: []models.Period{
		observedPeriod(t, "2026-05-01", 4),
		predictedPeriod(t, "2026-05-29"),
	}}
	ovulations := &stubOvulationReader{ovulations: []models.Ovulation{
		{StartDate: mustParseDay(t, "2026-05-15"), IsPredicted: true},
	}}
	service := NewForecastService(&stubAnalyticsUsers{user: *baselineUser()}, periods, ovulations, calculator)

	from, to, err := ParseDayRange("2026-05-01", "2026-06-30", nil)
	if err != nil {
		t.Fatalf("ParseDayRange returned error: %v", err)
	}
	forecast, err := service.Forecast(context.Background(), 1, ForecastRange{From: from, To: to})
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}

	if want := mustParseDay(t, "2026-05-29"); !forecast.NextPeriod.Start.Equal(want) {
		t.Fatalf("expected next period %s, got %s", want.Format("2006-01-02"), forecast.NextPeriod.Start.Format("2006-01-02"))
	}
	if forecast.DayOfCycle != 10 {
		t.Fatalf("expected day 10 of cycle, got %d", forecast.DayOfCycle)
	}
	if len(forecast.PredictedPeriods) != 1 || !forecast.PredictedPeriods[0].IsPredicted {
		t.Fatalf("expected the stored predicted period, got %+v", forecast.PredictedPeriods)
	}
	if len(forecast.PredictedOvulations) != 1 {
		t.Fatalf("expected the stored predicted ovulation")
	}
	if last := periods.filters[len(periods.filters)-1]; last.From == nil || last.To == nil {
		t.Fatalf("expected range to be forwarded, got %+v", last)
	}
	if ovulations.filter.Predicted == nil || !*ovulations.filter.Predicted {
		t.Fatalf("expected predicted ovulations only")
	}
}

func TestForecastUnknownUser(t *testing.T) {
	t.Parallel()

	service := NewForecastService(&stubAnalyticsUsers{err: gorm.ErrRecordNotFound}, &filteringPeriodReader{}, &stubOvulationReader{}, nil)
	if _, err := service.Forecast(context.Background(), 9, ForecastRange{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

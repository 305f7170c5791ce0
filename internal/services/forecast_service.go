package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
	"gorm.io/gorm"
)

type OvulationRepository interface {
	List(ctx context.Context, userID uint, filter models.OvulationFilter) ([]models.Ovulation, error)
}

type ForecastRange struct {
	From *time.Time
	To   *time.Time
}

type Forecast struct {
	NextPeriod          CycleWindow        `json:"next_period"`
	NextOvulation       CycleWindow        `json:"next_ovulation"`
	DayOfCycle          int                `json:"day_of_cycle"`
	AdjustedCycleLength int                `json:"adjusted_cycle_length"`
	PredictedPeriods    []models.Period    `json:"predicted_periods"`
	PredictedOvulations []models.Ovulation `json:"predicted_ovulations"`
}

// ForecastService combines on-the-fly predictions with the forecasts stored by
// the reconciler.
type ForecastService struct {
	users      AnalyticsUserReader
	periods    AnalyticsPeriodReader
	ovulations OvulationRepository
	calculator *CycleCalculator
}

func NewForecastService(users AnalyticsUserReader, periods AnalyticsPeriodReader, ovulations OvulationRepository, calculator *CycleCalculator) *ForecastService {
	if calculator == nil {
		calculator = NewCycleCalculator(nil)
	}
	return &ForecastService{
		users:      users,
		periods:    periods,
		ovulations: ovulations,
		calculator: calculator,
	}
}

func (service *ForecastService) Forecast(ctx context.Context, userID uint, window ForecastRange) (Forecast, error) {
	user, err := service.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Forecast{}, ErrUserNotFound
	}
	if err != nil {
		return Forecast{}, fmt.Errorf("load user: %w", err)
	}

	observed, err := service.periods.List(ctx, userID, models.PeriodFilter{Predicted: models.Observed()})
	if err != nil {
		return Forecast{}, fmt.Errorf("load observed periods: %w", err)
	}
	user.Periods = observed

	predictedPeriods, err := service.periods.List(ctx, userID, models.PeriodFilter{
		Predicted: models.Predicted(),
		From:      window.From,
		To:        window.To,
	})
	if err != nil {
		return Forecast{}, fmt.Errorf("load predicted periods: %w", err)
	}
	predictedOvulations, err := service.ovulations.List(ctx, userID, models.OvulationFilter{
		Predicted: models.Predicted(),
		From:      window.From,
		To:        window.To,
	})
	if err != nil {
		return Forecast{}, fmt.Errorf("load predicted ovulations: %w", err)
	}

	return Forecast{
		NextPeriod:          service.calculator.NextPeriod(&user, nil),
		NextOvulation:       service.calculator.NextOvulation(&user, nil),
		DayOfCycle:          service.calculator.DayOfCycle(&user, service.calculator.Now()),
		AdjustedCycleLength: AdjustedCycleLength(&user),
		PredictedPeriods:    predictedPeriods,
		PredictedOvulations: predictedOvulations,
	}, nil
}

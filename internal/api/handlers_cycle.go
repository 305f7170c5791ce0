package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleapp/internal/models"
	"github.com/terraincognita07/cycleapp/internal/services"
)

type periodView struct {
	ID          uint       `json:"id"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsPredicted bool       `json:"is_predicted"`
	DayOfCycle  int        `json:"day_of_cycle,omitempty"`
}

type ovulationView struct {
	ID          uint      `json:"id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsPredicted bool      `json:"is_predicted"`
}

type analyticsView struct {
	CycleDuration  *services.CycleDurationStats  `json:"cycle_duration"`
	PeriodDuration *services.PeriodDurationStats `json:"period_duration"`
	Regularity     *services.RegularityAnalysis  `json:"regularity"`
	NextPeriod     services.CycleWindow          `json:"next_period"`
	NextOvulation  services.CycleWindow          `json:"next_ovulation"`
	RecentPeriods  []periodView                  `json:"recent_periods"`
}

type forecastView struct {
	NextPeriod          services.CycleWindow `json:"next_period"`
	NextOvulation       services.CycleWindow `json:"next_ovulation"`
	DayOfCycle          int                  `json:"day_of_cycle"`
	AdjustedCycleLength int                  `json:"adjusted_cycle_length"`
	PredictedPeriods    []periodView         `json:"predicted_periods"`
	PredictedOvulations []ovulationView      `json:"predicted_ovulations"`
}

type periodDateInput struct {
	Date string `json:"date"`
}

func (handler *Handler) GetAnalytics(c *fiber.Ctx) error {
	cycles, ok := queryPositiveInt(c, "cycles", handler.analyticsCycles)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid cycles")
	}

	analytics, err := handler.analytics.FullAnalytics(c.UserContext(), currentUserID(c), cycles)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(analyticsView{
		CycleDuration:  analytics.CycleDuration,
		PeriodDuration: analytics.PeriodDuration,
		Regularity:     analytics.Regularity,
		NextPeriod:     analytics.NextPeriod,
		NextOvulation:  analytics.NextOvulation,
		RecentPeriods:  periodViews(analytics.RecentPeriods),
	})
}

func (handler *Handler) GetPredictions(c *fiber.Ctx) error {
	from, to, err := services.ParseDayRange(c.Query("from"), c.Query("to"), handler.location)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	forecast, err := handler.forecasts.Forecast(c.UserContext(), currentUserID(c), services.ForecastRange{From: from, To: to})
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	ovulations := make([]ovulationView, 0, len(forecast.PredictedOvulations))
	for _, ovulation := range forecast.PredictedOvulations {
		ovulations = append(ovulations, ovulationView{
			ID:          ovulation.ID,
			StartDate:   ovulation.StartDate,
			EndDate:     ovulation.EndDate,
			IsPredicted: ovulation.IsPredicted,
		})
	}
	return c.JSON(forecastView{
		NextPeriod:          forecast.NextPeriod,
		NextOvulation:       forecast.NextOvulation,
		DayOfCycle:          forecast.DayOfCycle,
		AdjustedCycleLength: forecast.AdjustedCycleLength,
		PredictedPeriods:    periodViews(forecast.PredictedPeriods),
		PredictedOvulations: ovulations,
	})
}

func (handler *Handler) GetPeriods(c *fiber.Ctx) error {
	count, ok := queryPositiveInt(c, "count", services.DefaultRecentPeriods)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid count")
	}
	periods, err := handler.periods.RecentPeriods(c.UserContext(), currentUserID(c), count)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"periods": periodViews(periods)})
}

func (handler *Handler) StartPeriod(c *fiber.Ctx) error {
	date, ok := handler.periodDate(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	period, started, err := handler.periods.StartPeriod(c.UserContext(), currentUserID(c), date)
	if err != nil {
		return handler.respondServiceError(c, err)
	}

	status := fiber.StatusCreated
	if !started {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{"period": toPeriodView(period), "started": started})
}

func (handler *Handler) EndPeriod(c *fiber.Ctx) error {
	date, ok := handler.periodDate(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	period, err := handler.periods.EndPeriod(c.UserContext(), currentUserID(c), date)
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"period": toPeriodView(period)})
}

// periodDate accepts an empty body, meaning "now".
func (handler *Handler) periodDate(c *fiber.Ctx) (*time.Time, bool) {
	input := periodDateInput{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return nil, false
		}
	}
	return handler.parseOptionalDay(input.Date)
}

func periodViews(periods []models.Period) []periodView {
	views := make([]periodView, 0, len(periods))
	for _, period := range periods {
		views = append(views, toPeriodView(period))
	}
	return views
}

func toPeriodView(period models.Period) periodView {
	return periodView{
		ID:          period.ID,
		StartDate:   period.StartDate,
		EndDate:     period.EndDate,
		IsActive:    period.IsActive,
		IsPredicted: period.IsPredicted,
		DayOfCycle:  period.DayOfCycle,
	}
}

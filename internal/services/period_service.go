package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultRecentPeriods = 6

var (
	ErrNoActivePeriod       = errors.New("no active period")
	ErrPeriodEndBeforeStart = errors.New("period end before start")
)

type PeriodRepository interface {
	List(ctx context.Context, userID uint, filter models.PeriodFilter) ([]models.Period, error)
	FindActive(ctx context.Context, userID uint) (models.Period, error)
	Create(ctx context.Context, period *models.Period) error
	Save(ctx context.Context, period *models.Period) error
}

// PeriodService records observed periods. It keeps at most one active period per user.
type PeriodService struct {
	periods PeriodRepository
	clock   clockwork.Clock
	logger  *zap.Logger
}

func NewPeriodService(periods PeriodRepository, clock clockwork.Clock, logger *zap.Logger) *PeriodService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodService{periods: periods, clock: clock, logger: logger}
}

// StartPeriod returns the already active period with started=false when one exists.
func (service *PeriodService) StartPeriod(ctx context.Context, userID uint, start *time.Time) (models.Period, bool, error) {
	active, found, err := service.activePeriod(ctx, userID)
	if err != nil {
		return models.Period{}, false, err
	}
	if found {
		service.logger.Warn("period already active", zap.Uint("user_id", userID), zap.Uint("period_id", active.ID))
		return active, false, nil
	}

	startDate := service.clock.Now().UTC()
	if start != nil {
		startDate = start.UTC()
	}
	period := models.Period{
		UserID:    userID,
		StartDate: startDate,
		IsActive:  true,
	}
	if err := service.periods.Create(ctx, &period); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// another request started a period between the lookup and the insert
			return service.concurrentlyStarted(ctx, userID)
		}
		return models.Period{}, false, fmt.Errorf("create period: %w", err)
	}

	service.logger.Info("period started", zap.Uint("user_id", userID), zap.Time("start", startDate))
	return period, true, nil
}

func (service *PeriodService) EndPeriod(ctx context.Context, userID uint, end *time.Time) (models.Period, error) {
	active, found, err := service.activePeriod(ctx, userID)
	if err != nil {
		return models.Period{}, err
	}
	if !found {
		return models.Period{}, ErrNoActivePeriod
	}

	endDate := service.clock.Now().UTC()
	if end != nil {
		endDate = end.UTC()
	}
	if endDate.Before(active.StartDate) {
		return models.Period{}, ErrPeriodEndBeforeStart
	}

	active.EndDate = &endDate
	active.IsActive = false
	if err := service.periods.Save(ctx, &active); err != nil {
		return models.Period{}, fmt.Errorf("save period: %w", err)
	}

	service.logger.Info("period ended", zap.Uint("user_id", userID), zap.Uint("period_id", active.ID), zap.Time("end", endDate))
	return active, nil
}

// TogglePeriod starts a period when started is true and none is active, or ends
// the active one when started is false. It reports whether anything changed.
func (service *PeriodService) TogglePeriod(ctx context.Context, userID uint, started bool) (bool, error) {
	_, found, err := service.activePeriod(ctx, userID)
	if err != nil {
		return false, err
	}

	switch {
	case started && !found:
		_, _, err := service.StartPeriod(ctx, userID, nil)
		return err == nil, err
	case !started && found:
		_, err := service.EndPeriod(ctx, userID, nil)
		return err == nil, err
	default:
		return false, nil
	}
}

func (service *PeriodService) RecentPeriods(ctx context.Context, userID uint, count int) ([]models.Period, error) {
	if count <= 0 {
		count = DefaultRecentPeriods
	}
	periods, err := service.periods.List(ctx, userID, models.PeriodFilter{
		Predicted:  models.Observed(),
		Descending: true,
		Limit:      count,
	})
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

func (service *PeriodService) concurrentlyStarted(ctx context.Context, userID uint) (models.Period, bool, error) {
	active, found, err := service.activePeriod(ctx, userID)
	if err != nil {
		return models.Period{}, false, err
	}
	if !found {
		return models.Period{}, false, fmt.Errorf("create period: %w", gorm.ErrDuplicatedKey)
	}
	return active, false, nil
}

func (service *PeriodService) activePeriod(ctx context.Context, userID uint) (models.Period, bool, error) {
	period, err := service.periods.FindActive(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Period{}, false, nil
	}
	if err != nil {
		return models.Period{}, false, fmt.Errorf("find active period: %w", err)
	}
	return period, true, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/events"
	"github.com/terraincognita07/cycleapp/internal/models"
	"go.uber.org/zap"
)

type ReconcilerConfig struct {
	Interval            time.Duration
	MaxAttempts         int
	RetryBaseDelay      time.Duration
	ForecastCycles      int
	OvulationWindowDays int
	VariationRefreshAge time.Duration
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:            24 * time.Hour,
		MaxAttempts:         3,
		RetryBaseDelay:      time.Second,
		ForecastCycles:      3,
		OvulationWindowDays: 3,
		VariationRefreshAge: 7 * 24 * time.Hour,
	}
}

// PredictionWriter is scoped to a single user's unit of work.
type PredictionWriter interface {
	SaveCycleVariations(user *models.User) error
	DeleteStalePredictions(userID uint, now time.Time) (int64, error)
	PredictedPeriodExists(userID uint, start time.Time) (bool, error)
	PredictedOvulationExists(userID uint, start time.Time) (bool, error)
	EarliestPredictedPeriodStart(userID uint) (time.Time, bool, error)
	CreatePeriod(period *models.Period) error
	CreateOvulation(ovulation *models.Ovulation) error
}

type PredictionStore interface {
	ListUsersWithHistory(ctx context.Context) ([]models.User, error)
	WithinUserTransaction(ctx context.Context, userID uint, fn func(PredictionWriter) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, data any) error
}

type UserReconciliation struct {
	UserID            uint  `json:"user_id"`
	VariationsUpdated bool  `json:"variations_updated"`
	StaleRemoved      int64 `json:"stale_removed"`
	PeriodsCreated    int   `json:"periods_created"`
	OvulationsCreated int   `json:"ovulations_created"`
}

func (result UserReconciliation) Changed() bool {
	return result.VariationsUpdated || result.StaleRemoved > 0 || result.PeriodsCreated > 0 || result.OvulationsCreated > 0
}

type TickReport struct {
	TickID    string
	StartedAt time.Time
	Users     int
	Succeeded int
	Failed    map[uint]error
	Canceled  bool
}

type Reconciler struct {
	store      PredictionStore
	publisher  EventPublisher
	calculator *CycleCalculator
	clock      clockwork.Clock
	logger     *zap.Logger
	config     ReconcilerConfig
	wait       func(ctx context.Context, delay time.Duration) error
}

func NewReconciler(store PredictionStore, publisher EventPublisher, calculator *CycleCalculator, clock clockwork.Clock, logger *zap.Logger, config ReconcilerConfig) *Reconciler {
	defaults := DefaultReconcilerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.RetryBaseDelay < 0 {
		config.RetryBaseDelay = defaults.RetryBaseDelay
	}
	if config.ForecastCycles <= 0 {
		config.ForecastCycles = defaults.ForecastCycles
	}
	if config.OvulationWindowDays <= 0 {
		config.OvulationWindowDays = defaults.OvulationWindowDays
	}
	if config.VariationRefreshAge <= 0 {
		config.VariationRefreshAge = defaults.VariationRefreshAge
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if calculator == nil {
		calculator = NewCycleCalculator(clock)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reconciler := &Reconciler{
		store:      store,
		publisher:  publisher,
		calculator: calculator,
		clock:      clock,
		logger:     logger.With(zap.String("component", "reconciler")),
		config:     config,
	}
	reconciler.wait = reconciler.sleep
	return reconciler
}

// Run reconciles immediately and then on every interval until ctx is done.
func (reconciler *Reconciler) Run(ctx context.Context) error {
	ticker := reconciler.clock.NewTicker(reconciler.config.Interval)
	defer ticker.Stop()

	reconciler.logger.Info("reconciler started", zap.Duration("interval", reconciler.config.Interval))
	for {
		if _, err := reconciler.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			reconciler.logger.Error("reconciliation tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			reconciler.logger.Info("reconciler stopped")
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}

// RunOnce performs a single tick across all users. Per-user failures are
// recorded in the report and do not stop the tick.
func (reconciler *Reconciler) RunOnce(ctx context.Context) (TickReport, error) {
	report := TickReport{
		TickID:    uuid.NewString(),
		StartedAt: reconciler.clock.Now().UTC(),
		Failed:    map[uint]error{},
	}
	logger := reconciler.logger.With(zap.String("tick_id", report.TickID))

	if err := ctx.Err(); err != nil {
		report.Canceled = true
		return report, err
	}

	users, err := reconciler.store.ListUsersWithHistory(ctx)
	if err != nil {
		return report, fmt.Errorf("load users: %w", err)
	}
	report.Users = len(users)

	for index := range users {
		if ctx.Err() != nil {
			report.Canceled = true
			logger.Info("reconciliation tick canceled", zap.Int("remaining_users", len(users)-index))
			break
		}

		user := &users[index]
		result, err := reconciler.processUserWithRetry(ctx, user)
		if err != nil {
			report.Failed[user.ID] = err
			logger.Error("user reconciliation failed", zap.Uint("user_id", user.ID), zap.Error(err))
			continue
		}
		report.Succeeded++
		if result.Changed() {
			reconciler.publish(ctx, user.ID, result)
		}
	}

	logger.Info("reconciliation tick finished",
		zap.Int("users", report.Users),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failed)),
		zap.Bool("canceled", report.Canceled),
	)
	if report.Canceled {
		return report, ctx.Err()
	}
	return report, nil
}

func (reconciler *Reconciler) processUserWithRetry(ctx context.Context, user *models.User) (UserReconciliation, error) {
	var lastErr error
	for attempt := 1; attempt <= reconciler.config.MaxAttempts; attempt++ {
		snapshot := cloneUserForAttempt(user)
		result, err := reconciler.ProcessUser(context.WithoutCancel(ctx), snapshot)
		if err == nil {
			*user = *snapshot
			return result, nil
		}
		lastErr = err
		if attempt == reconciler.config.MaxAttempts {
			break
		}

		delay := time.Duration(attempt) * reconciler.config.RetryBaseDelay
		reconciler.logger.Warn("user reconciliation attempt failed",
			zap.Uint("user_id", user.ID),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		if err := reconciler.wait(ctx, delay); err != nil {
			return UserReconciliation{}, fmt.Errorf("retry aborted after attempt %d: %w", attempt, errors.Join(lastErr, err))
		}
	}
	return UserReconciliation{}, fmt.Errorf("reconcile user %d after %d attempts: %w", user.ID, reconciler.config.MaxAttempts, lastErr)
}

// ProcessUser refreshes adaptive bounds when due, drops past forecasts and
// inserts any missing forecasts for the configured horizon, all in one transaction.
func (reconciler *Reconciler) ProcessUser(ctx context.Context, user *models.User) (UserReconciliation, error) {
	result := UserReconciliation{UserID: user.ID}
	now := reconciler.clock.Now().UTC()

	err := reconciler.store.WithinUserTransaction(ctx, user.ID, func(writer PredictionWriter) error {
		if reconciler.variationsDue(user, now) {
			reconciler.calculator.UpdateCycleVariations(user)
			if err := writer.SaveCycleVariations(user); err != nil {
				return fmt.Errorf("save cycle variations: %w", err)
			}
			result.VariationsUpdated = true
		}

		removed, err := writer.DeleteStalePredictions(user.ID, now)
		if err != nil {
			return fmt.Errorf("delete stale predictions: %w", err)
		}
		result.StaleRemoved = removed

		cycleLength := AdjustedCycleLength(user)
		base, err := reconciler.forecastBase(writer, user, now, cycleLength)
		if err != nil {
			return err
		}

		for cycle := 0; cycle < reconciler.config.ForecastCycles; cycle++ {
			ovulation := reconciler.calculator.NextOvulation(user, &base)
			period := reconciler.calculator.NextPeriod(user, &base)

			// forecasts already in the past would only be dropped next tick
			skip := ovulation.Start.Before(now)
			if !skip {
				skip, err = writer.PredictedOvulationExists(user.ID, ovulation.Start)
				if err != nil {
					return fmt.Errorf("check predicted ovulation: %w", err)
				}
			}
			if !skip {
				if err := writer.CreateOvulation(&models.Ovulation{
					UserID:      user.ID,
					StartDate:   ovulation.Start,
					EndDate:     ovulation.Start.AddDate(0, 0, reconciler.config.OvulationWindowDays),
					IsPredicted: true,
				}); err != nil {
					return fmt.Errorf("create predicted ovulation: %w", err)
				}
				result.OvulationsCreated++
			}

			skip = period.Start.Before(now)
			if !skip {
				skip, err = writer.PredictedPeriodExists(user.ID, period.Start)
				if err != nil {
					return fmt.Errorf("check predicted period: %w", err)
				}
			}
			if !skip {
				end := period.End
				if err := writer.CreatePeriod(&models.Period{
					UserID:      user.ID,
					StartDate:   period.Start,
					EndDate:     &end,
					IsPredicted: true,
					DayOfCycle:  (cycle + 1) * cycleLength,
				}); err != nil {
					return fmt.Errorf("create predicted period: %w", err)
				}
				result.PeriodsCreated++
			}

			base = period.Start
		}
		return nil
	})
	if err != nil {
		return UserReconciliation{}, err
	}

	reconciler.logger.Debug("user reconciled",
		zap.Uint("user_id", user.ID),
		zap.Bool("variations_updated", result.VariationsUpdated),
		zap.Int64("stale_removed", result.StaleRemoved),
		zap.Int("periods_created", result.PeriodsCreated),
		zap.Int("ovulations_created", result.OvulationsCreated),
	)
	return result, nil
}

// forecastBase anchors on the latest observed start. Without observed history it
// continues the stored forecast chain one cycle before its earliest period, so a
// moving clock does not start a new chain each tick. Only when nothing is stored
// does it fall back to now.
func (reconciler *Reconciler) forecastBase(writer PredictionWriter, user *models.User, now time.Time, cycleLength int) (time.Time, error) {
	if latest, ok := LatestObservedPeriod(user); ok {
		return latest.StartDate.UTC(), nil
	}
	earliest, found, err := writer.EarliestPredictedPeriodStart(user.ID)
	if err != nil {
		return time.Time{}, fmt.Errorf("find earliest forecast: %w", err)
	}
	if !found {
		return now, nil
	}
	return earliest.UTC().AddDate(0, 0, -cycleLength), nil
}

func (reconciler *Reconciler) variationsDue(user *models.User, now time.Time) bool {
	if user.LastCycleVariationUpdate == nil {
		return true
	}
	return now.Sub(*user.LastCycleVariationUpdate) >= reconciler.config.VariationRefreshAge
}

func (reconciler *Reconciler) publish(ctx context.Context, userID uint, result UserReconciliation) {
	if reconciler.publisher == nil {
		return
	}
	event := events.PredictionsReconciledEvent{
		UserID:            userID,
		PeriodsCreated:    result.PeriodsCreated,
		OvulationsCreated: result.OvulationsCreated,
		StaleRemoved:      result.StaleRemoved,
		ReconciledAt:      reconciler.clock.Now().UTC(),
	}
	if err := reconciler.publisher.Publish(ctx, events.PredictionsReconciled, event); err != nil {
		reconciler.logger.Warn("publish reconciliation event failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (reconciler *Reconciler) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-reconciler.clock.After(delay):
		return nil
	}
}

// cloneUserForAttempt lets a failed attempt's in-memory mutations be discarded
// along with its rolled-back transaction.
func cloneUserForAttempt(user *models.User) *models.User {
	clone := *user
	clone.MinCycleLength = cloneIntPtr(user.MinCycleLength)
	clone.MaxCycleLength = cloneIntPtr(user.MaxCycleLength)
	clone.MinPeriodLength = cloneIntPtr(user.MinPeriodLength)
	clone.MaxPeriodLength = cloneIntPtr(user.MaxPeriodLength)
	if user.LastCycleVariationUpdate != nil {
		stamp := *user.LastCycleVariationUpdate
		clone.LastCycleVariationUpdate = &stamp
	}
	return &clone
}

func cloneIntPtr(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

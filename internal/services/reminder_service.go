package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/models"
	"go.uber.org/zap"
)

const (
	periodReminderHorizonDays    = 3
	ovulationReminderHorizonDays = 2
	sentRemindersSoftLimit       = 500
)

type ReminderUserRepository interface {
	ListReminderRecipients(ctx context.Context) ([]models.User, error)
}

type ReminderSender interface {
	SendReminder(ctx context.Context, user models.User, message string) error
}

// ReminderService notifies users ahead of forecast periods and ovulations.
// Each kind is sent at most once per user per day.
type ReminderService struct {
	users      ReminderUserRepository
	sender     ReminderSender
	calculator *CycleCalculator
	clock      clockwork.Clock
	logger     *zap.Logger

	mu                 sync.Mutex
	sentDailyReminders map[string]time.Time
}

func NewReminderService(users ReminderUserRepository, sender ReminderSender, calculator *CycleCalculator, clock clockwork.Clock, logger *zap.Logger) *ReminderService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if calculator == nil {
		calculator = NewCycleCalculator(clock)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		users:              users,
		sender:             sender,
		calculator:         calculator,
		clock:              clock,
		logger:             logger.With(zap.String("component", "reminders")),
		sentDailyReminders: make(map[string]time.Time),
	}
}

// RunOnce scans reminder recipients and returns how many reminders were sent.
func (service *ReminderService) RunOnce(ctx context.Context) (int, error) {
	recipients, err := service.users.ListReminderRecipients(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reminder recipients: %w", err)
	}

	today := dateOnly(service.clock.Now().UTC())
	sent := 0
	for index := range recipients {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		user := recipients[index]
		nextPeriod := service.calculator.NextPeriod(&user, nil)

		if user.RemindPeriod {
			days := wholeDaysBetween(today, dateOnly(nextPeriod.Start))
			if days >= 0 && days <= periodReminderHorizonDays {
				if service.deliver(ctx, user, ReminderPeriod, today, periodReminderMessage(days, nextPeriod.DisplayStart)) {
					sent++
				}
			}
		}

		if user.RemindOvulation {
			ovulation := nextPeriod.DisplayStart.AddDate(0, 0, -lutealPhaseDays)
			days := wholeDaysBetween(today, dateOnly(nextPeriod.Start.AddDate(0, 0, -lutealPhaseDays)))
			if days >= 0 && days <= ovulationReminderHorizonDays {
				if service.deliver(ctx, user, ReminderOvulation, today, ovulationReminderMessage(days, ovulation)) {
					sent++
				}
			}
		}
	}
	return sent, nil
}

func (service *ReminderService) deliver(ctx context.Context, user models.User, kind ReminderKind, today time.Time, message string) bool {
	key := fmt.Sprintf("%s:%d:%s", kind, user.ID, today.Format("2006-01-02"))
	if !service.shouldSend(key, today) {
		return false
	}
	if err := service.sender.SendReminder(ctx, user, message); err != nil {
		service.forget(key)
		service.logger.Warn("send reminder failed", zap.Uint("user_id", user.ID), zap.String("kind", string(kind)), zap.Error(err))
		return false
	}
	return true
}

func (service *ReminderService) shouldSend(key string, today time.Time) bool {
	service.mu.Lock()
	defer service.mu.Unlock()

	if sentOn, ok := service.sentDailyReminders[key]; ok && sameDay(sentOn, today) {
		return false
	}

	service.sentDailyReminders[key] = today
	if len(service.sentDailyReminders) > sentRemindersSoftLimit {
		service.sentDailyReminders = map[string]time.Time{key: today}
	}
	return true
}

func (service *ReminderService) forget(key string) {
	service.mu.Lock()
	defer service.mu.Unlock()
	delete(service.sentDailyReminders, key)
}

func periodReminderMessage(days int, start time.Time) string {
	if days == 0 {
		return fmt.Sprintf("Cycle reminder: your predicted period starts today (%s).", start.Format("Jan 2"))
	}
	return fmt.Sprintf("Cycle reminder: your predicted period starts in %d day(s) on %s.", days, start.Format("Jan 2"))
}

func ovulationReminderMessage(days int, start time.Time) string {
	if days == 0 {
		return fmt.Sprintf("Cycle reminder: ovulation is expected today (%s).", start.Format("Jan 2"))
	}
	return fmt.Sprintf("Cycle reminder: ovulation is expected in %d day(s) on %s.", days, start.Format("Jan 2"))
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

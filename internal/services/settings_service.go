package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrSettingsCycleLengthOutOfRange  = errors.New("settings cycle length out of range")
	ErrSettingsPeriodLengthOutOfRange = errors.New("settings period length out of range")
	ErrSettingsTimeZoneInvalid        = errors.New("settings time zone invalid")
	ErrUnknownReminderKind            = errors.New("unknown reminder kind")
)

type ReminderKind string

const (
	ReminderPeriod    ReminderKind = "period"
	ReminderOvulation ReminderKind = "ovulation"
)

type SettingsUserRepository interface {
	FindByID(ctx context.Context, userID uint) (models.User, error)
	UpdateSettings(ctx context.Context, userID uint, updates map[string]any) error
}

type SettingsUpdate struct {
	CycleLength     int
	PeriodLength    int
	TimeZone        string
	RemindPeriod    bool
	RemindOvulation bool
}

type SettingsService struct {
	users       SettingsUserRepository
	resolveZone ZoneResolver
	logger      *zap.Logger
}

func NewSettingsService(users SettingsUserRepository, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{users: users, resolveZone: time.LoadLocation, logger: logger}
}

func IsValidCycleLength(value int) bool {
	return value >= 15 && value <= 90
}

func IsValidPeriodLength(value int) bool {
	return value >= 1 && value <= 14
}

func (service *SettingsService) ValidateSettings(update SettingsUpdate) (SettingsUpdate, error) {
	if !IsValidCycleLength(update.CycleLength) {
		return SettingsUpdate{}, ErrSettingsCycleLengthOutOfRange
	}
	if !IsValidPeriodLength(update.PeriodLength) {
		return SettingsUpdate{}, ErrSettingsPeriodLengthOutOfRange
	}

	update.TimeZone = strings.TrimSpace(update.TimeZone)
	if update.TimeZone != "" {
		if _, err := service.resolveZone(update.TimeZone); err != nil {
			return SettingsUpdate{}, ErrSettingsTimeZoneInvalid
		}
	}
	return update, nil
}

// UpdateSettings replaces the user's baseline lengths, time zone and reminder flags.
func (service *SettingsService) UpdateSettings(ctx context.Context, userID uint, update SettingsUpdate) (models.User, error) {
	validated, err := service.ValidateSettings(update)
	if err != nil {
		return models.User{}, err
	}
	if _, err := service.loadUser(ctx, userID); err != nil {
		return models.User{}, err
	}

	if err := service.users.UpdateSettings(ctx, userID, map[string]any{
		"cycle_length":     validated.CycleLength,
		"period_length":    validated.PeriodLength,
		"time_zone":        validated.TimeZone,
		"remind_period":    validated.RemindPeriod,
		"remind_ovulation": validated.RemindOvulation,
	}); err != nil {
		return models.User{}, fmt.Errorf("update settings: %w", err)
	}
	service.logger.Info("settings updated", zap.Uint("user_id", userID))

	return service.loadUser(ctx, userID)
}

func (service *SettingsService) ToggleReminder(ctx context.Context, userID uint, kind string, enabled bool) error {
	var column string
	switch ReminderKind(strings.ToLower(strings.TrimSpace(kind))) {
	case ReminderPeriod:
		column = "remind_period"
	case ReminderOvulation:
		column = "remind_ovulation"
	default:
		service.logger.Warn("unknown reminder kind", zap.String("kind", kind))
		return ErrUnknownReminderKind
	}

	if _, err := service.loadUser(ctx, userID); err != nil {
		return err
	}
	if err := service.users.UpdateSettings(ctx, userID, map[string]any{column: enabled}); err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	service.logger.Info("reminder toggled", zap.Uint("user_id", userID), zap.String("kind", kind), zap.Bool("enabled", enabled))
	return nil
}

func (service *SettingsService) loadUser(ctx context.Context, userID uint) (models.User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

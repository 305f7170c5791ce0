package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleapp/internal/services"
	"go.uber.org/zap"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// respondServiceError maps domain errors onto HTTP statuses.
func (handler *Handler) respondServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		return apiError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, services.ErrInvalidVerificationCode):
		return apiError(c, fiber.StatusUnauthorized, "invalid verification code")
	case errors.Is(err, services.ErrNoActivePeriod):
		return apiError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAuthEmailInvalid),
		errors.Is(err, services.ErrPeriodEndBeforeStart),
		errors.Is(err, services.ErrSettingsCycleLengthOutOfRange),
		errors.Is(err, services.ErrSettingsPeriodLengthOutOfRange),
		errors.Is(err, services.ErrSettingsTimeZoneInvalid),
		errors.Is(err, services.ErrUnknownReminderKind),
		errors.Is(err, services.ErrRangeFromDateInvalid),
		errors.Is(err, services.ErrRangeToDateInvalid),
		errors.Is(err, services.ErrRangeInvalid):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	default:
		handler.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func queryPositiveInt(c *fiber.Ctx, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// parseOptionalDay reads a YYYY-MM-DD day in the handler's location.
func (handler *Handler) parseOptionalDay(raw string) (*time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, true
	}
	parsed, err := time.ParseInLocation("2006-01-02", trimmed, handler.location)
	if err != nil {
		return nil, false
	}
	value := parsed.UTC()
	return &value, true
}

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleapp/internal/services"
)

type settingsInput struct {
	CycleLength     int    `json:"cycle_length"`
	PeriodLength    int    `json:"period_length"`
	TimeZone        string `json:"time_zone"`
	RemindPeriod    bool   `json:"remind_period"`
	RemindOvulation bool   `json:"remind_ovulation"`
}

type reminderInput struct {
	Enabled *bool `json:"enabled"`
}

func (handler *Handler) UpdateSettings(c *fiber.Ctx) error {
	input := settingsInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	user, err := handler.settings.UpdateSettings(c.UserContext(), currentUserID(c), services.SettingsUpdate{
		CycleLength:     input.CycleLength,
		PeriodLength:    input.PeriodLength,
		TimeZone:        input.TimeZone,
		RemindPeriod:    input.RemindPeriod,
		RemindOvulation: input.RemindOvulation,
	})
	if err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(settingsInput{
		CycleLength:     user.CycleLength,
		PeriodLength:    user.PeriodLength,
		TimeZone:        user.TimeZone,
		RemindPeriod:    user.RemindPeriod,
		RemindOvulation: user.RemindOvulation,
	})
}

func (handler *Handler) ToggleReminder(c *fiber.Ctx) error {
	input := reminderInput{}
	if err := c.BodyParser(&input); err != nil || input.Enabled == nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if err := handler.settings.ToggleReminder(c.UserContext(), currentUserID(c), c.Params("kind"), *input.Enabled); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"kind": c.Params("kind"), "enabled": *input.Enabled})
}

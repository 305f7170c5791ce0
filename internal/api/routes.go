package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/request-code", handler.RequestCode)
	auth.Post("/verify-code", handler.VerifyCode)

	api.Get("/analytics", handler.AuthRequired, handler.GetAnalytics)
	api.Get("/predictions", handler.AuthRequired, handler.GetPredictions)

	periods := api.Group("/periods", handler.AuthRequired)
	periods.Get("", handler.GetPeriods)
	periods.Post("/start", handler.StartPeriod)
	periods.Post("/end", handler.EndPeriod)

	settings := api.Group("/settings", handler.AuthRequired)
	settings.Patch("", handler.UpdateSettings)
	settings.Patch("/reminders/:kind", handler.ToggleReminder)
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

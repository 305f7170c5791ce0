package api

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/cycleapp/internal/services"
	"go.uber.org/zap"
)

type requestCodeInput struct {
	Email string `json:"email"`
}

type verifyCodeInput struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (handler *Handler) RequestCode(c *fiber.Ctx) error {
	input := requestCodeInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if err := handler.auth.RequestCode(c.UserContext(), input.Email); err != nil {
		return handler.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true})
}

func (handler *Handler) VerifyCode(c *fiber.Ctx) error {
	input := verifyCodeInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}

	limiterKey := verifyLimiterKey(c, input.Email)
	if wait := handler.verifyLimiter.retryAfter(limiterKey); wait > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return apiError(c, fiber.StatusTooManyRequests, "too many attempts")
	}

	user, created, err := handler.auth.VerifyCode(c.UserContext(), input.Email, input.Code)
	if err != nil {
		if errors.Is(err, services.ErrInvalidVerificationCode) {
			handler.verifyLimiter.recordFailure(limiterKey)
		}
		return handler.respondServiceError(c, err)
	}
	handler.verifyLimiter.clear(limiterKey)

	token, err := handler.buildToken(user.ID)
	if err != nil {
		handler.logger.Error("issue token failed", zap.Uint("user_id", user.ID), zap.Error(err))
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"token":   token,
		"user_id": user.ID,
		"created": created,
	})
}

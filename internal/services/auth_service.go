package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/terraincognita07/cycleapp/internal/models"
	"github.com/terraincognita07/cycleapp/internal/security"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AuthUserRepository interface {
	FindByNormalizedEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type CodeStore interface {
	StoreCode(email string, code string, ttl time.Duration)
	ValidateCode(email string, code string) bool
	InvalidateCode(email string)
}

// CodeSender delivers a verification code to its owner.
type CodeSender interface {
	SendVerificationCode(ctx context.Context, email string, code string) error
}

type AuthConfig struct {
	CodeTTL    time.Duration
	CodeLength int
}

type AuthService struct {
	users  AuthUserRepository
	codes  CodeStore
	sender CodeSender
	config AuthConfig
	logger *zap.Logger
}

func NewAuthService(users AuthUserRepository, codes CodeStore, sender CodeSender, config AuthConfig, logger *zap.Logger) *AuthService {
	if config.CodeTTL <= 0 {
		config.CodeTTL = 15 * time.Minute
	}
	if config.CodeLength <= 0 {
		config.CodeLength = 6
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:  users,
		codes:  codes,
		sender: sender,
		config: config,
		logger: logger,
	}
}

// RequestCode issues a fresh code for email, replacing any outstanding one.
func (service *AuthService) RequestCode(ctx context.Context, emailRaw string) error {
	email := NormalizeAuthEmail(emailRaw)
	if email == "" {
		return ErrAuthEmailInvalid
	}

	code, err := security.NumericCode(service.config.CodeLength)
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}
	service.codes.StoreCode(email, code, service.config.CodeTTL)

	if err := service.sender.SendVerificationCode(ctx, email, code); err != nil {
		service.codes.InvalidateCode(email)
		return fmt.Errorf("send verification code: %w", err)
	}
	return nil
}

// VerifyCode consumes the code and returns the matching user, registering one
// with default cycle settings on first sign-in.
func (service *AuthService) VerifyCode(ctx context.Context, emailRaw string, codeRaw string) (models.User, bool, error) {
	email, code, err := NormalizeVerificationInput(emailRaw, codeRaw)
	if err != nil {
		return models.User{}, false, err
	}
	if !service.codes.ValidateCode(email, code) {
		return models.User{}, false, ErrInvalidVerificationCode
	}

	user, err := service.users.FindByNormalizedEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, false, fmt.Errorf("find user: %w", err)
	}

	user = models.User{
		Email:           email,
		CycleLength:     models.DefaultCycleLength,
		PeriodLength:    models.DefaultPeriodLength,
		RemindPeriod:    true,
		RemindOvulation: true,
	}
	if err := service.users.Create(ctx, &user); err != nil {
		return models.User{}, false, fmt.Errorf("create user: %w", err)
	}
	service.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return user, true, nil
}

// LogCodeSender records deliveries without the code itself.
type LogCodeSender struct {
	logger *zap.Logger
}

func NewLogCodeSender(logger *zap.Logger) *LogCodeSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogCodeSender{logger: logger}
}

func (sender *LogCodeSender) SendVerificationCode(_ context.Context, email string, code string) error {
	sender.logger.Info("verification code issued", emailLogField(email), zap.Int("code_length", len(code)))
	return nil
}

package api

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/models"
	"github.com/terraincognita07/cycleapp/internal/services"
	"go.uber.org/zap"
)

const (
	defaultAuthTokenTTL = 30 * 24 * time.Hour
	verifyAttemptLimit  = 5
	verifyAttemptWindow = 15 * time.Minute
	contextUserIDKey    = "user_id"
)

type AuthFlow interface {
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email string, code string) (models.User, bool, error)
}

type AnalyticsReader interface {
	FullAnalytics(ctx context.Context, userID uint, cycles int) (services.CycleAnalytics, error)
}

type ForecastReader interface {
	Forecast(ctx context.Context, userID uint, window services.ForecastRange) (services.Forecast, error)
}

type PeriodRecorder interface {
	StartPeriod(ctx context.Context, userID uint, start *time.Time) (models.Period, bool, error)
	EndPeriod(ctx context.Context, userID uint, end *time.Time) (models.Period, error)
	RecentPeriods(ctx context.Context, userID uint, count int) ([]models.Period, error)
}

type SettingsUpdater interface {
	UpdateSettings(ctx context.Context, userID uint, update services.SettingsUpdate) (models.User, error)
	ToggleReminder(ctx context.Context, userID uint, kind string, enabled bool) error
}

type Dependencies struct {
	Auth            AuthFlow
	Analytics       AnalyticsReader
	Forecasts       ForecastReader
	Periods         PeriodRecorder
	Settings        SettingsUpdater
	SigningKey      []byte
	TokenTTL        time.Duration
	AnalyticsCycles int
	Location        *time.Location
	Clock           clockwork.Clock
	Logger          *zap.Logger
}

type Handler struct {
	auth            AuthFlow
	analytics       AnalyticsReader
	forecasts       ForecastReader
	periods         PeriodRecorder
	settings        SettingsUpdater
	signingKey      []byte
	tokenTTL        time.Duration
	analyticsCycles int
	location        *time.Location
	clock           clockwork.Clock
	logger          *zap.Logger
	verifyLimiter   *attemptLimiter
}

func NewHandler(deps Dependencies) *Handler {
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = defaultAuthTokenTTL
	}
	if deps.AnalyticsCycles <= 0 {
		deps.AnalyticsCycles = services.DefaultAnalyticsCycles
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{
		auth:            deps.Auth,
		analytics:       deps.Analytics,
		forecasts:       deps.Forecasts,
		periods:         deps.Periods,
		settings:        deps.Settings,
		signingKey:      deps.SigningKey,
		tokenTTL:        deps.TokenTTL,
		analyticsCycles: deps.AnalyticsCycles,
		location:        deps.Location,
		clock:           deps.Clock,
		logger:          deps.Logger,
		verifyLimiter:   newAttemptLimiter(verifyAttemptLimit, verifyAttemptWindow, deps.Clock),
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/api"
	"github.com/terraincognita07/cycleapp/internal/config"
	"github.com/terraincognita07/cycleapp/internal/db"
	"github.com/terraincognita07/cycleapp/internal/events"
	"github.com/terraincognita07/cycleapp/internal/notify"
	"github.com/terraincognita07/cycleapp/internal/security"
	"github.com/terraincognita07/cycleapp/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App owns the process-wide collaborators: database, services, HTTP surface
// and background jobs.
type App struct {
	config     *config.Config
	logger     *zap.Logger
	clock      clockwork.Clock
	database   *gorm.DB
	repos      *db.Repositories
	publisher  events.Publisher
	codes      *services.VerificationCodeStore
	reconciler *services.Reconciler
	reminders  *services.ReminderService
	handler    *api.Handler
}

func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	return newApp(cfg, logger, clockwork.NewRealClock())
}

func newApp(cfg *config.Config, logger *zap.Logger, clock clockwork.Clock) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.TimeZoneOK {
		logger.Warn("invalid TZ, falling back to UTC")
	}

	database, err := db.OpenSQLite(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}

	publisher, err := events.Connect(cfg.NATS.URL, logger.Named("events"))
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("events init: %w", err)
	}

	signingKey, err := security.DeriveKey(cfg.Server.SecretKey, "jwt", 32)
	if err != nil {
		_ = publisher.Close()
		_ = db.Close(database)
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	repos := db.NewRepositories(database)
	calculator := services.NewCycleCalculator(clock)
	codes := services.NewVerificationCodeStore(clock, logger)

	var reminderSender services.ReminderSender = notify.NewLogSender(logger.Named("reminders"))
	if cfg.Telegram.Enabled() {
		reminderSender = notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger.Named("telegram"))
	}

	application := &App{
		config:    cfg,
		logger:    logger,
		clock:     clock,
		database:  database,
		repos:     repos,
		publisher: publisher,
		codes:     codes,
		reconciler: services.NewReconciler(
			newPredictionStore(repos.Predictions),
			publisher,
			calculator,
			clock,
			logger,
			services.ReconcilerConfig{
				Interval:            cfg.Reconcile.Interval,
				MaxAttempts:         cfg.Reconcile.MaxAttempts,
				RetryBaseDelay:      cfg.Reconcile.RetryBaseDelay,
				ForecastCycles:      cfg.Reconcile.ForecastCycles,
				OvulationWindowDays: cfg.Reconcile.OvulationWindowDays,
				VariationRefreshAge: cfg.Reconcile.VariationRefreshAge,
			},
		),
		reminders: services.NewReminderService(repos.Users, reminderSender, calculator, clock, logger),
	}

	application.handler = api.NewHandler(api.Dependencies{
		Auth: services.NewAuthService(
			repos.Users,
			codes,
			services.NewLogCodeSender(logger.Named("auth")),
			services.AuthConfig{CodeTTL: cfg.Auth.CodeTTL, CodeLength: cfg.Auth.CodeLength},
			logger.Named("auth"),
		),
		Analytics:       services.NewAnalyticsService(repos.Users, repos.Periods, calculator, logger.Named("analytics")),
		Forecasts:       services.NewForecastService(repos.Users, repos.Periods, repos.Ovulations, calculator),
		Periods:         services.NewPeriodService(repos.Periods, clock, logger.Named("periods")),
		Settings:        services.NewSettingsService(repos.Users, logger.Named("settings")),
		SigningKey:      signingKey,
		AnalyticsCycles: cfg.Analytics.Cycles,
		Location:        cfg.Location,
		Clock:           clock,
		Logger:          logger.Named("api"),
	})
	return application, nil
}

// HTTP builds the fiber application with every route registered.
func (application *App) HTTP() *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               "cycleapp",
		DisableStartupMessage: true,
	})
	server.Use(recover.New())
	server.Use(requestLogger(application.logger.Named("http")))
	api.RegisterRoutes(server, application.handler)
	return server
}

// ReconcileOnce runs a single reconciliation tick.
func (application *App) ReconcileOnce(ctx context.Context) (services.TickReport, error) {
	return application.reconciler.RunOnce(ctx)
}

// Run serves HTTP and runs the reconciler and scheduled jobs until ctx is done.
func (application *App) Run(ctx context.Context) error {
	runner, err := newScheduler(ctx, application.logger,
		job{
			name:     "reminders",
			schedule: application.config.Jobs.ReminderSchedule,
			run: func(ctx context.Context) error {
				_, err := application.reminders.RunOnce(ctx)
				return err
			},
		},
		job{
			name:     "code-purge",
			schedule: application.config.Jobs.CodePurgeSchedule,
			run: func(context.Context) error {
				if purged := application.codes.PurgeExpired(); purged > 0 {
					application.logger.Debug("verification codes purged", zap.Int("count", purged))
				}
				return nil
			},
		},
	)
	if err != nil {
		return err
	}

	server := application.HTTP()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		application.logger.Info("http listening",
			zap.String("port", application.config.Server.Port),
			zap.String("db", application.config.Database.Path),
			zap.String("tz", application.config.Location.String()),
		)
		if err := server.Listen(":" + application.config.Server.Port); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		err := application.reconciler.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		runner.Start()
		<-groupCtx.Done()
		<-runner.Stop().Done()
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			application.logger.Warn("server shutdown failed", zap.Error(err))
		}
		return nil
	})

	return group.Wait()
}

func (application *App) Close() error {
	return errors.Join(application.publisher.Close(), db.Close(application.database))
}

func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		logger.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(started)),
		)
		return err
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/terraincognita07/cycleapp/internal/app"
	"github.com/terraincognita07/cycleapp/internal/cli"
	"github.com/terraincognita07/cycleapp/internal/config"
	"github.com/terraincognita07/cycleapp/internal/db"
	"github.com/terraincognita07/cycleapp/internal/logging"
	"go.uber.org/zap"
)

const (
	commandServe           = "serve"
	commandReconcile       = "reconcile"
	commandResetVariations = "reset-variations"
)

const usage = `usage:
  cycleapp                          serve HTTP and run background jobs
  cycleapp reconcile                run one reconciliation tick and exit
  cycleapp reset-variations EMAIL   clear learned cycle bounds for a user`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command, operand, err := parseCommand(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case commandResetVariations:
		return resetVariations(ctx, logger, operand)
	case commandReconcile:
		return withApp(logger, func(application *app.App) error {
			return cli.RunReconcileCommand(ctx, application, os.Stdout)
		})
	default:
		return withApp(logger, func(application *app.App) error {
			err := application.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
}

func parseCommand(args []string) (string, string, error) {
	if len(args) == 0 {
		return commandServe, "", nil
	}
	switch args[0] {
	case commandServe, commandReconcile:
		if len(args) != 1 {
			return "", "", fmt.Errorf("%s takes no arguments\n%s", args[0], usage)
		}
		return args[0], "", nil
	case commandResetVariations:
		if len(args) != 2 {
			return "", "", fmt.Errorf("%s requires an email\n%s", args[0], usage)
		}
		return args[0], args[1], nil
	default:
		return "", "", fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func withApp(logger *zap.Logger, fn func(*app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", zap.Error(err))
		}
	}()
	return fn(application)
}

func resetVariations(ctx context.Context, logger *zap.Logger, email string) error {
	database, err := db.OpenSQLite(config.DatabasePath(), logger)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer func() {
		_ = db.Close(database)
	}()
	return cli.RunResetVariationsCommand(ctx, db.NewUserRepository(database), email, os.Stdout)
}

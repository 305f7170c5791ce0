package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes cron's own diagnostics through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (logger cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.sugar.Debugw(msg, keysAndValues...)
}

func (logger cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

// newScheduler registers jobs on a cron runner. Overlapping runs of the same
// job are skipped and panics are recovered.
func newScheduler(ctx context.Context, logger *zap.Logger, jobs ...job) (*cron.Cron, error) {
	wrapped := cronLogger{sugar: logger.Named("cron").Sugar()}
	runner := cron.New(
		cron.WithLogger(wrapped),
		cron.WithChain(cron.Recover(wrapped), cron.SkipIfStillRunning(wrapped)),
	)

	for _, next := range jobs {
		next := next
		jobLogger := logger.With(zap.String("component", next.name))
		if _, err := runner.AddFunc(next.schedule, func() {
			if err := next.run(ctx); err != nil {
				jobLogger.Error("scheduled job failed", zap.Error(err))
			}
		}); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", next.name, next.schedule, err)
		}
	}
	return runner, nil
}

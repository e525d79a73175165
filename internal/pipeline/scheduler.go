package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule runs the pipeline once immediately and then on the cron schedule until ctx is
// cancelled. Runs that would overlap a run in progress are skipped.
func (p *Pipeline) Schedule(ctx context.Context, spec string) error {
	logger := cronLogger{p.logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	job := cron.FuncJob(func() {
		_, _ = p.RunOnce(ctx) // outcome is logged and recorded by RunOnce
	})
	if _, err := c.AddJob(spec, job); err != nil {
		return fmt.Errorf("invalid SCHEDULE %q: %w", spec, err)
	}

	p.logger.Info("scheduler started", "schedule", spec)
	p.metrics.SchedulerRunning.Set(1)
	defer p.metrics.SchedulerRunning.Set(0)

	c.Start()
	c.Entries()[0].WrappedJob.Run()

	<-ctx.Done()
	p.logger.Info("scheduler stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

// cronLogger adapts slog to cron's logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/josh-kwaku/agency-ledger/internal/logging"
)

type runner interface {
	Today() time.Time
	RunForDate(ctx context.Context, today time.Time) (*Report, error)
}

// Cron triggers the scheduler in-process on a cron schedule. Triggering it
// more than once a day, or alongside the external trigger, is harmless.
type Cron struct {
	cron   *cron.Cron
	runner runner
	logger *slog.Logger
}

// NewCron evaluates schedules in loc so "0 6 * * *" means 06:00 on the
// ledger's calendar.
func NewCron(runner runner, loc *time.Location, logger *slog.Logger) *Cron {
	return &Cron{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		logger: logger.With("component", "recurring_cron"),
	}
}

// Schedule registers the daily run. spec is a standard five-field cron
// expression or a descriptor such as "@daily".
func (c *Cron) Schedule(ctx context.Context, spec string) error {
	_, err := c.cron.AddFunc(spec, func() {
		c.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("Schedule: %q: %w", spec, err)
	}
	c.logger.Info("recurring run scheduled", "schedule", spec)
	return nil
}

func (c *Cron) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx = logging.WithLogger(ctx, c.logger)
	report, err := c.runner.RunForDate(ctx, c.runner.Today())
	if err != nil {
		c.logger.Error("recurring run failed", "error", err)
		return
	}
	if report.Failed() {
		c.logger.Warn("recurring run finished with errors",
			"generated", report.GeneratedCount,
			"errors", len(report.Errors),
		)
	}
}

func (c *Cron) Start() {
	c.cron.Start()
	c.logger.Info("recurring cron started")
}

// Stop waits for a run in progress to finish.
func (c *Cron) Stop() {
	<-c.cron.Stop().Done()
	c.logger.Info("recurring cron stopped")
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// AutoSettler periodically publishes results of ended tournaments.
type AutoSettler struct {
	settlement *SettlementService
	interval   time.Duration
	logger     *slog.Logger
}

func NewAutoSettler(settlement *SettlementService, interval time.Duration, opts ...Option) *AutoSettler {
	o := buildOptions(opts)
	return &AutoSettler{settlement: settlement, interval: interval, logger: o.logger}
}

// Run schedules the sweep and blocks until ctx is cancelled. Runs never
// overlap.
func (a *AutoSettler) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(a.interval),
		gocron.NewTask(func() {
			settled, err := a.settlement.SettleEnded(ctx)
			if err != nil {
				a.logger.Error("settlement sweep", slog.Any("error", err))
				return
			}
			if len(settled) > 0 {
				a.logger.Info("settlement sweep", slog.Any("tournament_ids", settled))
			}
		}),
		gocron.WithName("auto-settlement"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule settlement: %w", err)
	}

	sched.Start()
	a.logger.Info("auto settlement started", slog.Duration("interval", a.interval))

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

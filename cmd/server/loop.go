package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/sipledger-backend/internal/config"
	"github.com/simaogato/sipledger-backend/internal/usecase/reminder"
	"github.com/simaogato/sipledger-backend/internal/usecase/scheduler"
)

// schedulerLoop runs the scheduler, then reminders, on a fixed interval until ctx ends.
// Each tick gets its own timeout; a tick still running when the next one is due delays it.
type schedulerLoop struct {
	scheduler *scheduler.SchedulerService
	reminders *reminder.ReminderService // nil when reminders are disabled
	cfg       config.SchedulerConfig
	log       zerolog.Logger
}

func (l *schedulerLoop) run(ctx context.Context) {
	if l.cfg.Interval.Duration <= 0 {
		l.log.Info().Msg("periodic scheduler disabled")
		return
	}

	if l.cfg.RunOnStart {
		l.tick(ctx)
	}

	ticker := time.NewTicker(l.cfg.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *schedulerLoop) tick(ctx context.Context) {
	runCtx := ctx
	if l.cfg.Timeout.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.cfg.Timeout.Duration)
		defer cancel()
	}

	summary, err := l.scheduler.Run(runCtx)
	switch {
	case err != nil && summary == nil:
		l.log.Error().Err(err).Msg("scheduler run failed")
		return
	case err != nil:
		l.log.Warn().Err(err).Int("undispatched", summary.Undispatched).Msg("scheduler run interrupted")
	default:
		l.log.Info().
			Int("total_plans", summary.TotalPlans).
			Int("scheduled", summary.Scheduled).
			Int("skipped", summary.Skipped).
			Int("failed", summary.Failed).
			Msg("scheduler run finished")
	}

	if l.reminders == nil || errors.Is(runCtx.Err(), context.Canceled) {
		return
	}
	sent, err := l.reminders.Send(runCtx)
	if err != nil {
		l.log.Error().Err(err).Msg("reminder run failed")
		return
	}
	l.log.Info().
		Int("due_tomorrow", sent.DueTomorrow).
		Int("missed_today", sent.MissedToday).
		Int("failed", sent.Failed).
		Msg("reminders sent")
}

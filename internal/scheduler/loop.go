package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skimmer/internal/config"
	"skimmer/internal/ingest"
	"skimmer/internal/logging"
	"skimmer/internal/trigger"
)

// Loop drives scrape cycles: it drains pending triggers, falls back to batch
// runs, and sleeps between cycles while still picking up triggers that arrive
// mid-sleep.
type Loop struct {
	channel trigger.Channel
	runner  ingest.Runner
	logger  *slog.Logger

	cooldown time.Duration
	poll     time.Duration
}

// New builds a loop from configuration. The logger is scoped to the scheduler
// component.
func New(cfg *config.Config, channel trigger.Channel, runner ingest.Runner, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{
		channel:  channel,
		runner:   runner,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		cooldown: cfg.Scheduler.FailureCooldownDuration(),
		poll:     cfg.Scheduler.TriggerPollDuration(),
	}
}

// Run executes scrape cycles until ctx is cancelled, then returns nil. A
// failed cycle backs off for the configured cooldown instead of sleeping the
// full interval, so transient outages retry promptly.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("scheduler started",
		logging.String(logging.FieldEventType, "scheduler_started"),
		logging.Duration("cooldown", l.cooldown),
		logging.Duration("trigger_poll", l.poll),
	)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping", logging.String(logging.FieldEventType, "scheduler_stopped"))
			return nil
		default:
		}

		if l.runCycle(ctx) {
			l.idle(ctx)
			continue
		}
		if ctx.Err() != nil {
			continue
		}
		logging.WarnWithContext(l.logger, "scrape cycle failed; backing off", "cycle_failed",
			logging.Duration("cooldown", l.cooldown),
			logging.String(logging.FieldErrorHint, "check the scrape job log for the underlying failure"),
			logging.String(logging.FieldImpact, "next scrape delayed by the cooldown window"),
		)
		sleepCtx(ctx, l.cooldown)
	}
}

// runCycle services every pending trigger, or runs a batch cycle when none
// are waiting. It reports whether the cycle succeeded.
func (l *Loop) runCycle(ctx context.Context) bool {
	triggers, err := l.channel.PendingTriggers()
	if err != nil {
		logging.ErrorWithContext(l.logger, "trigger scan failed", "trigger_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check trigger directory permissions"),
		)
		return false
	}
	if len(triggers) == 0 {
		l.logger.Info("starting batch scrape", logging.String(logging.FieldEventType, "batch_started"))
		if err := l.runner.RunBatch(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return false
			}
			logging.ErrorWithContext(l.logger, "batch scrape failed", "batch_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the scrape job log for the underlying failure"),
			)
			return false
		}
		l.logger.Info("batch scrape completed", logging.String(logging.FieldEventType, "batch_completed"))
		return true
	}
	return l.serviceTriggers(ctx, triggers)
}

// serviceTriggers runs a scoped scrape per trigger. Each flag is consumed
// after its job finishes, pass or fail, so a bad source cannot wedge the loop
// into reprocessing the same trigger forever. Triggers not yet reached when
// ctx is cancelled stay on disk for the next start.
func (l *Loop) serviceTriggers(ctx context.Context, triggers []trigger.Trigger) bool {
	ok := true
	for _, t := range triggers {
		if ctx.Err() != nil {
			return ok
		}
		l.logger.Info("trigger detected",
			logging.String(logging.FieldEventType, "trigger_detected"),
			logging.String(logging.FieldSource, t.Source),
		)
		runErr := l.runner.RunSource(ctx, t.Source)
		if err := l.channel.Consume(t); err != nil {
			logging.WarnWithContext(l.logger, "trigger flag cleanup failed", "trigger_consume_failed",
				logging.Error(err),
				logging.String(logging.FieldSource, t.Source),
				logging.String(logging.FieldImpact, "trigger may be serviced again next cycle"),
			)
		}
		if runErr != nil {
			if errors.Is(runErr, context.Canceled) {
				return ok
			}
			logging.ErrorWithContext(l.logger, "trigger scrape failed", "trigger_failed",
				logging.Error(runErr),
				logging.String(logging.FieldSource, t.Source),
			)
			ok = false
			continue
		}
		l.logger.Info("trigger scrape completed",
			logging.String(logging.FieldEventType, "trigger_completed"),
			logging.String(logging.FieldSource, t.Source),
		)
	}
	return ok
}

// idle sleeps out the configured interval in poll-sized slices, servicing any
// triggers that appear mid-sleep. The deadline is fixed when the sleep begins:
// trigger activity never pushes back the next batch run.
func (l *Loop) idle(ctx context.Context) {
	interval := l.channel.ReadInterval()
	deadline := time.Now().Add(interval)
	l.logger.Info("sleeping until next batch",
		logging.String(logging.FieldEventType, "interval_sleep"),
		logging.Duration("interval", interval),
	)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		step := l.poll
		if step <= 0 || step > remaining {
			step = remaining
		}
		if !sleepCtx(ctx, step) {
			return
		}
		triggers, err := l.channel.PendingTriggers()
		if err != nil {
			logging.WarnWithContext(l.logger, "trigger scan failed during sleep", "trigger_scan_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "mid-sleep triggers delayed until next poll"),
			)
			continue
		}
		if len(triggers) > 0 {
			l.serviceTriggers(ctx, triggers)
		}
	}
}

// sleepCtx waits for d or until ctx is cancelled, reporting whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Package refresh reloads the activity catalog on a cron schedule so the list
// follows changes made by other users.
//
// A schedule is one or more cron expressions separated by ";". Each
// expression is either a standard 5-field spec (minute, hour, day of month,
// month, day of week) or a descriptor such as "@hourly" or "@every 30s".
// The catalog is reloaded at every time matched by any of the expressions.
//
// Example usage:
//
//	trigger, err := refresh.NewTrigger("*/5 * * * *;@every 30s", app, logger)
//	if err != nil {
//	    return err
//	}
//	trigger.Start(ctx) // Returns immediately, runs in background
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const scheduleSeparator = ";"

// ErrInvalidCronSpec is returned when a schedule cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Refresher reloads the catalog.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Trigger calls a Refresher according to a schedule.
type Trigger struct {
	spec      string
	schedules []cron.Schedule
	refresher Refresher
	logger    *slog.Logger
}

// ParseSchedules parses a ";"-separated list of cron expressions.
// Empty entries, such as a trailing separator, are skipped.
func ParseSchedules(spec string) ([]cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	var schedules []cron.Schedule
	for _, expr := range strings.Split(spec, scheduleSeparator) {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		schedule, err := parser.Parse(expr)
		if err != nil {
			return nil, errors.Join(ErrInvalidCronSpec, fmt.Errorf("parsing %q: %w", expr, err))
		}
		schedules = append(schedules, schedule)
	}

	if len(schedules) == 0 {
		return nil, errors.Join(ErrInvalidCronSpec, errors.New("schedule cannot be empty"))
	}
	return schedules, nil
}

// NewTrigger creates a Trigger for spec.
// Returns ErrInvalidCronSpec if any expression cannot be parsed.
func NewTrigger(spec string, refresher Refresher, logger *slog.Logger) (*Trigger, error) {
	schedules, err := ParseSchedules(spec)
	if err != nil {
		return nil, err
	}

	return &Trigger{
		spec:      spec,
		schedules: schedules,
		refresher: refresher,
		logger:    logger,
	}, nil
}

// Spec returns the schedule the trigger was created with.
func (t *Trigger) Spec() string {
	return t.spec
}

// Start launches a goroutine that refreshes according to the schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (t *Trigger) Start(ctx context.Context) {
	go t.loop(ctx)
}

// NextRun returns the next scheduled refresh time from now.
func (t *Trigger) NextRun() time.Time {
	return t.next(time.Now())
}

// next returns the earliest time after from matched by any schedule.
func (t *Trigger) next(from time.Time) time.Time {
	var earliest time.Time
	for _, s := range t.schedules {
		n := s.Next(from)
		if n.IsZero() {
			continue
		}
		if earliest.IsZero() || n.Before(earliest) {
			earliest = n
		}
	}
	return earliest
}

func (t *Trigger) loop(ctx context.Context) {
	for {
		nextRun := t.next(time.Now())
		if nextRun.IsZero() {
			t.logger.Warn("refresh schedule has no future runs", "spec", t.spec)
			return
		}
		waitDuration := time.Until(nextRun)

		t.logger.Debug("waiting for next scheduled refresh",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			t.logger.Debug("refresh trigger shutting down")
			return
		case <-timer.C:
			t.run(ctx)
		}
	}
}

func (t *Trigger) run(ctx context.Context) {
	t.logger.Debug("starting scheduled refresh")

	if err := t.refresher.Refresh(ctx); err != nil {
		t.logger.Warn("scheduled refresh failed", "error", err)
		return
	}
	t.logger.Debug("scheduled refresh completed")
}

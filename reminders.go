package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"wellness/pkg/metrics"
	"wellness/pkg/notify"
	"wellness/pkg/reminders"
)

// Dispatcher fires a notification for every active reminder, of any user, as
// it falls due. Only reminders due within the lookahead window hold a timer.
// Firing does not complete the reminder.
type Dispatcher struct {
	clock     clock.Clock
	registry  *notify.Registry
	interval  time.Duration
	lookahead time.Duration
	log       *slog.Logger
}

func NewDispatcher(interval, lookahead time.Duration, clk clock.Clock, log *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		clock:     clk,
		interval:  interval,
		lookahead: lookahead,
		log:       log,
	}
	d.registry = notify.NewRegistry(d.executeReminder, notify.WithClock(clk), notify.WithLogger(log))
	return d
}

// Schedule arms r if it is due within the lookahead window. It makes the
// Dispatcher a reminders.Scheduler, so writes through the service take effect
// without waiting for the next poll.
func (d *Dispatcher) Schedule(r reminders.Reminder) {
	if r.NextOccurrence.After(d.clock.Now().Add(d.lookahead)) {
		d.registry.Cancel(r.ID)
		return
	}
	d.registry.Schedule(r)
}

func (d *Dispatcher) Cancel(id string) {
	d.registry.Cancel(id)
}

// Pending returns the number of armed timers.
func (d *Dispatcher) Pending() int {
	return d.registry.Len()
}

// Run periodically polls svc for due reminders until ctx is canceled.
// This is a blocking function that should be called in a background goroutine.
func (d *Dispatcher) Run(ctx context.Context, svc *reminders.Service) {
	defer d.registry.Stop()

	source := func(ctx context.Context) ([]reminders.Reminder, error) {
		now := svc.Now()
		return svc.ListDue(ctx, now, now.Add(d.lookahead))
	}
	poller := notify.NewPoller(source, d.registry, d.interval, notify.WithClock(d.clock), notify.WithLogger(d.log))
	poller.Run(ctx)
}

// Invoked when a reminder falls due.
func (d *Dispatcher) executeReminder(r reminders.Reminder) {
	metrics.NotificationsFired.Inc()
	d.log.Info("Executed reminder",
		"id", r.ID,
		"user", r.Owner,
		"text", r.Text,
		"priority", r.Priority,
		"scheduled", r.NextOccurrence.Format(time.RFC822),
	)
}

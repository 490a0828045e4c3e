package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"wellness/pkg/reminders"
)

// Source returns the reminders a registry should currently hold timers for.
type Source func(ctx context.Context) ([]reminders.Reminder, error)

// Poller periodically pulls a list from a Source and syncs it into a Registry.
type Poller struct {
	source   Source
	registry *Registry
	interval time.Duration
	clock    clock.Clock
	log      *slog.Logger
}

// NewPoller returns a Poller fetching from source every interval.
func NewPoller(source Source, registry *Registry, interval time.Duration, opts ...Option) *Poller {
	o := buildOptions(opts)
	return &Poller{
		source:   source,
		registry: registry,
		interval: interval,
		clock:    o.clock,
		log:      o.log,
	}
}

// Run polls once immediately and then on every tick, until ctx is canceled.
// This is a blocking function that should be called in a background goroutine.
func (p *Poller) Run(ctx context.Context) {
	t := p.clock.Ticker(p.interval)
	defer t.Stop()

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			p.log.Error("Error retrieving reminders", "error", err)
		}

		select {
		case <-ctx.Done():
			// Stop on context cancellation
			return
		case <-t.C:
		}
	}
}

// Poll fetches the list once and syncs the registry. On error the registry
// is left untouched.
func (p *Poller) Poll(ctx context.Context) error {
	list, err := p.source(ctx)
	if err != nil {
		return fmt.Errorf("polling reminders: %w", err)
	}
	p.registry.Sync(list)
	p.log.Debug("Synced reminder timers", "listed", len(list), "armed", p.registry.Len())
	return nil
}

// Package notify fires local notifications for reminders when they fall due.
//
// A Registry owns one cancellable timer per reminder id. A Poller keeps a
// Registry in sync with a periodically fetched list of reminders.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"wellness/pkg/reminders"
)

// Func is invoked, in its own goroutine, when a reminder falls due.
type Func func(r reminders.Reminder)

// Option configures a Registry or a Poller.
type Option func(*options)

type options struct {
	clock clock.Clock
	log   *slog.Logger
}

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{
		clock: clock.New(),
		log:   slog.Default(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Registry holds the armed timers. It is safe for concurrent use and
// implements reminders.Scheduler.
type Registry struct {
	clock clock.Clock
	fire  Func
	log   *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	// fired holds the due time each id last fired at, so that re-listing a
	// reminder that has not been completed yet does not fire it twice.
	fired   map[string]time.Time
	stopped bool
}

type entry struct {
	timer *clock.Timer
	due   time.Time
	rem   reminders.Reminder
}

// NewRegistry returns an empty Registry calling fire for every due reminder.
func NewRegistry(fire Func, opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{
		clock:   o.clock,
		fire:    fire,
		log:     o.log,
		entries: make(map[string]*entry),
		fired:   make(map[string]time.Time),
	}
}

// Schedule arms a timer for r at its next occurrence. An existing timer is
// re-armed only if the due time changed. Reminders that are not active or
// are already past due are cancelled instead.
func (g *Registry) Schedule(r reminders.Reminder) {
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	if r.State() != reminders.StateActive || r.NextOccurrence.IsZero() || r.NextOccurrence.Before(now) {
		g.cancelLocked(r.ID)
		return
	}
	if last, ok := g.fired[r.ID]; ok && last.Equal(r.NextOccurrence) {
		return
	}

	if e, ok := g.entries[r.ID]; ok {
		if e.due.Equal(r.NextOccurrence) {
			e.rem = r
			return
		}
		e.timer.Stop()
		delete(g.entries, r.ID)
	}

	e := &entry{due: r.NextOccurrence, rem: r}
	e.timer = g.clock.AfterFunc(r.NextOccurrence.Sub(now), func() {
		g.expire(r.ID, e)
	})
	g.entries[r.ID] = e
	g.log.Debug("Scheduled reminder notification", "id", r.ID, "due", r.NextOccurrence)
}

// Cancel disarms the timer of id, if any.
func (g *Registry) Cancel(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelLocked(id)
}

// Sync schedules every reminder in list and cancels any timer whose id is not
// in it.
func (g *Registry) Sync(list []reminders.Reminder) {
	keep := make(map[string]struct{}, len(list))
	for _, r := range list {
		keep[r.ID] = struct{}{}
		g.Schedule(r)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for id := range g.entries {
		if _, ok := keep[id]; !ok {
			g.cancelLocked(id)
		}
	}
	for id := range g.fired {
		if _, ok := keep[id]; !ok {
			delete(g.fired, id)
		}
	}
}

// Len returns the number of armed timers.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Stop disarms every timer. Later calls to Schedule are ignored.
func (g *Registry) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id := range g.entries {
		g.cancelLocked(id)
	}
	g.stopped = true
}

func (g *Registry) cancelLocked(id string) {
	delete(g.fired, id)
	e, ok := g.entries[id]
	if !ok {
		return
	}
	e.timer.Stop()
	delete(g.entries, id)
}

func (g *Registry) expire(id string, e *entry) {
	g.mu.Lock()
	// The entry may have been cancelled or replaced after the timer fired.
	if cur, ok := g.entries[id]; !ok || cur != e {
		g.mu.Unlock()
		return
	}
	delete(g.entries, id)
	g.fired[id] = e.due
	rem := e.rem
	g.mu.Unlock()

	g.fire(rem)
}

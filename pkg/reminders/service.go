package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"wellness/pkg/metrics"
)

// Scheduler receives reminders whose local notification timer must be
// armed, re-armed or cancelled.
type Scheduler interface {
	Schedule(r Reminder)
	Cancel(id string)
}

// Service applies the reminder lifecycle on top of a primary store (the
// document store) and a fallback store used while the primary is unreachable.
// The store is chosen again on every call.
type Service struct {
	primary   Store
	fallback  Store
	clock     clock.Clock
	loc       *time.Location
	scheduler Scheduler
	log       *slog.Logger

	// degraded remembers the last selection so transitions are logged once.
	degraded atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithPrimary sets the preferred store. If it implements Prober, it is only
// used while Connected reports true.
func WithPrimary(st Store) Option {
	return func(s *Service) { s.primary = st }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation sets the time zone used for time-of-day arithmetic.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithScheduler(sch Scheduler) Option {
	return func(s *Service) { s.scheduler = sch }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService returns a Service. fallback must not be nil.
func NewService(fallback Store, opts ...Option) *Service {
	s := &Service{
		fallback: fallback,
		clock:    clock.New(),
		loc:      time.Local,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now returns the current time in the service location.
func (s *Service) Now() time.Time {
	return s.clock.Now().In(s.loc)
}

// Backend returns the name of the store the next call would use.
func (s *Service) Backend() string {
	st, _ := s.pick()
	return st.Name()
}

func (s *Service) pick() (Store, bool) {
	if s.primary == nil {
		return s.fallback, false
	}
	if p, ok := s.primary.(Prober); ok && !p.Connected() && s.fallback != nil {
		return s.fallback, true
	}
	return s.primary, false
}

func (s *Service) store() Store {
	st, degraded := s.pick()
	if degraded {
		metrics.FallbackTotal.Inc()
		if !s.degraded.Swap(true) {
			s.log.Warn("Document store unavailable, serving reminders from fallback",
				"primary", s.primary.Name(), "fallback", st.Name())
		}
	} else if s.primary != nil && s.degraded.Swap(false) {
		s.log.Info("Document store reachable again", "primary", s.primary.Name())
	}
	return st
}

// Create validates in, fills defaults, computes the next occurrence and persists
// the reminder in the active state.
func (s *Service) Create(ctx context.Context, in Input) (*Reminder, error) {
	in.Text = strings.TrimSpace(in.Text)
	in.TimeOfDay = strings.TrimSpace(in.TimeOfDay)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	r := &Reminder{
		Owner:     in.Owner,
		Text:      in.Text,
		TimeOfDay: in.TimeOfDay,
		Priority:  in.Priority,
		Repeat:    in.Repeat,
		Category:  in.Category,
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Repeat == "" {
		r.Repeat = RepeatNone
	}
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if in.NextOccurrence != nil && !in.NextOccurrence.IsZero() {
		r.NextOccurrence = *in.NextOccurrence
	} else {
		next, err := ComputeNextOccurrence(r.TimeOfDay, s.Now())
		if err != nil {
			return nil, &ValidationError{Problems: []string{"time must be HH:MM"}, badTime: true}
		}
		r.NextOccurrence = next
	}
	r.SetState(StateActive)

	st := s.store()
	start := time.Now()
	created, err := st.Create(ctx, r)
	metrics.ObserveOperation("create", st.Name(), start, err)
	if err != nil {
		return nil, fmt.Errorf("creating reminder: %w", err)
	}
	s.afterWrite(created)
	return created, nil
}

// Get returns a single reminder.
func (s *Service) Get(ctx context.Context, id string) (*Reminder, error) {
	st := s.store()
	start := time.Now()
	r, err := st.Get(ctx, id)
	metrics.ObserveOperation("get", st.Name(), start, err)
	if err != nil {
		return nil, fmt.Errorf("getting reminder %s: %w", id, err)
	}
	s.localize(r)
	return r, nil
}

// Update applies p. A new time of day recomputes the next occurrence relative
// to now, overriding any nextOccurrence in the patch.
func (s *Service) Update(ctx context.Context, id string, p Patch) (*Reminder, error) {
	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if text == "" {
			return nil, &ValidationError{Problems: []string{"text must not be empty"}}
		}
		p.Text = &text
	}
	if err := validateStruct(p); err != nil {
		return nil, err
	}
	if p.Active != nil && p.Completed != nil && *p.Active && *p.Completed {
		return nil, &ValidationError{Problems: []string{"active and completed cannot both be true"}}
	}
	if p.NextOccurrence != nil && p.NextOccurrence.IsZero() && p.TimeOfDay == nil {
		return nil, &ValidationError{Problems: []string{"nextOccurrence must not be empty"}}
	}
	if p.TimeOfDay != nil {
		tod := strings.TrimSpace(*p.TimeOfDay)
		next, err := ComputeNextOccurrence(tod, s.Now())
		if err != nil {
			return nil, &ValidationError{Problems: []string{"time must be HH:MM"}, badTime: true}
		}
		p.TimeOfDay = &tod
		p.NextOccurrence = &next
	}

	st := s.store()
	start := time.Now()
	var (
		updated *Reminder
		err     error
	)
	if (p.Active == nil) != (p.Completed == nil) {
		err = resolveState(ctx, st, id, &p)
	}
	switch {
	case err != nil:
	case p.IsEmpty():
		updated, err = st.Get(ctx, id)
	default:
		updated, err = st.Update(ctx, id, p)
	}
	metrics.ObserveOperation("update", st.Name(), start, err)
	if err != nil {
		return nil, fmt.Errorf("updating reminder %s: %w", id, err)
	}
	s.afterWrite(updated)
	return updated, nil
}

// resolveState completes a patch that sets only one of the active/completed
// flags, so the stored pair always encodes a single State. Completed wins.
func resolveState(ctx context.Context, st Store, id string, p *Patch) error {
	cur, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Apply(cur)
	cur.SetState(cur.State())
	p.Active, p.Completed = Bool(cur.Active), Bool(cur.Completed)
	return nil
}

// Complete applies the completion transition. A non-repeating reminder becomes
// completed and stops firing; a repeating one advances its next occurrence by
// one period and keeps firing.
func (s *Service) Complete(ctx context.Context, id string) (*Reminder, error) {
	st := s.store()
	start := time.Now()
	r, err := st.Get(ctx, id)
	if err != nil {
		metrics.ObserveOperation("complete", st.Name(), start, err)
		return nil, fmt.Errorf("completing reminder %s: %w", id, err)
	}

	next := CompletionState(r.State(), r.Repeat)
	if next != StateCompleted {
		base := r.NextOccurrence.In(s.loc)
		if r.NextOccurrence.IsZero() {
			base, err = ComputeNextOccurrence(r.TimeOfDay, s.Now())
			if err != nil {
				base = s.Now()
			}
		}
		r.NextOccurrence = Advance(base, r.Repeat)
	}
	r.SetState(next)

	saved, err := st.Replace(ctx, r)
	metrics.ObserveOperation("complete", st.Name(), start, err)
	if err != nil {
		return nil, fmt.Errorf("completing reminder %s: %w", id, err)
	}
	s.afterWrite(saved)
	return saved, nil
}

// Delete permanently removes a reminder. Deleting a missing id returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	st := s.store()
	start := time.Now()
	err := st.Delete(ctx, id)
	metrics.ObserveOperation("delete", st.Name(), start, err)
	if err != nil {
		return fmt.Errorf("deleting reminder %s: %w", id, err)
	}
	if s.scheduler != nil {
		s.scheduler.Cancel(id)
	}
	return nil
}

// ListByOwner returns every reminder of owner matching f, soonest first.
func (s *Service) ListByOwner(ctx context.Context, owner string, f Filter) ([]Reminder, error) {
	if owner == "" {
		return nil, &ValidationError{Problems: []string{"userId is required"}}
	}
	return s.list(ctx, "list", Query{Owner: owner, Active: f.Active, Category: f.Category})
}

// ListUpcoming returns the active reminders of owner still due between now
// and the end of now's day.
func (s *Service) ListUpcoming(ctx context.Context, owner string, now time.Time) ([]Reminder, error) {
	if owner == "" {
		return nil, &ValidationError{Problems: []string{"userId is required"}}
	}
	now = now.In(s.loc)
	return s.list(ctx, "upcoming", Query{Owner: owner, Active: Bool(true), From: now, To: EndOfDay(now)})
}

// ListDue returns the active reminders of every owner due within [from, to].
func (s *Service) ListDue(ctx context.Context, from, to time.Time) ([]Reminder, error) {
	return s.list(ctx, "due", Query{Active: Bool(true), From: from, To: to})
}

func (s *Service) list(ctx context.Context, op string, q Query) ([]Reminder, error) {
	st := s.store()
	start := time.Now()
	list, err := st.List(ctx, q)
	metrics.ObserveOperation(op, st.Name(), start, err)
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	if list == nil {
		list = []Reminder{}
	}
	for i := range list {
		s.localize(&list[i])
	}
	return list, nil
}

func (s *Service) afterWrite(r *Reminder) {
	s.localize(r)
	if s.scheduler == nil {
		return
	}
	if r.State() == StateActive {
		s.scheduler.Schedule(*r)
	} else {
		s.scheduler.Cancel(r.ID)
	}
}

func (s *Service) localize(r *Reminder) {
	r.NextOccurrence = r.NextOccurrence.In(s.loc)
	r.CreatedAt = r.CreatedAt.In(s.loc)
	r.UpdatedAt = r.UpdatedAt.In(s.loc)
}

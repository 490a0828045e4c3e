package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness/pkg/reminders"
)

var base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	fired []reminders.Reminder
}

func (r *recorder) fire(rem reminders.Reminder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, rem)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.fired))
	for _, rem := range r.fired {
		out = append(out, rem.ID)
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func newRegistry(t *testing.T) (*Registry, *clock.Mock, *recorder) {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(base)
	rec := &recorder{}
	g := NewRegistry(rec.fire, WithClock(clk))
	t.Cleanup(g.Stop)
	return g, clk, rec
}

func reminder(id string, due time.Time) reminders.Reminder {
	r := reminders.Reminder{
		ID:             id,
		Owner:          "u1",
		Text:           "reminder " + id,
		TimeOfDay:      due.Format("15:04"),
		Repeat:         reminders.RepeatNone,
		NextOccurrence: due,
	}
	r.SetState(reminders.StateActive)
	return r
}

func TestRegistryFiresAtDueTime(t *testing.T) {
	g, clk, rec := newRegistry(t)

	g.Schedule(reminder("a", base.Add(time.Hour)))
	require.Equal(t, 1, g.Len())

	clk.Add(59 * time.Minute)
	assert.Never(t, func() bool { return rec.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clk.Add(time.Minute)
	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, rec.ids())
	assert.Equal(t, 0, g.Len())
}

func TestRegistryRearmsOnNewDueTime(t *testing.T) {
	g, clk, rec := newRegistry(t)

	g.Schedule(reminder("a", base.Add(time.Hour)))
	g.Schedule(reminder("a", base.Add(2*time.Hour)))
	assert.Equal(t, 1, g.Len())

	clk.Add(time.Hour)
	assert.Never(t, func() bool { return rec.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clk.Add(time.Hour)
	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRegistryKeepsLatestReminderData(t *testing.T) {
	g, clk, rec := newRegistry(t)

	first := reminder("a", base.Add(time.Hour))
	g.Schedule(first)
	renamed := first
	renamed.Text = "renamed"
	g.Schedule(renamed)

	clk.Add(time.Hour)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "renamed", rec.fired[0].Text)
}

func TestRegistryCancel(t *testing.T) {
	g, clk, rec := newRegistry(t)

	g.Schedule(reminder("a", base.Add(time.Hour)))
	g.Cancel("a")
	g.Cancel("missing")
	assert.Equal(t, 0, g.Len())

	clk.Add(2 * time.Hour)
	assert.Never(t, func() bool { return rec.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRegistrySkipsInactiveAndPastDue(t *testing.T) {
	g, _, _ := newRegistry(t)

	g.Schedule(reminder("a", base.Add(time.Hour)))
	require.Equal(t, 1, g.Len())

	done := reminder("a", base.Add(time.Hour))
	done.SetState(reminders.StateCompleted)
	g.Schedule(done)
	assert.Equal(t, 0, g.Len(), "completed reminder cancels its timer")

	off := reminder("b", base.Add(time.Hour))
	off.SetState(reminders.StateInactive)
	g.Schedule(off)
	assert.Equal(t, 0, g.Len())

	g.Schedule(reminder("c", base.Add(-time.Minute)))
	assert.Equal(t, 0, g.Len())
}

func TestRegistryDoesNotFireTwice(t *testing.T) {
	g, clk, rec := newRegistry(t)

	r := reminder("a", base.Add(time.Hour))
	g.Schedule(r)
	clk.Add(time.Hour)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	// Listed again before the user completed it.
	g.Schedule(r)
	assert.Equal(t, 0, g.Len())

	// Completing a repeating reminder moves it to a new due time.
	g.Schedule(reminder("a", base.Add(25*time.Hour)))
	assert.Equal(t, 1, g.Len())
}

func TestRegistrySync(t *testing.T) {
	g, _, _ := newRegistry(t)

	g.Schedule(reminder("stale", base.Add(time.Hour)))
	g.Sync([]reminders.Reminder{
		reminder("a", base.Add(time.Hour)),
		reminder("b", base.Add(2*time.Hour)),
	})
	assert.Equal(t, 2, g.Len())

	g.Sync(nil)
	assert.Equal(t, 0, g.Len())
}

func TestRegistryStop(t *testing.T) {
	g, clk, rec := newRegistry(t)

	g.Schedule(reminder("a", base.Add(time.Hour)))
	g.Stop()
	assert.Equal(t, 0, g.Len())

	g.Schedule(reminder("b", base.Add(time.Hour)))
	assert.Equal(t, 0, g.Len())

	clk.Add(2 * time.Hour)
	assert.Never(t, func() bool { return rec.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

// Package storagetest is a conformance suite for reminders.Store
// implementations. Every backend runs it so they stay interchangeable.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness/pkg/reminders"
)

// Factory returns an empty store that takes its timestamps from clk.
type Factory func(t *testing.T, clk clock.Clock) reminders.Store

// MissingID resolves to nothing in any backend, and is a well-formed ObjectID.
const MissingID = "507f1f77bcf86cd799439011"

// Base is the fixed instant suites start their mock clock at.
var Base = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

// NewReminder returns an active reminder owned by owner, due at next.
func NewReminder(owner, text string, next time.Time) *reminders.Reminder {
	r := &reminders.Reminder{
		Owner:          owner,
		Text:           text,
		TimeOfDay:      next.Format("15:04"),
		Priority:       reminders.PriorityMedium,
		Repeat:         reminders.RepeatNone,
		Category:       reminders.DefaultCategory,
		NextOccurrence: next,
	}
	r.SetState(reminders.StateActive)
	return r
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	setup := func(t *testing.T) (reminders.Store, *clock.Mock) {
		clk := clock.NewMock()
		clk.Set(Base)
		return newStore(t, clk), clk
	}
	ctx := context.Background()

	t.Run("CreateAssignsIDAndTimestamps", func(t *testing.T) {
		st, _ := setup(t)

		created, err := st.Create(ctx, NewReminder("u1", "Drink water", Base.Add(time.Hour)))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.True(t, created.CreatedAt.Equal(Base))
		assert.True(t, created.UpdatedAt.Equal(Base))

		got, err := st.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "u1", got.Owner)
		assert.Equal(t, "Drink water", got.Text)
		assert.Equal(t, "10:00", got.TimeOfDay)
		assert.Equal(t, reminders.PriorityMedium, got.Priority)
		assert.Equal(t, reminders.RepeatNone, got.Repeat)
		assert.Equal(t, reminders.DefaultCategory, got.Category)
		assert.True(t, got.NextOccurrence.Equal(Base.Add(time.Hour)))
		assert.Equal(t, reminders.StateActive, got.State())
	})

	t.Run("IDsAreUnique", func(t *testing.T) {
		st, _ := setup(t)

		a, err := st.Create(ctx, NewReminder("u1", "a", Base))
		require.NoError(t, err)
		b, err := st.Create(ctx, NewReminder("u1", "b", Base))
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("GetMissing", func(t *testing.T) {
		st, _ := setup(t)

		_, err := st.Get(ctx, MissingID)
		assert.ErrorIs(t, err, reminders.ErrNotFound)
		_, err = st.Get(ctx, "not-an-id")
		assert.ErrorIs(t, err, reminders.ErrNotFound)
	})

	t.Run("UpdateAppliesPatch", func(t *testing.T) {
		st, clk := setup(t)

		created, err := st.Create(ctx, NewReminder("u1", "Stretch", Base.Add(time.Hour)))
		require.NoError(t, err)
		clk.Add(time.Minute)

		text := "Stretch shoulders"
		category := "body"
		updated, err := st.Update(ctx, created.ID, reminders.Patch{
			Text:     &text,
			Category: &category,
			Active:   reminders.Bool(false),
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, text, updated.Text)
		assert.Equal(t, category, updated.Category)
		assert.False(t, updated.Active)
		assert.Equal(t, "10:00", updated.TimeOfDay)
		assert.True(t, updated.CreatedAt.Equal(Base))
		assert.True(t, updated.UpdatedAt.Equal(Base.Add(time.Minute)))

		got, err := st.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, text, got.Text)
		assert.False(t, got.Active)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		st, _ := setup(t)

		text := "x"
		_, err := st.Update(ctx, MissingID, reminders.Patch{Text: &text})
		assert.ErrorIs(t, err, reminders.ErrNotFound)
	})

	t.Run("ReplaceKeepsCreatedAt", func(t *testing.T) {
		st, clk := setup(t)

		created, err := st.Create(ctx, NewReminder("u1", "Walk", Base.Add(time.Hour)))
		require.NoError(t, err)
		clk.Add(time.Hour)

		next := *created
		next.NextOccurrence = created.NextOccurrence.AddDate(0, 0, 7)
		next.SetState(reminders.StateCompleted)
		next.CreatedAt = time.Time{}

		saved, err := st.Replace(ctx, &next)
		require.NoError(t, err)
		assert.True(t, saved.CreatedAt.Equal(Base))
		assert.True(t, saved.UpdatedAt.Equal(Base.Add(time.Hour)))

		got, err := st.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, reminders.StateCompleted, got.State())
		assert.True(t, got.NextOccurrence.Equal(Base.Add(time.Hour).AddDate(0, 0, 7)))
	})

	t.Run("ReplaceMissing", func(t *testing.T) {
		st, _ := setup(t)

		r := NewReminder("u1", "ghost", Base)
		r.ID = MissingID
		_, err := st.Replace(ctx, r)
		assert.ErrorIs(t, err, reminders.ErrNotFound)
	})

	t.Run("DeleteIsPermanent", func(t *testing.T) {
		st, _ := setup(t)

		created, err := st.Create(ctx, NewReminder("u1", "Breathe", Base))
		require.NoError(t, err)

		require.NoError(t, st.Delete(ctx, created.ID))
		_, err = st.Get(ctx, created.ID)
		assert.ErrorIs(t, err, reminders.ErrNotFound)

		assert.ErrorIs(t, st.Delete(ctx, created.ID), reminders.ErrNotFound)
		assert.ErrorIs(t, st.Delete(ctx, MissingID), reminders.ErrNotFound)
	})

	t.Run("ListFiltersAndOrders", func(t *testing.T) {
		st, _ := setup(t)

		late := NewReminder("u1", "late", Base.Add(3*time.Hour))
		early := NewReminder("u1", "early", Base.Add(time.Hour))
		done := NewReminder("u1", "done", Base.Add(2*time.Hour))
		done.SetState(reminders.StateCompleted)
		work := NewReminder("u1", "work", Base.Add(4*time.Hour))
		work.Category = "study"
		other := NewReminder("u2", "other", Base.Add(30*time.Minute))
		for _, r := range []*reminders.Reminder{late, early, done, work, other} {
			_, err := st.Create(ctx, r)
			require.NoError(t, err)
		}

		all, err := st.List(ctx, reminders.Query{Owner: "u1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "done", "late", "work"}, texts(all))

		active, err := st.List(ctx, reminders.Query{Owner: "u1", Active: reminders.Bool(true)})
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "late", "work"}, texts(active))

		inactive, err := st.List(ctx, reminders.Query{Owner: "u1", Active: reminders.Bool(false)})
		require.NoError(t, err)
		assert.Equal(t, []string{"done"}, texts(inactive))

		study, err := st.List(ctx, reminders.Query{Owner: "u1", Category: "study"})
		require.NoError(t, err)
		assert.Equal(t, []string{"work"}, texts(study))

		none, err := st.List(ctx, reminders.Query{Owner: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ListWindowIsInclusive", func(t *testing.T) {
		st, _ := setup(t)

		for i, text := range []string{"before", "from", "inside", "to", "after"} {
			_, err := st.Create(ctx, NewReminder("u1", text, Base.Add(time.Duration(i)*time.Hour)))
			require.NoError(t, err)
		}

		got, err := st.List(ctx, reminders.Query{
			Owner: "u1",
			From:  Base.Add(time.Hour),
			To:    Base.Add(3 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"from", "inside", "to"}, texts(got))
	})

	t.Run("ListAcrossOwners", func(t *testing.T) {
		st, _ := setup(t)

		_, err := st.Create(ctx, NewReminder("u2", "second", Base.Add(2*time.Hour)))
		require.NoError(t, err)
		_, err = st.Create(ctx, NewReminder("u1", "first", Base.Add(time.Hour)))
		require.NoError(t, err)

		got, err := st.List(ctx, reminders.Query{Active: reminders.Bool(true)})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, texts(got))
	})
}

func texts(list []reminders.Reminder) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.Text)
	}
	return out
}

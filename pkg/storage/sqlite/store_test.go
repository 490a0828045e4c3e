package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness/pkg/reminders"
	"wellness/pkg/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clk clock.Clock) reminders.Store {
		st, err := Open(filepath.Join(t.TempDir(), "reminders.db"), WithClock(clk))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
		return st
	})
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	created, err := st.Create(ctx, storagetest.NewReminder("u1", "Journal", storagetest.Base))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Journal", got.Text)
	assert.True(t, got.NextOccurrence.Equal(storagetest.Base))
}

func TestWhereClause(t *testing.T) {
	where, args := whereClause(reminders.Query{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = whereClause(reminders.Query{
		Owner:    "u1",
		Active:   reminders.Bool(true),
		Category: "study",
		From:     storagetest.Base,
	})
	assert.Equal(t, " WHERE owner = ? AND active = ? AND category = ? AND next_occurrence >= ?", where)
	assert.Equal(t, []any{"u1", true, "study", storagetest.Base.UnixMilli()}, args)
}

func TestConnectionString(t *testing.T) {
	cs := connectionString("data.db")
	assert.Contains(t, cs, "file:data.db?")
	assert.Contains(t, cs, "_txlock=immediate")
	assert.Contains(t, cs, "journal_mode%28WAL%29")
}

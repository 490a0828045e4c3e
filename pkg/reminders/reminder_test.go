package reminders

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState(t *testing.T) {
	tests := []struct {
		active, completed bool
		want              State
	}{
		{true, false, StateActive},
		{false, true, StateCompleted},
		{false, false, StateInactive},
		{true, true, StateCompleted},
	}
	for _, tt := range tests {
		r := Reminder{Active: tt.active, Completed: tt.completed}
		assert.Equal(t, tt.want, r.State(), "active=%v completed=%v", tt.active, tt.completed)
	}
}

func TestSetState(t *testing.T) {
	var r Reminder
	for _, s := range []State{StateActive, StateCompleted, StateInactive} {
		r.SetState(s)
		assert.Equal(t, s, r.State())
	}
}

func TestCompletionState(t *testing.T) {
	tests := []struct {
		from   State
		repeat Repeat
		want   State
	}{
		{StateActive, RepeatNone, StateCompleted},
		{StateCompleted, RepeatNone, StateCompleted},
		{StateInactive, RepeatNone, StateCompleted},
		{StateActive, "", StateCompleted},
		{StateActive, RepeatDaily, StateActive},
		{StateActive, RepeatWeekly, StateActive},
		{StateCompleted, RepeatMonthly, StateActive},
		{StateInactive, RepeatDaily, StateInactive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompletionState(tt.from, tt.repeat), "%s/%s", tt.from, tt.repeat)
	}
}

func TestReminderWireNames(t *testing.T) {
	r := Reminder{
		ID:             "1",
		Owner:          "u1",
		Text:           "Drink water",
		TimeOfDay:      "10:00",
		Priority:       PriorityMedium,
		Repeat:         RepeatNone,
		Category:       DefaultCategory,
		NextOccurrence: time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC),
		Active:         true,
	}
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "1", m["_id"])
	assert.Equal(t, "u1", m["user"])
	assert.Equal(t, "10:00", m["time"])
	assert.Equal(t, "2024-03-04T10:00:00Z", m["nextOccurrence"])
	assert.Equal(t, true, m["active"])
	assert.Equal(t, false, m["completed"])
}

func TestPatchDecodeAndApply(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"active":false,"category":"study"}`), &p))
	assert.False(t, p.IsEmpty())
	assert.Nil(t, p.Text)

	r := Reminder{Text: "Read", Category: DefaultCategory, Active: true}
	p.Apply(&r)
	assert.Equal(t, "Read", r.Text)
	assert.Equal(t, "study", r.Category)
	assert.False(t, r.Active)

	assert.True(t, Patch{}.IsEmpty())
}

func TestQueryMatches(t *testing.T) {
	at := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	r := Reminder{Owner: "u1", Category: "study", Active: true, NextOccurrence: at}

	assert.True(t, Query{}.Matches(r))
	assert.True(t, Query{Owner: "u1", Active: Bool(true), Category: "study"}.Matches(r))
	assert.False(t, Query{Owner: "u2"}.Matches(r))
	assert.False(t, Query{Active: Bool(false)}.Matches(r))
	assert.False(t, Query{Category: "general"}.Matches(r))
	assert.True(t, Query{From: at, To: at}.Matches(r))
	assert.False(t, Query{From: at.Add(time.Millisecond)}.Matches(r))
	assert.False(t, Query{To: at.Add(-time.Millisecond)}.Matches(r))
}

func TestSort(t *testing.T) {
	at := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	list := []Reminder{
		{ID: "c", NextOccurrence: at.Add(time.Hour)},
		{ID: "b", NextOccurrence: at, CreatedAt: at},
		{ID: "a", NextOccurrence: at, CreatedAt: at},
		{ID: "d", NextOccurrence: at, CreatedAt: at.Add(-time.Hour)},
	}
	Sort(list)

	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}

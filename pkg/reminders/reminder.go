package reminders

import (
	"sort"
	"time"
)

// Priority of a reminder.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Repeat is the rule that advances a reminder after it fires.
type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

// DefaultCategory is assigned when a reminder is created without a category.
const DefaultCategory = "general"

// State is the lifecycle state of a reminder.
// It is persisted as the active/completed boolean pair.
type State string

const (
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateInactive  State = "inactive"
)

type Reminder struct {
	ID             string    `json:"_id"`
	Owner          string    `json:"user"`
	Text           string    `json:"text"`
	TimeOfDay      string    `json:"time"`
	Priority       Priority  `json:"priority"`
	Repeat         Repeat    `json:"repeat"`
	Category       string    `json:"category"`
	NextOccurrence time.Time `json:"nextOccurrence"`
	Active         bool      `json:"active"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// State returns the lifecycle state encoded by the Active and Completed flags.
// A record that is both active and completed is reported as completed.
func (r Reminder) State() State {
	switch {
	case r.Completed:
		return StateCompleted
	case r.Active:
		return StateActive
	default:
		return StateInactive
	}
}

// SetState writes the flag pair for s.
func (r *Reminder) SetState(s State) {
	switch s {
	case StateActive:
		r.Active, r.Completed = true, false
	case StateCompleted:
		r.Active, r.Completed = false, true
	default:
		r.Active, r.Completed = false, false
	}
}

// CompletionState returns the state a reminder moves to when it is completed.
func CompletionState(from State, repeat Repeat) State {
	if repeat == RepeatNone || repeat == "" {
		return StateCompleted
	}
	if from == StateInactive {
		return StateInactive
	}
	return StateActive
}

// Input is the payload used to create a reminder.
type Input struct {
	Owner          string     `json:"userId" validate:"required"`
	Text           string     `json:"text" validate:"required"`
	TimeOfDay      string     `json:"time" validate:"required,timeofday"`
	Priority       Priority   `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Repeat         Repeat     `json:"repeat,omitempty" validate:"omitempty,oneof=none daily weekly monthly"`
	Category       string     `json:"category,omitempty"`
	NextOccurrence *time.Time `json:"nextOccurrence,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Text           *string    `json:"text,omitempty"`
	TimeOfDay      *string    `json:"time,omitempty" validate:"omitempty,timeofday"`
	Priority       *Priority  `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Repeat         *Repeat    `json:"repeat,omitempty" validate:"omitempty,oneof=none daily weekly monthly"`
	Category       *string    `json:"category,omitempty"`
	NextOccurrence *time.Time `json:"nextOccurrence,omitempty"`
	Active         *bool      `json:"active,omitempty"`
	Completed      *bool      `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.TimeOfDay == nil && p.Priority == nil && p.Repeat == nil &&
		p.Category == nil && p.NextOccurrence == nil && p.Active == nil && p.Completed == nil
}

// Apply copies the set fields of the patch onto r.
func (p Patch) Apply(r *Reminder) {
	if p.Text != nil {
		r.Text = *p.Text
	}
	if p.TimeOfDay != nil {
		r.TimeOfDay = *p.TimeOfDay
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.Repeat != nil {
		r.Repeat = *p.Repeat
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.NextOccurrence != nil {
		r.NextOccurrence = *p.NextOccurrence
	}
	if p.Active != nil {
		r.Active = *p.Active
	}
	if p.Completed != nil {
		r.Completed = *p.Completed
	}
}

// Filter narrows a listing by owner.
type Filter struct {
	Active   *bool
	Category string
}

// Query is the listing request every Store answers.
// Zero values mean "no constraint"; From and To bound NextOccurrence inclusively.
type Query struct {
	Owner    string
	Active   *bool
	Category string
	From     time.Time
	To       time.Time
}

// Matches reports whether r satisfies the query.
func (q Query) Matches(r Reminder) bool {
	if q.Owner != "" && r.Owner != q.Owner {
		return false
	}
	if q.Active != nil && r.Active != *q.Active {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if !q.From.IsZero() && r.NextOccurrence.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && r.NextOccurrence.After(q.To) {
		return false
	}
	return true
}

// Sort orders reminders by next occurrence, then creation time, then id.
func Sort(list []Reminder) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.NextOccurrence.Equal(b.NextOccurrence) {
			return a.NextOccurrence.Before(b.NextOccurrence)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Bool returns a pointer to b, for filters and patches.
func Bool(b bool) *bool {
	return &b
}

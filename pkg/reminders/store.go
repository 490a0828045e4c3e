package reminders

import "context"

// Store persists reminders. Every implementation must behave identically:
// ids are assigned by Create, CreatedAt/UpdatedAt are maintained by the store,
// a missing id yields ErrNotFound from Get, Update, Replace and Delete, and
// List returns matches ordered as Sort does.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Create(ctx context.Context, r *Reminder) (*Reminder, error)
	Get(ctx context.Context, id string) (*Reminder, error)
	// Update applies a patch as one write and returns the updated record.
	Update(ctx context.Context, id string, p Patch) (*Reminder, error)
	// Replace overwrites every mutable field of the record with r.ID.
	Replace(ctx context.Context, r *Reminder) (*Reminder, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) ([]Reminder, error)
}

// Prober is implemented by stores whose connection can drop.
type Prober interface {
	Connected() bool
}

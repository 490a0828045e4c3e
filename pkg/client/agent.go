package client

import (
	"context"
	"time"

	"wellness/pkg/notify"
	"wellness/pkg/reminders"
)

// DefaultWatchInterval is how often an Agent refreshes today's reminders.
const DefaultWatchInterval = time.Minute

// Agent keeps a local timer for each of an owner's reminders due today and
// invokes a callback when one falls due.
type Agent struct {
	client   *Client
	owner    string
	registry *notify.Registry
	poller   *notify.Poller
}

// NewAgent returns an Agent polling c every interval on behalf of owner.
func NewAgent(c *Client, owner string, interval time.Duration, fire notify.Func, opts ...notify.Option) *Agent {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	a := &Agent{
		client:   c,
		owner:    owner,
		registry: notify.NewRegistry(fire, opts...),
	}
	a.poller = notify.NewPoller(a.upcoming, a.registry, interval, opts...)
	return a
}

// Run blocks until ctx is canceled, then disarms every timer.
func (a *Agent) Run(ctx context.Context) {
	defer a.registry.Stop()
	a.poller.Run(ctx)
}

// Refresh polls once outside the regular interval.
func (a *Agent) Refresh(ctx context.Context) error {
	return a.poller.Poll(ctx)
}

// Pending returns the number of armed timers.
func (a *Agent) Pending() int {
	return a.registry.Len()
}

// Complete completes id and re-arms or cancels its timer from the result.
func (a *Agent) Complete(ctx context.Context, id string) (*reminders.Reminder, error) {
	r, err := a.client.Complete(ctx, id)
	if err != nil {
		return nil, err
	}
	a.registry.Schedule(*r)
	return r, nil
}

// Delete deletes id and cancels its timer, even when the server no longer
// knows the id.
func (a *Agent) Delete(ctx context.Context, id string) error {
	err := a.client.Delete(ctx, id)
	a.registry.Cancel(id)
	return err
}

func (a *Agent) upcoming(ctx context.Context) ([]reminders.Reminder, error) {
	return a.client.Upcoming(ctx, a.owner)
}

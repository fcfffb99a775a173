package qobject

import "context"

// Observer receives instrumentation events from a Container. Implementations
// must be cheap; they run inline with reads and writes.
type Observer interface {
	// HandleCreated is called once per new Handle.
	HandleCreated(kind Kind, flags Flags)

	// Subscribed is called for every recorded subscription. whole is set for
	// whole-target subscriptions, which carry no key.
	Subscribed(ctx context.Context, kind Kind, key string, whole bool)

	// Notified is called after a write fanned out to n Subscribers. whole is
	// set for whole-target notifications.
	Notified(ctx context.Context, key string, whole bool, n int)

	// PhaseWrite is called when a write happens during PhaseRender.
	PhaseWrite(ctx context.Context, key string)

	// Rejected is called for every error an operation returns.
	Rejected(ctx context.Context, err error)
}

// NopObserver implements Observer with no-ops. Embed it to implement only
// the events you need.
type NopObserver struct{}

func (NopObserver) HandleCreated(Kind, Flags)                      {}
func (NopObserver) Subscribed(context.Context, Kind, string, bool) {}
func (NopObserver) Notified(context.Context, string, bool, int)    {}
func (NopObserver) PhaseWrite(context.Context, string)             {}
func (NopObserver) Rejected(context.Context, error)                {}

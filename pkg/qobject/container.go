package qobject

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"
)

// Container owns the identity registry and the subscription store for one
// consumer, typically one session. It is not safe for concurrent use.
type Container struct {
	handles    map[unsafe.Pointer]*Handle
	subs       *SubscriptionManager
	invocation Invocation
	notify     NotifyFunc
	dev        bool
	logger     *slog.Logger
	observers  []Observer
}

// Option configures a Container.
type Option func(*Container)

// WithNotify sets the callback invoked for every notified Subscriber.
func WithNotify(fn NotifyFunc) Option {
	return func(c *Container) {
		c.notify = fn
	}
}

// WithInvocation sets the source of the active Subscriber and phase.
// Without one, every read is untracked.
func WithInvocation(inv Invocation) Option {
	return func(c *Container) {
		c.invocation = inv
	}
}

// WithDevMode enables the verification checks: serializability of written
// and wrapped values, render-phase write warnings and the AlreadyWrapped
// invariant.
func WithDevMode(enabled bool) Option {
	return func(c *Container) {
		c.dev = enabled
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// WithObserver adds an instrumentation observer. It may be given more than
// once.
func WithObserver(o Observer) Option {
	return func(c *Container) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// NewContainer creates an empty Container.
func NewContainer(opts ...Option) *Container {
	c := &Container{
		handles: make(map[unsafe.Pointer]*Handle),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.subs = NewSubscriptionManager(c.notify)
	return c
}

// GetOrCreate returns the Handle for target, creating it on first use.
// target must be a non-nil map[string]any or *[]any. Frozen targets always
// get FlagImmutable.
func (c *Container) GetOrCreate(target any, flags Flags) (*Handle, error) {
	if _, ok := target.(*Handle); ok {
		if c.dev {
			return nil, c.reject(errAlreadyWrapped(target))
		}
		return nil, c.reject(errUnsupportedTarget(target))
	}
	if _, id, ok := targetIdentity(target); ok {
		if h, ok := c.handles[id]; ok {
			return h, nil
		}
	}
	return c.create(target, flags, nil)
}

// Create builds a Handle whose table is seeded with subs. It fails with
// ErrAlreadyWrapped if target already has a Handle.
func (c *Container) Create(target any, flags Flags, subs SubscriberMap) (*Handle, error) {
	if _, ok := target.(*Handle); ok {
		return nil, c.reject(errAlreadyWrapped(target))
	}
	if _, id, ok := targetIdentity(target); ok {
		if _, exists := c.handles[id]; exists {
			return nil, c.reject(errAlreadyWrapped(target))
		}
	}
	return c.create(target, flags, subs)
}

func (c *Container) create(target any, flags Flags, subs SubscriberMap) (*Handle, error) {
	sh, id, err := newShape(target)
	if err != nil {
		return nil, c.reject(err)
	}
	if IsFrozen(target) {
		flags |= FlagImmutable
	}
	local, err := c.subs.GetLocal(target, subs)
	if err != nil {
		return nil, c.reject(err)
	}

	h := &Handle{
		c:      c,
		target: target,
		shape:  sh,
		local:  local,
		flags:  flags,
	}
	c.handles[id] = h

	c.logger.Debug("qobject: handle created", "kind", sh.kind(), "flags", flags)
	for _, o := range c.observers {
		o.HandleCreated(sh.kind(), flags)
	}
	return h, nil
}

// Lookup returns the Handle registered for target, if any.
func (c *Container) Lookup(target any) (*Handle, bool) {
	_, id, ok := targetIdentity(Unwrap(target))
	if !ok {
		return nil, false
	}
	h, ok := c.handles[id]
	return h, ok
}

// Dispose forgets target (or the target of a Handle): its registry slot,
// its subscription table and the reverse-index entries pointing at it.
// Nested targets are not disposed. It reports whether anything was removed.
func (c *Container) Dispose(target any) bool {
	_, id, ok := targetIdentity(Unwrap(target))
	if !ok {
		return false
	}
	_, registered := c.handles[id]
	_, hasTable := c.subs.objToSubs[id]
	delete(c.handles, id)
	c.subs.drop(id)
	return registered || hasTable
}

// ClearSubscriptions removes sub from every table. Call it when sub is
// disposed; otherwise the store keeps sub alive.
func (c *Container) ClearSubscriptions(sub Subscriber) {
	n := c.subs.ClearSub(sub)
	if n > 0 {
		c.logger.Debug("qobject: subscriptions cleared", "tables", n)
	}
}

// Subscriptions returns the subscription store.
func (c *Container) Subscriptions() *SubscriptionManager {
	return c.subs
}

// Len returns the number of registered Handles.
func (c *Container) Len() int {
	return len(c.handles)
}

// DevMode reports whether verification checks are enabled.
func (c *Container) DevMode() bool {
	return c.dev
}

func (c *Container) activeSubscriber() Subscriber {
	if c.invocation == nil {
		return nil
	}
	return c.invocation.ActiveSubscriber()
}

func (c *Container) activePhase() Phase {
	if c.invocation == nil {
		return PhaseNone
	}
	return c.invocation.ActivePhase()
}

func (c *Container) ctx() context.Context {
	if c.invocation == nil {
		return context.Background()
	}
	if ctx := c.invocation.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// reject reports err to the observers and returns it.
func (c *Container) reject(err error) error {
	if len(c.observers) == 0 {
		return err
	}
	ctx := c.ctx()
	for _, o := range c.observers {
		o.Rejected(ctx, err)
	}
	return err
}

// warnPhaseWrite logs a write that happened while the consumer was
// rendering. The write still goes through.
func (c *Container) warnPhaseWrite(key string) {
	c.logger.Warn("qobject: state mutation during render; move it into an event handler or effect",
		"code", "Q005",
		"key", key,
		"subscriber", fmt.Sprint(c.activeSubscriber()),
	)
	ctx := c.ctx()
	for _, o := range c.observers {
		o.PhaseWrite(ctx, key)
	}
}

// Unwrap returns the target of a Handle. Any other value is returned
// unchanged. Only one level is unwrapped.
func Unwrap(v any) any {
	if h, ok := v.(*Handle); ok && h != nil {
		return h.target
	}
	return v
}

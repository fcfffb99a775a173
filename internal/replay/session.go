package replay

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/pkg/observe"
	"github.com/vango-dev/qstate/pkg/qobject"
)

// Event kinds.
const (
	EventRead   = "read"
	EventKeys   = "keys"
	EventNotify = "notify"
	EventWarn   = "warn"
	EventError  = "error"
)

// Event is one entry of the log produced by Apply.
type Event struct {
	// Seq is the position of the event across the session.
	Seq int `json:"seq"`

	// Op is the index of the operation within its script.
	Op int `json:"op"`

	// Kind is one of the Event* constants.
	Kind string `json:"kind"`

	// Subscriber names the subscriber read as, notified or warned about.
	Subscriber string `json:"subscriber,omitempty"`

	// Path is the path of the operation.
	Path string `json:"path,omitempty"`

	// Value is the snapshot observed by read and keys events.
	Value any `json:"value,omitempty"`

	// Code is the error code of warn and error events.
	Code string `json:"code,omitempty"`

	// Message describes warn and error events.
	Message string `json:"message,omitempty"`

	diag *errors.QError
}

// Diagnostic returns warn and error events as a QError for terminal
// rendering. Other kinds return nil.
func (e Event) Diagnostic() *errors.QError {
	if e.Kind != EventWarn && e.Kind != EventError {
		return nil
	}
	if e.diag != nil {
		return e.diag
	}
	return &errors.QError{Code: e.Code, Message: e.Message}
}

func (e Event) String() string {
	switch e.Kind {
	case EventRead, EventKeys:
		return fmt.Sprintf("#%d %-6s %s %s = %v", e.Op, e.Kind, e.Subscriber, e.Path, e.Value)
	case EventNotify:
		return fmt.Sprintf("#%d %-6s %s (%s)", e.Op, e.Kind, e.Subscriber, e.Path)
	}
	return fmt.Sprintf("#%d %-6s %s: %s", e.Op, e.Kind, e.Code, e.Message)
}

// Subscriber is a named unit of work in a script.
type Subscriber struct {
	Name string
}

func (s *Subscriber) String() string { return s.Name }

// Session replays scripts against one state tree. A Session is not safe for
// concurrent use.
type Session struct {
	config    sessionConfig
	container *qobject.Container
	stack     *qobject.Stack
	root      *qobject.Handle
	subs      map[string]*Subscriber

	// per-operation state read by the notify callback and observer
	events []Event
	seq    int
	opIdx  int
	opPath string
}

type sessionConfig struct {
	maxOps    int
	dev       bool
	logger    *slog.Logger
	tracer    *observe.Tracer
	observers []qobject.Observer
}

// Option configures a Session.
type Option func(*sessionConfig)

// WithMaxOps limits the number of operations per script. Zero disables the
// limit.
func WithMaxOps(n int) Option {
	return func(c *sessionConfig) {
		c.maxOps = n
	}
}

// WithDevMode enables the container's development checks.
func WithDevMode(enabled bool) Option {
	return func(c *sessionConfig) {
		c.dev = enabled
	}
}

// WithLogger sets the logger for the session and its container.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithTracer starts one span per applied script.
func WithTracer(t *observe.Tracer) Option {
	return func(c *sessionConfig) {
		c.tracer = t
	}
}

// WithObserver registers an additional container observer.
func WithObserver(o qobject.Observer) Option {
	return func(c *sessionConfig) {
		c.observers = append(c.observers, o)
	}
}

// NewSession wraps state, a map[string]any or *[]any, in a recursive root
// handle.
func NewSession(state any, opts ...Option) (*Session, error) {
	config := sessionConfig{dev: true}
	for _, opt := range opts {
		opt(&config)
	}
	if config.logger == nil {
		config.logger = slog.Default()
	}

	s := &Session{
		config: config,
		stack:  qobject.NewStack(),
		subs:   make(map[string]*Subscriber),
	}
	copts := []qobject.Option{
		qobject.WithInvocation(s.stack),
		qobject.WithNotify(s.onChange),
		qobject.WithDevMode(config.dev),
		qobject.WithLogger(config.logger),
		qobject.WithObserver(sessionObserver{s: s}),
	}
	if config.tracer != nil {
		copts = append(copts, qobject.WithObserver(config.tracer))
	}
	for _, o := range config.observers {
		copts = append(copts, qobject.WithObserver(o))
	}
	s.container = qobject.NewContainer(copts...)

	root, err := s.container.GetOrCreate(state, qobject.FlagRecursive)
	if err != nil {
		return nil, err
	}
	s.root = root
	return s, nil
}

// Container returns the session's container.
func (s *Session) Container() *qobject.Container { return s.container }

// Root returns the root handle.
func (s *Session) Root() *qobject.Handle { return s.root }

// Snapshot returns a plain copy of the current state.
func (s *Session) Snapshot() any {
	return qobject.Snapshot(s.root)
}

// Subscriber returns the named subscriber, creating it on first use.
func (s *Session) Subscriber(name string) *Subscriber {
	if name == "" {
		return nil
	}
	sub, ok := s.subs[name]
	if !ok {
		sub = &Subscriber{Name: name}
		s.subs[name] = sub
	}
	return sub
}

// Participation reports how many subscription tables the named subscriber
// appears in.
func (s *Session) Participation(name string) int {
	sub, ok := s.subs[name]
	if !ok {
		return 0
	}
	return s.container.Subscriptions().Participation(sub)
}

// Apply runs ops in order and returns the events they produced. Operations
// the tracking layer rejects are logged as error events and do not stop the
// script. The returned error is non-nil only when the script as a whole is
// rejected.
func (s *Session) Apply(ctx context.Context, ops []Op) ([]Event, error) {
	if s.config.maxOps > 0 && len(ops) > s.config.maxOps {
		return nil, errors.New("Q201").
			WithDetailf("%d operations, limit is %d", len(ops), s.config.maxOps)
	}
	for i, op := range ops {
		if err := op.validate(); err != nil {
			return nil, err.WithDetailf("op %d: %s", i, err.Detail)
		}
	}

	var span trace.Span
	if s.config.tracer != nil {
		ctx, span = s.config.tracer.Start(ctx, "qstate.replay",
			attribute.Int("qstate.ops", len(ops)),
		)
		defer span.End()
	}

	s.events = nil
	failed := 0
	for i, op := range ops {
		s.opIdx = i
		s.opPath = op.Path
		if err := s.apply(ctx, op); err != nil {
			failed++
			var qe *errors.QError
			if !stderrors.As(err, &qe) {
				qe = errors.Newf(errors.CategoryScript, "%s", err)
			}
			s.emit(Event{
				Kind:       EventError,
				Subscriber: op.Subscriber,
				Path:       op.Path,
				Code:       errors.CodeOf(err),
				Message:    err.Error(),
				diag:       qe,
			})
		}
	}
	if span != nil {
		span.SetAttributes(attribute.Int("qstate.events", len(s.events)))
		if failed > 0 {
			span.SetStatus(codes.Error, fmt.Sprintf("%d operations failed", failed))
		}
	}
	events := s.events
	s.events = nil
	return events, nil
}

func (s *Session) apply(ctx context.Context, op Op) error {
	phase, _ := parsePhase(op.Phase)
	frame := qobject.Frame{Phase: phase, Ctx: ctx}
	if sub := s.Subscriber(op.Subscriber); sub != nil {
		frame.Subscriber = sub
	}

	switch op.Op {
	case OpClear:
		s.container.ClearSubscriptions(s.Subscriber(op.Subscriber))
		return nil
	case OpDispose:
		h, err := s.resolve(frame, op.Path)
		if err != nil {
			return err
		}
		if h == s.root {
			return errors.New("Q202").WithDetail("cannot dispose the root")
		}
		s.container.Dispose(h.Target())
		return nil
	}

	return s.stack.Run(frame, func() error {
		switch op.Op {
		case OpRead:
			parent, key, err := s.resolveParent(op.Path)
			if err != nil {
				return err
			}
			v, err := parent.Get(key)
			if err != nil {
				return err
			}
			s.emit(Event{Kind: EventRead, Subscriber: op.Subscriber, Path: op.Path, Value: qobject.Snapshot(v)})
		case OpKeys:
			h, err := s.resolveHandle(op.Path)
			if err != nil {
				return err
			}
			keys := h.Keys()
			value := make([]any, len(keys))
			for i, k := range keys {
				value[i] = k
			}
			s.emit(Event{Kind: EventKeys, Subscriber: op.Subscriber, Path: op.Path, Value: value})
		case OpWrite:
			parent, key, err := s.resolveParent(op.Path)
			if err != nil {
				return err
			}
			v := op.Value
			if op.Mutable {
				v = qobject.Mutable(v)
			}
			return parent.Set(key, v)
		case OpDelete:
			parent, key, err := s.resolveParent(op.Path)
			if err != nil {
				return err
			}
			return parent.Delete(key)
		case OpAppend:
			h, err := s.resolveHandle(op.Path)
			if err != nil {
				return err
			}
			return h.Append(op.Value)
		}
		return nil
	})
}

// resolve runs resolveHandle inside frame.
func (s *Session) resolve(frame qobject.Frame, path string) (*qobject.Handle, error) {
	var h *qobject.Handle
	err := s.stack.Run(frame, func() error {
		var err error
		h, err = s.resolveHandle(path)
		return err
	})
	return h, err
}

// resolveHandle walks path from the root. Every segment must read as a
// handle.
func (s *Session) resolveHandle(path string) (*qobject.Handle, error) {
	if path == "" {
		return s.root, nil
	}
	parent, key, err := s.resolveParent(path)
	if err != nil {
		return nil, err
	}
	return s.step(parent, key, path)
}

// resolveParent returns the handle holding the final segment of path.
func (s *Session) resolveParent(path string) (*qobject.Handle, string, error) {
	segs, key := splitPath(path)
	h := s.root
	for i, seg := range segs {
		next, err := s.step(h, seg, joinPath(segs[:i+1]))
		if err != nil {
			return nil, "", err
		}
		h = next
	}
	return h, key, nil
}

func (s *Session) step(h *qobject.Handle, seg, at string) (*qobject.Handle, error) {
	v, err := h.Get(seg)
	if err != nil {
		return nil, err
	}
	child, ok := v.(*qobject.Handle)
	if !ok {
		return nil, errors.New("Q203").WithDetailf("%s is %s, not an object", at, describe(v))
	}
	return child, nil
}

func describe(v any) string {
	if v == nil {
		return "missing"
	}
	return fmt.Sprintf("a %T", v)
}

func (s *Session) emit(e Event) {
	s.seq++
	e.Seq = s.seq
	e.Op = s.opIdx
	s.events = append(s.events, e)
}

// onChange is the container's notify callback.
func (s *Session) onChange(sub qobject.Subscriber) {
	name := ""
	if named, ok := sub.(*Subscriber); ok {
		name = named.Name
	}
	s.emit(Event{Kind: EventNotify, Subscriber: name, Path: s.opPath})
}

// sessionObserver turns render-phase writes into warn events.
type sessionObserver struct {
	qobject.NopObserver
	s *Session
}

func (o sessionObserver) PhaseWrite(_ context.Context, key string) {
	name := ""
	if named, ok := o.s.stack.ActiveSubscriber().(*Subscriber); ok {
		name = named.Name
	}
	diag := errors.New("Q005").WithDetailf("key %q", key)
	o.s.emit(Event{
		Kind:       EventWarn,
		Subscriber: name,
		Path:       o.s.opPath,
		Code:       "Q005",
		Message:    fmt.Sprintf("%s (key %q)", diag.Message, key),
		diag:       diag,
	})
}

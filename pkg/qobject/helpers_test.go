package qobject

import (
	"bytes"
	"log/slog"
	"testing"
)

// testSub is a Subscriber used in tests.
type testSub struct {
	name string
}

// recorder collects notifications in order.
type recorder struct {
	calls []Subscriber
}

func (r *recorder) notify(sub Subscriber) {
	r.calls = append(r.calls, sub)
}

func (r *recorder) count(sub Subscriber) int {
	n := 0
	for _, c := range r.calls {
		if c == sub {
			n++
		}
	}
	return n
}

func (r *recorder) reset() {
	r.calls = nil
}

type fixture struct {
	c     *Container
	stack *Stack
	rec   *recorder
	logs  *bytes.Buffer
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		stack: NewStack(),
		rec:   &recorder{},
		logs:  &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	base := []Option{
		WithInvocation(f.stack),
		WithNotify(f.rec.notify),
		WithLogger(logger),
	}
	f.c = NewContainer(append(base, opts...)...)
	return f
}

// as runs fn with sub active.
func (f *fixture) as(t *testing.T, sub Subscriber, fn func()) {
	t.Helper()
	err := f.stack.Run(Frame{Subscriber: sub}, func() error {
		fn()
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func mustHandle(t *testing.T, c *Container, target any, flags Flags) *Handle {
	t.Helper()
	h, err := c.GetOrCreate(target, flags)
	if err != nil {
		t.Fatalf("GetOrCreate() error: %v", err)
	}
	return h
}

func mustGet(t *testing.T, h *Handle, key string) any {
	t.Helper()
	v, err := h.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) error: %v", key, err)
	}
	return v
}

func mustSet(t *testing.T, h *Handle, key string, v any) {
	t.Helper()
	if err := h.Set(key, v); err != nil {
		t.Fatalf("Set(%q) error: %v", key, err)
	}
}

package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/pkg/observe"
)

func newState() map[string]any {
	return map[string]any{
		"user":  map[string]any{"name": "ada"},
		"rows":  []any{map[string]any{"id": 1}},
		"count": 0,
	}
}

func newSession(t *testing.T, opts ...Option) (*Session, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	opts = append([]Option{WithLogger(logger)}, opts...)
	s, err := NewSession(newState(), opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, &buf
}

func apply(t *testing.T, s *Session, ops ...Op) []Event {
	t.Helper()
	events, err := s.Apply(context.Background(), ops)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return events
}

func kinds(events []Event) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.Kind
		if e.Subscriber != "" {
			parts[i] += ":" + e.Subscriber
		}
	}
	return strings.Join(parts, " ")
}

func TestSession_ReadsThenWritesNotifyReaders(t *testing.T) {
	s, _ := newSession(t)

	events := apply(t, s,
		Op{Op: OpRead, Subscriber: "header", Phase: "render", Path: "user.name"},
		Op{Op: OpRead, Subscriber: "footer", Phase: "render", Path: "count"},
		Op{Op: OpWrite, Phase: "event", Path: "user.name", Value: "grace"},
		Op{Op: OpWrite, Phase: "event", Path: "count", Value: 1},
	)

	if got, want := kinds(events), "read:header read:footer notify:header notify:footer"; got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
	if events[0].Value != "ada" {
		t.Errorf("read value = %v, want ada", events[0].Value)
	}
	if events[2].Op != 2 || events[2].Path != "user.name" {
		t.Errorf("notify event = %+v", events[2])
	}
	for i, e := range events {
		if e.Seq != i+1 {
			t.Errorf("events[%d].Seq = %d, want %d", i, e.Seq, i+1)
		}
	}
}

func TestSession_KeyGranularity(t *testing.T) {
	s, _ := newSession(t)

	events := apply(t, s,
		Op{Op: OpRead, Subscriber: "name", Path: "user.name"},
		Op{Op: OpWrite, Path: "user.email", Value: "ada@example.com"},
		Op{Op: OpWrite, Path: "user.name", Value: "ada"},
	)

	// Writing another key or the same value notifies nobody.
	if got, want := kinds(events), "read:name"; got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
}

func TestSession_KeysIsWholeObjectSubscription(t *testing.T) {
	s, _ := newSession(t)

	events := apply(t, s,
		Op{Op: OpKeys, Subscriber: "form", Path: "user"},
		Op{Op: OpWrite, Path: "user.email", Value: "ada@example.com"},
		Op{Op: OpDelete, Path: "user.email"},
	)

	if got, want := kinds(events), "keys:form notify:form notify:form"; got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
	keys, ok := events[0].Value.([]any)
	if !ok || len(keys) != 1 || keys[0] != "name" {
		t.Errorf("keys value = %#v", events[0].Value)
	}
}

func TestSession_SequenceAppend(t *testing.T) {
	s, _ := newSession(t)

	events := apply(t, s,
		Op{Op: OpRead, Subscriber: "list", Path: "rows.0.id"},
		Op{Op: OpAppend, Path: "rows", Value: map[string]any{"id": 2}},
		Op{Op: OpRead, Path: "rows.1.id"},
	)

	if got, want := kinds(events), "read:list notify:list read"; got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
	if events[2].Value != 2 {
		t.Errorf("appended value = %v, want 2", events[2].Value)
	}
}

func TestSession_RenderPhaseWriteWarns(t *testing.T) {
	s, logs := newSession(t)

	events := apply(t, s,
		Op{Op: OpRead, Subscriber: "view", Phase: "render", Path: "count"},
		Op{Op: OpWrite, Subscriber: "view", Phase: "render", Path: "count", Value: 5},
	)

	if got, want := kinds(events), "read:view warn:view notify:view"; got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
	warn := events[1]
	if warn.Code != "Q005" || !strings.Contains(warn.Message, `key "count"`) {
		t.Errorf("warn event = %+v", warn)
	}
	if d := warn.Diagnostic(); d == nil || d.Code != "Q005" || d.Detail != `key "count"` {
		t.Errorf("warn Diagnostic() = %+v", d)
	}
	if !strings.Contains(logs.String(), "code=Q005") {
		t.Errorf("expected Q005 log record, got: %s", logs.String())
	}
}

func TestSession_ProductionModeSkipsWarnings(t *testing.T) {
	s, _ := newSession(t, WithDevMode(false))

	events := apply(t, s,
		Op{Op: OpWrite, Subscriber: "view", Phase: "render", Path: "count", Value: 5},
	)
	if len(events) != 0 {
		t.Fatalf("events = %q, want none", kinds(events))
	}
}

func TestSession_ErrorsDoNotStopScript(t *testing.T) {
	s, _ := newSession(t)

	events := apply(t, s,
		Op{Op: OpRead, Path: "count.value"},
		Op{Op: OpRead, Path: "missing.value"},
		Op{Op: OpDelete, Path: "rows.0"},
		Op{Op: OpAppend, Path: "user", Value: 1},
		Op{Op: OpRead, Path: "user.name"},
	)

	wantCodes := []string{"Q203", "Q203", "Q007", "Q007"}
	for i, code := range wantCodes {
		if events[i].Kind != EventError || events[i].Code != code {
			t.Errorf("events[%d] = %+v, want error %s", i, events[i], code)
		}
	}
	if d := events[2].Diagnostic(); d == nil || d.Code != "Q007" || strings.HasPrefix(d.Message, "Q007") {
		t.Errorf("error Diagnostic() = %+v", d)
	}
	if last := events[len(events)-1]; last.Kind != EventRead || last.Value != "ada" {
		t.Errorf("last event = %+v, want read of ada", last)
	}
}

func TestSession_Clear(t *testing.T) {
	s, _ := newSession(t)

	apply(t, s,
		Op{Op: OpRead, Subscriber: "view", Path: "user.name"},
		Op{Op: OpRead, Subscriber: "view", Path: "count"},
	)
	if got := s.Participation("view"); got != 2 {
		t.Fatalf("Participation = %d, want 2", got)
	}

	events := apply(t, s,
		Op{Op: OpClear, Subscriber: "view"},
		Op{Op: OpWrite, Path: "count", Value: 3},
		Op{Op: OpClear, Subscriber: "view"},
	)
	if len(events) != 0 {
		t.Fatalf("events = %q, want none", kinds(events))
	}
	if got := s.Participation("view"); got != 0 {
		t.Errorf("Participation after clear = %d, want 0", got)
	}
}

func TestSession_Dispose(t *testing.T) {
	s, _ := newSession(t)

	events := apply(t, s,
		Op{Op: OpRead, Subscriber: "view", Path: "user.name"},
		Op{Op: OpDispose, Path: "user"},
		Op{Op: OpWrite, Path: "user.name", Value: "grace"},
		Op{Op: OpDispose},
	)

	if got := kinds(events); got != "read:view error" {
		t.Fatalf("events = %q", got)
	}
	if events[1].Code != "Q202" {
		t.Errorf("dispose root code = %q, want Q202", events[1].Code)
	}
}

func TestSession_MutableAlwaysNotifies(t *testing.T) {
	s, _ := newSession(t)

	events := apply(t, s,
		Op{Op: OpRead, Subscriber: "view", Path: "count"},
		Op{Op: OpWrite, Path: "count", Value: 0},
		Op{Op: OpWrite, Path: "count", Value: 0, Mutable: true},
	)
	if got, want := kinds(events), "read:view notify:view"; got != want {
		t.Fatalf("events = %q, want %q", got, want)
	}
}

func TestSession_ScriptRejected(t *testing.T) {
	s, _ := newSession(t, WithMaxOps(1))

	_, err := s.Apply(context.Background(), []Op{{Op: OpKeys}, {Op: OpKeys}})
	if code := errors.CodeOf(err); code != "Q201" {
		t.Errorf("code = %q, want Q201", code)
	}

	_, err = s.Apply(context.Background(), []Op{{Op: "frobnicate"}})
	if code := errors.CodeOf(err); code != "Q202" {
		t.Errorf("code = %q, want Q202", code)
	}
}

func TestSession_Snapshot(t *testing.T) {
	s, _ := newSession(t)
	apply(t, s,
		Op{Op: OpWrite, Path: "user.name", Value: "grace"},
		Op{Op: OpAppend, Path: "rows", Value: "x"},
	)

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"count":0,"rows":[{"id":1},"x"],"user":{"name":"grace"}}`
	if string(data) != want {
		t.Errorf("snapshot = %s, want %s", data, want)
	}
}

func TestSession_Tracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	s, _ := newSession(t, WithTracer(observe.Tracing()))
	apply(t, s,
		Op{Op: OpRead, Subscriber: "view", Path: "count"},
		Op{Op: OpWrite, Path: "count", Value: 1},
		Op{Op: OpRead, Path: "count.x"},
	)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "qstate.replay" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status().Code)
	}
	var notified bool
	for _, e := range span.Events() {
		if e.Name == "qstate.notify" {
			notified = true
		}
	}
	if !notified {
		t.Error("expected qstate.notify span event")
	}
}

func TestNewSession_UnsupportedState(t *testing.T) {
	if _, err := NewSession([]any{1}); errors.CodeOf(err) != "Q001" {
		t.Errorf("NewSession([]any) error = %v, want Q001", err)
	}
}

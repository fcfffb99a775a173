package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	qerrors "github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/pkg/qobject"
)

// Default tracer name for qstate.
const defaultTracerName = "qstate"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "qstate").
	TracerName string

	// IncludeKeys records the written key on span events.
	// Keys may carry user data; enabled by default.
	IncludeKeys bool

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithIncludeKeys enables or disables key attributes on events.
func WithIncludeKeys(include bool) TracingOption {
	return func(c *TracingConfig) {
		c.IncludeKeys = include
	}
}

// Tracer is a qobject.Observer that annotates the active span.
type Tracer struct {
	config TracingConfig
}

var _ qobject.Observer = (*Tracer)(nil)

// Tracing creates a Tracer using the global OpenTelemetry tracer provider.
func Tracing(opts ...TracingOption) *Tracer {
	config := TracingConfig{
		TracerName:  defaultTracerName,
		IncludeKeys: true,
	}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)
	return &Tracer{config: config}
}

// Start starts a span for a unit of reactive work, such as one replayed
// script or one render. The returned context should be placed in the
// qobject.Frame so events land on this span.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.config.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// HandleCreated implements qobject.Observer. Handle creation is frequent
// and not traced.
func (t *Tracer) HandleCreated(qobject.Kind, qobject.Flags) {}

// Subscribed implements qobject.Observer. Reads are not traced.
func (t *Tracer) Subscribed(context.Context, qobject.Kind, string, bool) {}

// Notified implements qobject.Observer.
func (t *Tracer) Notified(ctx context.Context, key string, whole bool, n int) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{attribute.Int("qstate.notified", n)}
	if whole {
		attrs = append(attrs, attribute.Bool("qstate.whole", true))
	} else if t.config.IncludeKeys {
		attrs = append(attrs, attribute.String("qstate.key", key))
	}
	span.AddEvent("qstate.notify", trace.WithAttributes(attrs...))
}

// PhaseWrite implements qobject.Observer.
func (t *Tracer) PhaseWrite(ctx context.Context, key string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	var attrs []attribute.KeyValue
	if t.config.IncludeKeys {
		attrs = append(attrs, attribute.String("qstate.key", key))
	}
	span.AddEvent("qstate.render_phase_write", trace.WithAttributes(attrs...))
}

// Rejected implements qobject.Observer.
func (t *Tracer) Rejected(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err, trace.WithAttributes(attribute.String("qstate.code", qerrors.CodeOf(err))))
	span.SetStatus(codes.Error, err.Error())
}

package observe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	qerrors "github.com/vango-dev/qstate/internal/errors"
	"github.com/vango-dev/qstate/pkg/qobject"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "qstate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for notification fan-out.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the fan-out histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "qstate",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a qobject.Observer that records Prometheus metrics.
type Metrics struct {
	handlesCreated    *prometheus.CounterVec
	subscriptions     *prometheus.CounterVec
	notifications     prometheus.Counter
	fanout            prometheus.Histogram
	renderPhaseWrites prometheus.Counter
	rejected          *prometheus.CounterVec
}

var _ qobject.Observer = (*Metrics)(nil)

// Prometheus creates a Metrics observer and registers its collectors.
// Registering twice on the same registry panics, as with promauto.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		handlesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handles_created_total",
			Help:        "Total number of reactive handles created",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "flags"}),

		subscriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscriptions_total",
			Help:        "Total number of subscriptions recorded by reads",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "scope"}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of subscriber notifications",
			ConstLabels: config.ConstLabels,
		}),

		fanout: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notify_fanout",
			Help:        "Subscribers notified per write",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		renderPhaseWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_phase_writes_total",
			Help:        "Total number of state writes during render",
			ConstLabels: config.ConstLabels,
		}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rejected_total",
			Help:        "Total number of rejected operations by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

// HandleCreated implements qobject.Observer.
func (m *Metrics) HandleCreated(kind qobject.Kind, flags qobject.Flags) {
	m.handlesCreated.WithLabelValues(kind.String(), flags.String()).Inc()
}

// Subscribed implements qobject.Observer.
func (m *Metrics) Subscribed(_ context.Context, kind qobject.Kind, _ string, whole bool) {
	scope := "key"
	if whole {
		scope = "whole"
	}
	m.subscriptions.WithLabelValues(kind.String(), scope).Inc()
}

// Notified implements qobject.Observer.
func (m *Metrics) Notified(_ context.Context, _ string, _ bool, n int) {
	m.notifications.Add(float64(n))
	m.fanout.Observe(float64(n))
}

// PhaseWrite implements qobject.Observer.
func (m *Metrics) PhaseWrite(context.Context, string) {
	m.renderPhaseWrites.Inc()
}

// Rejected implements qobject.Observer.
func (m *Metrics) Rejected(_ context.Context, err error) {
	code := qerrors.CodeOf(err)
	if code == "" {
		code = "unknown"
	}
	m.rejected.WithLabelValues(code).Inc()
}

// Package observe provides qobject.Observer implementations backed by
// Prometheus and OpenTelemetry.
//
// # Prometheus
//
//	metrics := observe.Prometheus(
//	    observe.WithNamespace("myapp"),
//	    observe.WithRegistry(reg),
//	)
//	c := qobject.NewContainer(qobject.WithObserver(metrics))
//
// Metrics collected:
//   - qstate_handles_created_total: handles created by kind and flags
//   - qstate_subscriptions_total: subscriptions recorded by kind and scope
//   - qstate_notifications_total: subscribers notified
//   - qstate_notify_fanout: subscribers notified per write
//   - qstate_render_phase_writes_total: writes during render
//   - qstate_rejected_total: rejected operations by error code
//
// # OpenTelemetry
//
// Tracing annotates the span carried by the active frame's context:
//
//	c := qobject.NewContainer(qobject.WithObserver(observe.Tracing()))
//	stack.Run(qobject.Frame{Subscriber: comp, Ctx: ctx}, render)
//
// Notifications and render-phase writes become span events; rejected
// operations are recorded as span errors.
package observe

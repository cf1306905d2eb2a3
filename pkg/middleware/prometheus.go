package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/server"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vango").
	Namespace string

	// Subsystem is the metrics subsystem (default: "live").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render and event duration.
	// Default: prometheus.DefBuckets
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

// WithBuckets sets the histogram buckets.
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
		Namespace: "vango",
		Subsystem: "live",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// PrometheusObserver records session activity as Prometheus metrics.
//
// Metrics collected (with the default namespace and subsystem):
//   - vango_live_sessions_active: Gauge of running sessions
//   - vango_live_sessions_total: Counter of sessions by result (ok, error)
//   - vango_live_session_duration_seconds: Histogram of session lifetimes
//   - vango_live_renders_total: Counter of updates sent by kind (full, patch)
//   - vango_live_patch_operations_total: Counter of patch operations sent
//   - vango_live_render_duration_seconds: Histogram of render pass duration
//   - vango_live_events_total: Counter of events by status (ok, error, dropped)
//   - vango_live_event_duration_seconds: Histogram of event delivery duration
type PrometheusObserver struct {
	sessionsActive  prometheus.Gauge
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	rendersTotal    *prometheus.CounterVec
	patchOps        prometheus.Counter
	renderDuration  prometheus.Histogram
	eventsTotal     *prometheus.CounterVec
	eventDuration   prometheus.Histogram
}

var _ server.Observer = (*PrometheusObserver)(nil)

// Prometheus creates an observer that collects Prometheus metrics.
//
// Example:
//
//	h := &server.Handler{
//	    Root:     root,
//	    Observer: middleware.Prometheus(middleware.WithNamespace("myapp")),
//	}
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *PrometheusObserver {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	reg := config.Registry

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}
	histogramOpts := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     buckets,
		}
	}

	return &PrometheusObserver{
		sessionsActive: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_active",
			Help:        "Number of running sessions",
			ConstLabels: config.ConstLabels,
		})),
		sessionsTotal: register(reg, prometheus.NewCounterVec(
			counterOpts("sessions_total", "Total number of finished sessions by result"),
			[]string{"result"})),
		sessionDuration: register(reg, prometheus.NewHistogram(
			histogramOpts("session_duration_seconds", "Session lifetime in seconds",
				prometheus.ExponentialBuckets(1, 4, 8)))), // 1s to ~4.5h
		rendersTotal: register(reg, prometheus.NewCounterVec(
			counterOpts("renders_total", "Total number of updates sent by kind"),
			[]string{"kind"})),
		patchOps: register(reg, prometheus.NewCounter(
			counterOpts("patch_operations_total", "Total number of patch operations sent"))),
		renderDuration: register(reg, prometheus.NewHistogram(
			histogramOpts("render_duration_seconds", "Render pass duration in seconds", config.Buckets))),
		eventsTotal: register(reg, prometheus.NewCounterVec(
			counterOpts("events_total", "Total number of client events by status"),
			[]string{"status"})),
		eventDuration: register(reg, prometheus.NewHistogram(
			histogramOpts("event_duration_seconds", "Event delivery duration in seconds", config.Buckets))),
	}
}

// register registers c, or returns the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (p *PrometheusObserver) SessionStarted(context.Context, string) {
	p.sessionsActive.Inc()
}

func (p *PrometheusObserver) SessionEnded(_ context.Context, _ string, lifetime time.Duration, err error) {
	p.sessionsActive.Dec()
	p.sessionDuration.Observe(lifetime.Seconds())
	p.sessionsTotal.WithLabelValues(result(err)).Inc()
}

func (p *PrometheusObserver) RenderCompleted(_ context.Context, _ string, u *protocol.LayoutUpdate, took time.Duration) {
	kind := "patch"
	if u.IsFull() {
		kind = "full"
	}
	p.rendersTotal.WithLabelValues(kind).Inc()
	p.patchOps.Add(float64(len(u.Changes)))
	p.renderDuration.Observe(took.Seconds())
}

func (p *PrometheusObserver) EventDelivered(_ context.Context, _, _ string, took time.Duration, err error) {
	p.eventsTotal.WithLabelValues(result(err)).Inc()
	p.eventDuration.Observe(took.Seconds())
}

func (p *PrometheusObserver) EventDropped(context.Context, string, string) {
	p.eventsTotal.WithLabelValues("dropped").Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

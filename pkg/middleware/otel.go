package middleware

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/live/pkg/protocol"
	"github.com/vango-dev/live/pkg/server"
)

// Default tracer name.
const defaultTracerName = "vango-live"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "vango-live").
	TracerName string

	// TracerProvider provides the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// TraceRenders creates a span per render pass. Enabled by default.
	TraceRenders bool

	// Filter determines which events to trace, by target id.
	// If nil, all events are traced.
	Filter func(target string) bool

	// Attributes are added to every session span.
	Attributes []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithTraceRenders enables or disables render spans.
func WithTraceRenders(enabled bool) OTelOption {
	return func(c *OTelConfig) {
		c.TraceRenders = enabled
	}
}

// WithEventFilter sets a filter function for events.
func WithEventFilter(filter func(target string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithSessionAttributes adds attributes to every session span.
func WithSessionAttributes(attrs ...attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:   defaultTracerName,
		TraceRenders: true,
	}
}

// OTelObserver traces sessions with OpenTelemetry. Each session has a span
// from SessionStarted to SessionEnded; renders and events are its children.
type OTelObserver struct {
	config OTelConfig
	tracer trace.Tracer

	mu       sync.Mutex
	sessions map[string]context.Context
}

var _ server.Observer = (*OTelObserver)(nil)

// OpenTelemetry creates an observer that traces sessions.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in your main() before starting
// the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) *OTelObserver {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelObserver{
		config:   config,
		tracer:   tp.Tracer(config.TracerName),
		sessions: make(map[string]context.Context),
	}
}

func (o *OTelObserver) SessionStarted(ctx context.Context, id string) {
	attrs := append([]attribute.KeyValue{attribute.String("vango.session_id", id)}, o.config.Attributes...)
	spanCtx, _ := o.tracer.Start(ctx, "vango.session",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	o.mu.Lock()
	o.sessions[id] = spanCtx
	o.mu.Unlock()
}

func (o *OTelObserver) SessionEnded(_ context.Context, id string, lifetime time.Duration, err error) {
	o.mu.Lock()
	spanCtx, ok := o.sessions[id]
	delete(o.sessions, id)
	o.mu.Unlock()
	if !ok {
		return
	}
	span := trace.SpanFromContext(spanCtx)
	span.SetAttributes(attribute.Int64("vango.lifetime_ms", lifetime.Milliseconds()))
	setStatus(span, err)
	span.End()
}

func (o *OTelObserver) RenderCompleted(ctx context.Context, id string, u *protocol.LayoutUpdate, took time.Duration) {
	if !o.config.TraceRenders {
		return
	}
	end := time.Now()
	_, span := o.tracer.Start(o.parent(ctx, id), "vango.render",
		trace.WithTimestamp(end.Add(-took)),
		trace.WithAttributes(
			attribute.Int64("vango.seq", int64(u.Seq)),
			attribute.Bool("vango.full", u.IsFull()),
			attribute.Int("vango.patch_count", len(u.Changes)),
		),
	)
	span.End(trace.WithTimestamp(end))
}

func (o *OTelObserver) EventDelivered(ctx context.Context, id, target string, took time.Duration, err error) {
	if o.config.Filter != nil && !o.config.Filter(target) {
		return
	}
	end := time.Now()
	_, span := o.tracer.Start(o.parent(ctx, id), "vango.event",
		trace.WithTimestamp(end.Add(-took)),
		trace.WithAttributes(attribute.String("vango.event_target", target)),
	)
	setStatus(span, err)
	span.End(trace.WithTimestamp(end))
}

func (o *OTelObserver) EventDropped(ctx context.Context, id, target string) {
	trace.SpanFromContext(o.parent(ctx, id)).AddEvent("event dropped",
		trace.WithAttributes(attribute.String("vango.event_target", target)))
}

// parent returns a context carrying the session span, if there is one.
func (o *OTelObserver) parent(ctx context.Context, id string) context.Context {
	o.mu.Lock()
	spanCtx, ok := o.sessions[id]
	o.mu.Unlock()
	if !ok {
		return ctx
	}
	return trace.ContextWithSpan(ctx, trace.SpanFromContext(spanCtx))
}

func setStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// Package telemetry wires OpenTelemetry tracing and metrics for the sync.
//
// When disabled, no-op providers are used. When enabled, spans are exported to the application logger at
// debug level unless a span processor is supplied (tests use [tracetest.SpanRecorder]).
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/desertthunder/hubtwin/internal/shared"
)

const instrumentationPrefix = "github.com/desertthunder/hubtwin/"

// Span attribute keys. Never attach tokens or authorization codes.
const (
	AttrRunID         = "sync.run_id"
	AttrDryRun        = "sync.dry_run"
	AttrInvoiceID     = "invoice.id"
	AttrInvoiceNumber = "invoice.number"
	AttrInvoiceStatus = "invoice.status"
	AttrOutcome       = "invoice.outcome"
	AttrLineItems     = "invoice.line_items"
)

// Option configures [New].
type Option func(*options)

type options struct {
	processor sdktrace.SpanProcessor
	logger    *log.Logger
	version   string
}

// WithSpanProcessor replaces the default log exporter.
func WithSpanProcessor(sp sdktrace.SpanProcessor) Option {
	return func(o *options) { o.processor = sp }
}

// WithLogger sets the logger the default exporter writes spans to.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithVersion sets the service.version resource attribute.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// Telemetry holds the tracer and meter providers.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metrics        *Metrics

	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates providers from the telemetry config section.
func New(cfg shared.TelemetryConfig, opts ...Option) (*Telemetry, error) {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.New(io.Discard)
	}

	t := &Telemetry{meterProvider: metricnoop.NewMeterProvider()}

	if !cfg.Enabled {
		t.tracerProvider = tracenoop.NewTracerProvider()
	} else {
		name := cfg.ServiceName
		if name == "" {
			name = "hubtwin"
		}

		res, err := resource.New(context.Background(),
			resource.WithAttributes(semconv.ServiceName(name), semconv.ServiceVersion(o.version)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create resource: %w", err)
		}

		processor := o.processor
		if processor == nil {
			processor = sdktrace.NewSimpleSpanProcessor(&logExporter{logger: o.logger})
		}

		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res), sdktrace.WithSpanProcessor(processor))
		t.tracerProvider = tp
		t.shutdownFuncs = append(t.shutdownFuncs, tp.Shutdown)
	}

	metrics, err := newMetrics(t.Meter("tasks"))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	t.metrics = metrics

	return t, nil
}

// Noop returns disabled telemetry.
func Noop() *Telemetry {
	t, _ := New(shared.TelemetryConfig{})
	return t
}

// Tracer returns a named tracer for the given scope, e.g. "tasks".
func (t *Telemetry) Tracer(scope string) trace.Tracer {
	return t.tracerProvider.Tracer(instrumentationPrefix + scope)
}

// Meter returns a named meter for the given scope.
func (t *Telemetry) Meter(scope string) metric.Meter {
	return t.meterProvider.Meter(instrumentationPrefix + scope)
}

// Metrics returns the sync counters.
func (t *Telemetry) Metrics() *Metrics { return t.metrics }

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var shutdownErr error
	t.shutdownOnce.Do(func() {
		for _, fn := range t.shutdownFuncs {
			if err := fn(ctx); err != nil && shutdownErr == nil {
				shutdownErr = err
			}
		}
	})
	return shutdownErr
}

// RecordError records an error on a span and marks it failed (nil-safe).
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful.
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// InvoiceAttributes describes an invoice on a span.
func InvoiceAttributes(id, number, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrInvoiceID, id),
		attribute.String(AttrInvoiceNumber, number),
		attribute.String(AttrInvoiceStatus, status),
	}
}

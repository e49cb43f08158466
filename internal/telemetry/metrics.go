package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the sync instruments.
type Metrics struct {
	invoices    metric.Int64Counter
	runDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	invoices, err := meter.Int64Counter("hubtwin.sync.invoices",
		metric.WithDescription("Invoices processed by outcome"),
		metric.WithUnit("{invoice}"))
	if err != nil {
		return nil, fmt.Errorf("invoices counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("hubtwin.sync.run.duration",
		metric.WithDescription("Duration of sync runs"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("run duration histogram: %w", err)
	}

	return &Metrics{invoices: invoices, runDuration: runDuration}, nil
}

// RecordInvoice counts one invoice with its outcome (synced, skipped, failed).
func (m *Metrics) RecordInvoice(ctx context.Context, outcome string) {
	m.invoices.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

// RecordRun records the duration of a finished run.
func (m *Metrics) RecordRun(ctx context.Context, seconds float64, dryRun bool) {
	m.runDuration.Record(ctx, seconds, metric.WithAttributes(attribute.Bool(AttrDryRun, dryRun)))
}

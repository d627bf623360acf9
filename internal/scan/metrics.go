package scan

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Scan outcome attribute values.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRateLimited = "rate_limited"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

// Metrics holds the scan counters. A nil *Metrics records nothing.
type Metrics struct {
	scans   metric.Int64Counter
	offline metric.Int64Counter
}

// NewMetrics creates scan instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	scans, err := meter.Int64Counter(
		"punktepass.scan.total",
		metric.WithDescription("Online POS scans by outcome"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	offline, err := meter.Int64Counter(
		"punktepass.scan.offline.total",
		metric.WithDescription("Offline-synced scans by outcome"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{scans: scans, offline: offline}, nil
}

func (m *Metrics) recordScan(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.scans.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) recordOffline(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.offline.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

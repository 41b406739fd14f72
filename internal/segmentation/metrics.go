package segmentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "segmentcli/segmentation"

// Metrics records segmentation run statistics
type Metrics struct {
	runs      metric.Int64Counter
	failures  metric.Int64Counter
	fits      metric.Int64Counter
	duration  metric.Float64Histogram
	score     metric.Float64Histogram
	customers metric.Int64Histogram
}

// NewMetrics creates the segmentation instruments on meter. A nil meter uses
// the global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}

	runs, err := meter.Int64Counter(
		"segmentation_runs_total",
		metric.WithDescription("Total number of segmentation runs"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"segmentation_failures_total",
		metric.WithDescription("Total number of failed segmentation runs"),
	)
	if err != nil {
		return nil, err
	}

	fits, err := meter.Int64Counter(
		"segmentation_model_fits_total",
		metric.WithDescription("Total number of k-means fits evaluated"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"segmentation_run_duration_seconds",
		metric.WithDescription("Segmentation run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	score, err := meter.Float64Histogram(
		"segmentation_best_silhouette",
		metric.WithDescription("Silhouette score of the selected clustering"),
	)
	if err != nil {
		return nil, err
	}

	customers, err := meter.Int64Histogram(
		"segmentation_customers",
		metric.WithDescription("Customers clustered per run"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		runs:      runs,
		failures:  failures,
		fits:      fits,
		duration:  duration,
		score:     score,
		customers: customers,
	}, nil
}

func (m *Metrics) recordSuccess(ctx context.Context, sel Selection, fits, customers int, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("space", string(sel.Space)))
	m.runs.Add(ctx, 1, attrs)
	m.fits.Add(ctx, int64(fits))
	m.duration.Record(ctx, seconds, attrs)
	m.score.Record(ctx, sel.Score, attrs)
	m.customers.Record(ctx, int64(customers))
}

func (m *Metrics) recordFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

package middleware

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func noopTracer() trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer("test")
}

func noopMeter() metric.Meter {
	return metricnoop.NewMeterProvider().Meter("test")
}

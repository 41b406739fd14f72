package websocket

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the hub instruments. A nil *Metrics records nothing.
type Metrics struct {
	connectionsActive metric.Int64UpDownCounter
	connectionsTotal  metric.Int64Counter
	messagesTotal     metric.Int64Counter
}

// NewMetrics creates the hub instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	active, err := meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	)
	if err != nil {
		return nil, err
	}

	messages, err := meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		connectionsActive: active,
		connectionsTotal:  total,
		messagesTotal:     messages,
	}, nil
}

func (m *Metrics) recordConnection(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, delta)
	if delta > 0 {
		m.connectionsTotal.Add(ctx, delta)
	}
}

func (m *Metrics) recordBroadcast(ctx context.Context, sent, dropped int) {
	if m == nil {
		return
	}
	m.messagesTotal.Add(ctx, int64(sent), metric.WithAttributes(attribute.String("outcome", "sent")))
	if dropped > 0 {
		m.messagesTotal.Add(ctx, int64(dropped), metric.WithAttributes(attribute.String("outcome", "dropped")))
	}
}

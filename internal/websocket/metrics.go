package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"demandcast/internal/infrastructure"
)

// sessionMetrics are the OpenTelemetry instruments of the WebSocket layer
type sessionMetrics struct {
	sessionsActive  metric.Int64UpDownCounter
	sessionDuration metric.Float64Histogram
	messagesTotal   metric.Int64Counter
	droppedMessages metric.Int64Counter
}

func newSessionMetrics(meter metric.Meter) (*sessionMetrics, error) {
	var m sessionMetrics
	var err error

	if m.sessionsActive, err = meter.Int64UpDownCounter(
		"websocket_sessions_active",
		metric.WithDescription("Number of open WebSocket forecast sessions"),
	); err != nil {
		return nil, err
	}

	if m.sessionDuration, err = meter.Float64Histogram(
		"websocket_session_duration_seconds",
		metric.WithDescription("Duration of WebSocket sessions"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.messagesTotal, err = meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("WebSocket messages by direction and type"),
	); err != nil {
		return nil, err
	}

	if m.droppedMessages, err = meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Replies dropped because the send queue was full"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

func defaultSessionMetrics() *sessionMetrics {
	m, err := newSessionMetrics(otel.Meter(infrastructure.InstrumentationName))
	if err != nil {
		return nil
	}
	return m
}

func (m *sessionMetrics) opened(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, 1)
}

func (m *sessionMetrics) closed(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.sessionsActive.Add(ctx, -1)
	m.sessionDuration.Record(ctx, d.Seconds())
}

func (m *sessionMetrics) message(ctx context.Context, direction, msgType string) {
	if m == nil {
		return
	}
	m.messagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("type", msgType),
	))
}

func (m *sessionMetrics) dropped(ctx context.Context) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1)
}

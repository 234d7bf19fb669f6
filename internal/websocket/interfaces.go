package websocket

import (
	"context"
	"time"

	"demandcast/pkg/contracts/domain"
)

// Connection is the subset of *websocket.Conn a session uses.
// Tests substitute an in-memory implementation.
type Connection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// Runner executes forecasts on behalf of a session
type Runner interface {
	RunForecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastReport, error)
	MaxHorizon() int
}

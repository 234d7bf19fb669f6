package websocket

import (
	"time"

	"demandcast/pkg/contracts/domain"
)

// Message types
const (
	TypeConnection = "connection"
	TypeForecast   = "forecast"
	TypeHeartbeat  = "heartbeat"
	TypeResult     = "result"
	TypeError      = "error"
)

// Request is a message sent by the peer
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Horizon   *int   `json:"horizon,omitempty"`
}

// Reply is a message sent to the peer
type Reply struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"request_id,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Report    *domain.ForecastReport `json:"report,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

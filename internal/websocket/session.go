package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"demandcast/internal/config"
	"demandcast/internal/infrastructure"
	"demandcast/internal/services"
	"demandcast/pkg/contracts/domain"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Replies queued while the writer is busy
	sendBuffer = 16
)

// Timing holds the keepalive settings of a session
type Timing struct {
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
}

// TimingFromConfig derives session timing. The ping period is clamped
// below the pong wait so a healthy peer never times out.
func TimingFromConfig(cfg config.WebSocketConfig) Timing {
	t := Timing{
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  writeWait,
	}
	if t.PongWait <= 0 {
		t.PongWait = 60 * time.Second
	}
	if t.PingPeriod <= 0 || t.PingPeriod >= t.PongWait {
		t.PingPeriod = (t.PongWait * 9) / 10
	}
	return t
}

// Session is one WebSocket connection. Requests on a session are handled
// one at a time, in arrival order.
type Session struct {
	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	conn    Connection
	hub     *Hub
	runner  Runner
	timing  Timing
	metrics *sessionMetrics
	logger  *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession creates a session over conn. The caller registers it with
// the hub and starts both pumps.
func NewSession(hub *Hub, conn Connection, runner Runner, timing Timing, remoteAddr string, logger *slog.Logger) *Session {
	id := uuid.New().String()
	traceID := infrastructure.GenerateTraceID()
	logger = infrastructure.WithComponent(logger, "websocket.session").With(
		slog.String("session_id", id),
		slog.String("trace_id", traceID),
	)

	var metrics *sessionMetrics
	if hub != nil {
		metrics = hub.metrics
	}

	return &Session{
		id:          id,
		traceID:     traceID,
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
		conn:        conn,
		hub:         hub,
		runner:      runner,
		timing:      timing,
		metrics:     metrics,
		logger:      logger,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Close asks the write pump to send a close frame and drop the connection
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// ReadPump reads requests until the connection fails or is closed. Each
// forecast runs to completion before the next message is read.
func (s *Session) ReadPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(infrastructure.WithTraceID(ctx, s.traceID))
	defer func() {
		cancel()
		if s.hub != nil {
			s.hub.unregister(s)
		}
		s.Close()
		_ = s.conn.Close()
		s.logger.InfoContext(ctx, "websocket session closed",
			slog.Duration("connection_duration", time.Since(s.connectedAt)))
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.timing.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.timing.PongWait))
	})

	s.reply(ctx, Reply{Type: TypeConnection, SessionID: s.id})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WarnContext(ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}

		s.handle(ctx, data)

		// pongs are not read while a forecast runs
		_ = s.conn.SetReadDeadline(time.Now().Add(s.timing.PongWait))
	}
}

// WritePump writes queued replies and keepalive pings
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.timing.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("websocket write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("websocket ping failed", slog.String("error", err.Error()))
				return
			}
		case <-s.done:
			s.flush()
			_ = s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.timing.WriteWait))
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) flush() {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) handle(ctx context.Context, data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.metrics.message(ctx, "in", "invalid")
		s.reply(ctx, Reply{Type: TypeError, Message: "Invalid message format."})
		return
	}
	s.metrics.message(ctx, "in", req.Type)

	switch req.Type {
	case TypeHeartbeat:
		s.logger.DebugContext(ctx, "heartbeat received")
	case TypeForecast:
		s.forecast(ctx, req)
	default:
		s.reply(ctx, Reply{
			Type:      TypeError,
			RequestID: req.RequestID,
			Message:   fmt.Sprintf("Unsupported message type %q.", req.Type),
		})
	}
}

func (s *Session) forecast(ctx context.Context, req Request) {
	fr := domain.ForecastRequest{ItemID: req.ItemID}
	if req.Horizon != nil {
		if *req.Horizon == 0 {
			s.reply(ctx, Reply{
				Type:      TypeError,
				RequestID: req.RequestID,
				Message:   fmt.Sprintf("Number of weeks must be between %d and %d.", domain.MinHorizonWeeks, s.runner.MaxHorizon()),
			})
			return
		}
		fr.Horizon = *req.Horizon
	}

	report, err := s.runner.RunForecast(ctx, fr)
	if err != nil {
		s.reply(ctx, Reply{Type: TypeError, RequestID: req.RequestID, Message: services.UserMessage(err)})
		return
	}
	s.reply(ctx, Reply{Type: TypeResult, RequestID: req.RequestID, Report: report})
}

func (s *Session) reply(ctx context.Context, r Reply) {
	r.Timestamp = time.Now().UTC()
	data, err := json.Marshal(r)
	if err != nil {
		s.logger.ErrorContext(ctx, "reply encoding failed", slog.String("error", err.Error()))
		return
	}

	select {
	case s.send <- data:
		s.metrics.message(ctx, "out", r.Type)
	case <-s.done:
	default:
		s.metrics.dropped(ctx)
		s.logger.WarnContext(ctx, "send queue full, reply dropped", slog.String("type", r.Type))
	}
}

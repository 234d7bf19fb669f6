package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"demandcast/internal/infrastructure"
)

// Hub tracks open sessions
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	metrics *sessionMetrics
	logger  *slog.Logger
}

// NewHub creates an empty hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		metrics:  defaultSessionMetrics(),
		logger:   infrastructure.WithComponent(logger, "websocket.hub"),
	}
}

// register adds s, or reports false once the hub has shut down
func (h *Hub) register(s *Session) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.sessions[s.id] = s
	count := len(h.sessions)
	h.mu.Unlock()

	ctx := infrastructure.WithTraceID(context.Background(), s.traceID)
	h.metrics.opened(ctx)
	h.logger.InfoContext(ctx, "session registered",
		slog.String("session_id", s.id),
		slog.String("remote_addr", s.remoteAddr),
		slog.Int("total_sessions", count))
	return true
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	count := len(h.sessions)
	h.mu.Unlock()

	if !ok {
		return
	}
	ctx := infrastructure.WithTraceID(context.Background(), s.traceID)
	h.metrics.closed(ctx, time.Since(s.connectedAt))
	h.logger.InfoContext(ctx, "session unregistered",
		slog.String("session_id", s.id),
		slog.Int("total_sessions", count))
}

// ClientCount returns the number of open sessions
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every session and waits until they have unregistered or
// ctx is done. Sessions opened afterwards are refused.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	open := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.Unlock()

	h.logger.InfoContext(ctx, "closing websocket sessions", slog.Int("sessions", len(open)))
	for _, s := range open {
		s.Close()
	}

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for h.ClientCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

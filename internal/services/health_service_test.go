package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"demandcast/internal/shared/testutil"
)

type stubDataset struct{ ready bool }

func (s stubDataset) Ready() bool { return s.ready }

type stubClients int

func (c stubClients) ClientCount() int { return int(c) }

func TestHealthService_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		dataset    DatasetStatus
		clients    ClientCounter
		wantStatus string
	}{
		{"dataset loaded", stubDataset{ready: true}, stubClients(2), "ready"},
		{"dataset loading", stubDataset{ready: false}, stubClients(0), "not_ready"},
		{"no dataset", nil, nil, "not_ready"},
		{"websocket disabled", stubDataset{ready: true}, nil, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			hs := NewHealthService("1.0.0", "", "", tt.dataset, tt.clients, logger)

			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, tt.wantStatus == "ready", hs.IsReady(context.Background()))
			assert.Contains(t, status.Services, "dataset")
		})
	}
}

func TestHealthService_Version(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	hs := NewHealthService("1.2.3", "2026-01-01T00:00:00Z", "abc123", stubDataset{ready: true}, nil, logger)

	v := hs.Version()
	assert.Equal(t, "1.2.3", v["version"])
	assert.Equal(t, "abc123", v["build_id"])
	assert.Contains(t, v, "go_version")
	assert.True(t, handler.ContainsMessage("HealthService initialized"))

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)
	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")
}

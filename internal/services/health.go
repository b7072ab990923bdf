package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aigoflow/scoring-service/internal/config"
)

// Health subjects
const (
	HealthSubject    = "scoring.health"
	HeartbeatSubject = "scoring.heartbeat"
)

type HealthService struct {
	nats         *nats.Conn
	config       *config.Config
	scoring      *ScoringService
	active       atomic.Int64
	handled      atomic.Int64
	lastActivity atomic.Int64
}

type HealthStatus struct {
	Status       string    `json:"status"` // online, busy
	Models       []string  `json:"models"`
	Active       int64     `json:"active"`
	Handled      int64     `json:"handled"`
	LastActivity time.Time `json:"last_activity"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
}

func NewHealthService(natsConn *nats.Conn, cfg *config.Config, scoring *ScoringService) *HealthService {
	h := &HealthService{
		nats:    natsConn,
		config:  cfg,
		scoring: scoring,
	}
	h.lastActivity.Store(time.Now().UnixNano())
	return h
}

// Begin marks a request as in flight. Call the returned func when it is done.
func (h *HealthService) Begin() func() {
	h.active.Add(1)
	return func() {
		h.active.Add(-1)
		h.handled.Add(1)
		h.lastActivity.Store(time.Now().UnixNano())
	}
}

func (h *HealthService) Start(ctx context.Context) error {
	_, err := h.nats.Subscribe(HealthSubject, func(msg *nats.Msg) {
		statusData, err := json.Marshal(h.Status())
		if err != nil {
			slog.Error("Failed to marshal health status", "error", err)
			return
		}

		if err := msg.Respond(statusData); err != nil {
			slog.Error("Failed to respond to health check", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to health topic: %w", err)
	}

	slog.Info("Health service started", "topic", HealthSubject)

	go h.publishHeartbeats(ctx)

	return nil
}

func (h *HealthService) publishHeartbeats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			statusData, err := json.Marshal(h.Status())
			if err != nil {
				continue
			}

			if err := h.nats.Publish(HeartbeatSubject, statusData); err != nil {
				slog.Warn("Failed to publish heartbeat", "error", err)
			}
		}
	}
}

// Status reports the current health of this process.
func (h *HealthService) Status() HealthStatus {
	active := h.active.Load()
	status := "online"
	if active >= int64(h.config.Concurrency) && h.config.Concurrency > 0 {
		status = "busy"
	}

	var models []string
	if h.scoring != nil {
		models = h.scoring.Models()
	}

	return HealthStatus{
		Status:       status,
		Models:       models,
		Active:       active,
		Handled:      h.handled.Load(),
		LastActivity: time.Unix(0, h.lastActivity.Load()),
		Endpoint:     fmt.Sprintf("http://localhost%s", h.config.HTTPAddr),
		NATSTopic:    h.config.Subject,
		Version:      "1.0.0",
	}
}

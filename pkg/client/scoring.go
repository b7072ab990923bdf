package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

const (
	requestPrefix = "scoring.request"
	replyPrefix   = "scoring.reply"
	healthSubject = "scoring.health"
)

// ScoringClient provides a client interface for the scoring service
type ScoringClient interface {
	Score(ctx context.Context, model string, inputs map[string]any, opts *Options) (*ScoreResponse, error)
	CheckHealth(ctx context.Context) (*HealthStatus, error)
	ListModels(ctx context.Context) ([]string, error)
	Close() error
}

// NATSScoringClient publishes requests into the scoring work queue and waits
// on a private reply subject.
type NATSScoringClient struct {
	conn     *nats.Conn
	clientID string
	timeout  time.Duration
}

var _ ScoringClient = (*NATSScoringClient)(nil)

func NewNATSClient(natsURL, clientID string) (*NATSScoringClient, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if clientID == "" {
		clientID = "scoring-client"
	}

	return &NATSScoringClient{
		conn:     conn,
		clientID: clientID,
		timeout:  30 * time.Second,
	}, nil
}

// NewExecutionUUID returns a fresh id suitable for Options.ExecutionUUID or FlowUUID.
func NewExecutionUUID() string {
	return uuid.NewString()
}

func RequestSubject(model string) string {
	return fmt.Sprintf("%s.%s", requestPrefix, model)
}

func (c *NATSScoringClient) replySubject(reqID string) string {
	return fmt.Sprintf("%s.%s.%s", replyPrefix, c.clientID, reqID)
}

func (c *NATSScoringClient) Score(ctx context.Context, model string, inputs map[string]any, opts *Options) (*ScoreResponse, error) {
	reqID := ulid.Make().String()
	replySubject := c.replySubject(reqID)

	request := ScoreRequest{
		ReqID:   reqID,
		Model:   model,
		Inputs:  inputs,
		Options: opts,
		ReplyTo: replySubject,
	}

	requestBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Subscribe before publishing so a fast reply is not lost
	replyChan := make(chan *nats.Msg, 1)
	sub, err := c.conn.Subscribe(replySubject, func(msg *nats.Msg) {
		replyChan <- msg
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply: %w", err)
	}
	defer sub.Unsubscribe()

	topic := RequestSubject(model)
	if err := c.conn.Publish(topic, requestBytes); err != nil {
		return nil, fmt.Errorf("failed to publish request: %w", err)
	}

	slog.Debug("Published scoring request",
		"topic", topic,
		"req_id", reqID,
		"reply_subject", replySubject)

	select {
	case msg := <-replyChan:
		var response ScoreResponse
		if err := json.Unmarshal(msg.Data, &response); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &response, nil
	case <-time.After(c.timeout):
		return nil, fmt.Errorf("request timeout after %v", c.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CheckHealth asks any running service instance for its status.
func (c *NATSScoringClient) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msg, err := c.conn.RequestWithContext(ctx, healthSubject, nil)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	var health HealthStatus
	if err := json.Unmarshal(msg.Data, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	return &health, nil
}

func (c *NATSScoringClient) ListModels(ctx context.Context) ([]string, error) {
	health, err := c.CheckHealth(ctx)
	if err != nil {
		return nil, err
	}
	return health.Models, nil
}

// Subscribe streams raw messages on subject until ctx is done.
func (c *NATSScoringClient) Subscribe(ctx context.Context, subject string, fn func(*nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, fn)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()
	<-ctx.Done()
	return nil
}

func (c *NATSScoringClient) Close() error {
	if c.conn != nil {
		c.conn.Close()
	}
	return nil
}

func (c *NATSScoringClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

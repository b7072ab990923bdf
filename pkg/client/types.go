package client

import "time"

// ScoreRequest is the payload published on scoring.request.<model>
type ScoreRequest struct {
	ReqID   string         `json:"req_id"`
	Model   string         `json:"model"`
	Inputs  map[string]any `json:"inputs"`
	Options *Options       `json:"options,omitempty"`
	ReplyTo string         `json:"reply_to,omitempty"`
}

// Options mirrors the per-call knobs accepted by the scoring wrapper.
// VariableDefaults is passed through verbatim, see defaults.RuleSet for its shape.
type Options struct {
	Emit             bool           `json:"emit,omitempty"`
	LogLevel         string         `json:"log_level,omitempty"`
	ExecutionUUID    string         `json:"execution_uuid,omitempty"`
	FlowUUID         string         `json:"flow_uuid,omitempty"`
	VariableDefaults map[string]any `json:"variable_defaults,omitempty"`
}

// ScoreResponse is what the service publishes back on reply_to
type ScoreResponse struct {
	ReqID      string `json:"req_id"`
	Model      string `json:"model"`
	Result     any    `json:"result"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// HealthStatus is the payload of scoring.health replies and heartbeats
type HealthStatus struct {
	Status       string    `json:"status"`
	Models       []string  `json:"models"`
	Active       int64     `json:"active"`
	Handled      int64     `json:"handled"`
	LastActivity time.Time `json:"last_activity"`
	Endpoint     string    `json:"endpoint"`
	NATSTopic    string    `json:"nats_topic"`
	Version      string    `json:"version"`
}

package models

import "time"

// CreatedBy is the provenance marker stamped on every input snapshot.
const CreatedBy = "scoring-service"

// Tag keys attached to every emitted record
const (
	TagModelName     = "model_name"
	TagExecutionUUID = "execution_uuid"
	TagFlowUUID      = "flow_uuid"
)

// Tags are the correlation key/value pairs forwarded alongside a record.
type Tags map[string]string

// ExecutionContext identifies a single scoring invocation. Empty UUIDs mean
// the caller did not supply them.
type ExecutionContext struct {
	ModelName     string `json:"model_name"`
	ExecutionUUID string `json:"execution_uuid,omitempty"`
	FlowUUID      string `json:"flow_uuid,omitempty"`
}

// Tags always carries model_name; the UUIDs appear only when supplied.
func (c ExecutionContext) Tags() Tags {
	tags := Tags{TagModelName: c.ModelName}
	if c.ExecutionUUID != "" {
		tags[TagExecutionUUID] = c.ExecutionUUID
	}
	if c.FlowUUID != "" {
		tags[TagFlowUUID] = c.FlowUUID
	}
	return tags
}

// Outcome is what every scoring function returns. Error is a business-level
// failure description; it is recorded but never returned to the caller.
type Outcome struct {
	Result any `json:"result"`
	Error  any `json:"error"`
}

// InputRecord is the pre-run snapshot of the inputs a model received.
type InputRecord struct {
	Inputs    map[string]any `json:"inputs"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	UUID      string         `json:"uuid,omitempty"`
	ModelName string         `json:"model_name"`
	CreatedBy string         `json:"created_by"`
}

// ResultRecord is the post-run snapshot of what a model produced.
type ResultRecord struct {
	Result        any       `json:"result"`
	Response      any       `json:"response"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UUID          string    `json:"uuid,omitempty"`
	ExecutionTime float64   `json:"execution_time"`
}

// ModelRun is the audit trail entry for one invocation. It doubles as the
// payload handed to the logger.
type ModelRun struct {
	ModelName     string  `json:"model_name"`
	ExecutionTime float64 `json:"execution_time"`
	Result        any     `json:"result"`
	Error         any     `json:"error"`
	ExecutionUUID string  `json:"execution_uuid,omitempty"`
	FlowUUID      string  `json:"flow_uuid,omitempty"`
}

// StoredRun is a model run read back from the audit store.
type StoredRun struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"ts"`
	ModelName     string    `json:"model_name"`
	ExecutionUUID string    `json:"execution_uuid,omitempty"`
	FlowUUID      string    `json:"flow_uuid,omitempty"`
	ExecutionTime float64   `json:"execution_time"`
	ResultJSON    string    `json:"result_json"`
	ErrorJSON     string    `json:"error_json"`
}

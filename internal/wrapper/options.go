package wrapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aigoflow/scoring-service/internal/defaults"
)

// ErrUnknownOption is returned when an option bag carries a key Score does
// not understand.
var ErrUnknownOption = errors.New("unknown scoring option")

// Options are the per-call settings accepted by Score.
type Options struct {
	// Emit forwards the input, result and model-run records to the sinks.
	Emit bool `json:"emit"`
	// LogLevel enables the logging gate when non-empty.
	LogLevel string `json:"log_level,omitempty"`

	ExecutionUUID    string           `json:"execution_uuid,omitempty"`
	FlowUUID         string           `json:"flow_uuid,omitempty"`
	VariableDefaults defaults.RuleSet `json:"variable_defaults,omitempty"`
}

// DecodeOptions parses a JSON option bag. Unrecognized keys are rejected.
func DecodeOptions(data []byte) (Options, error) {
	var opts Options
	if len(bytes.TrimSpace(data)) == 0 {
		return opts, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		if isUnknownField(err) {
			return Options{}, fmt.Errorf("%w: %v", ErrUnknownOption, err)
		}
		return Options{}, fmt.Errorf("invalid options: %w", err)
	}
	return opts, nil
}

func isUnknownField(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "json: unknown field")
}

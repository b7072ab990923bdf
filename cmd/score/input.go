package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aigoflow/scoring-service/internal/defaults"
)

// parseInputs turns key=value pairs into an inputs map. Values that parse as
// JSON keep their type, anything else is taken as a string.
func parseInputs(pairs []string) (map[string]any, error) {
	inputs := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", p)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		inputs[key] = v
	}
	return inputs, nil
}

// loadDefaults reads a YAML rule set and returns it in its wire form.
func loadDefaults(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading defaults file: %w", err)
	}

	var rules defaults.RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing defaults file: %w", err)
	}

	wire, err := json.Marshal(rules)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(wire, &out); err != nil {
		return nil, err
	}
	return out, nil
}

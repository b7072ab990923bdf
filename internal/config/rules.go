package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aigoflow/scoring-service/internal/defaults"
)

// RulesFile is the on-disk layout of per-model default rules:
//
//	models:
//	  US_Credit_Model:
//	    income:
//	      - replacement_value: 0
//	        values_to_replace: null
type RulesFile struct {
	Models map[string]defaults.RuleSet `yaml:"models"`
}

// LoadRules reads and validates a rules file.
func LoadRules(path string) (map[string]defaults.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var f RulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}

	for model, rules := range f.Models {
		if model == "" {
			return nil, fmt.Errorf("rules file: empty model name")
		}
		for variable, seq := range rules {
			if len(seq) == 0 {
				return nil, fmt.Errorf("rules file: model %q variable %q has no rules", model, variable)
			}
		}
	}

	if f.Models == nil {
		f.Models = map[string]defaults.RuleSet{}
	}
	return f.Models, nil
}

// RuleStore holds the current per-model rules and can be swapped at runtime.
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]defaults.RuleSet
}

func NewRuleStore(rules map[string]defaults.RuleSet) *RuleStore {
	if rules == nil {
		rules = map[string]defaults.RuleSet{}
	}
	return &RuleStore{rules: rules}
}

// For returns the configured rules for a model.
func (s *RuleStore) For(model string) (defaults.RuleSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rules[model]
	return rs, ok
}

// Replace swaps in a freshly loaded rule map.
func (s *RuleStore) Replace(rules map[string]defaults.RuleSet) {
	if rules == nil {
		rules = map[string]defaults.RuleSet{}
	}
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
}

// Models lists the models that have rules configured.
func (s *RuleStore) Models() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rules))
	for m := range s.rules {
		out = append(out, m)
	}
	return out
}

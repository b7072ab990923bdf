// Package defaults substitutes default values into scoring inputs before a
// model runs.
//
// A RuleSet maps a variable name to an ordered list of rules. Every rule
// whose match condition holds overwrites the variable, so the last applicable
// rule in the list wins.
package defaults

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrMissingVariable is returned when a rule names a variable the inputs do
// not carry.
var ErrMissingVariable = errors.New("default rule references missing variable")

// Inputs is the payload a scoring function consumes.
type Inputs map[string]any

type wildcard struct{}

// Wildcard as a rule's ValuesToReplace means "always replace".
var Wildcard any = wildcard{}

// Rule replaces a variable with ReplacementValue when the variable currently
// equals ValuesToReplace, or unconditionally when ValuesToReplace is Wildcard.
type Rule struct {
	ReplacementValue any
	ValuesToReplace  any
}

// Matches reports whether the rule applies to the given current value.
func (r Rule) Matches(current any) bool {
	if IsWildcard(r.ValuesToReplace) {
		return true
	}
	return equal(current, r.ValuesToReplace)
}

// IsWildcard reports whether v is the wildcard marker.
func IsWildcard(v any) bool {
	_, ok := v.(wildcard)
	return ok
}

// RuleSet maps variable names to their ordered rules.
type RuleSet map[string][]Rule

// Transform applies rules to inputs in place and returns the same map.
// Every variable named in rules must be present in inputs; otherwise nothing
// is modified and ErrMissingVariable is returned.
func Transform(inputs Inputs, rules RuleSet) (Inputs, error) {
	for name := range rules {
		if _, ok := inputs[name]; !ok {
			return inputs, fmt.Errorf("%w: %q", ErrMissingVariable, name)
		}
	}

	for name, seq := range rules {
		for _, rule := range seq {
			if rule.Matches(inputs[name]) {
				inputs[name] = rule.ReplacementValue
			}
		}
	}
	return inputs, nil
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// toFloat is Number extended with booleans, which compare as 1 and 0 so a
// rule matching 1 also matches true.
func toFloat(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return Number(v)
}

// Number converts any Go integer or float to float64. The second return is
// false for everything else, booleans included.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

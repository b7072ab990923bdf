package defaults

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// WildcardToken is the encoded form of Wildcard in JSON and YAML rule payloads.
const WildcardToken = "All"

type ruleWire struct {
	ReplacementValue any `json:"replacement_value" yaml:"replacement_value"`
	ValuesToReplace  any `json:"values_to_replace" yaml:"values_to_replace"`
}

func (w ruleWire) rule() Rule {
	r := Rule{ReplacementValue: w.ReplacementValue, ValuesToReplace: w.ValuesToReplace}
	if s, ok := w.ValuesToReplace.(string); ok && s == WildcardToken {
		r.ValuesToReplace = Wildcard
	}
	return r
}

func (r Rule) wire() ruleWire {
	w := ruleWire{ReplacementValue: r.ReplacementValue, ValuesToReplace: r.ValuesToReplace}
	if IsWildcard(r.ValuesToReplace) {
		w.ValuesToReplace = WildcardToken
	}
	return w
}

func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = w.rule()
	return nil
}

func (r Rule) MarshalYAML() (interface{}, error) {
	return r.wire(), nil
}

func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	var w ruleWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	*r = w.rule()
	return nil
}

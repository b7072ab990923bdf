package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/aigoflow/scoring-service/internal/defaults"
	"github.com/aigoflow/scoring-service/internal/models"
	"github.com/aigoflow/scoring-service/internal/wrapper"
)

// Built-in model names
const (
	ModelSum  = "sum"
	ModelEcho = "echo"
)

// RegisterBuiltins wraps the built-in models with in and adds them to c.
func RegisterBuiltins(c *Catalog, in *wrapper.Instrument) {
	c.Register(ModelSum, in.Wrap(Sum))
	c.Register(ModelEcho, in.Wrap(Echo))
}

// Sum adds every numeric input. Non-numeric inputs are skipped and reported
// in the outcome error.
func Sum(_ context.Context, inputs defaults.Inputs, _ string) (models.Outcome, error) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total float64
	errs := []string{}
	for _, k := range keys {
		if n, ok := defaults.Number(inputs[k]); ok {
			total += n
			continue
		}
		errs = append(errs, fmt.Sprintf("input %s is not numeric", k))
	}
	return models.Outcome{
		Result: map[string]any{"result": total},
		Error:  map[string]any{"error": errs},
	}, nil
}

// Echo returns its inputs unchanged.
func Echo(_ context.Context, inputs defaults.Inputs, modelName string) (models.Outcome, error) {
	return models.Outcome{
		Result: map[string]any{"inputs": map[string]any(inputs), "model_name": modelName},
	}, nil
}

package metrics

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigoflow/scoring-service/internal/models"
)

func TestHasError(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, false},
		{"empty string", "", false},
		{"string", "test error", true},
		{"empty list in map", map[string]any{"error": []any{}}, false},
		{"list with message", map[string]any{"errors": []any{"Model run has failed"}}, true},
		{"go error", errors.New("x"), true},
		{"number", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasError(tt.in))
		})
	}
}

func TestRegistryText(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	require.NoError(t, r.EmitInputs(ctx, &models.InputRecord{ModelName: "sum"}, nil))
	require.NoError(t, r.EmitModelRuns(ctx, &models.ModelRun{ModelName: "sum", ExecutionTime: 0.5, Error: map[string]any{"error": []any{}}}, nil))
	require.NoError(t, r.EmitModelRuns(ctx, &models.ModelRun{ModelName: "sum", ExecutionTime: 1.5, Error: "bad input"}, nil))
	require.NoError(t, r.EmitModelRuns(ctx, &models.ModelRun{ModelName: "echo", ExecutionTime: 0.25}, nil))
	require.NoError(t, r.EmitResults(ctx, &models.ResultRecord{}, nil))

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE scoring_model_runs_total counter")
	assert.Contains(t, out, `scoring_model_runs_total{model_name="sum"} 2`)
	assert.Contains(t, out, `scoring_model_runs_total{model_name="echo"} 1`)
	assert.Contains(t, out, `scoring_model_run_errors_total{model_name="sum"} 1`)
	assert.Contains(t, out, `scoring_model_run_seconds_total{model_name="sum"} 2`)
	assert.Contains(t, out, `scoring_inputs_emitted_total{model_name="sum"} 1`)
}

func TestRegistryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRegistry().WriteText(&buf))
	assert.Zero(t, buf.Len())
}

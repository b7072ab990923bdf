package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigoflow/scoring-service/internal/models"
	"github.com/aigoflow/scoring-service/internal/repository"
	"github.com/aigoflow/scoring-service/internal/store"
)

func TestJSONSafe(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"plain", 3, 3},
		{"string", "NA", "NA"},
		{"error", errors.New("income missing"), "income missing"},
		{"wrapped error", fmt.Errorf("scoring: %w", errors.New("bad")), "scoring: bad"},
		{"nan", math.NaN(), "NaN"},
		{"inf", math.Inf(1), "Infinity"},
		{"neg inf", math.Inf(-1), "-Infinity"},
		{"float32 nan", float32(math.NaN()), "NaN"},
		{"finite float", 1.5, 1.5},
		{"time", start, start},
		{"bytes", []byte("raw"), []byte("raw")},
		{"nil slice", []string(nil), []string(nil)},
		{"errors in slice", []error{errors.New("a"), nil}, []any{"a", nil}},
		{"nested map", map[string]any{"error": []any{errors.New("x"), math.NaN()}},
			map[string]any{"error": []any{"x", "NaN"}}},
		{"typed map", map[string]float64{"p": math.Inf(1)}, map[string]any{"p": "Infinity"}},
		{"int keys untouched", map[int]string{1: "a"}, map[int]string{1: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jsonSafe(tt.in)
			assert.Equal(t, tt.want, got)
			_, err := json.Marshal(got)
			assert.NoError(t, err)
		})
	}
}

func TestBuildInputRecordLeavesCallerInputs(t *testing.T) {
	inputs := map[string]any{"x": math.NaN(), "nested": []any{math.Inf(1)}}
	rec := BuildInputRecord(models.ExecutionContext{ModelName: "m"}, inputs, time.Now())

	assert.Equal(t, "NaN", rec.Inputs["x"])
	assert.Equal(t, []any{"Infinity"}, rec.Inputs["nested"])
	assert.True(t, math.IsNaN(inputs["x"].(float64)))
	assert.True(t, math.IsInf(inputs["nested"].([]any)[0].(float64), 1))
}

func TestRepositoryEmitterEncodesErrorsAndNonFinite(t *testing.T) {
	db, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "safe.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewSQLRepository(db)
	p := NewPipeline(NewRepositoryEmitter(repo))
	ec := models.ExecutionContext{ModelName: "credit"}
	ctx := context.Background()

	require.NoError(t, p.PreRun(ctx, true, ec, map[string]any{"income": math.NaN(), "debt": math.Inf(-1)}, time.Now()))
	require.NoError(t, p.PostRun(ctx, true, ec, models.Outcome{
		Result: []float64{0.5, math.NaN()},
		Error:  errors.New("income missing"),
	}, time.Millisecond, time.Now()))
	require.NoError(t, p.PostRun(ctx, true, ec, models.Outcome{
		Error: map[string]any{"error": []any{errors.New("debt out of range")}},
	}, time.Millisecond, time.Now()))

	var inputsJSON string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT inputs_json FROM inputs`).Scan(&inputsJSON))
	assert.JSONEq(t, `{"income":"NaN","debt":"-Infinity"}`, inputsJSON)

	runs, err := repo.ModelRun().ListModelRuns(ctx, "credit", 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.JSONEq(t, `{"error":["debt out of range"]}`, runs[0].ErrorJSON)
	assert.Equal(t, `"income missing"`, runs[1].ErrorJSON)
	assert.JSONEq(t, `[0.5,"NaN"]`, runs[1].ResultJSON)
}

func TestNATSEmitterEncodesErrors(t *testing.T) {
	pub := &stubPublisher{}
	p := NewPipeline(NewNATSEmitter(pub, ""))

	require.NoError(t, p.PostRun(context.Background(), true, models.ExecutionContext{ModelName: "m"},
		models.Outcome{Result: math.Inf(1), Error: errors.New("income missing")}, time.Millisecond, time.Now()))
	require.Len(t, pub.msgs, 2)

	var run map[string]any
	require.NoError(t, json.Unmarshal(pub.msgs[1].Data, &run))
	assert.Equal(t, "scoring.emit.model_runs", pub.msgs[1].Subject)
	assert.Equal(t, "income missing", run["error"])
	assert.Equal(t, "Infinity", run["result"])
}

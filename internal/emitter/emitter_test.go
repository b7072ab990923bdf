package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigoflow/scoring-service/internal/models"
	"github.com/aigoflow/scoring-service/internal/repository"
	"github.com/aigoflow/scoring-service/internal/store"
)

type recordingEmitter struct {
	inputs    []*models.InputRecord
	results   []*models.ResultRecord
	runs      []*models.ModelRun
	tags      []models.Tags
	failStage string
}

func (r *recordingEmitter) EmitInputs(_ context.Context, rec *models.InputRecord, tags models.Tags) error {
	if r.failStage == StageInputs {
		return errors.New("inputs store down")
	}
	r.inputs = append(r.inputs, rec)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recordingEmitter) EmitResults(_ context.Context, rec *models.ResultRecord, tags models.Tags) error {
	if r.failStage == StageResults {
		return errors.New("results store down")
	}
	r.results = append(r.results, rec)
	r.tags = append(r.tags, tags)
	return nil
}

func (r *recordingEmitter) EmitModelRuns(_ context.Context, rec *models.ModelRun, tags models.Tags) error {
	if r.failStage == StageModelRuns {
		return errors.New("audit store down")
	}
	r.runs = append(r.runs, rec)
	r.tags = append(r.tags, tags)
	return nil
}

func TestPipelineDisabled(t *testing.T) {
	rec := &recordingEmitter{}
	p := NewPipeline(rec)
	ec := models.ExecutionContext{ModelName: "m"}

	require.NoError(t, p.PreRun(context.Background(), false, ec, map[string]any{"x": 1}, time.Now()))
	require.NoError(t, p.PostRun(context.Background(), false, ec, models.Outcome{Result: 1}, time.Second, time.Now()))
	assert.Empty(t, rec.inputs)
	assert.Empty(t, rec.results)
	assert.Empty(t, rec.runs)
}

func TestPipelineRecords(t *testing.T) {
	rec := &recordingEmitter{}
	p := NewPipeline(rec)
	ec := models.ExecutionContext{ModelName: "m", ExecutionUUID: "e1", FlowUUID: "f1"}
	start := time.Now()
	out := models.Outcome{Result: map[string]any{"result": 3}, Error: map[string]any{"error": []any{}}}

	require.NoError(t, p.PreRun(context.Background(), true, ec, map[string]any{"x": 1}, start))
	require.NoError(t, p.PostRun(context.Background(), true, ec, out, 1500*time.Millisecond, start))

	require.Len(t, rec.inputs, 1)
	assert.Equal(t, models.CreatedBy, rec.inputs[0].CreatedBy)
	assert.Equal(t, "e1", rec.inputs[0].UUID)
	assert.Equal(t, start, rec.inputs[0].CreatedAt)
	assert.Equal(t, start, rec.inputs[0].UpdatedAt)

	require.Len(t, rec.results, 1)
	assert.Equal(t, out.Result, rec.results[0].Result)
	assert.Equal(t, out.Result, rec.results[0].Response)
	assert.InDelta(t, 1.5, rec.results[0].ExecutionTime, 1e-9)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, out.Error, rec.runs[0].Error)
	assert.Equal(t, "f1", rec.runs[0].FlowUUID)

	for _, tags := range rec.tags {
		assert.Equal(t, models.Tags{"model_name": "m", "execution_uuid": "e1", "flow_uuid": "f1"}, tags)
	}
}

func TestPipelineErrorStage(t *testing.T) {
	for _, stage := range []string{StageInputs, StageResults, StageModelRuns} {
		t.Run(stage, func(t *testing.T) {
			p := NewPipeline(&recordingEmitter{failStage: stage})
			ec := models.ExecutionContext{ModelName: "m"}

			err := p.PreRun(context.Background(), true, ec, nil, time.Now())
			if err == nil {
				err = p.PostRun(context.Background(), true, ec, models.Outcome{}, 0, time.Now())
			}
			require.Error(t, err)

			var emitErr *Error
			require.True(t, errors.As(err, &emitErr))
			assert.Equal(t, stage, emitErr.Stage)
		})
	}
}

func TestMultiStopsOnFirstError(t *testing.T) {
	first := &recordingEmitter{}
	failing := &recordingEmitter{failStage: StageResults}
	last := &recordingEmitter{}
	m := Multi{first, failing, last}

	err := m.EmitResults(context.Background(), &models.ResultRecord{}, models.Tags{})
	assert.Error(t, err)
	assert.Len(t, first.results, 1)
	assert.Empty(t, last.results)

	require.NoError(t, m.EmitInputs(context.Background(), &models.InputRecord{}, models.Tags{}))
	assert.Len(t, last.inputs, 1)
}

type stubPublisher struct {
	msgs []*nats.Msg
	err  error
}

func (s *stubPublisher) PublishMsg(m *nats.Msg) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, m)
	return nil
}

func TestNATSEmitter(t *testing.T) {
	pub := &stubPublisher{}
	e := NewNATSEmitter(pub, "helios")
	tags := models.Tags{"model_name": "m", "execution_uuid": "e1"}

	require.NoError(t, e.EmitModelRuns(context.Background(), &models.ModelRun{ModelName: "m", Result: 3}, tags))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "helios.model_runs", msg.Subject)
	assert.Equal(t, "m", msg.Header.Get("model_name"))
	assert.Equal(t, "e1", msg.Header.Get("execution_uuid"))

	var run models.ModelRun
	require.NoError(t, json.Unmarshal(msg.Data, &run))
	assert.Equal(t, "m", run.ModelName)

	pub.err = errors.New("no responders")
	assert.Error(t, e.EmitInputs(context.Background(), &models.InputRecord{}, tags))
}

func TestRepositoryEmitter(t *testing.T) {
	db, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "emit.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	repo := repository.NewSQLRepository(db)
	p := NewPipeline(NewRepositoryEmitter(repo))
	ec := models.ExecutionContext{ModelName: "sum", ExecutionUUID: "e1"}
	ctx := context.Background()

	require.NoError(t, p.PreRun(ctx, true, ec, map[string]any{"x": 1, "y": 2}, time.Now()))
	require.NoError(t, p.PostRun(ctx, true, ec, models.Outcome{Result: 3}, time.Millisecond, time.Now()))

	for _, table := range []string{"inputs", "results", "model_runs"} {
		n, err := db.Count(ctx, table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	runs, err := repo.ModelRun().ListModelRuns(ctx, "sum", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "e1", runs[0].ExecutionUUID)
	assert.Equal(t, "3", runs[0].ResultJSON)
}

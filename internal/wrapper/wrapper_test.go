package wrapper

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aigoflow/scoring-service/internal/defaults"
	"github.com/aigoflow/scoring-service/internal/emitter"
	"github.com/aigoflow/scoring-service/internal/logging"
	"github.com/aigoflow/scoring-service/internal/models"
)

type countingSink struct {
	calls  int
	inputs []*models.InputRecord
	tags   []models.Tags
	err    error
}

func (c *countingSink) EmitInputs(_ context.Context, rec *models.InputRecord, tags models.Tags) error {
	c.calls++
	c.inputs = append(c.inputs, rec)
	c.tags = append(c.tags, tags)
	return c.err
}

func (c *countingSink) EmitResults(_ context.Context, _ *models.ResultRecord, tags models.Tags) error {
	c.calls++
	c.tags = append(c.tags, tags)
	return c.err
}

func (c *countingSink) EmitModelRuns(_ context.Context, _ *models.ModelRun, tags models.Tags) error {
	c.calls++
	c.tags = append(c.tags, tags)
	return c.err
}

func simpleModel(_ context.Context, inputs defaults.Inputs, _ string) (models.Outcome, error) {
	x, _ := inputs["x"].(int)
	y, _ := inputs["y"].(int)
	return models.Outcome{
		Result: map[string]any{"result": x + y},
		Error:  map[string]any{"error": []any{}},
	}, nil
}

func newInstrument(sink emitter.Emitter, buf *bytes.Buffer) *Instrument {
	var gate *logging.Gate
	if buf != nil {
		gate = logging.NewGate(logging.New(buf, "json", "debug"))
	}
	return NewInstrument(emitter.NewPipeline(sink), gate)
}

func TestScoreReturnsResultOnly(t *testing.T) {
	w := newInstrument(&countingSink{}, nil).Wrap(simpleModel)

	got, err := w.Score(context.Background(), defaults.Inputs{"x": 1, "y": 2}, "Simple_Test_Model", Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"result": 3}, got)
}

func TestScoreNoEmissionWhenDisabled(t *testing.T) {
	sink := &countingSink{}
	w := newInstrument(sink, nil).Wrap(simpleModel)

	_, err := w.Score(context.Background(), defaults.Inputs{"x": 1, "y": 2}, "m", Options{ExecutionUUID: "e"})
	require.NoError(t, err)
	assert.Zero(t, sink.calls)
}

func TestScoreTags(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want models.Tags
	}{
		{"none", Options{Emit: true}, models.Tags{"model_name": "m"}},
		{"execution only", Options{Emit: true, ExecutionUUID: "e"}, models.Tags{"model_name": "m", "execution_uuid": "e"}},
		{"flow only", Options{Emit: true, FlowUUID: "f"}, models.Tags{"model_name": "m", "flow_uuid": "f"}},
		{"both", Options{Emit: true, ExecutionUUID: "NA", FlowUUID: "NA"}, models.Tags{"model_name": "m", "execution_uuid": "NA", "flow_uuid": "NA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &countingSink{}
			w := newInstrument(sink, nil).Wrap(simpleModel)

			_, err := w.Score(context.Background(), defaults.Inputs{"x": 1, "y": 2}, "m", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, 3, sink.calls)
			for _, tags := range sink.tags {
				assert.Equal(t, tt.want, tags)
			}
		})
	}
}

func TestScoreAppliesDefaultsAfterSnapshot(t *testing.T) {
	sink := &countingSink{}
	var seen defaults.Inputs
	w := newInstrument(sink, nil).Wrap(func(_ context.Context, in defaults.Inputs, _ string) (models.Outcome, error) {
		seen = in
		return models.Outcome{Result: in["x"]}, nil
	})

	got, err := w.Score(context.Background(), defaults.Inputs{"x": "NA"}, "m", Options{
		Emit: true,
		VariableDefaults: defaults.RuleSet{"x": {
			{ReplacementValue: "A", ValuesToReplace: "NA"},
			{ReplacementValue: "B", ValuesToReplace: "NA"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", got)
	assert.Equal(t, "B", seen["x"])
	require.Len(t, sink.inputs, 1)
	assert.Equal(t, "NA", sink.inputs[0].Inputs["x"], "snapshot holds the caller's inputs")
}

func TestScoreMissingDefaultVariable(t *testing.T) {
	called := false
	w := newInstrument(nil, nil).Wrap(func(context.Context, defaults.Inputs, string) (models.Outcome, error) {
		called = true
		return models.Outcome{}, nil
	})

	_, err := w.Score(context.Background(), defaults.Inputs{"x": 1}, "m", Options{
		VariableDefaults: defaults.RuleSet{"y": {{ReplacementValue: 0, ValuesToReplace: defaults.Wildcard}}},
	})
	assert.ErrorIs(t, err, defaults.ErrMissingVariable)
	assert.False(t, called)
}

func TestScorePropagatesRaisedError(t *testing.T) {
	boom := errors.New("model exploded")
	sink := &countingSink{}
	w := newInstrument(sink, nil).Wrap(func(context.Context, defaults.Inputs, string) (models.Outcome, error) {
		return models.Outcome{}, boom
	})

	_, err := w.Score(context.Background(), defaults.Inputs{}, "m", Options{Emit: true})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, sink.calls, "only the input snapshot was emitted")
}

func TestScoreSinkFailureAbortsCall(t *testing.T) {
	sink := &countingSink{err: errors.New("store unreachable")}
	w := newInstrument(sink, nil).Wrap(simpleModel)

	_, err := w.Score(context.Background(), defaults.Inputs{"x": 1, "y": 2}, "m", Options{Emit: true})
	require.Error(t, err)

	var emitErr *emitter.Error
	require.ErrorAs(t, err, &emitErr)
	assert.Equal(t, emitter.StageInputs, emitErr.Stage)
}

func TestScoreLogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	w := newInstrument(nil, &buf).Wrap(simpleModel)

	_, err := w.Score(context.Background(), defaults.Inputs{"x": 1, "y": 2}, "m", Options{})
	require.NoError(t, err)
	assert.Zero(t, buf.Len(), "no log without a level")

	_, err = w.Score(context.Background(), defaults.Inputs{"x": 1, "y": 2}, "m", Options{LogLevel: "warning", FlowUUID: "f"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"flow_uuid":"f"`)
	assert.Contains(t, buf.String(), `"error":{"error":[]}`)
}

func TestMeasure(t *testing.T) {
	_, fast, err := Measure(func() (models.Outcome, error) { return models.Outcome{}, nil })
	require.NoError(t, err)
	assert.GreaterOrEqual(t, fast, time.Duration(0))

	_, slow, err := Measure(func() (models.Outcome, error) {
		time.Sleep(20 * time.Millisecond)
		return models.Outcome{}, nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, slow, 20*time.Millisecond)
	assert.Greater(t, slow, fast)
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions([]byte(`{"emit":true,"log_level":"info","execution_uuid":"e","flow_uuid":"f",
		"variable_defaults":{"x":[{"replacement_value":"Y","values_to_replace":"All"}]}}`))
	require.NoError(t, err)
	assert.True(t, opts.Emit)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, "e", opts.ExecutionUUID)
	assert.Equal(t, "f", opts.FlowUUID)
	require.Len(t, opts.VariableDefaults["x"], 1)
	assert.True(t, defaults.IsWildcard(opts.VariableDefaults["x"][0].ValuesToReplace))

	_, err = DecodeOptions([]byte(`{"emit":true,"retries":3}`))
	assert.ErrorIs(t, err, ErrUnknownOption)

	_, err = DecodeOptions([]byte(`{"emit":"yes"}`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownOption)

	opts, err = DecodeOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, Options{}, opts)
}

// Package wrapper gives every scoring function the same execution contract:
// inputs are defaulted, the call is timed, the input, result and model-run
// records are emitted, and the outcome is optionally logged.
package wrapper

import (
	"context"
	"time"

	"github.com/aigoflow/scoring-service/internal/defaults"
	"github.com/aigoflow/scoring-service/internal/emitter"
	"github.com/aigoflow/scoring-service/internal/logging"
	"github.com/aigoflow/scoring-service/internal/models"
)

// ScoringFunc is a model. The returned Outcome carries the result and any
// business-level error; a non-nil error aborts the call.
type ScoringFunc func(ctx context.Context, inputs defaults.Inputs, modelName string) (models.Outcome, error)

// Scorer is the uniform calling contract exposed to callers.
type Scorer interface {
	Score(ctx context.Context, inputs defaults.Inputs, modelName string, opts Options) (any, error)
}

// Instrument holds the collaborators shared by every wrapped function.
// Build one per process and pass it where functions are wrapped.
type Instrument struct {
	pipeline *emitter.Pipeline
	gate     *logging.Gate
	now      func() time.Time
}

func NewInstrument(pipeline *emitter.Pipeline, gate *logging.Gate) *Instrument {
	if pipeline == nil {
		pipeline = emitter.NewPipeline(nil)
	}
	if gate == nil {
		gate = logging.NewGate(nil)
	}
	return &Instrument{pipeline: pipeline, gate: gate, now: time.Now}
}

// Wrap returns fn behind the Scorer contract.
func (in *Instrument) Wrap(fn ScoringFunc) *Wrapped {
	return &Wrapped{fn: fn, in: in}
}

// Wrapped is a scoring function bound to an Instrument.
type Wrapped struct {
	fn ScoringFunc
	in *Instrument
}

// Score runs the wrapped function and returns only its result. The outcome's
// Error is surfaced through emission and logging, never returned.
func (w *Wrapped) Score(ctx context.Context, inputs defaults.Inputs, modelName string, opts Options) (any, error) {
	ec := models.ExecutionContext{
		ModelName:     modelName,
		ExecutionUUID: opts.ExecutionUUID,
		FlowUUID:      opts.FlowUUID,
	}
	startedAt := w.in.now()

	if err := w.in.pipeline.PreRun(ctx, opts.Emit, ec, inputs, startedAt); err != nil {
		return nil, err
	}

	if opts.VariableDefaults != nil {
		var err error
		if inputs, err = defaults.Transform(inputs, opts.VariableDefaults); err != nil {
			return nil, err
		}
	}

	out, elapsed, err := Measure(func() (models.Outcome, error) {
		return w.fn(ctx, inputs, modelName)
	})
	if err != nil {
		return nil, err
	}

	if err := w.in.pipeline.PostRun(ctx, opts.Emit, ec, out, elapsed, startedAt); err != nil {
		return nil, err
	}

	if opts.LogLevel != "" {
		w.in.gate.Log(ctx, opts.LogLevel, emitter.BuildModelRun(ec, out, elapsed))
	}

	return out.Result, nil
}

// ScorerFunc adapts an ordinary function to Scorer.
type ScorerFunc func(ctx context.Context, inputs defaults.Inputs, modelName string, opts Options) (any, error)

func (f ScorerFunc) Score(ctx context.Context, inputs defaults.Inputs, modelName string, opts Options) (any, error) {
	return f(ctx, inputs, modelName, opts)
}

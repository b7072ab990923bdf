// Package emitter builds the three records produced around a scoring call
// and forwards them to the inputs, results and model-run sinks.
package emitter

import (
	"context"
	"fmt"
	"time"

	"github.com/aigoflow/scoring-service/internal/models"
)

// Emission stages
const (
	StageInputs    = "inputs"
	StageResults   = "results"
	StageModelRuns = "model_runs"
)

// Emitter is implemented by every downstream sink. Each call is synchronous.
type Emitter interface {
	EmitInputs(ctx context.Context, rec *models.InputRecord, tags models.Tags) error
	EmitResults(ctx context.Context, rec *models.ResultRecord, tags models.Tags) error
	EmitModelRuns(ctx context.Context, rec *models.ModelRun, tags models.Tags) error
}

// Error reports a sink failure and the stage it happened in.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("emit %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pipeline shapes records and hands them to an Emitter when emission is
// enabled for the call.
type Pipeline struct {
	emitter Emitter
}

func NewPipeline(e Emitter) *Pipeline {
	if e == nil {
		e = Nop{}
	}
	return &Pipeline{emitter: e}
}

// PreRun forwards the input snapshot.
func (p *Pipeline) PreRun(ctx context.Context, enabled bool, ec models.ExecutionContext, inputs map[string]any, startedAt time.Time) error {
	if !enabled {
		return nil
	}
	rec := BuildInputRecord(ec, inputs, startedAt)
	if err := p.emitter.EmitInputs(ctx, rec, ec.Tags()); err != nil {
		return &Error{Stage: StageInputs, Err: err}
	}
	return nil
}

// PostRun forwards the result snapshot followed by the audit record.
func (p *Pipeline) PostRun(ctx context.Context, enabled bool, ec models.ExecutionContext, out models.Outcome, elapsed time.Duration, startedAt time.Time) error {
	if !enabled {
		return nil
	}
	tags := ec.Tags()

	if err := p.emitter.EmitResults(ctx, BuildResultRecord(ec, out, elapsed, startedAt), tags); err != nil {
		return &Error{Stage: StageResults, Err: err}
	}
	if err := p.emitter.EmitModelRuns(ctx, BuildModelRun(ec, out, elapsed), tags); err != nil {
		return &Error{Stage: StageModelRuns, Err: err}
	}
	return nil
}

// BuildInputRecord copies inputs so the snapshot is unaffected by defaulting.
// The record builders all pass values through jsonSafe so every sink can
// encode them.
func BuildInputRecord(ec models.ExecutionContext, inputs map[string]any, startedAt time.Time) *models.InputRecord {
	return &models.InputRecord{
		Inputs:    safeInputs(inputs),
		CreatedAt: startedAt,
		UpdatedAt: startedAt,
		UUID:      ec.ExecutionUUID,
		ModelName: ec.ModelName,
		CreatedBy: models.CreatedBy,
	}
}

func BuildResultRecord(ec models.ExecutionContext, out models.Outcome, elapsed time.Duration, startedAt time.Time) *models.ResultRecord {
	result := jsonSafe(out.Result)
	return &models.ResultRecord{
		Result:        result,
		Response:      result,
		CreatedAt:     startedAt,
		UpdatedAt:     startedAt,
		UUID:          ec.ExecutionUUID,
		ExecutionTime: elapsed.Seconds(),
	}
}

func BuildModelRun(ec models.ExecutionContext, out models.Outcome, elapsed time.Duration) *models.ModelRun {
	return &models.ModelRun{
		ModelName:     ec.ModelName,
		ExecutionTime: elapsed.Seconds(),
		Result:        jsonSafe(out.Result),
		Error:         jsonSafe(out.Error),
		ExecutionUUID: ec.ExecutionUUID,
		FlowUUID:      ec.FlowUUID,
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) EmitInputs(context.Context, *models.InputRecord, models.Tags) error { return nil }
func (Nop) EmitResults(context.Context, *models.ResultRecord, models.Tags) error { return nil }
func (Nop) EmitModelRuns(context.Context, *models.ModelRun, models.Tags) error { return nil }

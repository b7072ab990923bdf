package emitter

import (
	"context"

	"github.com/aigoflow/scoring-service/internal/models"
)

// Multi fans every record out to each emitter in order and stops at the
// first failure.
type Multi []Emitter

func (m Multi) EmitInputs(ctx context.Context, rec *models.InputRecord, tags models.Tags) error {
	for _, e := range m {
		if err := e.EmitInputs(ctx, rec, tags); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) EmitResults(ctx context.Context, rec *models.ResultRecord, tags models.Tags) error {
	for _, e := range m {
		if err := e.EmitResults(ctx, rec, tags); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) EmitModelRuns(ctx context.Context, rec *models.ModelRun, tags models.Tags) error {
	for _, e := range m {
		if err := e.EmitModelRuns(ctx, rec, tags); err != nil {
			return err
		}
	}
	return nil
}

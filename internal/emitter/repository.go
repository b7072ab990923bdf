package emitter

import (
	"context"

	"github.com/aigoflow/scoring-service/internal/models"
	"github.com/aigoflow/scoring-service/internal/repository"
)

// RepositoryEmitter persists records through the SQL repositories.
type RepositoryEmitter struct {
	repo repository.Repository
}

func NewRepositoryEmitter(repo repository.Repository) *RepositoryEmitter {
	return &RepositoryEmitter{repo: repo}
}

func (e *RepositoryEmitter) EmitInputs(ctx context.Context, rec *models.InputRecord, tags models.Tags) error {
	return e.repo.Input().SaveInput(ctx, rec, tags)
}

func (e *RepositoryEmitter) EmitResults(ctx context.Context, rec *models.ResultRecord, tags models.Tags) error {
	return e.repo.Result().SaveResult(ctx, rec, tags)
}

func (e *RepositoryEmitter) EmitModelRuns(ctx context.Context, rec *models.ModelRun, tags models.Tags) error {
	return e.repo.ModelRun().SaveModelRun(ctx, rec, tags)
}

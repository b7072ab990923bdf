package repository

import (
	"context"

	"github.com/aigoflow/scoring-service/internal/models"
)

// Repository aggregates all repository interfaces
type Repository interface {
	Input() InputRepositoryInterface
	Result() ResultRepositoryInterface
	ModelRun() ModelRunRepositoryInterface
	Event() EventRepositoryInterface
}

// InputRepositoryInterface persists pre-run input snapshots
type InputRepositoryInterface interface {
	SaveInput(ctx context.Context, rec *models.InputRecord, tags models.Tags) error
}

// ResultRepositoryInterface persists post-run result snapshots
type ResultRepositoryInterface interface {
	SaveResult(ctx context.Context, rec *models.ResultRecord, tags models.Tags) error
}

// ModelRunRepositoryInterface defines audit trail operations
type ModelRunRepositoryInterface interface {
	SaveModelRun(ctx context.Context, rec *models.ModelRun, tags models.Tags) error
	ListModelRuns(ctx context.Context, modelName string, limit int) ([]*models.StoredRun, error)
}

// EventRepositoryInterface defines event logging operations
type EventRepositoryInterface interface {
	LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error
}

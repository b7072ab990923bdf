package repository

import (
	"context"
	"time"

	"github.com/aigoflow/scoring-service/internal/models"
	"github.com/aigoflow/scoring-service/internal/store"
)

// SQLRepository implements Repository on top of the record store
type SQLRepository struct {
	inputRepo    InputRepositoryInterface
	resultRepo   ResultRepositoryInterface
	modelRunRepo ModelRunRepositoryInterface
	eventRepo    EventRepositoryInterface
}

func NewSQLRepository(db *store.DB) Repository {
	return &SQLRepository{
		inputRepo:    &SQLInputRepository{db: db},
		resultRepo:   &SQLResultRepository{db: db},
		modelRunRepo: &SQLModelRunRepository{db: db},
		eventRepo:    &SQLEventRepository{db: db},
	}
}

func (r *SQLRepository) Input() InputRepositoryInterface {
	return r.inputRepo
}

func (r *SQLRepository) Result() ResultRepositoryInterface {
	return r.resultRepo
}

func (r *SQLRepository) ModelRun() ModelRunRepositoryInterface {
	return r.modelRunRepo
}

func (r *SQLRepository) Event() EventRepositoryInterface {
	return r.eventRepo
}

type SQLInputRepository struct {
	db *store.DB
}

func (r *SQLInputRepository) SaveInput(ctx context.Context, rec *models.InputRecord, tags models.Tags) error {
	return r.db.Input(ctx, rec.CreatedAt, rec.ModelName, rec.UUID, rec.CreatedBy, rec.Inputs, tags)
}

type SQLResultRepository struct {
	db *store.DB
}

func (r *SQLResultRepository) SaveResult(ctx context.Context, rec *models.ResultRecord, tags models.Tags) error {
	return r.db.Result(ctx, rec.CreatedAt, tags[models.TagModelName], rec.UUID, rec.ExecutionTime, rec.Result, tags)
}

// SQLModelRunRepository handles the audit trail
type SQLModelRunRepository struct {
	db *store.DB
}

func (r *SQLModelRunRepository) SaveModelRun(ctx context.Context, rec *models.ModelRun, tags models.Tags) error {
	return r.db.ModelRun(ctx, time.Now(), rec.ModelName, rec.ExecutionUUID, rec.FlowUUID, rec.ExecutionTime, rec.Result, rec.Error, tags)
}

func (r *SQLModelRunRepository) ListModelRuns(ctx context.Context, modelName string, limit int) ([]*models.StoredRun, error) {
	rows, err := r.db.ModelRuns(ctx, modelName, limit)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.StoredRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, &models.StoredRun{
			ID:            row.ID,
			Timestamp:     row.Timestamp,
			ModelName:     row.ModelName,
			ExecutionUUID: row.ExecutionUUID,
			FlowUUID:      row.FlowUUID,
			ExecutionTime: row.ExecutionTime,
			ResultJSON:    row.ResultJSON,
			ErrorJSON:     row.ErrorJSON,
		})
	}
	return runs, nil
}

// SQLEventRepository handles event logging
type SQLEventRepository struct {
	db *store.DB
}

func (r *SQLEventRepository) LogEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) error {
	return r.db.Event(level, code, msg, meta)
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aigoflow/scoring-service/internal/catalog"
	"github.com/aigoflow/scoring-service/internal/config"
	"github.com/aigoflow/scoring-service/internal/defaults"
	"github.com/aigoflow/scoring-service/internal/models"
	"github.com/aigoflow/scoring-service/internal/repository"
	"github.com/aigoflow/scoring-service/internal/wrapper"
)

// ErrNoAuditStore is returned when model runs are queried without a database sink.
var ErrNoAuditStore = errors.New("audit store not configured")

type ScoreRequest struct {
	TraceID string          `json:"trace_id,omitempty"`
	ReqID   string          `json:"req_id"`
	Model   string          `json:"model"`
	Inputs  map[string]any  `json:"inputs"`
	Options json.RawMessage `json:"options,omitempty"`
	ReplyTo string          `json:"reply_to,omitempty"`
}

type ScoreResponse struct {
	ReqID      string `json:"req_id"`
	Model      string `json:"model"`
	Result     any    `json:"result"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type ScoringService struct {
	catalog *catalog.Catalog
	rules   *config.RuleStore
	repo    repository.Repository
}

// NewScoringService wires the catalog to the transports. rules and repo may
// be nil.
func NewScoringService(cat *catalog.Catalog, rules *config.RuleStore, repo repository.Repository) *ScoringService {
	if rules == nil {
		rules = config.NewRuleStore(nil)
	}
	return &ScoringService{
		catalog: cat,
		rules:   rules,
		repo:    repo,
	}
}

func (s *ScoringService) ProcessScore(ctx context.Context, req ScoreRequest, source string, workerID string) (response *ScoreResponse, err error) {
	start := time.Now()

	// One misbehaving model must not take the worker down with it
	defer func() {
		if r := recover(); r != nil {
			errStr := fmt.Sprintf("scoring panic: %v", r)
			s.logEvent(ctx, "error", "score.panic", errStr, map[string]interface{}{
				"req_id":    req.ReqID,
				"trace_id":  req.TraceID,
				"model":     req.Model,
				"source":    source,
				"worker_id": workerID,
			})

			response = &ScoreResponse{
				ReqID:      req.ReqID,
				Model:      req.Model,
				DurationMs: time.Since(start).Milliseconds(),
				Error:      errStr,
			}
			err = errors.New(errStr)
		}
	}()

	response = &ScoreResponse{ReqID: req.ReqID, Model: req.Model}

	opts, err := wrapper.DecodeOptions(req.Options)
	if err != nil {
		response.Error = err.Error()
		return response, err
	}

	scorer, err := s.catalog.Get(req.Model)
	if err != nil {
		response.Error = err.Error()
		return response, err
	}

	if opts.VariableDefaults == nil {
		if rules, ok := s.rules.For(req.Model); ok {
			opts.VariableDefaults = rules
		}
	}

	inputs := defaults.Inputs(req.Inputs)
	if inputs == nil {
		inputs = defaults.Inputs{}
	}

	slog.Debug("Scoring request",
		"req_id", req.ReqID,
		"trace_id", req.TraceID,
		"model", req.Model,
		"source", source,
		"worker_id", workerID,
		"emit", opts.Emit)

	result, err := scorer.Score(ctx, inputs, req.Model, opts)
	response.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		response.Error = err.Error()
		return response, err
	}

	response.Result = result
	return response, nil
}

func (s *ScoringService) logEvent(ctx context.Context, level, code, msg string, meta map[string]interface{}) {
	if s.repo == nil {
		slog.Error(msg, "code", code)
		return
	}
	if err := s.repo.Event().LogEvent(ctx, level, code, msg, meta); err != nil {
		slog.Warn("Failed to log event", "code", code, "error", err)
	}
}

// GetModelRuns reads the audit trail, newest first.
func (s *ScoringService) GetModelRuns(ctx context.Context, model string, limit int) ([]*models.StoredRun, error) {
	if s.repo == nil {
		return nil, ErrNoAuditStore
	}
	return s.repo.ModelRun().ListModelRuns(ctx, model, limit)
}

// Models lists the models this service can score.
func (s *ScoringService) Models() []string {
	return s.catalog.Names()
}

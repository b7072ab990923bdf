package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/aigoflow/scoring-service/internal/catalog"
	"github.com/aigoflow/scoring-service/internal/defaults"
	"github.com/aigoflow/scoring-service/internal/metrics"
	"github.com/aigoflow/scoring-service/internal/services"
	"github.com/aigoflow/scoring-service/internal/wrapper"
)

type ScoringHandler struct {
	scoringService *services.ScoringService
	metrics        *metrics.Registry
}

// NewScoringHandler serves the scoring API. registry may be nil, in which
// case /metrics is not registered.
func NewScoringHandler(scoringService *services.ScoringService, registry *metrics.Registry) *ScoringHandler {
	return &ScoringHandler{
		scoringService: scoringService,
		metrics:        registry,
	}
}

func (h *ScoringHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/score", h.handleScore)
	mux.HandleFunc("/v1/models", h.handleModels)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/model-runs", h.handleModelRuns)
	if h.metrics != nil {
		mux.HandleFunc("/metrics", h.handleMetrics)
	}
}

func (h *ScoringHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *ScoringHandler) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var httpReq services.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&httpReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if httpReq.ReqID == "" {
		httpReq.ReqID = "http-" + ulid.Make().String()
	}

	if traceID := r.Header.Get("X-Trace-ID"); traceID != "" {
		httpReq.TraceID = traceID
	}

	response, err := h.scoringService.ProcessScore(r.Context(), httpReq, "http.score", "http-worker")

	resp := map[string]interface{}{
		"req_id": response.ReqID,
		"model":  response.Model,
		"result": response.Result,
		"ms":     response.DurationMs,
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		resp["error"] = response.Error
		w.WriteHeader(statusFor(err))
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, wrapper.ErrUnknownOption), errors.Is(err, defaults.ErrMissingVariable):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *ScoringHandler) handleModels(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"models": h.scoringService.Models()})
}

func (h *ScoringHandler) handleModelRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.scoringService.GetModelRuns(r.Context(), r.URL.Query().Get("model"), limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrNoAuditStore) {
			status = http.StatusNotImplemented
		}
		http.Error(w, fmt.Sprintf("Failed to get model runs: %v", err), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(runs)
}

func (h *ScoringHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := h.metrics.WriteText(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

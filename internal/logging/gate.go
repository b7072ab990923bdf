package logging

import (
	"context"
	"log/slog"

	"github.com/aigoflow/scoring-service/internal/models"
)

// FallbackLevel is used when a caller asks for logging with a level name
// the gate does not know.
const FallbackLevel = slog.LevelError

// Gate forwards finished model runs to a logger when the caller asked for it.
type Gate struct {
	logger *slog.Logger
}

func NewGate(logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{logger: logger}
}

// Log writes run at the severity named by level. An empty level disables
// logging for the call.
func (g *Gate) Log(ctx context.Context, level string, run *models.ModelRun) {
	if level == "" || run == nil {
		return
	}

	lvl, ok := ParseLevel(level)
	if !ok {
		lvl = FallbackLevel
	}

	attrs := []slog.Attr{
		slog.String("model_name", run.ModelName),
		slog.Float64("execution_time", run.ExecutionTime),
		slog.Any("result", run.Result),
		slog.Any("error", run.Error),
		slog.String("log_level", level),
	}
	if run.ExecutionUUID != "" {
		attrs = append(attrs, slog.String("execution_uuid", run.ExecutionUUID))
	}
	if run.FlowUUID != "" {
		attrs = append(attrs, slog.String("flow_uuid", run.FlowUUID))
	}

	g.logger.LogAttrs(ctx, lvl, "model run", attrs...)
}

package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/curator/pkg/domain"
)

// LogHooks logs every lifecycle event at Debug, degradations at Warn and failed runs at Error.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.Debug("Run Start", "run_id", e.RunID, "username", e.Username, "store_id", e.StoreID, "top_k", e.TopK)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			if e.Err != nil {
				logger.Error("Run Failed", "run_id", e.RunID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Debug("Run End", "run_id", e.RunID, "duration", e.Duration, "items", e.Items)
		},
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			logger.Debug("Enter Stage", "run_id", e.RunID, "stage", e.Stage)
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			if e.Degraded {
				logger.Warn("Stage Degraded", "run_id", e.RunID, "stage", e.Stage, "reason", e.Reason)
			}
			logger.Debug("Leave Stage", "run_id", e.RunID, "stage", e.Stage, "duration", e.Duration)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Debug("Tool Call", "run_id", e.RunID, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			if e.IsError {
				logger.Debug("Tool Return (Error)", "run_id", e.RunID, "tool_name", e.ToolName, "err", e.Output)
			} else {
				logger.Debug("Tool Return (Success)", "run_id", e.RunID, "tool_name", e.ToolName)
			}
		},
	}
}

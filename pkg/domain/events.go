package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunEnd     EventType = "run_end"
	EventStageEnter EventType = "stage_enter"
	EventStageLeave EventType = "stage_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// RunEvent marks the beginning or the end of a run.
type RunEvent struct {
	EventBase
	Username string        `json:"username"`
	StoreID  string        `json:"store_id"`
	TopK     int           `json:"top_k"`
	Duration time.Duration `json:"duration,omitempty"`
	Items    int           `json:"items,omitempty"`
	Err      error         `json:"-"`
}

// StageEvent represents entry into or exit from a stage.
type StageEvent struct {
	EventBase
	Stage    StageID       `json:"stage"`
	Duration time.Duration `json:"duration,omitempty"`

	// Degraded is set when the stage completed on a fail-open default.
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"reason,omitempty"`

	Err error `json:"-"`
}

// ToolEvent represents a collaborator call made by a stage.
type ToolEvent struct {
	EventBase
	Stage    StageID       `json:"stage"`
	ToolName string        `json:"tool_name"`
	Input    any           `json:"input,omitempty"`
	Output   any           `json:"output,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunEnd     func(context.Context, *RunEvent)
	OnStageEnter func(context.Context, *StageEvent)
	OnStageLeave func(context.Context, *StageEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

// MergeHooks returns hooks that call every non-nil callback of each set, in order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range sets {
		merged.OnRunStart = chain(merged.OnRunStart, h.OnRunStart)
		merged.OnRunEnd = chain(merged.OnRunEnd, h.OnRunEnd)
		merged.OnStageEnter = chain(merged.OnStageEnter, h.OnStageEnter)
		merged.OnStageLeave = chain(merged.OnStageLeave, h.OnStageLeave)
		merged.OnToolCall = chain(merged.OnToolCall, h.OnToolCall)
		merged.OnToolReturn = chain(merged.OnToolReturn, h.OnToolReturn)
	}
	return merged
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}

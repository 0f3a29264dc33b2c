package cli

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/curator/pkg/domain"
)

// ToolTrace is one collaborator call made by a stage.
type ToolTrace struct {
	Name     string
	Duration time.Duration
	IsError  bool
	Output   any
}

// StageTrace is what one stage did during a run.
type StageTrace struct {
	Stage    domain.StageID
	Duration time.Duration
	Degraded bool
	Reason   string
	Err      error
	Tools    []ToolTrace
}

// Trace records stage and tool events per run so a run can be explained afterwards.
type Trace struct {
	mu   sync.Mutex
	runs map[string][]StageTrace
}

// NewTrace returns an empty recorder.
func NewTrace() *Trace {
	return &Trace{runs: make(map[string][]StageTrace)}
}

// Hooks returns lifecycle hooks that feed the trace.
func (t *Trace) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.runs[e.RunID] = append(t.runs[e.RunID], StageTrace{Stage: e.Stage})
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			t.update(e.RunID, e.Stage, func(s *StageTrace) {
				s.Tools = append(s.Tools, ToolTrace{
					Name:     e.ToolName,
					Duration: e.Duration,
					IsError:  e.IsError,
					Output:   e.Output,
				})
			})
		},
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			t.update(e.RunID, e.Stage, func(s *StageTrace) {
				s.Duration = e.Duration
				s.Degraded = e.Degraded
				s.Reason = e.Reason
				s.Err = e.Err
			})
		},
	}
}

// update applies fn to the open entry of stage, if any.
func (t *Trace) update(runID string, stage domain.StageID, fn func(*StageTrace)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stages := t.runs[runID]
	if n := len(stages); n > 0 && stages[n-1].Stage == stage {
		fn(&stages[n-1])
	}
}

// Stages returns the recorded stages of a run, in execution order.
func (t *Trace) Stages(runID string) []StageTrace {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageTrace, len(t.runs[runID]))
	copy(out, t.runs[runID])
	return out
}

// Forget drops the events of a run.
func (t *Trace) Forget(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.runs, runID)
}

package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/curator/pkg/domain"
)

// ToolGenerate is the tool name reported in events for capability calls.
const ToolGenerate = "generate"

// Deps is the collaborator bundle handed to a single stage invocation.
// It reports every call through the engine's hooks.
type Deps struct {
	engine *Engine
	runID  string
	stage  domain.StageID

	degraded error
}

// HistoryLookup returns the user's purchase history through the traced tool call.
func (d *Deps) HistoryLookup(ctx context.Context, username string) ([]string, error) {
	return call(ctx, d, string(domain.ToolHistoryLookup), map[string]any{"username": username}, func() ([]string, error) {
		return d.engine.tools.HistoryLookup(ctx, username)
	})
}

// InventoryLookup returns the store inventory through the traced tool call.
func (d *Deps) InventoryLookup(ctx context.Context, storeID string) ([]string, error) {
	return call(ctx, d, string(domain.ToolInventoryLookup), map[string]any{"store_id": storeID}, func() ([]string, error) {
		return d.engine.tools.InventoryLookup(ctx, storeID)
	})
}

// Rank orders items through the traced tool call.
func (d *Deps) Rank(ctx context.Context, items []string) ([]string, error) {
	return call(ctx, d, string(domain.ToolRank), map[string]any{"items": items}, func() ([]string, error) {
		return d.engine.tools.Rank(ctx, items)
	})
}

// Generate calls the capability with the engine's per-attempt timeout and retry budget.
// The returned error always wraps domain.ErrCapabilityUnavailable.
func (d *Deps) Generate(ctx context.Context, prompt string) (string, error) {
	return call(ctx, d, ToolGenerate, prompt, func() (string, error) {
		return d.engine.generate(ctx, prompt)
	})
}

// Degrade records that the stage completed on a fail-open default.
func (d *Deps) Degrade(reason error) {
	if reason == nil {
		reason = errors.New("degraded")
	}
	d.degraded = reason
}

func call[T any](ctx context.Context, d *Deps, name string, input any, fn func() (T, error)) (T, error) {
	e := d.engine
	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: d.event(domain.EventToolCall),
			Stage:     d.stage,
			ToolName:  name,
			Input:     input,
		})
	}

	start := time.Now()
	out, err := fn()

	if e.hooks.OnToolReturn != nil {
		ev := &domain.ToolEvent{
			EventBase: d.event(domain.EventToolReturn),
			Stage:     d.stage,
			ToolName:  name,
			Input:     input,
			Output:    out,
			Duration:  time.Since(start),
			IsError:   err != nil,
		}
		if err != nil {
			ev.Output = err.Error()
		}
		e.hooks.OnToolReturn(ctx, ev)
	}
	return out, err
}

func (d *Deps) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: d.runID}
}

func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	if e.capability == nil {
		return "", fmt.Errorf("%w: no capability configured", domain.ErrCapabilityUnavailable)
	}

	var err error
	for attempt := 0; attempt <= e.capabilityRetries; attempt++ {
		if attempt > 0 {
			e.logger.Debug("Retrying capability", "attempt", attempt, "err", err)
		}

		var text string
		text, err = e.generateOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return "", err
}

func (e *Engine) generateOnce(ctx context.Context, prompt string) (string, error) {
	if e.capabilityTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.capabilityTimeout)
		defer cancel()
	}

	text, err := e.capability.Generate(ctx, prompt)
	if err == nil {
		return text, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", e.capabilityTimeout, err)
	}
	if !errors.Is(err, domain.ErrCapabilityUnavailable) {
		err = fmt.Errorf("%w: %w", domain.ErrCapabilityUnavailable, err)
	}
	return "", err
}

package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/curator/internal/logging"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports"
	"github.com/aretw0/curator/pkg/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/aretw0/curator/internal/runtime"

	// DefaultCapabilityTimeout bounds a single capability attempt.
	DefaultCapabilityTimeout = 60 * time.Second
)

// Engine executes a Pipeline over a State.
// It holds no per-run data and is safe for concurrent use.
type Engine struct {
	pipeline   *Pipeline
	tools      *registry.Registry
	capability ports.Capability

	capabilityTimeout time.Duration
	capabilityRetries int

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	tracer trace.Tracer
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithPipeline replaces the default four-stage pipeline.
func WithPipeline(p *Pipeline) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.pipeline = p
		}
	}
}

// WithCapabilityTimeout sets the per-attempt deadline. Zero disables it.
func WithCapabilityTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.capabilityTimeout = d
		}
	}
}

// WithCapabilityRetries sets how many extra attempts a failed capability call gets.
func WithCapabilityRetries(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.capabilityRetries = n
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracerProvider sets where spans are exported. The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewEngine creates an engine over the given tools and capability.
// A nil capability makes every run degrade at BuildCandidates.
func NewEngine(tools *registry.Registry, capability ports.Capability, opts ...EngineOption) *Engine {
	e := &Engine{
		pipeline:          DefaultPipeline(),
		tools:             tools,
		capability:        capability,
		capabilityTimeout: DefaultCapabilityTimeout,
		logger:            logging.NewNop(),
		tracer:            otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Pipeline returns the stages this engine executes.
func (e *Engine) Pipeline() *Pipeline {
	return e.pipeline
}

// Start creates a fresh state positioned at StageStart.
func (e *Engine) Start(_ context.Context, username, storeID string, topK int) (*domain.State, error) {
	return domain.NewState(username, storeID, topK)
}

// Step runs the next stage to completion and advances the cursor.
// On failure the state must be discarded; the returned error is a *StageError.
func (e *Engine) Step(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state.Terminated() {
		return nil, ErrTerminal
	}

	id := e.pipeline.Next(state.Stage())
	stage, ok := e.pipeline.Stage(id)
	if !ok {
		return nil, &StageError{Stage: state.Stage(), Err: fmt.Errorf("%w: unknown stage %s", ErrInvalidPipeline, state.Stage())}
	}
	if err := ctx.Err(); err != nil {
		return nil, &StageError{Stage: id, Err: err}
	}

	runID := RunID(ctx)
	ctx, span := e.tracer.Start(ctx, "stage."+string(id), trace.WithAttributes(
		attribute.String("curator.stage", string(id)),
		attribute.String("curator.run_id", runID),
	))
	defer span.End()

	deps := &Deps{engine: e, runID: runID, stage: id}
	if e.hooks.OnStageEnter != nil {
		e.hooks.OnStageEnter(ctx, &domain.StageEvent{
			EventBase: deps.event(domain.EventStageEnter),
			Stage:     id,
		})
	}
	e.logger.Debug("Entering stage", "run_id", runID, "stage", id)

	start := time.Now()
	err := stage.Run(ctx, state, deps)
	if err == nil {
		err = checkWrites(stage, state)
	}
	elapsed := time.Since(start)

	if e.hooks.OnStageLeave != nil {
		ev := &domain.StageEvent{
			EventBase: deps.event(domain.EventStageLeave),
			Stage:     id,
			Duration:  elapsed,
			Degraded:  deps.degraded != nil,
			Err:       err,
		}
		if deps.degraded != nil {
			ev.Reason = deps.degraded.Error()
		}
		e.hooks.OnStageLeave(ctx, ev)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("Stage failed", "run_id", runID, "stage", id, "err", err)
		return nil, &StageError{Stage: id, Err: err}
	}
	if deps.degraded != nil {
		span.SetAttributes(attribute.Bool("curator.degraded", true))
		span.AddEvent("degraded", trace.WithAttributes(attribute.String("reason", deps.degraded.Error())))
		e.logger.Warn("Stage degraded", "run_id", runID, "stage", id, "reason", deps.degraded)
	}

	state.Advance(id)
	if e.pipeline.Next(id) == domain.StageTerminal {
		state.Advance(domain.StageTerminal)
	}
	return state, nil
}

// Run steps the state until it reaches Terminal. A fatal stage error aborts the run
// and no partial state is returned.
func (e *Engine) Run(ctx context.Context, state *domain.State) (result *domain.State, err error) {
	if state == nil {
		return nil, errors.New("nil state")
	}
	username, storeID, topK := state.Username(), state.StoreID(), state.TopK()
	runID := RunID(ctx)
	ctx, span := e.tracer.Start(ctx, "curator.run", trace.WithAttributes(
		attribute.String("curator.run_id", runID),
		attribute.String("curator.username", username),
		attribute.String("curator.store_id", storeID),
		attribute.Int("curator.top_k", topK),
	))
	defer span.End()

	base := func(t domain.EventType) domain.EventBase {
		return domain.EventBase{Timestamp: time.Now(), Type: t, RunID: runID}
	}
	if e.hooks.OnRunStart != nil {
		e.hooks.OnRunStart(ctx, &domain.RunEvent{
			EventBase: base(domain.EventRunStart),
			Username:  username,
			StoreID:   storeID,
			TopK:      topK,
		})
	}

	start := time.Now()
	defer func() {
		ev := &domain.RunEvent{
			EventBase: base(domain.EventRunEnd),
			Username:  username,
			StoreID:   storeID,
			TopK:      topK,
			Duration:  time.Since(start),
			Err:       err,
		}
		if result != nil && result.Result() != nil {
			ev.Items = len(result.Result().Items)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if e.hooks.OnRunEnd != nil {
			e.hooks.OnRunEnd(ctx, ev)
		}
	}()

	for !state.Terminated() {
		if state, err = e.Step(ctx, state); err != nil {
			return nil, err
		}
	}
	return state, nil
}

func checkWrites(stage Stage, state *domain.State) error {
	var missing []error
	for _, f := range stage.Writes {
		if !state.Written(f) {
			missing = append(missing, fmt.Errorf("%w: %s", ErrStageContract, f))
		}
	}
	return errors.Join(missing...)
}

type runIDKey struct{}

// WithRunID attaches a run identifier to ctx; it is reported in events and spans.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID returns the identifier attached with WithRunID, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

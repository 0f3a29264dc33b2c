package curator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/curator/internal/logging"
	"github.com/aretw0/curator/internal/runtime"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports"
	"github.com/aretw0/curator/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrNoCatalog is returned by New when no catalog was configured.
var ErrNoCatalog = errors.New("curator: a catalog is required")

// Request identifies one recommendation run.
type Request struct {
	// RunID is optional; a UUID is generated when empty.
	RunID    string `json:"run_id,omitempty" yaml:"run_id"`
	Username string `json:"username" yaml:"username"`
	StoreID  string `json:"store_id" yaml:"store_id"`
	TopK     int    `json:"top_k" yaml:"top_k"`
}

// Engine is the high-level entry point for the curator library.
// It wraps the internal runtime and is safe for concurrent use.
type Engine struct {
	runtime  *runtime.Engine
	tools    *registry.Registry
	results  ports.ResultStore
	logger   *slog.Logger
	now      func() time.Time
	catalog  ports.Catalog
	cap      ports.Capability
	ranker   registry.Ranker
	hooks    domain.LifecycleHooks
	tracerTP trace.TracerProvider

	capabilityTimeout time.Duration
	capabilityRetries int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithCatalog sets where user histories and store inventories are read from.
func WithCatalog(c ports.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithCapability sets the language-model client used to build candidates.
func WithCapability(c ports.Capability) Option {
	return func(e *Engine) {
		e.cap = c
	}
}

// WithCapabilityTimeout bounds each capability attempt (default 60s).
func WithCapabilityTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.capabilityTimeout = d
	}
}

// WithCapabilityRetries sets extra attempts after a failed capability call (default 0).
func WithCapabilityRetries(n int) Option {
	return func(e *Engine) {
		e.capabilityRetries = n
	}
}

// WithRanker replaces the lexicographic ranking.
func WithRanker(r registry.Ranker) Option {
	return func(e *Engine) {
		e.ranker = r
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithTracerProvider sets the OpenTelemetry provider for run and stage spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracerTP = tp
	}
}

// WithResultStore persists every completed run as a domain.RunRecord.
func WithResultStore(s ports.ResultStore) Option {
	return func(e *Engine) {
		e.results = s
	}
}

// New initializes an Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{
		capabilityTimeout: runtime.DefaultCapabilityTimeout,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.catalog == nil {
		return nil, ErrNoCatalog
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.cap == nil {
		eng.logger.Warn("No capability configured; every run will have empty candidates")
	}

	eng.tools = registry.New(eng.catalog, registry.WithRanker(eng.ranker))
	eng.runtime = runtime.NewEngine(eng.tools, eng.cap,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithTracerProvider(eng.tracerTP),
		runtime.WithCapabilityTimeout(eng.capabilityTimeout),
		runtime.WithCapabilityRetries(eng.capabilityRetries),
	)
	return eng, nil
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Run executes the full pipeline and returns the terminal state.
// On a fatal error no state is returned and the error is a *runtime.StageError.
func (e *Engine) Run(ctx context.Context, req Request) (*domain.State, error) {
	if req.RunID == "" {
		req.RunID = NewRunID()
	}
	ctx = runtime.WithRunID(ctx, req.RunID)

	state, err := e.runtime.Start(ctx, req.Username, req.StoreID, req.TopK)
	if err != nil {
		return nil, err
	}
	final, err := e.runtime.Run(ctx, state)
	if err != nil {
		return nil, err
	}

	if e.results != nil {
		record := domain.RunRecord{
			RunID:     req.RunID,
			Username:  req.Username,
			StoreID:   req.StoreID,
			TopK:      req.TopK,
			Items:     final.Result().Items,
			CreatedAt: e.now().UTC(),
		}
		// The recommendation stands even when it cannot be recorded.
		if err := e.results.Save(ctx, record); err != nil {
			e.logger.Warn("Failed to save run", "run_id", req.RunID, "err", err)
		}
	}
	return final, nil
}

// Recommend runs the pipeline and returns only the result.
func (e *Engine) Recommend(ctx context.Context, req Request) (*domain.Recommendation, error) {
	state, err := e.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return state.Result(), nil
}

// BatchResult is the outcome of one request in a batch.
type BatchResult struct {
	Request Request  `json:"request"`
	Items   []string `json:"items,omitempty"`
	Err     error    `json:"-"`
}

// RecommendBatch runs independent requests with at most concurrency runs in flight.
// Results keep the order of reqs; one failing request does not stop the others.
func (e *Engine) RecommendBatch(ctx context.Context, reqs []Request, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	out := make([]BatchResult, len(reqs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		if req.RunID == "" {
			req.RunID = NewRunID()
		}
		out[i].Request = req
		g.Go(func() error {
			rec, err := e.Recommend(ctx, req)
			if err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Items = rec.Items
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Records returns the configured result store, or nil.
func (e *Engine) Records() ports.ResultStore {
	return e.results
}

// Tools returns the tool registry backing this engine.
func (e *Engine) Tools() *registry.Registry {
	return e.tools
}

// Pipeline returns the stages this engine executes.
func (e *Engine) Pipeline() *runtime.Pipeline {
	return e.runtime.Pipeline()
}

// Record loads a saved run by ID.
func (e *Engine) Record(ctx context.Context, runID string) (domain.RunRecord, error) {
	if e.results == nil {
		return domain.RunRecord{}, fmt.Errorf("%w: no result store configured", domain.ErrRunNotFound)
	}
	return e.results.Load(ctx, runID)
}

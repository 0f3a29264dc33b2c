package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/curator"
	"github.com/aretw0/curator/internal/config"
	"github.com/aretw0/curator/pkg/adapters/file"
	loamadapter "github.com/aretw0/curator/pkg/adapters/loam"
	"github.com/aretw0/curator/pkg/adapters/memory"
	"github.com/aretw0/curator/pkg/adapters/process"
	redisadapter "github.com/aretw0/curator/pkg/adapters/redis"
	"github.com/aretw0/curator/pkg/adapters/sqlite"
	"github.com/aretw0/curator/pkg/capability"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/observability"
	"github.com/aretw0/curator/pkg/persistence/middleware"
	"github.com/aretw0/curator/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// CatalogDB is the sqlite file created under the data directory by the sqlite backend.
	CatalogDB = "catalog.db"
	// CommandsFile may define named commands for the process provider.
	CommandsFile = "commands.yaml"
)

// Runtime bundles an engine with the resources it owns.
type Runtime struct {
	Engine  *curator.Engine
	Catalog ports.Catalog
	Metrics *prometheus.Registry
	// Trace is nil unless RuntimeOptions.Explain was set.
	Trace *Trace

	closers []func() error
}

// Close releases the catalog and result store connections.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	return errors.Join(errs...)
}

// RuntimeOptions selects the optional hooks of a Runtime.
type RuntimeOptions struct {
	// Debug logs every stage and tool event.
	Debug bool
	// Explain keeps a Trace of each run for Explain reports.
	Explain bool
}

// NewRuntime initializes a curator engine with standard CLI conventions.
func NewRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	rt := &Runtime{Metrics: prometheus.NewRegistry()}

	catalog, err := rt.openCatalog(ctx, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Catalog = catalog

	results, err := rt.openResults(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	c, err := NewCapability(cfg, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	metrics := observability.NewMetrics(rt.Metrics)
	hooks := []domain.LifecycleHooks{metrics.Hooks()}
	if opts.Explain {
		rt.Trace = NewTrace()
		hooks = append(hooks, rt.Trace.Hooks())
	}
	if opts.Debug {
		hooks = append(hooks, observability.LogHooks(logger))
	}

	engineOpts := []curator.Option{
		curator.WithCatalog(catalog),
		curator.WithLogger(logger),
		curator.WithLifecycleHooks(domain.MergeHooks(hooks...)),
		curator.WithCapabilityTimeout(cfg.Capability.Timeout),
		curator.WithCapabilityRetries(cfg.Capability.Retries),
	}
	if c != nil {
		engineOpts = append(engineOpts, curator.WithCapability(c))
	}
	if results != nil {
		engineOpts = append(engineOpts, curator.WithResultStore(results))
	}

	eng, err := curator.New(engineOpts...)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	rt.Engine = eng
	return rt, nil
}

func (rt *Runtime) openCatalog(ctx context.Context, cfg config.Config) (ports.Catalog, error) {
	flat := file.NewCatalog(cfg.DataDir)

	switch cfg.Backend {
	case "file":
		return flat, nil
	case "loam":
		c, err := loamadapter.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open loam catalog: %w", err)
		}
		return c, nil
	case "memory":
		users, stores, err := snapshot(ctx, flat)
		if err != nil {
			return nil, err
		}
		return memory.NewCatalog(users, stores), nil
	case "sqlite":
		db, err := sqlite.Open(filepath.Join(cfg.DataDir, CatalogDB))
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, db.Close)
		// The flat files are the source of truth; each start refreshes the database.
		users, stores, err := snapshot(ctx, flat)
		if err != nil {
			return nil, err
		}
		if err := db.Seed(ctx, users, stores); err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func snapshot(ctx context.Context, l ports.Lister) ([]domain.UserPurchase, []domain.StoreInventory, error) {
	users, err := l.ListUsers(ctx)
	if err != nil {
		return nil, nil, err
	}
	stores, err := l.ListStores(ctx)
	if err != nil {
		return nil, nil, err
	}
	return users, stores, nil
}

func (rt *Runtime) openResults(cfg config.Config) (ports.ResultStore, error) {
	var store ports.ResultStore
	switch cfg.Results.Kind {
	case "none":
		return nil, nil
	case "file":
		store = file.NewStore(cfg.Results.Dir)
	case "redis":
		if cfg.Results.RedisAddr == "" {
			return nil, errors.New("results.redis_addr is required for the redis result store")
		}
		rs := redisadapter.New(cfg.Results.RedisAddr, "", 0, redisadapter.WithTTL(cfg.Results.TTL))
		rt.closers = append(rt.closers, rs.Close)
		store = rs
	default:
		return nil, fmt.Errorf("unknown results kind %q", cfg.Results.Kind)
	}

	mws, err := resultMiddleware(cfg.Results)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, mws...), nil
}

// resultMiddleware builds the redaction and encryption layers, redaction outermost.
func resultMiddleware(rc config.ResultsConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(rc.Redact) > 0 {
		mw, err := middleware.NewRedactionMiddleware(rc.Redact)
		if err != nil {
			return nil, fmt.Errorf("results.redact: %w", err)
		}
		mws = append(mws, mw)
	}
	if rc.EncryptionKey != "" {
		active, err := middleware.DecodeKey(rc.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("results.encryption_key: %w", err)
		}
		var fallback [][]byte
		for i, k := range rc.FallbackKeys {
			key, err := middleware.DecodeKey(k)
			if err != nil {
				return nil, fmt.Errorf("results.fallback_keys[%d]: %w", i, err)
			}
			fallback = append(fallback, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// NewCapability builds the configured language-model client.
func NewCapability(cfg config.Config, logger *slog.Logger) (ports.Capability, error) {
	cc := cfg.Capability
	switch cc.Provider {
	case "ollama":
		return capability.NewOllama(capability.OllamaConfig{BaseURL: cc.BaseURL, Model: cc.Model, Logger: logger})
	case "openai":
		return capability.NewOpenAI(capability.OpenAIConfig{APIKey: cc.APIKey, Model: cc.Model, BaseURL: cc.BaseURL})
	case "static":
		return capability.NewStatic(cc.Static), nil
	case "process":
		cmd, err := resolveCommand(cfg)
		if err != nil {
			return nil, err
		}
		return process.NewRunner(cmd, process.WithBaseDir(cfg.DataDir))
	}
	return nil, fmt.Errorf("unknown provider %q", cc.Provider)
}

// resolveCommand looks capability.command up in the data directory's commands file
// and falls back to running it directly.
func resolveCommand(cfg config.Config) (process.CommandConfig, error) {
	commands, err := process.LoadCommands(filepath.Join(cfg.DataDir, CommandsFile))
	if err != nil {
		return process.CommandConfig{}, err
	}
	if named, ok := commands[cfg.Capability.Command]; ok {
		return named, nil
	}
	return process.CommandConfig{
		Name:    cfg.Capability.Command,
		Command: cfg.Capability.Command,
		Args:    cfg.Capability.Args,
	}, nil
}

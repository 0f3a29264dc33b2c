package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Ranker orders candidate items. It must be deterministic and return a permutation
// of its input: no items added, none dropped.
type Ranker func(items []string) []string

// Lexicographic is the default Ranker: items sorted in byte order.
func Lexicographic(items []string) []string {
	out := slices.Clone(items)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return out
}

// HistoryInput is the argument shape of history_lookup.
type HistoryInput struct {
	Username string `mapstructure:"username"`
}

// InventoryInput is the argument shape of inventory_lookup.
type InventoryInput struct {
	StoreID string `mapstructure:"store_id"`
}

// RankInput is the argument shape of rank.
type RankInput struct {
	Items []string `mapstructure:"items"`
}

type handler func(ctx context.Context, args map[string]any) (any, error)

// Registry exposes the closed set of named tools over a Catalog.
// It holds no mutable state after construction and is safe for concurrent use.
type Registry struct {
	catalog ports.Catalog
	ranker  Ranker
	tools   map[domain.ToolName]handler
}

// Option configures the Registry.
type Option func(*Registry)

// WithRanker replaces the default lexicographic ranker.
func WithRanker(r Ranker) Option {
	return func(reg *Registry) {
		if r != nil {
			reg.ranker = r
		}
	}
}

// New creates a registry backed by the given catalog.
func New(catalog ports.Catalog, opts ...Option) *Registry {
	r := &Registry{
		catalog: catalog,
		ranker:  Lexicographic,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.tools = map[domain.ToolName]handler{
		domain.ToolHistoryLookup: func(ctx context.Context, args map[string]any) (any, error) {
			var in HistoryInput
			if err := decode(args, &in); err != nil {
				return nil, err
			}
			return r.HistoryLookup(ctx, in.Username)
		},
		domain.ToolInventoryLookup: func(ctx context.Context, args map[string]any) (any, error) {
			var in InventoryInput
			if err := decode(args, &in); err != nil {
				return nil, err
			}
			return r.InventoryLookup(ctx, in.StoreID)
		},
		domain.ToolRank: func(ctx context.Context, args map[string]any) (any, error) {
			var in RankInput
			if err := decode(args, &in); err != nil {
				return nil, err
			}
			return r.Rank(ctx, in.Items)
		},
	}
	return r
}

// Invoke looks up a tool by name and executes it with loosely typed arguments.
// Arguments are decoded into the tool's fixed input shape; unknown keys are rejected.
func (r *Registry) Invoke(ctx context.Context, name domain.ToolName, args map[string]any) (any, error) {
	fn, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}
	return fn(ctx, args)
}

// HistoryLookup returns the purchase history of username, or an empty list when
// the user is unknown. Data-source failures are returned as-is for the caller to abort on.
func (r *Registry) HistoryLookup(ctx context.Context, username string) ([]string, error) {
	user, ok, err := r.catalog.LookupUser(ctx, username)
	if err != nil {
		return nil, dataErr(domain.ToolHistoryLookup, err)
	}
	if !ok {
		return []string{}, nil
	}
	return nonNil(user.Items), nil
}

// InventoryLookup returns the items of storeID, or an empty list when the store is unknown.
func (r *Registry) InventoryLookup(ctx context.Context, storeID string) ([]string, error) {
	store, ok, err := r.catalog.LookupStore(ctx, storeID)
	if err != nil {
		return nil, dataErr(domain.ToolInventoryLookup, err)
	}
	if !ok {
		return []string{}, nil
	}
	return nonNil(store.Items), nil
}

// Rank reorders items with the configured ranker. It does not truncate.
func (r *Registry) Rank(_ context.Context, items []string) ([]string, error) {
	ranked := nonNil(r.ranker(slices.Clone(items)))
	if !samePermutation(items, ranked) {
		return nil, fmt.Errorf("%w: rank returned %d items that are not a permutation of its %d inputs",
			domain.ErrToolContract, len(ranked), len(items))
	}
	return ranked, nil
}

// Tools describes the registry's operations for schema generation.
func (r *Registry) Tools() []domain.Tool {
	return []domain.Tool{
		{
			Name:        domain.ToolHistoryLookup,
			Description: "Fetch previously purchased items for a given username.",
			Parameters:  objectSchema("username", map[string]any{"type": "string"}),
		},
		{
			Name:        domain.ToolInventoryLookup,
			Description: "Fetch available items for a given store.",
			Parameters:  objectSchema("store_id", map[string]any{"type": "string"}),
		},
		{
			Name:        domain.ToolRank,
			Description: "Rank candidate items into a deterministic order.",
			Parameters: objectSchema("items", map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			}),
		},
	}
}

func objectSchema(key string, prop map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{key: prop},
		"required":   []string{key},
	}
}

func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidToolArgs, err)
	}
	return nil
}

func dataErr(tool domain.ToolName, err error) error {
	if errors.Is(err, domain.ErrDataUnavailable) {
		return fmt.Errorf("%s: %w", tool, err)
	}
	return fmt.Errorf("%s: %w: %v", tool, domain.ErrDataUnavailable, err)
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
		if counts[s] < 0 {
			return false
		}
	}
	return true
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return slices.Clone(items)
}

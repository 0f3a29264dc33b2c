package ports

import (
	"context"

	"github.com/aretw0/curator/pkg/domain"
)

// Catalog defines how the engine retrieves users and stores.
// This allows the storage layer (flat files, SQLite, Loam, memory) to be decoupled.
//
// Implementations must be safe for concurrent use.
type Catalog interface {
	// LookupUser returns the record whose username equals username exactly.
	// The boolean is false when no record matches; that is not an error.
	// An error means the data source is unreadable or malformed and wraps domain.ErrDataUnavailable.
	LookupUser(ctx context.Context, username string) (domain.UserPurchase, bool, error)

	// LookupStore is the symmetric lookup keyed by store ID.
	LookupStore(ctx context.Context, storeID string) (domain.StoreInventory, bool, error)
}

// Lister is implemented by catalogs that can enumerate their records.
// It is used by validation and introspection tools (e.g. 'curator validate').
type Lister interface {
	ListUsers(ctx context.Context) ([]domain.UserPurchase, error)
	ListStores(ctx context.Context) ([]domain.StoreInventory, error)
}

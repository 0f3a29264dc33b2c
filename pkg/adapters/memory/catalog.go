package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/curator/pkg/domain"
)

// Catalog implements ports.Catalog in memory.
// Safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	users  []domain.UserPurchase
	stores []domain.StoreInventory
}

// NewCatalog creates a catalog holding copies of the given records.
// Lookups scan in order, so the first record with a matching id wins.
func NewCatalog(users []domain.UserPurchase, stores []domain.StoreInventory) *Catalog {
	c := &Catalog{}
	for _, u := range users {
		c.PutUser(u)
	}
	for _, s := range stores {
		c.PutStore(s)
	}
	return c
}

// PutUser appends a user record.
func (c *Catalog) PutUser(u domain.UserPurchase) {
	u.Items = slices.Clone(u.Items)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, u)
}

// PutStore appends a store record.
func (c *Catalog) PutStore(s domain.StoreInventory) {
	s.Items = slices.Clone(s.Items)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores = append(c.stores, s)
}

// LookupUser implements ports.Catalog.
func (c *Catalog) LookupUser(ctx context.Context, username string) (domain.UserPurchase, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, u := range c.users {
		if u.Username == username {
			u.Items = slices.Clone(u.Items)
			return u, true, nil
		}
	}
	return domain.UserPurchase{}, false, nil
}

// LookupStore implements ports.Catalog.
func (c *Catalog) LookupStore(ctx context.Context, storeID string) (domain.StoreInventory, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.stores {
		if s.StoreID == storeID {
			s.Items = slices.Clone(s.Items)
			return s, true, nil
		}
	}
	return domain.StoreInventory{}, false, nil
}

// ListUsers implements ports.Lister.
func (c *Catalog) ListUsers(ctx context.Context) ([]domain.UserPurchase, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.users), nil
}

// ListStores implements ports.Lister.
func (c *Catalog) ListStores(ctx context.Context) ([]domain.StoreInventory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.stores), nil
}

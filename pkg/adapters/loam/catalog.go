package loam

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/loam"
)

const (
	UsersDir  = "users"
	StoresDir = "stores"
)

// Catalog reads users and stores from a Loam document repository.
// One document per record: users/<username>.md and stores/<store_id>.md.
// When the frontmatter omits the key, the file name is used.
type Catalog struct {
	Repo *loam.TypedRepository[RecordMetadata]
}

// New wraps a typed loam repository.
func New(repo *loam.TypedRepository[RecordMetadata]) *Catalog {
	return &Catalog{Repo: repo}
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[RecordMetadata](repo)), nil
}

func (c *Catalog) LookupUser(ctx context.Context, username string) (domain.UserPurchase, bool, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return domain.UserPurchase{}, false, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, true, nil
		}
	}
	return domain.UserPurchase{}, false, nil
}

func (c *Catalog) LookupStore(ctx context.Context, storeID string) (domain.StoreInventory, bool, error) {
	stores, err := c.ListStores(ctx)
	if err != nil {
		return domain.StoreInventory{}, false, err
	}
	for _, s := range stores {
		if s.StoreID == storeID {
			return s, true, nil
		}
	}
	return domain.StoreInventory{}, false, nil
}

func (c *Catalog) ListUsers(ctx context.Context) ([]domain.UserPurchase, error) {
	var users []domain.UserPurchase
	err := c.each(ctx, UsersDir, func(name string, meta RecordMetadata) {
		if meta.Username == "" {
			meta.Username = name
		}
		users = append(users, domain.UserPurchase{Username: meta.Username, Name: meta.Name, Items: items(meta.Items)})
	})
	return users, err
}

func (c *Catalog) ListStores(ctx context.Context) ([]domain.StoreInventory, error) {
	var stores []domain.StoreInventory
	err := c.each(ctx, StoresDir, func(name string, meta RecordMetadata) {
		if meta.StoreID == "" {
			meta.StoreID = name
		}
		stores = append(stores, domain.StoreInventory{StoreID: meta.StoreID, StoreName: meta.StoreName, Items: items(meta.Items)})
	})
	return stores, err
}

// each visits the documents directly under dir, passing the extension-less file name.
func (c *Catalog) each(ctx context.Context, dir string, fn func(name string, meta RecordMetadata)) error {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: loam list failed: %v", domain.ErrDataUnavailable, err)
	}
	prefix := dir + "/"
	for _, doc := range docs {
		id := filepath.ToSlash(doc.ID)
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		rest := strings.TrimPrefix(id, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		fn(strings.TrimSuffix(rest, path.Ext(rest)), doc.Data)
	}
	return nil
}

func items(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

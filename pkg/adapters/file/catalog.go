package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/curator/pkg/domain"
	"gopkg.in/yaml.v3"
)

const (
	UsersFile  = "users"
	StoresFile = "stores"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Catalog reads users and stores from flat files in Dir.
// Files are re-read on every lookup so edits are visible without a restart.
// Each file holds an array of records, as JSON or YAML.
type Catalog struct {
	Dir string
}

// NewCatalog reads the users and stores files from dir on every lookup.
func NewCatalog(dir string) *Catalog {
	return &Catalog{Dir: dir}
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
	if err := c.read(UsersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Catalog) ListStores(ctx context.Context) ([]domain.StoreInventory, error) {
	var stores []domain.StoreInventory
	if err := c.read(StoresFile, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// read decodes the first existing file among name.json, name.yaml and name.yml.
// A missing or malformed file wraps domain.ErrDataUnavailable.
func (c *Catalog) read(name string, out any) error {
	for _, ext := range extensions {
		path := filepath.Join(c.Dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
		}

		if ext == ".json" {
			err = json.Unmarshal(data, out)
		} else {
			err = yaml.Unmarshal(data, out)
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, path, err)
		}
		return nil
	}
	return fmt.Errorf("%w: no %s file in %s", domain.ErrDataUnavailable, name, c.Dir)
}

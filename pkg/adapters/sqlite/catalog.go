// Package sqlite provides a Catalog backed by a SQLite database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/curator/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	name     TEXT NOT NULL DEFAULT '',
	items    TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS stores (
	store_id   TEXT PRIMARY KEY,
	store_name TEXT NOT NULL DEFAULT '',
	items      TEXT NOT NULL DEFAULT '[]'
);`

// Catalog stores users and stores in two tables. Item lists are JSON array columns.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Catalog, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Seed replaces the whole catalog with the given records in one transaction.
// When an id repeats, the first record wins, as in the flat-file catalog.
func (c *Catalog) Seed(ctx context.Context, users []domain.UserPurchase, stores []domain.StoreInventory) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"users", "stores"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, u := range users {
		items, err := encodeItems(u.Items)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, name, items) VALUES (?, ?, ?)
			 ON CONFLICT(username) DO NOTHING`,
			u.Username, u.Name, items); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Username, err)
		}
	}
	for _, s := range stores {
		items, err := encodeItems(s.Items)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO stores (store_id, store_name, items) VALUES (?, ?, ?)
			 ON CONFLICT(store_id) DO NOTHING`,
			s.StoreID, s.StoreName, items); err != nil {
			return fmt.Errorf("seed store %s: %w", s.StoreID, err)
		}
	}
	return tx.Commit()
}

func (c *Catalog) LookupUser(ctx context.Context, username string) (domain.UserPurchase, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT username, name, items FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserPurchase{}, false, nil
	}
	if err != nil {
		return domain.UserPurchase{}, false, unavailable(err)
	}
	return u, true, nil
}

func (c *Catalog) LookupStore(ctx context.Context, storeID string) (domain.StoreInventory, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT store_id, store_name, items FROM stores WHERE store_id = ?`, storeID)
	s, err := scanStore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoreInventory{}, false, nil
	}
	if err != nil {
		return domain.StoreInventory{}, false, unavailable(err)
	}
	return s, true, nil
}

func (c *Catalog) ListUsers(ctx context.Context) ([]domain.UserPurchase, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT username, name, items FROM users ORDER BY username`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var users []domain.UserPurchase
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return users, nil
}

func (c *Catalog) ListStores(ctx context.Context) ([]domain.StoreInventory, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT store_id, store_name, items FROM stores ORDER BY store_id`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var stores []domain.StoreInventory
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return stores, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (domain.UserPurchase, error) {
	var u domain.UserPurchase
	var items string
	if err := row.Scan(&u.Username, &u.Name, &items); err != nil {
		return u, err
	}
	var err error
	u.Items, err = decodeItems(items)
	return u, err
}

func scanStore(row scanner) (domain.StoreInventory, error) {
	var s domain.StoreInventory
	var items string
	if err := row.Scan(&s.StoreID, &s.StoreName, &items); err != nil {
		return s, err
	}
	var err error
	s.Items, err = decodeItems(items)
	return s, err
}

func encodeItems(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	return string(b), nil
}

func decodeItems(raw string) ([]string, error) {
	items := []string{}
	if strings.TrimSpace(raw) == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("items column: %w", err)
	}
	return items, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: sqlite: %v", domain.ErrDataUnavailable, err)
}

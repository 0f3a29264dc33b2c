package tests

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FixtureUsers is the data set every Catalog under contract test must be seeded with.
var FixtureUsers = []domain.UserPurchase{
	{Username: "richard", Name: "Richard Hendricks", Items: []string{"Keyboard", "Gaming Mouse", "Mousepad"}},
	{Username: "monica", Name: "Monica Hall", Items: []string{"Monitor"}},
	{Username: "gilfoyle", Name: "Bertram Gilfoyle", Items: []string{}},
}

// FixtureStores is the store half of the contract data set.
var FixtureStores = []domain.StoreInventory{
	{StoreID: "ABC", StoreName: "ABC Electronics", Items: []string{"Keyboard", "Gaming Mouse", "Mousepad", "Monitor", "Headset", "Webcam"}},
	{StoreID: "XYZ", StoreName: "XYZ Outlet", Items: []string{"Webcam"}},
}

// RunCatalogContract runs a suite of tests to verify that a Catalog implementation
// adheres to the defined interface contract. The catalog must hold FixtureUsers and FixtureStores.
func RunCatalogContract(t *testing.T, catalog ports.Catalog) {
	t.Helper()
	ctx := context.Background()

	t.Run("LookupUser_Found", func(t *testing.T) {
		for _, want := range FixtureUsers {
			got, ok, err := catalog.LookupUser(ctx, want.Username)
			require.NoError(t, err)
			require.True(t, ok, "user %s should exist", want.Username)
			assert.Equal(t, want.Username, got.Username)
			assert.Equal(t, want.Name, got.Name)
			assert.ElementsMatch(t, want.Items, got.Items)
			assert.Equal(t, want.Items, nonNil(got.Items), "order is preserved")
		}
	})

	t.Run("LookupUser_NotFound", func(t *testing.T) {
		_, ok, err := catalog.LookupUser(ctx, "nobody")
		require.NoError(t, err, "unknown users are not an error")
		assert.False(t, ok)
	})

	t.Run("LookupUser_ExactMatch", func(t *testing.T) {
		_, ok, err := catalog.LookupUser(ctx, "Richard")
		require.NoError(t, err)
		assert.False(t, ok, "usernames match by exact equality")
	})

	t.Run("LookupStore_Found", func(t *testing.T) {
		for _, want := range FixtureStores {
			got, ok, err := catalog.LookupStore(ctx, want.StoreID)
			require.NoError(t, err)
			require.True(t, ok, "store %s should exist", want.StoreID)
			assert.Equal(t, want.StoreName, got.StoreName)
			assert.Equal(t, want.Items, nonNil(got.Items))
		}
	})

	t.Run("LookupStore_NotFound", func(t *testing.T) {
		_, ok, err := catalog.LookupStore(ctx, "nowhere")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	if lister, ok := catalog.(ports.Lister); ok {
		t.Run("List", func(t *testing.T) {
			users, err := lister.ListUsers(ctx)
			require.NoError(t, err)
			assert.Len(t, users, len(FixtureUsers))

			stores, err := lister.ListStores(ctx)
			require.NoError(t, err)
			assert.Len(t, stores, len(FixtureStores))
		})
	}
}

// FirstMatchUsers is FixtureUsers followed by a second "richard" with other items.
func FirstMatchUsers() []domain.UserPurchase {
	return append(slices.Clone(FixtureUsers),
		domain.UserPurchase{Username: "richard", Name: "Impostor", Items: []string{"Webcam"}})
}

// FirstMatchStores is FixtureStores followed by a second "ABC" with other items.
func FirstMatchStores() []domain.StoreInventory {
	return append(slices.Clone(FixtureStores),
		domain.StoreInventory{StoreID: "ABC", StoreName: "Impostor", Items: []string{"Webcam"}})
}

// RunFirstMatchContract checks that a repeated id resolves to its first record.
// The catalog must hold FirstMatchUsers and FirstMatchStores, in that order.
func RunFirstMatchContract(t *testing.T, catalog ports.Catalog) {
	t.Helper()
	ctx := context.Background()

	t.Run("LookupUser_FirstMatchWins", func(t *testing.T) {
		got, ok, err := catalog.LookupUser(ctx, "richard")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, FixtureUsers[0].Name, got.Name)
		assert.Equal(t, FixtureUsers[0].Items, got.Items)
	})

	t.Run("LookupStore_FirstMatchWins", func(t *testing.T) {
		got, ok, err := catalog.LookupStore(ctx, "ABC")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, FixtureStores[0].StoreName, got.StoreName)
		assert.Equal(t, FixtureStores[0].Items, got.Items)
	})
}

// RunResultStoreContract runs a suite of tests to verify that a ResultStore implementation
// adheres to the defined interface contract.
func RunResultStoreContract(t *testing.T, store ports.ResultStore) {
	t.Helper()
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	record := domain.RunRecord{
		RunID:     runID,
		Username:  "richard",
		StoreID:   "ABC",
		TopK:      3,
		Items:     []string{"Keyboard", "Monitor"},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, record), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, record.Username, loaded.Username)
		assert.Equal(t, record.StoreID, loaded.StoreID)
		assert.Equal(t, record.TopK, loaded.TopK)
		assert.Equal(t, record.Items, loaded.Items)
		assert.True(t, record.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, record))
		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		r1, r2 := record, record
		r1.RunID, r2.RunID = id1, id2
		require.NoError(t, store.Save(ctx, r1))
		require.NoError(t, store.Save(ctx, r2))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

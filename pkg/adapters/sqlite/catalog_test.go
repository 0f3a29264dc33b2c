package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/curator/pkg/adapters/sqlite"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T, path string) *sqlite.Catalog {
	t.Helper()
	c, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Seed(context.Background(), tests.FixtureUsers, tests.FixtureStores))
	return c
}

func TestSQLiteCatalog_Contract(t *testing.T) {
	tests.RunCatalogContract(t, seeded(t, ":memory:"))
}

func TestSQLiteCatalog_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "catalog.db")
	seeded(t, path)

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	u, ok, err := reopened.LookupUser(context.Background(), "monica")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Monitor"}, u.Items)
}

func TestSQLiteCatalog_FirstMatch(t *testing.T) {
	c, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Seed(context.Background(), tests.FirstMatchUsers(), tests.FirstMatchStores()))

	tests.RunFirstMatchContract(t, c)
}

func TestSQLiteCatalog_SeedReplaces(t *testing.T) {
	c := seeded(t, ":memory:")
	ctx := context.Background()

	require.NoError(t, c.Seed(ctx, []domain.UserPurchase{{Username: "monica", Items: []string{"Webcam"}}}, nil))

	u, ok, err := c.LookupUser(ctx, "monica")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Webcam"}, u.Items)

	_, ok, err = c.LookupUser(ctx, "richard")
	require.NoError(t, err)
	assert.False(t, ok, "a user dropped from the source is unknown after reseeding")

	_, ok, err = c.LookupStore(ctx, "ABC")
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := c.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSQLiteCatalog_ReseedFileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	seeded(t, path)

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Seed(context.Background(), tests.FixtureUsers[1:], tests.FixtureStores))

	_, ok, err := reopened.LookupUser(context.Background(), "richard")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteCatalog_ClosedDatabase(t *testing.T) {
	c, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, _, err = c.LookupStore(context.Background(), "ABC")
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

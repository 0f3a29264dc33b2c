package validator

import (
	"context"
	"testing"

	"github.com/aretw0/curator/pkg/adapters/memory"
	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("valid", func(t *testing.T) {
		issues, err := ValidateCatalog(ctx, memory.NewCatalog(tests.FixtureUsers, tests.FixtureStores))
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.NoError(t, Error(issues))
	})

	t.Run("problems", func(t *testing.T) {
		catalog := memory.NewCatalog(
			[]domain.UserPurchase{
				{Username: "richard", Items: []string{"Keyboard", ""}},
				{Username: "richard"},
				{Username: " "},
			},
			[]domain.StoreInventory{
				{StoreID: "ABC", Items: []string{"Monitor", "Monitor"}},
			},
		)

		issues, err := ValidateCatalog(ctx, catalog)
		require.NoError(t, err)
		require.Len(t, issues, 4)
		assert.Equal(t, "user 'richard': item 1 has an empty name", issues[0].String())
		assert.Equal(t, "duplicate id (only the first record is used)", issues[1].Message)
		assert.Equal(t, "#2", issues[2].ID)
		assert.Equal(t, "store", issues[3].Kind)

		err = Error(issues)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "4 issue(s)")
	})
}

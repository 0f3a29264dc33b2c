package memory_test

import (
	"testing"

	"github.com/aretw0/curator/pkg/adapters/memory"
	"github.com/aretw0/curator/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	tests.RunResultStoreContract(t, store)
}

func TestMemoryCatalog_Contract(t *testing.T) {
	catalog := memory.NewCatalog(tests.FixtureUsers, tests.FixtureStores)
	tests.RunCatalogContract(t, catalog)
}

func TestMemoryCatalog_FirstMatch(t *testing.T) {
	tests.RunFirstMatchContract(t, memory.NewCatalog(tests.FirstMatchUsers(), tests.FirstMatchStores()))
}

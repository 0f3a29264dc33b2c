package ports

import (
	"context"

	"github.com/aretw0/curator/pkg/domain"
)

// ResultStore defines the interface for persisting completed recommendations.
// Only RunRecords are stored; the pipeline state itself is never persisted.
type ResultStore interface {
	// Save persists the record under record.RunID.
	Save(ctx context.Context, record domain.RunRecord) error

	// Load retrieves a record by run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (domain.RunRecord, error)

	// Delete removes the record for a run ID.
	Delete(ctx context.Context, runID string) error

	// List returns the IDs of all stored runs.
	List(ctx context.Context) ([]string, error)
}

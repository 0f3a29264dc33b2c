package middleware

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/curator/pkg/domain"
	"github.com/aretw0/curator/pkg/ports"
)

// Mask replaces redacted values in stored records.
const Mask = "***"

// RedactableFields are the record fields NewRedactionMiddleware accepts.
var RedactableFields = []string{"username", "store_id", "items"}

type redactionMiddleware struct {
	next   ports.ResultStore
	fields []string
}

// NewRedactionMiddleware masks the named record fields before they reach the store.
// Redacted fields cannot be recovered on Load.
func NewRedactionMiddleware(fields []string) (Middleware, error) {
	for _, f := range fields {
		if !slices.Contains(RedactableFields, f) {
			return nil, fmt.Errorf("cannot redact %q (want one of %v)", f, RedactableFields)
		}
	}
	fields = slices.Clone(fields)
	return func(next ports.ResultStore) ports.ResultStore {
		return &redactionMiddleware{next: next, fields: fields}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, record domain.RunRecord) error {
	// Work on a copy; the caller still holds the record.
	masked := record
	masked.Items = slices.Clone(record.Items)

	for _, f := range m.fields {
		switch f {
		case "username":
			masked.Username = Mask
		case "store_id":
			masked.StoreID = Mask
		case "items":
			for i := range masked.Items {
				masked.Items[i] = Mask
			}
		}
	}
	return m.next.Save(ctx, masked)
}

func (m *redactionMiddleware) Load(ctx context.Context, runID string) (domain.RunRecord, error) {
	return m.next.Load(ctx, runID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Package metastore persists contract metadata records keyed by
// contract id.
package metastore

import (
	"context"

	"github.com/ternlund/datapact/internal/contract"
)

// Store is the metadata persistence interface. Implementations provision
// their backing table on demand (idempotent create-if-absent).
type Store interface {
	// Create writes a fresh record with default status and the current
	// creation timestamp, returning the stored record.
	Create(ctx context.Context, id, owner, location string) (contract.Record, error)
	// Get returns the record for id, or apperr.ErrNotFound.
	Get(ctx context.Context, id string) (contract.Record, error)
	// Update applies field-level changes from tagged patch values.
	Update(ctx context.Context, id string, fields map[string]contract.Value) error
	// Delete removes the record.
	Delete(ctx context.Context, id string) error
	// List returns every record: full-scan semantics, unordered and
	// unpaginated from the caller's point of view.
	List(ctx context.Context) ([]contract.Record, error)
}

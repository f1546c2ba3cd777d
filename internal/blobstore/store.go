// Package blobstore persists the generated YAML documents as opaque
// text blobs keyed by contract id.
package blobstore

import "context"

// Store is the blob persistence interface. Implementations provision
// their backing container on demand (idempotent create-if-absent).
type Store interface {
	// Save writes content for the contract and returns the fully
	// qualified location string recorded in the metadata.
	Save(ctx context.Context, id, content string) (string, error)
	// Fetch returns the content, or ok=false when the blob is absent.
	// A missing blob is a valid degraded state, not an error.
	Fetch(ctx context.Context, id string) (content string, ok bool, err error)
	// Delete removes the blob. Callers treat failures as best-effort.
	Delete(ctx context.Context, id string) error
}

// Key returns the deterministic object key for a contract id.
func Key(id string) string {
	return "contracts/" + id + ".yaml"
}

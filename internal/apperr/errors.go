// Package apperr defines the sentinel errors shared across the service.
// Transport adapters map these to status codes at the boundary; nothing
// below the handlers knows about HTTP semantics.
package apperr

import "errors"

var (
	// ErrInvalidInput covers malformed request bodies and missing or
	// badly shaped required fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means no metadata record exists for the contract id.
	ErrNotFound = errors.New("not found")

	// ErrGenerationFailed wraps any transport or service error from the
	// text-generation endpoint.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrStorageWrite means the blob store rejected a write.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrMetadataWrite means the metadata store rejected a write.
	ErrMetadataWrite = errors.New("metadata write failed")

	// ErrUpdateFailed means a patch could not be applied, either because
	// a value kind is unsupported or because the store rejected it.
	ErrUpdateFailed = errors.New("update failed")
)

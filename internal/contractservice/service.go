// Package contractservice orchestrates generation, blob storage, and
// metadata persistence for the contract operations. Both transport
// adapters (HTTP router and gateway dispatcher) delegate here so no
// business logic is duplicated across them.
package contractservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ternlund/datapact/internal/apperr"
	"github.com/ternlund/datapact/internal/blobstore"
	"github.com/ternlund/datapact/internal/contract"
	"github.com/ternlund/datapact/internal/genai"
	"github.com/ternlund/datapact/internal/metastore"
)

// Service coordinates the three external collaborators.
type Service struct {
	gen   genai.Generator
	blobs blobstore.Store
	meta  metastore.Store
}

// New creates a contract service.
func New(gen genai.Generator, blobs blobstore.Store, meta metastore.Store) *Service {
	return &Service{gen: gen, blobs: blobs, meta: meta}
}

// SaveResult is the success payload for create and save operations. Both
// transports serialize it as-is.
type SaveResult struct {
	ContractID string `json:"contract_id"`
	Status     string `json:"status"`
	S3Path     string `json:"s3_path"`
	YAML       string `json:"yaml"`
	Message    string `json:"message"`
}

// Create generates a YAML contract from the request description and
// persists blob plus metadata under a fresh contract id.
func (s *Service) Create(ctx context.Context, user, request string) (*SaveResult, error) {
	id := uuid.NewString()
	yamlContent, err := s.gen.Generate(ctx, request)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, id, user, yamlContent, "Contract created successfully")
}

// Save persists caller-supplied, already-generated content without
// invoking the model.
func (s *Service) Save(ctx context.Context, user, yamlContent string) (*SaveResult, error) {
	return s.persist(ctx, uuid.NewString(), user, yamlContent, "Contract saved successfully")
}

// persist writes the blob, then the metadata record. A metadata failure
// after a successful blob write fails the whole operation; the blob is
// left behind as an orphan and logged for manual cleanup.
func (s *Service) persist(ctx context.Context, id, user, yamlContent, message string) (*SaveResult, error) {
	location, err := s.blobs.Save(ctx, id, yamlContent)
	if err != nil {
		return nil, err
	}
	rec, err := s.meta.Create(ctx, id, user, location)
	if err != nil {
		slog.Error("metadata write failed after blob write, blob orphaned",
			slog.String("contract_id", id),
			slog.String("location", location),
			slog.String("error", err.Error()))
		return nil, err
	}
	return &SaveResult{
		ContractID: rec.ContractID,
		Status:     rec.Status,
		S3Path:     rec.S3Path,
		YAML:       yamlContent,
		Message:    message,
	}, nil
}

// Generate produces YAML content without persisting anything.
func (s *Service) Generate(ctx context.Context, description string) (string, error) {
	return s.gen.Generate(ctx, description)
}

// GenerateStream produces a fragment stream without persisting anything.
func (s *Service) GenerateStream(ctx context.Context, description string) (genai.Stream, error) {
	return s.gen.GenerateStream(ctx, description)
}

// Get returns the record joined with its YAML document. A missing blob
// yields a nil YAML, not an error.
func (s *Service) Get(ctx context.Context, id string) (contract.Detail, error) {
	rec, err := s.meta.Get(ctx, id)
	if err != nil {
		return contract.Detail{}, err
	}
	detail := contract.Detail{Record: rec}
	content, ok, err := s.blobs.Fetch(ctx, id)
	if err != nil {
		return contract.Detail{}, err
	}
	if ok {
		detail.YAML = &content
	}
	return detail, nil
}

// List returns all records, unordered.
func (s *Service) List(ctx context.Context) ([]contract.Record, error) {
	return s.meta.List(ctx)
}

// Update applies a patch: a yaml key replaces the blob wholesale, every
// other field is a partial metadata update. Returns the refreshed
// record.
func (s *Service) Update(ctx context.Context, id string, patch contract.Patch) (contract.Detail, error) {
	if patch.Empty() {
		return contract.Detail{}, fmt.Errorf("%w: no update fields provided", apperr.ErrUpdateFailed)
	}
	if patch.YAML != nil {
		if _, err := s.blobs.Save(ctx, id, *patch.YAML); err != nil {
			return contract.Detail{}, fmt.Errorf("%w: %v", apperr.ErrUpdateFailed, err)
		}
	}
	if err := s.meta.Update(ctx, id, patch.Fields); err != nil {
		return contract.Detail{}, err
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return contract.Detail{}, fmt.Errorf("%w: %v", apperr.ErrUpdateFailed, err)
	}
	return detail, nil
}

// Delete removes the record; blob removal is best-effort and never
// blocks the metadata deletion.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.meta.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, id); err != nil {
		slog.Warn("blob delete failed, continuing",
			slog.String("contract_id", id),
			slog.String("error", err.Error()))
	}
	return nil
}

package contractservice_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ternlund/datapact/internal/apperr"
	"github.com/ternlund/datapact/internal/contract"
	"github.com/ternlund/datapact/internal/contractservice"
	"github.com/ternlund/datapact/internal/genai"
	"github.com/ternlund/datapact/internal/metastore"
	"github.com/ternlund/datapact/internal/testutil"
)

func TestService_CreateRoundTrip(t *testing.T) {
	svc := testutil.TestService(t, &genai.Static{Content: "spec: v1\n"})
	ctx := context.Background()

	res, err := svc.Create(ctx, "a@b.com", "orders table")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(res.ContractID) != 36 {
		t.Errorf("contract id %q is not a uuid", res.ContractID)
	}
	if res.Status != contract.StatusDraft {
		t.Errorf("status = %q", res.Status)
	}
	if res.YAML != "spec: v1\n" {
		t.Errorf("yaml = %q", res.YAML)
	}
	if res.Message != "Contract created successfully" {
		t.Errorf("message = %q", res.Message)
	}

	detail, err := svc.Get(ctx, res.ContractID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.YAML == nil || *detail.YAML != "spec: v1\n" {
		t.Errorf("stored yaml = %v", detail.YAML)
	}
	if detail.Record.Owner != "a@b.com" {
		t.Errorf("owner = %q", detail.Record.Owner)
	}
}

func TestService_CreateDistinctIDs(t *testing.T) {
	svc := testutil.TestService(t, nil)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "a@b.com", "x")
	b, _ := svc.Create(ctx, "a@b.com", "x")
	if a.ContractID == b.ContractID {
		t.Error("consecutive creates must produce distinct ids")
	}
}

func TestService_CreateGenerationFailure(t *testing.T) {
	genErr := errors.New("model unavailable")
	svc := testutil.TestService(t, &genai.Static{Err: genErr})

	_, err := svc.Create(context.Background(), "a@b.com", "x")
	if !errors.Is(err, genErr) {
		t.Fatalf("expected generation error, got %v", err)
	}

	// Nothing may be persisted when generation fails.
	records, _ := svc.List(context.Background())
	if len(records) != 0 {
		t.Errorf("records persisted despite failure: %v", records)
	}
}

func TestService_SaveSkipsGeneration(t *testing.T) {
	svc := testutil.TestService(t, &genai.Static{Err: errors.New("must not be called")})

	res, err := svc.Save(context.Background(), "a@b.com", "caller: supplied\n")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.YAML != "caller: supplied\n" {
		t.Errorf("yaml = %q", res.YAML)
	}
	if res.Message != "Contract saved successfully" {
		t.Errorf("message = %q", res.Message)
	}
}

// failingMeta rejects all writes, standing in for a metadata outage.
type failingMeta struct {
	metastore.Store
}

func (f failingMeta) Create(context.Context, string, string, string) (contract.Record, error) {
	return contract.Record{}, apperr.ErrMetadataWrite
}

func TestService_MetadataFailureFailsCreate(t *testing.T) {
	blobs := testutil.TestBlobStore(t)
	svc := contractservice.New(&genai.Static{Content: "x"}, blobs, failingMeta{})

	_, err := svc.Create(context.Background(), "a@b.com", "x")
	if !errors.Is(err, apperr.ErrMetadataWrite) {
		t.Fatalf("expected ErrMetadataWrite, got %v", err)
	}
}

func TestService_GetMissingRecord(t *testing.T) {
	svc := testutil.TestService(t, nil)
	_, err := svc.Get(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_GetMissingBlobDegrades(t *testing.T) {
	blobs := testutil.TestBlobStore(t)
	meta := testutil.TestMetaStore(t)
	svc := contractservice.New(&genai.Static{Content: "x"}, blobs, meta)
	ctx := context.Background()

	// Record exists, blob never written.
	if _, err := meta.Create(ctx, "id-1", "a@b.com", "loc"); err != nil {
		t.Fatal(err)
	}
	detail, err := svc.Get(ctx, "id-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.YAML != nil {
		t.Errorf("missing blob should yield nil yaml, got %v", detail.YAML)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	svc := testutil.TestService(t, nil)
	ctx := context.Background()

	res, _ := svc.Create(ctx, "a@b.com", "x")
	detail, err := svc.Update(ctx, res.ContractID, contract.Patch{
		Fields: map[string]contract.Value{
			contract.FieldStatus: {Kind: contract.KindText, Text: "ACTIVE"},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if detail.Record.Status != "ACTIVE" {
		t.Errorf("status = %q", detail.Record.Status)
	}
}

func TestService_UpdateYAMLOnly(t *testing.T) {
	svc := testutil.TestService(t, &genai.Static{Content: "old"})
	ctx := context.Background()

	res, _ := svc.Create(ctx, "a@b.com", "x")
	before, _ := svc.Get(ctx, res.ContractID)

	newYAML := "new: doc\n"
	detail, err := svc.Update(ctx, res.ContractID, contract.Patch{YAML: &newYAML})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if detail.YAML == nil || *detail.YAML != newYAML {
		t.Errorf("yaml = %v", detail.YAML)
	}
	if detail.Record.CreatedTime != before.Record.CreatedTime {
		t.Error("yaml-only update must not touch metadata")
	}
}

func TestService_UpdateEmptyPatch(t *testing.T) {
	svc := testutil.TestService(t, nil)
	_, err := svc.Update(context.Background(), "any", contract.Patch{})
	if !errors.Is(err, apperr.ErrUpdateFailed) {
		t.Fatalf("expected ErrUpdateFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "no update fields") {
		t.Errorf("error = %v", err)
	}
}

func TestService_UpdateMissingRecord(t *testing.T) {
	svc := testutil.TestService(t, nil)
	_, err := svc.Update(context.Background(), "nope", contract.Patch{
		Fields: map[string]contract.Value{
			contract.FieldStatus: {Kind: contract.KindText, Text: "ACTIVE"},
		},
	})
	if !errors.Is(err, apperr.ErrUpdateFailed) {
		t.Fatalf("expected ErrUpdateFailed, got %v", err)
	}
}

func TestService_DeleteRemovesBoth(t *testing.T) {
	blobs := testutil.TestBlobStore(t)
	meta := testutil.TestMetaStore(t)
	svc := contractservice.New(&genai.Static{Content: "x"}, blobs, meta)
	ctx := context.Background()

	res, _ := svc.Create(ctx, "a@b.com", "x")
	if err := svc.Delete(ctx, res.ContractID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := meta.Get(ctx, res.ContractID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("record survived delete: %v", err)
	}
	if _, ok, _ := blobs.Fetch(ctx, res.ContractID); ok {
		t.Error("blob survived delete")
	}
}

func TestService_DeleteMissingBlobTolerated(t *testing.T) {
	blobs := testutil.TestBlobStore(t)
	meta := testutil.TestMetaStore(t)
	svc := contractservice.New(&genai.Static{Content: "x"}, blobs, meta)
	ctx := context.Background()

	// Record without a blob: blob removal fails, delete still passes.
	meta.Create(ctx, "id-1", "a@b.com", "loc")
	if err := svc.Delete(ctx, "id-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestService_GenerateStreamPassthrough(t *testing.T) {
	svc := testutil.TestService(t, &genai.Static{Chunks: []string{"a", "b", "c"}})

	stream, err := svc.GenerateStream(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	var got []string
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		got = append(got, frag)
	}
	if strings.Join(got, "") != "abc" {
		t.Errorf("fragments = %v", got)
	}
}

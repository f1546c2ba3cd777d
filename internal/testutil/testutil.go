// Package testutil provides shared test helpers for setting up local
// blob and metadata stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ternlund/datapact/internal/blobstore"
	"github.com/ternlund/datapact/internal/contractservice"
	"github.com/ternlund/datapact/internal/genai"
	"github.com/ternlund/datapact/internal/metastore"
)

// TestBlobStore creates a temporary filesystem blob store that is
// automatically cleaned up.
func TestBlobStore(t *testing.T) *blobstore.FS {
	t.Helper()
	store, err := blobstore.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return store
}

// TestMetaStore creates a temporary SQLite metadata store that is
// automatically cleaned up.
func TestMetaStore(t *testing.T) *metastore.SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "datapact-test.db")
	db, err := metastore.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

// TestService wires a service over temporary local stores and the
// given generator. A nil generator gets a fixed single-document fake.
func TestService(t *testing.T, gen genai.Generator) *contractservice.Service {
	t.Helper()
	if gen == nil {
		gen = &genai.Static{Content: "dataContractSpecification: 0.9.3\n"}
	}
	return contractservice.New(gen, TestBlobStore(t), TestMetaStore(t))
}

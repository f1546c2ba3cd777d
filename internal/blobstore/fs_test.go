package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newFS(t *testing.T) *FS {
	t.Helper()
	store, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return store
}

func TestFS_SaveAndFetch(t *testing.T) {
	store := newFS(t)
	ctx := context.Background()

	loc, err := store.Save(ctx, "abc", "spec: v1\n")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(loc, "file://") {
		t.Errorf("location = %q, want file:// prefix", loc)
	}
	if !strings.HasSuffix(loc, filepath.FromSlash("contracts/abc.yaml")) {
		t.Errorf("location = %q, want contracts/abc.yaml suffix", loc)
	}

	content, ok, err := store.Fetch(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("Fetch: ok=%v err=%v", ok, err)
	}
	if content != "spec: v1\n" {
		t.Errorf("content = %q", content)
	}
}

func TestFS_SaveOverwrites(t *testing.T) {
	store := newFS(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, "abc", "old"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, "abc", "new"); err != nil {
		t.Fatal(err)
	}
	content, _, _ := store.Fetch(ctx, "abc")
	if content != "new" {
		t.Errorf("content = %q, want new", content)
	}
}

func TestFS_FetchMissing(t *testing.T) {
	store := newFS(t)
	_, ok, err := store.Fetch(context.Background(), "nope")
	if err != nil {
		t.Fatalf("missing blob should not error: %v", err)
	}
	if ok {
		t.Error("missing blob should report ok=false")
	}
}

func TestFS_Delete(t *testing.T) {
	store := newFS(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, "abc", "x"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Fetch(ctx, "abc"); ok {
		t.Error("blob should be gone after delete")
	}
	if err := store.Delete(ctx, "abc"); err == nil {
		t.Error("deleting a missing blob should error")
	}
}

func TestFS_NoTempLeftovers(t *testing.T) {
	root := t.TempDir()
	store, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(context.Background(), "abc", "x"); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Join(root, "contracts"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".datapact-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestKey(t *testing.T) {
	if got := Key("abc"); got != "contracts/abc.yaml" {
		t.Errorf("Key = %q", got)
	}
}

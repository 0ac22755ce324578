package embedcache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/broistadev/broista/internal/match/embedcache"
)

func TestFileStore_SaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	store, err := embedcache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	want := &embedcache.Snapshot{
		ModelID: "text-embedding-3-small",
		Names:   []string{"golden eagle", "white mocha"},
		Vectors: [][]float32{{0.1, 0.2}, {0.3, 0.4}},
	}
	if err := store.Save(context.Background(), want); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Load(context.Background(), "text-embedding-3-small")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got == nil {
		t.Fatal("Load returned nil snapshot after Save")
	}
	if got.ModelID != want.ModelID {
		t.Errorf("ModelID=%q, want %q", got.ModelID, want.ModelID)
	}
	if len(got.Names) != 2 || got.Names[1] != "white mocha" {
		t.Errorf("Names=%v, want %v", got.Names, want.Names)
	}
	if len(got.Vectors) != 2 || got.Vectors[0][1] != 0.2 {
		t.Errorf("Vectors=%v, want %v", got.Vectors, want.Vectors)
	}
}

func TestFileStore_MissingSnapshotIsNotAnError(t *testing.T) {
	t.Parallel()

	store, err := embedcache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	got, err := store.Load(context.Background(), "never-saved")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing snapshot", got)
	}
}

func TestFileStore_CorruptSnapshotTreatedAsMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := embedcache.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "broken-model.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	got, err := store.Load(context.Background(), "broken-model")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for corrupt snapshot", got)
	}
}

func TestFileStore_ModelIDWithSlashes(t *testing.T) {
	t.Parallel()

	store, err := embedcache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore returned error: %v", err)
	}

	snap := &embedcache.Snapshot{
		ModelID: "nomic/nomic-embed-text:latest",
		Names:   []string{"hot cocoa"},
		Vectors: [][]float32{{1}},
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := store.Load(context.Background(), "nomic/nomic-embed-text:latest")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got == nil || got.ModelID != snap.ModelID {
		t.Fatalf("got %+v, want snapshot for slashed model id", got)
	}
}

func TestFileStore_EmptyDirRejected(t *testing.T) {
	t.Parallel()

	if _, err := embedcache.NewFileStore(""); err == nil {
		t.Fatal("NewFileStore(\"\") returned nil error")
	}
}

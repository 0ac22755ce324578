package embedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists snapshots as JSON files under a directory, one file per
// embedding model. Writes go through a temp file and rename so a crash never
// leaves a truncated cache behind.
//
// FileStore is safe for concurrent use within one process. It does not
// coordinate across processes.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// Ensure FileStore implements Store at compile time.
var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("embedcache: dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("embedcache: create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load implements [Store]. A corrupt cache file is treated as missing so a
// bad shutdown only costs a re-embed, never a startup failure.
func (s *FileStore) Load(_ context.Context, modelID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(modelID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("embedcache: read cache file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil
	}
	return &snap, nil
}

// Save implements [Store].
func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("embedcache: marshal snapshot: %w", err)
	}

	dst := s.path(snap.ModelID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("embedcache: write cache file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("embedcache: replace cache file: %w", err)
	}
	return nil
}

// path derives the cache filename for a model. Path separators in model IDs
// ("org/model") are flattened.
func (s *FileStore) path(modelID string) string {
	name := make([]byte, 0, len(modelID))
	for i := 0; i < len(modelID); i++ {
		c := modelID[i]
		if c == '/' || c == '\\' || c == ':' {
			c = '_'
		}
		name = append(name, c)
	}
	return filepath.Join(s.dir, string(name)+".json")
}

// Package embedcache persists catalog embeddings between runs so the matcher
// does not re-embed an unchanged menu on every start.
//
// Two implementations are provided: [FileStore] for single-node deployments
// and [PostgresStore] (pgvector) for shared deployments. Both store a full
// [Snapshot] per embedding model; the matcher decides whether a loaded
// snapshot is still valid.
package embedcache

import "context"

// Snapshot is one cached embedding set: the product names in catalog order
// and one vector per name, all produced by the same embedding model.
type Snapshot struct {
	// ModelID identifies the embedding model that produced the vectors.
	ModelID string `json:"model_id"`

	// Names are the lowercased product names, in catalog order.
	Names []string `json:"names"`

	// Vectors holds one embedding per name, aligned by index.
	Vectors [][]float32 `json:"vectors"`
}

// Store loads and saves embedding snapshots.
type Store interface {
	// Load returns the snapshot for the given model, or nil when none is
	// cached. A missing snapshot is not an error.
	Load(ctx context.Context, modelID string) (*Snapshot, error)

	// Save persists the snapshot, replacing any previous one for the same
	// model.
	Save(ctx context.Context, snap *Snapshot) error
}

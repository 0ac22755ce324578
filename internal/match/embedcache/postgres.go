package embedcache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PostgresStore persists snapshots in a pgvector-enabled PostgreSQL table,
// letting multiple service instances share one embedding cache.
//
// All methods are safe for concurrent use.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements Store at compile time.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the given PostgreSQL DSN and ensures the
// cache table exists. The pgvector extension must already be installed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("embedcache: connect postgres: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS catalog_embeddings (
		    model_id  TEXT    NOT NULL,
		    position  INT     NOT NULL,
		    name      TEXT    NOT NULL,
		    embedding VECTOR  NOT NULL,
		    PRIMARY KEY (model_id, position)
		)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("embedcache: ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Load implements [Store]. Rows are returned in catalog position order.
func (s *PostgresStore) Load(ctx context.Context, modelID string) (*Snapshot, error) {
	const q = `
		SELECT name, embedding
		FROM   catalog_embeddings
		WHERE  model_id = $1
		ORDER  BY position`

	rows, err := s.pool.Query(ctx, q, modelID)
	if err != nil {
		return nil, fmt.Errorf("embedcache: load snapshot: %w", err)
	}

	type row struct {
		name string
		vec  pgvector.Vector
	}
	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (row, error) {
		var e row
		if err := r.Scan(&e.name, &e.vec); err != nil {
			return row{}, err
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedcache: scan rows: %w", err)
	}
	if len(entries) == 0 {
		return nil, nil
	}

	snap := &Snapshot{
		ModelID: modelID,
		Names:   make([]string, len(entries)),
		Vectors: make([][]float32, len(entries)),
	}
	for i, e := range entries {
		snap.Names[i] = e.name
		snap.Vectors[i] = e.vec.Slice()
	}
	return snap, nil
}

// Save implements [Store]. The previous snapshot for the model is replaced
// atomically within a transaction.
func (s *PostgresStore) Save(ctx context.Context, snap *Snapshot) error {
	if len(snap.Names) != len(snap.Vectors) {
		return fmt.Errorf("embedcache: snapshot has %d names but %d vectors", len(snap.Names), len(snap.Vectors))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("embedcache: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx, `DELETE FROM catalog_embeddings WHERE model_id = $1`, snap.ModelID); err != nil {
		return fmt.Errorf("embedcache: clear old snapshot: %w", err)
	}

	const ins = `
		INSERT INTO catalog_embeddings (model_id, position, name, embedding)
		VALUES ($1, $2, $3, $4)`
	for i, name := range snap.Names {
		vec := pgvector.NewVector(snap.Vectors[i])
		if _, err := tx.Exec(ctx, ins, snap.ModelID, i, name, vec); err != nil {
			return fmt.Errorf("embedcache: insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("embedcache: commit: %w", err)
	}
	return nil
}

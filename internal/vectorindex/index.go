// ABOUTME: Vector index contract (C2): pluggable cosine-similarity store, scoped by sector and user
// ABOUTME: Two backends implement this: exact-linear (internal/store/sqlite) and approximate-graph (internal/vectorindex/approx)
package vectorindex

import (
	"context"

	"github.com/harper/cortexmem/internal/domain"
)

// Hit is one search result: a memory id and its cosine similarity score.
type Hit struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}

// Index is the vector index contract from spec §4.2. All operations are
// scoped by sector; Search and the user-aware operations additionally scope
// by user id when one is provided (empty string means unscoped).
type Index interface {
	// Upsert is idempotent on (id, sector); last write wins.
	Upsert(ctx context.Context, id string, sector domain.Sector, userID string, vector []float32) error

	// Delete removes the single (id, sector) row.
	Delete(ctx context.Context, id string, sector domain.Sector) error

	// DeleteAll removes every sector row for id.
	DeleteAll(ctx context.Context, id string) error

	// Search returns up to k hits ordered by score descending, tie-broken by
	// id ascending. The second return value reports degraded recall: true
	// when the backend could not guarantee min(k, |matches|) results (only
	// possible for the approximate backend).
	Search(ctx context.Context, sector domain.Sector, query []float32, k int, userID string) ([]Hit, bool, error)

	// Get returns the stored vector for (id, sector), or ok=false if absent.
	Get(ctx context.Context, id string, sector domain.Sector) (vector []float32, ok bool, err error)

	// BySector iterates every row in one sector, for offline use (decay sweeps, export).
	BySector(ctx context.Context, sector domain.Sector) ([]domain.VectorRow, error)
}

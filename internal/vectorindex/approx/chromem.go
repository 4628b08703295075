// ABOUTME: Vector index Backend B (C2): approximate, hash-partitioned index over chromem-go
// ABOUTME: Grounded on becomeliminal-nim-go-sdk's ChromemStore; post-filters by user id per spec §4.6
package approx

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/isolation"
	"github.com/harper/cortexmem/internal/vectorindex"
)

// Index is the approximate-recall vector backend. Unlike the exact-linear
// backend (internal/store/sqlite), it cannot be pre-filtered by user id at
// the storage layer: instead the physical collection is hash-partitioned by
// user id, and each query over-fetches within its partition and
// post-filters to the requesting user — which means Search may legitimately
// return fewer than k hits even when more exist (DegradedRecall).
type Index struct {
	db          *chromem.DB
	partitions  int
	overfetch   int
	mu          sync.RWMutex
	collections map[string]*chromem.Collection // keyed by "<sector>_part_<n>"
	dims        map[string]int                 // vector dimension observed per collection, for BySector's probe vector
}

// New creates an approximate index with p partitions (rounded up to a power
// of two via isolation.PartitionCount, per spec §6 VECTOR_PARTITIONS) and an
// over-fetch factor f applied to every Search call.
func New(partitions, overfetch int) *Index {
	if overfetch <= 0 {
		overfetch = 3
	}
	return &Index{
		db:          chromem.NewDB(),
		partitions:  isolation.PartitionCount(partitions),
		overfetch:   overfetch,
		collections: make(map[string]*chromem.Collection),
		dims:        make(map[string]int),
	}
}

func (idx *Index) collectionFor(sector domain.Sector, partition int) (*chromem.Collection, error) {
	name := fmt.Sprintf("%s_part_%d", sector, partition)

	idx.mu.RLock()
	col, ok := idx.collections[name]
	idx.mu.RUnlock()
	if ok {
		return col, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if col, ok := idx.collections[name]; ok {
		return col, nil
	}
	col, err := idx.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	idx.collections[name] = col
	return col, nil
}

func (idx *Index) Upsert(ctx context.Context, id string, sector domain.Sector, userID string, vector []float32) error {
	partition := isolation.Partition(userID, idx.partitions)
	col, err := idx.collectionFor(sector, partition)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	idx.dims[fmt.Sprintf("%s_part_%d", sector, partition)] = len(vector)
	idx.mu.Unlock()

	// chromem-go has no native upsert; delete-then-insert makes this idempotent.
	_ = col.Delete(ctx, nil, nil, id)
	return col.AddDocument(ctx, chromem.Document{
		ID:        id,
		Embedding: vector,
		Metadata:  map[string]string{"owner_id": userID, "sector": string(sector)},
	})
}

func (idx *Index) Delete(ctx context.Context, id string, sector domain.Sector) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for name, col := range idx.collections {
		if !strings.HasPrefix(name, string(sector)+"_part_") {
			continue
		}
		if err := col.Delete(ctx, nil, nil, id); err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

func (idx *Index) DeleteAll(ctx context.Context, id string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for _, col := range idx.collections {
		if err := col.Delete(ctx, nil, nil, id); err != nil && !isNotFound(err) {
			return err
		}
	}
	return nil
}

// Search over-fetches overfetch*k results from the requesting user's
// partition and post-filters by owner_id. It reports degraded=true whenever
// fewer than k post-filtered hits came back and the partition held at least
// as many raw candidates as requested — i.e. the shortfall is attributable
// to sharing a partition with other tenants, not to a genuinely small corpus.
func (idx *Index) Search(ctx context.Context, sector domain.Sector, query []float32, k int, userID string) ([]vectorindex.Hit, bool, error) {
	col, err := idx.collectionFor(sector, isolation.Partition(userID, idx.partitions))
	if err != nil {
		return nil, false, err
	}

	want := k * idx.overfetch
	count := col.Count()
	if count == 0 {
		return nil, false, nil
	}
	if want > count {
		want = count
	}

	var results []chromem.Result
	for n := want; n >= 1; n-- {
		results, err = col.QueryEmbedding(ctx, query, n, nil, nil)
		if err == nil {
			break
		}
		if !isInsufficientDocsError(err) {
			return nil, false, fmt.Errorf("query embedding: %w", err)
		}
	}

	hits := make([]vectorindex.Hit, 0, len(results))
	for _, r := range results {
		if userID != "" && r.Metadata["owner_id"] != userID {
			continue
		}
		hits = append(hits, vectorindex.Hit{ID: r.ID, Score: float64(r.Similarity)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	degraded := len(hits) < k && len(results) >= k*idx.overfetch
	return hits, degraded, nil
}

func (idx *Index) Get(ctx context.Context, id string, sector domain.Sector) ([]float32, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for name, col := range idx.collections {
		if !strings.HasPrefix(name, string(sector)+"_part_") {
			continue
		}
		doc, err := col.GetByID(ctx, id)
		if err == nil {
			return doc.Embedding, true, nil
		}
		if !isNotFound(err) {
			return nil, false, err
		}
	}
	return nil, false, nil
}

// BySector enumerates every row in a sector across all partitions, for
// offline use (decay sweeps, export). chromem-go has no list-all primitive,
// so this queries each partition for up to its full document count using
// an all-zero probe vector of each collection's dimension — ranking is irrelevant
// here since every row is wanted, not just the nearest ones.
func (idx *Index) BySector(ctx context.Context, sector domain.Sector) ([]domain.VectorRow, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []domain.VectorRow
	for name, col := range idx.collections {
		if !strings.HasPrefix(name, string(sector)+"_part_") {
			continue
		}
		count := col.Count()
		if count == 0 {
			continue
		}
		probe := make([]float32, idx.dims[name])
		results, err := col.QueryEmbedding(ctx, probe, count, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("enumerate collection %s: %w", name, err)
		}
		for _, r := range results {
			out = append(out, domain.VectorRow{
				ID:     r.ID,
				Sector: sector,
				UserID: r.Metadata["owner_id"],
				Vector: r.Embedding,
				Dim:    len(r.Embedding),
			})
		}
	}
	return out, nil
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "nResults must be") || strings.Contains(s, "number of documents")
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "not found") || strings.Contains(s, "no document")
}

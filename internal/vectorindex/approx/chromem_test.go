package approx

import (
	"context"
	"testing"

	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/isolation"
)

func TestIndex_UpsertSearchScopedByUser(t *testing.T) {
	idx := New(4, 3)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "m1", domain.SectorSemantic, "alice", []float32{1, 0, 0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, "m2", domain.SectorSemantic, "alice", []float32{0.9, 0.1, 0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, _, err := idx.Search(ctx, domain.SectorSemantic, []float32{1, 0, 0}, 10, "alice")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, h := range hits {
		if h.ID != "m1" && h.ID != "m2" {
			t.Errorf("unexpected hit id %q", h.ID)
		}
	}
}

func TestIndex_SearchEmptyCollection(t *testing.T) {
	idx := New(4, 3)
	hits, degraded, err := idx.Search(context.Background(), domain.SectorSemantic, []float32{1, 0}, 5, "alice")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 || degraded {
		t.Errorf("expected no hits and not degraded on an empty collection, got %v degraded=%v", hits, degraded)
	}
}

func TestPartitionOf_Bounded(t *testing.T) {
	for _, u := range []string{"alice", "bob", ""} {
		p := isolation.Partition(u, 8)
		if p < 0 || p >= 8 {
			t.Errorf("isolation.Partition(%q, 8) = %d, out of range", u, p)
		}
	}
}

func TestNew_RoundsPartitionsToPowerOfTwo(t *testing.T) {
	idx := New(7, 3)
	if idx.partitions != 8 {
		t.Errorf("expected New(7, ...) to round partitions up to 8, got %d", idx.partitions)
	}
}

package router

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/embedding"
	"github.com/harper/cortexmem/internal/hsg"
	"github.com/harper/cortexmem/internal/store/sqlite"
)

func newTestRouter(t *testing.T) (*Router, *sqlite.Storage) {
	t.Helper()
	st, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory: %v", err)
	}
	sectors := make(map[domain.Sector]domain.SectorConfig)
	for _, s := range domain.AllSectors {
		sectors[s] = domain.DefaultSectorConfig(s)
	}
	engine := hsg.New(hsg.Deps{
		Memories:  st.Memories,
		Waypoints: st.Waypoints,
		Jobs:      st.Jobs,
		Vectors:   st.Vectors,
		Embedder:  embedding.NewSyntheticEmbedder(32),
		Sectors:   sectors,
		Weights:   hsg.RerankWeights{Alpha: 0.6, Beta: 0.2, Gamma: 0.1, Delta: 0.1},
	})
	r := New(engine, st.Facts, func() string { return uuid.New().String() })
	return r, st
}

func TestRouter_StoreContextual(t *testing.T) {
	r, st := newTestRouter(t)
	defer st.Close()
	ctx := context.Background()

	res, err := r.Store(ctx, "alice likes python", StoreOptions{Type: StoreContextual, UserID: "alice"})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if res.Memory == nil {
		t.Fatal("expected a memory to be created")
	}
	if len(res.FactIDs) != 0 {
		t.Error("expected no fact ids for contextual store")
	}
}

func TestRouter_StoreFactual(t *testing.T) {
	r, st := newTestRouter(t)
	defer st.Close()
	ctx := context.Background()

	res, err := r.Store(ctx, "", StoreOptions{
		Type: StoreFactual,
		Facts: []FactInput{
			{Subject: "alice", Predicate: "works_at", Object: "Acme", ValidFrom: time.Now()},
		},
		UserID: "alice",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if res.Memory != nil {
		t.Error("expected no memory for factual store")
	}
	if len(res.FactIDs) != 1 {
		t.Fatalf("expected 1 fact id, got %d", len(res.FactIDs))
	}
}

func TestRouter_StoreBoth_CrossLinksSourceMemory(t *testing.T) {
	r, st := newTestRouter(t)
	defer st.Close()
	ctx := context.Background()

	res, err := r.Store(ctx, "alice started at Acme", StoreOptions{
		Type: StoreBoth,
		Facts: []FactInput{
			{Subject: "alice", Predicate: "works_at", Object: "Acme", ValidFrom: time.Now()},
		},
		UserID: "alice",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if res.Memory == nil || len(res.FactIDs) != 1 {
		t.Fatalf("expected both a memory and a fact, got %+v", res)
	}

	facts, err := st.Facts.QueryAt(ctx, sqlite.FactFilter{UserID: "alice"}, time.Now())
	if err != nil {
		t.Fatalf("QueryAt: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	if facts[0].Metadata["source_memory_id"] != res.Memory.ID {
		t.Errorf("expected source_memory_id %q, got %v", res.Memory.ID, facts[0].Metadata["source_memory_id"])
	}
}

func TestRouter_Recall_Unified(t *testing.T) {
	r, st := newTestRouter(t)
	defer st.Close()
	ctx := context.Background()

	if _, err := r.Store(ctx, "alice likes python programming", StoreOptions{UserID: "alice"}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := r.Store(ctx, "", StoreOptions{
		Type:   StoreFactual,
		Facts:  []FactInput{{Subject: "alice", Predicate: "works_at", Object: "Acme", ValidFrom: time.Now()}},
		UserID: "alice",
	}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	res, err := r.Recall(ctx, "python programming", RecallOptions{
		Type:        TypeUnified,
		FactPattern: FactPattern{Subject: "alice", Predicate: "works_at"},
		UserID:      "alice",
		K:           5,
	})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if res.Contextual == nil {
		t.Error("expected a contextual block")
	}
	if len(res.Factual) != 1 {
		t.Errorf("expected 1 factual hit, got %d", len(res.Factual))
	}
}

func TestRouter_Recall_ContextualOnly(t *testing.T) {
	r, st := newTestRouter(t)
	defer st.Close()
	ctx := context.Background()

	if _, err := r.Store(ctx, "alice likes python programming", StoreOptions{UserID: "alice"}); err != nil {
		t.Fatalf("Store: %v", err)
	}

	res, err := r.Recall(ctx, "python", RecallOptions{Type: TypeContextual, UserID: "alice"})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if res.Contextual == nil {
		t.Fatal("expected a contextual block")
	}
	if res.Factual != nil {
		t.Error("expected no factual block for contextual-only recall")
	}
}

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/embedding"
	"github.com/harper/cortexmem/internal/hsg"
	"github.com/harper/cortexmem/internal/router"
	"github.com/harper/cortexmem/internal/store/sqlite"
)

func newTestEngine(t *testing.T) (*Engine, *sqlite.Storage) {
	t.Helper()
	st, err := sqlite.NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory: %v", err)
	}
	sectors := make(map[domain.Sector]domain.SectorConfig)
	for _, s := range domain.AllSectors {
		sectors[s] = domain.DefaultSectorConfig(s)
	}
	hsgEngine := hsg.New(hsg.Deps{
		Memories:  st.Memories,
		Waypoints: st.Waypoints,
		Jobs:      st.Jobs,
		Vectors:   st.Vectors,
		Embedder:  embedding.NewSyntheticEmbedder(32),
		Sectors:   sectors,
		Weights:   hsg.RerankWeights{Alpha: 0.6, Beta: 0.2, Gamma: 0.1, Delta: 0.1},
	})
	e := New(hsgEngine, st.Facts, st.Links, st.Edges)
	return e, st
}

func TestEngine_AddGetList(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	m, err := e.Add(ctx, "alice likes hiking in the mountains", "alice", []string{"hobby"}, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, _, err := e.Get(ctx, m.ID, "alice", false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != m.Content {
		t.Errorf("expected content %q, got %q", m.Content, got.Content)
	}

	if _, _, err := e.Get(ctx, m.ID, "bob", false); err == nil {
		t.Error("expected error fetching another user's memory")
	}

	list, err := e.List(ctx, "alice", "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(list))
	}
}

func TestEngine_ListPagination(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Add(ctx, "memory item", "alice", nil, nil); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	page, err := e.List(ctx, "alice", "", 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("expected 1 memory on page, got %d", len(page))
	}

	empty, err := e.List(ctx, "alice", "", 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(empty))
	}
}

func TestEngine_SearchAndReinforce(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	m, err := e.Add(ctx, "alice prefers dark roast coffee in the morning", "alice", nil, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	res, err := e.Search(ctx, "dark roast coffee", "alice", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) == 0 {
		t.Fatal("expected at least one search hit")
	}

	if err := e.Reinforce(ctx, m.ID, "alice"); err != nil {
		t.Fatalf("Reinforce: %v", err)
	}
}

func TestEngine_FactLifecycle(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	id, err := e.AddFact(ctx, "alice", "alice", "works_at", "Acme", time.Time{}, 0, nil)
	if err != nil {
		t.Fatalf("AddFact: %v", err)
	}

	current, err := e.GetCurrentFact(ctx, "alice", "alice", "works_at")
	if err != nil {
		t.Fatalf("GetCurrentFact: %v", err)
	}
	if current.ID != id {
		t.Fatalf("expected current fact %q, got %q", id, current.ID)
	}

	bySubject, err := e.GetFactsBySubject(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("GetFactsBySubject: %v", err)
	}
	if len(bySubject) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(bySubject))
	}

	if err := e.UpdateFact(ctx, id, "alice", nil, map[string]any{"note": "confirmed"}); err != nil {
		t.Fatalf("UpdateFact: %v", err)
	}

	newID, err := e.AddFact(ctx, "alice", "alice", "works_at", "Beta Corp", time.Now(), 0, nil)
	if err != nil {
		t.Fatalf("AddFact (supersede): %v", err)
	}

	current, err = e.GetCurrentFact(ctx, "alice", "alice", "works_at")
	if err != nil {
		t.Fatalf("GetCurrentFact after supersede: %v", err)
	}
	if current.ID != newID {
		t.Fatalf("expected current fact to be the newer one %q, got %q", newID, current.ID)
	}

	if err := e.InvalidateFact(ctx, newID, "alice", time.Time{}); err != nil {
		t.Fatalf("InvalidateFact: %v", err)
	}

	if err := e.DeleteFact(ctx, id, "alice"); err != nil {
		t.Fatalf("DeleteFact: %v", err)
	}
}

func TestEngine_QueryFactsAndConflicts(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	if _, err := e.AddFact(ctx, "alice", "alice", "location", "Boston", past, 0, nil); err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	if _, err := e.AddFact(ctx, "alice", "alice", "location", "Seattle", time.Now(), 0, nil); err != nil {
		t.Fatalf("AddFact: %v", err)
	}

	inRange, err := e.QueryFactsInRange(ctx, "alice", router.FactPattern{Subject: "alice", Predicate: "location"}, past.Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("QueryFactsInRange: %v", err)
	}
	if len(inRange) < 2 {
		t.Fatalf("expected at least 2 facts in range, got %d", len(inRange))
	}

	current, err := e.QueryFacts(ctx, "alice", router.FactPattern{Subject: "alice", Predicate: "location"}, time.Time{})
	if err != nil {
		t.Fatalf("QueryFacts: %v", err)
	}
	if len(current) != 1 || current[0].Object != "Seattle" {
		t.Fatalf("expected exactly the current Seattle fact, got %+v", current)
	}

	matches, err := e.SearchFacts(ctx, "alice", "Seattle", "object", time.Time{})
	if err != nil {
		t.Fatalf("SearchFacts: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 search match, got %d", len(matches))
	}
}

func TestEngine_LinkUnlink(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	a, err := e.Add(ctx, "first memory", "alice", nil, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	b, err := e.Add(ctx, "second memory", "alice", nil, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := e.Link(ctx, a.ID, b.ID, domain.RelationRelatesTo, "alice"); err != nil {
		t.Fatalf("Link: %v", err)
	}

	links, err := e.Links(ctx, a.ID, "alice")
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(links) != 1 || links[0].ToID != b.ID {
		t.Fatalf("expected 1 link to %q, got %+v", b.ID, links)
	}

	if err := e.Unlink(ctx, a.ID, b.ID, domain.RelationRelatesTo, "alice"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	links, err = e.Links(ctx, a.ID, "alice")
	if err != nil {
		t.Fatalf("Links after unlink: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected no links after unlink, got %d", len(links))
	}
}

func TestEngine_RelateUnrelateFacts(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	id1, err := e.AddFact(ctx, "alice", "alice", "works_at", "Acme", time.Time{}, 0, nil)
	if err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	id2, err := e.AddFact(ctx, "alice", "acme", "located_in", "Boston", time.Time{}, 0, nil)
	if err != nil {
		t.Fatalf("AddFact: %v", err)
	}

	if err := e.RelateFacts(ctx, id1, id2, "implies", "alice", 1.0); err != nil {
		t.Fatalf("RelateFacts: %v", err)
	}

	related, err := e.RelatedFacts(ctx, id1, "alice")
	if err != nil {
		t.Fatalf("RelatedFacts: %v", err)
	}
	if len(related) != 1 || related[0].ID != id2 {
		t.Fatalf("expected 1 related fact %q, got %+v", id2, related)
	}

	// The edge is undirected for traversal purposes: querying from the
	// other end must also find it.
	relatedFromTarget, err := e.RelatedFacts(ctx, id2, "alice")
	if err != nil {
		t.Fatalf("RelatedFacts (reverse): %v", err)
	}
	if len(relatedFromTarget) != 1 || relatedFromTarget[0].ID != id1 {
		t.Fatalf("expected 1 related fact %q, got %+v", id1, relatedFromTarget)
	}

	if err := e.UnrelateFacts(ctx, id1, id2, "implies", "alice"); err != nil {
		t.Fatalf("UnrelateFacts: %v", err)
	}
	related, err = e.RelatedFacts(ctx, id1, "alice")
	if err != nil {
		t.Fatalf("RelatedFacts after unrelate: %v", err)
	}
	if len(related) != 0 {
		t.Errorf("expected no related facts after unrelate, got %d", len(related))
	}
}

func TestEngine_StoreAndRecallUnified(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	sres, err := e.Store(ctx, "alice started at Acme as an engineer", router.StoreOptions{
		Type: router.StoreBoth,
		Facts: []router.FactInput{
			{Subject: "alice", Predicate: "works_at", Object: "Acme"},
		},
		UserID: "alice",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if sres.Memory == nil || len(sres.FactIDs) != 1 {
		t.Fatalf("expected both a memory and a fact, got %+v", sres)
	}

	rres, err := e.Recall(ctx, "acme engineer", router.RecallOptions{
		Type:        router.TypeUnified,
		FactPattern: router.FactPattern{Subject: "alice", Predicate: "works_at"},
		UserID:      "alice",
		K:           5,
	})
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if rres.Contextual == nil || len(rres.Factual) != 1 {
		t.Fatalf("expected both contextual and factual results, got %+v", rres)
	}
}

func TestEngine_Delete(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	m, err := e.Add(ctx, "ephemeral memory", "alice", nil, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Delete(ctx, m.ID, "alice"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := e.Get(ctx, m.ID, "alice", false); err == nil {
		t.Error("expected error getting a deleted memory")
	}
}

func TestEngine_Wipe(t *testing.T) {
	e, st := newTestEngine(t)
	defer st.Close()
	ctx := context.Background()

	m1, err := e.Add(ctx, "memory to be wiped", "alice", nil, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	m2, err := e.Add(ctx, "another memory to be wiped", "alice", nil, nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Link(ctx, m1.ID, m2.ID, domain.RelationRelatesTo, "alice"); err != nil {
		t.Fatalf("Link: %v", err)
	}

	f1ID, err := e.AddFact(ctx, "alice", "alice", "likes", "coffee", time.Time{}, 0, nil)
	if err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	f2ID, err := e.AddFact(ctx, "alice", "alice", "likes", "tea", time.Time{}, 0, nil)
	if err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	if err := e.RelateFacts(ctx, f1ID, f2ID, "supersedes", "alice", 1.0); err != nil {
		t.Fatalf("RelateFacts: %v", err)
	}

	result, err := e.Wipe(ctx, "alice")
	if err != nil {
		t.Fatalf("Wipe: %v", err)
	}
	if result.Memories != 2 {
		t.Errorf("expected 2 memories wiped, got %d", result.Memories)
	}
	if result.Facts != 2 {
		t.Errorf("expected 2 facts wiped, got %d", result.Facts)
	}
	if result.Links != 1 {
		t.Errorf("expected 1 link wiped, got %d", result.Links)
	}
	if result.Edges != 1 {
		t.Errorf("expected 1 edge wiped, got %d", result.Edges)
	}

	list, err := e.List(ctx, "alice", "", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no memories after wipe, got %d", len(list))
	}
	links, err := e.Links(ctx, m1.ID, "alice")
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected no links after wipe, got %d", len(links))
	}
	related, err := e.RelatedFacts(ctx, f1ID, "alice")
	if err != nil {
		t.Fatalf("RelatedFacts: %v", err)
	}
	if len(related) != 0 {
		t.Errorf("expected no related facts after wipe, got %d", len(related))
	}
}

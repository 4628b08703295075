// ABOUTME: Engine is the full programmatic API (spec §6) the tool-server and CLI call into
// ABOUTME: Wires the HSG core, TKG fact store, unified router, links, and export behind one façade
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/hsg"
	"github.com/harper/cortexmem/internal/router"
	"github.com/harper/cortexmem/internal/store/sqlite"
)

// FactStore is the full TKG contract the engine needs beyond what
// router.FactWriter already covers.
type FactStore interface {
	router.FactWriter
	GetCurrent(ctx context.Context, userID, subject, predicate string) (*domain.Fact, error)
	InRange(ctx context.Context, filter sqlite.FactFilter, from, to time.Time) ([]*domain.Fact, error)
	Search(ctx context.Context, filter sqlite.FactFilter, field, pattern string, t time.Time) ([]*domain.Fact, error)
	FindConflicting(ctx context.Context, userID, subject, predicate string, t time.Time) ([]*domain.Fact, error)
	UpdateFact(ctx context.Context, id, userID string, confidence *float64, metadata map[string]any) error
	Invalidate(ctx context.Context, id, userID string, at time.Time) error
	Delete(ctx context.Context, id, userID string) error
	WipeUser(ctx context.Context, userID string) (int64, error)
}

// LinkStore is the supplemented explicit-link contract; satisfied by
// internal/store/sqlite.LinkStore.
type LinkStore interface {
	Add(ctx context.Context, l *domain.FactLink) error
	Remove(ctx context.Context, fromID, toID, relation, userID string) error
	From(ctx context.Context, memoryID, userID string) ([]*domain.FactLink, error)
	WipeUser(ctx context.Context, userID string) (int64, error)
}

// EdgeStore is the temporal-edge contract (C5's get_related_facts and its
// write side); satisfied by internal/store/sqlite.EdgeStore. Like the
// waypoint graph, temporal edges reference fact rows by id but the edge
// table itself has no postgres counterpart, so this always points at the
// sqlite store regardless of METADATA_BACKEND.
type EdgeStore interface {
	Add(ctx context.Context, e *domain.TemporalEdge) error
	RelatedFacts(ctx context.Context, factID, userID string) ([]*domain.Fact, error)
	Remove(ctx context.Context, sourceID, targetID, relationType, userID string) error
	WipeUser(ctx context.Context, userID string) (int64, error)
}

// Engine is the memory engine's full programmatic API surface: memory CRUD,
// unified recall/store, and every temporal-fact operation, all user-scoped.
type Engine struct {
	hsg    *hsg.Engine
	facts  FactStore
	links  LinkStore
	edges  EdgeStore
	router *router.Router
}

func New(hsgEngine *hsg.Engine, facts FactStore, links LinkStore, edges EdgeStore) *Engine {
	r := router.New(hsgEngine, facts, func() string { return uuid.New().String() })
	return &Engine{hsg: hsgEngine, facts: facts, links: links, edges: edges, router: r}
}

// --- HSG / memory operations ---

// Add stores a new memory, returning its id and assigned sectors.
func (e *Engine) Add(ctx context.Context, content string, userID string, tags []string, metadata map[string]any) (*domain.Memory, error) {
	return e.hsg.Insert(ctx, userID, content, tags, metadata)
}

// Get returns a memory by id, scoped to userID, optionally with its vector rows.
func (e *Engine) Get(ctx context.Context, id, userID string, includeVectors bool) (*domain.Memory, []domain.VectorRow, error) {
	return e.hsg.Get(ctx, id, userID, includeVectors)
}

// List returns a page of memories owned by userID.
func (e *Engine) List(ctx context.Context, userID string, sector domain.Sector, limit, offset int) ([]*domain.Memory, error) {
	rows, err := e.hsg.List(ctx, userID, sector, limit+offset)
	if err != nil {
		return nil, err
	}
	if offset >= len(rows) {
		return nil, nil
	}
	return rows[offset:], nil
}

// Search runs a contextual-only recall and returns ranked hits.
func (e *Engine) Search(ctx context.Context, query, userID string, limit int, sectors []domain.Sector) (*hsg.QueryResult, error) {
	return e.hsg.Query(ctx, userID, query, hsg.SearchOptions{Sectors: sectors, K: limit})
}

// Reinforce bumps a memory's salience and touches last_seen_at.
func (e *Engine) Reinforce(ctx context.Context, id, userID string) error {
	return e.hsg.Reinforce(ctx, id, userID)
}

// Recall dispatches to C4/C5/both per opts.Type.
func (e *Engine) Recall(ctx context.Context, text string, opts router.RecallOptions) (*router.RecallResult, error) {
	return e.router.Recall(ctx, text, opts)
}

// Store dispatches to C4/C5/both per opts.Type.
func (e *Engine) Store(ctx context.Context, content string, opts router.StoreOptions) (*router.StoreResult, error) {
	return e.router.Store(ctx, content, opts)
}

// WipeResult reports how many rows Wipe removed from each subsystem.
type WipeResult struct {
	Memories int64
	Facts    int64
	Links    int64
	Edges    int64
}

// Wipe deletes every memory, fact, explicit link, and temporal edge owned by
// userID. Spec §6 lists wipe as the single dangerous top-level operation and
// groups it with the other multi-tenant-isolation operations without
// subsystem scoping, so a partial wipe that leaves facts/links/edges behind
// would violate that isolation guarantee.
func (e *Engine) Wipe(ctx context.Context, userID string) (WipeResult, error) {
	memories, err := e.hsg.Wipe(ctx, userID)
	if err != nil {
		return WipeResult{}, err
	}
	facts, err := e.facts.WipeUser(ctx, userID)
	if err != nil {
		return WipeResult{}, err
	}
	links, err := e.links.WipeUser(ctx, userID)
	if err != nil {
		return WipeResult{}, err
	}
	edges, err := e.edges.WipeUser(ctx, userID)
	if err != nil {
		return WipeResult{}, err
	}
	return WipeResult{Memories: memories, Facts: facts, Links: links, Edges: edges}, nil
}

// DecaySweep runs the periodic background salience decay pass for one sector.
func (e *Engine) DecaySweep(ctx context.Context, sector domain.Sector) (int, error) {
	return e.hsg.DecaySweep(ctx, sector)
}

// --- TKG / temporal fact operations ---

// AddFact inserts a single fact, auto-closing any prior open fact for the
// same (user, subject, predicate).
func (e *Engine) AddFact(ctx context.Context, userID, subject, predicate, object string, validFrom time.Time, confidence float64, metadata map[string]any) (string, error) {
	if subject == "" || predicate == "" || object == "" {
		return "", cortexerr.New(cortexerr.InvalidInput, "subject, predicate, and object are required")
	}
	if confidence == 0 {
		confidence = 1.0
	}
	if validFrom.IsZero() {
		validFrom = time.Now().UTC()
	}
	f := &domain.Fact{
		ID:          "fact_" + uuid.New().String(),
		UserID:      userID,
		Subject:     subject,
		Predicate:   predicate,
		Object:      object,
		ValidFrom:   validFrom,
		Confidence:  confidence,
		LastUpdated: time.Now().UTC(),
		Metadata:    metadata,
	}
	if err := e.facts.Insert(ctx, f); err != nil {
		return "", err
	}
	return f.ID, nil
}

// AddFacts atomically inserts a batch of facts, each auto-closing its own
// predecessor.
func (e *Engine) AddFacts(ctx context.Context, facts []*domain.Fact) error {
	if len(facts) == 0 {
		return cortexerr.New(cortexerr.InvalidInput, "at least one fact is required")
	}
	for _, f := range facts {
		if f.ID == "" {
			f.ID = "fact_" + uuid.New().String()
		}
		if f.Confidence == 0 {
			f.Confidence = 1.0
		}
		if f.ValidFrom.IsZero() {
			f.ValidFrom = time.Now().UTC()
		}
		if f.LastUpdated.IsZero() {
			f.LastUpdated = time.Now().UTC()
		}
	}
	return e.facts.InsertBatch(ctx, facts)
}

// UpdateFact mutates only confidence and/or metadata.
func (e *Engine) UpdateFact(ctx context.Context, id, userID string, confidence *float64, metadata map[string]any) error {
	return e.facts.UpdateFact(ctx, id, userID, confidence, metadata)
}

// InvalidateFact closes a fact, defaulting valid_to to now.
func (e *Engine) InvalidateFact(ctx context.Context, id, userID string, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return e.facts.Invalidate(ctx, id, userID, at)
}

// DeleteFact removes a fact irreversibly.
func (e *Engine) DeleteFact(ctx context.Context, id, userID string) error {
	return e.facts.Delete(ctx, id, userID)
}

// QueryFacts is the as-of query: facts active at t matching the pattern.
func (e *Engine) QueryFacts(ctx context.Context, userID string, pattern router.FactPattern, t time.Time) ([]*domain.Fact, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	filter := sqlite.FactFilter{UserID: userID, Subject: pattern.Subject, Predicate: pattern.Predicate, Object: pattern.Object, MinConf: pattern.MinConf}
	return e.facts.QueryAt(ctx, filter, t)
}

// QueryFactsInRange returns facts whose validity interval overlaps [from, to].
func (e *Engine) QueryFactsInRange(ctx context.Context, userID string, pattern router.FactPattern, from, to time.Time) ([]*domain.Fact, error) {
	filter := sqlite.FactFilter{UserID: userID, Subject: pattern.Subject, Predicate: pattern.Predicate, Object: pattern.Object, MinConf: pattern.MinConf}
	return e.facts.InRange(ctx, filter, from, to)
}

// GetCurrentFact returns the single currently-open fact for (user, subject, predicate).
func (e *Engine) GetCurrentFact(ctx context.Context, userID, subject, predicate string) (*domain.Fact, error) {
	return e.facts.GetCurrent(ctx, userID, subject, predicate)
}

// GetFactsBySubject returns every currently-active fact about subject.
func (e *Engine) GetFactsBySubject(ctx context.Context, userID, subject string) ([]*domain.Fact, error) {
	filter := sqlite.FactFilter{UserID: userID, Subject: subject}
	return e.facts.QueryAt(ctx, filter, time.Now().UTC())
}

// SearchFacts substring-matches field, intersected with as-of t.
func (e *Engine) SearchFacts(ctx context.Context, userID, pattern, field string, t time.Time) ([]*domain.Fact, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	filter := sqlite.FactFilter{UserID: userID}
	return e.facts.Search(ctx, filter, field, pattern, t)
}

// FindConflictingFacts returns every fact active at t for (subject,
// predicate); two or more results mean a conflict.
func (e *Engine) FindConflictingFacts(ctx context.Context, userID, subject, predicate string, t time.Time) ([]*domain.Fact, error) {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return e.facts.FindConflicting(ctx, userID, subject, predicate, t)
}

// --- Supplemented: explicit memory links ---

// Link asserts a typed relation from one memory to another.
func (e *Engine) Link(ctx context.Context, fromID, toID string, relation domain.LinkRelation, userID string) error {
	return e.links.Add(ctx, &domain.FactLink{FromID: fromID, ToID: toID, Relation: string(relation), UserID: userID, CreatedAt: time.Now().UTC()})
}

// Unlink removes a previously-asserted relation.
func (e *Engine) Unlink(ctx context.Context, fromID, toID string, relation domain.LinkRelation, userID string) error {
	return e.links.Remove(ctx, fromID, toID, string(relation), userID)
}

// Links returns every relation originating at memoryID.
func (e *Engine) Links(ctx context.Context, memoryID, userID string) ([]*domain.FactLink, error) {
	return e.links.From(ctx, memoryID, userID)
}

// --- Temporal edges (C5 get_related_facts) ---

// RelateFacts asserts a weighted, typed temporal edge between two facts.
// Re-asserting the same (source, target, relation) accumulates weight
// rather than overwriting it (EdgeStore.Add is an upsert).
func (e *Engine) RelateFacts(ctx context.Context, sourceFactID, targetFactID, relationType, userID string, weight float64) error {
	now := time.Now().UTC()
	return e.edges.Add(ctx, &domain.TemporalEdge{
		SourceID:     sourceFactID,
		TargetID:     targetFactID,
		RelationType: relationType,
		Weight:       weight,
		ValidFrom:    now,
		UserID:       userID,
	})
}

// UnrelateFacts removes a previously-asserted temporal edge.
func (e *Engine) UnrelateFacts(ctx context.Context, sourceFactID, targetFactID, relationType, userID string) error {
	return e.edges.Remove(ctx, sourceFactID, targetFactID, relationType, userID)
}

// RelatedFacts returns every fact reachable from factID via a temporal
// edge in either direction, scoped to userID on both legs of the traversal.
func (e *Engine) RelatedFacts(ctx context.Context, factID, userID string) ([]*domain.Fact, error) {
	return e.edges.RelatedFacts(ctx, factID, userID)
}

// Delete cascades: memory row, vector rows, and waypoint membership.
func (e *Engine) Delete(ctx context.Context, id, userID string) error {
	return e.hsg.Delete(ctx, id, userID)
}

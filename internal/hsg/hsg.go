// ABOUTME: HSG core (C4): memory storage, waypoint graph maintenance, salience/decay, insert and query orchestration
// ABOUTME: Orchestrates the embedder, classifier, vector index, and sqlite metadata store behind one engine
package hsg

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/harper/cortexmem/internal/classifier"
	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/embedding"
	"github.com/harper/cortexmem/internal/isolation"
	"github.com/harper/cortexmem/internal/store/sqlite"
	"github.com/harper/cortexmem/internal/vectorindex"
)

// RerankWeights are the coefficients for the final re-rank formula:
// final_score = Alpha*cosine + Beta*salience + Gamma*recency_decay + Delta*path_bonus.
type RerankWeights struct {
	Alpha, Beta, Gamma, Delta float64
}

// MemoryStore is the metadata persistence contract the HSG core needs.
// github.com/harper/cortexmem/internal/store/sqlite.MemoryStore and
// internal/store/postgres.MemoryStore both satisfy it, selected at startup
// by METADATA_BACKEND.
type MemoryStore interface {
	Insert(ctx context.Context, m *domain.Memory) error
	Get(ctx context.Context, id, userID string) (*domain.Memory, error)
	GetAny(ctx context.Context, id string) (*domain.Memory, error)
	List(ctx context.Context, userID string, sector domain.Sector, limit int) ([]*domain.Memory, error)
	UpdateSalience(ctx context.Context, id string, salience float64) error
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id, userID string) error
	WipeUser(ctx context.Context, userID string) (int64, error)
	AllIDsBySector(ctx context.Context, sector domain.Sector) ([]string, error)
}

// WaypointStore is the associative-graph persistence contract. The waypoint
// graph is structurally tied to the HSG algorithms (centroid math, BFS
// expansion), so unlike MemoryStore it has one implementation
// (internal/store/sqlite) regardless of METADATA_BACKEND.
type WaypointStore interface {
	Insert(ctx context.Context, w *domain.Waypoint) error
	Get(ctx context.Context, id string) (*domain.Waypoint, error)
	BySector(ctx context.Context, sector domain.Sector) ([]*domain.Waypoint, error)
	UpdateCentroid(ctx context.Context, id string, meanV []float32, members []string) error
	UpsertEdge(ctx context.Context, a, b string, delta float64, at time.Time) error
	Neighbors(ctx context.Context, id string, limit int) ([]domain.WaypointEdge, error)
	SetMembership(ctx context.Context, memoryID string, sector domain.Sector, waypointID string) error
	MembershipOf(ctx context.Context, memoryID string, sector domain.Sector) (string, bool, error)
	RemoveMembership(ctx context.Context, memoryID string) error
}

// JobEnqueuer is the durable coactivation queue's write side; the worker
// that drains it (internal/coactivation) talks to the same underlying
// store through its own, wider interface.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *domain.CoactivationJob) error
}

// Engine is the HSG core: it owns memory and waypoint persistence and
// orchestrates insert/query against a pluggable vector index and embedder.
type Engine struct {
	memories  MemoryStore
	waypoints WaypointStore
	jobs      JobEnqueuer
	vectors   vectorindex.Index
	embedder  embedding.Embedder
	cache     *isolation.Cache

	sectors   map[domain.Sector]domain.SectorConfig
	weights   RerankWeights
	maxExp    int
	seeds     int
	overfetch int

	now func() time.Time
}

// Deps bundles the engine's collaborators; everything is pluggable through
// narrow interfaces so alternate metadata backends (e.g. postgres) can be
// substituted without touching the HSG algorithms.
type Deps struct {
	Memories  MemoryStore
	Waypoints WaypointStore
	Jobs      JobEnqueuer
	Vectors   vectorindex.Index
	Embedder  embedding.Embedder
	Cache     *isolation.Cache

	Sectors   map[domain.Sector]domain.SectorConfig
	Weights   RerankWeights
	MaxExp    int
	Seeds     int
	Overfetch int
}

func New(d Deps) *Engine {
	if d.Seeds <= 0 {
		d.Seeds = 3
	}
	if d.Overfetch <= 0 {
		d.Overfetch = 3
	}
	if d.MaxExp <= 0 {
		d.MaxExp = 5
	}
	return &Engine{
		memories:  d.Memories,
		waypoints: d.Waypoints,
		jobs:      d.Jobs,
		vectors:   d.Vectors,
		embedder:  d.Embedder,
		cache:     d.Cache,
		sectors:   d.Sectors,
		weights:   d.Weights,
		maxExp:    d.MaxExp,
		seeds:     d.Seeds,
		overfetch: d.Overfetch,
		now:       time.Now,
	}
}

// SearchOptions configures Query.
type SearchOptions struct {
	Sectors     []domain.Sector // empty means all sectors
	K           int
	MinSalience float64
}

// Insert embeds and classifies content, upserts vector rows per assigned
// sector, reconciles waypoint membership, and persists the memory row.
func (e *Engine) Insert(ctx context.Context, userID, content string, tags []string, metadata map[string]any) (*domain.Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, cortexerr.New(cortexerr.InvalidInput, "content must be non-empty")
	}
	if userID == "" {
		userID = domain.AnonymousUser
	}

	v, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.BackendUnavailable, "embed content", err)
	}
	if !embedding.Finite(v) {
		return nil, cortexerr.New(cortexerr.InvalidInput, "embedder returned non-finite vector")
	}

	primary, secondaries := classifier.Classify(content)
	allSectors := dedupeSectors(append([]domain.Sector{primary}, secondaries...))

	now := e.now().UTC()
	m := &domain.Memory{
		ID:            "mem_" + uuid.New().String(),
		UserID:        userID,
		Content:       content,
		PrimarySector: primary,
		Sectors:       allSectors,
		Tags:          dedupeTags(tags),
		Metadata:      metadata,
		Salience:      0.5,
		CreatedAt:     now,
		LastSeenAt:    now,
	}

	for _, sector := range allSectors {
		if err := e.vectors.Upsert(ctx, m.ID, sector, userID, v); err != nil {
			return nil, cortexerr.Wrap(cortexerr.BackendUnavailable, "upsert vector", err)
		}
		if err := e.reconcileWaypoint(ctx, sector, m.ID, v); err != nil {
			return nil, err
		}
	}

	if err := e.memories.Insert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// reconcileWaypoint joins memoryID to the nearest waypoint in sector if its
// cosine similarity meets tau_new, updating the incremental centroid;
// otherwise it creates a new singleton waypoint.
func (e *Engine) reconcileWaypoint(ctx context.Context, sector domain.Sector, memoryID string, v []float32) error {
	cfg := e.sectors[sector]
	candidates, err := e.waypoints.BySector(ctx, sector)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "list waypoints", err)
	}

	var best *domain.Waypoint
	bestScore := -2.0
	for _, w := range candidates {
		score := sqlite.CosineSimilarity(v, w.MeanV)
		if score > bestScore {
			bestScore = score
			best = w
		}
	}

	if best != nil && bestScore >= cfg.TauNew && len(best.Members) < cfg.MaxNeighbors {
		n := float64(len(best.Members))
		newMean := incrementalCentroid(best.MeanV, n, v)
		members := append(append([]string{}, best.Members...), memoryID)
		if err := e.waypoints.UpdateCentroid(ctx, best.ID, newMean, members); err != nil {
			return cortexerr.Wrap(cortexerr.Internal, "update waypoint centroid", err)
		}
		return e.waypoints.SetMembership(ctx, memoryID, sector, best.ID)
	}

	w := &domain.Waypoint{
		ID:        "wp_" + uuid.New().String(),
		Sector:    sector,
		MeanV:     embedding.Normalize(v),
		Members:   []string{memoryID},
		CreatedAt: e.now().UTC(),
	}
	if err := e.waypoints.Insert(ctx, w); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "create waypoint", err)
	}
	return e.waypoints.SetMembership(ctx, memoryID, sector, w.ID)
}

// incrementalCentroid folds v into a centroid that previously summarized n
// members, then re-normalizes so the invariant ||mean_v|| ~= 1 holds.
func incrementalCentroid(meanOld []float32, n float64, v []float32) []float32 {
	sum := make([]float32, len(meanOld))
	for i := range meanOld {
		sum[i] = meanOld[i]*float32(n) + v[i]
	}
	avg := make([]float32, len(sum))
	for i := range sum {
		avg[i] = sum[i] / float32(n+1)
	}
	return embedding.Normalize(avg)
}

func dedupeSectors(sectors []domain.Sector) []domain.Sector {
	seen := make(map[domain.Sector]bool)
	var out []domain.Sector
	for _, s := range sectors {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Get returns a memory by id, scoped to userID, optionally with its vector rows.
func (e *Engine) Get(ctx context.Context, id, userID string, includeVectors bool) (*domain.Memory, []domain.VectorRow, error) {
	m, err := e.memories.Get(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	if !includeVectors {
		return m, nil, nil
	}
	var rows []domain.VectorRow
	for _, sector := range m.Sectors {
		v, ok, err := e.vectors.Get(ctx, id, sector)
		if err != nil {
			return nil, nil, cortexerr.Wrap(cortexerr.Internal, "get vector row", err)
		}
		if !ok {
			continue // tolerate a brief window where the vector upsert hasn't landed yet
		}
		rows = append(rows, domain.VectorRow{ID: id, Sector: sector, UserID: userID, Vector: v, Dim: len(v)})
	}
	return m, rows, nil
}

// List returns a page of memories owned by userID, optionally filtered by sector.
func (e *Engine) List(ctx context.Context, userID string, sector domain.Sector, limit int) ([]*domain.Memory, error) {
	return e.memories.List(ctx, userID, sector, limit)
}

// Reinforce adds the sector's reinforcement step to salience (capped at 1.0)
// and touches last_seen_at.
func (e *Engine) Reinforce(ctx context.Context, id, userID string) error {
	m, err := e.memories.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	cfg := e.sectors[m.PrimarySector]
	salience := math.Min(1.0, m.Salience+cfg.Reinforcement)
	now := e.now().UTC()
	if err := e.memories.UpdateSalience(ctx, id, salience); err != nil {
		return err
	}
	return e.memories.TouchLastSeen(ctx, id, now)
}

// Delete cascades: removes the memory row, every sector vector row, and the
// memory's waypoint membership rows; the waypoint row and its member list
// are left unchanged.
func (e *Engine) Delete(ctx context.Context, id, userID string) error {
	if _, err := e.memories.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := e.vectors.DeleteAll(ctx, id); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "delete vectors", err)
	}
	if err := e.waypoints.RemoveMembership(ctx, id); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "remove waypoint membership", err)
	}
	return e.memories.Delete(ctx, id, userID)
}

// Wipe deletes every memory (and its vectors/membership) owned by userID.
func (e *Engine) Wipe(ctx context.Context, userID string) (int64, error) {
	ids, err := e.memories.List(ctx, userID, "", -1)
	if err != nil {
		return 0, err
	}
	for _, m := range ids {
		if err := e.vectors.DeleteAll(ctx, m.ID); err != nil {
			return 0, cortexerr.Wrap(cortexerr.Internal, "wipe: delete vectors", err)
		}
		if err := e.waypoints.RemoveMembership(ctx, m.ID); err != nil {
			return 0, cortexerr.Wrap(cortexerr.Internal, "wipe: remove membership", err)
		}
	}
	return e.memories.WipeUser(ctx, userID)
}

// ScoredHit pairs a query result with the coactivation members it implies.
type ScoredHit struct {
	domain.ScoredMemory
	Sector domain.Sector
}

// QueryResult is the contextual query's return value: ranked hits plus a
// degraded-recall flag propagated from the vector backend.
type QueryResult struct {
	Hits     []ScoredHit
	Degraded bool
}

// Query performs candidate retrieval, waypoint expansion, and re-ranking,
// then publishes a durable coactivation job for the returned memories. Per
// spec §5, results are cached per-user; a hit skips the vector search,
// waypoint expansion, and re-rank entirely.
func (e *Engine) Query(ctx context.Context, userID, queryText string, opts SearchOptions) (*QueryResult, error) {
	if userID == "" {
		userID = domain.AnonymousUser
	}
	k := opts.K
	if k <= 0 {
		k = 10
	}
	sectors := opts.Sectors
	if len(sectors) == 0 {
		sectors = domain.AllSectors
	}

	cacheKey := isolation.Key(userID, sectorNames(sectors), queryText, k)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if result, ok := cached.(*QueryResult); ok {
				return result, nil
			}
		}
	}

	q, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.BackendUnavailable, "embed query", err)
	}

	best := make(map[string]*candidate)
	degraded := false

	for _, sector := range sectors {
		hits, deg, err := e.vectors.Search(ctx, sector, q, k*e.overfetch, userID)
		if err != nil {
			return nil, cortexerr.Wrap(cortexerr.BackendUnavailable, "search vector index", err)
		}
		degraded = degraded || deg
		for _, h := range hits {
			if c, ok := best[h.ID]; !ok || h.Score > c.cosine {
				best[h.ID] = &candidate{memoryID: h.ID, sector: sector, cosine: h.Score, depth: 0}
			}
		}
	}

	// Waypoint expansion: seed from the top-N direct candidates, BFS up to maxExp total neighbors.
	seedCandidates := topCandidates(best, e.seeds)

	visited := make(map[string]bool)
	var frontier []string
	for _, c := range seedCandidates {
		wpID, ok, err := e.waypoints.MembershipOf(ctx, c.memoryID, c.sector)
		if err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "lookup waypoint membership", err)
		}
		if ok && !visited[wpID] {
			visited[wpID] = true
			frontier = append(frontier, wpID)
		}
	}

	visitedNeighbors := 0
	pathByMemory := make(map[string][]string)
	queue := append([]string{}, frontier...)
	depth := 1
	for len(queue) > 0 && visitedNeighbors < e.maxExp {
		next := queue[0]
		queue = queue[1:]

		neighbors, err := e.waypoints.Neighbors(ctx, next, e.maxExp)
		if err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "expand waypoint neighbors", err)
		}
		for _, edge := range neighbors {
			if visitedNeighbors >= e.maxExp {
				break // hard cap checked before adding, never after
			}
			other := edge.A
			if other == next {
				other = edge.B
			}
			if visited[other] {
				continue
			}
			visited[other] = true
			visitedNeighbors++

			w, err := e.waypoints.Get(ctx, other)
			if err != nil {
				continue
			}
			for _, memberID := range w.Members {
				if _, known := best[memberID]; !known {
					sim := sqlite.CosineSimilarity(q, w.MeanV)
					best[memberID] = &candidate{memoryID: memberID, sector: w.Sector, cosine: sim, depth: depth}
				}
				pathByMemory[memberID] = append(pathByMemory[memberID], other)
			}
			queue = append(queue, other)
		}
		depth++
	}

	now := e.now().UTC()
	var scored []ScoredHit
	for _, c := range best {
		m, err := e.memories.Get(ctx, c.memoryID, userID)
		if err != nil {
			continue // tolerate partial rows / cross-user leakage from a shared waypoint
		}
		if m.Salience < opts.MinSalience {
			continue
		}
		cfg := e.sectors[m.PrimarySector]
		recency := recencyDecay(now, m.LastSeenAt, cfg.DecayLambda)
		pathBonus := 1.0
		if c.depth > 0 {
			pathBonus = 1.0 / float64(1+c.depth)
		}
		finalScore := e.weights.Alpha*c.cosine + e.weights.Beta*m.Salience + e.weights.Gamma*recency + e.weights.Delta*pathBonus

		scored = append(scored, ScoredHit{
			ScoredMemory: domain.ScoredMemory{
				Memory: *m,
				Score:  finalScore,
				Cosine: c.cosine,
				Path:   pathByMemory[c.memoryID],
			},
			Sector: c.sector,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Memory.ID < scored[j].Memory.ID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	members := make([]domain.CoactivatedMember, 0, len(scored))
	for _, h := range scored {
		members = append(members, domain.CoactivatedMember{MemoryID: h.Memory.ID, Sector: h.Memory.PrimarySector})
	}

	result := &QueryResult{Hits: scored, Degraded: degraded}
	if e.cache != nil {
		e.cache.Set(cacheKey, result, int64(len(scored)+1))
	}

	if len(members) >= 2 {
		if err := e.publishCoactivation(ctx, members, now); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// sectorNames renders sectors as strings for the cache key; isolation.Key
// sorts them itself so ordering here doesn't matter.
func sectorNames(sectors []domain.Sector) []string {
	names := make([]string, len(sectors))
	for i, s := range sectors {
		names[i] = string(s)
	}
	return names
}

func (e *Engine) publishCoactivation(ctx context.Context, members []domain.CoactivatedMember, at time.Time) error {
	job := &domain.CoactivationJob{
		ID:         "job_" + ulid.Make().String(),
		Status:     domain.JobPending,
		Members:    members,
		QueryAt:    at,
		EnqueuedAt: at,
		UpdatedAt:  at,
	}
	if err := e.jobs.Enqueue(ctx, job); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "publish coactivation job", err)
	}
	return nil
}

// candidate tracks one memory's best-known cosine score and how it was reached.
type candidate struct {
	memoryID string
	sector   domain.Sector
	cosine   float64
	depth    int // 0 = direct hit, >0 = reached via waypoint expansion
}

// topCandidates returns the n highest-scoring candidates, ordered by cosine descending.
func topCandidates(byID map[string]*candidate, n int) []*candidate {
	out := make([]*candidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].cosine != out[j].cosine {
			return out[i].cosine > out[j].cosine
		}
		return out[i].memoryID < out[j].memoryID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// recencyDecay computes exp(-lambda * ageDays), matching the sector's decay
// rate so re-ranking and the background salience sweep agree on recency.
func recencyDecay(now, lastSeen time.Time, lambda float64) float64 {
	ageDays := now.Sub(lastSeen).Hours() / 24.0
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-lambda * ageDays)
}

// DecaySweep multiplies every memory's salience in sector by
// exp(-lambda*deltaDays) since last_seen_at, floored at the sector's
// salience floor. Intended as a periodic background pass; Query's re-rank
// applies decay lazily without persisting, so the two may disagree briefly
// between sweeps.
func (e *Engine) DecaySweep(ctx context.Context, sector domain.Sector) (int, error) {
	ids, err := e.memories.AllIDsBySector(ctx, sector)
	if err != nil {
		return 0, err
	}
	cfg := e.sectors[sector]
	now := e.now().UTC()
	n := 0
	for _, id := range ids {
		m, err := e.memories.GetAny(ctx, id)
		if err != nil {
			continue
		}
		decayed := m.Salience * recencyDecay(now, m.LastSeenAt, cfg.DecayLambda)
		if decayed < cfg.SalienceFloor {
			decayed = cfg.SalienceFloor
		}
		if err := e.memories.UpdateSalience(ctx, id, decayed); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

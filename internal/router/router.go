// ABOUTME: Unified query router (C8): dispatches contextual/factual/unified recall and store operations
// ABOUTME: No cross-system re-ranking between HSG and TKG results; callers merge by semantics per spec §4.8
package router

import (
	"context"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/hsg"
	"github.com/harper/cortexmem/internal/store/sqlite"
)

// QueryType selects which subsystem(s) a recall dispatches to.
type QueryType string

const (
	TypeContextual QueryType = "contextual"
	TypeFactual    QueryType = "factual"
	TypeUnified    QueryType = "unified"
)

// StoreType selects which subsystem(s) a store writes to.
type StoreType string

const (
	StoreContextual StoreType = "contextual"
	StoreFactual    StoreType = "factual"
	StoreBoth       StoreType = "both"
)

// FactPattern is the equality-match filter for a factual query; a zero
// field acts as a wildcard, per spec §4.5 query_at semantics.
type FactPattern struct {
	Subject   string
	Predicate string
	Object    string
	MinConf   float64
}

// FactInput describes one fact to insert via Store's factual/both path.
type FactInput struct {
	Subject    string
	Predicate  string
	Object     string
	ValidFrom  time.Time
	Confidence float64
	Metadata   map[string]any
}

// RecallOptions configures Recall. Type defaults to TypeUnified.
type RecallOptions struct {
	Type        QueryType
	FactPattern FactPattern
	At          time.Time // zero means now
	K           int
	Sectors     []domain.Sector
	MinSalience float64
	UserID      string
}

// RecallResult carries whichever blocks were requested; unrequested blocks are nil.
type RecallResult struct {
	Contextual *hsg.QueryResult
	Factual    []*domain.Fact
}

// StoreOptions configures Store. Type defaults to StoreContextual.
type StoreOptions struct {
	Type     StoreType
	Facts    []FactInput
	Tags     []string
	Metadata map[string]any
	UserID   string
}

// StoreResult carries whichever writes were performed; unrequested fields are nil.
type StoreResult struct {
	Memory *domain.Memory
	FactIDs []string
}

// FactWriter is the TKG write/read surface the router needs; satisfied by
// both internal/store/sqlite.FactStore and internal/store/postgres.FactStore
// (postgres reuses sqlite.FactFilter directly rather than duplicating it).
type FactWriter interface {
	Insert(ctx context.Context, f *domain.Fact) error
	InsertBatch(ctx context.Context, facts []*domain.Fact) error
	QueryAt(ctx context.Context, filter sqlite.FactFilter, t time.Time) ([]*domain.Fact, error)
}

// Router is the C8 unified query dispatcher: it holds no state of its own,
// only references to the HSG engine and TKG fact store it fans out to.
type Router struct {
	hsg   *hsg.Engine
	facts FactWriter
	idGen func() string
}

func New(hsgEngine *hsg.Engine, facts FactWriter, idGen func() string) *Router {
	return &Router{hsg: hsgEngine, facts: facts, idGen: idGen}
}

// Recall dispatches to C4 (contextual), C5 (factual), or both (unified,
// the default), returning only the requested block(s). There is no
// cross-system re-ranking: the caller merges by semantics.
func (r *Router) Recall(ctx context.Context, text string, opts RecallOptions) (*RecallResult, error) {
	qType := opts.Type
	if qType == "" {
		qType = TypeUnified
	}
	result := &RecallResult{}

	if qType == TypeContextual || qType == TypeUnified {
		hits, err := r.hsg.Query(ctx, opts.UserID, text, hsg.SearchOptions{
			Sectors:     opts.Sectors,
			K:           opts.K,
			MinSalience: opts.MinSalience,
		})
		if err != nil {
			return nil, err
		}
		result.Contextual = hits
	}

	if qType == TypeFactual || qType == TypeUnified {
		at := opts.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		filter := sqlite.FactFilter{
			UserID:    opts.UserID,
			Subject:   opts.FactPattern.Subject,
			Predicate: opts.FactPattern.Predicate,
			Object:    opts.FactPattern.Object,
			MinConf:   opts.FactPattern.MinConf,
		}
		facts, err := r.facts.QueryAt(ctx, filter, at)
		if err != nil {
			return nil, err
		}
		result.Factual = facts
	}

	return result, nil
}

// Store dispatches to C4 (contextual, content required), C5 (factual, facts
// required), or both — in which case the batch of facts is written after
// the memory insert, with each fact's metadata augmented by
// source_memory_id to cross-link the two systems, per spec §4.8.
func (r *Router) Store(ctx context.Context, content string, opts StoreOptions) (*StoreResult, error) {
	sType := opts.Type
	if sType == "" {
		sType = StoreContextual
	}
	result := &StoreResult{}

	var sourceMemoryID string
	if sType == StoreContextual || sType == StoreBoth {
		if content == "" {
			return nil, cortexerr.New(cortexerr.InvalidInput, "content is required for contextual store")
		}
		m, err := r.hsg.Insert(ctx, opts.UserID, content, opts.Tags, opts.Metadata)
		if err != nil {
			return nil, err
		}
		result.Memory = m
		sourceMemoryID = m.ID
	}

	if sType == StoreFactual || sType == StoreBoth {
		if len(opts.Facts) == 0 {
			return nil, cortexerr.New(cortexerr.InvalidInput, "facts are required for factual store")
		}
		facts := make([]*domain.Fact, 0, len(opts.Facts))
		ids := make([]string, 0, len(opts.Facts))
		now := time.Now().UTC()
		for _, fi := range opts.Facts {
			metadata := fi.Metadata
			if sourceMemoryID != "" {
				metadata = augmentMetadata(metadata, "source_memory_id", sourceMemoryID)
			}
			validFrom := fi.ValidFrom
			if validFrom.IsZero() {
				validFrom = now
			}
			confidence := fi.Confidence
			if confidence == 0 {
				confidence = 1.0
			}
			f := &domain.Fact{
				ID:          "fact_" + r.idGen(),
				UserID:      opts.UserID,
				Subject:     fi.Subject,
				Predicate:   fi.Predicate,
				Object:      fi.Object,
				ValidFrom:   validFrom,
				Confidence:  confidence,
				LastUpdated: now,
				Metadata:    metadata,
			}
			facts = append(facts, f)
			ids = append(ids, f.ID)
		}
		if err := r.facts.InsertBatch(ctx, facts); err != nil {
			return nil, err
		}
		result.FactIDs = ids
	}

	return result, nil
}

func augmentMetadata(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

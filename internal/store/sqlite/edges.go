// ABOUTME: Temporal edge persistence: relates two facts, itself validity-bounded and user-scoped
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

// EdgeStore persists domain.TemporalEdge rows linking two facts.
type EdgeStore struct {
	db *DB
}

func NewEdgeStore(db *DB) *EdgeStore {
	return &EdgeStore{db: db}
}

func (s *EdgeStore) Add(_ context.Context, e *domain.TemporalEdge) error {
	var validTo any
	if e.ValidTo != nil {
		validTo = e.ValidTo.Unix()
	}
	_, err := s.db.Exec(`
		INSERT INTO temporal_edges (source_id, target_id, relation_type, weight, valid_from, valid_to, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, relation_type) DO UPDATE SET
			weight = weight + excluded.weight,
			valid_to = excluded.valid_to
	`, e.SourceID, e.TargetID, e.RelationType, e.Weight, e.ValidFrom.Unix(), validTo, e.UserID)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "add temporal edge", err)
	}
	return nil
}

// RelatedFacts returns the facts reachable from factID via a temporal edge,
// per the Open Question decision recorded in DESIGN.md: user scoping is
// applied to the edge traversal itself, not only to the returned facts, so
// a cross-user edge is never walked even when the destination fact would
// otherwise be visible.
func (s *EdgeStore) RelatedFacts(_ context.Context, factID, userID string) ([]*domain.Fact, error) {
	rows, err := s.db.Query(`
		SELECT f.id, f.user_id, f.subject, f.predicate, f.object, f.valid_from, f.valid_to, f.confidence, f.last_updated, f.metadata
		FROM temporal_edges e
		JOIN temporal_facts f ON f.id = e.target_id
		WHERE e.source_id = ? AND e.user_id = ?
		UNION
		SELECT f.id, f.user_id, f.subject, f.predicate, f.object, f.valid_from, f.valid_to, f.confidence, f.last_updated, f.metadata
		FROM temporal_edges e
		JOIN temporal_facts f ON f.id = e.source_id
		WHERE e.target_id = ? AND e.user_id = ?
	`, factID, userID, factID, userID)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "query related facts", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "scan related fact", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// From returns every edge originating at sourceID, owned by userID.
func (s *EdgeStore) From(_ context.Context, sourceID, userID string) ([]*domain.TemporalEdge, error) {
	rows, err := s.db.Query(`
		SELECT source_id, target_id, relation_type, weight, valid_from, valid_to, user_id
		FROM temporal_edges WHERE source_id = ? AND user_id = ?
	`, sourceID, userID)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "list temporal edges", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.TemporalEdge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *EdgeStore) Remove(_ context.Context, sourceID, targetID, relationType, userID string) error {
	res, err := s.db.Exec(`
		DELETE FROM temporal_edges WHERE source_id = ? AND target_id = ? AND relation_type = ? AND user_id = ?
	`, sourceID, targetID, relationType, userID)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "remove temporal edge", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "rows affected", err)
	}
	if n == 0 {
		return cortexerr.New(cortexerr.NotFoundForUser, "temporal edge not found")
	}
	return nil
}

// WipeUser deletes every temporal edge owned by userID; returns the count removed.
func (s *EdgeStore) WipeUser(_ context.Context, userID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM temporal_edges WHERE user_id = ?`, userID)
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "wipe temporal edges", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "rows affected", err)
	}
	return n, nil
}

func scanEdge(row rowScanner) (*domain.TemporalEdge, error) {
	var e domain.TemporalEdge
	var validFrom int64
	var validTo sql.NullInt64
	if err := row.Scan(&e.SourceID, &e.TargetID, &e.RelationType, &e.Weight, &validFrom, &validTo, &e.UserID); err != nil {
		return nil, err
	}
	e.ValidFrom = time.Unix(validFrom, 0).UTC()
	if validTo.Valid {
		t := time.Unix(validTo.Int64, 0).UTC()
		e.ValidTo = &t
	}
	return &e, nil
}

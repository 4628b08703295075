// ABOUTME: Explicit typed memory links (supplemented feature), distinct from the automatic waypoint graph
package sqlite

import (
	"context"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

// LinkStore persists domain.FactLink rows.
type LinkStore struct {
	db *DB
}

func NewLinkStore(db *DB) *LinkStore {
	return &LinkStore{db: db}
}

func (s *LinkStore) Add(_ context.Context, l *domain.FactLink) error {
	_, err := s.db.Exec(`
		INSERT INTO memory_links (from_id, to_id, relation, user_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(from_id, to_id, relation) DO NOTHING
	`, l.FromID, l.ToID, l.Relation, l.UserID, l.CreatedAt.Unix())
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "add memory link", err)
	}
	return nil
}

func (s *LinkStore) Remove(_ context.Context, fromID, toID, relation, userID string) error {
	_, err := s.db.Exec(`
		DELETE FROM memory_links WHERE from_id = ? AND to_id = ? AND relation = ? AND user_id = ?
	`, fromID, toID, relation, userID)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "remove memory link", err)
	}
	return nil
}

// WipeUser deletes every link owned by userID; returns the count removed.
func (s *LinkStore) WipeUser(_ context.Context, userID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM memory_links WHERE user_id = ?`, userID)
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "wipe memory links", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "rows affected", err)
	}
	return n, nil
}

// From returns every link originating at memoryID, owned by userID.
func (s *LinkStore) From(_ context.Context, memoryID, userID string) ([]*domain.FactLink, error) {
	rows, err := s.db.Query(`
		SELECT from_id, to_id, relation, user_id, created_at FROM memory_links
		WHERE from_id = ? AND user_id = ?
	`, memoryID, userID)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "query memory links", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.FactLink
	for rows.Next() {
		var l domain.FactLink
		var createdAt int64
		if err := rows.Scan(&l.FromID, &l.ToID, &l.Relation, &l.UserID, &createdAt); err != nil {
			return nil, err
		}
		l.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, &l)
	}
	return out, rows.Err()
}

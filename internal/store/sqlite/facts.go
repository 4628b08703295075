// ABOUTME: Temporal Knowledge Graph persistence (C5): validity-bounded facts, as-of/range/search/conflict queries
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

// FactStore persists domain.Fact rows.
type FactStore struct {
	db *DB
}

func NewFactStore(db *DB) *FactStore {
	return &FactStore{db: db}
}

// Insert auto-closes any prior currently-open fact for the same
// (user, subject, predicate) by setting its valid_to to the new fact's
// valid_from, then inserts the new open fact. Single-fact insert is itself
// atomic; batch atomicity is the caller's (InsertBatch's) responsibility.
func (s *FactStore) Insert(_ context.Context, f *domain.Fact) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "begin insert fact", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := closeOpenFact(tx, f.UserID, f.Subject, f.Predicate, f.ValidFrom); err != nil {
		return err
	}
	if err := insertFactTx(tx, f); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "commit insert fact", err)
	}
	return nil
}

// InsertBatch inserts every fact atomically: all-or-nothing, each
// auto-closing its own predecessor the same way Insert does.
func (s *FactStore) InsertBatch(_ context.Context, facts []*domain.Fact) error {
	tx, err := s.db.conn.Begin()
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "begin insert fact batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, f := range facts {
		if err := closeOpenFact(tx, f.UserID, f.Subject, f.Predicate, f.ValidFrom); err != nil {
			return err
		}
		if err := insertFactTx(tx, f); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "commit insert fact batch", err)
	}
	return nil
}

func closeOpenFact(tx *sql.Tx, userID, subject, predicate string, newValidFrom time.Time) error {
	_, err := tx.Exec(`
		UPDATE temporal_facts SET valid_to = ?
		WHERE user_id = ? AND subject = ? AND predicate = ? AND valid_to IS NULL
	`, newValidFrom.Unix(), userID, subject, predicate)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "auto-close prior fact", err)
	}
	return nil
}

func insertFactTx(tx *sql.Tx, f *domain.Fact) error {
	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal fact metadata", err)
	}
	var validTo any
	if f.ValidTo != nil {
		validTo = f.ValidTo.Unix()
	}
	_, err = tx.Exec(`
		INSERT INTO temporal_facts (id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.UserID, f.Subject, f.Predicate, f.Object, f.ValidFrom.Unix(), validTo, f.Confidence, f.LastUpdated.Unix(), metadata)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "insert fact", err)
	}
	return nil
}

// FactFilter holds the optional equality patterns for as-of/range queries;
// a nil/empty field means wildcard.
type FactFilter struct {
	UserID    string
	Subject   string
	Predicate string
	Object    string
	MinConf   float64
}

// QueryAt returns every fact active at t matching the filter, ordered by
// (confidence desc, valid_from desc).
func (s *FactStore) QueryAt(_ context.Context, filter FactFilter, t time.Time) ([]*domain.Fact, error) {
	query := `SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE valid_from <= ? AND (valid_to IS NULL OR valid_to > ?) AND confidence >= ?`
	args := []any{t.Unix(), t.Unix(), filter.MinConf}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY confidence DESC, valid_from DESC`

	return s.queryFacts(query, args...)
}

// GetCurrent returns the single currently-open fact for (user, subject, predicate).
func (s *FactStore) GetCurrent(_ context.Context, userID, subject, predicate string) (*domain.Fact, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts
		WHERE user_id = ? AND subject = ? AND predicate = ? AND valid_to IS NULL
		ORDER BY valid_from DESC
		LIMIT 1
	`, userID, subject, predicate)
	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, cortexerr.New(cortexerr.NotFound, "no current fact")
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "get current fact", err)
	}
	return f, nil
}

// InRange returns any fact whose validity interval overlaps [from, to] or
// whose valid_from falls inside [from, to] (union of the two predicates).
func (s *FactStore) InRange(_ context.Context, filter FactFilter, from, to time.Time) ([]*domain.Fact, error) {
	query := `SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE (
			(valid_from <= ? AND (valid_to IS NULL OR valid_to > ?))
			OR (valid_from >= ? AND valid_from <= ?)
		)`
	args := []any{to.Unix(), from.Unix(), from.Unix(), to.Unix()}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY confidence DESC, valid_from DESC`

	return s.queryFacts(query, args...)
}

// Search substring-matches field on the given string (case-sensitive),
// intersected with as-of t, capped at 100 results.
func (s *FactStore) Search(_ context.Context, filter FactFilter, field, pattern string, t time.Time) ([]*domain.Fact, error) {
	col := "subject"
	switch field {
	case "predicate":
		col = "predicate"
	case "object":
		col = "object"
	}
	query := `SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE valid_from <= ? AND (valid_to IS NULL OR valid_to > ?) AND ` + col + ` GLOB ?`
	args := []any{t.Unix(), t.Unix(), "*" + pattern + "*"}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY confidence DESC, valid_from DESC LIMIT 100`

	return s.queryFacts(query, args...)
}

// FindConflicting returns all facts active at t for (subject, predicate);
// ≥2 results means conflict.
func (s *FactStore) FindConflicting(_ context.Context, userID, subject, predicate string, t time.Time) ([]*domain.Fact, error) {
	filter := FactFilter{UserID: userID, Subject: subject, Predicate: predicate}
	return s.QueryAt(context.Background(), filter, t)
}

func appendFilter(query string, args []any, filter FactFilter) (string, []any) {
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, filter.Subject)
	}
	if filter.Predicate != "" {
		query += ` AND predicate = ?`
		args = append(args, filter.Predicate)
	}
	if filter.Object != "" {
		query += ` AND object = ?`
		args = append(args, filter.Object)
	}
	return query, args
}

// UpdateFact mutates only confidence and/or metadata; subject, predicate, and
// object are immutable. Verifies ownership, failing NotFoundForUser on mismatch.
func (s *FactStore) UpdateFact(_ context.Context, id, userID string, confidence *float64, metadata map[string]any) error {
	f, err := s.getOwned(id, userID)
	if err != nil {
		return err
	}
	if confidence != nil {
		f.Confidence = *confidence
	}
	if metadata != nil {
		f.Metadata = metadata
	}
	metaJSON, err := json.Marshal(f.Metadata)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal fact metadata", err)
	}
	_, err = s.db.Exec(`UPDATE temporal_facts SET confidence = ?, metadata = ?, last_updated = ? WHERE id = ?`,
		f.Confidence, metaJSON, time.Now().Unix(), id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "update fact", err)
	}
	return nil
}

// Invalidate sets valid_to (defaulting to now), closing the fact.
func (s *FactStore) Invalidate(_ context.Context, id, userID string, at time.Time) error {
	if _, err := s.getOwned(id, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(`UPDATE temporal_facts SET valid_to = ?, last_updated = ? WHERE id = ?`, at.Unix(), time.Now().Unix(), id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "invalidate fact", err)
	}
	return nil
}

// Delete removes the fact irreversibly.
func (s *FactStore) Delete(_ context.Context, id, userID string) error {
	if _, err := s.getOwned(id, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM temporal_facts WHERE id = ?`, id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "delete fact", err)
	}
	return nil
}

// WipeUser deletes every fact owned by userID; returns the count removed.
func (s *FactStore) WipeUser(_ context.Context, userID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM temporal_facts WHERE user_id = ?`, userID)
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "wipe facts", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "rows affected", err)
	}
	return n, nil
}

func (s *FactStore) getOwned(id, userID string) (*domain.Fact, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE id = ?
	`, id)
	f, err := scanFact(row)
	if err == sql.ErrNoRows {
		return nil, cortexerr.New(cortexerr.NotFoundForUser, "fact not found")
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "get fact", err)
	}
	if f.UserID != userID {
		return nil, cortexerr.New(cortexerr.NotFoundForUser, "fact not found")
	}
	return f, nil
}

func (s *FactStore) queryFacts(query string, args ...any) ([]*domain.Fact, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "query facts", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "scan fact", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFact(row rowScanner) (*domain.Fact, error) {
	var f domain.Fact
	var validFrom int64
	var validTo sql.NullInt64
	var lastUpdated int64
	var metadataJSON sql.NullString

	if err := row.Scan(&f.ID, &f.UserID, &f.Subject, &f.Predicate, &f.Object, &validFrom, &validTo,
		&f.Confidence, &lastUpdated, &metadataJSON); err != nil {
		return nil, err
	}
	f.ValidFrom = time.Unix(validFrom, 0).UTC()
	if validTo.Valid {
		t := time.Unix(validTo.Int64, 0).UTC()
		f.ValidTo = &t
	}
	f.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &f.Metadata); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// ABOUTME: Postgres implementation of the temporal graph (C5) for METADATA_BACKEND=postgres
// ABOUTME: Mirrors internal/store/sqlite/facts.go's auto-close/as-of/range/search semantics exactly
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/store/sqlite"
)

// FactStore persists domain.Fact rows in Postgres, satisfying the same
// operation set as internal/store/sqlite.FactStore.
type FactStore struct {
	db *DB
}

func NewFactStore(db *DB) *FactStore {
	return &FactStore{db: db}
}

func (s *FactStore) Insert(ctx context.Context, f *domain.Fact) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "begin insert fact", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := closeOpenFact(ctx, tx, f.UserID, f.Subject, f.Predicate, f.ValidFrom); err != nil {
		return err
	}
	if err := insertFactTx(ctx, tx, f); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "commit insert fact", err)
	}
	return nil
}

func (s *FactStore) InsertBatch(ctx context.Context, facts []*domain.Fact) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "begin insert fact batch", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, f := range facts {
		if err := closeOpenFact(ctx, tx, f.UserID, f.Subject, f.Predicate, f.ValidFrom); err != nil {
			return err
		}
		if err := insertFactTx(ctx, tx, f); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "commit insert fact batch", err)
	}
	return nil
}

func closeOpenFact(ctx context.Context, tx pgx.Tx, userID, subject, predicate string, newValidFrom time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE temporal_facts SET valid_to = $1
		WHERE user_id = $2 AND subject = $3 AND predicate = $4 AND valid_to IS NULL
	`, newValidFrom.Unix(), userID, subject, predicate)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "auto-close prior fact", err)
	}
	return nil
}

func insertFactTx(ctx context.Context, tx pgx.Tx, f *domain.Fact) error {
	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal fact metadata", err)
	}
	var validTo any
	if f.ValidTo != nil {
		validTo = f.ValidTo.Unix()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO temporal_facts (id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, f.ID, f.UserID, f.Subject, f.Predicate, f.Object, f.ValidFrom.Unix(), validTo, f.Confidence, f.LastUpdated.Unix(), metadata)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "insert fact", err)
	}
	return nil
}

// QueryAt accepts the same filter type internal/store/sqlite.FactStore does
// (sqlite.FactFilter), so callers in internal/router don't need a second
// filter type depending on which metadata backend is active.
func (s *FactStore) QueryAt(ctx context.Context, filter sqlite.FactFilter, t time.Time) ([]*domain.Fact, error) {
	query := `SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE valid_from <= $1 AND (valid_to IS NULL OR valid_to > $2) AND confidence >= $3`
	args := []any{t.Unix(), t.Unix(), filter.MinConf}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY confidence DESC, valid_from DESC`
	return s.queryFacts(ctx, query, args...)
}

func (s *FactStore) GetCurrent(ctx context.Context, userID, subject, predicate string) (*domain.Fact, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts
		WHERE user_id = $1 AND subject = $2 AND predicate = $3 AND valid_to IS NULL
		ORDER BY valid_from DESC
		LIMIT 1
	`, userID, subject, predicate)
	f, err := scanFact(row)
	if err == pgx.ErrNoRows {
		return nil, cortexerr.New(cortexerr.NotFound, "no current fact")
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "get current fact", err)
	}
	return f, nil
}

func (s *FactStore) InRange(ctx context.Context, filter sqlite.FactFilter, from, to time.Time) ([]*domain.Fact, error) {
	query := `SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE (
			(valid_from <= $1 AND (valid_to IS NULL OR valid_to > $2))
			OR (valid_from >= $3 AND valid_from <= $4)
		)`
	args := []any{to.Unix(), from.Unix(), from.Unix(), to.Unix()}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY confidence DESC, valid_from DESC`
	return s.queryFacts(ctx, query, args...)
}

func (s *FactStore) Search(ctx context.Context, filter sqlite.FactFilter, field, pattern string, t time.Time) ([]*domain.Fact, error) {
	col := "subject"
	switch field {
	case "predicate":
		col = "predicate"
	case "object":
		col = "object"
	}
	query := fmt.Sprintf(`SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE valid_from <= $1 AND (valid_to IS NULL OR valid_to > $2) AND %s LIKE $3`, col)
	args := []any{t.Unix(), t.Unix(), "%" + pattern + "%"}
	query, args = appendFilter(query, args, filter)
	query += ` ORDER BY confidence DESC, valid_from DESC LIMIT 100`
	return s.queryFacts(ctx, query, args...)
}

func (s *FactStore) FindConflicting(ctx context.Context, userID, subject, predicate string, t time.Time) ([]*domain.Fact, error) {
	filter := sqlite.FactFilter{UserID: userID, Subject: subject, Predicate: predicate}
	return s.QueryAt(ctx, filter, t)
}

func appendFilter(query string, args []any, filter sqlite.FactFilter) (string, []any) {
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(` AND user_id = $%d`, len(args))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		query += fmt.Sprintf(` AND subject = $%d`, len(args))
	}
	if filter.Predicate != "" {
		args = append(args, filter.Predicate)
		query += fmt.Sprintf(` AND predicate = $%d`, len(args))
	}
	if filter.Object != "" {
		args = append(args, filter.Object)
		query += fmt.Sprintf(` AND object = $%d`, len(args))
	}
	return query, args
}

func (s *FactStore) UpdateFact(ctx context.Context, id, userID string, confidence *float64, metadata map[string]any) error {
	f, err := s.getOwned(ctx, id, userID)
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
	_, err = s.db.pool.Exec(ctx, `UPDATE temporal_facts SET confidence = $1, metadata = $2, last_updated = $3 WHERE id = $4`,
		f.Confidence, metaJSON, time.Now().Unix(), id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "update fact", err)
	}
	return nil
}

func (s *FactStore) Invalidate(ctx context.Context, id, userID string, at time.Time) error {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return err
	}
	_, err := s.db.pool.Exec(ctx, `UPDATE temporal_facts SET valid_to = $1, last_updated = $2 WHERE id = $3`,
		at.Unix(), time.Now().Unix(), id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "invalidate fact", err)
	}
	return nil
}

func (s *FactStore) Delete(ctx context.Context, id, userID string) error {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return err
	}
	_, err := s.db.pool.Exec(ctx, `DELETE FROM temporal_facts WHERE id = $1`, id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "delete fact", err)
	}
	return nil
}

// WipeUser deletes every fact owned by userID; returns the count removed.
func (s *FactStore) WipeUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM temporal_facts WHERE user_id = $1`, userID)
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "wipe facts", err)
	}
	return tag.RowsAffected(), nil
}

func (s *FactStore) getOwned(ctx context.Context, id, userID string) (*domain.Fact, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, subject, predicate, object, valid_from, valid_to, confidence, last_updated, metadata
		FROM temporal_facts WHERE id = $1
	`, id)
	f, err := scanFact(row)
	if err == pgx.ErrNoRows {
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

func (s *FactStore) queryFacts(ctx context.Context, query string, args ...any) ([]*domain.Fact, error) {
	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "query facts", err)
	}
	defer rows.Close()

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
	var validTo *int64
	var lastUpdated int64
	var metadataJSON []byte

	if err := row.Scan(&f.ID, &f.UserID, &f.Subject, &f.Predicate, &f.Object, &validFrom, &validTo,
		&f.Confidence, &lastUpdated, &metadataJSON); err != nil {
		return nil, err
	}
	f.ValidFrom = time.Unix(validFrom, 0).UTC()
	if validTo != nil {
		t := time.Unix(*validTo, 0).UTC()
		f.ValidTo = &t
	}
	f.LastUpdated = time.Unix(lastUpdated, 0).UTC()
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &f.Metadata); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

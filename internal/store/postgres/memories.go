// ABOUTME: Postgres implementation of the hsg.MemoryStore contract for METADATA_BACKEND=postgres
// ABOUTME: Mirrors internal/store/sqlite/memories.go's semantics with pgx placeholders and JSONB columns
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

// MemoryStore persists domain.Memory rows in Postgres. It satisfies
// internal/hsg.MemoryStore, the same interface internal/store/sqlite.MemoryStore
// implements, so the HSG core is indifferent to which one it's handed.
type MemoryStore struct {
	db *DB
}

func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

func (s *MemoryStore) Insert(ctx context.Context, m *domain.Memory) error {
	sectors, err := json.Marshal(m.Sectors)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal sectors", err)
	}
	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal tags", err)
	}
	metadata, err := json.Marshal(m.Metadata)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal metadata", err)
	}

	_, err = s.db.pool.Exec(ctx, `
		INSERT INTO memories (id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.UserID, m.Content, string(m.PrimarySector), sectors, tags, metadata, m.Salience,
		m.CreatedAt.Unix(), m.LastSeenAt.Unix())
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "insert memory", err)
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id, userID string) (*domain.Memory, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
		FROM memories WHERE id = $1
	`, id)
	m, err := scanMemory(row)
	if err == pgx.ErrNoRows {
		return nil, cortexerr.New(cortexerr.NotFoundForUser, "memory not found")
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "get memory", err)
	}
	if m.UserID != userID {
		return nil, cortexerr.New(cortexerr.NotFoundForUser, "memory not found")
	}
	return m, nil
}

func (s *MemoryStore) GetAny(ctx context.Context, id string) (*domain.Memory, error) {
	row := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
		FROM memories WHERE id = $1
	`, id)
	m, err := scanMemory(row)
	if err == pgx.ErrNoRows {
		return nil, cortexerr.NotFoundErr("memory", id)
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "get memory", err)
	}
	return m, nil
}

func (s *MemoryStore) List(ctx context.Context, userID string, sector domain.Sector, limit int) ([]*domain.Memory, error) {
	var rows pgx.Rows
	var err error
	switch {
	case sector != "":
		rows, err = s.db.pool.Query(ctx, `
			SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
			FROM memories WHERE user_id = $1 AND primary_sector = $2 ORDER BY created_at DESC LIMIT $3
		`, userID, string(sector), limitOrAll(limit))
	default:
		rows, err = s.db.pool.Query(ctx, `
			SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
			FROM memories WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
		`, userID, limitOrAll(limit))
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "list memories", err)
	}
	defer rows.Close()

	var out []*domain.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "scan memory", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// limitOrAll maps the sqlite "-1 means unlimited" convention onto Postgres,
// which requires ALL rather than a negative LIMIT value.
func limitOrAll(limit int) int64 {
	if limit < 0 {
		return 1 << 62
	}
	return int64(limit)
}

func (s *MemoryStore) UpdateSalience(ctx context.Context, id string, salience float64) error {
	_, err := s.db.pool.Exec(ctx, `UPDATE memories SET salience = $1 WHERE id = $2`, salience, id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "update salience", err)
	}
	return nil
}

func (s *MemoryStore) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.pool.Exec(ctx, `UPDATE memories SET last_seen_at = $1 WHERE id = $2`, at.Unix(), id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "touch last_seen_at", err)
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM memories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "delete memory", err)
	}
	if tag.RowsAffected() == 0 {
		return cortexerr.New(cortexerr.NotFoundForUser, "memory not found")
	}
	return nil
}

func (s *MemoryStore) WipeUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM memories WHERE user_id = $1`, userID)
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "wipe memories", err)
	}
	return tag.RowsAffected(), nil
}

func (s *MemoryStore) AllIDsBySector(ctx context.Context, sector domain.Sector) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT id FROM memories WHERE primary_sector = $1`, string(sector))
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "list ids by sector", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*domain.Memory, error) {
	var m domain.Memory
	var primarySector string
	var sectorsJSON, tagsJSON, metadataJSON []byte
	var createdAt, lastSeenAt int64

	if err := row.Scan(&m.ID, &m.UserID, &m.Content, &primarySector, &sectorsJSON, &tagsJSON, &metadataJSON,
		&m.Salience, &createdAt, &lastSeenAt); err != nil {
		return nil, err
	}

	m.PrimarySector = domain.Sector(primarySector)
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.LastSeenAt = time.Unix(lastSeenAt, 0).UTC()

	if len(sectorsJSON) > 0 {
		if err := json.Unmarshal(sectorsJSON, &m.Sectors); err != nil {
			return nil, err
		}
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &m.Tags); err != nil {
			return nil, err
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

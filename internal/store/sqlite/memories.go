// ABOUTME: Memory metadata CRUD, adapted from the teacher's blocks.go for the HSG memory record
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

// MemoryStore persists domain.Memory metadata rows.
type MemoryStore struct {
	db *DB
}

func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

func (s *MemoryStore) Insert(_ context.Context, m *domain.Memory) error {
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

	_, err = s.db.Exec(`
		INSERT INTO memories (id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.UserID, m.Content, string(m.PrimarySector), sectors, tags, metadata, m.Salience,
		m.CreatedAt.Unix(), m.LastSeenAt.Unix())
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "insert memory", err)
	}
	return nil
}

// Get returns a memory by id, scoped to userID. Returns NotFoundForUser
// (never NotFound, which would disclose existence to non-owners) if the row
// belongs to someone else or doesn't exist.
func (s *MemoryStore) Get(_ context.Context, id, userID string) (*domain.Memory, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
		FROM memories WHERE id = ?
	`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
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

// GetAny returns a memory by id without ownership scoping. Reserved for
// internal background passes (decay sweeps) that operate system-wide.
func (s *MemoryStore) GetAny(_ context.Context, id string) (*domain.Memory, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
		FROM memories WHERE id = ?
	`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, cortexerr.NotFoundErr("memory", id)
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "get memory", err)
	}
	return m, nil
}

func (s *MemoryStore) List(_ context.Context, userID string, sector domain.Sector, limit int) ([]*domain.Memory, error) {
	var rows *sql.Rows
	var err error
	switch {
	case sector != "":
		rows, err = s.db.Query(`
			SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
			FROM memories WHERE user_id = ? AND primary_sector = ? ORDER BY created_at DESC LIMIT ?
		`, userID, string(sector), limit)
	default:
		rows, err = s.db.Query(`
			SELECT id, user_id, content, primary_sector, sectors, tags, metadata, salience, created_at, last_seen_at
			FROM memories WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
		`, userID, limit)
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "list memories", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Memory
	for rows.Next() {
		m, err := scanMemoryRows(rows)
		if err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "scan memory", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *MemoryStore) UpdateSalience(_ context.Context, id string, salience float64) error {
	_, err := s.db.Exec(`UPDATE memories SET salience = ? WHERE id = ?`, salience, id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "update salience", err)
	}
	return nil
}

func (s *MemoryStore) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE memories SET last_seen_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "touch last_seen_at", err)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id, userID string) error {
	res, err := s.db.Exec(`DELETE FROM memories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "delete memory", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "rows affected", err)
	}
	if n == 0 {
		return cortexerr.New(cortexerr.NotFoundForUser, "memory not found")
	}
	return nil
}

// WipeUser deletes every memory owned by userID; returns the count removed.
func (s *MemoryStore) WipeUser(_ context.Context, userID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM memories WHERE user_id = ?`, userID)
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "wipe memories", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, cortexerr.Wrap(cortexerr.Internal, "rows affected", err)
	}
	return n, nil
}

// AllIDsBySector returns the id of every memory whose primary sector is
// sector, across all users, for offline sweeps.
func (s *MemoryStore) AllIDsBySector(_ context.Context, sector domain.Sector) ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM memories WHERE primary_sector = ?`, string(sector))
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "list ids by sector", err)
	}
	defer func() { _ = rows.Close() }()

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
	Scan(dest ...interface{}) error
}

func scanMemory(row rowScanner) (*domain.Memory, error) {
	return scanMemoryRows(row)
}

func scanMemoryRows(row rowScanner) (*domain.Memory, error) {
	var m domain.Memory
	var primarySector string
	var sectorsJSON, tagsJSON, metadataJSON sql.NullString
	var createdAt, lastSeenAt int64

	if err := row.Scan(&m.ID, &m.UserID, &m.Content, &primarySector, &sectorsJSON, &tagsJSON, &metadataJSON,
		&m.Salience, &createdAt, &lastSeenAt); err != nil {
		return nil, err
	}

	m.PrimarySector = domain.Sector(primarySector)
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	m.LastSeenAt = time.Unix(lastSeenAt, 0).UTC()

	if sectorsJSON.Valid && sectorsJSON.String != "" {
		if err := json.Unmarshal([]byte(sectorsJSON.String), &m.Sectors); err != nil {
			return nil, err
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &m.Tags); err != nil {
			return nil, err
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &m.Metadata); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

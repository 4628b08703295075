// ABOUTME: Waypoint associative graph persistence: centroid clusters and weighted undirected edges
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

// WaypointStore persists domain.Waypoint nodes and domain.WaypointEdge edges.
type WaypointStore struct {
	db *DB
}

func NewWaypointStore(db *DB) *WaypointStore {
	return &WaypointStore{db: db}
}

func (s *WaypointStore) Insert(_ context.Context, w *domain.Waypoint) error {
	members, err := json.Marshal(w.Members)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal members", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO waypoints (id, sector, mean_v, member_ids, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, w.ID, string(w.Sector), vectorToBlob(w.MeanV), members, w.CreatedAt.Unix())
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "insert waypoint", err)
	}
	return nil
}

func (s *WaypointStore) Get(_ context.Context, id string) (*domain.Waypoint, error) {
	row := s.db.QueryRow(`SELECT id, sector, mean_v, member_ids, created_at FROM waypoints WHERE id = ?`, id)
	w, err := scanWaypoint(row)
	if err == sql.ErrNoRows {
		return nil, cortexerr.NotFoundErr("waypoint", id)
	}
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "get waypoint", err)
	}
	return w, nil
}

func (s *WaypointStore) BySector(_ context.Context, sector domain.Sector) ([]*domain.Waypoint, error) {
	rows, err := s.db.Query(`SELECT id, sector, mean_v, member_ids, created_at FROM waypoints WHERE sector = ?`, string(sector))
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "list waypoints by sector", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Waypoint
	for rows.Next() {
		w, err := scanWaypoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateCentroid replaces a waypoint's mean vector and member list after an
// incremental join (the caller is responsible for recomputing and
// L2-renormalizing the centroid before calling this).
func (s *WaypointStore) UpdateCentroid(_ context.Context, id string, meanV []float32, members []string) error {
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return cortexerr.Wrap(cortexerr.InvalidInput, "marshal members", err)
	}
	_, err = s.db.Exec(`UPDATE waypoints SET mean_v = ?, member_ids = ? WHERE id = ?`, vectorToBlob(meanV), membersJSON, id)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "update waypoint centroid", err)
	}
	return nil
}

// UpsertEdge creates the (a,b) edge if absent, or atomically adds delta to
// its weight if present. The edge is stored with a < b (storage convention);
// this method swaps the arguments if necessary, so callers may pass either order.
func (s *WaypointStore) UpsertEdge(_ context.Context, a, b string, delta float64, at time.Time) error {
	if a > b {
		a, b = b, a
	}
	_, err := s.db.Exec(`
		INSERT INTO waypoint_edges (a, b, weight, last_activated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(a, b) DO UPDATE SET
			weight = weight + excluded.weight,
			last_activated_at = excluded.last_activated_at
	`, a, b, delta, at.Unix())
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "upsert waypoint edge", err)
	}
	return nil
}

// Neighbors returns the edges touching waypoint id, ordered by weight descending.
func (s *WaypointStore) Neighbors(_ context.Context, id string, limit int) ([]domain.WaypointEdge, error) {
	rows, err := s.db.Query(`
		SELECT a, b, weight, last_activated_at FROM waypoint_edges
		WHERE a = ? OR b = ?
		ORDER BY weight DESC
		LIMIT ?
	`, id, id, limit)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "list waypoint neighbors", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.WaypointEdge
	for rows.Next() {
		var e domain.WaypointEdge
		var lastActivated int64
		if err := rows.Scan(&e.A, &e.B, &e.Weight, &lastActivated); err != nil {
			return nil, err
		}
		e.LastActivatedAt = time.Unix(lastActivated, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetMembership records that memoryID belongs to waypointID in sector,
// replacing any prior membership for that (memory, sector) pair.
func (s *WaypointStore) SetMembership(_ context.Context, memoryID string, sector domain.Sector, waypointID string) error {
	_, err := s.db.Exec(`
		INSERT INTO memory_waypoints (memory_id, sector, waypoint_id)
		VALUES (?, ?, ?)
		ON CONFLICT(memory_id, sector) DO UPDATE SET waypoint_id = excluded.waypoint_id
	`, memoryID, string(sector), waypointID)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "set waypoint membership", err)
	}
	return nil
}

// MembershipOf returns the waypoint id that memoryID belongs to in sector, or ok=false.
func (s *WaypointStore) MembershipOf(_ context.Context, memoryID string, sector domain.Sector) (string, bool, error) {
	var waypointID string
	err := s.db.QueryRow(`SELECT waypoint_id FROM memory_waypoints WHERE memory_id = ? AND sector = ?`,
		memoryID, string(sector)).Scan(&waypointID)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, cortexerr.Wrap(cortexerr.Internal, "get waypoint membership", err)
	}
	return waypointID, true, nil
}

// RemoveMembership deletes every (memory, sector) membership row for memoryID.
func (s *WaypointStore) RemoveMembership(_ context.Context, memoryID string) error {
	_, err := s.db.Exec(`DELETE FROM memory_waypoints WHERE memory_id = ?`, memoryID)
	if err != nil {
		return cortexerr.Wrap(cortexerr.Internal, "remove waypoint membership", err)
	}
	return nil
}

func scanWaypoint(row rowScanner) (*domain.Waypoint, error) {
	var w domain.Waypoint
	var sector string
	var meanVBlob []byte
	var membersJSON string
	var createdAt int64

	if err := row.Scan(&w.ID, &sector, &meanVBlob, &membersJSON, &createdAt); err != nil {
		return nil, err
	}
	w.Sector = domain.Sector(sector)
	w.MeanV = blobToVector(meanVBlob)
	w.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := json.Unmarshal([]byte(membersJSON), &w.Members); err != nil {
		return nil, err
	}
	return &w, nil
}

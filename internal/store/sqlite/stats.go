// ABOUTME: Database statistics (supplemented feature), grounded on rcliao's internal/store/stats.go
// ABOUTME: Reports per-sector memory counts, fact counts, and coactivation queue depth by status
package sqlite

import (
	"context"
	"os"

	"github.com/harper/cortexmem/internal/cortexerr"
)

// Stats holds engine-wide operator statistics.
type Stats struct {
	DBPath        string         `json:"db_path"`
	DBSizeBytes   int64          `json:"db_size_bytes"`
	TotalMemories int            `json:"total_memories"`
	TotalFacts    int            `json:"total_facts"`
	OpenFacts     int            `json:"open_facts"`
	Sectors       []SectorStats  `json:"sectors"`
	JobsByStatus  map[string]int `json:"jobs_by_status"`
}

// SectorStats holds per-sector memory counts.
type SectorStats struct {
	Sector string `json:"sector"`
	Count  int    `json:"count"`
}

// Stats computes engine-wide operator statistics across all users.
func (s *Storage) Stats(_ context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.db.Path(), JobsByStatus: make(map[string]int)}

	if info, err := os.Stat(s.db.Path()); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories); err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "count memories", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM temporal_facts`).Scan(&st.TotalFacts); err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "count facts", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM temporal_facts WHERE valid_to IS NULL`).Scan(&st.OpenFacts); err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "count open facts", err)
	}

	rows, err := s.db.Query(`SELECT primary_sector, COUNT(*) FROM memories GROUP BY primary_sector ORDER BY primary_sector`)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "count memories by sector", err)
	}
	for rows.Next() {
		var sc SectorStats
		if err := rows.Scan(&sc.Sector, &sc.Count); err != nil {
			_ = rows.Close()
			return nil, cortexerr.Wrap(cortexerr.Internal, "scan sector stats", err)
		}
		st.Sectors = append(st.Sectors, sc)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	jobRows, err := s.db.Query(`SELECT status, COUNT(*) FROM coactivation_jobs GROUP BY status`)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "count jobs by status", err)
	}
	defer func() { _ = jobRows.Close() }()
	for jobRows.Next() {
		var status string
		var count int
		if err := jobRows.Scan(&status, &count); err != nil {
			return nil, cortexerr.Wrap(cortexerr.Internal, "scan job stats", err)
		}
		st.JobsByStatus[status] = count
	}
	return st, jobRows.Err()
}

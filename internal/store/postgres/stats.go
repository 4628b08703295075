// ABOUTME: Postgres-side counts feeding internal/app's merged Stats when METADATA_BACKEND=postgres
package postgres

import "context"

// Counts holds the memory/fact totals postgres owns when it is the metadata
// backend; the waypoint graph and job queue remain sqlite's regardless.
type Counts struct {
	TotalMemories int
	TotalFacts    int
	OpenFacts     int
	SectorCounts  map[string]int
}

// Stats aggregates memory and fact counts from the postgres tables.
func (db *DB) Stats(ctx context.Context) (*Counts, error) {
	c := &Counts{SectorCounts: make(map[string]int)}

	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM memories`).Scan(&c.TotalMemories); err != nil {
		return nil, err
	}
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM temporal_facts`).Scan(&c.TotalFacts); err != nil {
		return nil, err
	}
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM temporal_facts WHERE valid_to IS NULL`).Scan(&c.OpenFacts); err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx, `SELECT primary_sector, COUNT(*) FROM memories GROUP BY primary_sector`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sector string
		var count int
		if err := rows.Scan(&sector, &count); err != nil {
			return nil, err
		}
		c.SectorCounts[sector] = count
	}
	return c, rows.Err()
}

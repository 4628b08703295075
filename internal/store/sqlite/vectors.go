// ABOUTME: Exact-linear vector index backend (C2 Backend A), adapted from the teacher's embeddings.go
// ABOUTME: Vectors stored as binary blobs keyed by (id, sector); queries pre-filter by (sector, user) and scan in process
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"sort"

	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/vectorindex"
)

// VectorStore is the exact-linear vectorindex.Index implementation.
type VectorStore struct {
	db *DB
}

func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

var _ vectorindex.Index = (*VectorStore)(nil)

func (s *VectorStore) Upsert(_ context.Context, id string, sector domain.Sector, userID string, vector []float32) error {
	blob := vectorToBlob(vector)
	_, err := s.db.Exec(`
		INSERT INTO vectors (id, sector, user_id, v, dim)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id, sector) DO UPDATE SET
			user_id = excluded.user_id,
			v = excluded.v,
			dim = excluded.dim
	`, id, string(sector), userID, blob, len(vector))
	return err
}

func (s *VectorStore) Delete(_ context.Context, id string, sector domain.Sector) error {
	_, err := s.db.Exec(`DELETE FROM vectors WHERE id = ? AND sector = ?`, id, string(sector))
	return err
}

func (s *VectorStore) DeleteAll(_ context.Context, id string) error {
	_, err := s.db.Exec(`DELETE FROM vectors WHERE id = ?`, id)
	return err
}

func (s *VectorStore) Get(_ context.Context, id string, sector domain.Sector) ([]float32, bool, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT v FROM vectors WHERE id = ? AND sector = ?`, id, string(sector)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blobToVector(blob), true, nil
}

// Search pre-filters by (sector, user) at the SQL level, loads every
// candidate, computes cosine in process, and returns the top-k. Exact:
// returns min(k, |matches|), never degraded.
func (s *VectorStore) Search(_ context.Context, sector domain.Sector, query []float32, k int, userID string) ([]vectorindex.Hit, bool, error) {
	var rows *sql.Rows
	var err error
	if userID != "" {
		rows, err = s.db.Query(`SELECT id, v FROM vectors WHERE sector = ? AND user_id = ?`, string(sector), userID)
	} else {
		rows, err = s.db.Query(`SELECT id, v FROM vectors WHERE sector = ?`, string(sector))
	}
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, false, err
		}
		v := blobToVector(blob)
		candidates = append(candidates, scored{id: id, score: CosineSimilarity(query, v)})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id // stable tie-break by id ascending
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	hits := make([]vectorindex.Hit, len(candidates))
	for i, c := range candidates {
		hits[i] = vectorindex.Hit{ID: c.id, Score: c.score}
	}
	return hits, false, nil
}

func (s *VectorStore) BySector(_ context.Context, sector domain.Sector) ([]domain.VectorRow, error) {
	rows, err := s.db.Query(`SELECT id, sector, user_id, v, dim FROM vectors WHERE sector = ?`, string(sector))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.VectorRow
	for rows.Next() {
		var id, sec, userID string
		var blob []byte
		var dim int
		if err := rows.Scan(&id, &sec, &userID, &blob, &dim); err != nil {
			return nil, err
		}
		out = append(out, domain.VectorRow{
			ID: id, Sector: domain.Sector(sec), UserID: userID, Vector: blobToVector(blob), Dim: dim,
		})
	}
	return out, rows.Err()
}

func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func blobToVector(blob []byte) []float32 {
	count := len(blob) / 4
	vector := make([]float32, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// CosineSimilarity calculates cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

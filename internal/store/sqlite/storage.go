// ABOUTME: Storage is the facade over every substore, grounded on the teacher's storage.go aggregation pattern
package sqlite

// Storage aggregates every sqlite-backed substore behind one handle so
// callers open a single *DB and get the full metadata backend.
type Storage struct {
	db *DB

	Memories    *MemoryStore
	Vectors     *VectorStore
	Waypoints   *WaypointStore
	Facts       *FactStore
	Edges       *EdgeStore
	Jobs        *JobStore
	Links       *LinkStore
}

// NewStorage opens (or creates) the SQLite database at path and wires every substore.
func NewStorage(path string) (*Storage, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return newStorage(db), nil
}

// NewStorageInMemory opens an in-memory database, for tests.
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, err
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		db:        db,
		Memories:  NewMemoryStore(db),
		Vectors:   NewVectorStore(db),
		Waypoints: NewWaypointStore(db),
		Facts:     NewFactStore(db),
		Edges:     NewEdgeStore(db),
		Jobs:      NewJobStore(db),
		Links:     NewLinkStore(db),
	}
}

func (s *Storage) Close() error { return s.db.Close() }
func (s *Storage) DB() *DB      { return s.db }

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/harper/cortexmem/internal/cortexerr"
	"github.com/harper/cortexmem/internal/domain"
)

func newTestMemory(id, userID string) *domain.Memory {
	now := time.Now().UTC()
	return &domain.Memory{
		ID:            id,
		UserID:        userID,
		Content:       "test content",
		PrimarySector: domain.SectorSemantic,
		Sectors:       []domain.Sector{domain.SectorSemantic},
		Tags:          []string{"tag1"},
		Metadata:      map[string]any{"k": "v"},
		Salience:      0.5,
		CreatedAt:     now,
		LastSeenAt:    now,
	}
}

func TestMemoryStore_InsertGet(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	ms := NewMemoryStore(db)
	ctx := context.Background()

	m := newTestMemory("m1", "u1")
	if err := ms.Insert(ctx, m); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := ms.Get(ctx, "m1", "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != m.Content || got.PrimarySector != m.PrimarySector {
		t.Errorf("got = %+v, want content/sector to match", got)
	}
}

func TestMemoryStore_GetWrongUser(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	ms := NewMemoryStore(db)
	ctx := context.Background()

	_ = ms.Insert(ctx, newTestMemory("m1", "u1"))

	_, err := ms.Get(ctx, "m1", "u2")
	if cortexerr.KindOf(err) != cortexerr.NotFoundForUser {
		t.Errorf("expected NotFoundForUser, got %v", err)
	}
}

func TestMemoryStore_ListAll(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	ms := NewMemoryStore(db)
	ctx := context.Background()

	_ = ms.Insert(ctx, newTestMemory("m1", "u1"))
	_ = ms.Insert(ctx, newTestMemory("m2", "u1"))
	_ = ms.Insert(ctx, newTestMemory("m3", "u2"))

	list, err := ms.List(ctx, "u1", "", -1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	ms := NewMemoryStore(db)
	ctx := context.Background()

	_ = ms.Insert(ctx, newTestMemory("m1", "u1"))
	if err := ms.Delete(ctx, "m1", "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := ms.Get(ctx, "m1", "u1"); cortexerr.KindOf(err) != cortexerr.NotFoundForUser {
		t.Errorf("expected memory gone, got %v", err)
	}
}

func TestMemoryStore_WipeUser(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	ms := NewMemoryStore(db)
	ctx := context.Background()

	_ = ms.Insert(ctx, newTestMemory("m1", "u1"))
	_ = ms.Insert(ctx, newTestMemory("m2", "u1"))
	_ = ms.Insert(ctx, newTestMemory("m3", "u2"))

	n, err := ms.WipeUser(ctx, "u1")
	if err != nil {
		t.Fatalf("WipeUser: %v", err)
	}
	if n != 2 {
		t.Errorf("wiped %d, want 2", n)
	}
	remaining, _ := ms.List(ctx, "u2", "", -1)
	if len(remaining) != 1 {
		t.Errorf("u2's memory should survive, got %d", len(remaining))
	}
}

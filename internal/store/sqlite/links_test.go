package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/harper/cortexmem/internal/domain"
)

func TestLinkStore_AddFrom(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	ls := NewLinkStore(db)
	ctx := context.Background()

	l := &domain.FactLink{FromID: "m1", ToID: "m2", Relation: string(domain.RelationRelatesTo), UserID: "u1", CreatedAt: time.Now().UTC()}
	if err := ls.Add(ctx, l); err != nil {
		t.Fatalf("Add: %v", err)
	}

	links, err := ls.From(ctx, "m1", "u1")
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	if len(links) != 1 || links[0].ToID != "m2" {
		t.Fatalf("links = %+v, want one link to m2", links)
	}
}

func TestLinkStore_Remove(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	ls := NewLinkStore(db)
	ctx := context.Background()

	l := &domain.FactLink{FromID: "m1", ToID: "m2", Relation: string(domain.RelationRelatesTo), UserID: "u1", CreatedAt: time.Now().UTC()}
	_ = ls.Add(ctx, l)

	if err := ls.Remove(ctx, "m1", "m2", string(domain.RelationRelatesTo), "u1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	links, _ := ls.From(ctx, "m1", "u1")
	if len(links) != 0 {
		t.Errorf("expected no links after remove, got %d", len(links))
	}
}

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harper/cortexmem/internal/domain"
)

func TestJobStore_EnqueueClaim(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	js := NewJobStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	j := &domain.CoactivationJob{
		ID:     "j1",
		Status: domain.JobPending,
		Members: []domain.CoactivatedMember{
			{MemoryID: "m1", Sector: domain.SectorSemantic},
			{MemoryID: "m2", Sector: domain.SectorSemantic},
		},
		QueryAt:    now,
		EnqueuedAt: now,
		UpdatedAt:  now,
	}
	if err := js.Enqueue(ctx, j); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	claimed, err := js.ClaimPending(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(claimed) != 1 || claimed[0].Status != domain.JobRunning {
		t.Fatalf("claimed = %+v, want 1 running job", claimed)
	}

	// A second claim should see nothing pending.
	claimedAgain, err := js.ClaimPending(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(claimedAgain) != 0 {
		t.Errorf("expected no pending jobs left, got %d", len(claimedAgain))
	}
}

func TestJobStore_MarkFailedRequeue(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	js := NewJobStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	j := &domain.CoactivationJob{ID: "j1", Status: domain.JobPending, QueryAt: now, EnqueuedAt: now, UpdatedAt: now}
	_ = js.Enqueue(ctx, j)

	claimed, _ := js.ClaimPending(ctx, 10)
	if err := js.MarkFailed(ctx, claimed[0].ID, errors.New("backend down"), true, now); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	reclaimed, err := js.ClaimPending(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(reclaimed) != 1 || reclaimed[0].Retries != 1 {
		t.Fatalf("reclaimed = %+v, want 1 job with retries=1", reclaimed)
	}
}

func TestJobStore_MarkFailedRespectsBackoff(t *testing.T) {
	db, _ := OpenInMemory()
	defer db.Close()
	js := NewJobStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	j := &domain.CoactivationJob{ID: "j1", Status: domain.JobPending, QueryAt: now, EnqueuedAt: now, UpdatedAt: now}
	_ = js.Enqueue(ctx, j)

	claimed, _ := js.ClaimPending(ctx, 10)
	nextAttempt := now.Add(time.Hour)
	if err := js.MarkFailed(ctx, claimed[0].ID, errors.New("backend down"), true, nextAttempt); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	tooSoon, err := js.ClaimPending(ctx, 10)
	if err != nil {
		t.Fatalf("ClaimPending: %v", err)
	}
	if len(tooSoon) != 0 {
		t.Fatalf("expected job to stay unclaimable before its backoff elapses, got %+v", tooSoon)
	}
}

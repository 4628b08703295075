package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/harper/cortexmem/internal/config"
	"github.com/harper/cortexmem/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	sectors := make(map[domain.Sector]domain.SectorConfig)
	for _, s := range domain.AllSectors {
		sectors[s] = domain.DefaultSectorConfig(s)
	}
	return &config.Config{
		VectorDimension:  32,
		OverfetchFactor:  3,
		VectorPartitions: 8,
		MetadataBackend:  "sqlite",
		SQLitePath:       filepath.Join(t.TempDir(), "cortexmem.db"),
		Embeddings:       "synthetic",
		Tier:             "fast",
		CacheEnabled:     true,
		CoactivationMode: "disabled",
		RerankAlpha:      0.6,
		RerankBeta:       0.2,
		RerankGamma:      0.1,
		RerankDelta:      0.1,
		MaxExpansion:     5,
		ExpansionSeeds:   3,
		SectorConfig:     sectors,
	}
}

func TestNew_WiresEngineAndCloses(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.Engine == nil {
		t.Fatal("expected non-nil Engine")
	}
	if a.Coactivation == nil {
		t.Fatal("expected non-nil Coactivation worker")
	}
	if a.Cache == nil {
		t.Fatal("expected non-nil Cache")
	}
}

func TestApp_AddAndStats(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = a.Close() }()

	if _, err := a.Engine.Add(ctx, "met with alice about project x", "alice", []string{"meeting"}, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	st, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalMemories != 1 {
		t.Errorf("TotalMemories = %d, want 1", st.TotalMemories)
	}
}

func TestApp_Export(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = a.Close() }()

	if _, err := a.Engine.Add(ctx, "alice likes hiking", "alice", nil, nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := a.Engine.AddFact(ctx, "alice", "alice", "works_at", "acme", time.Now().UTC(), 1.0, nil); err != nil {
		t.Fatalf("AddFact: %v", err)
	}

	data, err := a.Export(ctx, "alice")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(data.Memories) != 1 {
		t.Errorf("expected 1 exported memory, got %d", len(data.Memories))
	}
	if len(data.Facts) != 1 {
		t.Errorf("expected 1 exported fact, got %d", len(data.Facts))
	}
}

func TestApp_RunBackgroundJobs_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, err := New(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = a.Close() }()

	done := make(chan struct{})
	go func() {
		a.RunBackgroundJobs(ctx, testConfig(t), time.Millisecond)
		close(done)
	}()

	cancel()
	<-done
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/harper/cortexmem/internal/domain"
)

func TestStorage_Export(t *testing.T) {
	st, err := NewStorageInMemory()
	if err != nil {
		t.Fatalf("NewStorageInMemory: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = st.Memories.Insert(ctx, &domain.Memory{
		ID: "m1", UserID: "u1", Content: "hello", PrimarySector: domain.SectorSemantic,
		Sectors: []domain.Sector{domain.SectorSemantic}, Salience: 0.5, CreatedAt: now, LastSeenAt: now,
	})
	_ = st.Facts.Insert(ctx, &domain.Fact{
		ID: "f1", UserID: "u1", Subject: "u1", Predicate: "likes", Object: "go",
		ValidFrom: now, Confidence: 1.0, LastUpdated: now,
	})

	data, err := st.Export(ctx, "u1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(data.Memories) != 1 || len(data.Facts) != 1 {
		t.Fatalf("data = %+v, want 1 memory and 1 fact", data)
	}

	yamlBytes, err := ExportYAML(data)
	if err != nil {
		t.Fatalf("ExportYAML: %v", err)
	}
	if len(yamlBytes) == 0 {
		t.Error("expected non-empty YAML output")
	}
}

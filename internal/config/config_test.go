// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing, defaults, and validation
package config

import (
	"os"
	"testing"
	"time"

	"github.com/harper/cortexmem/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.UseApproxVector {
		t.Error("UseApproxVector = true, want false")
	}
	if cfg.VectorDimension != 768 {
		t.Errorf("VectorDimension = %d, want 768", cfg.VectorDimension)
	}
	if cfg.OverfetchFactor != 3 {
		t.Errorf("OverfetchFactor = %d, want 3", cfg.OverfetchFactor)
	}
	if cfg.VectorPartitions != 8 {
		t.Errorf("VectorPartitions = %d, want 8", cfg.VectorPartitions)
	}
	if cfg.MetadataBackend != "sqlite" {
		t.Errorf("MetadataBackend = %s, want sqlite", cfg.MetadataBackend)
	}
	if cfg.Embeddings != "synthetic" {
		t.Errorf("Embeddings = %s, want synthetic", cfg.Embeddings)
	}
	if cfg.Tier != "fast" {
		t.Errorf("Tier = %s, want fast", cfg.Tier)
	}
	if !cfg.CacheEnabled {
		t.Error("CacheEnabled = false, want true")
	}
	if cfg.CacheTTL != 60*time.Second {
		t.Errorf("CacheTTL = %v, want 60s", cfg.CacheTTL)
	}
	if cfg.CoactivationMode != "cron" {
		t.Errorf("CoactivationMode = %s, want cron", cfg.CoactivationMode)
	}
	if len(cfg.SectorConfig) != len(domain.AllSectors) {
		t.Errorf("SectorConfig has %d entries, want %d", len(cfg.SectorConfig), len(domain.AllSectors))
	}
	if cfg.MaxExpansion != 5 {
		t.Errorf("MaxExpansion = %d, want 5", cfg.MaxExpansion)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("USE_APPROX_VECTOR", "true")
	os.Setenv("VEC_DIM", "1024")
	os.Setenv("OVERFETCH_FACTOR", "5")
	os.Setenv("VECTOR_PARTITIONS", "16")
	os.Setenv("METADATA_BACKEND", "postgres")
	os.Setenv("EMBEDDINGS", "openai")
	os.Setenv("TIER", "hybrid")
	os.Setenv("CACHE_ENABLED", "false")
	os.Setenv("COACTIVATION_MODE", "interval")
	os.Setenv("SECTOR_TAU_NEW_SEMANTIC", "0.9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.UseApproxVector {
		t.Error("UseApproxVector = false, want true")
	}
	if cfg.VectorDimension != 1024 {
		t.Errorf("VectorDimension = %d, want 1024", cfg.VectorDimension)
	}
	if cfg.OverfetchFactor != 5 {
		t.Errorf("OverfetchFactor = %d, want 5", cfg.OverfetchFactor)
	}
	if cfg.VectorPartitions != 16 {
		t.Errorf("VectorPartitions = %d, want 16", cfg.VectorPartitions)
	}
	if cfg.MetadataBackend != "postgres" {
		t.Errorf("MetadataBackend = %s, want postgres", cfg.MetadataBackend)
	}
	if cfg.Embeddings != "openai" {
		t.Errorf("Embeddings = %s, want openai", cfg.Embeddings)
	}
	if cfg.Tier != "hybrid" {
		t.Errorf("Tier = %s, want hybrid", cfg.Tier)
	}
	if cfg.CacheEnabled {
		t.Error("CacheEnabled = true, want false")
	}
	if cfg.CoactivationMode != "interval" {
		t.Errorf("CoactivationMode = %s, want interval", cfg.CoactivationMode)
	}
	if cfg.SectorConfig[domain.SectorSemantic].TauNew != 0.9 {
		t.Errorf("SectorConfig[semantic].TauNew = %f, want 0.9", cfg.SectorConfig[domain.SectorSemantic].TauNew)
	}
}

func TestValidate_InvalidPartitions(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	cfg.VectorPartitions = 7
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for non-power-of-two VECTOR_PARTITIONS")
	}
}

func TestValidate_InvalidMetadataBackend(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	cfg.MetadataBackend = "mongo"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for unknown METADATA_BACKEND")
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		defaultVal bool
		want       bool
	}{
		{"empty uses default true", "", true, true},
		{"empty uses default false", "", false, false},
		{"true", "true", false, true},
		{"1", "1", false, true},
		{"false", "false", true, false},
		{"0", "0", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			got := getEnvBool("TEST_BOOL", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

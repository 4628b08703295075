// ABOUTME: Centralized configuration for the memory engine
// ABOUTME: Loads from environment variables with validation and defaults, per-sector overrides included
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harper/cortexmem/internal/domain"
)

// Config holds all environment-driven configuration for the engine.
type Config struct {
	// Vector index backend
	UseApproxVector  bool
	VectorDimension  int
	OverfetchFactor  int
	VectorPartitions int

	// Metadata backend
	MetadataBackend string // sqlite | postgres
	SQLitePath      string
	PostgresDSN     string

	// Embedding backend
	Embeddings     string // synthetic | openai | gemini | ollama
	Tier           string // fast | smart | deep | hybrid
	OpenAIKey      string
	EmbeddingModel string
	OllamaHost     string
	OllamaModel    string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration

	// Isolation / cache
	CacheEnabled bool
	CacheTTL     time.Duration

	// Coactivation
	CoactivationMode string // cron | interval | disabled

	// Query re-ranking: final_score = alpha*cosine + beta*salience + gamma*recency + delta*path_bonus
	RerankAlpha float64
	RerankBeta  float64
	RerankGamma float64
	RerankDelta float64

	// Waypoint expansion
	MaxExpansion  int // max_exp: hard cap on neighbors visited per query
	ExpansionSeeds int // top-N candidates whose waypoints seed the expansion

	// Per-sector overrides
	SectorConfig map[domain.Sector]domain.SectorConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		UseApproxVector:  getEnvBool("USE_APPROX_VECTOR", false),
		VectorDimension:  getEnvInt("VEC_DIM", 768),
		OverfetchFactor:  getEnvInt("OVERFETCH_FACTOR", 3),
		VectorPartitions: getEnvInt("VECTOR_PARTITIONS", 8),

		MetadataBackend: getEnv("METADATA_BACKEND", "sqlite"),
		SQLitePath:      getEnv("CORTEXMEM_DB_PATH", ""),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),

		Embeddings:     getEnv("EMBEDDINGS", "synthetic"),
		Tier:           getEnv("TIER", "fast"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel: getEnv("MEMORY_EMBEDDING_MODEL", "text-embedding-3-small"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		Timeout:        getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		MaxRetries:     getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:     getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),

		CacheEnabled: getEnvBool("CACHE_ENABLED", true),
		CacheTTL:     getEnvDuration("CACHE_TTL", 60*time.Second),

		CoactivationMode: getEnv("COACTIVATION_MODE", "cron"),

		RerankAlpha: getEnvFloat("RERANK_ALPHA", 0.6),
		RerankBeta:  getEnvFloat("RERANK_BETA", 0.2),
		RerankGamma: getEnvFloat("RERANK_GAMMA", 0.1),
		RerankDelta: getEnvFloat("RERANK_DELTA", 0.1),

		MaxExpansion:   getEnvInt("MAX_EXPANSION", 5),
		ExpansionSeeds: getEnvInt("EXPANSION_SEEDS", 3),

		SectorConfig: make(map[domain.Sector]domain.SectorConfig),
	}

	for _, s := range domain.AllSectors {
		sc := domain.DefaultSectorConfig(s)
		tag := strings.ToUpper(string(s))
		sc.DecayLambda = getEnvFloat("SECTOR_DECAY_"+tag, sc.DecayLambda)
		sc.TauNew = getEnvFloat("SECTOR_TAU_NEW_"+tag, sc.TauNew)
		sc.SalienceFloor = getEnvFloat("SECTOR_FLOOR_"+tag, sc.SalienceFloor)
		sc.Reinforcement = getEnvFloat("SECTOR_REINFORCE_"+tag, sc.Reinforcement)
		cfg.SectorConfig[s] = sc
	}

	return cfg, cfg.Validate()
}

// Validate checks invariants on the loaded configuration.
func (c *Config) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.OverfetchFactor < 1 {
		return fmt.Errorf("OVERFETCH_FACTOR must be >= 1, got %d", c.OverfetchFactor)
	}
	if c.VectorPartitions < 1 || c.VectorPartitions&(c.VectorPartitions-1) != 0 {
		return fmt.Errorf("VECTOR_PARTITIONS must be a power of two, got %d", c.VectorPartitions)
	}
	switch c.MetadataBackend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("METADATA_BACKEND must be sqlite or postgres, got %q", c.MetadataBackend)
	}
	switch c.Embeddings {
	case "synthetic", "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("EMBEDDINGS must be one of synthetic|openai|gemini|ollama, got %q", c.Embeddings)
	}
	switch c.Tier {
	case "fast", "smart", "deep", "hybrid":
	default:
		return fmt.Errorf("TIER must be one of fast|smart|deep|hybrid, got %q", c.Tier)
	}
	switch c.CoactivationMode {
	case "cron", "interval", "disabled":
	default:
		return fmt.Errorf("COACTIVATION_MODE must be one of cron|interval|disabled, got %q", c.CoactivationMode)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

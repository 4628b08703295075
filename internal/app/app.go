// ABOUTME: App wires config, storage backends, embeddings, vector index, cache, and the engine into one bootstrap
// ABOUTME: The single construction path shared by the daemon, the CLI, and the MCP server, grounded on the teacher's NewStorage()
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/harper/cortexmem/internal/coactivation"
	"github.com/harper/cortexmem/internal/config"
	"github.com/harper/cortexmem/internal/domain"
	"github.com/harper/cortexmem/internal/embedding"
	"github.com/harper/cortexmem/internal/engine"
	"github.com/harper/cortexmem/internal/hsg"
	"github.com/harper/cortexmem/internal/isolation"
	"github.com/harper/cortexmem/internal/logging"
	"github.com/harper/cortexmem/internal/router"
	"github.com/harper/cortexmem/internal/store/postgres"
	"github.com/harper/cortexmem/internal/store/sqlite"
	"github.com/harper/cortexmem/internal/vectorindex"
	"github.com/harper/cortexmem/internal/vectorindex/approx"
)

var log = logging.For("app")

// App is the fully-wired runtime: the programmatic API, the background
// coactivation worker, and everything's shutdown path.
type App struct {
	Engine       *engine.Engine
	Coactivation *coactivation.Worker
	Cache        *isolation.Cache

	sqliteStore *sqlite.Storage
	postgresDB  *postgres.DB
}

// New builds the full runtime from cfg. The waypoint graph, the
// coactivation job queue, and Backend A's exact vector index always live
// in sqlite regardless of METADATA_BACKEND (see internal/hsg.WaypointStore's
// doc comment); only memories and facts move to postgres when configured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	sqlitePath := cfg.SQLitePath
	if sqlitePath == "" {
		sqlitePath = sqlite.DefaultDBPath()
	}
	sqliteStore, err := sqlite.NewStorage(sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite storage: %w", err)
	}

	var memories hsg.MemoryStore = sqliteStore.Memories
	var facts engine.FactStore = sqliteStore.Facts
	var pgDB *postgres.DB

	if cfg.MetadataBackend == "postgres" {
		pgDB, err = postgres.Open(ctx, cfg.PostgresDSN, postgres.DefaultPoolOptions())
		if err != nil {
			_ = sqliteStore.Close()
			return nil, fmt.Errorf("opening postgres pool: %w", err)
		}
		memories = postgres.NewMemoryStore(pgDB)
		facts = postgres.NewFactStore(pgDB)
	}

	embedder, err := embedding.New(cfg)
	if err != nil {
		_ = sqliteStore.Close()
		if pgDB != nil {
			pgDB.Close()
		}
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}

	var vecIndex vectorindex.Index = sqliteStore.Vectors
	if cfg.UseApproxVector {
		vecIndex = approx.New(cfg.VectorPartitions, cfg.OverfetchFactor)
	}

	cache, err := isolation.New(isolation.Config{Enabled: cfg.CacheEnabled, TTL: cfg.CacheTTL})
	if err != nil {
		_ = sqliteStore.Close()
		if pgDB != nil {
			pgDB.Close()
		}
		return nil, fmt.Errorf("initializing cache: %w", err)
	}

	hsgEngine := hsg.New(hsg.Deps{
		Memories:  memories,
		Waypoints: sqliteStore.Waypoints,
		Jobs:      sqliteStore.Jobs,
		Vectors:   vecIndex,
		Embedder:  embedder,
		Cache:     cache,
		Sectors:   cfg.SectorConfig,
		Weights: hsg.RerankWeights{
			Alpha: cfg.RerankAlpha,
			Beta:  cfg.RerankBeta,
			Gamma: cfg.RerankGamma,
			Delta: cfg.RerankDelta,
		},
		MaxExp:    cfg.MaxExpansion,
		Seeds:     cfg.ExpansionSeeds,
		Overfetch: cfg.OverfetchFactor,
	})

	eng := engine.New(hsgEngine, facts, sqliteStore.Links, sqliteStore.Edges)

	worker := coactivation.New(sqliteStore.Jobs, sqliteStore.Waypoints, 20)

	return &App{
		Engine:       eng,
		Coactivation: worker,
		Cache:        cache,
		sqliteStore:  sqliteStore,
		postgresDB:   pgDB,
	}, nil
}

// Close releases every backend connection the app opened.
func (a *App) Close() error {
	var firstErr error
	if a.postgresDB != nil {
		a.postgresDB.Close()
	}
	if a.sqliteStore != nil {
		if err := a.sqliteStore.Close(); err != nil {
			firstErr = err
		}
	}
	return firstErr
}

// RunBackgroundJobs starts the coactivation worker and periodic decay
// sweeps; blocks until ctx is canceled. Called by the daemon (cmd/server)
// and by the long-running `memory mcp` subcommand; the other CLI commands
// are one-shot and never call this.
func (a *App) RunBackgroundJobs(ctx context.Context, cfg *config.Config, decayInterval time.Duration) {
	if cfg.CoactivationMode == coactivationModeCron {
		go a.Coactivation.Run(ctx, 5*time.Second)
	}

	ticker := time.NewTicker(decayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sector := range domain.AllSectors {
				n, err := a.Engine.DecaySweep(ctx, sector)
				if err != nil {
					log.Error("decay sweep failed", "sector", sector, "err", err)
					continue
				}
				if n > 0 {
					log.Debug("decay sweep applied", "sector", sector, "count", n)
				}
			}
		}
	}
}

// Stats reports operator-facing counts. The job-queue counts always come from
// sqlite (see New's doc comment); when METADATA_BACKEND=postgres, the memory
// and fact totals and the per-sector memory counts are replaced with the
// postgres-side counts so the report reflects where the data actually lives.
func (a *App) Stats(ctx context.Context) (*sqlite.Stats, error) {
	st, err := a.sqliteStore.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	if a.postgresDB == nil {
		return st, nil
	}

	pgCounts, err := a.postgresDB.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres stats: %w", err)
	}
	st.TotalMemories = pgCounts.TotalMemories
	st.TotalFacts = pgCounts.TotalFacts
	st.OpenFacts = pgCounts.OpenFacts
	st.Sectors = st.Sectors[:0]
	for sector, count := range pgCounts.SectorCounts {
		st.Sectors = append(st.Sectors, sqlite.SectorStats{Sector: sector, Count: count})
	}
	return st, nil
}

// Export dumps one user's memories and the facts active at export time;
// closed facts, links, edges and waypoints are not included. Always reads through sqlite's
// export path when sqlite is the metadata backend; under postgres, memories
// and facts live there instead, so export falls back to composing the same
// snapshot shape from the postgres stores via the engine.
func (a *App) Export(ctx context.Context, userID string) (*sqlite.ExportData, error) {
	if a.postgresDB == nil {
		return a.sqliteStore.Export(ctx, userID)
	}

	memories, err := a.Engine.List(ctx, userID, "", -1, 0)
	if err != nil {
		return nil, fmt.Errorf("export: list memories: %w", err)
	}
	facts, err := a.Engine.QueryFacts(ctx, userID, engineFactPattern(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("export: query facts: %w", err)
	}

	data := &sqlite.ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Tool:       "cortexmem",
	}
	for _, m := range memories {
		sectors := make([]string, 0, len(m.Sectors))
		for _, sec := range m.Sectors {
			sectors = append(sectors, string(sec))
		}
		data.Memories = append(data.Memories, sqlite.ExportMemory{
			ID:            m.ID,
			Content:       m.Content,
			PrimarySector: string(m.PrimarySector),
			Sectors:       sectors,
			Tags:          m.Tags,
			Salience:      m.Salience,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, f := range facts {
		ef := sqlite.ExportFact{
			ID:         f.ID,
			Subject:    f.Subject,
			Predicate:  f.Predicate,
			Object:     f.Object,
			ValidFrom:  f.ValidFrom.Format(time.RFC3339),
			Confidence: f.Confidence,
		}
		if f.ValidTo != nil {
			ef.ValidTo = f.ValidTo.Format(time.RFC3339)
		}
		data.Facts = append(data.Facts, ef)
	}
	return data, nil
}

func engineFactPattern() router.FactPattern {
	return router.FactPattern{}
}

const coactivationModeCron = "cron"

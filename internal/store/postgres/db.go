// ABOUTME: Postgres connection pool for the METADATA_BACKEND=postgres alternative
// ABOUTME: Pool sizing grounded on vasic-digital-SuperAgent's PoolConfigOptions pattern
package postgres

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// PoolOptions tunes the pgxpool.Config built by Open. Zero values fall back
// to the defaults below.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolOptions mirrors the sizing rule of thumb (2*CPU + 1, capped)
// used for helixagent's default pool.
func DefaultPoolOptions() PoolOptions {
	cpu := int32(runtime.NumCPU())
	maxConns := cpu*2 + 1
	if maxConns < 10 {
		maxConns = 10
	}
	if maxConns > 50 {
		maxConns = 50
	}
	return PoolOptions{
		MaxConns:        maxConns,
		MinConns:        cpu / 2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Open connects to Postgres and runs the schema migration.
func Open(ctx context.Context, connString string, opts PoolOptions) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize postgres schema: %w", err)
	}
	return db, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	content TEXT NOT NULL,
	primary_sector TEXT NOT NULL,
	sectors JSONB NOT NULL DEFAULT '[]',
	tags JSONB NOT NULL DEFAULT '[]',
	metadata JSONB NOT NULL DEFAULT '{}',
	salience DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	created_at BIGINT NOT NULL,
	last_seen_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
CREATE INDEX IF NOT EXISTS idx_memories_sector ON memories(primary_sector);

CREATE TABLE IF NOT EXISTS temporal_facts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object TEXT NOT NULL,
	valid_from BIGINT NOT NULL,
	valid_to BIGINT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	last_updated BIGINT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_facts_subject ON temporal_facts(subject);
CREATE INDEX IF NOT EXISTS idx_facts_object ON temporal_facts(object);
CREATE INDEX IF NOT EXISTS idx_facts_predicate_validfrom ON temporal_facts(predicate, valid_from);
CREATE INDEX IF NOT EXISTS idx_facts_user ON temporal_facts(user_id);
`

func (db *DB) initSchema(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, schemaSQL)
	return err
}

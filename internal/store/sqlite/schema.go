// ABOUTME: SQLite schema for the memory engine's metadata backend
// ABOUTME: Tables mirror spec's persisted-state section: memories, vectors, waypoints, facts, jobs, links
package sqlite

// Schema contains all SQL statements for database initialization.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    content TEXT NOT NULL,
    primary_sector TEXT NOT NULL,
    sectors TEXT NOT NULL,
    tags TEXT,
    metadata TEXT,
    salience REAL NOT NULL DEFAULT 0.5,
    created_at INTEGER NOT NULL,
    last_seen_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);
CREATE INDEX IF NOT EXISTS idx_memories_sector ON memories(primary_sector);

-- Exact-linear vector index backend (Backend A): one row per (id, sector).
CREATE TABLE IF NOT EXISTS vectors (
    id TEXT NOT NULL,
    sector TEXT NOT NULL,
    user_id TEXT NOT NULL,
    v BLOB NOT NULL,
    dim INTEGER NOT NULL,
    PRIMARY KEY (id, sector)
);
CREATE INDEX IF NOT EXISTS idx_vectors_sector_user ON vectors(sector, user_id);

CREATE TABLE IF NOT EXISTS waypoints (
    id TEXT PRIMARY KEY,
    sector TEXT NOT NULL,
    mean_v BLOB NOT NULL,
    member_ids TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_waypoints_sector ON waypoints(sector);

-- Reverse index: which waypoint a (memory, sector) belongs to, avoiding an
-- O(waypoints) membership scan on every delete or expansion seed lookup.
CREATE TABLE IF NOT EXISTS memory_waypoints (
    memory_id TEXT NOT NULL,
    sector TEXT NOT NULL,
    waypoint_id TEXT NOT NULL,
    PRIMARY KEY (memory_id, sector)
);
CREATE INDEX IF NOT EXISTS idx_memory_waypoints_waypoint ON memory_waypoints(waypoint_id);

CREATE TABLE IF NOT EXISTS waypoint_edges (
    a TEXT NOT NULL,
    b TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 0,
    last_activated_at INTEGER NOT NULL,
    PRIMARY KEY (a, b)
);

CREATE TABLE IF NOT EXISTS temporal_facts (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    subject TEXT NOT NULL,
    predicate TEXT NOT NULL,
    object TEXT NOT NULL,
    valid_from INTEGER NOT NULL,
    valid_to INTEGER,
    confidence REAL NOT NULL DEFAULT 1.0,
    last_updated INTEGER NOT NULL,
    metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_facts_subject ON temporal_facts(subject);
CREATE INDEX IF NOT EXISTS idx_facts_object ON temporal_facts(object);
CREATE INDEX IF NOT EXISTS idx_facts_predicate_from ON temporal_facts(predicate, valid_from);
CREATE INDEX IF NOT EXISTS idx_facts_user ON temporal_facts(user_id);

CREATE TABLE IF NOT EXISTS temporal_edges (
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 0,
    valid_from INTEGER NOT NULL,
    valid_to INTEGER,
    user_id TEXT NOT NULL,
    PRIMARY KEY (source_id, target_id, relation_type)
);

CREATE TABLE IF NOT EXISTS coactivation_jobs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    payload TEXT NOT NULL,
    query_at INTEGER NOT NULL,
    retries INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    enqueued_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    next_attempt_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON coactivation_jobs(status);

-- Supplemented feature: explicit, user-asserted memory links (see SPEC_FULL.md).
CREATE TABLE IF NOT EXISTS memory_links (
    from_id TEXT NOT NULL,
    to_id TEXT NOT NULL,
    relation TEXT NOT NULL,
    user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (from_id, to_id, relation)
);
`

// SchemaVersion is the current schema version for migrations.
const SchemaVersion = 1

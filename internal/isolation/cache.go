// ABOUTME: Multi-tenant isolation (C6): bounded TTL query-result cache and hash-partition helper
// ABOUTME: Cache keys always embed the user id; its absence is a bug with data-leakage consequences
package isolation

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache is a bounded TTL cache for query results, keyed by
// (user_id, sector_set, query_text_hash, k) per spec §5. A missing user id
// in the key is always a bug: Key panics rather than silently building
// an unscoped key that could leak across tenants.
type Cache struct {
	c       *ristretto.Cache
	ttl     time.Duration
	enabled bool
}

// Config tunes the underlying ristretto cache. Zero values take the
// defaults ristretto itself recommends for a modest working set.
type Config struct {
	Enabled     bool
	TTL         time.Duration
	NumCounters int64
	MaxCost     int64
	BufferItems int64
}

func New(cfg Config) (*Cache, error) {
	if !cfg.Enabled {
		return &Cache{enabled: false}, nil
	}
	if cfg.NumCounters == 0 {
		cfg.NumCounters = 1e6
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = 1 << 26 // 64 MiB
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = 64
	}
	if cfg.TTL == 0 {
		cfg.TTL = 60 * time.Second
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: cfg.TTL, enabled: true}, nil
}

// Key builds the mandatory-user-id-scoped cache key for a contextual query.
// userID must be non-empty; an anonymous caller should pass domain.AnonymousUser
// explicitly rather than "" so two different "unscoped" callers never collide
// with two different forgetful ones.
func Key(userID string, sectors []string, queryText string, k int) string {
	if userID == "" {
		panic("isolation.Key: empty user id would build a cache key with no tenant scope")
	}
	sorted := append([]string{}, sectors...)
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(queryText))
	var b strings.Builder
	b.WriteString(userID)
	b.WriteByte('|')
	b.WriteString(strings.Join(sorted, ","))
	b.WriteByte('|')
	b.WriteString(hex.EncodeToString(h[:]))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(k))
	return b.String()
}

// Get returns the cached value for key, or ok=false on a miss or when
// caching is disabled. Callers type-assert the returned value themselves.
func (c *Cache) Get(key string) (any, bool) {
	if !c.enabled {
		return nil, false
	}
	return c.c.Get(key)
}

// Set stores value under key with the cache's configured TTL. cost is the
// ristretto accounting weight; callers pass an estimate of the result's
// size (e.g. number of hits) rather than a precise byte count.
func (c *Cache) Set(key string, value any, cost int64) {
	if !c.enabled {
		return
	}
	if cost <= 0 {
		cost = 1
	}
	c.c.SetWithTTL(key, value, cost, c.ttl)
}

// Invalidate drops key immediately. Nothing in this module calls it: writes
// such as a wipe leave cached query results in place until their TTL expires.
func (c *Cache) Invalidate(key string) {
	if !c.enabled {
		return
	}
	c.c.Del(key)
}

// Enabled reports whether caching is active; CACHE_ENABLED=false makes this false.
func (c *Cache) Enabled() bool { return c.enabled }

// PartitionCount must be a power of two per spec §6 (VECTOR_PARTITIONS).
func PartitionCount(p int) int {
	if p <= 0 {
		return 8
	}
	n := 1
	for n < p {
		n <<= 1
	}
	return n
}

// Partition hash-partitions userID into [0, p) for the approximate vector
// backend's post-filtering regime (spec §4.6).
func Partition(userID string, p int) int {
	if p <= 0 {
		p = 8
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(p))
}

package prolog

import (
	"sync"
	"sync/atomic"
)

// queryCache memoizes fully-materialized query results keyed by a hash of
// the wire-encoded goal list and options. Any committed change invalidates
// the whole cache. Entries are only written for queries that ran to
// exhaustion against the current generation, so a cached answer is always
// complete and current for its key: a query that was still streaming from
// an older snapshot when a mutation committed does not poison the cache.
type queryCache struct {
	mu      sync.Mutex
	entries map[uint64][]map[string]Term
	gen     uint64
	hits    uint64
	misses  uint64
}

func newQueryCache() *queryCache {
	return &queryCache{entries: make(map[uint64][]map[string]Term)}
}

// get returns the cached rows for key, if any, along with the current
// generation to hand back to put.
func (c *queryCache) get(key uint64) ([]map[string]Term, uint64, bool) {
	c.mu.Lock()
	rows, ok := c.entries[key]
	gen := c.gen
	c.mu.Unlock()
	if ok {
		atomic.AddUint64(&c.hits, 1)
	} else {
		atomic.AddUint64(&c.misses, 1)
	}
	return rows, gen, ok
}

// put stores rows for key unless the cache moved past gen in the meantime.
func (c *queryCache) put(key uint64, rows []map[string]Term, gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.entries[key] = rows
	}
	c.mu.Unlock()
}

func (c *queryCache) invalidate() {
	c.mu.Lock()
	c.gen++
	c.entries = make(map[uint64][]map[string]Term)
	c.mu.Unlock()
}

func (c *queryCache) hitCount() uint64 { return atomic.LoadUint64(&c.hits) }

// Package patterncache memoises compiled site patterns so the gate does not
// rebuild a regexp for every rule on every request.
package patterncache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/reclaim/internal/reclaim/domain"
)

// Cache compiles patterns, remembering the most recently used ones.
type Cache interface {
	Compile(pattern string) (*domain.Pattern, error)
	Len() int
	Purge()
	Stats() (hits, misses, evictions uint64)
}

// patternCache is an LRU-backed Cache. Compile failures are not cached.
type patternCache struct {
	lru       *lru.Cache[string, *domain.Pattern]
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache compiles on every call and tracks nothing; used when size <= 0.
type disabledCache struct{}

// New creates a Cache holding at most size compiled patterns. If size <= 0,
// a disabled cache is returned.
func New(size int) (Cache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	var pc patternCache
	cache, err := lru.NewWithEvict(size, func(_ string, _ *domain.Pattern) {
		atomic.AddUint64(&pc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	pc.lru = cache
	return &pc, nil
}

// Compile returns the cached pattern or compiles and stores it.
func (c *patternCache) Compile(pattern string) (*domain.Pattern, error) {
	if p, ok := c.lru.Get(pattern); ok {
		atomic.AddUint64(&c.hits, 1)
		return p, nil
	}
	atomic.AddUint64(&c.misses, 1)
	p, err := domain.CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	c.lru.Add(pattern, p)
	return p, nil
}

func (c *patternCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Evictions are counted via the eviction callback.
func (c *patternCache) Purge() { c.lru.Purge() }

func (c *patternCache) Stats() (hits, misses, evictions uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses), atomic.LoadUint64(&c.evictions)
}

func (d *disabledCache) Compile(pattern string) (*domain.Pattern, error) {
	return domain.CompilePattern(pattern)
}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() (uint64, uint64, uint64) { return 0, 0, 0 }

var _ Cache = (*patternCache)(nil)
var _ Cache = (*disabledCache)(nil)

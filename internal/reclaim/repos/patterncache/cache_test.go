package patterncache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/reclaim/internal/reclaim/domain"
)

func TestCache_HitsAndMisses(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	p1, err := c.Compile("*://*.youtube.com/*")
	require.NoError(t, err)
	p2, err := c.Compile("*://*.youtube.com/*")
	require.NoError(t, err)
	assert.Same(t, p1, p2, "second compile should come from the cache")
	assert.True(t, p2.Match("https://www.youtube.com/watch?v=1"))

	hits, misses, evictions := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, uint64(0), evictions)
	assert.Equal(t, 1, c.Len())
}

func TestCache_BadPatternNotCached(t *testing.T) {
	c, err := New(4)
	require.NoError(t, err)

	_, err = c.Compile("   ")
	assert.True(t, errors.Is(err, domain.ErrBadPattern))
	assert.Equal(t, 0, c.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	_, _ = c.Compile("a")
	_, _ = c.Compile("b")
	_, _ = c.Compile("a") // b is now least recently used
	_, _ = c.Compile("c")

	_, _, evictions := c.Stats()
	assert.Equal(t, uint64(1), evictions)
	assert.Equal(t, 2, c.Len())

	hitsBefore, _, _ := c.Stats()
	_, _ = c.Compile("a")
	hitsAfter, _, _ := c.Stats()
	assert.Equal(t, hitsBefore+1, hitsAfter, "a should have survived eviction")

	c.Purge()
	assert.Equal(t, 0, c.Len())
	_, _, evictions = c.Stats()
	assert.Equal(t, uint64(3), evictions)
}

func TestDisabledCache(t *testing.T) {
	c, err := New(0)
	require.NoError(t, err)

	p, err := c.Compile("reddit")
	require.NoError(t, err)
	assert.True(t, p.Match("https://old.reddit.com/"))
	assert.Equal(t, 0, c.Len())
	c.Purge()
	hits, misses, evictions := c.Stats()
	assert.Zero(t, hits+misses+evictions)
}

func BenchmarkCache_Hit(b *testing.B) {
	c, err := New(16)
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	const pat = "*://*.example.com/*"
	if _, err := c.Compile(pat); err != nil {
		b.Fatalf("Compile: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Compile(pat); err != nil {
			b.Fatalf("Compile: %v", err)
		}
	}
}

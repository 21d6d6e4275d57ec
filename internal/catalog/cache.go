package catalog

import (
	"fmt"
	"sync"
	"time"

	"material-router/internal/logger"

	"golang.org/x/sync/singleflight"
)

// cacheKey identifies one loaded category of one catalog file.
type cacheKey struct {
	Path     string
	Category string
}

type cacheEntry struct {
	materials []Material
	stats     Stats
	loadedAt  time.Time
}

// LoadFunc loads one category of a catalog file.
type LoadFunc func(path, category string) ([]Material, Stats, error)

// Cache memoizes catalog loads. A singleflight.Group makes concurrent
// requests for the same (path, category) share one read of the source.
// Returned slices are shared between callers and must not be modified.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
	group   singleflight.Group
	load    LoadFunc
	gen     uint64 // bumped by Invalidate; loads from an older generation are not stored

	// OnLoad, if set, is called after every successful source read.
	OnLoad func(path, category string, stats Stats, took time.Duration)
}

// NewCache creates an empty cache backed by LoadWithStats.
func NewCache() *Cache {
	return NewCacheWithLoader(LoadWithStats)
}

// NewCacheWithLoader creates an empty cache backed by load.
func NewCacheWithLoader(load LoadFunc) *Cache {
	return &Cache{
		entries: make(map[cacheKey]*cacheEntry),
		load:    load,
	}
}

// Get returns cached materials without touching the source.
func (c *Cache) Get(path, category string) ([]Material, Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheKey{path, category}]
	if !ok {
		return nil, Stats{}, false
	}
	return e.materials, e.stats, true
}

// LoadedAt reports when (path, category) was last read from the source.
func (c *Cache) LoadedAt(path, category string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheKey{path, category}]
	if !ok {
		return time.Time{}, false
	}
	return e.loadedAt, true
}

// Materials returns the materials of category, loading them on first use.
func (c *Cache) Materials(path, category string) ([]Material, error) {
	if mats, _, ok := c.Get(path, category); ok {
		return mats, nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	sfKey := fmt.Sprintf("%d\x00%s\x00%s", gen, path, category)
	result, err, _ := c.group.Do(sfKey, func() (interface{}, error) {
		if mats, _, ok := c.Get(path, category); ok {
			return mats, nil
		}
		start := time.Now()
		mats, stats, err := c.load(path, category)
		if err != nil {
			return nil, err
		}
		took := time.Since(start)

		c.mu.Lock()
		if c.gen == gen {
			c.entries[cacheKey{path, category}] = &cacheEntry{
				materials: mats,
				stats:     stats,
				loadedAt:  time.Now(),
			}
		}
		c.mu.Unlock()

		logger.Info("CATALOG", fmt.Sprintf("Loaded %d materials from %s/%s in %s",
			len(mats), path, category, took.Round(time.Millisecond)))
		if c.OnLoad != nil {
			c.OnLoad(path, category, stats, took)
		}
		return mats, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Material), nil
}

// Invalidate drops every cached entry; the next Materials call rereads the source.
// Loads already in flight still answer their callers but are not cached.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]*cacheEntry)
	c.gen++
}

// Len returns the number of cached categories.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

package store

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/project-remapper/internal/mapping"
)

// DefaultCacheCapacity is the number of mapping sets kept in memory.
const DefaultCacheCapacity = 64

// MinCacheCapacity is the smallest capacity the cache is built with. otter
// rejects every insert below roughly ten entries.
const MinCacheCapacity = 16

// Cache memoises Load by source identity. A FileSource whose file changes
// gets a new identity, so stale entries are never served; Invalidate frees
// them eagerly.
type Cache struct {
	sets otter.Cache[string, *mapping.MappingSet]

	mu     sync.Mutex
	byPath map[string]map[string]struct{} // absolute path -> cache keys
}

// NewCache creates a cache holding up to capacity sets. capacity <= 0 uses
// DefaultCacheCapacity; smaller positive values are raised to
// MinCacheCapacity.
func NewCache(capacity int) (*Cache, error) {
	switch {
	case capacity <= 0:
		capacity = DefaultCacheCapacity
	case capacity < MinCacheCapacity:
		capacity = MinCacheCapacity
	}
	sets, err := otter.MustBuilder[string, *mapping.MappingSet](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create mapping cache: %w", err)
	}
	return &Cache{sets: sets, byPath: make(map[string]map[string]struct{})}, nil
}

// Load returns the set for src, loading it on a miss.
func (c *Cache) Load(src Source) (*mapping.MappingSet, error) {
	return c.LoadWith(src, LoadOptions{})
}

// LoadWith is Load with an explicit namespace pair.
func (c *Cache) LoadWith(src Source, opts LoadOptions) (*mapping.MappingSet, error) {
	identity, err := src.Identity()
	if err != nil {
		return nil, err
	}
	key := identity + "|" + string(opts.From) + ">" + string(opts.To)

	if set, ok := c.sets.Get(key); ok {
		return set, nil
	}

	data, err := src.Open()
	if err != nil {
		return nil, err
	}
	set, err := LoadWith(data, opts)
	if err != nil {
		var formatErr *FormatError
		if errors.As(err, &formatErr) && formatErr.Source == "" {
			formatErr.Source = src.Name()
		}
		return nil, err
	}

	if !c.sets.Set(key, set) {
		log.Printf("Warning: mapping cache rejected %s\n", src.Name())
		return set, nil
	}
	if fs, ok := src.(FileSource); ok {
		c.track(fs.AbsPath(), key)
	}
	return set, nil
}

func (c *Cache) track(path, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, ok := c.byPath[path]
	if !ok {
		keys = make(map[string]struct{})
		c.byPath[path] = keys
	}
	keys[key] = struct{}{}
}

// Invalidate evicts every set loaded from path.
func (c *Cache) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	c.mu.Lock()
	keys := c.byPath[path]
	delete(c.byPath, path)
	c.mu.Unlock()

	for key := range keys {
		c.sets.Delete(key)
	}
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (hits, misses int64) {
	s := c.sets.Stats()
	return s.Hits(), s.Misses()
}

// Close releases the cache.
func (c *Cache) Close() {
	c.sets.Close()
}

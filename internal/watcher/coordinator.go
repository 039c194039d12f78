package watcher

import (
	"context"
	"log"
	"path/filepath"
	"sort"
)

// WatchCoordinator routes file changes to the mapping cache and the
// rebuilder. Changed mapping files are evicted from the cache before the
// rebuild so the rebuild sees their new content.
type WatchCoordinator struct {
	files     FileWatcher
	cache     Invalidator
	rebuilder Rebuilder
	mappings  map[string]bool // absolute paths of mapping files
}

// NewWatchCoordinator creates a new watch coordinator. mappingFiles lists
// the mapping files among the watched paths.
func NewWatchCoordinator(files FileWatcher, cache Invalidator, rebuilder Rebuilder, mappingFiles []string) *WatchCoordinator {
	mappings := make(map[string]bool, len(mappingFiles))
	for _, path := range mappingFiles {
		mappings[absPath(path)] = true
	}
	return &WatchCoordinator{
		files:     files,
		cache:     cache,
		rebuilder: rebuilder,
		mappings:  mappings,
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Start begins routing events. Blocks until context is cancelled.
func (c *WatchCoordinator) Start(ctx context.Context) error {
	if err := c.files.Start(ctx, func(files []string) { c.handleFileChange(ctx, files) }); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

func (c *WatchCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		log.Printf("Warning: file watcher stop failed: %v", err)
	}
}

// handleFileChange invalidates changed mappings and rebuilds. File events
// that arrive during the rebuild are held until it finishes.
func (c *WatchCoordinator) handleFileChange(ctx context.Context, files []string) {
	if len(files) == 0 || ctx.Err() != nil {
		return
	}
	sort.Strings(files)

	c.files.Pause()
	defer c.files.Resume()

	mappingsChanged := false
	for _, file := range files {
		abs := absPath(file)
		if c.mappings[abs] {
			mappingsChanged = true
		}
		c.cache.Invalidate(abs)
	}

	log.Printf("Processing %d file change(s)...", len(files))

	stats, err := c.rebuilder.Rebuild(ctx, files, mappingsChanged)
	if err != nil {
		log.Printf("Error: rebuild failed: %v", err)
		return
	}

	log.Printf("✓ Rebuilt %d artifact(s) (%d skipped, %d failed)", stats.Remapped, stats.Skipped, stats.Failed)
}

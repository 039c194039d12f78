package watcher

import "context"

// FileWatcher monitors mapping files and input jars for changes with
// debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Invalidator drops cached state derived from a file. store.Cache
// implements it.
type Invalidator interface {
	Invalidate(path string)
}

// Rebuilder re-runs the remap requests affected by changed files.
type Rebuilder interface {
	// Rebuild remaps again. changed lists the files that triggered it;
	// mappings reports whether any of them is a mapping file.
	Rebuild(ctx context.Context, changed []string, mappings bool) (*RebuildStats, error)
}

// RebuildStats summarises one rebuild.
type RebuildStats struct {
	Remapped int
	Skipped  int
	Failed   int
}

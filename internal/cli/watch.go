package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-remapper/internal/config"
	"github.com/mvp-joe/project-remapper/internal/pipeline"
	"github.com/mvp-joe/project-remapper/internal/watcher"
)

var watchDirection string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <input.jar>...",
	Short: "Remap jars again whenever they or the mappings change",
	Long: `Watch remaps the given jars once, then watches the project directory. A
changed input is remapped again; a changed mapping file or classpath jar
remaps every input. Outputs go to the default output location and are always
replaced.

Press Ctrl+C to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchDirection, "to", toRuntime, "target names: runtime or declared")
}

// watchRebuilder remaps a fixed set of inputs for the watch coordinator.
type watchRebuilder struct {
	proj      *project
	inputs    []string // absolute
	direction string
}

// targets returns the inputs affected by a change. A change to anything
// other than an input (mappings, classpath jars) affects all of them.
func (w *watchRebuilder) targets(changed []string, mappings bool) []string {
	if mappings {
		return w.inputs
	}
	var out []string
	for _, path := range changed {
		if !slices.Contains(w.inputs, absPath(path)) {
			return w.inputs
		}
		out = append(out, absPath(path))
	}
	return out
}

func (w *watchRebuilder) Rebuild(ctx context.Context, changed []string, mappings bool) (*watcher.RebuildStats, error) {
	res := w.proj.resolver()
	m, err := mappingView(res, w.direction)
	if err != nil {
		return nil, err
	}

	pl, err := w.proj.pipeline()
	if err != nil {
		return nil, err
	}
	defer pl.Close()

	stats := &watcher.RebuildStats{}
	for _, input := range w.targets(changed, mappings) {
		if _, err := os.Stat(input); errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: %s no longer exists, skipping\n", input)
			stats.Skipped++
			continue
		}

		_, err := w.proj.remap(ctx, pl, pipeline.Request{
			Input:     input,
			Output:    w.proj.defaultOutput(res.Identity(), input),
			Mapping:   m,
			Overwrite: true,
		}, res.Identity())
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			log.Printf("Warning: failed to remap %s: %v\n", input, err)
			stats.Failed++
			continue
		}
		stats.Remapped++
	}
	return stats, nil
}

// watchDirs returns the project root plus the directories of watched files
// that live outside it.
func watchDirs(root string, files []string) []string {
	dirs := []string{root}
	for _, f := range files {
		dir := filepath.Dir(f)
		if dir == root || strings.HasPrefix(dir, root+string(filepath.Separator)) || slices.Contains(dirs, dir) {
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	global, err := config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load global config: %w", err)
	}

	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	inputs := make([]string, 0, len(args))
	for _, arg := range args {
		inputs = append(inputs, absPath(arg))
	}
	rebuilder := &watchRebuilder{proj: proj, inputs: inputs, direction: watchDirection}

	// Initial build so outputs exist before the first change.
	stats, err := rebuilder.Rebuild(ctx, inputs, true)
	if err != nil {
		return err
	}
	log.Printf("✓ Remapped %d artifact(s) (%d skipped, %d failed)\n", stats.Remapped, stats.Skipped, stats.Failed)

	mappingFiles := proj.cfg.MappingPaths(proj.root)
	files, err := watcher.NewFileWatcher(
		watchDirs(proj.root, append(slices.Clone(mappingFiles), inputs...)),
		[]string{".jar", ".tiny", ".zip"},
		watcher.WithDebounce(global.Watch.Debounce()),
		watcher.WithIgnore(proj.cfg.OutputRoot(proj.root), global.Cache.BaseDir),
	)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	log.Println("Watching for changes (Ctrl+C to stop)...")
	coordinator := watcher.NewWatchCoordinator(files, proj.cache, rebuilder, mappingFiles)
	if err := coordinator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

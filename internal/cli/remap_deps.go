package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/project-remapper/internal/config"
	"github.com/mvp-joe/project-remapper/internal/coordinate"
	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/metadata"
	"github.com/mvp-joe/project-remapper/internal/pipeline"
	"github.com/mvp-joe/project-remapper/internal/resolver"
)

var (
	depsOutputRoot string
	depsOverwrite  bool
)

// remapDepsCmd represents the remap-deps command
var remapDepsCmd = &cobra.Command{
	Use:   "remap-deps <group:artifact:version=path.jar>...",
	Short: "Remap dependency jars into the shared dependency cache",
	Long: `Remap-deps remaps dependency jars to declared names. Each output lands at

  <root>/<group as path>/<artifact>-<version>/<mapping identity>/<artifact>-<version>.jar

and an existing output is reused, so the path doubles as a cache key. The root
defaults to the global cache directory (~/.remapper/cache).

A dependency whose quilt.mod.json or fabric.mod.json names a third-party
intermediate namespace is remapped through the matching mappings.via entry.

Examples:
  remapper remap-deps org.example:lib:1.2.0=libs/lib-1.2.0.jar
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemapDeps,
}

func init() {
	rootCmd.AddCommand(remapDepsCmd)
	remapDepsCmd.Flags().StringVar(&depsOutputRoot, "output-root", "", "output root (default is the global cache directory)")
	remapDepsCmd.Flags().BoolVar(&depsOverwrite, "overwrite", false, "replace existing outputs")
}

// dependency is one parsed remap-deps argument.
type dependency struct {
	coord coordinate.Coordinate
	path  string
}

func parseDependency(arg string) (dependency, error) {
	ref, path, ok := strings.Cut(arg, "=")
	if !ok || path == "" {
		return dependency{}, fmt.Errorf("dependency '%s' must be group:artifact:version=path.jar", arg)
	}
	coord, err := coordinate.Parse(ref)
	if err != nil {
		return dependency{}, err
	}
	return dependency{coord: coord, path: path}, nil
}

func runRemapDeps(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	deps := make([]dependency, 0, len(args))
	for _, arg := range args {
		dep, err := parseDependency(arg)
		if err != nil {
			return err
		}
		deps = append(deps, dep)
	}

	root := depsOutputRoot
	if root == "" {
		global, err := config.LoadGlobalConfig()
		if err != nil {
			return fmt.Errorf("failed to load global config: %w", err)
		}
		root = global.Cache.BaseDir
	}

	proj, err := loadProject()
	if err != nil {
		return err
	}
	defer proj.Close()

	pl, err := proj.pipeline()
	if err != nil {
		return err
	}
	defer pl.Close()

	failed := 0
	for _, dep := range deps {
		report, err := proj.remapDependency(ctx, pl, root, dep)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Error: %s: %v\n", dep.coord, err)
			failed++
			continue
		}
		printReport(report)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d dependencies failed to remap", failed, len(deps))
	}
	return nil
}

// remapDependency remaps one dependency into its coordinate path under root.
// An existing output is kept without opening the input or loading mappings.
func (p *project) remapDependency(ctx context.Context, pl *pipeline.Pipeline, root string, dep dependency) (*pipeline.Report, error) {
	res := p.resolver()
	req := pipeline.Request{
		Input:     dep.path,
		Output:    coordinate.OutputPath(root, dep.coord, res.Identity()),
		Overwrite: depsOverwrite || p.cfg.Remap.Overwrite,
	}

	if !req.Overwrite {
		if _, err := os.Stat(req.Output); err == nil {
			report := &pipeline.Report{Input: req.Input, Output: req.Output, Skipped: true}
			p.record(res.Identity(), time.Now(), req, report, nil)
			return report, nil
		}
	}

	m, err := dependencyMapping(res, dep.path)
	if err != nil {
		return nil, err
	}
	req.Mapping = m
	return p.remap(ctx, pl, req, res.Identity())
}

// dependencyMapping picks the via bridge named by the jar's mod metadata,
// or the merged runtime to declared mapping when there is none.
func dependencyMapping(res *resolver.Resolver, jarPath string) (*mapping.MappingSet, error) {
	via, err := metadata.ViaCoordinate(jarPath)
	if err != nil {
		return nil, err
	}
	if via != "" {
		return res.SourceVia(via)
	}
	return mappingView(res, toDeclared)
}

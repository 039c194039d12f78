package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mvp-joe/project-remapper/internal/config"
	"github.com/mvp-joe/project-remapper/internal/inheritance"
	"github.com/mvp-joe/project-remapper/internal/ledger"
	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/pipeline"
	"github.com/mvp-joe/project-remapper/internal/remap"
	"github.com/mvp-joe/project-remapper/internal/resolver"
	"github.com/mvp-joe/project-remapper/internal/store"
)

// Mapping directions accepted by --to.
const (
	toRuntime  = "runtime"  // declared names back to runtime names
	toDeclared = "declared" // runtime names to declared names
)

// project is the loaded configuration of one project directory plus the
// shared resources every command needs.
type project struct {
	root   string
	cfg    *config.Config
	inputs resolver.Inputs
	cache  *store.Cache
	ledger *ledger.Ledger // nil when the ledger is disabled
}

func loadProject() (*project, error) {
	root, err := rootDirectory()
	if err != nil {
		return nil, err
	}
	return openProject(root)
}

func openProject(root string) (*project, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	inputs, err := cfg.ToResolverInputs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping sources: %w", err)
	}

	cache, err := store.NewCache(cfg.Mappings.CacheCapacity)
	if err != nil {
		return nil, err
	}

	p := &project{root: root, cfg: cfg, inputs: inputs, cache: cache}
	if cfg.Ledger.Enabled {
		l, err := ledger.Open(cfg.LedgerPath(root))
		if err != nil {
			// History is best effort; remapping still works without it.
			log.Printf("Warning: run ledger unavailable: %v\n", err)
		} else {
			p.ledger = l
		}
	}
	return p, nil
}

func (p *project) Close() {
	if p.ledger != nil {
		if err := p.ledger.Close(); err != nil {
			log.Printf("Warning: failed to close run ledger: %v\n", err)
		}
	}
	p.cache.Close()
}

// resolver builds a resolver over the configured mapping files. Resolvers
// are immutable, so a new one is needed after a mapping file changes.
func (p *project) resolver() *resolver.Resolver {
	opts := append(p.cfg.ToResolverOptions(), resolver.WithCache(p.cache))
	return resolver.New(p.inputs, opts...)
}

// pipeline builds a pipeline from the remap settings, the project classpath
// and the configured class overrides.
func (p *project) pipeline(extra ...pipeline.Option) (*pipeline.Pipeline, error) {
	policy, err := pipeline.ParseFailurePolicy(p.cfg.Remap.FailurePolicy)
	if err != nil {
		return nil, err
	}
	classpath, err := pipeline.DiscoverClasspath(p.root, p.cfg.Classpath)
	if err != nil {
		return nil, fmt.Errorf("failed to discover classpath: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithParallelism(p.cfg.Remap.Parallelism),
		pipeline.WithFailurePolicy(policy),
		pipeline.WithClasspath(classpath...),
		pipeline.WithProgress(reporter()),
	}
	if overrides := p.cfg.ClassOverrideMap(); overrides != nil {
		stage := remap.NewClassOverrideStage(overrides)
		opts = append(opts, pipeline.WithStages(func(*inheritance.Context) remap.Stage { return stage }))
	}
	return pipeline.New(append(opts, extra...)...)
}

// remap runs one request and records it in the ledger.
func (p *project) remap(ctx context.Context, pl *pipeline.Pipeline, req pipeline.Request, identity string) (*pipeline.Report, error) {
	started := time.Now()
	report, err := pl.Remap(ctx, req)
	p.record(identity, started, req, report, err)
	return report, err
}

func (p *project) record(identity string, started time.Time, req pipeline.Request, report *pipeline.Report, runErr error) {
	if p.ledger == nil {
		return
	}
	run := &ledger.Run{
		Input:     absPath(req.Input),
		Output:    absPath(req.Output),
		Mapping:   identity,
		Duration:  time.Since(started),
		Status:    ledger.StatusSucceeded,
		StartedAt: started,
	}
	switch {
	case runErr != nil:
		run.Status = ledger.StatusFailed
		run.Error = runErr.Error()
	case report != nil && report.Skipped:
		run.Status = ledger.StatusSkipped
	}
	if report != nil {
		run.Entries = report.Entries
		run.Classes = report.Classes
		run.ClassesChanged = report.ClassesChanged
		run.Resources = report.Resources
	}
	if err := p.ledger.Record(run); err != nil {
		log.Printf("Warning: %v\n", err)
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// defaultOutput places input under the output root, grouped by mapping
// identity: <output root>/<identity>/<input file name>.
func (p *project) defaultOutput(identity, input string) string {
	if identity == "" {
		identity = "unnamed"
	}
	return filepath.Join(p.cfg.OutputRoot(p.root), identity, filepath.Base(input))
}

// mappingView selects the mapping set for a --to direction.
func mappingView(r *resolver.Resolver, direction string) (*mapping.MappingSet, error) {
	switch strings.ToLower(direction) {
	case toRuntime, "":
		return r.Target()
	case toDeclared:
		merged, ok, err := r.Merged()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &resolver.MissingMappingError{Role: resolver.RoleDeclared}
		}
		return merged, nil
	default:
		return nil, fmt.Errorf("unknown direction '%s': must be '%s' or '%s'", direction, toRuntime, toDeclared)
	}
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nInterrupted! Cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

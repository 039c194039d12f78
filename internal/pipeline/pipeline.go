// Package pipeline streams every entry of a jar through the class
// transformation stages, writes the output container and verifies it.
//
// A run moves through four phases: Opened (input and classpath open,
// inheritance context built), Transformed (all entries processed on the
// worker pool), Written (output written sequentially) and Verified.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mvp-joe/project-remapper/internal/inheritance"
	"github.com/mvp-joe/project-remapper/internal/jar"
	"github.com/mvp-joe/project-remapper/internal/remap"
	"github.com/mvp-joe/project-remapper/internal/workerpool"
)

// FailurePolicy decides what happens when an entry fails to transform.
type FailurePolicy int

const (
	// FailFast stops at the first failure and returns it.
	FailFast FailurePolicy = iota
	// CollectAll processes every entry and returns a BatchError.
	CollectAll
)

func (f FailurePolicy) String() string {
	if f == CollectAll {
		return "collect_all"
	}
	return "fail_fast"
}

// ParseFailurePolicy parses "fail_fast" or "collect_all".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(s) {
	case "", "fail_fast":
		return FailFast, nil
	case "collect_all":
		return CollectAll, nil
	default:
		return FailFast, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// StageFactory builds a stage for one run, bound to the run's inheritance
// context.
type StageFactory func(ctx *inheritance.Context) remap.Stage

// ResourceTransformer rewrites a non-class entry, possibly renaming it.
type ResourceTransformer func(name string, data []byte) (newName string, newData []byte, err error)

type resourceRule struct {
	pattern compiledPattern
	fn      ResourceTransformer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPool runs tasks on a caller-owned pool, which Close leaves open.
func WithPool(pool *workerpool.Pool) Option {
	return func(p *Pipeline) { p.pool = pool }
}

// WithParallelism sizes the pool the pipeline creates when none is given.
// n <= 0 means one worker per CPU.
func WithParallelism(n int) Option {
	return func(p *Pipeline) { p.parallelism = n }
}

// WithClasspath adds jars consulted for supertypes only.
func WithClasspath(paths ...string) Option {
	return func(p *Pipeline) { p.classpath = append(p.classpath, paths...) }
}

// WithStages appends class transformation stages, applied in order.
func WithStages(factories ...StageFactory) Option {
	return func(p *Pipeline) { p.stages = append(p.stages, factories...) }
}

// WithResourceTransformer rewrites non-class entries whose name matches a
// glob pattern ("**" crosses directories).
func WithResourceTransformer(pattern string, fn ResourceTransformer) Option {
	return func(p *Pipeline) {
		cp, err := compilePattern(pattern)
		if err != nil {
			p.err = fmt.Errorf("invalid resource pattern %q: %w", pattern, err)
			return
		}
		p.resources = append(p.resources, resourceRule{pattern: cp, fn: fn})
	}
}

// WithFailurePolicy selects FailFast (default) or CollectAll.
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(p *Pipeline) { p.policy = policy }
}

// WithProgress reports run progress.
func WithProgress(progress ProgressReporter) Option {
	return func(p *Pipeline) { p.progress = progress }
}

// Pipeline transforms jars. It may run several jars, one after another or
// concurrently; each run gets its own inheritance context.
type Pipeline struct {
	pool        *workerpool.Pool
	ownsPool    bool
	parallelism int
	classpath   []string
	stages      []StageFactory
	resources   []resourceRule
	policy      FailurePolicy
	progress    ProgressReporter
	err         error
}

// New builds a pipeline.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{progress: NoOpProgressReporter{}}
	for _, opt := range opts {
		opt(p)
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.pool == nil {
		p.pool = workerpool.New(p.parallelism)
		p.ownsPool = true
	}
	return p, nil
}

// Close releases the pool if the pipeline created it.
func (p *Pipeline) Close() {
	if p.ownsPool {
		p.pool.Close()
	}
}

// Report summarises one run.
type Report struct {
	Input            string
	Output           string
	Skipped          bool // output existed and overwrite was off
	Entries          int
	Classes          int
	ClassesChanged   int
	Resources        int
	ResourcesChanged int
	Dropped          []string
	ClasspathErrors  []*ClasspathResolutionError
	UnreadableTypes  int // classes the inheritance context could not read
	Duration         time.Duration
}

// result is one entry on its way from input to output.
type result struct {
	input    jar.Entry
	name     string
	data     []byte
	class    bool
	modified bool
	drop     bool
}

func (r *result) changed() bool {
	return r.modified || r.name != r.input.Name
}

// Run transforms input with the configured stages and writes output. On any
// failure output is removed.
func (p *Pipeline) Run(ctx context.Context, input, output string) (*Report, error) {
	return p.run(ctx, input, output, nil)
}

func (p *Pipeline) run(ctx context.Context, input, output string, first []StageFactory) (*Report, error) {
	start := time.Now()
	report := &Report{Input: input, Output: output}

	// Opened
	phaseStart := time.Now()
	in, err := jar.Open(input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	providers := []inheritance.ClassProvider{in}
	for _, path := range p.classpath {
		cp, err := jar.Open(path)
		if err != nil {
			cre := &ClasspathResolutionError{Path: path, Err: err}
			report.ClasspathErrors = append(report.ClasspathErrors, cre)
			log.Printf("Warning: %v\n", cre)
			continue
		}
		defer cp.Close()
		providers = append(providers, cp)
	}
	hierarchy := inheritance.New(providers...)

	var stages []remap.Stage
	for _, factory := range slices.Concat(first, p.stages) {
		stages = append(stages, factory(hierarchy))
	}

	entries := in.Entries()
	report.Entries = len(entries)
	p.progress.OnOpened(input, len(entries))
	log.Printf("[TIMING] Open: %v (%d entries, %d classpath jars)\n", time.Since(phaseStart), len(entries), len(providers)-1)

	// Transformed
	phaseStart = time.Now()
	results, err := p.transform(ctx, in, entries, stages)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		switch {
		case r.class:
			report.Classes++
			if r.changed() {
				report.ClassesChanged++
			}
		case !r.input.IsDir():
			report.Resources++
			if r.changed() {
				report.ResourcesChanged++
			}
		}
	}
	report.Dropped = fixMetaInf(results, classRenamer(stages))
	report.UnreadableTypes = len(hierarchy.Failures())
	log.Printf("[TIMING] Transform: %v (%d classes, %d changed)\n", time.Since(phaseStart), report.Classes, report.ClassesChanged)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Written
	phaseStart = time.Now()
	written, err := write(output, results)
	if err != nil {
		_ = os.Remove(output)
		return nil, err
	}
	p.progress.OnWritten(output, written)
	log.Printf("[TIMING] Write: %v (%d entries)\n", time.Since(phaseStart), written)

	// Verified
	phaseStart = time.Now()
	if err := jar.Verify(input, output); err != nil {
		_ = os.Remove(output)
		return nil, err
	}
	p.progress.OnVerified(output)
	log.Printf("[TIMING] Verify: %v\n", time.Since(phaseStart))

	report.Duration = time.Since(start)
	return report, nil
}

// transform processes every non-directory entry on the pool. Results keep
// input order.
func (p *Pipeline) transform(ctx context.Context, in *jar.File, entries []jar.Entry, stages []remap.Stage) ([]*result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		failures  []error
		submitErr error
	)
	fail := func(err error) {
		mu.Lock()
		failures = append(failures, err)
		mu.Unlock()
		if p.policy == FailFast {
			cancel()
		}
	}

	results := make([]*result, len(entries))
	for i, e := range entries {
		r := &result{input: e, name: e.Name}
		results[i] = r
		if e.IsDir() {
			p.progress.OnEntryProcessed(e.Name)
			continue
		}

		wg.Add(1)
		err := p.pool.Submit(runCtx, func() {
			defer wg.Done()
			if runCtx.Err() != nil {
				return
			}
			if err := p.process(in, r, stages); err != nil {
				fail(err)
				return
			}
			p.progress.OnEntryProcessed(r.name)
		})
		if err != nil {
			wg.Done()
			// A FailFast cancellation already recorded its cause.
			if runCtx.Err() == nil {
				submitErr = fmt.Errorf("failed to schedule %s: %w", e.Name, err)
			}
			break
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if submitErr != nil {
		return nil, submitErr
	}
	if len(failures) > 0 {
		if p.policy == FailFast {
			return nil, failures[0]
		}
		sort.Slice(failures, func(i, j int) bool { return failures[i].Error() < failures[j].Error() })
		return nil, &BatchError{Failures: failures}
	}
	return results, nil
}

func (p *Pipeline) process(in *jar.File, r *result, stages []remap.Stage) error {
	data, err := in.Read(r.input.Name)
	if err != nil {
		return err
	}
	r.data = data

	if r.input.IsClass() {
		r.class = true
		entry := remap.ClassEntry{Name: r.name, Data: data}
		for _, s := range stages {
			if entry, err = s.TransformClass(entry); err != nil {
				return err
			}
		}
		r.name, r.data = entry.Name, entry.Data
		r.modified = !bytes.Equal(entry.Data, data)
		return nil
	}

	for _, rule := range p.resources {
		if !rule.pattern.match(r.name) {
			continue
		}
		name, out, err := rule.fn(r.name, r.data)
		if err != nil {
			return fmt.Errorf("failed to transform resource %s: %w", r.input.Name, err)
		}
		r.modified = r.modified || !bytes.Equal(out, r.data)
		r.name, r.data = name, out
	}
	return nil
}

// classRenamer chains the class renames of every stage that has them.
func classRenamer(stages []remap.Stage) func(string) string {
	return func(name string) string {
		for _, s := range stages {
			if cr, ok := s.(remap.ClassRenamer); ok {
				name = cr.MapClassName(name)
			}
		}
		return name
	}
}

// write stores results with META-INF/ and the manifest first, then the
// remaining entries in input order.
func write(output string, results []*result) (int, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	rank := func(r *result) int {
		switch r.name {
		case "META-INF/":
			return 0
		case jar.ManifestName:
			return 1
		default:
			return 2
		}
	}
	ordered := slices.Clone(results)
	sort.SliceStable(ordered, func(i, j int) bool { return rank(ordered[i]) < rank(ordered[j]) })

	w := jar.NewWriter(f)
	for _, r := range ordered {
		if r.drop {
			continue
		}
		if err := w.Write(r.name, r.data, r.input.Modified); err != nil {
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", output, err)
	}
	return w.Count(), nil
}

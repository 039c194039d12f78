package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-remapper/internal/classfile"
	"github.com/mvp-joe/project-remapper/internal/classfile/classtest"
	"github.com/mvp-joe/project-remapper/internal/inheritance"
	"github.com/mvp-joe/project-remapper/internal/jar"
	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/remap"
	"github.com/mvp-joe/project-remapper/internal/workerpool"
)

// Test Plan for Pipeline:
// - Remap renames classes and entries end to end and the output verifies
// - Main-Class, manifest sections, digests and service files follow renames
// - Signature files are dropped once entries change
// - Resources are copied unchanged unless a transformer matches them
// - An existing output is skipped unless Overwrite is set
// - A failed run leaves neither the output nor its temporary file behind
// - FailFast returns the first failure; CollectAll returns a BatchError
// - A missing classpath jar is reported and the run continues
// - Classpath supertypes drive inherited renames
// - Cancellation stops the run
// - A closed worker pool fails the run without output
// - Progress callbacks fire for each phase
// - ParseFailurePolicy and DiscoverClasspath

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type file struct {
	name string
	data []byte
}

func writeJar(t *testing.T, path string, files ...file) {
	t.Helper()
	var buf bytes.Buffer
	w := jar.NewWriter(&buf)
	for _, f := range files {
		require.NoError(t, w.Write(f.name, f.data, epoch))
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func readJar(t *testing.T, path string) map[string][]byte {
	t.Helper()
	f, err := jar.Open(path)
	require.NoError(t, err)
	defer f.Close()

	out := make(map[string][]byte)
	for _, e := range f.Entries() {
		data, err := f.Read(e.Name)
		require.NoError(t, err)
		out[e.Name] = data
	}
	return out
}

func widgetClass() []byte {
	c := classtest.New("a", "java/lang/Object")
	c.Method(classfile.AccPublic, "m", "()V", c.Code(1, 1, []byte{classtest.OpReturn}))
	return c.Bytes()
}

func callerClass() []byte {
	c := classtest.New("b", "java/lang/Object")
	code := classtest.Concat(
		[]byte{classtest.OpAload0},
		c.Invoke(classtest.OpInvokeVirtual, "a", "m", "()V"),
		[]byte{classtest.OpReturn},
	)
	c.Method(classfile.AccPublic, "call", "(La;)V", c.Code(1, 2, code))
	return c.Bytes()
}

func widgetMapping() *mapping.MappingSet {
	b := mapping.NewBuilder("obf", "named")
	b.Class("a", "com/example/Widget").Method("m", "()V", "run")
	return b.Build()
}

func sampleJar(t *testing.T, dir string) string {
	t.Helper()
	widget := widgetClass()
	digest, ok := jar.Digest("SHA-256", widget)
	require.True(t, ok)

	manifest := "Manifest-Version: 1.0\r\nMain-Class: a\r\n\r\nName: a.class\r\nSHA-256-Digest: " + digest + "\r\n\r\n"
	path := filepath.Join(dir, "input.jar")
	writeJar(t, path,
		file{"META-INF/", nil},
		file{jar.ManifestName, []byte(manifest)},
		file{"META-INF/SIGNER.SF", []byte("Signature-Version: 1.0\r\n")},
		file{"META-INF/services/a", []byte("# providers\na\nb # caller\n")},
		file{"a.class", widget},
		file{"b.class", callerClass()},
		file{"readme.txt", []byte("hello")},
	)
	return path
}

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(append([]Option{WithParallelism(2)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestRemap_EndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	output := filepath.Join(dir, "out", "output.jar")

	p := newPipeline(t)
	report, err := p.Remap(context.Background(), Request{Input: input, Output: output, Mapping: widgetMapping()})
	require.NoError(t, err)
	require.NoError(t, jar.Verify(input, output))

	assert.Equal(t, output, report.Output)
	assert.False(t, report.Skipped)
	assert.Equal(t, 7, report.Entries)
	assert.Equal(t, 2, report.Classes)
	assert.Equal(t, 2, report.ClassesChanged)
	assert.Equal(t, []string{"META-INF/SIGNER.SF"}, report.Dropped)

	out := readJar(t, output)
	assert.NotContains(t, out, "a.class")
	assert.NotContains(t, out, "META-INF/SIGNER.SF")
	require.Contains(t, out, "com/example/Widget.class")
	assert.Equal(t, []byte("hello"), out["readme.txt"])

	cf, err := classfile.Parse(out["com/example/Widget.class"])
	require.NoError(t, err)
	name, err := cf.Pool.ClassName(cf.This)
	require.NoError(t, err)
	assert.Equal(t, "com/example/Widget", name)

	m, err := jar.ParseManifest(out[jar.ManifestName])
	require.NoError(t, err)
	mainClass, ok := m.MainClass()
	require.True(t, ok)
	assert.Equal(t, "com/example/Widget", mainClass)
	_, ok = m.Section("com/example/Widget.class")
	assert.True(t, ok, "manifest section follows the renamed entry")

	assert.Equal(t, "# providers\ncom.example.Widget\nb # caller\n", string(out["META-INF/services/com.example.Widget"]))

	// No temporary file is left next to the output.
	entries, err := os.ReadDir(filepath.Dir(output))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRemap_ManifestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	output := filepath.Join(dir, "output.jar")

	_, err := newPipeline(t).Remap(context.Background(), Request{Input: input, Output: output, Mapping: widgetMapping()})
	require.NoError(t, err)

	f, err := jar.Open(output)
	require.NoError(t, err)
	defer f.Close()
	entries := f.Entries()
	require.GreaterOrEqual(t, len(entries), 2)
	assert.Equal(t, "META-INF/", entries[0].Name)
	assert.Equal(t, jar.ManifestName, entries[1].Name)
}

func TestRemap_SkipsExistingOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "output.jar")
	require.NoError(t, os.WriteFile(output, []byte("existing"), 0o644))

	// The input does not exist: a skipped request must not read it.
	report, err := newPipeline(t).Remap(context.Background(), Request{
		Input:   filepath.Join(dir, "missing.jar"),
		Output:  output,
		Mapping: widgetMapping(),
	})
	require.NoError(t, err)
	assert.True(t, report.Skipped)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))
}

func TestRemap_OverwriteReplacesOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	output := filepath.Join(dir, "output.jar")
	require.NoError(t, os.WriteFile(output, []byte("existing"), 0o644))

	report, err := newPipeline(t).Remap(context.Background(), Request{
		Input: input, Output: output, Mapping: widgetMapping(), Overwrite: true,
	})
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Contains(t, readJar(t, output), "com/example/Widget.class")
}

func TestRemap_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	first := filepath.Join(dir, "first.jar")
	second := filepath.Join(dir, "second.jar")

	p := newPipeline(t)
	_, err := p.Remap(context.Background(), Request{Input: input, Output: first, Mapping: widgetMapping()})
	require.NoError(t, err)
	_, err = p.Remap(context.Background(), Request{Input: input, Output: second, Mapping: widgetMapping()})
	require.NoError(t, err)

	assert.Equal(t, readJar(t, first), readJar(t, second))
}

func TestRemap_NoMapping(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := newPipeline(t).Remap(context.Background(), Request{Input: sampleJar(t, dir), Output: filepath.Join(dir, "o.jar")})
	assert.ErrorIs(t, err, ErrNoMapping)
}

func TestRemap_FailureLeavesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.jar")
	writeJar(t, input,
		file{"a.class", widgetClass()},
		file{"bad.class", []byte{0xca, 0xfe, 0xba, 0xbe, 0x00}},
	)
	outDir := filepath.Join(dir, "out")
	output := filepath.Join(outDir, "output.jar")

	_, err := newPipeline(t).Remap(context.Background(), Request{Input: input, Output: output, Mapping: widgetMapping()})
	require.Error(t, err)

	var te *remap.TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "bad.class", te.Entry)
	assert.ErrorIs(t, err, classfile.ErrMalformed)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "neither output nor temporary file may remain")
}

func TestRun_CollectAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.jar")
	writeJar(t, input,
		file{"a.class", widgetClass()},
		file{"bad1.class", []byte("nope")},
		file{"bad2.class", []byte("still nope")},
	)

	p := newPipeline(t,
		WithFailurePolicy(CollectAll),
		WithStages(MappingStage(widgetMapping())),
	)
	_, err := p.Run(context.Background(), input, filepath.Join(dir, "output.jar"))
	require.Error(t, err)

	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failures, 2)
	assert.Contains(t, batch.Failures[0].Error(), "bad1.class")
	assert.Contains(t, batch.Failures[1].Error(), "bad2.class")
	assert.ErrorIs(t, err, classfile.ErrMalformed)

	_, statErr := os.Stat(filepath.Join(dir, "output.jar"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_FailFast(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.jar")
	writeJar(t, input,
		file{"bad1.class", []byte("nope")},
		file{"bad2.class", []byte("still nope")},
	)

	p := newPipeline(t, WithStages(MappingStage(widgetMapping())))
	_, err := p.Run(context.Background(), input, filepath.Join(dir, "output.jar"))
	require.Error(t, err)

	var batch *BatchError
	assert.False(t, errors.As(err, &batch))
	var te *remap.TransformError
	assert.ErrorAs(t, err, &te)
}

func TestRun_ClasspathErrorIsReported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	missing := filepath.Join(dir, "missing.jar")

	p := newPipeline(t,
		WithClasspath(missing),
		WithStages(MappingStage(widgetMapping())),
	)
	report, err := p.Run(context.Background(), input, filepath.Join(dir, "output.jar"))
	require.NoError(t, err)
	require.Len(t, report.ClasspathErrors, 1)
	assert.Equal(t, missing, report.ClasspathErrors[0].Path)
}

func TestRun_ClasspathSupertypes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// The library declares a.m; the input only overrides it in its subclass.
	lib := filepath.Join(dir, "lib.jar")
	writeJar(t, lib, file{"a.class", widgetClass()})

	sub := classtest.New("s", "a")
	sub.Method(classfile.AccPublic, "m", "()V", sub.Code(1, 1, []byte{classtest.OpReturn}))
	input := filepath.Join(dir, "input.jar")
	writeJar(t, input, file{"s.class", sub.Bytes()})

	output := filepath.Join(dir, "output.jar")
	p := newPipeline(t, WithClasspath(lib), WithStages(MappingStage(widgetMapping())))
	_, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)

	cf, err := classfile.Parse(readJar(t, output)["s.class"])
	require.NoError(t, err)
	require.Len(t, cf.Methods, 1)
	name, err := cf.Pool.Utf8(cf.Methods[0].Name)
	require.NoError(t, err)
	assert.Equal(t, "run", name)
	super, err := cf.Pool.ClassName(cf.Super)
	require.NoError(t, err)
	assert.Equal(t, "com/example/Widget", super)
}

func TestRun_ResourceTransformer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.jar")
	writeJar(t, input,
		file{"Main.java", []byte("class Main {}")},
		file{"src/Other.java", []byte("class Other {}")},
		file{"notes.txt", []byte("class Main {}")},
	)

	upper := func(name string, data []byte) (string, []byte, error) {
		return name, bytes.ToUpper(data), nil
	}
	p := newPipeline(t, WithResourceTransformer("**/*.java", upper))
	output := filepath.Join(dir, "output.jar")
	report, err := p.Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Resources)
	assert.Equal(t, 2, report.ResourcesChanged)

	out := readJar(t, output)
	assert.Equal(t, "CLASS MAIN {}", string(out["Main.java"]))
	assert.Equal(t, "CLASS OTHER {}", string(out["src/Other.java"]))
	assert.Equal(t, "class Main {}", string(out["notes.txt"]))
}

func TestRun_ResourceTransformerError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.jar")
	writeJar(t, input, file{"Main.java", []byte("class Main {}")})

	boom := errors.New("boom")
	p := newPipeline(t, WithResourceTransformer("**.java", func(string, []byte) (string, []byte, error) {
		return "", nil, boom
	}))
	_, err := p.Run(context.Background(), input, filepath.Join(dir, "output.jar"))
	assert.ErrorIs(t, err, boom)
}

func TestNew_InvalidResourcePattern(t *testing.T) {
	t.Parallel()

	_, err := New(WithResourceTransformer("[", func(n string, d []byte) (string, []byte, error) { return n, d, nil }))
	assert.Error(t, err)
}

func TestRun_UnchangedJarKeepsSignatures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "input.jar")
	writeJar(t, input,
		file{"META-INF/SIGNER.SF", []byte("Signature-Version: 1.0\r\n")},
		file{"x.class", classtest.New("x", "java/lang/Object").Bytes()},
	)

	output := filepath.Join(dir, "output.jar")
	report, err := newPipeline(t, WithStages(MappingStage(widgetMapping()))).Run(context.Background(), input, output)
	require.NoError(t, err)
	assert.Empty(t, report.Dropped)
	assert.Zero(t, report.ClassesChanged)
	assert.Equal(t, readJar(t, input), readJar(t, output))
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	output := filepath.Join(dir, "output.jar")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(t, WithStages(MappingStage(widgetMapping()))).Run(ctx, input, output)
	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_SharedPoolSurvivesClose(t *testing.T) {
	t.Parallel()

	pool := workerpool.New(2)
	defer pool.Close()

	p, err := New(WithPool(pool))
	require.NoError(t, err)
	p.Close()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { close(done) }))
	<-done
}

func TestRemap_ClosedPoolFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	outDir := filepath.Join(dir, "out")
	output := filepath.Join(outDir, "output.jar")

	pool := workerpool.New(2)
	pool.Close()

	p, err := New(WithPool(pool))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Remap(context.Background(), Request{Input: input, Output: output, Mapping: widgetMapping()})
	require.Error(t, err)
	assert.ErrorIs(t, err, workerpool.ErrClosed)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "neither output nor temporary file may remain")
}

func TestRun_ExtraStagesApplyInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)
	output := filepath.Join(dir, "output.jar")

	overrides := func(*inheritance.Context) remap.Stage {
		return remap.NewClassOverrideStage(map[string]string{"com/example/Widget": "com/example/Gizmo"})
	}
	p := newPipeline(t, WithStages(overrides))
	_, err := p.Remap(context.Background(), Request{Input: input, Output: output, Mapping: widgetMapping()})
	require.NoError(t, err)

	out := readJar(t, output)
	assert.Contains(t, out, "com/example/Gizmo.class")
	assert.Contains(t, out, "META-INF/services/com.example.Gizmo")
}

type recordingProgress struct {
	opened, processed, written, verified atomic.Int32
}

func (r *recordingProgress) OnOpened(string, int)    { r.opened.Add(1) }
func (r *recordingProgress) OnEntryProcessed(string) { r.processed.Add(1) }
func (r *recordingProgress) OnWritten(string, int)   { r.written.Add(1) }
func (r *recordingProgress) OnVerified(string)       { r.verified.Add(1) }

func TestRun_Progress(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := sampleJar(t, dir)

	progress := &recordingProgress{}
	p := newPipeline(t, WithProgress(progress), WithStages(MappingStage(widgetMapping())))
	_, err := p.Run(context.Background(), input, filepath.Join(dir, "output.jar"))
	require.NoError(t, err)

	assert.EqualValues(t, 1, progress.opened.Load())
	assert.EqualValues(t, 7, progress.processed.Load())
	assert.EqualValues(t, 1, progress.written.Load())
	assert.EqualValues(t, 1, progress.verified.Load())
}

func TestParseFailurePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected FailurePolicy
		wantErr  bool
	}{
		{"", FailFast, false},
		{"fail_fast", FailFast, false},
		{"COLLECT_ALL", CollectAll, false},
		{"sometimes", FailFast, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseFailurePolicy(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
	assert.Equal(t, "collect_all", CollectAll.String())
}

func TestDiscoverClasspath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, name := range []string{"libs/a.jar", "libs/nested/b.jar", "top.jar", "libs/readme.txt"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	paths, err := DiscoverClasspath(root, []string{"**/*.jar", "extra/missing.jar"})
	require.NoError(t, err)

	var rel []string
	for _, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.ElementsMatch(t, []string{"extra/missing.jar", "libs/a.jar", "libs/nested/b.jar", "top.jar"}, rel)

	_, err = DiscoverClasspath(root, []string{"[bad"})
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(paths[0], root))
}

package jar

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Jar containers:
// - Writer rejects duplicate names and a manifest after file entries
// - Open lists entries in order and reads them back
// - ClassBytes serves classes by internal name
// - ParseManifest handles continuations, sections and CRLF; rejects bad lines
// - Manifest.Bytes wraps long lines and parses back to the same manifest
// - Digest supports the common algorithms
// - Verify accepts a faithful output
// - Verify rejects duplicate entries, CRC failures, dangling Main-Class,
//   dangling sections that resolved in the input and digest mismatches
// - Verify tolerates references that were already dangling in the input

type file struct {
	name string
	data string
}

var epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func writeJar(t *testing.T, path string, files ...file) {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, f := range files {
		require.NoError(t, w.Write(f.name, []byte(f.data), epoch))
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write("META-INF/", nil, epoch))
	require.NoError(t, w.Write(ManifestName, []byte("Manifest-Version: 1.0\r\n\r\n"), epoch))
	require.NoError(t, w.Write("a.class", []byte{1}, epoch))

	err := w.Write("a.class", []byte{2}, epoch)
	assert.True(t, errors.Is(err, ErrDuplicateEntry))
	assert.Equal(t, 3, w.Count())
	require.NoError(t, w.Close())

	var late bytes.Buffer
	w = NewWriter(&late)
	require.NoError(t, w.Write("a.class", []byte{1}, epoch))
	assert.Error(t, w.Write(ManifestName, []byte("Manifest-Version: 1.0\r\n"), epoch))
}

func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "in.jar")
	writeJar(t, path,
		file{ManifestName, "Manifest-Version: 1.0\r\nMain-Class: com.example.Main\r\n\r\n"},
		file{"com/example/Main.class", "class-bytes"},
		file{"assets/readme.txt", "hello"},
	)

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	var names []string
	for _, e := range f.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{ManifestName, "com/example/Main.class", "assets/readme.txt"}, names)
	assert.True(t, f.Entries()[1].IsClass())

	data, err := f.Read("assets/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = f.Read("missing")
	assert.True(t, errors.Is(err, ErrEntryNotFound))

	data, ok, err := f.ClassBytes("com/example/Main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "class-bytes", string(data))

	_, ok, err = f.ClassBytes("com/example/Missing")
	require.NoError(t, err)
	assert.False(t, ok)

	m, err := f.Manifest()
	require.NoError(t, err)
	main, ok := m.MainClass()
	require.True(t, ok)
	assert.Equal(t, "com/example/Main", main)
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	m, err := ParseManifest([]byte("Manifest-Version: 1.0\r\nClass-Path: lib/a.jar\r\n  lib/b.jar\r\n\r\n\r\nName: a.class\r\nSHA-256-Digest: abc=\r\n\r\nName: b.class\r\nmd5-digest: def\r\n"))
	require.NoError(t, err)

	cp, ok := m.Main.Get("class-path")
	require.True(t, ok)
	assert.Equal(t, "lib/a.jar lib/b.jar", cp)

	require.Len(t, m.Sections, 2)
	s, ok := m.Section("b.class")
	require.True(t, ok)
	assert.Equal(t, []Attribute{{Key: "md5", Value: "def"}}, s.Digests())

	for _, bad := range []string{" leading continuation\n", "NoColon\n", "Manifest-Version: 1.0\n\nSHA-256-Digest: x\n"} {
		_, err := ParseManifest([]byte(bad))
		assert.True(t, errors.Is(err, ErrManifest), "input %q", bad)
	}
}

func TestManifestBytes(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 200)
	m := &Manifest{}
	m.Main.Set("Manifest-Version", "1.0")
	m.Main.Set("Long-Value", long)
	m.Sections = append(m.Sections, &Section{Attributes: []Attribute{{Key: "Name", Value: "a.class"}}})

	data := m.Bytes()
	for _, line := range strings.Split(string(data), "\r\n") {
		assert.LessOrEqual(t, len(line), 72)
	}

	parsed, err := ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, m, parsed)

	m.Main.Set("manifest-version", "2.0")
	v, _ := m.Main.Get("Manifest-Version")
	assert.Equal(t, "2.0", v)
}

func TestDigest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		algorithm string
		expected  string
	}{
		{"SHA-256", "LPJNul+wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ="},
		{"SHA1", "qvTGHdzF6KLavt4PO0gs2a6pQ00="},
		{"sha-1", "qvTGHdzF6KLavt4PO0gs2a6pQ00="},
		{"MD5", "XUFAKrxLKna5cZ2REBfFkg=="},
	}
	for _, tt := range tests {
		got, ok := Digest(tt.algorithm, []byte("hello"))
		require.True(t, ok, tt.algorithm)
		assert.Equal(t, tt.expected, got, tt.algorithm)
	}

	_, ok := Digest("CRC32", []byte("hello"))
	assert.False(t, ok)
}

func manifestWith(mainClass string, sections ...string) string {
	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\n")
	if mainClass != "" {
		b.WriteString("Main-Class: " + mainClass + "\r\n")
	}
	b.WriteString("\r\n")
	for _, s := range sections {
		b.WriteString(s)
		b.WriteString("\r\n")
	}
	return b.String()
}

func TestVerify(t *testing.T) {
	t.Parallel()

	helloDigest, _ := Digest("SHA-256", []byte("hello"))
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jar")
	writeJar(t, input,
		file{ManifestName, manifestWith("a", "Name: a.class\r\n", "Name: gone.class\r\n")},
		file{"a.class", "hello"},
	)

	tests := []struct {
		name     string
		files    []file
		problems []string
	}{
		{
			name: "faithful output",
			files: []file{
				{ManifestName, manifestWith("com.example.Widget", "Name: com/example/Widget.class\r\nSHA-256-Digest: " + helloDigest + "\r\n", "Name: gone.class\r\n")},
				{"com/example/Widget.class", "hello"},
			},
		},
		{
			name: "dangling main class",
			files: []file{
				{ManifestName, manifestWith("a")},
				{"com/example/Widget.class", "hello"},
			},
			problems: []string{"Main-Class a does not resolve"},
		},
		{
			name: "dangling section",
			files: []file{
				{ManifestName, manifestWith("", "Name: a.class\r\n")},
				{"com/example/Widget.class", "hello"},
			},
			problems: []string{"manifest section a.class has no entry"},
		},
		{
			name: "digest mismatch",
			files: []file{
				{ManifestName, manifestWith("", "Name: a.class\r\nSHA-256-Digest: " + helloDigest + "\r\n")},
				{"a.class", "changed"},
			},
			problems: []string{"SHA-256-Digest of a.class does not match"},
		},
		{
			name: "unparsable manifest",
			files: []file{
				{ManifestName, "garbage\r\n"},
			},
			problems: []string{"manifest: malformed manifest: line 1: expected \"Key: Value\""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			output := filepath.Join(t.TempDir(), "out.jar")
			writeJar(t, output, tt.files...)

			err := Verify(input, output)
			if tt.problems == nil {
				require.NoError(t, err)
				return
			}
			var ve *VerificationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.problems, ve.Problems)
			assert.True(t, errors.Is(err, ErrVerification))
		})
	}
}

func TestVerify_DuplicatesAndCRC(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "in.jar")
	writeJar(t, input, file{"a.class", "hello"})

	// archive/zip does not refuse duplicate names, unlike Writer.
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, content := range []string{"first-entry", "other-entry"} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: "a.class", Method: zip.Store})
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	data := buf.Bytes()
	i := bytes.Index(data, []byte("first-entry"))
	require.GreaterOrEqual(t, i, 0)
	data[i] = 'F'

	output := filepath.Join(dir, "out.jar")
	require.NoError(t, os.WriteFile(output, data, 0o644))

	err := Verify(input, output)
	var ve *VerificationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve.Problems, 2)
	assert.Contains(t, ve.Problems[0], "checksum")
	assert.Equal(t, "duplicate entry a.class", ve.Problems[1])
}

package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/project-remapper/internal/jar"
)

// Test Plan for mod metadata:
// - quilt.mod.json with intermediate_mappings returns that coordinate
// - quilt.mod.json without it, or with a non-string value, returns org.quiltmc:hashed
// - fabric.mod.json returns net.fabricmc:intermediary
// - quilt metadata wins over fabric metadata
// - A jar without metadata returns ""
// - Unparsable quilt metadata is an error

func writeJar(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := jar.NewWriter(&buf)
	for name, data := range files {
		require.NoError(t, w.Write(name, []byte(data), time.Time{}))
	}
	require.NoError(t, w.Close())
	path := filepath.Join(t.TempDir(), "mod.jar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestViaCoordinate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    map[string]string
		expected string
	}{
		{
			name:     "quilt with mappings",
			files:    map[string]string{QuiltMetadata: `{"quilt_loader": {"id": "x", "intermediate_mappings": "net.fabricmc:intermediary"}}`},
			expected: "net.fabricmc:intermediary",
		},
		{
			name:     "quilt default",
			files:    map[string]string{QuiltMetadata: `{"quilt_loader": {"id": "x"}}`},
			expected: DefaultQuiltVia,
		},
		{
			name:     "quilt non-string mappings",
			files:    map[string]string{QuiltMetadata: `{"quilt_loader": {"intermediate_mappings": 3}}`},
			expected: DefaultQuiltVia,
		},
		{
			name:     "fabric",
			files:    map[string]string{FabricMetadata: `{"id": "x"}`},
			expected: FabricVia,
		},
		{
			name: "quilt preferred",
			files: map[string]string{
				FabricMetadata: `{}`,
				QuiltMetadata:  `{"quilt_loader": {}}`,
			},
			expected: DefaultQuiltVia,
		},
		{
			name:     "plain jar",
			files:    map[string]string{"a.class": "x"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			via, err := ViaCoordinate(writeJar(t, tt.files))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, via)
		})
	}
}

func TestViaCoordinate_InvalidQuilt(t *testing.T) {
	t.Parallel()

	_, err := ViaCoordinate(writeJar(t, map[string]string{QuiltMetadata: `{"id": "x"}`}))
	assert.Error(t, err)
}

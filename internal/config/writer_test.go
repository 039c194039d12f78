package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Save:
// - Save writes a config that LoadConfigFromDir reads back unchanged
// - Save refuses to replace an existing file unless forced
// - Save rejects an invalid configuration without writing

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Default()
	cfg.Mappings.Declared = "mappings/named.tiny"
	cfg.Mappings.Via = []ViaMapping{{Coordinate: "org.quiltmc:hashed", Path: "hashed.tiny"}}
	cfg.Classpath = []string{"libs/*.jar"}
	cfg.Remap.ClassOverrides = []ClassOverride{{From: "javax/annotation/Nullable", To: "org/jetbrains/annotations/Nullable"}}

	path, err := Save(root, cfg, false)
	require.NoError(t, err)
	assert.Equal(t, ConfigPath(root), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Remapper project configuration.")

	loaded, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, cfg.Mappings.Declared, loaded.Mappings.Declared)
	assert.Equal(t, cfg.Mappings.Via, loaded.Mappings.Via)
	assert.Equal(t, cfg.Mappings.CacheCapacity, loaded.Mappings.CacheCapacity)
	assert.Equal(t, cfg.Classpath, loaded.Classpath)
	assert.Equal(t, cfg.Remap, loaded.Remap)
	assert.Equal(t, cfg.Output, loaded.Output)
	assert.Equal(t, cfg.Ledger, loaded.Ledger)
}

func TestSave_ExistingFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, err := Save(root, Default(), false)
	require.NoError(t, err)

	_, err = Save(root, Default(), false)
	assert.ErrorIs(t, err, ErrConfigExists)

	cfg := Default()
	cfg.Remap.Parallelism = 3
	_, err = Save(root, cfg, true)
	require.NoError(t, err)

	loaded, err := LoadConfigFromDir(root)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Remap.Parallelism)
}

func TestSave_InvalidConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := Default()
	cfg.Remap.FailurePolicy = "sometimes"

	_, err := Save(root, cfg, false)
	assert.ErrorIs(t, err, ErrInvalidFailurePolicy)
	assert.NoFileExists(t, ConfigPath(root))
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists indicates Save would replace an existing config file.
var ErrConfigExists = errors.New("config file already exists")

const configHeader = `# Remapper project configuration.
# Relative paths are resolved against the project directory.
# Every key can be overridden with a REMAPPER_* environment variable,
# e.g. REMAPPER_REMAP_FAILURE_POLICY=collect_all.
`

// ConfigPath returns the project config file location for rootDir.
func ConfigPath(rootDir string) string {
	return filepath.Join(rootDir, ".remapper", "config.yml")
}

// Save writes cfg as YAML to .remapper/config.yml under rootDir. An existing
// file is only replaced when force is set.
func Save(rootDir string, cfg *Config, force bool) (string, error) {
	path := ConfigPath(rootDir)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if err := Validate(cfg); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}

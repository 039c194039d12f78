package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (REMAPPER_*)
// 2. Config file (.remapper/config.yml or .remapper/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".remapper")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// REMAPPER_REMAP_FAILURE_POLICY and friends
	v.SetEnvPrefix("REMAPPER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("mappings.declared")
	v.BindEnv("mappings.intermediate")
	v.BindEnv("mappings.cache_capacity")

	v.BindEnv("remap.parallelism")
	v.BindEnv("remap.failure_policy")
	v.BindEnv("remap.overwrite")

	v.BindEnv("output.root")

	v.BindEnv("ledger.enabled")
	v.BindEnv("ledger.path")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("mappings.cache_capacity", defaults.Mappings.CacheCapacity)

	v.SetDefault("classpath", defaults.Classpath)

	v.SetDefault("remap.parallelism", defaults.Remap.Parallelism)
	v.SetDefault("remap.failure_policy", defaults.Remap.FailurePolicy)
	v.SetDefault("remap.overwrite", defaults.Remap.Overwrite)

	v.SetDefault("output.root", defaults.Output.Root)

	v.SetDefault("ledger.enabled", defaults.Ledger.Enabled)
	v.SetDefault("ledger.path", defaults.Ledger.Path)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}

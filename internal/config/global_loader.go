package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadGlobalConfig loads global configuration from ~/.remapper/config.yml.
// Returns default values if file doesn't exist (not an error).
// Environment variables override file values (REMAPPER_* prefix).
func LoadGlobalConfig() (*GlobalConfig, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	remapperDir := filepath.Join(home, ".remapper")

	// Look for ~/.remapper/config.yml (NOT project .remapper/config.yml)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(remapperDir)

	v.SetEnvPrefix("REMAPPER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("cache.base_dir")
	v.BindEnv("watch.debounce_ms")

	v.SetDefault("cache.base_dir", filepath.Join(remapperDir, "cache"))
	v.SetDefault("watch.debounce_ms", 500)

	// Read config (not an error if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Watch.DebounceMs <= 0 {
		return nil, fmt.Errorf("invalid configuration: watch.debounce_ms must be positive, got %d", cfg.Watch.DebounceMs)
	}

	return cfg, nil
}

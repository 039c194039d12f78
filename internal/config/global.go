// Package config provides configuration loading for the remapper.
//
// It supports two configuration scopes:
//
// 1. Global Configuration (~/.remapper/config.yml)
//   - Machine-wide settings shared by every project
//   - Dependency cache location (remap-deps output)
//   - Watch debounce
//   - Loaded via LoadGlobalConfig()
//
// 2. Project Configuration (.remapper/config.yml)
//   - Mapping files, namespace aliases and selections
//   - Classpath patterns
//   - Pipeline tuning, output root and run ledger
//   - Loaded via Load()
//
// Environment variables override file values in both scopes:
//   - Prefix: REMAPPER_
//   - Nested fields: underscores (REMAPPER_REMAP_FAILURE_POLICY)
//
// Example usage:
//
//	cfg, err := config.LoadConfigFromDir(root)
//	if err != nil {
//	    return err
//	}
//	in, err := cfg.ToResolverInputs(root)
//	if err != nil {
//	    return err
//	}
//	res := resolver.New(in, cfg.ToResolverOptions()...)
package config

import "time"

// GlobalConfig holds machine-wide settings.
// Loaded from ~/.remapper/config.yml (not project .remapper/config.yml).
type GlobalConfig struct {
	Cache GlobalCacheConfig `yaml:"cache" mapstructure:"cache"`
	Watch WatchConfig       `yaml:"watch" mapstructure:"watch"`
}

// GlobalCacheConfig holds global cache settings.
type GlobalCacheConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"` // remapped dependencies (~/.remapper/cache)
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// Debounce returns the watch debounce as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMs) * time.Millisecond
}

package config

// Config represents the complete remapper configuration.
// It can be loaded from .remapper/config.yml with environment variable overrides.
type Config struct {
	Mappings  MappingsConfig `yaml:"mappings" mapstructure:"mappings"`
	Classpath []string       `yaml:"classpath,omitempty" mapstructure:"classpath"` // jar paths or glob patterns
	Remap     RemapConfig    `yaml:"remap" mapstructure:"remap"`
	Output    OutputConfig   `yaml:"output" mapstructure:"output"`
	Ledger    LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
}

// MappingsConfig names the mapping files to compose.
// Lists are used instead of maps because viper lowercases map keys.
type MappingsConfig struct {
	Declared         string           `yaml:"declared" mapstructure:"declared"`         // mappings the sources are written against
	Intermediate     string           `yaml:"intermediate" mapstructure:"intermediate"` // runtime -> intermediate mappings
	Via              []ViaMapping     `yaml:"via,omitempty" mapstructure:"via"`
	NamespaceAliases []Alias          `yaml:"namespace_aliases,omitempty" mapstructure:"namespace_aliases"`
	Namespaces       NamespacesConfig `yaml:"namespaces" mapstructure:"namespaces"`
	CacheCapacity    int              `yaml:"cache_capacity" mapstructure:"cache_capacity"` // mapping sets kept in memory
}

// ViaMapping is the mapping file for a third-party namespace.
type ViaMapping struct {
	Coordinate string `yaml:"coordinate" mapstructure:"coordinate"` // group:artifact
	Path       string `yaml:"path" mapstructure:"path"`
}

// Alias declares that two namespace names mean the same thing.
type Alias struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Canonical string `yaml:"canonical" mapstructure:"canonical"`
}

// NamespacePair selects which namespaces of a file are loaded. Empty means
// first and last.
type NamespacePair struct {
	From string `yaml:"from" mapstructure:"from"`
	To   string `yaml:"to" mapstructure:"to"`
}

// NamespacesConfig selects namespaces per mapping role.
type NamespacesConfig struct {
	Declared     NamespacePair `yaml:"declared" mapstructure:"declared"`
	Intermediate NamespacePair `yaml:"intermediate" mapstructure:"intermediate"`
	Via          NamespacePair `yaml:"via" mapstructure:"via"`
}

// RemapConfig tunes the pipeline.
type RemapConfig struct {
	Parallelism    int             `yaml:"parallelism" mapstructure:"parallelism"`       // 0 means one worker per CPU
	FailurePolicy  string          `yaml:"failure_policy" mapstructure:"failure_policy"` // "fail_fast" or "collect_all"
	Overwrite      bool            `yaml:"overwrite" mapstructure:"overwrite"`
	ClassOverrides []ClassOverride `yaml:"class_overrides,omitempty" mapstructure:"class_overrides"`
}

// ClassOverride renames one class after the mapping is applied.
type ClassOverride struct {
	From string `yaml:"from" mapstructure:"from"`
	To   string `yaml:"to" mapstructure:"to"`
}

// OutputConfig defines where remapped artifacts go.
type OutputConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// LedgerConfig configures the run history.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Mappings: MappingsConfig{
			CacheCapacity: 64,
		},
		Classpath: []string{},
		Remap: RemapConfig{
			Parallelism:   0,
			FailurePolicy: "fail_fast",
			Overwrite:     false,
		},
		Output: OutputConfig{
			Root: ".remapper/remapped",
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    ".remapper/ledger.db",
		},
	}
}

// ClassOverrideMap returns the class overrides keyed by source name.
func (c *Config) ClassOverrideMap() map[string]string {
	if len(c.Remap.ClassOverrides) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.Remap.ClassOverrides))
	for _, o := range c.Remap.ClassOverrides {
		out[o.From] = o.To
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidParallelism indicates a negative worker count
	ErrInvalidParallelism = errors.New("invalid parallelism")

	// ErrInvalidFailurePolicy indicates an unknown failure policy
	ErrInvalidFailurePolicy = errors.New("invalid failure policy")

	// ErrInvalidVia indicates a malformed via mapping entry
	ErrInvalidVia = errors.New("invalid via mapping")

	// ErrInvalidAlias indicates a malformed namespace alias
	ErrInvalidAlias = errors.New("invalid namespace alias")

	// ErrInvalidOverride indicates a malformed class override
	ErrInvalidOverride = errors.New("invalid class override")

	// ErrInvalidPattern indicates a classpath pattern that does not compile
	ErrInvalidPattern = errors.New("invalid classpath pattern")

	// ErrEmptyOutputRoot indicates a missing output root
	ErrEmptyOutputRoot = errors.New("empty output root")

	// ErrInvalidLedger indicates an enabled ledger without a path
	ErrInvalidLedger = errors.New("invalid ledger settings")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateMappings(&cfg.Mappings); err != nil {
		errs = append(errs, err)
	}

	if err := validateClasspath(cfg.Classpath); err != nil {
		errs = append(errs, err)
	}

	if err := validateRemap(&cfg.Remap); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(cfg.Output.Root) == "" {
		errs = append(errs, fmt.Errorf("%w: output.root is required", ErrEmptyOutputRoot))
	}

	if cfg.Ledger.Enabled && strings.TrimSpace(cfg.Ledger.Path) == "" {
		errs = append(errs, fmt.Errorf("%w: ledger.path is required when the ledger is enabled", ErrInvalidLedger))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateMappings(cfg *MappingsConfig) error {
	var errs []error

	for i, via := range cfg.Via {
		parts := strings.Split(via.Coordinate, ":")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			errs = append(errs, fmt.Errorf("%w: via[%d] coordinate must be group:artifact, got '%s'", ErrInvalidVia, i, via.Coordinate))
		}
		if strings.TrimSpace(via.Path) == "" {
			errs = append(errs, fmt.Errorf("%w: via[%d] path is required", ErrInvalidVia, i))
		}
	}

	for i, a := range cfg.NamespaceAliases {
		if a.Name == "" || a.Canonical == "" {
			errs = append(errs, fmt.Errorf("%w: namespace_aliases[%d] needs name and canonical", ErrInvalidAlias, i))
		}
	}

	if cfg.CacheCapacity < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_capacity cannot be negative, got %d", ErrInvalidCacheSettings, cfg.CacheCapacity))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateClasspath(patterns []string) error {
	var errs []error
	for _, pattern := range patterns {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: '%s': %v", ErrInvalidPattern, pattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateRemap(cfg *RemapConfig) error {
	var errs []error

	if cfg.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("%w: parallelism cannot be negative, got %d", ErrInvalidParallelism, cfg.Parallelism))
	}

	policy := strings.ToLower(cfg.FailurePolicy)
	if policy != "fail_fast" && policy != "collect_all" {
		errs = append(errs, fmt.Errorf("%w: must be 'fail_fast' or 'collect_all', got '%s'", ErrInvalidFailurePolicy, cfg.FailurePolicy))
	}

	seen := make(map[string]bool)
	for i, o := range cfg.ClassOverrides {
		if o.From == "" || o.To == "" {
			errs = append(errs, fmt.Errorf("%w: class_overrides[%d] needs from and to", ErrInvalidOverride, i))
			continue
		}
		if strings.Contains(o.From, ".") || strings.Contains(o.To, ".") {
			errs = append(errs, fmt.Errorf("%w: '%s' -> '%s' must use internal names (a/b/C)", ErrInvalidOverride, o.From, o.To))
		}
		if seen[o.From] {
			errs = append(errs, fmt.Errorf("%w: '%s' is overridden twice", ErrInvalidOverride, o.From))
		}
		seen[o.From] = true
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

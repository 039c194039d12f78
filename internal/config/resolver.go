package config

import (
	"fmt"
	"path/filepath"

	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/resolver"
	"github.com/mvp-joe/project-remapper/internal/store"
)

// ToResolverInputs converts the mapping configuration into resolver inputs.
// Relative paths are resolved against rootDir. A via coordinate listed more
// than once is a *resolver.AmbiguousSourceError.
func (c *Config) ToResolverInputs(rootDir string) (resolver.Inputs, error) {
	in := resolver.Inputs{Via: make(map[string]store.Source, len(c.Mappings.Via))}
	if c.Mappings.Declared != "" {
		in.Declared = store.FileSource{Path: ResolvePath(rootDir, c.Mappings.Declared)}
	}
	if c.Mappings.Intermediate != "" {
		in.Intermediate = store.FileSource{Path: ResolvePath(rootDir, c.Mappings.Intermediate)}
	}

	var coords []string
	grouped := make(map[string][]store.Source)
	for _, via := range c.Mappings.Via {
		if _, ok := grouped[via.Coordinate]; !ok {
			coords = append(coords, via.Coordinate)
		}
		grouped[via.Coordinate] = append(grouped[via.Coordinate], store.FileSource{Path: ResolvePath(rootDir, via.Path)})
	}
	for _, coord := range coords {
		src, err := resolver.SingleSource(resolver.RoleVia, grouped[coord])
		if err != nil {
			return resolver.Inputs{}, fmt.Errorf("via mappings for %s: %w", coord, err)
		}
		in.Via[coord] = src
	}
	return in, nil
}

// ToResolverOptions converts aliases and namespace selections into resolver
// options.
func (c *Config) ToResolverOptions() []resolver.Option {
	var opts []resolver.Option
	if len(c.Mappings.NamespaceAliases) > 0 {
		aliases := make(mapping.Aliases, len(c.Mappings.NamespaceAliases))
		for _, a := range c.Mappings.NamespaceAliases {
			aliases[mapping.Namespace(a.Name)] = mapping.Namespace(a.Canonical)
		}
		opts = append(opts, resolver.WithAliases(aliases))
	}

	roles := []struct {
		role resolver.Role
		pair NamespacePair
	}{
		{resolver.RoleDeclared, c.Mappings.Namespaces.Declared},
		{resolver.RoleIntermediate, c.Mappings.Namespaces.Intermediate},
		{resolver.RoleVia, c.Mappings.Namespaces.Via},
	}
	for _, r := range roles {
		if r.pair.From == "" && r.pair.To == "" {
			continue
		}
		opts = append(opts, resolver.WithNamespaces(r.role, store.LoadOptions{
			From: mapping.Namespace(r.pair.From),
			To:   mapping.Namespace(r.pair.To),
		}))
	}
	return opts
}

// MappingPaths lists every configured mapping file, resolved against rootDir.
func (c *Config) MappingPaths(rootDir string) []string {
	var paths []string
	for _, p := range []string{c.Mappings.Declared, c.Mappings.Intermediate} {
		if p != "" {
			paths = append(paths, ResolvePath(rootDir, p))
		}
	}
	for _, via := range c.Mappings.Via {
		paths = append(paths, ResolvePath(rootDir, via.Path))
	}
	return paths
}

// OutputRoot resolves the output root against rootDir.
func (c *Config) OutputRoot(rootDir string) string {
	return ResolvePath(rootDir, c.Output.Root)
}

// LedgerPath resolves the ledger path against rootDir.
func (c *Config) LedgerPath(rootDir string) string {
	return ResolvePath(rootDir, c.Ledger.Path)
}

// ResolvePath joins a relative path onto rootDir. Absolute and empty paths
// are returned unchanged.
func ResolvePath(rootDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

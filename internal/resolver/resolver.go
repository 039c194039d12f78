// Package resolver composes loaded mapping sets into the views a remap
// request needs: the merged runtime→declared mapping, its reverse, and
// bridges through third-party "via" namespaces.
package resolver

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mvp-joe/project-remapper/internal/coordinate"
	"github.com/mvp-joe/project-remapper/internal/mapping"
	"github.com/mvp-joe/project-remapper/internal/store"
)

// Role names the purpose of a mapping source.
type Role string

const (
	RoleDeclared     Role = "declared"
	RoleIntermediate Role = "intermediate"
	RoleVia          Role = "via"
)

// Inputs lists the sources a Resolver composes. Declared and Intermediate
// may be nil. Via is keyed by module coordinate (group:artifact).
type Inputs struct {
	Declared     store.Source
	Intermediate store.Source
	Via          map[string]store.Source
}

// Option configures a Resolver.
type Option func(*options)

type options struct {
	cache      *store.Cache
	aliases    mapping.Aliases
	namespaces map[Role]store.LoadOptions
}

// WithCache loads sources through a shared cache instead of parsing them
// once per resolver.
func WithCache(c *store.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithAliases canonicalises namespace names of every loaded set.
func WithAliases(a mapping.Aliases) Option {
	return func(o *options) { o.aliases = a }
}

// WithNamespaces selects the namespace pair loaded for a role.
func WithNamespaces(role Role, opts store.LoadOptions) Option {
	return func(o *options) { o.namespaces[role] = opts }
}

type loadFunc func() (*mapping.MappingSet, error)

// Resolver is an immutable view over its inputs. Every source is loaded at
// most once and every composition is computed at most once; all methods are
// safe for concurrent use.
type Resolver struct {
	declared     loadFunc
	intermediate loadFunc
	via          map[string]loadFunc
	identity     string

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string]*mapping.MappingSet
}

// New builds a resolver. Nothing is loaded until a view is requested.
func New(in Inputs, opts ...Option) *Resolver {
	o := &options{namespaces: make(map[Role]store.LoadOptions)}
	for _, opt := range opts {
		opt(o)
	}

	r := &Resolver{
		declared:     o.loader(RoleDeclared, in.Declared),
		intermediate: o.loader(RoleIntermediate, in.Intermediate),
		via:          make(map[string]loadFunc, len(in.Via)),
		memo:         make(map[string]*mapping.MappingSet),
	}
	for coord, src := range in.Via {
		r.via[coord] = o.loader(RoleVia, src)
	}

	switch {
	case in.Declared != nil:
		r.identity = coordinate.SanitizeIdentity(in.Declared.Name())
	case in.Intermediate != nil:
		r.identity = coordinate.SanitizeIdentity(in.Intermediate.Name())
	}
	return r
}

func (o *options) loader(role Role, src store.Source) loadFunc {
	if src == nil {
		return func() (*mapping.MappingSet, error) { return nil, nil }
	}
	return sync.OnceValues(func() (*mapping.MappingSet, error) {
		var (
			set *mapping.MappingSet
			err error
		)
		if o.cache != nil {
			set, err = o.cache.LoadWith(src, o.namespaces[role])
		} else {
			var data []byte
			if data, err = src.Open(); err == nil {
				set, err = store.LoadWith(data, o.namespaces[role])
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s mappings %s: %w", role, src.Name(), err)
		}
		if o.aliases != nil {
			set = set.Canonicalize(o.aliases)
		}
		return set, nil
	})
}

// compose memoises fn under key. Concurrent callers share one computation.
func (r *Resolver) compose(key string, fn func() (*mapping.MappingSet, error)) (*mapping.MappingSet, error) {
	r.mu.Lock()
	set, ok := r.memo[key]
	r.mu.Unlock()
	if ok {
		return set, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		// A previous flight may have finished since the check above.
		r.mu.Lock()
		set, ok := r.memo[key]
		r.mu.Unlock()
		if ok {
			return set, nil
		}

		set, err := fn()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.memo[key] = set
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mapping.MappingSet), nil
}

// Identity is the declared mapping's name with path-unsafe characters
// replaced, used in output paths. Empty when no mapping is configured.
func (r *Resolver) Identity() string {
	return r.identity
}

// Declared returns the declared mapping set, or nil when none is configured.
func (r *Resolver) Declared() (*mapping.MappingSet, error) {
	return r.declared()
}

// Intermediate returns the intermediate mapping set, or nil when none is
// configured.
func (r *Resolver) Intermediate() (*mapping.MappingSet, error) {
	return r.intermediate()
}

// Via returns the via mapping set for a module coordinate.
func (r *Resolver) Via(coord string) (*mapping.MappingSet, error) {
	load, ok := r.via[coord]
	if !ok {
		return nil, &MissingMappingError{Role: RoleVia, Coordinate: coord}
	}
	return load()
}

// ViaCoordinates lists the configured via coordinates in order.
func (r *Resolver) ViaCoordinates() []string {
	coords := make([]string, 0, len(r.via))
	for c := range r.via {
		coords = append(coords, c)
	}
	sort.Strings(coords)
	return coords
}

// Merged is the intermediate set merged with the declared set when both are
// configured, otherwise whichever one is. ok is false when neither is.
func (r *Resolver) Merged() (set *mapping.MappingSet, ok bool, err error) {
	set, err = r.compose("merged", func() (*mapping.MappingSet, error) {
		declared, err := r.declared()
		if err != nil {
			return nil, err
		}
		intermediate, err := r.intermediate()
		if err != nil {
			return nil, err
		}

		switch {
		case declared != nil && intermediate != nil:
			return intermediate.Merge(declared)
		case declared != nil:
			return declared, nil
		default:
			return intermediate, nil
		}
	})
	return set, set != nil, err
}

// Target maps declared names back to runtime names: the reverse of Merged.
func (r *Resolver) Target() (*mapping.MappingSet, error) {
	return r.compose("target", func() (*mapping.MappingSet, error) {
		merged, ok, err := r.Merged()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &MissingMappingError{Role: RoleDeclared}
		}
		return merged.Reverse(), nil
	})
}

// SourceVia maps a dependency's via namespace to the declared namespace:
// reverse(via[coord]) merged with Merged.
func (r *Resolver) SourceVia(coord string) (*mapping.MappingSet, error) {
	load, ok := r.via[coord]
	if !ok {
		return nil, &MissingMappingError{Role: RoleVia, Coordinate: coord}
	}

	return r.compose("via:"+coord, func() (*mapping.MappingSet, error) {
		via, err := load()
		if err != nil {
			return nil, err
		}
		merged, ok, err := r.Merged()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &MissingMappingError{Role: RoleDeclared}
		}
		return via.Reverse().Merge(merged)
	})
}

// SingleSource enforces that a role has at most one source. It returns nil
// when sources is empty.
func SingleSource(role Role, sources []store.Source) (store.Source, error) {
	switch len(sources) {
	case 0:
		return nil, nil
	case 1:
		return sources[0], nil
	default:
		return nil, &AmbiguousSourceError{Role: role, Count: len(sources)}
	}
}

// ViaCoordinate strips the version from an artifact coordinate
// ("group:artifact:version" becomes "group:artifact").
func ViaCoordinate(artifact string) string {
	return coordinate.StripVersion(artifact)
}

// Package coordinate parses dependency coordinates and derives the output
// location of a remapped artifact, which doubles as its cache key.
package coordinate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidCoordinate indicates a coordinate that is not group:artifact:version.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate identifies a dependency artifact.
type Coordinate struct {
	Group    string
	Artifact string
	Version  string
}

// Parse reads "group:artifact:version". A trailing classifier
// ("group:artifact:version:classifier") is ignored.
func Parse(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	for _, p := range parts[:3] {
		if p == "" {
			return Coordinate{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidCoordinate, s)
		}
	}
	return Coordinate{Group: parts[0], Artifact: parts[1], Version: parts[2]}, nil
}

func (c Coordinate) String() string {
	return c.Group + ":" + c.Artifact + ":" + c.Version
}

// Module returns "group:artifact", the coordinate without its version.
func (c Coordinate) Module() string {
	return c.Group + ":" + c.Artifact
}

// FileName returns "<artifact>-<version>.jar".
func (c Coordinate) FileName() string {
	return c.Artifact + "-" + c.Version + ".jar"
}

// StripVersion removes the last ":"-separated segment.
func StripVersion(s string) string {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s
	}
	return s[:i]
}

var identityReplacer = strings.NewReplacer(":", "_", "-", "_", "/", "_")

// SanitizeIdentity replaces path-unsafe characters of a mapping identity.
func SanitizeIdentity(identity string) string {
	return identityReplacer.Replace(identity)
}

// OutputPath returns
// <root>/<group with . as />/<artifact>-<version>/<identity>/<artifact>-<version>.jar.
func OutputPath(root string, c Coordinate, identity string) string {
	return filepath.Join(
		root,
		filepath.FromSlash(strings.ReplaceAll(c.Group, ".", "/")),
		c.Artifact+"-"+c.Version,
		SanitizeIdentity(identity),
		c.FileName(),
	)
}

package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingMapping is matched by every MissingMappingError.
	ErrMissingMapping = errors.New("missing mapping")

	// ErrAmbiguousSource is matched by every AmbiguousSourceError.
	ErrAmbiguousSource = errors.New("ambiguous mapping source")
)

// MissingMappingError reports a composition whose required input was never
// supplied.
type MissingMappingError struct {
	Role       Role
	Coordinate string // set for RoleVia
}

func (e *MissingMappingError) Error() string {
	if e.Coordinate != "" {
		return fmt.Sprintf("%s: no %s mappings for %s", ErrMissingMapping, e.Role, e.Coordinate)
	}
	return fmt.Sprintf("%s: no %s mappings configured", ErrMissingMapping, e.Role)
}

func (e *MissingMappingError) Is(target error) bool { return target == ErrMissingMapping }

// AmbiguousSourceError reports more than one source declared for a role that
// takes exactly one.
type AmbiguousSourceError struct {
	Role  Role
	Count int
}

func (e *AmbiguousSourceError) Error() string {
	return fmt.Sprintf("%s: %d sources declared for %s mappings, expected at most one", ErrAmbiguousSource, e.Count, e.Role)
}

func (e *AmbiguousSourceError) Is(target error) bool { return target == ErrAmbiguousSource }

package mapping

import (
	"errors"
	"fmt"
)

// ErrNamespaceMismatch is matched by every NamespaceMismatchError.
var ErrNamespaceMismatch = errors.New("namespace mismatch")

// NamespaceMismatchError reports a merge whose left destination namespace is
// not the right source namespace.
type NamespaceMismatchError struct {
	Left  Namespace // destination of the left set
	Right Namespace // source of the right set
}

func (e *NamespaceMismatchError) Error() string {
	return fmt.Sprintf("%s: cannot merge mappings ending in %q with mappings starting in %q", ErrNamespaceMismatch, e.Left, e.Right)
}

func (e *NamespaceMismatchError) Is(target error) bool {
	return target == ErrNamespaceMismatch
}

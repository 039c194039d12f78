package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPolicy indicates an unknown failure policy name.
var ErrInvalidPolicy = errors.New("invalid failure policy")

// ClasspathResolutionError records a classpath entry that could not be
// opened. It is reported, not raised: the run continues without it.
type ClasspathResolutionError struct {
	Path string
	Err  error
}

func (e *ClasspathResolutionError) Error() string {
	return fmt.Sprintf("classpath entry %s: %v", e.Path, e.Err)
}

func (e *ClasspathResolutionError) Unwrap() error {
	return e.Err
}

// BatchError collects every entry failure of a CollectAll run.
type BatchError struct {
	Failures []error
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d entries failed:", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n  - ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *BatchError) Unwrap() []error {
	return e.Failures
}

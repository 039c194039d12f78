package remap

import "fmt"

// TransformError reports a class entry that could not be rewritten. It wraps
// classfile.ErrMalformed or descriptor.ErrMalformed for malformed input.
type TransformError struct {
	Entry string
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: failed to transform %s: %v", e.Stage, e.Entry, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

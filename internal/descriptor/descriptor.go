// Package descriptor rewrites JVM field and method descriptors and generic
// signatures by substituting the class names they reference.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed indicates a descriptor or signature that does not follow the
// JVM grammar.
var ErrMalformed = errors.New("malformed descriptor")

// ClassMapper maps an internal class name (e.g. "java/lang/Object") to its
// new internal name. Returning the input means "unchanged".
type ClassMapper func(internalName string) string

// Map rewrites every class reference in a field or method descriptor.
// Descriptors without class references are returned as-is.
func Map(desc string, mapClass ClassMapper) string {
	if strings.IndexByte(desc, 'L') < 0 {
		return desc
	}

	var b strings.Builder
	b.Grow(len(desc))
	for i := 0; i < len(desc); i++ {
		c := desc[i]
		b.WriteByte(c)
		if c != 'L' {
			continue
		}
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			// Not a well-formed descriptor; keep the tail untouched.
			b.WriteString(desc[i+1:])
			return b.String()
		}
		b.WriteString(mapClass(desc[i+1 : i+end]))
		b.WriteByte(';')
		i += end
	}
	return b.String()
}

// MapType rewrites an internal name or an array descriptor as found in a
// CONSTANT_Class entry ("a/B" or "[La/B;").
func MapType(name string, mapClass ClassMapper) string {
	if strings.HasPrefix(name, "[") {
		return Map(name, mapClass)
	}
	return mapClass(name)
}

// Method is a parsed method descriptor.
type Method struct {
	Params []string
	Return string
}

// ParseMethod splits a method descriptor into parameter and return types.
func ParseMethod(desc string) (*Method, error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, desc)
	}

	m := &Method{}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		end, err := fieldTypeEnd(desc, i)
		if err != nil {
			return nil, err
		}
		m.Params = append(m.Params, desc[i:end])
		i = end
	}
	if i >= len(desc) {
		return nil, fmt.Errorf("%w: unterminated parameters in %q", ErrMalformed, desc)
	}

	ret := desc[i+1:]
	if ret != "V" {
		end, err := fieldTypeEnd(desc, i+1)
		if err != nil {
			return nil, err
		}
		if end != len(desc) {
			return nil, fmt.Errorf("%w: trailing data in %q", ErrMalformed, desc)
		}
	}
	m.Return = ret
	return m, nil
}

// ParameterSlots returns the local variable index of each parameter.
// Instance methods start at 1 (slot 0 holds "this"); long and double take
// two slots.
func (m *Method) ParameterSlots(static bool) []int {
	slots := make([]int, len(m.Params))
	next := 1
	if static {
		next = 0
	}
	for i, p := range m.Params {
		slots[i] = next
		if p == "J" || p == "D" {
			next += 2
		} else {
			next++
		}
	}
	return slots
}

// fieldTypeEnd returns the index just past the field type starting at i.
func fieldTypeEnd(desc string, i int) (int, error) {
	for i < len(desc) && desc[i] == '[' {
		i++
	}
	if i >= len(desc) {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, desc)
	}
	switch desc[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return 0, fmt.Errorf("%w: unterminated class type in %q", ErrMalformed, desc)
		}
		return i + end + 1, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %q in %q", ErrMalformed, desc[i], desc)
	}
}

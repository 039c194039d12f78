// Package mapping holds the MappingSet value type and its algebra: merging two
// sets along a shared namespace, reversing a set and relabelling namespaces.
//
// A MappingSet is immutable once built. Values returned by its lookups are
// shared between callers and must not be modified.
package mapping

import (
	"sort"
	"strings"

	"github.com/mvp-joe/project-remapper/internal/descriptor"
)

// Namespace names one naming scheme, e.g. "official", "intermediary" or "named".
type Namespace string

// MappingSet maps class, field, method and parameter names from one namespace
// to another.
type MappingSet struct {
	from    Namespace
	to      Namespace
	classes map[string]*ClassMapping
}

// ClassMapping renames one class. Inner classes are separate entries keyed by
// their own binary name ("Outer$Inner").
type ClassMapping struct {
	From    string
	To      string // empty when the class itself keeps its name
	Comment string

	fields  map[memberKey]*FieldMapping
	methods map[memberKey]*MethodMapping
}

// FieldMapping renames a field. Desc is in the source namespace and may be
// empty when the mapping format omits it.
type FieldMapping struct {
	From    string
	Desc    string
	To      string
	Comment string
}

// MethodMapping renames a method and, optionally, its parameters.
type MethodMapping struct {
	From    string
	Desc    string
	To      string
	Comment string

	params map[int]*ParameterMapping
}

// ParameterMapping names a method parameter by local variable index.
type ParameterMapping struct {
	Index   int
	From    string
	To      string
	Comment string
}

type memberKey struct {
	name string
	desc string
}

// Identity returns an empty set mapping ns onto itself.
func Identity(ns Namespace) *MappingSet {
	return &MappingSet{from: ns, to: ns, classes: map[string]*ClassMapping{}}
}

// From returns the source namespace.
func (s *MappingSet) From() Namespace { return s.from }

// To returns the destination namespace.
func (s *MappingSet) To() Namespace { return s.to }

// Len returns the number of class entries.
func (s *MappingSet) Len() int { return len(s.classes) }

// Class looks up a class entry by its exact source name.
func (s *MappingSet) Class(name string) (*ClassMapping, bool) {
	c, ok := s.classes[name]
	return c, ok
}

// Classes returns every class entry ordered by source name.
func (s *MappingSet) Classes() []*ClassMapping {
	out := make([]*ClassMapping, 0, len(s.classes))
	for _, c := range s.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// InnerClasses returns the entries whose direct outer class is outer.
func (s *MappingSet) InnerClasses(outer string) []*ClassMapping {
	var out []*ClassMapping
	for _, c := range s.Classes() {
		if o, ok := c.Outer(); ok && o == outer {
			out = append(out, c)
		}
	}
	return out
}

// MapClassName returns the destination name of a class. An inner class
// without its own entry keeps its simple name under the renamed outer class
// ("a$b" becomes "Foo$b" when "a" maps to "Foo"). Unknown classes are
// returned unchanged.
func (s *MappingSet) MapClassName(name string) string {
	return mapClassName(name, func(n string) (string, bool) {
		if c, ok := s.classes[n]; ok && c.To != "" {
			return c.To, true
		}
		return "", false
	})
}

// MapDescriptor rewrites the class references of a field or method descriptor.
func (s *MappingSet) MapDescriptor(desc string) string {
	return descriptor.Map(desc, s.MapClassName)
}

// MapSignature rewrites the class references of a generic signature.
func (s *MappingSet) MapSignature(sig string) (string, error) {
	return descriptor.MapSignature(sig, s.MapClassName)
}

// Field looks up a field by owner, name and descriptor. A field recorded
// without a descriptor matches any descriptor.
func (s *MappingSet) Field(owner, name, desc string) (*FieldMapping, bool) {
	c, ok := s.classes[owner]
	if !ok {
		return nil, false
	}
	return c.Field(name, desc)
}

// Method looks up a method by owner, name and descriptor.
func (s *MappingSet) Method(owner, name, desc string) (*MethodMapping, bool) {
	c, ok := s.classes[owner]
	if !ok {
		return nil, false
	}
	return c.Method(name, desc)
}

// Outer returns the binary name of the enclosing class, if this is an inner
// class entry.
func (c *ClassMapping) Outer() (string, bool) {
	i := strings.LastIndexByte(c.From, '$')
	if i <= 0 || i == len(c.From)-1 {
		return "", false
	}
	return c.From[:i], true
}

// Field looks up a field of this class. A field recorded without a
// descriptor matches any descriptor, and an empty desc matches any field of
// that name.
func (c *ClassMapping) Field(name, desc string) (*FieldMapping, bool) {
	if f, ok := c.fields[memberKey{name, desc}]; ok {
		return f, true
	}
	if desc != "" {
		f, ok := c.fields[memberKey{name, ""}]
		return f, ok
	}
	// No descriptor given: any field of that name, lowest descriptor first.
	var found *FieldMapping
	for k, f := range c.fields {
		if k.name == name && (found == nil || f.Desc < found.Desc) {
			found = f
		}
	}
	return found, found != nil
}

// Method looks up a method of this class.
func (c *ClassMapping) Method(name, desc string) (*MethodMapping, bool) {
	m, ok := c.methods[memberKey{name, desc}]
	return m, ok
}

// MethodByName looks up a method by name alone, considering only
// descriptors accepted by match, lowest descriptor first.
func (c *ClassMapping) MethodByName(name string, match func(desc string) bool) (*MethodMapping, bool) {
	var found *MethodMapping
	for k, m := range c.methods {
		if k.name == name && match(k.desc) && (found == nil || m.Desc < found.Desc) {
			found = m
		}
	}
	return found, found != nil
}

// Fields returns the field entries ordered by name and descriptor.
func (c *ClassMapping) Fields() []*FieldMapping {
	out := make([]*FieldMapping, 0, len(c.fields))
	for _, f := range c.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Desc < out[j].Desc
	})
	return out
}

// Methods returns the method entries ordered by name and descriptor.
func (c *ClassMapping) Methods() []*MethodMapping {
	out := make([]*MethodMapping, 0, len(c.methods))
	for _, m := range c.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].Desc < out[j].Desc
	})
	return out
}

// Mapped returns the destination name, or From when the field is unmapped.
func (f *FieldMapping) Mapped() string {
	if f.To == "" {
		return f.From
	}
	return f.To
}

// Mapped returns the destination name, or From when the method is unmapped.
func (m *MethodMapping) Mapped() string {
	if m.To == "" {
		return m.From
	}
	return m.To
}

// Param looks up a parameter by local variable index.
func (m *MethodMapping) Param(index int) (*ParameterMapping, bool) {
	p, ok := m.params[index]
	return p, ok
}

// Params returns the parameter entries ordered by index.
func (m *MethodMapping) Params() []*ParameterMapping {
	out := make([]*ParameterMapping, 0, len(m.params))
	for _, p := range m.params {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// mapClassName resolves name through lookup, deriving inner class names from
// their outer class when the inner class has no entry of its own.
func mapClassName(name string, lookup func(string) (string, bool)) string {
	if to, ok := lookup(name); ok {
		return to
	}
	i := strings.LastIndexByte(name, '$')
	if i <= 0 || i == len(name)-1 {
		return name
	}
	outer := mapClassName(name[:i], lookup)
	if outer == name[:i] {
		return name
	}
	return outer + name[i:]
}

// Package remap rewrites compiled classes from one namespace to another.
//
// Classes are rewritten by repointing constant pool references at new Utf8
// and NameAndType entries. Existing entries other than Class, member
// reference, invokedynamic and MethodType entries are never modified, and
// bytecode is left untouched.
package remap

import (
	"strings"

	"github.com/mvp-joe/project-remapper/internal/classfile"
	"github.com/mvp-joe/project-remapper/internal/mapping"
)

// ClassEntry is a class file inside a container, e.g. "a.class" or
// "META-INF/versions/17/a.class".
type ClassEntry struct {
	Name string
	Data []byte
}

// Stage is one step of the class transformation chain.
type Stage interface {
	Name() string
	TransformClass(ClassEntry) (ClassEntry, error)
}

// ClassRenamer is implemented by stages that rename classes, so that class
// names outside class files (manifests, service files) can follow.
type ClassRenamer interface {
	MapClassName(internalName string) string
}

// Hierarchy resolves supertypes for inherited member lookups. Walk visits a
// class and then its ancestors, each once, until visit returns false.
type Hierarchy interface {
	Walk(class string, visit func(class string) bool)
}

// Transformer renames the symbols of classes according to a mapping set. It
// is stateless and safe for concurrent use.
type Transformer struct {
	name    string
	mapping *mapping.MappingSet
	h       Hierarchy
}

// NewTransformer returns a transformer for m. h may be nil, in which case
// members are only looked up on their own class.
func NewTransformer(m *mapping.MappingSet, h Hierarchy) *Transformer {
	return &Transformer{name: "remap", mapping: m, h: h}
}

// Name implements Stage.
func (t *Transformer) Name() string { return t.name }

// TransformClass rewrites one class. A class the mapping does not touch is
// returned unchanged, byte for byte.
func (t *Transformer) TransformClass(e ClassEntry) (ClassEntry, error) {
	cf, err := classfile.Parse(e.Data)
	if err != nil {
		return e, &TransformError{Entry: e.Name, Stage: t.name, Err: err}
	}

	r := &rewriter{t: t, cf: cf, orig: cf.Pool.Clone(), pool: cf.Pool}
	if err := r.run(); err != nil {
		return e, &TransformError{Entry: e.Name, Stage: t.name, Err: err}
	}
	if !r.changed {
		return e, nil
	}

	return ClassEntry{
		Name: entryName(e.Name, r.className, t.mapClass(r.className)),
		Data: cf.Bytes(),
	}, nil
}

// entryName moves an entry along with its class, keeping any prefix such as
// a multi-release version directory.
func entryName(entry, from, to string) string {
	if from == to || !strings.HasSuffix(entry, from+".class") {
		return entry
	}
	return entry[:len(entry)-len(from)-len(".class")] + to + ".class"
}

func (t *Transformer) mapClass(name string) string {
	return t.mapping.MapClassName(name)
}

// MapClassName implements ClassRenamer.
func (t *Transformer) MapClassName(internalName string) string {
	return t.mapClass(internalName)
}

// walk visits owner and, with a hierarchy, its ancestors.
func (t *Transformer) walk(owner string, visit func(class string) bool) {
	if t.h == nil || strings.HasPrefix(owner, "[") {
		visit(owner)
		return
	}
	t.h.Walk(owner, visit)
}

// fieldName maps a field reference, searching supertypes when the owner
// itself has no mapping for it.
func (t *Transformer) fieldName(owner, name, desc string) string {
	mapped := name
	t.walk(owner, func(class string) bool {
		if f, ok := t.mapping.Field(class, name, desc); ok {
			mapped = f.Mapped()
			return false
		}
		return true
	})
	return mapped
}

// methodName maps a method reference, searching supertypes when the owner
// itself has no mapping for it.
func (t *Transformer) methodName(owner, name, desc string) string {
	if name == "<init>" || name == "<clinit>" {
		return name
	}
	mapped := name
	t.walk(owner, func(class string) bool {
		if m, ok := t.mapping.Method(class, name, desc); ok {
			mapped = m.Mapped()
			return false
		}
		return true
	})
	return mapped
}

// declaredMethodName maps a method declaration. Methods that cannot override
// are looked up on their own class only.
func (t *Transformer) declaredMethodName(owner, name, desc string, access uint16) string {
	if access&(classfile.AccPrivate|classfile.AccStatic) != 0 {
		if m, ok := t.mapping.Method(owner, name, desc); ok {
			return m.Mapped()
		}
		return name
	}
	return t.methodName(owner, name, desc)
}

// declaredFieldName maps a field declaration on its own class.
func (t *Transformer) declaredFieldName(owner, name, desc string) string {
	if f, ok := t.mapping.Field(owner, name, desc); ok {
		return f.Mapped()
	}
	return name
}

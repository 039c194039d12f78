package remap

import (
	"fmt"

	"github.com/mvp-joe/project-remapper/internal/classfile"
	"github.com/mvp-joe/project-remapper/internal/descriptor"
	"github.com/mvp-joe/project-remapper/internal/mapping"
)

// rewriter holds the state of one TransformClass call. Names are always read
// from orig, the pool as parsed; new entries are added to pool.
type rewriter struct {
	t         *Transformer
	cf        *classfile.ClassFile
	orig      *classfile.Pool
	pool      *classfile.Pool
	className string
	changed   bool
}

// scope is what attribute rewriting needs to know about the attribute's
// owner.
type scope struct {
	method *mapping.MethodMapping // parameter names, for Code and MethodParameters
	slots  map[int]bool           // local variable slots holding parameters
	order  []int                  // slot of each parameter, in order
}

func (r *rewriter) run() error {
	name, err := r.orig.ClassName(r.cf.This)
	if err != nil {
		return err
	}
	r.className = name

	if err := r.constants(); err != nil {
		return err
	}
	for _, f := range r.cf.Fields {
		if err := r.field(f); err != nil {
			return err
		}
	}
	for _, m := range r.cf.Methods {
		if err := r.method(m); err != nil {
			return err
		}
	}
	for _, a := range r.cf.Attributes {
		if err := r.attribute(a, scope{}); err != nil {
			return err
		}
	}
	return nil
}

func (r *rewriter) mapClass(name string) string {
	return r.t.mapClass(name)
}

func (r *rewriter) mapDesc(desc string) string {
	return descriptor.Map(desc, r.t.mapClass)
}

func (r *rewriter) mapSignature(sig string) (string, error) {
	return descriptor.MapSignature(sig, r.t.mapClass)
}

// utf8 returns the index of s, adding it when needed.
func (r *rewriter) utf8(s string) (uint16, error) {
	r.changed = true
	return r.pool.AddUtf8(s)
}

// constants repoints class, member reference, dynamic and method type
// entries.
func (r *rewriter) constants() error {
	for i := 1; i < r.orig.Len(); i++ {
		idx := uint16(i)
		c, err := r.orig.Get(idx)
		if err != nil {
			continue // unusable slot after Long or Double
		}
		switch c.Tag {
		case classfile.TagClass:
			err = r.classConstant(idx, c)
		case classfile.TagFieldref, classfile.TagMethodref, classfile.TagInterfaceMethodref:
			err = r.memberRef(idx, c)
		case classfile.TagInvokeDynamic, classfile.TagDynamic:
			err = r.dynamic(idx, c)
		case classfile.TagMethodType:
			err = r.methodType(idx, c)
		}
		if err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	return nil
}

func (r *rewriter) classConstant(idx uint16, c *classfile.Constant) error {
	name, err := r.orig.Utf8(c.A)
	if err != nil {
		return err
	}
	mapped := descriptor.MapType(name, r.t.mapClass)
	if mapped == name {
		return nil
	}
	u, err := r.utf8(mapped)
	if err != nil {
		return err
	}
	target, _ := r.pool.Get(idx)
	target.A = u
	return nil
}

func (r *rewriter) memberRef(idx uint16, c *classfile.Constant) error {
	owner, name, desc, err := r.orig.MemberRef(idx)
	if err != nil {
		return err
	}

	var mapped string
	if c.Tag == classfile.TagFieldref {
		mapped = r.t.fieldName(owner, name, desc)
	} else {
		mapped = r.t.methodName(owner, name, desc)
	}
	mappedDesc := r.mapDesc(desc)
	if mapped == name && mappedDesc == desc {
		return nil
	}
	return r.repointNameAndType(idx, mapped, mappedDesc)
}

// dynamic rewrites the descriptor of invokedynamic and condy entries. Their
// names are bootstrap-defined and kept.
func (r *rewriter) dynamic(idx uint16, c *classfile.Constant) error {
	name, desc, err := r.orig.NameAndType(c.B)
	if err != nil {
		return err
	}
	mappedDesc := r.mapDesc(desc)
	if mappedDesc == desc {
		return nil
	}
	return r.repointNameAndType(idx, name, mappedDesc)
}

func (r *rewriter) repointNameAndType(idx uint16, name, desc string) error {
	nat, err := r.pool.AddNameAndType(name, desc)
	if err != nil {
		return err
	}
	r.changed = true
	target, _ := r.pool.Get(idx)
	target.B = nat
	return nil
}

func (r *rewriter) methodType(idx uint16, c *classfile.Constant) error {
	desc, err := r.orig.Utf8(c.A)
	if err != nil {
		return err
	}
	mapped := r.mapDesc(desc)
	if mapped == desc {
		return nil
	}
	u, err := r.utf8(mapped)
	if err != nil {
		return err
	}
	target, _ := r.pool.Get(idx)
	target.A = u
	return nil
}

// member renames a declaration and rewrites its descriptor.
func (r *rewriter) member(m *classfile.Member, mapName func(name, desc string) string) (name, desc string, err error) {
	if name, err = r.orig.Utf8(m.Name); err != nil {
		return "", "", err
	}
	if desc, err = r.orig.Utf8(m.Desc); err != nil {
		return "", "", err
	}

	if mapped := mapName(name, desc); mapped != name {
		if m.Name, err = r.utf8(mapped); err != nil {
			return "", "", err
		}
	}
	if mapped := r.mapDesc(desc); mapped != desc {
		if m.Desc, err = r.utf8(mapped); err != nil {
			return "", "", err
		}
	}
	return name, desc, nil
}

func (r *rewriter) field(f *classfile.Member) error {
	name, _, err := r.member(f, func(name, desc string) string {
		return r.t.declaredFieldName(r.className, name, desc)
	})
	if err != nil {
		return fmt.Errorf("field: %w", err)
	}
	for _, a := range f.Attributes {
		if err := r.attribute(a, scope{}); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
	}
	return nil
}

func (r *rewriter) method(m *classfile.Member) error {
	name, desc, err := r.member(m, func(name, desc string) string {
		return r.t.declaredMethodName(r.className, name, desc, m.Access)
	})
	if err != nil {
		return fmt.Errorf("method: %w", err)
	}

	s := scope{}
	if mm, ok := r.t.mapping.Method(r.className, name, desc); ok && len(mm.Params()) > 0 {
		parsed, err := descriptor.ParseMethod(desc)
		if err != nil {
			return fmt.Errorf("method %s: %w", name, err)
		}
		s.method = mm
		s.order = parsed.ParameterSlots(m.Access&classfile.AccStatic != 0)
		s.slots = make(map[int]bool, len(s.order))
		for _, slot := range s.order {
			s.slots[slot] = true
		}
	}

	for _, a := range m.Attributes {
		if err := r.attribute(a, s); err != nil {
			return fmt.Errorf("method %s%s: %w", name, desc, err)
		}
	}
	return nil
}

// paramName returns the mapped name of the parameter in slot, if any.
func (s scope) paramName(slot int) (string, bool) {
	if s.method == nil || !s.slots[slot] {
		return "", false
	}
	p, ok := s.method.Param(slot)
	if !ok || p.To == "" {
		return "", false
	}
	return p.To, true
}

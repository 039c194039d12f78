package remap

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/project-remapper/internal/classfile"
	"github.com/mvp-joe/project-remapper/internal/descriptor"
)

// Attribute bodies are patched in place. Every rewrite replaces one u2
// constant pool index with another, so lengths never change.

func (r *rewriter) attribute(a *classfile.Attribute, s scope) error {
	name, err := r.orig.Utf8(a.Name)
	if err != nil {
		return err
	}
	return r.attributeBody(name, a.Data, s)
}

// attributeTable walks a nested attribute table (Code, Record components).
func (r *rewriter) attributeTable(c *classfile.Cursor, s scope) error {
	n := int(c.U2())
	for i := 0; i < n; i++ {
		nameIdx := c.U2()
		data := c.Bytes(int(c.U4()))
		if c.Err() != nil {
			return c.Err()
		}
		name, err := r.orig.Utf8(nameIdx)
		if err != nil {
			return err
		}
		if err := r.attributeBody(name, data, s); err != nil {
			return err
		}
	}
	return c.Err()
}

func (r *rewriter) attributeBody(name string, data []byte, s scope) error {
	c := classfile.NewCursor(data)
	var err error
	switch name {
	case "Signature":
		err = r.patchUtf8(c, r.mapSignature)
	case "Code":
		err = r.code(c, s)
	case "LocalVariableTable":
		err = r.localVariables(c, s, func(desc string) (string, error) { return r.mapDesc(desc), nil })
	case "LocalVariableTypeTable":
		err = r.localVariables(c, s, r.mapSignature)
	case "MethodParameters":
		err = r.methodParameters(c, s)
	case "InnerClasses":
		err = r.innerClasses(c)
	case "EnclosingMethod":
		err = r.enclosingMethod(c)
	case "Record":
		err = r.record(c)
	case "RuntimeVisibleAnnotations", "RuntimeInvisibleAnnotations":
		err = r.annotations(c)
	case "RuntimeVisibleParameterAnnotations", "RuntimeInvisibleParameterAnnotations":
		err = r.parameterAnnotations(c)
	case "RuntimeVisibleTypeAnnotations", "RuntimeInvisibleTypeAnnotations":
		err = r.typeAnnotations(c)
	case "AnnotationDefault":
		err = r.elementValue(c)
	default:
		return nil
	}
	if err == nil {
		err = c.Err()
	}
	if err != nil {
		return fmt.Errorf("%s attribute: %w", name, err)
	}
	return nil
}

// patchUtf8 reads a Utf8 index at the cursor and, when fn changes its value,
// points it at the new value. Index 0 is left alone.
func (r *rewriter) patchUtf8(c *classfile.Cursor, fn func(string) (string, error)) error {
	off := c.Pos()
	idx := c.U2()
	if c.Err() != nil || idx == 0 {
		return c.Err()
	}
	old, err := r.orig.Utf8(idx)
	if err != nil {
		return err
	}
	mapped, err := fn(old)
	if err != nil {
		return err
	}
	if mapped == old {
		return nil
	}
	return r.setUtf8(c, off, mapped)
}

func (r *rewriter) setUtf8(c *classfile.Cursor, off int, value string) error {
	u, err := r.utf8(value)
	if err != nil {
		return err
	}
	c.PutU2(off, u)
	return nil
}

func (r *rewriter) code(c *classfile.Cursor, s scope) error {
	c.Skip(4) // max_stack, max_locals
	c.Skip(int(c.U4()))
	c.Skip(int(c.U2()) * 8)
	return r.attributeTable(c, s)
}

func (r *rewriter) localVariables(c *classfile.Cursor, s scope, mapType func(string) (string, error)) error {
	n := int(c.U2())
	for i := 0; i < n; i++ {
		c.Skip(4) // start_pc, length
		nameOff := c.Pos()
		c.Skip(2)
		if err := r.patchUtf8(c, mapType); err != nil {
			return err
		}
		slot := int(c.U2())
		if c.Err() != nil {
			return c.Err()
		}
		if mapped, ok := s.paramName(slot); ok {
			if err := r.setUtf8(c, nameOff, mapped); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *rewriter) methodParameters(c *classfile.Cursor, s scope) error {
	n := int(c.U1())
	for i := 0; i < n; i++ {
		off := c.Pos()
		c.Skip(4) // name_index, access_flags
		if c.Err() != nil {
			return c.Err()
		}
		// Compiler-generated parameters make the table disagree with the
		// descriptor; slots are then unknown.
		if len(s.order) != n {
			continue
		}
		if mapped, ok := s.paramName(s.order[i]); ok {
			if err := r.setUtf8(c, off, mapped); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *rewriter) innerClasses(c *classfile.Cursor) error {
	n := int(c.U2())
	for i := 0; i < n; i++ {
		innerIdx, outerIdx := c.U2(), c.U2()
		simpleOff := c.Pos()
		simpleIdx := c.U2()
		c.Skip(2) // access_flags
		if c.Err() != nil {
			return c.Err()
		}
		if simpleIdx == 0 {
			continue // anonymous
		}

		inner, err := r.orig.ClassName(innerIdx)
		if err != nil {
			return err
		}
		mappedInner := r.mapClass(inner)
		if mappedInner == inner {
			continue
		}
		simple, err := r.orig.Utf8(simpleIdx)
		if err != nil {
			return err
		}

		var mappedSimple string
		if outerIdx != 0 {
			outer, err := r.orig.ClassName(outerIdx)
			if err != nil {
				return err
			}
			mappedSimple = descriptor.SimpleName(r.mapClass(outer), mappedInner)
		} else {
			mappedSimple = localSimpleName(mappedInner)
		}
		if mappedSimple == "" || mappedSimple == simple {
			continue
		}
		if err := r.setUtf8(c, simpleOff, mappedSimple); err != nil {
			return err
		}
	}
	return nil
}

// localSimpleName strips the outer name and the compiler's numeric prefix
// from a local class name ("Outer$1Local" gives "Local").
func localSimpleName(name string) string {
	s := name[max(strings.LastIndexByte(name, '$'), strings.LastIndexByte(name, '/'))+1:]
	return strings.TrimLeft(s, "0123456789")
}

func (r *rewriter) enclosingMethod(c *classfile.Cursor) error {
	ownerIdx := c.U2()
	natOff := c.Pos()
	natIdx := c.U2()
	if c.Err() != nil || natIdx == 0 {
		return c.Err()
	}
	owner, err := r.orig.ClassName(ownerIdx)
	if err != nil {
		return err
	}
	name, desc, err := r.orig.NameAndType(natIdx)
	if err != nil {
		return err
	}

	mapped, mappedDesc := r.t.methodName(owner, name, desc), r.mapDesc(desc)
	if mapped == name && mappedDesc == desc {
		return nil
	}
	nat, err := r.pool.AddNameAndType(mapped, mappedDesc)
	if err != nil {
		return err
	}
	r.changed = true
	c.PutU2(natOff, nat)
	return nil
}

// record renames components as the fields they are backed by.
func (r *rewriter) record(c *classfile.Cursor) error {
	n := int(c.U2())
	for i := 0; i < n; i++ {
		nameOff := c.Pos()
		nameIdx, descIdx := c.U2(), c.U2()
		if c.Err() != nil {
			return c.Err()
		}
		name, err := r.orig.Utf8(nameIdx)
		if err != nil {
			return err
		}
		desc, err := r.orig.Utf8(descIdx)
		if err != nil {
			return err
		}

		if mapped := r.t.declaredFieldName(r.className, name, desc); mapped != name {
			if err := r.setUtf8(c, nameOff, mapped); err != nil {
				return err
			}
		}
		if mapped := r.mapDesc(desc); mapped != desc {
			if err := r.setUtf8(c, nameOff+2, mapped); err != nil {
				return err
			}
		}
		if err := r.attributeTable(c, scope{}); err != nil {
			return fmt.Errorf("record component %s: %w", name, err)
		}
	}
	return nil
}

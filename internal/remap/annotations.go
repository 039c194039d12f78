package remap

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/project-remapper/internal/classfile"
)

func (r *rewriter) annotations(c *classfile.Cursor) error {
	n := int(c.U2())
	for i := 0; i < n && c.Err() == nil; i++ {
		if err := r.annotation(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *rewriter) parameterAnnotations(c *classfile.Cursor) error {
	n := int(c.U1())
	for i := 0; i < n && c.Err() == nil; i++ {
		if err := r.annotations(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *rewriter) typeAnnotations(c *classfile.Cursor) error {
	n := int(c.U2())
	for i := 0; i < n && c.Err() == nil; i++ {
		if err := skipTargetInfo(c); err != nil {
			return err
		}
		c.Skip(int(c.U1()) * 2) // type_path
		if err := r.annotation(c); err != nil {
			return err
		}
	}
	return nil
}

func skipTargetInfo(c *classfile.Cursor) error {
	switch target := c.U1(); {
	case target == 0x00 || target == 0x01: // type parameter
		c.Skip(1)
	case target == 0x10: // supertype
		c.Skip(2)
	case target == 0x11 || target == 0x12: // type parameter bound
		c.Skip(2)
	case target >= 0x13 && target <= 0x15: // empty
	case target == 0x16: // formal parameter
		c.Skip(1)
	case target == 0x17: // throws
		c.Skip(2)
	case target == 0x40 || target == 0x41: // local variable
		c.Skip(int(c.U2()) * 6)
	case target == 0x42: // catch
		c.Skip(2)
	case target >= 0x43 && target <= 0x46: // offset
		c.Skip(2)
	case target >= 0x47 && target <= 0x4B: // type argument
		c.Skip(3)
	default:
		if c.Err() != nil {
			return c.Err()
		}
		return fmt.Errorf("%w: unknown type annotation target 0x%02x", classfile.ErrMalformed, target)
	}
	return c.Err()
}

// annotation rewrites the type and element names of one annotation. Element
// names are the annotation type's methods.
func (r *rewriter) annotation(c *classfile.Cursor) error {
	typeOff := c.Pos()
	typeIdx := c.U2()
	if c.Err() != nil {
		return c.Err()
	}
	typeDesc, err := r.orig.Utf8(typeIdx)
	if err != nil {
		return err
	}
	if mapped := r.mapDesc(typeDesc); mapped != typeDesc {
		if err := r.setUtf8(c, typeOff, mapped); err != nil {
			return err
		}
	}
	annotationType := strings.TrimSuffix(strings.TrimPrefix(typeDesc, "L"), ";")

	n := int(c.U2())
	for i := 0; i < n && c.Err() == nil; i++ {
		if err := r.patchUtf8(c, func(name string) (string, error) {
			return r.elementName(annotationType, name), nil
		}); err != nil {
			return err
		}
		if err := r.elementValue(c); err != nil {
			return err
		}
	}
	return c.Err()
}

func (r *rewriter) elementName(annotationType, name string) string {
	cm, ok := r.t.mapping.Class(annotationType)
	if !ok {
		return name
	}
	m, ok := cm.MethodByName(name, func(desc string) bool { return strings.HasPrefix(desc, "()") })
	if !ok {
		return name
	}
	return m.Mapped()
}

func (r *rewriter) elementValue(c *classfile.Cursor) error {
	switch tag := c.U1(); tag {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 's':
		c.Skip(2)
	case 'e':
		typeOff := c.Pos()
		typeIdx := c.U2()
		if c.Err() != nil {
			return c.Err()
		}
		typeDesc, err := r.orig.Utf8(typeIdx)
		if err != nil {
			return err
		}
		if mapped := r.mapDesc(typeDesc); mapped != typeDesc {
			if err := r.setUtf8(c, typeOff, mapped); err != nil {
				return err
			}
		}
		enumType := strings.TrimSuffix(strings.TrimPrefix(typeDesc, "L"), ";")
		return r.patchUtf8(c, func(name string) (string, error) {
			return r.t.declaredFieldName(enumType, name, typeDesc), nil
		})
	case 'c':
		return r.patchUtf8(c, func(desc string) (string, error) { return r.mapDesc(desc), nil })
	case '@':
		return r.annotation(c)
	case '[':
		n := int(c.U2())
		for i := 0; i < n && c.Err() == nil; i++ {
			if err := r.elementValue(c); err != nil {
				return err
			}
		}
	default:
		if c.Err() != nil {
			return c.Err()
		}
		return fmt.Errorf("%w: unknown element value tag %q", classfile.ErrMalformed, tag)
	}
	return c.Err()
}

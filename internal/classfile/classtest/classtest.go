// Package classtest assembles small class files for tests.
package classtest

import (
	"encoding/binary"

	"github.com/mvp-joe/project-remapper/internal/classfile"
)

// Opcodes used by the helpers.
const (
	OpAload0          = 0x2a
	OpLdcW            = 0x13
	OpReturn          = 0xb1
	OpGetStatic       = 0xb2
	OpGetField        = 0xb4
	OpPutField        = 0xb5
	OpInvokeVirtual   = 0xb6
	OpInvokeSpecial   = 0xb7
	OpInvokeStatic    = 0xb8
	OpInvokeInterface = 0xb9
	OpInvokeDynamic   = 0xba
)

// Class builds one class file. Helpers panic on pool overflow, which only a
// broken test can cause.
type Class struct {
	cf *classfile.ClassFile
}

// New starts a public class. super may be empty.
func New(name, super string, interfaces ...string) *Class {
	c := &Class{cf: &classfile.ClassFile{
		Major:  61,
		Pool:   classfile.NewPool(),
		Access: classfile.AccPublic | 0x0020,
	}}
	c.cf.This = c.class(name)
	if super != "" {
		c.cf.Super = c.class(super)
	}
	for _, i := range interfaces {
		c.cf.Interfaces = append(c.cf.Interfaces, c.class(i))
	}
	return c
}

func must(i uint16, err error) uint16 {
	if err != nil {
		panic(err)
	}
	return i
}

func (c *Class) utf8(s string) uint16 { return must(c.cf.Pool.AddUtf8(s)) }
func (c *Class) class(s string) uint16 { return must(c.cf.Pool.AddClass(s)) }

// Pool exposes the constant pool for custom entries.
func (c *Class) Pool() *classfile.Pool { return c.cf.Pool }

// Access replaces the class access flags.
func (c *Class) Access(flags uint16) *Class {
	c.cf.Access = flags
	return c
}

// Field declares a field.
func (c *Class) Field(access uint16, name, desc string, attrs ...*classfile.Attribute) *Class {
	c.cf.Fields = append(c.cf.Fields, &classfile.Member{Access: access, Name: c.utf8(name), Desc: c.utf8(desc), Attributes: attrs})
	return c
}

// Method declares a method.
func (c *Class) Method(access uint16, name, desc string, attrs ...*classfile.Attribute) *Class {
	c.cf.Methods = append(c.cf.Methods, &classfile.Member{Access: access, Name: c.utf8(name), Desc: c.utf8(desc), Attributes: attrs})
	return c
}

// Attr adds a class-level attribute.
func (c *Class) Attr(attrs ...*classfile.Attribute) *Class {
	c.cf.Attributes = append(c.cf.Attributes, attrs...)
	return c
}

// Bytes serialises the class.
func (c *Class) Bytes() []byte {
	return c.cf.Bytes()
}

// Attribute builds a raw attribute.
func (c *Class) Attribute(name string, data []byte) *classfile.Attribute {
	return &classfile.Attribute{Name: c.utf8(name), Data: data}
}

// Signature builds a Signature attribute.
func (c *Class) Signature(sig string) *classfile.Attribute {
	return c.Attribute("Signature", u2(nil, c.utf8(sig)))
}

// Code builds a Code attribute with an empty exception table.
func (c *Class) Code(maxStack, maxLocals uint16, bytecode []byte, attrs ...*classfile.Attribute) *classfile.Attribute {
	code := &classfile.Code{MaxStack: maxStack, MaxLocals: maxLocals, Bytecode: bytecode, Attributes: attrs}
	return c.Attribute("Code", code.Bytes())
}

// LocalVar is one LocalVariableTable row covering the whole method.
type LocalVar struct {
	Index uint16
	Name  string
	Desc  string
}

// LocalVariableTable builds a LocalVariableTable attribute.
func (c *Class) LocalVariableTable(vars ...LocalVar) *classfile.Attribute {
	data := u2(nil, uint16(len(vars)))
	for _, v := range vars {
		data = u2(data, 0)
		data = u2(data, 0xFFFF)
		data = u2(data, c.utf8(v.Name))
		data = u2(data, c.utf8(v.Desc))
		data = u2(data, v.Index)
	}
	return c.Attribute("LocalVariableTable", data)
}

// MethodParameters builds a MethodParameters attribute. Empty names are
// written as index 0.
func (c *Class) MethodParameters(names ...string) *classfile.Attribute {
	data := []byte{byte(len(names))}
	for _, n := range names {
		idx := uint16(0)
		if n != "" {
			idx = c.utf8(n)
		}
		data = u2(data, idx)
		data = u2(data, 0)
	}
	return c.Attribute("MethodParameters", data)
}

// InnerClass is one InnerClasses row. Outer and Simple may be empty.
type InnerClass struct {
	Inner  string
	Outer  string
	Simple string
	Access uint16
}

// InnerClasses builds an InnerClasses attribute.
func (c *Class) InnerClasses(rows ...InnerClass) *classfile.Attribute {
	data := u2(nil, uint16(len(rows)))
	for _, r := range rows {
		data = u2(data, c.class(r.Inner))
		outer, simple := uint16(0), uint16(0)
		if r.Outer != "" {
			outer = c.class(r.Outer)
		}
		if r.Simple != "" {
			simple = c.utf8(r.Simple)
		}
		data = u2(data, outer)
		data = u2(data, simple)
		data = u2(data, r.Access)
	}
	return c.Attribute("InnerClasses", data)
}

// EnclosingMethod builds an EnclosingMethod attribute; name may be empty.
func (c *Class) EnclosingMethod(owner, name, desc string) *classfile.Attribute {
	data := u2(nil, c.class(owner))
	nat := uint16(0)
	if name != "" {
		nat = must(c.cf.Pool.AddNameAndType(name, desc))
	}
	return c.Attribute("EnclosingMethod", u2(data, nat))
}

// Record builds a Record attribute whose components carry no attributes.
func (c *Class) Record(components ...LocalVar) *classfile.Attribute {
	data := u2(nil, uint16(len(components)))
	for _, rc := range components {
		data = u2(data, c.utf8(rc.Name))
		data = u2(data, c.utf8(rc.Desc))
		data = u2(data, 0)
	}
	return c.Attribute("Record", data)
}

// Invoke emits an invoke instruction referencing owner.name desc.
func (c *Class) Invoke(opcode byte, owner, name, desc string) []byte {
	tag := classfile.TagMethodref
	if opcode == OpInvokeInterface {
		tag = classfile.TagInterfaceMethodref
	}
	idx := must(c.cf.Pool.AddMemberRef(tag, owner, name, desc))
	out := u2([]byte{opcode}, idx)
	if opcode == OpInvokeInterface {
		out = append(out, 1, 0)
	}
	return out
}

// FieldInsn emits a field access instruction.
func (c *Class) FieldInsn(opcode byte, owner, name, desc string) []byte {
	idx := must(c.cf.Pool.AddMemberRef(classfile.TagFieldref, owner, name, desc))
	return u2([]byte{opcode}, idx)
}

// InvokeDynamic emits an invokedynamic referencing bootstrap method 0.
func (c *Class) InvokeDynamic(name, desc string) []byte {
	idx := must(c.cf.Pool.AddInvokeDynamic(0, name, desc))
	return append(u2([]byte{OpInvokeDynamic}, idx), 0, 0)
}

// LdcClass emits ldc_w of a class literal.
func (c *Class) LdcClass(name string) []byte {
	return u2([]byte{OpLdcW}, c.class(name))
}

// LdcString emits ldc_w of a string literal.
func (c *Class) LdcString(s string) []byte {
	return u2([]byte{OpLdcW}, must(c.cf.Pool.AddString(s)))
}

// Concat joins instruction fragments.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func u2(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

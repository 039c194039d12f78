// Package classfile parses JVM class files into a model that keeps attribute
// bodies as raw bytes, and serialises the model back. A parsed file that is
// not modified serialises to the original bytes.
package classfile

import (
	"errors"
	"fmt"
)

// Magic is the first four bytes of every class file.
const Magic = 0xCAFEBABE

// Access flags used by the remapper.
const (
	AccPublic     = 0x0001
	AccPrivate    = 0x0002
	AccProtected  = 0x0004
	AccStatic     = 0x0008
	AccFinal      = 0x0010
	AccBridge     = 0x0040
	AccVarargs    = 0x0080
	AccInterface  = 0x0200
	AccAbstract   = 0x0400
	AccSynthetic  = 0x1000
	AccAnnotation = 0x2000
	AccEnum       = 0x4000
)

// ErrMalformed indicates bytes that are not a well-formed class file.
var ErrMalformed = errors.New("malformed class file")

// ClassFile is a parsed class file.
type ClassFile struct {
	Minor      uint16
	Major      uint16
	Pool       *Pool
	Access     uint16
	This       uint16
	Super      uint16 // 0 for java/lang/Object and module-info
	Interfaces []uint16
	Fields     []*Member
	Methods    []*Member
	Attributes []*Attribute
}

// Member is a field_info or method_info.
type Member struct {
	Access     uint16
	Name       uint16
	Desc       uint16
	Attributes []*Attribute
}

// Attribute is an attribute with its body kept raw.
type Attribute struct {
	Name uint16
	Data []byte
}

// Parse reads a complete class file. Attribute bodies are copied, so the
// model may be modified without touching data.
func Parse(data []byte) (*ClassFile, error) {
	c := NewCursor(data)
	cf, err := parseHeader(c)
	if err != nil {
		return nil, err
	}

	if cf.Fields, err = parseMembers(c); err != nil {
		return nil, err
	}
	if cf.Methods, err = parseMembers(c); err != nil {
		return nil, err
	}
	if cf.Attributes, err = parseAttributes(c); err != nil {
		return nil, err
	}
	if c.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, c.Remaining())
	}
	return cf, nil
}

func parseHeader(c *Cursor) (*ClassFile, error) {
	if magic := c.U4(); magic != Magic {
		if c.Err() != nil {
			return nil, c.Err()
		}
		return nil, fmt.Errorf("%w: bad magic 0x%08X", ErrMalformed, magic)
	}
	cf := &ClassFile{Minor: c.U2(), Major: c.U2()}
	if c.Err() != nil {
		return nil, c.Err()
	}

	pool, err := parsePool(c)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool

	cf.Access, cf.This, cf.Super = c.U2(), c.U2(), c.U2()
	n := int(c.U2())
	cf.Interfaces = make([]uint16, n)
	for i := range cf.Interfaces {
		cf.Interfaces[i] = c.U2()
	}
	if c.Err() != nil {
		return nil, c.Err()
	}
	return cf, nil
}

func parseMembers(c *Cursor) ([]*Member, error) {
	n := int(c.U2())
	members := make([]*Member, 0, n)
	for i := 0; i < n; i++ {
		m := &Member{Access: c.U2(), Name: c.U2(), Desc: c.U2()}
		attrs, err := parseAttributes(c)
		if err != nil {
			return nil, err
		}
		m.Attributes = attrs
		members = append(members, m)
	}
	return members, c.Err()
}

func parseAttributes(c *Cursor) ([]*Attribute, error) {
	n := int(c.U2())
	attrs := make([]*Attribute, 0, n)
	for i := 0; i < n; i++ {
		name := c.U2()
		data := c.Bytes(int(c.U4()))
		if c.Err() != nil {
			return nil, c.Err()
		}
		attrs = append(attrs, &Attribute{Name: name, Data: append([]byte(nil), data...)})
	}
	return attrs, c.Err()
}

// Bytes serialises the class file.
func (cf *ClassFile) Bytes() []byte {
	w := &writer{}
	w.u4(Magic)
	w.u2(cf.Minor)
	w.u2(cf.Major)
	cf.Pool.write(w)
	w.u2(cf.Access)
	w.u2(cf.This)
	w.u2(cf.Super)
	w.u2(uint16(len(cf.Interfaces)))
	for _, i := range cf.Interfaces {
		w.u2(i)
	}
	writeMembers(w, cf.Fields)
	writeMembers(w, cf.Methods)
	writeAttributes(w, cf.Attributes)
	return w.buf
}

func writeMembers(w *writer, members []*Member) {
	w.u2(uint16(len(members)))
	for _, m := range members {
		w.u2(m.Access)
		w.u2(m.Name)
		w.u2(m.Desc)
		writeAttributes(w, m.Attributes)
	}
}

func writeAttributes(w *writer, attrs []*Attribute) {
	w.u2(uint16(len(attrs)))
	for _, a := range attrs {
		w.u2(a.Name)
		w.u4(uint32(len(a.Data)))
		w.bytes(a.Data)
	}
}

// Name returns the internal name of this class.
func (cf *ClassFile) Name() (string, error) {
	return cf.Pool.ClassName(cf.This)
}

// SuperName returns the superclass, or "" when there is none.
func (cf *ClassFile) SuperName() (string, error) {
	if cf.Super == 0 {
		return "", nil
	}
	return cf.Pool.ClassName(cf.Super)
}

// InterfaceNames returns the direct superinterfaces in declaration order.
func (cf *ClassFile) InterfaceNames() ([]string, error) {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		name, err := cf.Pool.ClassName(idx)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

// AttributeName returns the name of a.
func (cf *ClassFile) AttributeName(a *Attribute) (string, error) {
	return cf.Pool.Utf8(a.Name)
}

// Header is the part of a class file the inheritance context needs.
type Header struct {
	Access     uint16
	Name       string
	Super      string
	Interfaces []string
}

// ReadHeader parses only up to the interface table.
func ReadHeader(data []byte) (*Header, error) {
	cf, err := parseHeader(NewCursor(data))
	if err != nil {
		return nil, err
	}
	h := &Header{Access: cf.Access}
	if h.Name, err = cf.Name(); err != nil {
		return nil, err
	}
	if h.Super, err = cf.SuperName(); err != nil {
		return nil, err
	}
	if h.Interfaces, err = cf.InterfaceNames(); err != nil {
		return nil, err
	}
	return h, nil
}

package classfile

import "fmt"

// Code is a decoded Code attribute. The bytecode and exception table are
// kept raw; constant pool references inside them are never rewritten.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []byte // exception_table_length * 8 bytes
	Attributes     []*Attribute
}

// ParseCode decodes a Code attribute body.
func ParseCode(data []byte) (*Code, error) {
	c := NewCursor(data)
	code := &Code{MaxStack: c.U2(), MaxLocals: c.U2()}
	code.Bytecode = c.Bytes(int(c.U4()))
	code.ExceptionTable = c.Bytes(int(c.U2()) * 8)
	if c.Err() != nil {
		return nil, fmt.Errorf("code attribute: %w", c.Err())
	}
	attrs, err := parseAttributes(c)
	if err != nil {
		return nil, fmt.Errorf("code attribute: %w", err)
	}
	if c.Remaining() != 0 {
		return nil, fmt.Errorf("%w: code attribute has %d trailing bytes", ErrMalformed, c.Remaining())
	}
	code.Attributes = attrs
	return code, nil
}

// Bytes re-encodes the attribute body.
func (code *Code) Bytes() []byte {
	w := &writer{}
	w.u2(code.MaxStack)
	w.u2(code.MaxLocals)
	w.u4(uint32(len(code.Bytecode)))
	w.bytes(code.Bytecode)
	w.u2(uint16(len(code.ExceptionTable) / 8))
	w.bytes(code.ExceptionTable)
	writeAttributes(w, code.Attributes)
	return w.buf
}

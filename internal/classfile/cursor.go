package classfile

import (
	"encoding/binary"
	"fmt"
)

// Cursor reads big-endian values from a byte slice and patches u2 values in
// place. Reads past the end set a sticky error and return zero.
type Cursor struct {
	data []byte
	pos  int
	err  error
}

// NewCursor starts reading data at offset 0.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Err returns the first overrun, if any.
func (c *Cursor) Err() error { return c.err }

// Pos returns the current offset.
func (c *Cursor) Pos() int { return c.pos }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.data) - c.pos }

func (c *Cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if n < 0 || c.pos+n > len(c.data) {
		c.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, c.pos, len(c.data)-c.pos)
		return false
	}
	return true
}

func (c *Cursor) U1() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.data[c.pos]
	c.pos++
	return v
}

func (c *Cursor) U2() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(c.data[c.pos:])
	c.pos += 2
	return v
}

func (c *Cursor) U4() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(c.data[c.pos:])
	c.pos += 4
	return v
}

// Bytes returns the next n bytes without copying.
func (c *Cursor) Bytes(n int) []byte {
	if !c.need(n) {
		return nil
	}
	v := c.data[c.pos : c.pos+n]
	c.pos += n
	return v
}

// Skip advances n bytes.
func (c *Cursor) Skip(n int) {
	if c.need(n) {
		c.pos += n
	}
}

// PutU2 overwrites the u2 at off.
func (c *Cursor) PutU2(off int, v uint16) {
	binary.BigEndian.PutUint16(c.data[off:], v)
}

// writer accumulates a big-endian encoding.
type writer struct {
	buf []byte
}

func (w *writer) u1(v uint8) { w.buf = append(w.buf, v) }
func (w *writer) u2(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *writer) u4(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) bytes(b []byte) { w.buf = append(w.buf, b...) }

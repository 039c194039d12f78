package classfile

import (
	"errors"
	"fmt"
	"slices"
)

// Tag is a constant pool entry tag.
type Tag uint8

const (
	TagUtf8               Tag = 1
	TagInteger            Tag = 3
	TagFloat              Tag = 4
	TagLong               Tag = 5
	TagDouble             Tag = 6
	TagClass              Tag = 7
	TagString             Tag = 8
	TagFieldref           Tag = 9
	TagMethodref          Tag = 10
	TagInterfaceMethodref Tag = 11
	TagNameAndType        Tag = 12
	TagMethodHandle       Tag = 15
	TagMethodType         Tag = 16
	TagDynamic            Tag = 17
	TagInvokeDynamic      Tag = 18
	TagModule             Tag = 19
	TagPackage            Tag = 20
)

// ErrPoolFull indicates a constant pool that cannot grow past 65535 entries.
var ErrPoolFull = errors.New("constant pool full")

// Constant is one constant pool entry. The meaning of A and B depends on Tag:
//
//	Class, String, MethodType, Module, Package: A = Utf8 index
//	Fieldref, Methodref, InterfaceMethodref:    A = Class index, B = NameAndType index
//	NameAndType:                                A = name index, B = descriptor index
//	MethodHandle:                               Kind = reference kind, B = reference index
//	Dynamic, InvokeDynamic:                     A = bootstrap method index, B = NameAndType index
type Constant struct {
	Tag   Tag
	Value string // decoded Utf8
	A, B  uint16
	Kind  uint8
	Raw   []byte // numeric payload; original encoding of Utf8
}

// Pool is a constant pool. Index 0 and the slot after each Long/Double are
// unusable and hold a zero Constant.
type Pool struct {
	entries []Constant

	utf8s map[string]uint16
	nats  map[[2]uint16]uint16
	refs  map[[3]uint16]uint16 // tag, class, nat
	class map[uint16]uint16    // name index -> Class index
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{entries: make([]Constant, 1)}
}

// Clone returns a copy whose entries are independent of p.
func (p *Pool) Clone() *Pool {
	return &Pool{entries: slices.Clone(p.entries)}
}

// Len returns the constant_pool_count, one more than the highest index.
func (p *Pool) Len() int { return len(p.entries) }

// Get returns the entry at i. The pointer may be used to repoint the entry.
func (p *Pool) Get(i uint16) (*Constant, error) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i].Tag == 0 {
		return nil, fmt.Errorf("%w: invalid constant pool index %d", ErrMalformed, i)
	}
	return &p.entries[i], nil
}

func (p *Pool) expect(i uint16, tags ...Tag) (*Constant, error) {
	c, err := p.Get(i)
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if c.Tag == t {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: constant %d has tag %d, want %v", ErrMalformed, i, c.Tag, tags)
}

// Utf8 returns the string at a Utf8 entry.
func (p *Pool) Utf8(i uint16) (string, error) {
	c, err := p.expect(i, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// ClassName returns the internal name (or array descriptor) of a Class entry.
func (p *Pool) ClassName(i uint16) (string, error) {
	c, err := p.expect(i, TagClass)
	if err != nil {
		return "", err
	}
	return p.Utf8(c.A)
}

// NameAndType returns the name and descriptor of a NameAndType entry.
func (p *Pool) NameAndType(i uint16) (name, desc string, err error) {
	c, err := p.expect(i, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.Utf8(c.A); err != nil {
		return "", "", err
	}
	if desc, err = p.Utf8(c.B); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// MemberRef returns owner, name and descriptor of a field, method or
// interface method reference.
func (p *Pool) MemberRef(i uint16) (owner, name, desc string, err error) {
	c, err := p.expect(i, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return "", "", "", err
	}
	if owner, err = p.ClassName(c.A); err != nil {
		return "", "", "", err
	}
	name, desc, err = p.NameAndType(c.B)
	return owner, name, desc, err
}

func (p *Pool) add(c Constant) (uint16, error) {
	if len(p.entries) >= 0xFFFF {
		return 0, ErrPoolFull
	}
	p.entries = append(p.entries, c)
	return uint16(len(p.entries) - 1), nil
}

func (p *Pool) index() {
	if p.utf8s != nil {
		return
	}
	p.utf8s = make(map[string]uint16)
	p.nats = make(map[[2]uint16]uint16)
	p.refs = make(map[[3]uint16]uint16)
	p.class = make(map[uint16]uint16)
	for i := len(p.entries) - 1; i > 0; i-- {
		c := p.entries[i]
		switch c.Tag {
		case TagUtf8:
			p.utf8s[c.Value] = uint16(i)
		case TagNameAndType:
			p.nats[[2]uint16{c.A, c.B}] = uint16(i)
		case TagFieldref, TagMethodref, TagInterfaceMethodref:
			p.refs[[3]uint16{uint16(c.Tag), c.A, c.B}] = uint16(i)
		case TagClass:
			p.class[c.A] = uint16(i)
		}
	}
}

// AddUtf8 returns the index of a Utf8 entry holding s, appending one if
// needed.
func (p *Pool) AddUtf8(s string) (uint16, error) {
	p.index()
	if i, ok := p.utf8s[s]; ok {
		return i, nil
	}
	if len(encodeModifiedUTF8(s)) > 0xFFFF {
		return 0, fmt.Errorf("%w: string of %d bytes does not fit a Utf8 entry", ErrMalformed, len(s))
	}
	i, err := p.add(Constant{Tag: TagUtf8, Value: s})
	if err != nil {
		return 0, err
	}
	p.utf8s[s] = i
	return i, nil
}

// AddClass returns the index of a Class entry naming name.
func (p *Pool) AddClass(name string) (uint16, error) {
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	if i, ok := p.class[n]; ok {
		return i, nil
	}
	i, err := p.add(Constant{Tag: TagClass, A: n})
	if err != nil {
		return 0, err
	}
	p.class[n] = i
	return i, nil
}

// AddNameAndType returns the index of a NameAndType entry.
func (p *Pool) AddNameAndType(name, desc string) (uint16, error) {
	n, err := p.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	d, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	key := [2]uint16{n, d}
	if i, ok := p.nats[key]; ok {
		return i, nil
	}
	i, err := p.add(Constant{Tag: TagNameAndType, A: n, B: d})
	if err != nil {
		return 0, err
	}
	p.nats[key] = i
	return i, nil
}

// AddMemberRef returns the index of a Fieldref, Methodref or
// InterfaceMethodref entry.
func (p *Pool) AddMemberRef(tag Tag, owner, name, desc string) (uint16, error) {
	cls, err := p.AddClass(owner)
	if err != nil {
		return 0, err
	}
	nat, err := p.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	key := [3]uint16{uint16(tag), cls, nat}
	if i, ok := p.refs[key]; ok {
		return i, nil
	}
	i, err := p.add(Constant{Tag: tag, A: cls, B: nat})
	if err != nil {
		return 0, err
	}
	p.refs[key] = i
	return i, nil
}

// AddString returns the index of a new String entry.
func (p *Pool) AddString(s string) (uint16, error) {
	u, err := p.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagString, A: u})
}

// AddMethodType returns the index of a new MethodType entry.
func (p *Pool) AddMethodType(desc string) (uint16, error) {
	u, err := p.AddUtf8(desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagMethodType, A: u})
}

// AddInvokeDynamic returns the index of a new InvokeDynamic entry.
func (p *Pool) AddInvokeDynamic(bootstrap uint16, name, desc string) (uint16, error) {
	nat, err := p.AddNameAndType(name, desc)
	if err != nil {
		return 0, err
	}
	return p.add(Constant{Tag: TagInvokeDynamic, A: bootstrap, B: nat})
}

// AddInteger returns the index of a new Integer entry.
func (p *Pool) AddInteger(v int32) (uint16, error) {
	raw := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return p.add(Constant{Tag: TagInteger, Raw: raw})
}

// AddLong returns the index of a new Long entry; it occupies two slots.
func (p *Pool) AddLong(v int64) (uint16, error) {
	if len(p.entries) >= 0xFFFE {
		return 0, ErrPoolFull
	}
	raw := make([]byte, 8)
	for i := range raw {
		raw[i] = byte(v >> (56 - 8*i))
	}
	i, err := p.add(Constant{Tag: TagLong, Raw: raw})
	if err != nil {
		return 0, err
	}
	p.entries = append(p.entries, Constant{})
	return i, nil
}

func parsePool(c *Cursor) (*Pool, error) {
	count := int(c.U2())
	if count == 0 {
		return nil, fmt.Errorf("%w: empty constant pool", ErrMalformed)
	}
	p := &Pool{entries: make([]Constant, count)}

	for i := 1; i < count; i++ {
		tag := Tag(c.U1())
		e := Constant{Tag: tag}
		switch tag {
		case TagUtf8:
			raw := c.Bytes(int(c.U2()))
			if c.Err() != nil {
				return nil, c.Err()
			}
			v, err := decodeModifiedUTF8(raw)
			if err != nil {
				return nil, fmt.Errorf("constant %d: %w", i, err)
			}
			e.Value, e.Raw = v, append([]byte(nil), raw...)
		case TagInteger, TagFloat:
			e.Raw = append([]byte(nil), c.Bytes(4)...)
		case TagLong, TagDouble:
			e.Raw = append([]byte(nil), c.Bytes(8)...)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			e.A = c.U2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			e.A, e.B = c.U2(), c.U2()
		case TagMethodHandle:
			e.Kind, e.B = c.U1(), c.U2()
		default:
			if c.Err() != nil {
				return nil, c.Err()
			}
			return nil, fmt.Errorf("%w: unknown constant tag %d at index %d", ErrMalformed, tag, i)
		}
		if c.Err() != nil {
			return nil, c.Err()
		}
		p.entries[i] = e
		if tag == TagLong || tag == TagDouble {
			i++
		}
	}
	return p, nil
}

func (p *Pool) write(w *writer) {
	w.u2(uint16(len(p.entries)))
	for i := 1; i < len(p.entries); i++ {
		e := p.entries[i]
		if e.Tag == 0 {
			continue
		}
		w.u1(uint8(e.Tag))
		switch e.Tag {
		case TagUtf8:
			raw := e.Raw
			if raw == nil {
				raw = encodeModifiedUTF8(e.Value)
			}
			w.u2(uint16(len(raw)))
			w.bytes(raw)
		case TagInteger, TagFloat, TagLong, TagDouble:
			w.bytes(e.Raw)
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			w.u2(e.A)
		case TagMethodHandle:
			w.u1(e.Kind)
			w.u2(e.B)
		default:
			w.u2(e.A)
			w.u2(e.B)
		}
	}
}

package mapping

// Builder accumulates entries for a new MappingSet. Adding an entry that
// already exists updates its destination (when non-empty) and returns the
// existing entry. A Builder must not be used after Build.
type Builder struct {
	set *MappingSet
}

// ClassBuilder adds members to one class entry.
type ClassBuilder struct {
	c *ClassMapping
}

// MethodBuilder adds parameters to one method entry.
type MethodBuilder struct {
	m *MethodMapping
}

// NewBuilder starts a set mapping from onto to.
func NewBuilder(from, to Namespace) *Builder {
	return &Builder{set: &MappingSet{from: from, to: to, classes: make(map[string]*ClassMapping)}}
}

// Class adds or updates a class entry.
func (b *Builder) Class(from, to string) *ClassBuilder {
	c, ok := b.set.classes[from]
	if !ok {
		c = &ClassMapping{
			From:    from,
			fields:  make(map[memberKey]*FieldMapping),
			methods: make(map[memberKey]*MethodMapping),
		}
		b.set.classes[from] = c
	}
	if to != "" {
		c.To = to
	}
	return &ClassBuilder{c: c}
}

// Build returns the finished set.
func (b *Builder) Build() *MappingSet {
	s := b.set
	b.set = nil
	return s
}

// Comment sets the class comment.
func (cb *ClassBuilder) Comment(text string) *ClassBuilder {
	cb.c.Comment = text
	return cb
}

// Field adds or updates a field entry. desc may be empty.
func (cb *ClassBuilder) Field(from, desc, to string) *FieldMapping {
	key := memberKey{from, desc}
	f, ok := cb.c.fields[key]
	if !ok {
		f = &FieldMapping{From: from, Desc: desc}
		cb.c.fields[key] = f
	}
	if to != "" {
		f.To = to
	}
	return f
}

// Method adds or updates a method entry.
func (cb *ClassBuilder) Method(from, desc, to string) *MethodBuilder {
	key := memberKey{from, desc}
	m, ok := cb.c.methods[key]
	if !ok {
		m = &MethodMapping{From: from, Desc: desc, params: make(map[int]*ParameterMapping)}
		cb.c.methods[key] = m
	}
	if to != "" {
		m.To = to
	}
	return &MethodBuilder{m: m}
}

// Comment sets the method comment.
func (mb *MethodBuilder) Comment(text string) *MethodBuilder {
	mb.m.Comment = text
	return mb
}

// Param adds or updates a parameter entry keyed by local variable index.
func (mb *MethodBuilder) Param(index int, from, to string) *ParameterMapping {
	p, ok := mb.m.params[index]
	if !ok {
		p = &ParameterMapping{Index: index}
		mb.m.params[index] = p
	}
	if from != "" {
		p.From = from
	}
	if to != "" {
		p.To = to
	}
	return p
}

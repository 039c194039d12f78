package mapping

import "slices"

// EntryKind identifies the symbol kind of an Entry.
type EntryKind int

const (
	ClassEntry EntryKind = iota
	FieldEntry
	MethodEntry
	ParameterEntry
)

func (k EntryKind) String() string {
	switch k {
	case ClassEntry:
		return "class"
	case FieldEntry:
		return "field"
	case MethodEntry:
		return "method"
	case ParameterEntry:
		return "parameter"
	default:
		return "unknown"
	}
}

// Entry is one row of the flattened symbol table. To is always the effective
// destination name (derived or unchanged names included).
type Entry struct {
	Kind  EntryKind
	Owner string // owning class for members, owning method for parameters
	Name  string
	Desc  string
	Index int
	To    string
}

// Entries flattens s into a deterministic symbol→name table.
func (s *MappingSet) Entries() []Entry {
	var out []Entry
	for _, c := range s.Classes() {
		out = append(out, Entry{Kind: ClassEntry, Name: c.From, To: s.MapClassName(c.From)})
		for _, f := range c.Fields() {
			out = append(out, Entry{Kind: FieldEntry, Owner: c.From, Name: f.From, Desc: f.Desc, To: f.Mapped()})
		}
		for _, m := range c.Methods() {
			out = append(out, Entry{Kind: MethodEntry, Owner: c.From, Name: m.From, Desc: m.Desc, To: m.Mapped()})
			for _, p := range m.Params() {
				out = append(out, Entry{Kind: ParameterEntry, Owner: c.From + "." + m.From + m.Desc, Name: p.From, Index: p.Index, To: p.To})
			}
		}
	}
	return out
}

// Equal reports whether both sets have the same namespaces and symbol table.
// Comments are ignored.
func (s *MappingSet) Equal(o *MappingSet) bool {
	if s.from != o.from || s.to != o.to {
		return false
	}
	return slices.Equal(s.Entries(), o.Entries())
}

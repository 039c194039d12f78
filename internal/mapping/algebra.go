package mapping

import (
	"github.com/mvp-joe/project-remapper/internal/descriptor"
)

// Aliases maps alternative namespace names onto their canonical name.
type Aliases map[Namespace]Namespace

// Canonical returns the canonical name of ns.
func (a Aliases) Canonical(ns Namespace) Namespace {
	if c, ok := a[ns]; ok {
		return c
	}
	return ns
}

// Canonicalize relabels both namespaces of s through the alias table.
func (s *MappingSet) Canonicalize(a Aliases) *MappingSet {
	return s.Rename(a.Canonical(s.from), a.Canonical(s.to))
}

// Rename returns s with its namespaces relabelled. Entries are shared.
func (s *MappingSet) Rename(from, to Namespace) *MappingSet {
	if from == s.from && to == s.to {
		return s
	}
	return &MappingSet{from: from, to: to, classes: s.classes}
}

// Merge composes s (A→B) with o (B→C) into A→C.
//
// Every entry of s is looked up in o by its destination name, with member
// descriptors translated into B first. Entries o does not know keep their B
// name. Entries only o knows are carried over, with descriptors translated
// back into A, unless a renamed entry of s already owns that source name.
func (s *MappingSet) Merge(o *MappingSet) (*MappingSet, error) {
	if s.to != o.from {
		return nil, &NamespaceMismatchError{Left: s.to, Right: o.from}
	}

	b := NewBuilder(s.from, o.to)
	reached := make(map[string]bool, len(s.classes))
	toA := s.reverseClassMapper()

	for _, c := range s.Classes() {
		bName := s.MapClassName(c.From)
		reached[bName] = true

		oc := o.classes[bName]
		cb := b.Class(c.From, o.MapClassName(bName))
		if oc != nil {
			cb.Comment(preferComment(c.Comment, oc.Comment))
		} else {
			cb.Comment(c.Comment)
		}

		matchedFields := make(map[memberKey]bool)
		for _, f := range c.Fields() {
			to, comment := f.Mapped(), f.Comment
			if oc != nil {
				if of, ok := oc.Field(f.Mapped(), s.MapDescriptor(f.Desc)); ok {
					matchedFields[memberKey{of.From, of.Desc}] = true
					to, comment = of.Mapped(), preferComment(comment, of.Comment)
				}
			}
			cb.Field(f.From, f.Desc, to).Comment = comment
		}

		matchedMethods := make(map[memberKey]bool)
		for _, m := range c.Methods() {
			var om *MethodMapping
			if oc != nil {
				om, _ = oc.Method(m.Mapped(), s.MapDescriptor(m.Desc))
			}
			to, comment := m.Mapped(), m.Comment
			if om != nil {
				matchedMethods[memberKey{om.From, om.Desc}] = true
				to, comment = om.Mapped(), preferComment(comment, om.Comment)
			}
			mergeParams(cb.Method(m.From, m.Desc, to).Comment(comment), m, om)
		}

		if oc != nil {
			carryMembers(cb, c, oc, matchedFields, matchedMethods, toA)
		}
	}

	for _, oc := range o.Classes() {
		if reached[oc.From] {
			continue
		}
		// The A name must lead back to oc; otherwise s renames it elsewhere.
		aName := toA(oc.From)
		if s.MapClassName(aName) != oc.From {
			continue
		}
		cb := b.Class(aName, o.MapClassName(oc.From)).Comment(oc.Comment)
		carryMembers(cb, nil, oc, nil, nil, toA)
	}

	return b.Build(), nil
}

// Reverse swaps source and destination at every level. Descriptors are
// rewritten into the destination namespace. Parameters are dropped.
func (s *MappingSet) Reverse() *MappingSet {
	b := NewBuilder(s.to, s.from)
	for _, c := range s.Classes() {
		cb := b.Class(s.MapClassName(c.From), c.From).Comment(c.Comment)
		for _, f := range c.Fields() {
			cb.Field(f.Mapped(), s.MapDescriptor(f.Desc), f.From).Comment = f.Comment
		}
		for _, m := range c.Methods() {
			cb.Method(m.Mapped(), s.MapDescriptor(m.Desc), m.From).Comment(m.Comment)
		}
	}
	return b.Build()
}

// reverseClassMapper maps destination class names back to source names.
func (s *MappingSet) reverseClassMapper() descriptor.ClassMapper {
	back := make(map[string]string, len(s.classes))
	for _, c := range s.classes {
		back[s.MapClassName(c.From)] = c.From
	}
	return func(name string) string {
		return mapClassName(name, func(n string) (string, bool) {
			from, ok := back[n]
			return from, ok
		})
	}
}

// carryMembers copies members of oc that no entry of left reached. left may
// be nil when the whole class is carried over.
func carryMembers(cb *ClassBuilder, left, oc *ClassMapping, matchedFields, matchedMethods map[memberKey]bool, toA descriptor.ClassMapper) {
	for _, of := range oc.Fields() {
		if matchedFields[memberKey{of.From, of.Desc}] {
			continue
		}
		desc := descriptor.Map(of.Desc, toA)
		if left != nil {
			if _, shadowed := left.Field(of.From, desc); shadowed {
				continue
			}
		}
		cb.Field(of.From, desc, of.To).Comment = of.Comment
	}

	for _, om := range oc.Methods() {
		if matchedMethods[memberKey{om.From, om.Desc}] {
			continue
		}
		desc := descriptor.Map(om.Desc, toA)
		if left != nil {
			if _, shadowed := left.Method(om.From, desc); shadowed {
				continue
			}
		}
		mergeParams(cb.Method(om.From, desc, om.To).Comment(om.Comment), nil, om)
	}
}

// mergeParams composes parameter entries by index. Either side may be nil.
func mergeParams(mb *MethodBuilder, left, right *MethodMapping) {
	if left != nil {
		for _, p := range left.Params() {
			to, comment := p.To, p.Comment
			if right != nil {
				if op, ok := right.Param(p.Index); ok {
					if op.To != "" {
						to = op.To
					}
					comment = preferComment(comment, op.Comment)
				}
			}
			np := mb.Param(p.Index, p.From, to)
			np.Comment = comment
		}
	}
	if right != nil {
		for _, op := range right.Params() {
			if left != nil {
				if _, ok := left.Param(op.Index); ok {
					continue
				}
			}
			mb.Param(op.Index, op.From, op.To).Comment = op.Comment
		}
	}
}

func preferComment(left, right string) string {
	if right != "" {
		return right
	}
	return left
}

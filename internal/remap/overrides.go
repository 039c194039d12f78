package remap

import (
	"sort"

	"github.com/mvp-joe/project-remapper/internal/mapping"
)

// NewClassOverrideStage returns a stage that renames classes by a fixed table
// of internal names, e.g. relocating annotation packages after the main
// mapping has been applied. Members are left alone.
func NewClassOverrideStage(renames map[string]string) Stage {
	from := make([]string, 0, len(renames))
	for name := range renames {
		from = append(from, name)
	}
	sort.Strings(from)

	b := mapping.NewBuilder("overrides", "overrides")
	for _, name := range from {
		b.Class(name, renames[name])
	}
	t := NewTransformer(b.Build(), nil)
	t.name = "class-overrides"
	return t
}

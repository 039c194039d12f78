// Package sources remaps Java source files, as found in sources jars, with
// the same mapping sets used for class files.
//
// Source files carry no descriptors, so members are matched by name and
// parameter count. Only references whose owner is known from the file
// itself are rewritten: declarations, references on this, unqualified
// calls, static imports and type names resolved through imports, the
// file's own declarations or its package.
package sources

import (
	"fmt"
	"log"
	"path"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/mvp-joe/project-remapper/internal/descriptor"
	"github.com/mvp-joe/project-remapper/internal/mapping"
)

// Pattern matches the entries Remap handles.
const Pattern = "**/*.java"

// Remapper rewrites Java sources. It is safe for concurrent use; each call
// gets its own parser.
type Remapper struct {
	mapping  *mapping.MappingSet
	language *sitter.Language
}

// New creates a Remapper for m.
func New(m *mapping.MappingSet) *Remapper {
	return &Remapper{
		mapping:  m,
		language: sitter.NewLanguage(java.Language()),
	}
}

// Remap rewrites one source file and returns its new entry name. Files that
// do not parse are returned unchanged.
func (r *Remapper) Remap(name string, src []byte) (string, []byte, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(r.language); err != nil {
		return "", nil, fmt.Errorf("failed to load java grammar: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return "", nil, fmt.Errorf("failed to parse %s", name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		log.Printf("Warning: %s has syntax errors, copying it unchanged\n", name)
		return name, src, nil
	}

	f := &file{
		m:       r.mapping,
		src:     src,
		types:   make(map[string]string),
		decls:   make(map[uint]string),
		statics: make(map[string]string),
	}
	f.header(root)
	f.declare(root, "")
	f.primary(name)
	f.rewrite(root, nil)

	return f.entryName(name), f.apply(), nil
}

type edit struct {
	start, end uint
	text       string
}

// file holds the state of one Remap call.
type file struct {
	m   *mapping.MappingSet
	src []byte

	pkg    string            // internal form, "" for the default package
	newPkg string            // package of the renamed primary type
	types  map[string]string // simple name -> class, declared or imported
	decls  map[uint]string   // start byte of a member type declaration -> class

	statics       map[string]string // statically imported member -> owner
	staticOwners  []string          // owners of "import static x.Y.*"
	primaryClass  string
	primaryMapped string

	edits []edit
}

func (f *file) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Utf8Text(f.src)
}

func (f *file) replace(n *sitter.Node, text string) {
	f.edits = append(f.edits, edit{start: n.StartByte(), end: n.EndByte(), text: text})
}

func isTypeDeclaration(kind string) bool {
	switch kind {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		return true
	}
	return false
}

func nameNode(n *sitter.Node) *sitter.Node {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c.Kind() == "scoped_identifier" || c.Kind() == "identifier" {
			return c
		}
	}
	return nil
}

func hasChild(n *sitter.Node, kind string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == kind {
			return true
		}
	}
	return false
}

func qualify(pkg, simple string) string {
	if pkg == "" {
		return simple
	}
	return pkg + "/" + simple
}

func internalName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}

// sourceName writes a class name the way Java source refers to it.
func sourceName(class string) string {
	return strings.NewReplacer("/", ".", "$", ".").Replace(class)
}

func simpleName(class string) string {
	class = class[strings.LastIndexByte(class, '/')+1:]
	return class[strings.LastIndexByte(class, '$')+1:]
}

func packageOf(class string) string {
	if i := strings.LastIndexByte(class, '/'); i >= 0 {
		return class[:i]
	}
	return ""
}

// known reports whether the mapping has anything to say about class.
func (f *file) known(class string) bool {
	if _, ok := f.m.Class(class); ok {
		return true
	}
	return f.m.MapClassName(class) != class
}

// resolveQualified turns a dotted name into a known class, trying nested
// class boundaries from the right ("a.B.C" may be a/B$C).
func (f *file) resolveQualified(dotted string) (string, bool) {
	class := internalName(dotted)
	for {
		if f.known(class) {
			return class, true
		}
		i := strings.LastIndexByte(class, '/')
		if i <= 0 {
			return "", false
		}
		class = class[:i] + "$" + class[i+1:]
	}
}

// header reads the package declaration and the imports.
func (f *file) header(root *sitter.Node) {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		n := root.NamedChild(i)
		switch n.Kind() {
		case "package_declaration":
			f.pkg = internalName(f.text(nameNode(n)))
		case "import_declaration":
			f.importDeclaration(n, false)
		}
	}
}

// importDeclaration records an import, or with rewrite set, renames it.
func (f *file) importDeclaration(n *sitter.Node, rewrite bool) {
	id := nameNode(n)
	if id == nil {
		return
	}
	text := f.text(id)
	static := hasChild(n, "static")
	asterisk := hasChild(n, "asterisk")

	switch {
	case static && asterisk:
		owner, ok := f.resolveQualified(text)
		if !ok {
			return
		}
		if rewrite {
			f.rename(id, text, sourceName(f.m.MapClassName(owner)))
			return
		}
		f.staticOwners = append(f.staticOwners, owner)

	case static:
		i := strings.LastIndexByte(text, '.')
		if i < 0 {
			return
		}
		member := text[i+1:]
		owner, ok := f.resolveQualified(text[:i])
		if !ok {
			return
		}
		if rewrite {
			mapped := member
			if to, ok := f.field(owner, member); ok {
				mapped = to
			} else if to, ok := f.method(owner, member, -1); ok {
				mapped = to
			}
			f.rename(id, text, sourceName(f.m.MapClassName(owner))+"."+mapped)
			return
		}
		f.statics[member] = owner

	case asterisk:
		// Package imports are left alone; packages do not map one to one.

	default:
		class, ok := f.resolveQualified(text)
		if rewrite {
			if ok {
				f.rename(id, text, sourceName(f.m.MapClassName(class)))
			}
			return
		}
		if !ok {
			class = internalName(text)
		}
		simple := text[strings.LastIndexByte(text, '.')+1:]
		if _, declared := f.types[simple]; !declared {
			f.types[simple] = class
		}
	}
}

func (f *file) rename(n *sitter.Node, from, to string) {
	if from != to {
		f.replace(n, to)
	}
}

// declare records member type declarations. Local and anonymous classes are
// not recorded.
func (f *file) declare(n *sitter.Node, outer string) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch {
		case isTypeDeclaration(c.Kind()):
			simple := f.text(c.ChildByFieldName("name"))
			class := qualify(f.pkg, simple)
			if outer != "" {
				class = outer + "$" + simple
			}
			f.decls[c.StartByte()] = class
			f.types[simple] = class
			if body := c.ChildByFieldName("body"); body != nil {
				f.declare(body, class)
			}
		case c.Kind() == "enum_body_declarations":
			f.declare(c, outer)
		}
	}
}

// primary works out where the file's main type, named after the file,
// ends up.
func (f *file) primary(name string) {
	base := strings.TrimSuffix(path.Base(name), ".java")
	f.primaryClass = qualify(f.pkg, base)
	f.primaryMapped = f.m.MapClassName(f.primaryClass)
	f.newPkg = packageOf(f.primaryMapped)
}

// entryName moves the file next to its renamed primary type, keeping any
// directory prefix in front of the package path.
func (f *file) entryName(name string) string {
	if f.primaryMapped == f.primaryClass {
		return name
	}
	old := f.primaryClass + ".java"
	if !strings.HasSuffix(name, old) {
		return name
	}
	return strings.TrimSuffix(name, old) + f.primaryMapped + ".java"
}

// rewrite walks the tree collecting edits. owners is the stack of enclosing
// type declarations, innermost last; "" marks a local or anonymous class.
func (f *file) rewrite(n *sitter.Node, owners []string) {
	switch kind := n.Kind(); {
	case kind == "package_declaration":
		if id := nameNode(n); id != nil && f.newPkg != f.pkg && f.newPkg != "" {
			f.replace(id, sourceName(f.newPkg))
		}
		return

	case kind == "import_declaration":
		f.importDeclaration(n, true)
		return

	case isTypeDeclaration(kind):
		class := f.decls[n.StartByte()]
		if class != "" {
			if id := n.ChildByFieldName("name"); id != nil {
				f.rename(id, f.text(id), simpleName(f.m.MapClassName(class)))
			}
		}
		owners = append(owners, class)

	case kind == "class_body" && n.Parent() != nil && n.Parent().Kind() == "object_creation_expression":
		owners = append(owners, "")

	case kind == "constructor_declaration":
		if owner := innermost(owners); owner != "" {
			if id := n.ChildByFieldName("name"); id != nil {
				f.rename(id, f.text(id), simpleName(f.m.MapClassName(owner)))
			}
		}

	case kind == "method_declaration" || kind == "annotation_type_element_declaration":
		if owner := innermost(owners); owner != "" {
			id := n.ChildByFieldName("name")
			if to, ok := f.method(owner, f.text(id), countParameters(n.ChildByFieldName("parameters"))); ok {
				f.rename(id, f.text(id), to)
			}
		}

	case kind == "field_declaration" || kind == "constant_declaration":
		if owner := innermost(owners); owner != "" {
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if d := n.NamedChild(i); d.Kind() == "variable_declarator" {
					f.renameField(owner, d.ChildByFieldName("name"))
				}
			}
		}

	case kind == "enum_constant":
		if owner := innermost(owners); owner != "" {
			f.renameField(owner, n.ChildByFieldName("name"))
		}

	case kind == "method_invocation":
		f.methodInvocation(n, owners)

	case kind == "field_access":
		f.fieldAccess(n, owners)

	case kind == "scoped_type_identifier":
		if text := f.text(n); !strings.ContainsAny(text, "<@ \t\n") {
			if class, ok := f.resolveQualified(text); ok {
				f.rename(n, text, sourceName(f.m.MapClassName(class)))
				return
			}
		}

	case kind == "type_identifier":
		if to, ok := f.typeReference(f.text(n)); ok {
			f.rename(n, f.text(n), to)
		}
		return
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		f.rewrite(n.NamedChild(i), owners)
	}
}

func innermost(owners []string) string {
	if len(owners) == 0 {
		return ""
	}
	return owners[len(owners)-1]
}

func countParameters(params *sitter.Node) int {
	if params == nil {
		return 0
	}
	count := 0
	for i := uint(0); i < params.NamedChildCount(); i++ {
		switch params.NamedChild(i).Kind() {
		case "formal_parameter", "spread_parameter":
			count++
		}
	}
	return count
}

func countArguments(args *sitter.Node) int {
	if args == nil {
		return 0
	}
	count := 0
	for i := uint(0); i < args.NamedChildCount(); i++ {
		if !strings.HasSuffix(args.NamedChild(i).Kind(), "comment") {
			count++
		}
	}
	return count
}

// typeReference maps a simple type name. A same-package type that moves away
// from the file's new package is written fully qualified.
func (f *file) typeReference(simple string) (string, bool) {
	if class, ok := f.types[simple]; ok {
		mapped := f.m.MapClassName(class)
		return simpleName(mapped), mapped != class
	}
	class := qualify(f.pkg, simple)
	if !f.known(class) {
		return "", false
	}
	mapped := f.m.MapClassName(class)
	if packageOf(mapped) != f.newPkg {
		return sourceName(mapped), true
	}
	return simpleName(mapped), mapped != class
}

// classReference resolves an expression identifier used as a static
// qualifier ("Widget.create()").
func (f *file) classReference(n *sitter.Node) (string, bool) {
	if n == nil || n.Kind() != "identifier" {
		return "", false
	}
	simple := f.text(n)
	if class, ok := f.types[simple]; ok {
		return class, f.known(class)
	}
	class := qualify(f.pkg, simple)
	return class, f.known(class)
}

func (f *file) methodInvocation(n *sitter.Node, owners []string) {
	id := n.ChildByFieldName("name")
	name := f.text(id)
	args := countArguments(n.ChildByFieldName("arguments"))

	object := n.ChildByFieldName("object")
	switch {
	case object == nil:
		for i := len(owners) - 1; i >= 0; i-- {
			if owners[i] == "" {
				continue
			}
			if to, ok := f.method(owners[i], name, args); ok {
				f.rename(id, name, to)
				return
			}
		}
		if owner, ok := f.statics[name]; ok {
			if to, ok := f.method(owner, name, args); ok {
				f.rename(id, name, to)
				return
			}
		}
		for _, owner := range f.staticOwners {
			if to, ok := f.method(owner, name, args); ok {
				f.rename(id, name, to)
				return
			}
		}

	case object.Kind() == "this":
		if owner := innermost(owners); owner != "" {
			if to, ok := f.method(owner, name, args); ok {
				f.rename(id, name, to)
			}
		}

	default:
		if owner, ok := f.classReference(object); ok {
			if to, ok := f.typeReference(f.text(object)); ok {
				f.rename(object, f.text(object), to)
			}
			if to, ok := f.method(owner, name, args); ok {
				f.rename(id, name, to)
			}
		}
	}
}

func (f *file) fieldAccess(n *sitter.Node, owners []string) {
	id := n.ChildByFieldName("field")
	object := n.ChildByFieldName("object")
	if id == nil || object == nil {
		return
	}
	switch {
	case object.Kind() == "this":
		if owner := innermost(owners); owner != "" {
			f.renameField(owner, id)
		}
	default:
		if owner, ok := f.classReference(object); ok {
			if to, ok := f.typeReference(f.text(object)); ok {
				f.rename(object, f.text(object), to)
			}
			f.renameField(owner, id)
		}
	}
}

func (f *file) renameField(owner string, id *sitter.Node) {
	if id == nil {
		return
	}
	if to, ok := f.field(owner, f.text(id)); ok {
		f.rename(id, f.text(id), to)
	}
}

func (f *file) field(owner, name string) (string, bool) {
	fm, ok := f.m.Field(owner, name, "")
	if !ok || fm.To == "" {
		return "", false
	}
	return fm.To, true
}

// method finds a renamed method by name and parameter count; args < 0
// accepts any count.
func (f *file) method(owner, name string, args int) (string, bool) {
	c, ok := f.m.Class(owner)
	if !ok {
		return "", false
	}
	m, ok := c.MethodByName(name, func(desc string) bool {
		if args < 0 {
			return true
		}
		md, err := descriptor.ParseMethod(desc)
		return err == nil && len(md.Params) == args
	})
	if !ok || m.To == "" {
		return "", false
	}
	return m.To, true
}

// apply splices the edits into the source. Overlapping edits keep the
// outermost, earliest one.
func (f *file) apply() []byte {
	if len(f.edits) == 0 {
		return f.src
	}
	sort.SliceStable(f.edits, func(i, j int) bool { return f.edits[i].start < f.edits[j].start })

	out := make([]byte, 0, len(f.src))
	pos := uint(0)
	for _, e := range f.edits {
		if e.start < pos {
			continue
		}
		out = append(out, f.src[pos:e.start]...)
		out = append(out, e.text...)
		pos = e.end
	}
	return append(out, f.src[pos:]...)
}

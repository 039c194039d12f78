// Package tiny reads and writes the tiny v2 mapping format: a tab-separated,
// indentation-nested row format whose header names two or more namespaces.
package tiny

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mvp-joe/project-remapper/internal/mapping"
)

// Header is the literal prefix of every tiny v2 stream.
const Header = "tiny\t2\t0"

// EscapedNamesProperty switches on backslash escapes in names.
const EscapedNamesProperty = "escaped-names"

var (
	// ErrUnknownNamespace indicates a namespace the document does not declare.
	ErrUnknownNamespace = errors.New("unknown namespace")
)

// SyntaxError reports a malformed or truncated row.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("tiny: line %d: %s", e.Line, e.Msg)
}

// Document is a parsed tiny file with one name per declared namespace for
// every entry. Descriptors are in the first namespace.
type Document struct {
	Namespaces []mapping.Namespace
	Properties map[string]string
	Classes    []*Class
}

// Class is a class row with its members.
type Class struct {
	Names   []string
	Comment string
	Fields  []*Member
	Methods []*Method
}

// Member is a field row.
type Member struct {
	Desc    string
	Names   []string
	Comment string
}

// Method is a method row with its parameters.
type Method struct {
	Member
	Params []*Param
}

// Param is a parameter row keyed by local variable index.
type Param struct {
	Index   int
	Names   []string
	Comment string
}

// Parse reads a complete tiny v2 document.
func Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	p := &parser{}
	for scanner.Scan() {
		p.line++
		if err := p.row(strings.TrimSuffix(scanner.Text(), "\r")); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tiny mappings: %w", err)
	}
	if p.doc == nil {
		return nil, &SyntaxError{Line: 1, Msg: "missing header"}
	}
	return p.doc, nil
}

// ParseBytes is Parse over an in-memory stream.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

type parser struct {
	line    int
	doc     *Document
	escaped bool

	class  *Class
	field  *Member
	method *Method
	param  *Param
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) row(line string) error {
	if p.doc == nil {
		return p.header(line)
	}
	if line == "" {
		return nil
	}

	depth := 0
	for depth < len(line) && line[depth] == '\t' {
		depth++
	}
	cols := strings.Split(line[depth:], "\t")
	nsCount := len(p.doc.Namespaces)

	switch depth {
	case 0:
		p.class, p.field, p.method, p.param = nil, nil, nil, nil
		if cols[0] != "c" {
			return nil
		}
		names, err := p.names(cols[1:], nsCount)
		if err != nil {
			return err
		}
		p.class = &Class{Names: names}
		p.doc.Classes = append(p.doc.Classes, p.class)

	case 1:
		p.field, p.method, p.param = nil, nil, nil
		if p.class == nil {
			if len(p.doc.Classes) == 0 {
				p.property(cols)
			}
			return nil
		}
		switch cols[0] {
		case "f", "m":
			if len(cols) < 2 {
				return p.errorf("%s row is missing its descriptor", cols[0])
			}
			names, err := p.names(cols[2:], nsCount)
			if err != nil {
				return err
			}
			member := Member{Desc: cols[1], Names: names}
			if cols[0] == "f" {
				p.field = &member
				p.class.Fields = append(p.class.Fields, p.field)
			} else {
				p.method = &Method{Member: member}
				p.class.Methods = append(p.class.Methods, p.method)
			}
		case "c":
			comment, err := p.comment(cols)
			if err != nil {
				return err
			}
			p.class.Comment = comment
		}

	case 2:
		p.param = nil
		switch {
		case cols[0] == "p" && p.method != nil:
			if len(cols) < 2 {
				return p.errorf("parameter row is missing its index")
			}
			index, err := strconv.Atoi(cols[1])
			if err != nil || index < 0 {
				return p.errorf("invalid parameter index %q", cols[1])
			}
			names, err := p.names(cols[2:], nsCount)
			if err != nil {
				return err
			}
			p.param = &Param{Index: index, Names: names}
			p.method.Params = append(p.method.Params, p.param)
		case cols[0] == "c" && (p.method != nil || p.field != nil):
			comment, err := p.comment(cols)
			if err != nil {
				return err
			}
			if p.method != nil {
				p.method.Comment = comment
			} else {
				p.field.Comment = comment
			}
		}

	case 3:
		if cols[0] == "c" && p.param != nil {
			comment, err := p.comment(cols)
			if err != nil {
				return err
			}
			p.param.Comment = comment
		}
	}
	return nil
}

func (p *parser) header(line string) error {
	cols := strings.Split(line, "\t")
	if len(cols) < 3 || cols[0] != "tiny" || cols[1] != "2" {
		return p.errorf("not a tiny v2 header")
	}
	if len(cols) < 5 {
		return p.errorf("header must declare at least two namespaces")
	}
	doc := &Document{Properties: make(map[string]string)}
	for _, ns := range cols[3:] {
		if ns == "" {
			return p.errorf("empty namespace name")
		}
		doc.Namespaces = append(doc.Namespaces, mapping.Namespace(ns))
	}
	p.doc = doc
	return nil
}

func (p *parser) property(cols []string) {
	value := ""
	if len(cols) > 1 {
		value = cols[1]
	}
	p.doc.Properties[cols[0]] = value
	if cols[0] == EscapedNamesProperty {
		p.escaped = true
	}
}

func (p *parser) names(cols []string, want int) ([]string, error) {
	if len(cols) < want {
		return nil, p.errorf("expected %d names, got %d", want, len(cols))
	}
	names := make([]string, want)
	for i := range names {
		name := cols[i]
		if p.escaped {
			var err error
			if name, err = unescape(name); err != nil {
				return nil, p.errorf("%v", err)
			}
		}
		names[i] = name
	}
	return names, nil
}

func (p *parser) comment(cols []string) (string, error) {
	if len(cols) < 2 {
		return "", p.errorf("comment row is missing its text")
	}
	text, err := unescape(cols[1])
	if err != nil {
		return "", p.errorf("%v", err)
	}
	return text, nil
}

// MappingSet projects the document onto one namespace pair. Empty source
// names fall back to the first namespace; empty destination names mean
// unmapped.
func (d *Document) MappingSet(from, to mapping.Namespace) (*mapping.MappingSet, error) {
	fromIdx, toIdx := d.index(from), d.index(to)
	if fromIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, from)
	}
	if toIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, to)
	}

	// Descriptors are written in the first namespace.
	var primary *mapping.MappingSet
	if fromIdx != 0 {
		primary = d.project(0, fromIdx, nil)
	}
	return d.project(fromIdx, toIdx, primary), nil
}

// Default projects the first namespace onto the last.
func (d *Document) Default() *mapping.MappingSet {
	set, _ := d.MappingSet(d.Namespaces[0], d.Namespaces[len(d.Namespaces)-1])
	return set
}

func (d *Document) index(ns mapping.Namespace) int {
	for i, n := range d.Namespaces {
		if n == ns {
			return i
		}
	}
	return -1
}

// project builds the fromIdx→toIdx set. primary maps the first namespace
// onto fromIdx and is nil when fromIdx is the first namespace.
func (d *Document) project(fromIdx, toIdx int, primary *mapping.MappingSet) *mapping.MappingSet {
	className := func(names []string) string {
		switch {
		case names[fromIdx] != "":
			return names[fromIdx]
		case primary != nil:
			return primary.MapClassName(names[0])
		default:
			return names[0]
		}
	}
	memberName := func(names []string) string {
		if names[fromIdx] != "" {
			return names[fromIdx]
		}
		return names[0]
	}
	mapDesc := func(desc string) string {
		if primary == nil {
			return desc
		}
		return primary.MapDescriptor(desc)
	}

	b := mapping.NewBuilder(d.Namespaces[fromIdx], d.Namespaces[toIdx])
	for _, c := range d.Classes {
		cb := b.Class(className(c.Names), c.Names[toIdx]).Comment(c.Comment)
		for _, f := range c.Fields {
			cb.Field(memberName(f.Names), mapDesc(f.Desc), f.Names[toIdx]).Comment = f.Comment
		}
		for _, m := range c.Methods {
			mb := cb.Method(memberName(m.Names), mapDesc(m.Desc), m.Names[toIdx]).Comment(m.Comment)
			for _, param := range m.Params {
				if param.Names[fromIdx] == "" && param.Names[toIdx] == "" && param.Comment == "" {
					continue
				}
				mb.Param(param.Index, param.Names[fromIdx], param.Names[toIdx]).Comment = param.Comment
			}
		}
	}
	return b.Build()
}

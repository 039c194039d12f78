// Package inheritance answers supertype questions over the classes of an
// artifact and its classpath. Classes are read lazily, on first use, and the
// resulting hierarchy is memoised in a directed graph.
package inheritance

import (
	"fmt"
	"log"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/project-remapper/internal/classfile"
)

// ClassProvider supplies class file bytes by internal name. ok is false when
// the provider does not contain the class.
type ClassProvider interface {
	ClassBytes(name string) (data []byte, ok bool, err error)
}

// Failure records a class that a provider contained but could not be read.
// The class is treated as unknown.
type Failure struct {
	Class string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("class %s: %v", f.Class, f.Err)
}

// node is one class vertex. Edges point from a class to its direct
// supertypes, weighted by declaration order (superclass 0).
type node struct {
	Name     string
	Supers   []string
	Known    bool
	resolved bool
}

// Context is the read-only view of the hierarchy for one run. It never
// errors for unknown classes and is safe for concurrent use. Provider reads
// happen outside the lock; concurrent lookups of one class share a read.
type Context struct {
	providers []ClassProvider

	mu       sync.Mutex
	g        graph.Graph[string, *node]
	pending  map[string]func() (*classfile.Header, error)
	failures []Failure
}

// New builds a context that consults providers in order; the first provider
// containing a class wins.
func New(providers ...ClassProvider) *Context {
	return &Context{
		providers: providers,
		g:         graph.New(func(n *node) string { return n.Name }, graph.Directed()),
		pending:   make(map[string]func() (*classfile.Header, error)),
	}
}

// vertex returns the vertex for name, adding an unresolved one if needed.
// Callers hold c.mu.
func (c *Context) vertex(name string) *node {
	if n, err := c.g.Vertex(name); err == nil {
		return n
	}
	n := &node{Name: name}
	_ = c.g.AddVertex(n)
	return n
}

// resolve loads name on first use and returns its known flag and a copy of
// its direct supertypes.
func (c *Context) resolve(name string) (bool, []string) {
	c.mu.Lock()
	n := c.vertex(name)
	if n.resolved {
		defer c.mu.Unlock()
		return n.Known, append([]string(nil), n.Supers...)
	}
	load, ok := c.pending[name]
	if !ok {
		load = sync.OnceValues(func() (*classfile.Header, error) { return c.read(name) })
		c.pending[name] = load
	}
	c.mu.Unlock()

	header, err := load()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !n.resolved {
		c.apply(n, header, err)
		delete(c.pending, name)
	}
	return n.Known, append([]string(nil), n.Supers...)
}

// apply records the outcome of reading n. Callers hold c.mu.
func (c *Context) apply(n *node, header *classfile.Header, err error) {
	n.resolved = true
	if err != nil {
		c.failures = append(c.failures, Failure{Class: n.Name, Err: err})
		log.Printf("Warning: failed to read class %s, treating it as unknown: %v", n.Name, err)
		return
	}
	if header == nil {
		return
	}

	n.Known = true
	if header.Super != "" {
		n.Supers = append(n.Supers, header.Super)
	}
	n.Supers = append(n.Supers, header.Interfaces...)
	for i, s := range n.Supers {
		c.vertex(s)
		_ = c.g.AddEdge(n.Name, s, graph.EdgeWeight(i))
	}
}

func (c *Context) read(name string) (*classfile.Header, error) {
	for _, p := range c.providers {
		data, ok, err := p.ClassBytes(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return classfile.ReadHeader(data)
	}
	return nil, nil
}

// Known reports whether any provider contains a readable class name.
func (c *Context) Known(name string) bool {
	known, _ := c.resolve(name)
	return known
}

// SupertypesOf returns the direct supertypes of name: the superclass first,
// then interfaces in declaration order. Unknown classes have none.
func (c *Context) SupertypesOf(name string) []string {
	_, supers := c.resolve(name)
	return supers
}

// Walk visits name and then its ancestors breadth-first, each class once.
// Returning false from visit stops the walk.
func (c *Context) Walk(name string, visit func(class string) bool) {
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if !visit(current) {
			return
		}
		for _, s := range c.SupertypesOf(current) {
			if !seen[s] {
				seen[s] = true
				queue = append(queue, s)
			}
		}
	}
}

// IsSubtype reports whether sub equals super or has it as an ancestor.
func (c *Context) IsSubtype(sub, super string) bool {
	if sub == super {
		return true
	}
	// Resolve the whole ancestor chain before searching the graph.
	c.Walk(sub, func(string) bool { return true })

	c.mu.Lock()
	defer c.mu.Unlock()
	found := false
	_ = graph.DFS(c.g, sub, func(v string) bool {
		found = v == super
		return found
	})
	return found
}

// Failures returns the classes that could not be read so far.
func (c *Context) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Failure(nil), c.failures...)
}

// MapProvider serves classes from memory, keyed by internal name.
type MapProvider map[string][]byte

// ClassBytes implements ClassProvider.
func (m MapProvider) ClassBytes(name string) ([]byte, bool, error) {
	data, ok := m[name]
	return data, ok, nil
}

package netlist

import (
	"strconv"
	"strings"

	"martianoff/velab/elaberr"
)

// Design is the elaborated design: the scope arena, the node list and the
// process list. Diagnostics accumulate on its reporter.
type Design struct {
	scopes   []*Scope
	roots    []ScopeID
	packages map[string]ScopeID
	pkgOrder []string
	unit     ScopeID
	nodes    []Node
	procs    []*ProcTop
	udps     map[string]*UDPDef
	diag     *elaberr.Reporter
}

// NewDesign returns an empty design reporting through diag.
func NewDesign(diag *elaberr.Reporter) *Design {
	return &Design{
		scopes:   []*Scope{nil},
		packages: make(map[string]ScopeID),
		udps:     make(map[string]*UDPDef),
		diag:     diag,
	}
}

// Diag returns the diagnostic reporter.
func (d *Design) Diag() *elaberr.Reporter { return d.diag }

// Errors is the number of errors reported so far.
func (d *Design) Errors() int { return d.diag.Errors() }

// NewScope allocates a scope under parent. A scope with no parent is not
// a root until AddRoot is called.
func (d *Design) NewScope(parent ScopeID, name ScopeName, kind ScopeKind) *Scope {
	id := ScopeID(len(d.scopes))
	s := newScope(id, parent, name, kind)
	d.scopes = append(d.scopes, s)
	if p := d.Scope(parent); p != nil {
		p.children.Put(name, id)
	}
	return s
}

// Scope returns the scope for id, or nil.
func (d *Design) Scope(id ScopeID) *Scope {
	if int(id) >= len(d.scopes) {
		return nil
	}
	return d.scopes[id]
}

// Scopes returns all scopes in creation order.
func (d *Design) Scopes() []*Scope { return d.scopes[1:] }

// AddRoot records a root module instance.
func (d *Design) AddRoot(id ScopeID) { d.roots = append(d.roots, id) }

// Roots returns the root scopes.
func (d *Design) Roots() []*Scope {
	out := make([]*Scope, len(d.roots))
	for i, id := range d.roots {
		out[i] = d.Scope(id)
	}
	return out
}

// SetUnit records the compilation unit scope.
func (d *Design) SetUnit(id ScopeID) { d.unit = id }

// Unit returns the compilation unit scope.
func (d *Design) Unit() *Scope { return d.Scope(d.unit) }

// AddPackage registers a package scope.
func (d *Design) AddPackage(s *Scope) {
	if _, ok := d.packages[s.BaseName()]; !ok {
		d.pkgOrder = append(d.pkgOrder, s.BaseName())
	}
	d.packages[s.BaseName()] = s.ID()
}

// Package looks up a package scope by name.
func (d *Design) Package(name string) *Scope {
	id, ok := d.packages[name]
	if !ok {
		return nil
	}
	return d.Scope(id)
}

// Packages returns the package scopes in registration order.
func (d *Design) Packages() []*Scope {
	out := make([]*Scope, len(d.pkgOrder))
	for i, n := range d.pkgOrder {
		out[i] = d.Scope(d.packages[n])
	}
	return out
}

// AddUDP registers an elaborated primitive table.
func (d *Design) AddUDP(def *UDPDef) { d.udps[def.Name] = def }

// UDP looks up a primitive table.
func (d *Design) UDP(name string) *UDPDef { return d.udps[name] }

// AddNode appends a node to the design.
func (d *Design) AddNode(n Node) { d.nodes = append(d.nodes, n) }

// Nodes returns every node.
func (d *Design) Nodes() []Node { return d.nodes }

// AddProcess appends a process.
func (d *Design) AddProcess(p *ProcTop) { d.procs = append(d.procs, p) }

// Processes returns every process.
func (d *Design) Processes() []*ProcTop { return d.procs }

// Path returns the full hierarchical name of a scope.
func (d *Design) Path(id ScopeID) string {
	var parts []string
	for s := d.Scope(id); s != nil; s = d.Scope(s.parent) {
		parts = append(parts, s.name.String())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// FindScope resolves a dotted path such as "top.g[1].u" from the roots
// and packages.
func (d *Design) FindScope(path string) *Scope {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil
	}
	var cur *Scope
	for _, r := range d.Roots() {
		if r.name == parts[0] {
			cur = r
			break
		}
	}
	if cur == nil && !parts[0].HasIndex {
		cur = d.Package(parts[0].Name)
	}
	for _, p := range parts[1:] {
		if cur == nil {
			return nil
		}
		id, ok := cur.Child(p)
		if !ok {
			return nil
		}
		cur = d.Scope(id)
	}
	return cur
}

// FindSignal resolves "path.to.scope.sig".
func (d *Design) FindSignal(path string) *Signal {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return nil
	}
	s := d.FindScope(path[:i])
	if s == nil {
		return nil
	}
	return s.Signal(path[i+1:])
}

// splitPath splits a.b[2].c into scope names.
func splitPath(path string) []ScopeName {
	var out []ScopeName
	for _, part := range strings.Split(path, ".") {
		name := ScopeName{Name: part}
		if open := strings.IndexByte(part, '['); open > 0 && strings.HasSuffix(part, "]") {
			if idx, err := strconv.ParseInt(part[open+1:len(part)-1], 10, 64); err == nil {
				name = Indexed(part[:open], idx)
			}
		}
		out = append(out, name)
	}
	return out
}

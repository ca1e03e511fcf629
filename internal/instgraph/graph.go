// Package instgraph builds the module instantiation graph of a parsed
// design: which module definitions instantiate which others.
package instgraph

import (
	"martianoff/velab/internal/pform"
)

// Node is one module definition.
type Node struct {
	Name     string
	Module   *pform.Module
	Children []*Edge // instances inside this module
	Parents  []*Edge // instances of this module elsewhere
}

// Edge is one instantiation. Conditional edges sit inside a generate
// scheme and may never be elaborated.
type Edge struct {
	From        *Node
	To          *Node
	Instance    string
	Pos         pform.LineInfo
	Conditional bool
}

// Graph is the instantiation graph. Instances of names that are neither
// modules nor primitives are kept in Undefined.
type Graph struct {
	Nodes     map[string]*Node
	Undefined []*Edge
	order     []string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode adds a module if it is not already present.
func (g *Graph) AddNode(name string, m *pform.Module) *Node {
	if existing, ok := g.Nodes[name]; ok {
		if existing.Module == nil {
			existing.Module = m
		}
		return existing
	}
	node := &Node{Name: name, Module: m}
	g.Nodes[name] = node
	g.order = append(g.order, name)
	return node
}

// AddEdge records that from instantiates to.
func (g *Graph) AddEdge(from, to *Node, inst *pform.GModule, conditional bool) *Edge {
	edge := &Edge{From: from, To: to, Instance: inst.Name, Pos: inst.LineInfo, Conditional: conditional}
	from.Children = append(from.Children, edge)
	to.Parents = append(to.Parents, edge)
	return edge
}

// GetNode returns the node for a module name, or nil.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// Build walks every module of the design, including all generate
// branches, and records its instances. UDP instances are not edges.
func Build(des *pform.Design) *Graph {
	g := NewGraph()
	for _, name := range des.Order {
		g.AddNode(name, des.Modules[name])
	}
	for _, name := range des.Order {
		from := g.Nodes[name]
		g.walkItems(des, from, &from.Module.ModuleItems, false)
	}
	return g
}

func (g *Graph) walkItems(des *pform.Design, from *Node, items *pform.ModuleItems, conditional bool) {
	for _, gate := range items.Gates {
		inst, ok := gate.(*pform.GModule)
		if !ok {
			continue
		}
		if _, isUDP := des.UDPs[inst.Type]; isUDP {
			continue
		}
		to, ok := g.Nodes[inst.Type]
		if !ok {
			g.Undefined = append(g.Undefined, &Edge{From: from, Instance: inst.Name, Pos: inst.LineInfo, Conditional: conditional})
			continue
		}
		g.AddEdge(from, to, inst, conditional)
	}
	for _, gen := range items.Generates {
		g.walkGenerate(des, from, gen, conditional)
	}
}

func (g *Graph) walkGenerate(des *pform.Design, from *Node, gen pform.Generate, conditional bool) {
	switch gen := gen.(type) {
	case *pform.GenerateBlock:
		if gen.Nested != nil {
			g.walkGenerate(des, from, gen.Nested, conditional)
			return
		}
		g.walkItems(des, from, &gen.ModuleItems, conditional)
	case *pform.GenerateFor:
		g.walkGenerate(des, from, gen.Block, true)
	case *pform.GenerateIf:
		if gen.Then != nil {
			g.walkGenerate(des, from, gen.Then, true)
		}
		if gen.Else != nil {
			g.walkGenerate(des, from, gen.Else, true)
		}
	case *pform.GenerateCase:
		for _, item := range gen.Items {
			if item.Block != nil {
				g.walkGenerate(des, from, item.Block, true)
			}
		}
	}
}

// Roots returns the modules no other module instantiates, in
// declaration order. Cell modules are never roots.
func (g *Graph) Roots() []string {
	var roots []string
	for _, name := range g.order {
		n := g.Nodes[name]
		if len(n.Parents) == 0 && (n.Module == nil || !n.Module.IsCell) {
			roots = append(roots, name)
		}
	}
	return roots
}

package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

type symKind int

const (
	symNone symKind = iota
	symSignal
	symParam
	symEvent
	symEnum
	symScope
	symGenvar
)

// symbol is the result of a name lookup.
type symbol struct {
	kind   symKind
	scope  *netlist.Scope // scope the name was found in
	pos    int            // lexical position of the declaration, 0 if unknown
	sig    *netlist.Signal
	param  *netlist.Param
	event  *netlist.Event
	enum   *netlist.EnumType
	lit    *netlist.EnumName
	target *netlist.Scope
	genvar *verinum.Verinum
}

// localSymbol looks name up in s alone, including what s imports.
func (c *elabContext) localSymbol(s *netlist.Scope, name string) (symbol, bool) {
	src := c.sources[s.ID()]
	if w := src.wire(name); w != nil {
		sig := c.elabSig(s, w)
		if sig == nil {
			return symbol{}, false
		}
		return symbol{kind: symSignal, scope: s, sig: sig, pos: w.LexicalPos}, true
	}
	if sig := s.Signal(name); sig != nil {
		return symbol{kind: symSignal, scope: s, sig: sig, pos: sig.LexicalPos()}, true
	}
	if p := s.Param(name); p != nil {
		return symbol{kind: symParam, scope: s, param: p, pos: p.LexicalPos}, true
	}
	if ev := s.Event(name); ev != nil {
		return symbol{kind: symEvent, scope: s, event: ev}, true
	}
	if et, ok := s.EnumNames[name]; ok {
		return symbol{kind: symEnum, scope: s, enum: et, lit: et.Lookup(name)}, true
	}
	if id, ok := s.Child(netlist.Named(name)); ok {
		return symbol{kind: symScope, scope: s, target: c.scope(id)}, true
	}
	if ids, ok := s.InstanceArrays[name]; ok && len(ids) > 0 {
		return symbol{kind: symScope, scope: s, target: c.scope(ids[0])}, true
	}
	if id, ok := s.ImportNames[name]; ok {
		return c.localSymbol(c.scope(id), name)
	}
	if ps := c.wildcardSource(s, name); ps != nil {
		return c.localSymbol(ps, name)
	}
	return symbol{}, false
}

// findName resolves a simple name by walking outward from s to the
// enclosing module, then the compilation unit. A declaration in the
// scope being elaborated that follows the current position is only used
// when nothing else matches.
func (c *elabContext) findName(s *netlist.Scope, name string, at pform.Node) (symbol, bool) {
	if v, ok := c.genvars[name]; ok {
		return symbol{kind: symGenvar, scope: s, genvar: v}, true
	}
	var fallback *symbol
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		if sym, ok := c.localSymbol(cur, name); ok {
			if cur.ID() == c.posScope && c.lexPos > 0 && sym.pos > c.lexPos {
				if fallback == nil {
					f := sym
					fallback = &f
				}
			} else {
				return sym, true
			}
		}
		if isBoundary(cur.Kind()) {
			break
		}
	}
	if unit := c.des.Unit(); unit != nil && unit != s {
		if sym, ok := c.localSymbol(unit, name); ok {
			return sym, true
		}
	}
	if fallback != nil {
		if c.sv() {
			c.diag.Errorf(at, "%s is used before its declaration.", name)
		}
		return *fallback, true
	}
	return symbol{}, false
}

// matchScope reports whether s is named by comp.
func (c *elabContext) matchScope(s *netlist.Scope, comp pform.NameComponent, evalIn *netlist.Scope) bool {
	switch len(comp.Index) {
	case 0:
		return s.Name() == netlist.Named(comp.Name)
	case 1:
		if comp.Index[0].Sel != pform.SelBit {
			return false
		}
		idx, ok := c.quietInt(comp.Index[0].Msb, evalIn)
		return ok && s.Name() == netlist.Indexed(comp.Name, idx)
	}
	return false
}

// childScope returns the child of s named by comp.
func (c *elabContext) childScope(s *netlist.Scope, comp pform.NameComponent, evalIn *netlist.Scope) *netlist.Scope {
	switch len(comp.Index) {
	case 0:
		if id, ok := s.Child(netlist.Named(comp.Name)); ok {
			return c.scope(id)
		}
	case 1:
		if comp.Index[0].Sel != pform.SelBit {
			return nil
		}
		idx, ok := c.quietInt(comp.Index[0].Msb, evalIn)
		if !ok {
			return nil
		}
		if id, ok := s.Child(netlist.Indexed(comp.Name, idx)); ok {
			return c.scope(id)
		}
	}
	return nil
}

func (c *elabContext) descend(s *netlist.Scope, path pform.Name, evalIn *netlist.Scope) *netlist.Scope {
	for _, comp := range path {
		s = c.childScope(s, comp, evalIn)
		if s == nil {
			return nil
		}
	}
	return s
}

// findScope resolves a path whose components all name scopes. The first
// component is searched upward through children and ancestors, then
// among the roots.
func (c *elabContext) findScope(s *netlist.Scope, path pform.Name) *netlist.Scope {
	if len(path) == 0 {
		return nil
	}
	first := path[0]
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		if child := c.childScope(cur, first, s); child != nil {
			if t := c.descend(child, path[1:], s); t != nil {
				return t
			}
		}
		if c.matchScope(cur, first, s) {
			if t := c.descend(cur, path[1:], s); t != nil {
				return t
			}
		}
	}
	for _, r := range c.des.Roots() {
		if c.matchScope(r, first, s) {
			if t := c.descend(r, path[1:], s); t != nil {
				return t
			}
		}
	}
	if unit := c.des.Unit(); unit != nil {
		if child := c.childScope(unit, first, s); child != nil {
			return c.descend(child, path[1:], s)
		}
	}
	return nil
}

// resolvePath resolves a possibly hierarchical name to a symbol and the
// components left over, which select struct members.
func (c *elabContext) resolvePath(s *netlist.Scope, pkg string, path pform.Name, at pform.Node) (symbol, pform.Name, bool) {
	if pkg != "" {
		ps := c.des.Package(pkg)
		if ps == nil {
			c.diag.Errorf(at, "package %s is not declared.", pkg)
			return symbol{}, nil, false
		}
		sym, ok := c.localSymbol(ps, path[0].Name)
		return sym, path[1:], ok
	}
	sym, ok := c.findName(s, path[0].Name, at)
	if ok && (len(path) == 1 || sym.kind == symSignal || sym.kind == symParam) {
		return sym, path[1:], true
	}
	for i := len(path) - 1; i >= 1; i-- {
		t := c.findScope(s, path[:i])
		if t == nil {
			continue
		}
		if sym, ok := c.localSymbol(t, path[i].Name); ok {
			return sym, path[i+1:], true
		}
	}
	if t := c.findScope(s, path); t != nil {
		return symbol{kind: symScope, scope: s, target: t}, nil, true
	}
	return symbol{}, nil, false
}

// findTask resolves the scope of a task or function by name.
func (c *elabContext) findTask(s *netlist.Scope, pkg string, path pform.Name) *netlist.Scope {
	isTask := func(t *netlist.Scope) bool {
		return t != nil && (t.Kind() == netlist.ScopeTask || t.Kind() == netlist.ScopeFunction)
	}
	if pkg != "" {
		ps := c.des.Package(pkg)
		if ps == nil {
			return nil
		}
		if t := c.childScope(ps, path[0], s); isTask(t) {
			return t
		}
		return nil
	}
	if len(path) > 1 {
		if t := c.findScope(s, path); isTask(t) {
			return t
		}
		return nil
	}
	name := path[0].Name
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		if id, ok := cur.Child(netlist.Named(name)); ok && isTask(c.scope(id)) {
			return c.scope(id)
		}
		if id, ok := cur.ImportNames[name]; ok {
			if t, ok := c.scope(id).Child(netlist.Named(name)); ok {
				return c.scope(t)
			}
		}
		if ps := c.wildcardSource(cur, name); ps != nil {
			if t, ok := ps.Child(netlist.Named(name)); ok {
				return c.scope(t)
			}
		}
		if isBoundary(cur.Kind()) {
			break
		}
	}
	if unit := c.des.Unit(); unit != nil {
		if id, ok := unit.Child(netlist.Named(name)); ok && isTask(c.scope(id)) {
			return c.scope(id)
		}
	}
	return nil
}

// quietInt evaluates e as an integer without reporting failures.
func (c *elabContext) quietInt(e pform.Expr, s *netlist.Scope) (int64, bool) {
	if n, ok := e.(*pform.ENumber); ok {
		return n.Value.AsInt64()
	}
	before := len(c.diag.Diagnostics())
	x := c.elabExpr(e, s)
	v, ok := c.tryConst(x)
	if len(c.diag.Diagnostics()) != before || !ok {
		return 0, false
	}
	return v.AsInt64()
}

package elab

import (
	"fmt"

	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

// maxRecursionDepth bounds conditional recursive instantiation, which
// only terminates when a generate condition eventually fails.
const maxRecursionDepth = 64

// elabScope runs the scope pass for s: declarations are collected, child
// scopes for tasks, functions, classes, named blocks and instances are
// created, and generate schemes are queued.
func (c *elabContext) elabScope(s *netlist.Scope) {
	if s == nil || s.Stage() >= netlist.StageScope {
		return
	}
	src := c.sources[s.ID()]
	c.traceScope(s, "collect scope")
	if src.lex != nil {
		c.collectLexical(s, src.lex, src.module == nil)
	}
	if src.items != nil {
		c.collectItems(s, src.items)
	}
	s.AdvanceStage(netlist.StageScope)
}

// collectLexical declares what a lexical scope carries in s.
func (c *elabContext) collectLexical(s *netlist.Scope, lex *pform.LexicalScope, params bool) {
	if params {
		c.declareParams(s, lex)
	}
	for _, td := range lex.Typedefs {
		if _, dup := s.Typedefs[td.Name]; dup {
			c.diag.Errorf(td, "typedef %s is already declared in %s.", td.Name, c.path(s))
			continue
		}
		s.Typedefs[td.Name] = td.Type
	}
	c.collectImports(s, lex)
	for _, ev := range lex.Events {
		if s.Event(ev.Name) != nil {
			c.diag.Errorf(ev, "event %s is already declared in %s.", ev.Name, c.path(s))
			continue
		}
		e := netlist.NewEvent(s.ID(), ev.Name)
		e.LineInfo = loc(ev)
		s.AddEvent(e)
	}
	for _, g := range lex.Genvars {
		s.Genvars[g] = true
	}

	// Enumeration literals must be visible before any expression of the
	// scope is elaborated.
	for _, td := range lex.Typedefs {
		if _, ok := td.Type.(*pform.EnumType); ok {
			c.elabType(td.Type, s)
		}
	}
	for _, w := range lex.Wires {
		if _, ok := w.Type.(*pform.EnumType); ok {
			c.elabType(w.Type, s)
		}
	}

	for _, t := range lex.Tasks {
		c.newTaskScope(s, t, nil)
	}
	for _, f := range lex.Functions {
		c.newTaskScope(s, &f.Task, f)
	}
	for _, cl := range lex.Classes {
		c.newClassScope(s, cl)
	}
}

func (c *elabContext) collectImports(s *netlist.Scope, lex *pform.LexicalScope) {
	if len(lex.Imports) == 0 {
		return
	}
	local := make(map[string]bool)
	for _, w := range lex.Wires {
		local[w.Name] = true
	}
	for _, p := range lex.Parameters {
		local[p.Name] = true
	}
	for _, td := range lex.Typedefs {
		local[td.Name] = true
	}
	for _, imp := range lex.Imports {
		ps := c.des.Package(imp.Package)
		if ps == nil {
			c.diag.Errorf(imp, "package %s is not declared.", imp.Package)
			continue
		}
		if imp.Wildcard() {
			dup := false
			for _, id := range s.Imports {
				dup = dup || id == ps.ID()
			}
			if !dup {
				s.Imports = append(s.Imports, ps.ID())
			}
			continue
		}
		if _, _, err := c.reg.Resolve(imp.Package, imp.Name); err != nil {
			c.diag.Errorf(imp, "%v.", err)
			continue
		}
		if err := c.reg.CheckConflict(imp.Name, imp.Package, local); err != nil {
			c.diag.Errorf(imp, "%v.", err)
			continue
		}
		s.ImportNames[imp.Name] = ps.ID()
	}
}

// newTaskScope creates the scope of a task or, when fn is set, a function.
func (c *elabContext) newTaskScope(parent *netlist.Scope, t *pform.Task, fn *pform.Function) *netlist.Scope {
	kind := netlist.ScopeTask
	if fn != nil {
		kind = netlist.ScopeFunction
	}
	if parent.HasChildNamed(t.Name) {
		c.diag.Errorf(t, "%s %s is already declared in %s.", kind, t.Name, c.path(parent))
		return nil
	}
	s := c.des.NewScope(parent.ID(), netlist.Named(t.Name), kind)
	s.LineInfo = loc(t)
	s.Automatic = t.Automatic
	s.Task = &netlist.TaskDef{Decl: t, Void: fn != nil && fn.IsVoid()}
	c.sources[s.ID()] = &scopeSource{lex: &t.LexicalScope, task: t, fn: fn}
	c.collectLexical(s, &t.LexicalScope, true)
	c.scanStmt(s, t.Body)
	s.AdvanceStage(netlist.StageScope)
	return s
}

// newClassScope creates a class scope and its type. Properties are typed
// in the signal pass.
func (c *elabContext) newClassScope(parent *netlist.Scope, cl *pform.Class) {
	if _, dup := parent.Classes[cl.Name]; dup || parent.HasChildNamed(cl.Name) {
		c.diag.Errorf(cl, "class %s is already declared in %s.", cl.Name, c.path(parent))
		return
	}
	s := c.des.NewScope(parent.ID(), netlist.Named(cl.Name), netlist.ScopeClass)
	s.LineInfo = loc(cl)
	ct := &netlist.ClassType{Name: cl.Name, Scope: s.ID(), Virtual: cl.Virtual}
	if cl.Extends != "" {
		super, ok := c.lookupType(parent, "", cl.Extends)
		sc, isClass := super.(*netlist.ClassType)
		if !ok || !isClass {
			c.diag.Errorf(cl, "class %s extends %s, which is not a class.", cl.Name, cl.Extends)
		} else {
			ct.Super = sc
		}
	}
	s.Class = ct
	parent.Classes[cl.Name] = ct
	c.sources[s.ID()] = &scopeSource{lex: &cl.LexicalScope, class: cl}
	c.collectLexical(s, &cl.LexicalScope, true)
	s.AdvanceStage(netlist.StageScope)
}

// collectItems handles the module items of s: instances become child
// scopes, generate schemes are queued, defparams wait for their target.
func (c *elabContext) collectItems(s *netlist.Scope, items *pform.ModuleItems) {
	for _, d := range items.Defparams {
		c.defparams = append(c.defparams, &pendingDefparam{scope: s.ID(), def: d})
	}
	for _, g := range items.Gates {
		if inst, ok := g.(*pform.GModule); ok {
			c.scopeInstance(s, inst)
		}
	}
	for _, gen := range items.Generates {
		c.queue(genWork{scope: s.ID(), gen: gen})
	}
	for _, b := range items.Behaviors {
		c.scanStmt(s, b.Body)
	}
}

// scopeInstance creates the scopes of a module instance or instance
// array. UDP instances have no scope.
func (c *elabContext) scopeInstance(s *netlist.Scope, g *pform.GModule) {
	mod, ok := c.src.Modules[g.Type]
	if !ok {
		if _, isUDP := c.src.UDPs[g.Type]; isUDP {
			return
		}
		c.diag.Errorf(g, "Unknown module type: %s", g.Type)
		if !c.cfg.Compat.MissingModulesTolerated {
			c.abandon = true
		}
		return
	}
	if c.skipped[g.Type] {
		return
	}
	depth := 0
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		if cur.Kind() == netlist.ScopeModule && cur.ModuleName == g.Type {
			depth++
		}
	}
	if depth >= maxRecursionDepth {
		c.diag.Errorf(g, "You cannot instantiate module %s within itself (nesting exceeds %d levels).", g.Type, maxRecursionDepth)
		return
	}
	if s.HasChildNamed(g.Name) {
		c.diag.Errorf(g, "Instance name %s is already used in %s.", g.Name, c.path(s))
		return
	}
	if len(g.Ranges) == 0 {
		inst := c.newModuleScope(s.ID(), netlist.Named(g.Name), mod, g)
		c.overrideParams(inst, s, mod, g)
		return
	}
	if len(g.Ranges) > 1 {
		c.diag.Sorryf(g, "multi-dimensional instance arrays are not supported.")
		return
	}
	r, ok := c.evalRange(g.Ranges[0], s)
	if !ok {
		return
	}
	var ids []netlist.ScopeID
	step := int64(-1)
	if r.Ascending() {
		step = 1
	}
	for idx := r.Msb; ; idx += step {
		inst := c.newModuleScope(s.ID(), netlist.Indexed(g.Name, idx), mod, g)
		c.overrideParams(inst, s, mod, g)
		ids = append(ids, inst.ID())
		if idx == r.Lsb {
			break
		}
	}
	s.InstanceArrays[g.Name] = ids
}

// scanStmt creates scopes for named blocks, blocks with declarations and
// loops that declare variables.
func (c *elabContext) scanStmt(parent *netlist.Scope, st pform.Statement) {
	switch x := st.(type) {
	case nil:
	case *pform.Block:
		target := parent
		decls := len(x.Wires) > 0 || len(x.Parameters) > 0 || len(x.Typedefs) > 0 || len(x.Events) > 0
		if x.Name != "" || decls {
			if x.Name == "" && !c.sv() {
				c.diag.Errorf(x, "Variable declarations in unnamed blocks require SystemVerilog.")
			}
			kind := netlist.ScopeBegin
			if x.Kind != pform.BlockSeq {
				kind = netlist.ScopeFork
			}
			target = c.newBlockScope(parent, x.Name, kind, x, &x.LexicalScope)
			c.sources[target.ID()].block = x
		}
		for _, sub := range x.Stmts {
			c.scanStmt(target, sub)
		}
	case *pform.For:
		target := parent
		if x.Decl != nil {
			target = c.newBlockScope(parent, "", netlist.ScopeBegin, x, &pform.LexicalScope{Wires: []*pform.Wire{x.Decl}})
		}
		c.scanStmt(target, x.Body)
	case *pform.Foreach:
		lex := &pform.LexicalScope{}
		for _, v := range x.Vars {
			if v == "" {
				continue
			}
			lex.Wires = append(lex.Wires, &pform.Wire{
				LineInfo: x.LineInfo, Name: v, Kind: pform.NetReg,
				Type: &pform.Atom2Type{LineInfo: x.LineInfo, Width: 32, Signed: true},
			})
		}
		target := c.newBlockScope(parent, "", netlist.ScopeBegin, x, lex)
		c.scanStmt(target, x.Body)
	case *pform.Condit:
		c.scanStmt(parent, x.Then)
		c.scanStmt(parent, x.Else)
	case *pform.Case:
		for _, it := range x.Items {
			c.scanStmt(parent, it.Stmt)
		}
	case *pform.While:
		c.scanStmt(parent, x.Body)
	case *pform.DoWhile:
		c.scanStmt(parent, x.Body)
	case *pform.Repeat:
		c.scanStmt(parent, x.Body)
	case *pform.Forever:
		c.scanStmt(parent, x.Body)
	case *pform.EventStmt:
		c.scanStmt(parent, x.Stmt)
	case *pform.DelayStmt:
		c.scanStmt(parent, x.Stmt)
	case *pform.Wait:
		c.scanStmt(parent, x.Stmt)
	}
}

// newBlockScope makes the scope of a statement. An empty name gets a
// generated one.
func (c *elabContext) newBlockScope(parent *netlist.Scope, name string, kind netlist.ScopeKind, st pform.Statement, lex *pform.LexicalScope) *netlist.Scope {
	if name == "" {
		c.blockSeq++
		name = fmt.Sprintf("$unm_blk_%d", c.blockSeq)
	} else if parent.HasChildNamed(name) {
		c.diag.Errorf(st, "block name %s is already used in %s.", name, c.path(parent))
		c.blockSeq++
		name = fmt.Sprintf("%s$%d", name, c.blockSeq)
	}
	s := c.des.NewScope(parent.ID(), netlist.Named(name), kind)
	s.LineInfo = loc(st)
	s.Automatic = parent.Automatic
	c.sources[s.ID()] = &scopeSource{lex: lex}
	c.blocks[st] = s.ID()
	c.collectLexical(s, lex, true)
	s.AdvanceStage(netlist.StageScope)
	return s
}

package elab

import (
	"sort"

	"martianoff/velab/internal/instgraph"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/registry"
	"martianoff/velab/internal/verinum"
)

// workItem is one unit of scope elaboration. Items run in passes; an
// item may queue more items, which run in the next pass.
type workItem interface {
	run(c *elabContext)
}

// scopeWork collects the declarations of a scope that already exists.
type scopeWork struct {
	scope netlist.ScopeID
}

func (w scopeWork) run(c *elabContext) { c.elabScope(c.scope(w.scope)) }

// genWork expands a generate scheme inside scope.
type genWork struct {
	scope netlist.ScopeID
	gen   pform.Generate
}

func (w genWork) run(c *elabContext) { c.elabGenerate(c.scope(w.scope), w.gen) }

func (c *elabContext) queue(item workItem) { c.work.Enqueue(item) }

// runWorklist drains the queue pass by pass. Defparams are retried
// before and after each pass, since a pass may create the scopes they
// name.
func (c *elabContext) runWorklist() {
	for !c.work.Empty() && !c.abandon {
		c.runDefparams()
		pass := make([]workItem, 0, c.work.Size())
		for !c.work.Empty() {
			item, _ := c.work.Dequeue()
			pass = append(pass, item.(workItem))
		}
		c.log.WithField("items", len(pass)).Debugf("scope pass %d", c.passes)
		for _, item := range pass {
			item.run(c)
			if c.abandon {
				return
			}
		}
		c.runDefparams()
		c.passes++
	}
	c.residualDefparams()
}

// setupDesign creates the compilation unit, the packages and the UDP
// definitions, then the root module instances.
func (c *elabContext) setupDesign() {
	unit := c.des.NewScope(netlist.NoScope, netlist.Named("$unit"), netlist.ScopeUnit)
	c.des.SetUnit(unit.ID())
	c.sources[unit.ID()] = &scopeSource{lex: &c.src.Unit.LexicalScope, pkg: c.src.Unit}
	c.reg.RegisterPrelude(registry.BuildInfo(c.src.Unit, unit.ID()))
	c.elabScope(unit)

	for _, p := range c.src.Packages {
		ps := c.des.NewScope(netlist.NoScope, netlist.Named(p.Name), netlist.ScopePackage)
		ps.LineInfo = loc(p)
		if err := c.reg.Register(registry.BuildInfo(p, ps.ID())); err != nil {
			c.diag.Errorf(p, "%v.", err)
			continue
		}
		c.des.AddPackage(ps)
		c.sources[ps.ID()] = &scopeSource{lex: &p.LexicalScope, pkg: p}
		c.elabScope(ps)
	}

	names := make([]string, 0, len(c.src.UDPs))
	for name := range c.src.UDPs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c.des.AddUDP(c.elabUDPDef(c.src.UDPs[name]))
	}

	c.graph = instgraph.Build(c.src)
	for _, cyc := range c.graph.FindAllCycles() {
		c.diag.Errorf(c.src.Modules[cyc.Cycle[0]], "%v.", cyc)
	}
	for name := range instgraph.InCycle(c.graph.FindAllCycles()) {
		c.skipped[name] = true
	}

	roots := c.cfg.Roots
	if len(roots) == 0 {
		roots = c.graph.Roots()
	}
	for _, name := range roots {
		mod, ok := c.src.Modules[name]
		if !ok {
			c.diag.Errorf(nil, "Unable to find the root module %q in the design.", name)
			continue
		}
		if c.skipped[name] {
			continue
		}
		s := c.newModuleScope(netlist.NoScope, netlist.Named(name), mod, mod)
		c.des.AddRoot(s.ID())
		c.traceScope(s, "root module")
	}
}

// elabUDPDef converts a primitive table. The initial value of a
// sequential primitive defaults to x.
func (c *elabContext) elabUDPDef(u *pform.UDP) *netlist.UDPDef {
	def := &netlist.UDPDef{Name: u.Name, Ports: u.Ports, Sequential: u.Sequential, Table: u.Table, Initial: verinum.Vx}
	if u.Initial != nil {
		if n, ok := u.Initial.(*pform.ENumber); ok {
			def.Initial = n.Value.Bit(0)
		} else {
			c.diag.Errorf(u, "primitive %s initial value must be a literal.", u.Name)
		}
	}
	if !u.Sequential && u.Initial != nil {
		c.diag.Errorf(u, "combinational primitive %s cannot have an initial value.", u.Name)
	}
	return def
}

// newModuleScope creates an instance scope for mod. Parameters are
// declared at once so instance overrides can be applied to them.
func (c *elabContext) newModuleScope(parent netlist.ScopeID, name netlist.ScopeName, mod *pform.Module, at pform.Node) *netlist.Scope {
	s := c.des.NewScope(parent, name, netlist.ScopeModule)
	s.LineInfo = loc(at)
	s.ModuleName = mod.Name
	s.IsCell = mod.IsCell
	s.UnconnectedDrive = mod.UnconnectedDrive
	c.sources[s.ID()] = &scopeSource{lex: &mod.LexicalScope, items: &mod.ModuleItems, module: mod}
	c.declareParams(s, &mod.LexicalScope)
	c.queue(scopeWork{scope: s.ID()})
	return s
}

package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

// elabTaskBody elaborates the statement of a task or function once.
func (c *elabContext) elabTaskBody(t *netlist.Scope) {
	def := t.Task
	src := c.sources[t.ID()]
	if def == nil || def.Proc != nil || src == nil || src.task == nil {
		return
	}
	c.elabSigs(t)
	savedFunc, savedLoops := c.inFunc, c.loops
	savedPos, savedScope := c.lexPos, c.posScope
	c.inFunc, c.loops = t.Kind() == netlist.ScopeFunction, 0
	c.lexPos, c.posScope = 0, netlist.NoScope
	defer func() {
		c.inFunc, c.loops = savedFunc, savedLoops
		c.lexPos, c.posScope = savedPos, savedScope
	}()

	// A recursive call made while the body is elaborated sees an
	// empty one.
	def.Proc = located(&netlist.Noop{}, src.task)

	var stmts []netlist.Proc
	for _, w := range src.task.Wires {
		if w.Init == nil || w.Port != pform.NotAPort {
			continue
		}
		sig := c.elabSig(t, w)
		if sig == nil {
			continue
		}
		if !t.IsAutomatic() {
			c.elabVarInit(t, w)
			continue
		}
		if p := c.initAssign(t, sig, w.Init, w); p != nil {
			stmts = append(stmts, p)
		}
	}
	body := c.elabStmt(src.task.Body, t)
	if len(stmts) == 0 {
		if body != nil {
			def.Proc = body
		}
		return
	}
	if body != nil {
		stmts = append(stmts, body)
	}
	def.Proc = located(&netlist.Block{Kind: netlist.BlockSeq, Scope: netlist.NoScope, Stmts: stmts}, src.task)
}

// emptyBody reports a task body that does nothing.
func emptyBody(st pform.Statement) bool {
	switch x := st.(type) {
	case nil, *pform.Null:
		return true
	case *pform.Block:
		if x.Name != "" || len(x.Wires) > 0 {
			return false
		}
		for _, sub := range x.Stmts {
			if !emptyBody(sub) {
				return false
			}
		}
		return true
	}
	return false
}

// elabTaskCall lowers a task call: allocate the frame of an automatic
// task, copy the inputs in, call, copy the outputs back, free the frame.
func (c *elabContext) elabTaskCall(x *pform.CallTask, s *netlist.Scope) netlist.Proc {
	if x.IsSystem() {
		args := make([]netlist.Expr, len(x.Args))
		for i, a := range x.Args {
			if a != nil {
				args[i] = c.reduce(c.elabExpr(a, s))
			}
		}
		return located(&netlist.STask{Name: x.Path[0].Name, Args: args}, x)
	}
	t := c.findTask(s, x.Package, x.Path)
	if t == nil {
		c.diag.Errorf(x, "Enable of unknown task ``%s''.", x.Path)
		return located(&netlist.Noop{}, x)
	}
	c.elabSigs(t)
	def := t.Task
	if t.Kind() == netlist.ScopeFunction && !def.Void {
		return c.discardCall(x, s)
	}
	if t.Kind() == netlist.ScopeTask && c.inFunc {
		c.diag.Errorf(x, "Functions cannot enable task %s.", x.Path)
		return located(&netlist.Noop{}, x)
	}
	if len(x.Args) > len(def.Ports) {
		c.diag.Errorf(x, "Too many arguments (%d, expecting %d) in call to task %s.", len(x.Args), len(def.Ports), x.Path)
		return located(&netlist.Noop{}, x)
	}
	src := c.sources[t.ID()]
	if src != nil && src.task != nil && emptyBody(src.task.Body) {
		return located(&netlist.Noop{}, x)
	}

	var stmts []netlist.Proc
	if t.IsAutomatic() {
		stmts = append(stmts, located(&netlist.Alloc{Scope: t.ID()}, x))
	}
	for i, port := range def.Ports {
		if port.Port() == netlist.PortOutput {
			continue
		}
		var a pform.Expr
		if i < len(x.Args) {
			a = x.Args[i]
		}
		evalIn := s
		if a == nil && src != nil && i < len(src.task.Ports) && src.task.Ports[i].Init != nil {
			a, evalIn = src.task.Ports[i].Init, t
		}
		if a == nil {
			if port.Port() == netlist.PortInput {
				c.diag.Errorf(x, "Missing argument %d (%s) of call to task %s.", i+1, port.Name(), x.Path)
			}
			continue
		}
		lvs := []*netlist.LValue{netlist.NewLValue(port)}
		stmts = append(stmts, located(&netlist.Assign{Lvals: lvs, Rval: c.assignValue(a, lvs, evalIn)}, x))
	}
	stmts = append(stmts, located(&netlist.UTask{Task: t.ID(), Name: c.path(t)}, x))
	for i, port := range def.Ports {
		if port.Port() == netlist.PortInput || i >= len(x.Args) || x.Args[i] == nil {
			continue
		}
		lvs, ok := c.elabLval(x.Args[i], s, false)
		if !ok {
			continue
		}
		stmts = append(stmts, located(&netlist.Assign{Lvals: lvs, Rval: c.copyOut(port, lvs, x)}, x))
	}
	if t.IsAutomatic() {
		stmts = append(stmts, located(&netlist.Free{Scope: t.ID()}, x))
	}
	return located(&netlist.Block{Kind: netlist.BlockSeq, Scope: netlist.NoScope, Stmts: stmts}, x)
}

// copyOut converts the value of an output port for its actual.
func (c *elabContext) copyOut(port *netlist.Signal, lvs []*netlist.LValue, n pform.Node) netlist.Expr {
	pv := netlist.Expr(netlist.NewSignalExpr(port, nil))
	typ := lvalsType(lvs)
	switch {
	case typ.Base() == netlist.BaseReal:
		return toReal(pv)
	case !netlist.IsPacked(typ):
		if !netlist.Compatible(typ, pv.Type()) {
			c.diag.Errorf(n, "output %s of type %s cannot be copied to a value of type %s.", port.Name(), pv.Type(), typ)
		}
		return pv
	}
	lw := typ.PackedWidth()
	if netlist.IsReal(pv) {
		return netlist.NewCastExpr(netlist.CastRealToInt, pv, netlist.NewVector(netlist.BaseLogic, lw, typ.Signed()))
	}
	if !netlist.IsPacked(pv.Type()) {
		c.diag.Errorf(n, "output %s of type %s cannot be copied to a value of type %s.", port.Name(), pv.Type(), typ)
		return errExpr(n)
	}
	pv = fitTo(c.propagate(pv, max64(lw, pv.Width()), pv.Signed()), lw)
	if !netlist.IsFourState(typ) && netlist.IsFourState(pv.Type()) {
		pv = netlist.NewCastExpr(netlist.CastTo2State, pv, netlist.NewVector(netlist.BaseBool, lw, pv.Signed()))
	}
	return c.reduce(pv)
}

// discardCall calls a function for its side effects, dropping the result.
func (c *elabContext) discardCall(x *pform.CallTask, s *netlist.Scope) netlist.Proc {
	if !c.sv() {
		c.diag.Errorf(x, "function %s cannot be called as a task.", x.Path)
		return located(&netlist.Noop{}, x)
	}
	c.diag.Warnf(x, "ignoring the value returned by function %s.", x.Path)
	call := c.elabCall(&pform.ECall{LineInfo: x.LineInfo, Package: x.Package, Path: x.Path, Args: x.Args}, s)
	tmp := c.tmpSignal(s, netlist.SigReg, call.Type(), x)
	return located(&netlist.Assign{Lvals: []*netlist.LValue{netlist.NewLValue(tmp)}, Rval: call}, x)
}

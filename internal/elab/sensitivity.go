package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

type inputKey struct {
	sig  *netlist.Signal
	word int64
}

// inputSet collects the nets a statement or expression reads, in first
// use order.
type inputSet struct {
	seen  map[inputKey]bool
	links []*netlist.Link
	whole []*netlist.Signal // arrays read through a variable index
	skip  map[*netlist.Signal]bool
	// noLocals leaves out variables of blocks and subroutines.
	noLocals bool
}

func newInputSet() *inputSet { return &inputSet{seen: make(map[inputKey]bool)} }

func (in *inputSet) add(sig *netlist.Signal, word int64) {
	k := inputKey{sig, word}
	if in.skip[sig] || in.seen[k] || word < 0 || word >= sig.Words() {
		return
	}
	in.seen[k] = true
	in.links = append(in.links, sig.Pin(int(word)))
}

func (in *inputSet) addAll(sig *netlist.Signal) {
	for w := int64(0); w < sig.Words(); w++ {
		in.add(sig, w)
	}
}

// localTo reports whether sig belongs to a block, task or function, or
// was generated by the elaborator.
func (c *elabContext) localTo(sig *netlist.Signal) bool {
	if sig.IsLocal() {
		return true
	}
	switch c.scope(sig.Scope()).Kind() {
	case netlist.ScopeBegin, netlist.ScopeFork, netlist.ScopeTask, netlist.ScopeFunction:
		return true
	}
	return false
}

func (c *elabContext) exprInputs(x netlist.Expr, in *inputSet) {
	switch x := x.(type) {
	case nil:
	case *netlist.SignalExpr:
		if in.noLocals && c.localTo(x.Sig) {
			return
		}
		if x.Word == nil {
			in.addAll(x.Sig)
			return
		}
		c.exprInputs(x.Word, in)
		if v, ok := c.tryConst(x.Word); ok {
			if n, defined := v.AsInt64(); defined {
				in.add(x.Sig, n)
			}
			return
		}
		in.whole = append(in.whole, x.Sig)
		in.addAll(x.Sig)
	case *netlist.SelectExpr:
		c.exprInputs(x.Expr, in)
		c.exprInputs(x.Base, in)
	case *netlist.UnaryExpr:
		c.exprInputs(x.Operand, in)
	case *netlist.BinaryExpr:
		c.exprInputs(x.Left, in)
		c.exprInputs(x.Right, in)
	case *netlist.TernaryExpr:
		c.exprInputs(x.Cond, in)
		c.exprInputs(x.True, in)
		c.exprInputs(x.False, in)
	case *netlist.ConcatExpr:
		for _, p := range x.Parms {
			c.exprInputs(p, in)
		}
	case *netlist.UFuncExpr:
		for _, a := range x.Args {
			c.exprInputs(a, in)
		}
	case *netlist.SFuncExpr:
		for _, a := range x.Args {
			c.exprInputs(a, in)
		}
	case *netlist.CastExpr:
		c.exprInputs(x.Expr, in)
	case *netlist.PropertyExpr:
		c.exprInputs(x.Handle, in)
	}
}

// stmtInputs collects what p reads.
func (c *elabContext) stmtInputs(p netlist.Proc, in *inputSet) {
	switch p := p.(type) {
	case nil:
	case *netlist.Block:
		for _, st := range p.Stmts {
			c.stmtInputs(st, in)
		}
	case *netlist.Assign:
		c.exprInputs(p.Rval, in)
		for _, lv := range p.Lvals {
			c.exprInputs(lv.Word, in)
			c.exprInputs(lv.Base, in)
		}
	case *netlist.Condit:
		c.exprInputs(p.Cond, in)
		c.stmtInputs(p.Then, in)
		c.stmtInputs(p.Else, in)
	case *netlist.Case:
		c.exprInputs(p.Expr, in)
		for _, it := range p.Items {
			c.exprInputs(it.Guard, in)
			c.stmtInputs(it.Stmt, in)
		}
	case *netlist.While:
		c.exprInputs(p.Cond, in)
		c.stmtInputs(p.Body, in)
	case *netlist.DoWhile:
		c.stmtInputs(p.Body, in)
		c.exprInputs(p.Cond, in)
	case *netlist.Repeat:
		c.exprInputs(p.Count, in)
		c.stmtInputs(p.Body, in)
	case *netlist.Forever:
		c.stmtInputs(p.Body, in)
	case *netlist.For:
		c.stmtInputs(p.Init, in)
		c.exprInputs(p.Cond, in)
		c.stmtInputs(p.Step, in)
		c.stmtInputs(p.Body, in)
	case *netlist.PDelay:
		c.stmtInputs(p.Stmt, in)
	case *netlist.EvWait:
		c.stmtInputs(p.Stmt, in)
	case *netlist.STask:
		for _, a := range p.Args {
			c.exprInputs(a, in)
		}
	}
}

// newEvent makes a synthetic event in s.
func (c *elabContext) newEvent(s *netlist.Scope, n pform.Node) *netlist.Event {
	ev := netlist.NewEvent(s.ID(), s.LocalSymbol())
	ev.LineInfo = loc(n)
	ev.SetLocal(true)
	s.AddEvent(ev)
	return ev
}

// probe attaches a probe on links to ev.
func (c *elabContext) probe(ev *netlist.Event, edge netlist.Edge, links []*netlist.Link, s *netlist.Scope, n pform.Node) {
	if len(links) == 0 {
		return
	}
	p := netlist.NewProbe(s.ID(), s.LocalSymbol(), ev, edge, len(links))
	c.addNode(p, n)
	for i, l := range links {
		netlist.Connect(p.Pin(i), l)
	}
}

// writes collects the variables p assigns.
func writes(p netlist.Proc, out map[*netlist.Signal]bool) {
	switch p := p.(type) {
	case *netlist.Block:
		for _, st := range p.Stmts {
			writes(st, out)
		}
	case *netlist.Assign:
		for _, lv := range p.Lvals {
			out[lv.Sig] = true
		}
	case *netlist.Condit:
		writes(p.Then, out)
		writes(p.Else, out)
	case *netlist.Case:
		for _, it := range p.Items {
			writes(it.Stmt, out)
		}
	case *netlist.While:
		writes(p.Body, out)
	case *netlist.DoWhile:
		writes(p.Body, out)
	case *netlist.Repeat:
		writes(p.Body, out)
	case *netlist.Forever:
		writes(p.Body, out)
	case *netlist.For:
		writes(p.Init, out)
		writes(p.Step, out)
		writes(p.Body, out)
	case *netlist.PDelay:
		writes(p.Stmt, out)
	case *netlist.EvWait:
		writes(p.Stmt, out)
	}
}

// sensitivity builds an event triggered by any change of the inputs of
// body. With outputs set, variables body writes are left out.
func (c *elabContext) sensitivity(body netlist.Proc, s *netlist.Scope, n pform.Node, outputs bool) *netlist.Event {
	in := newInputSet()
	in.noLocals = true
	if outputs {
		in.skip = make(map[*netlist.Signal]bool)
		writes(body, in.skip)
	}
	c.stmtInputs(body, in)
	ev := c.newEvent(s, n)
	if c.cfg.Warnings.Sensitivity {
		for _, sig := range in.whole {
			c.diag.Warnf(n, "@* is sensitive to all %d words of array %s.", sig.Words(), sig.Name())
		}
		if len(in.links) == 0 {
			c.diag.Warnf(n, "@* found no sensitivities, so it will never trigger.")
		}
	}
	c.probe(ev, netlist.EdgeAny, in.links, s, n)
	return ev
}

// elabEventControl returns the events an event control waits on. body
// is the controlled statement, already elaborated, for @*.
func (c *elabContext) elabEventControl(ctrl *pform.EventControl, s *netlist.Scope, body netlist.Proc) []*netlist.Event {
	if c.inFunc {
		c.diag.Errorf(ctrl, "event controls are not allowed in functions.")
	}
	if ctrl.Star {
		ev := c.sensitivity(body, s, ctrl, false)
		ev.AddWait()
		return []*netlist.Event{ev}
	}
	var out []*netlist.Event
	var synth *netlist.Event
	for _, ee := range ctrl.Events {
		if id, ok := ee.Expr.(*pform.EIdent); ok && ee.Edge == pform.EdgeAny {
			if sym, rest, found := c.resolvePath(s, id.Package, id.Path, id); found && sym.kind == symEvent && len(rest) == 0 {
				sym.event.AddWait()
				out = append(out, sym.event)
				continue
			}
		}
		x := c.reduce(c.elabExpr(ee.Expr, s))
		if !netlist.IsPacked(x.Type()) && !netlist.IsReal(x) {
			c.diag.Errorf(ee, "cannot wait on %s of type %s.", ee.Expr, x.Type())
			continue
		}
		if synth == nil {
			synth = c.newEvent(s, ctrl)
			synth.AddWait()
			out = append(out, synth)
		}
		if ee.Edge == pform.EdgeAny {
			in := newInputSet()
			c.exprInputs(x, in)
			c.probe(synth, netlist.EdgeAny, in.links, s, ee)
			continue
		}
		if netlist.IsReal(x) {
			c.diag.Errorf(ee, "%s of a real value is not allowed.", ee.Edge)
			continue
		}
		if x.Width() > 1 {
			x = netlist.NewSelect(x, int64Const(0), 1, false)
		}
		if link := c.synth(c.reduce(x), s, ee); link != nil {
			c.probe(synth, netlist.Edge(ee.Edge), []*netlist.Link{link}, s, ee)
		}
	}
	return out
}

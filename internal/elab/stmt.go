package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

type procLoc interface {
	netlist.Proc
	SetLoc(netlist.LineInfo)
}

// located sets the position of p from n.
func located[T procLoc](p T, n pform.Node) T {
	p.SetLoc(loc(n))
	return p
}

// elabProcess turns an initial, always or final block into a process.
func (c *elabContext) elabProcess(s *netlist.Scope, p *pform.Process) {
	c.lexPos, c.posScope = p.LexicalPos, s.ID()
	defer func() { c.lexPos, c.posScope = 0, netlist.NoScope }()

	body := c.elabStmt(p.Body, s)
	if body == nil {
		body = located(&netlist.Noop{}, p)
	}
	switch p.Kind {
	case pform.ProcAlwaysComb, pform.ProcAlwaysLatch:
		// Runs once at time zero, then whenever something it reads,
		// other than its own outputs, changes.
		ev := c.sensitivity(body, s, p, true)
		ev.AddWait()
		wait := located(&netlist.EvWait{Events: []*netlist.Event{ev}}, p)
		body = located(&netlist.Block{Kind: netlist.BlockSeq, Scope: netlist.NoScope, Stmts: []netlist.Proc{body, wait}}, p)
	}
	top := &netlist.ProcTop{
		LineInfo:   loc(p),
		Kind:       netlist.ProcKind(p.Kind),
		Scope:      s.ID(),
		Stmt:       body,
		Attributes: attributeStrings(p.Attributes),
	}
	c.des.AddProcess(top)
	c.traceElab(s, "process "+p.Kind.String())
}

func attributeStrings(attrs map[string]pform.Expr) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = "1"
		if v != nil {
			out[k] = v.String()
		}
	}
	return out
}

// elabVarInit elaborates the initializer of a declaration in s. A net
// gets a continuous assignment, a variable an initial process that runs
// before any other.
func (c *elabContext) elabVarInit(s *netlist.Scope, w *pform.Wire) {
	sig := c.elabSig(s, w)
	if sig == nil {
		return
	}
	if sig.Kind().IsNet() {
		c.elabContAssign(s, &pform.GAssign{
			LineInfo:   w.LineInfo,
			LexicalPos: w.LexicalPos + 1,
			Lval:       pform.Ident(w.LineInfo, w.Name),
			Rval:       w.Init,
		})
		return
	}
	c.lexPos, c.posScope = w.LexicalPos+1, s.ID()
	init := c.initAssign(s, sig, w.Init, w)
	c.lexPos, c.posScope = 0, netlist.NoScope
	if init == nil {
		return
	}
	c.des.AddProcess(&netlist.ProcTop{
		LineInfo:   loc(w),
		Kind:       netlist.ProcInitial,
		Scope:      s.ID(),
		Stmt:       init,
		Attributes: map[string]string{"_ivl_schedule_init": "1"},
	})
}

// initAssign assigns the initial value e to sig.
func (c *elabContext) initAssign(s *netlist.Scope, sig *netlist.Signal, e pform.Expr, n pform.Node) netlist.Proc {
	if !c.checkVariable(sig, true, n) {
		return nil
	}
	lvs := []*netlist.LValue{netlist.NewLValue(sig)}
	return located(&netlist.Assign{Lvals: lvs, Rval: c.assignValue(e, lvs, s)}, n)
}

// elabStmt elaborates a statement. A nil statement gives nil.
func (c *elabContext) elabStmt(st pform.Statement, s *netlist.Scope) netlist.Proc {
	switch x := st.(type) {
	case nil:
		return nil
	case *pform.Block:
		return c.elabBlock(x, s)
	case *pform.Assign:
		return c.elabAssign(x, s)
	case *pform.DelayStmt:
		d := c.delayValue(x.Delay, s)
		return located(&netlist.PDelay{Delay: d, Stmt: c.elabStmt(x.Stmt, s)}, x)
	case *pform.EventStmt:
		body := c.elabStmt(x.Stmt, s)
		evs := c.elabEventControl(x.Control, s, body)
		if len(evs) == 0 {
			if body == nil {
				return located(&netlist.Noop{}, x)
			}
			return body
		}
		return located(&netlist.EvWait{Events: evs, Stmt: body}, x)
	case *pform.Condit:
		cond := c.elabCond(x.Cond, s)
		return located(&netlist.Condit{Cond: cond, Then: c.elabStmt(x.Then, s), Else: c.elabStmt(x.Else, s)}, x)
	case *pform.Case:
		return c.elabCase(x, s)
	case *pform.While:
		cond := c.elabCond(x.Cond, s)
		return located(&netlist.While{Cond: cond, Body: c.loopBody(x.Body, s)}, x)
	case *pform.DoWhile:
		body := c.loopBody(x.Body, s)
		return located(&netlist.DoWhile{Body: body, Cond: c.elabCond(x.Cond, s)}, x)
	case *pform.Repeat:
		count := c.reduce(c.elabExpr(x.Count, s))
		switch {
		case netlist.IsReal(count):
			count = netlist.NewCastExpr(netlist.CastRealToInt, count, netlist.IntegerType)
		case !netlist.IsPacked(count.Type()):
			c.diag.Errorf(x, "repeat count %s must be a number.", x.Count)
			count = intConst(0)
		}
		return located(&netlist.Repeat{Count: count, Body: c.loopBody(x.Body, s)}, x)
	case *pform.Forever:
		return located(&netlist.Forever{Body: c.loopBody(x.Body, s)}, x)
	case *pform.For:
		return c.elabFor(x, s)
	case *pform.Foreach:
		return c.elabForeach(x, s)
	case *pform.Wait:
		return c.elabWait(x, s)
	case *pform.WaitFork:
		if c.inFunc {
			c.diag.Errorf(x, "wait fork is not allowed in functions.")
		}
		return located(&netlist.WaitFork{}, x)
	case *pform.Trigger:
		sym, rest, ok := c.resolvePath(s, "", x.Event, x)
		if !ok || sym.kind != symEvent || len(rest) > 0 {
			c.diag.Errorf(x, "%s is not a named event.", x.Event)
			return located(&netlist.Noop{}, x)
		}
		sym.event.AddTrigger()
		return located(&netlist.EvTrig{Event: sym.event}, x)
	case *pform.Disable:
		t := c.findScope(s, x.Target)
		if t == nil {
			c.diag.Errorf(x, "Cannot find scope %s to disable.", x.Target)
			return located(&netlist.Noop{}, x)
		}
		switch t.Kind() {
		case netlist.ScopeBegin, netlist.ScopeFork, netlist.ScopeTask:
		default:
			c.diag.Errorf(x, "%s is a %s; only blocks and tasks can be disabled.", x.Target, t.Kind())
			return located(&netlist.Noop{}, x)
		}
		return located(&netlist.Disable{Target: t.ID()}, x)
	case *pform.CallTask:
		return c.elabTaskCall(x, s)
	case *pform.Return:
		return c.elabReturn(x, s)
	case *pform.Break:
		return c.elabJump(netlist.JumpBreak, x)
	case *pform.Continue:
		return c.elabJump(netlist.JumpContinue, x)
	case *pform.Null:
		return located(&netlist.Noop{}, x)
	}
	c.diag.Sorryf(st, "statement is not supported.")
	return located(&netlist.Noop{}, st)
}

func (c *elabContext) loopBody(st pform.Statement, s *netlist.Scope) netlist.Proc {
	c.loops++
	defer func() { c.loops-- }()
	return c.elabStmt(st, s)
}

// elabBlock elaborates begin/end and fork/join. A block with a scope
// initializes its automatic variables on entry.
func (c *elabContext) elabBlock(x *pform.Block, s *netlist.Scope) netlist.Proc {
	inner, sid := s, netlist.NoScope
	if id, ok := c.blocks[x]; ok {
		inner, sid = c.scope(id), id
		c.elabSigs(inner)
	}
	var stmts []netlist.Proc
	if sid.IsValid() {
		for _, w := range x.Wires {
			if w.Init == nil {
				continue
			}
			if !inner.IsAutomatic() {
				c.elabVarInit(inner, w)
				continue
			}
			if sig := c.elabSig(inner, w); sig != nil {
				if p := c.initAssign(inner, sig, w.Init, w); p != nil {
					stmts = append(stmts, p)
				}
			}
		}
	}
	for _, sub := range x.Stmts {
		if p := c.elabStmt(sub, inner); p != nil {
			stmts = append(stmts, p)
		}
	}
	return located(&netlist.Block{Kind: netlist.BlockKind(x.Kind), Scope: sid, Stmts: stmts}, x)
}

// assignValue elaborates e for the targets lvs, sized to their width.
func (c *elabContext) assignValue(e pform.Expr, lvs []*netlist.LValue, s *netlist.Scope) netlist.Expr {
	typ := lvalsType(lvs)
	var lw int64
	if netlist.IsPacked(typ) {
		lw = typ.PackedWidth()
	}
	rv := c.elabRval(e, s, typ, lw)
	if !netlist.IsPacked(typ) || netlist.IsReal(rv) || !netlist.IsPacked(rv.Type()) {
		return rv
	}
	rv = fitTo(rv, lw)
	if !netlist.IsFourState(typ) && netlist.IsFourState(rv.Type()) {
		rv = netlist.NewCastExpr(netlist.CastTo2State, rv, netlist.NewVector(netlist.BaseBool, lw, rv.Signed()))
	}
	return c.reduce(rv)
}

func (c *elabContext) delayValue(e pform.Expr, s *netlist.Scope) netlist.Expr {
	if c.inFunc {
		c.diag.Errorf(e, "Delay statements are not allowed in functions.")
	}
	x := c.reduce(c.elabExpr(e, s))
	if !netlist.IsReal(x) && !netlist.IsPacked(x.Type()) {
		c.diag.Errorf(e, "delay %s must be a numeric value.", e)
		return intConst(0)
	}
	return x
}

func (c *elabContext) elabAssign(x *pform.Assign, s *netlist.Scope) netlist.Proc {
	lvs, ok := c.elabLval(x.Lval, s, false)
	if !ok {
		return located(&netlist.Noop{}, x)
	}
	rhs := x.Rval
	if x.Op != "" {
		rhs = &pform.EBinary{LineInfo: x.LineInfo, Op: x.Op, Left: x.Lval, Right: x.Rval}
	}
	rv := c.assignValue(rhs, lvs, s)

	if x.NonBlocking {
		if c.inFunc {
			c.diag.Errorf(x, "non-blocking assignments are not allowed in functions.")
		}
		a := &netlist.Assign{Lvals: lvs, Rval: rv, NonBlocking: true}
		if x.Delay != nil {
			a.Delay = c.delayValue(x.Delay, s)
		}
		if x.Event != nil {
			evs := c.elabEventControl(x.Event, s, nil)
			if len(evs) > 1 {
				c.diag.Sorryf(x, "a non-blocking assignment can wait on only one named event.")
			}
			if len(evs) > 0 {
				a.Event = evs[0]
			}
		}
		if x.Repeat != nil {
			a.Count = c.reduce(c.elabExpr(x.Repeat, s))
		}
		return located(a, x)
	}
	if x.Delay == nil && x.Event == nil {
		return located(&netlist.Assign{Lvals: lvs, Rval: rv}, x)
	}

	// The value is sampled now and written after the timing control.
	tmp := c.tmpSignal(s, netlist.SigReg, rv.Type(), x)
	save := located(&netlist.Assign{Lvals: []*netlist.LValue{netlist.NewLValue(tmp)}, Rval: rv}, x)
	write := located(&netlist.Assign{Lvals: lvs, Rval: netlist.NewSignalExpr(tmp, nil)}, x)
	var wait netlist.Proc
	switch {
	case x.Delay != nil:
		wait = located(&netlist.PDelay{Delay: c.delayValue(x.Delay, s), Stmt: write}, x)
	case x.Repeat != nil:
		evs := c.elabEventControl(x.Event, s, nil)
		count := c.reduce(c.elabExpr(x.Repeat, s))
		rep := located(&netlist.Repeat{Count: count, Body: located(&netlist.EvWait{Events: evs}, x)}, x)
		return located(&netlist.Block{Kind: netlist.BlockSeq, Scope: netlist.NoScope, Stmts: []netlist.Proc{save, rep, write}}, x)
	default:
		wait = located(&netlist.EvWait{Events: c.elabEventControl(x.Event, s, nil), Stmt: write}, x)
	}
	return located(&netlist.Block{Kind: netlist.BlockSeq, Scope: netlist.NoScope, Stmts: []netlist.Proc{save, wait}}, x)
}

// elabCase evaluates the selector and every guard at one common width
// and signedness, or as reals when any of them is real.
func (c *elabContext) elabCase(x *pform.Case, s *netlist.Scope) netlist.Proc {
	sel := c.elabExpr(x.Expr, s)
	guards := make([][]netlist.Expr, len(x.Items))
	all := []netlist.Expr{sel}
	for i, it := range x.Items {
		for _, e := range it.Exprs {
			g := c.elabExpr(e, s)
			guards[i] = append(guards[i], g)
			all = append(all, g)
		}
	}
	var w int64
	anyReal, signed, packed := false, true, true
	for _, v := range all {
		switch {
		case netlist.IsReal(v):
			anyReal = true
		case netlist.IsPacked(v.Type()):
			w = max64(w, v.Width())
			signed = signed && v.Signed()
		default:
			packed = false
		}
	}
	if anyReal && x.Kind != pform.CaseEq {
		c.diag.Errorf(x, "%s cannot compare real values.", x.Kind)
	}
	common := func(v netlist.Expr, n pform.Node) netlist.Expr {
		switch {
		case !packed:
			if !netlist.Compatible(sel.Type(), v.Type()) {
				c.diag.Errorf(n, "case item of type %s cannot be compared with a selector of type %s.", v.Type(), sel.Type())
			}
			return c.reduce(v)
		case anyReal:
			return c.reduce(toReal(v))
		}
		return c.reduce(c.propagate(v, w, signed))
	}

	out := &netlist.Case{Kind: netlist.CaseKind(x.Kind), Expr: common(sel, x.Expr)}
	sawDefault := false
	for i, it := range x.Items {
		body := c.elabStmt(it.Stmt, s)
		if it.Exprs == nil {
			if sawDefault {
				c.diag.Errorf(it, "case statement has more than one default item.")
			}
			sawDefault = true
			out.Items = append(out.Items, &netlist.CaseItem{Stmt: body})
			continue
		}
		for k, g := range guards[i] {
			out.Items = append(out.Items, &netlist.CaseItem{Guard: common(g, it.Exprs[k]), Stmt: body})
		}
	}
	return located(out, x)
}

func (c *elabContext) elabFor(x *pform.For, s *netlist.Scope) netlist.Proc {
	inner, sid := s, netlist.NoScope
	if id, ok := c.blocks[x]; ok {
		inner, sid = c.scope(id), id
		c.elabSigs(inner)
	}
	var init netlist.Proc
	switch {
	case x.Init != nil:
		init = c.elabStmt(x.Init, inner)
	case x.Decl != nil && x.Decl.Init != nil:
		if sig := c.elabSig(inner, x.Decl); sig != nil {
			init = c.initAssign(inner, sig, x.Decl.Init, x.Decl)
		}
	}
	var cond netlist.Expr
	if x.Cond != nil {
		cond = c.elabCond(x.Cond, inner)
	}
	step := c.elabStmt(x.Step, inner)
	loop := located(&netlist.For{Init: init, Cond: cond, Step: step, Body: c.loopBody(x.Body, inner)}, x)
	if !sid.IsValid() {
		return loop
	}
	return located(&netlist.Block{Kind: netlist.BlockSeq, Scope: sid, Stmts: []netlist.Proc{loop}}, x)
}

// foreachDim is one loop of a foreach nest.
type foreachDim struct {
	v       *netlist.Signal
	r       netlist.Range
	dynamic bool
}

// elabForeach lowers foreach to nested for loops, the first loop
// variable outermost. Dynamic dimensions use run-time bounds.
func (c *elabContext) elabForeach(x *pform.Foreach, s *netlist.Scope) netlist.Proc {
	id, ok := c.blocks[x]
	if !ok {
		return located(&netlist.Noop{}, x)
	}
	inner := c.scope(id)
	c.elabSigs(inner)
	sym, rest, found := c.resolvePath(s, "", x.Array, x)
	if !found || sym.kind != symSignal || len(rest) > 0 {
		c.diag.Errorf(x, "foreach array %s is not a variable.", x.Array)
		return located(&netlist.Noop{}, x)
	}
	sig := sym.sig
	var dims []foreachDim
	switch t := sig.Type().(type) {
	case *netlist.DArrayType, *netlist.QueueType:
		dims = append(dims, foreachDim{dynamic: true})
		for _, r := range netlist.PackedDims(elemType(t)) {
			dims = append(dims, foreachDim{r: r})
		}
	default:
		for _, r := range sig.Unpacked() {
			dims = append(dims, foreachDim{r: r})
		}
		for _, r := range netlist.PackedDims(sig.Type()) {
			dims = append(dims, foreachDim{r: r})
		}
	}
	if len(x.Vars) > len(dims) {
		c.diag.Errorf(x, "foreach has %d loop variables but %s has %d dimensions.", len(x.Vars), sig.Name(), len(dims))
		return located(&netlist.Noop{}, x)
	}
	var nest []foreachDim
	for i, name := range x.Vars {
		if name == "" {
			continue
		}
		d := dims[i]
		d.v = inner.Signal(name)
		if d.v == nil {
			continue
		}
		if d.dynamic && i > 0 {
			c.diag.Sorryf(x, "foreach over an inner dynamic dimension is not supported.")
			return located(&netlist.Noop{}, x)
		}
		nest = append(nest, d)
	}
	arr := netlist.NewSignalExpr(sig, nil)
	stmt := c.loopBody(x.Body, inner)
	for i := len(nest) - 1; i >= 0; i-- {
		stmt = c.foreachLoop(nest[i], arr, stmt, x)
	}
	return located(&netlist.Block{Kind: netlist.BlockSeq, Scope: id, Stmts: []netlist.Proc{stmt}}, x)
}

func (c *elabContext) foreachLoop(d foreachDim, arr netlist.Expr, body netlist.Proc, n pform.Node) netlist.Proc {
	v := netlist.NewSignalExpr(d.v, nil)
	var from, to netlist.Expr
	cmp, step := "<=", "+"
	if d.dynamic {
		from = netlist.NewSFuncExpr("$low", []netlist.Expr{arr}, netlist.IntegerType)
		to = netlist.NewSFuncExpr("$high", []netlist.Expr{arr}, netlist.IntegerType)
	} else {
		from, to = intConst(d.r.Msb), intConst(d.r.Lsb)
		if !d.r.Ascending() {
			cmp, step = ">=", "-"
		}
	}
	assign := func(rv netlist.Expr) netlist.Proc {
		lv := netlist.NewLValue(d.v)
		return located(&netlist.Assign{Lvals: []*netlist.LValue{lv}, Rval: fitTo(rv, d.v.Width())}, n)
	}
	return located(&netlist.For{
		Init: assign(from),
		Cond: netlist.NewBinary(cmp, v, to, netlist.LogicScalar),
		Step: assign(netlist.NewBinary(step, v, intConst(1), d.v.Type())),
		Body: body,
	}, n)
}

// elabWait lowers wait (cond) stmt to a loop that sleeps until cond
// holds. A condition that is constantly false waits forever.
func (c *elabContext) elabWait(x *pform.Wait, s *netlist.Scope) netlist.Proc {
	if c.inFunc {
		c.diag.Errorf(x, "wait statements are not allowed in functions.")
	}
	cond := c.elabCond(x.Cond, s)
	then := c.elabStmt(x.Stmt, s)
	if v, ok := c.tryConst(cond); ok {
		if !v.IsZero() {
			if then == nil {
				return located(&netlist.Noop{}, x)
			}
			return then
		}
		ev := c.newEvent(s, x)
		ev.AddWait()
		return located(&netlist.EvWait{Events: []*netlist.Event{ev}, Stmt: then}, x)
	}
	in := newInputSet()
	c.exprInputs(cond, in)
	ev := c.newEvent(s, x)
	ev.AddWait()
	c.probe(ev, netlist.EdgeAny, in.links, s, x)
	loop := located(&netlist.While{
		Cond: netlist.NewUnary("!", cond, netlist.LogicScalar),
		Body: located(&netlist.EvWait{Events: []*netlist.Event{ev}}, x),
	}, x)
	stmts := []netlist.Proc{loop}
	if then != nil {
		stmts = append(stmts, then)
	}
	return located(&netlist.Block{Kind: netlist.BlockSeq, Scope: netlist.NoScope, Stmts: stmts}, x)
}

// enclosingSub returns the task or function around s.
func (c *elabContext) enclosingSub(s *netlist.Scope) *netlist.Scope {
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		switch cur.Kind() {
		case netlist.ScopeTask, netlist.ScopeFunction:
			return cur
		}
		if isBoundary(cur.Kind()) {
			return nil
		}
	}
	return nil
}

func (c *elabContext) elabReturn(x *pform.Return, s *netlist.Scope) netlist.Proc {
	sub := c.enclosingSub(s)
	if sub == nil {
		c.diag.Errorf(x, "return is only allowed in a task or function.")
		return located(&netlist.Noop{}, x)
	}
	jump := located(&netlist.Jump{Jump: netlist.JumpReturn, Scope: sub.ID()}, x)
	def := sub.Task
	if sub.Kind() != netlist.ScopeFunction || def.Void || def.Result == nil {
		if x.Value != nil {
			c.diag.Errorf(x, "%s %s cannot return a value.", sub.Kind(), sub.BaseName())
		}
		return jump
	}
	if x.Value == nil {
		c.diag.Errorf(x, "function %s must return a value.", sub.BaseName())
		return jump
	}
	lvs := []*netlist.LValue{netlist.NewLValue(def.Result)}
	set := located(&netlist.Assign{Lvals: lvs, Rval: c.assignValue(x.Value, lvs, s)}, x)
	return located(&netlist.Block{Kind: netlist.BlockSeq, Scope: netlist.NoScope, Stmts: []netlist.Proc{set, jump}}, x)
}

func (c *elabContext) elabJump(kind netlist.JumpKind, n pform.Node) netlist.Proc {
	if !c.sv() {
		c.diag.Errorf(n, "%s requires SystemVerilog.", kind)
	} else if c.loops == 0 {
		c.diag.Errorf(n, "%s is only allowed in a loop.", kind)
	}
	return located(&netlist.Jump{Jump: kind, Scope: netlist.NoScope}, n)
}

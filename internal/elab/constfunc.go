package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/verinum"
)

// maxConstDepth bounds recursion of constant function calls.
const maxConstDepth = 256

// flow is how a statement of a constant function finished.
type flow int

const (
	flowNormal flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// callConstFunc evaluates a call of a user function with constant
// arguments by interpreting its elaborated body.
func (c *elabContext) callConstFunc(x *netlist.UFuncExpr, args []value) (value, bool) {
	fn := c.scope(x.Func)
	if fn == nil || fn.Task == nil {
		return value{}, false
	}
	if c.constDepth >= maxConstDepth {
		c.diag.Errorf(fn, "constant function %s recurses more than %d levels.", fn.BaseName(), maxConstDepth)
		return value{}, false
	}
	if c.constDepth == 0 {
		c.steps = 0
	}
	c.constDepth++
	defer func() { c.constDepth-- }()

	c.elabTaskBody(fn)
	def := fn.Task
	if def.Result == nil || def.Proc == nil {
		return value{}, false
	}
	vars := newEnv()
	c.frame(fn, vars)
	for i, port := range def.Ports {
		if i < len(args) {
			vars.set(port, 0, coerceTo(args[i], port))
		}
	}
	if _, ok := c.exec(def.Proc, vars); !ok {
		return value{}, false
	}
	return vars.get(def.Result, 0)
}

// frame gives every variable of s and its blocks its initial value.
func (c *elabContext) frame(s *netlist.Scope, vars *env) {
	for _, sig := range s.Signals() {
		vars.set(sig, 0, initialValue(sig))
	}
	for _, id := range s.Children() {
		child := c.scope(id)
		switch child.Kind() {
		case netlist.ScopeBegin, netlist.ScopeFork:
			c.frame(child, vars)
		}
	}
}

// coerceTo converts v to the type of sig.
func coerceTo(v value, sig *netlist.Signal) value {
	if sig.Type().Base() == netlist.BaseReal {
		return realValue(v.asReal())
	}
	if !netlist.IsPacked(sig.Type()) {
		return v
	}
	w := int(sig.Width())
	n := v.asNum(w, sig.Signed()).Resize(w).WithSigned(sig.Signed())
	if !sig.IsFourState() {
		bits := n.Bits()
		for i, b := range bits {
			if b == verinum.Vx || b == verinum.Vz {
				bits[i] = verinum.V0
			}
		}
		n = verinum.FromBits(bits, sig.Signed())
	}
	return intValue(n)
}

// truth is the value of a condition; x and z are false.
func truth(v value) bool {
	if v.isReal {
		return v.real != 0
	}
	return v.num.IsNonZero()
}

// tick counts one loop iteration against the configured limit.
func (c *elabContext) tick(p netlist.Proc) bool {
	c.steps++
	if limit := c.cfg.Limits.MaxLoopIterations; limit > 0 && c.steps > limit {
		c.diag.Errorf(p.Loc(), "constant function loop exceeds %d iterations.", limit)
		return false
	}
	return true
}

// exec runs one statement of a constant function.
func (c *elabContext) exec(p netlist.Proc, vars *env) (flow, bool) {
	switch p := p.(type) {
	case nil, *netlist.Noop, *netlist.STask:
		return flowNormal, true
	case *netlist.Block:
		if p.Kind != netlist.BlockSeq {
			break
		}
		for _, st := range p.Stmts {
			f, ok := c.exec(st, vars)
			if !ok || f != flowNormal {
				return f, ok
			}
		}
		return flowNormal, true
	case *netlist.Assign:
		if p.NonBlocking || p.Delay != nil || p.Event != nil {
			break
		}
		v, ok := c.fold(p.Rval, vars)
		if !ok {
			return flowNormal, false
		}
		return flowNormal, c.store(p.Lvals, v, vars)
	case *netlist.Condit:
		cond, ok := c.fold(p.Cond, vars)
		if !ok {
			return flowNormal, false
		}
		if truth(cond) {
			return c.exec(p.Then, vars)
		}
		return c.exec(p.Else, vars)
	case *netlist.Case:
		return c.execCase(p, vars)
	case *netlist.While:
		for {
			cond, ok := c.fold(p.Cond, vars)
			if !ok {
				return flowNormal, false
			}
			if !truth(cond) {
				return flowNormal, true
			}
			if f, ok := c.loopStep(p, p.Body, vars); !ok || f != flowNormal {
				return f, ok
			}
		}
	case *netlist.DoWhile:
		for {
			if f, ok := c.loopStep(p, p.Body, vars); !ok || f != flowNormal {
				return f, ok
			}
			cond, ok := c.fold(p.Cond, vars)
			if !ok {
				return flowNormal, false
			}
			if !truth(cond) {
				return flowNormal, true
			}
		}
	case *netlist.Repeat:
		count, ok := c.fold(p.Count, vars)
		if !ok {
			return flowNormal, false
		}
		n, defined := count.asNum(32, true).AsInt64()
		if !defined {
			n = 0
		}
		for i := int64(0); i < n; i++ {
			if f, ok := c.loopStep(p, p.Body, vars); !ok || f != flowNormal {
				return f, ok
			}
		}
		return flowNormal, true
	case *netlist.Forever:
		for {
			if f, ok := c.loopStep(p, p.Body, vars); !ok || f != flowNormal {
				return f, ok
			}
		}
	case *netlist.For:
		if f, ok := c.exec(p.Init, vars); !ok || f != flowNormal {
			return f, ok
		}
		for {
			if p.Cond != nil {
				cond, ok := c.fold(p.Cond, vars)
				if !ok {
					return flowNormal, false
				}
				if !truth(cond) {
					return flowNormal, true
				}
			}
			if f, ok := c.loopStep(p, p.Body, vars); !ok || f != flowNormal {
				return f, ok
			}
			if f, ok := c.exec(p.Step, vars); !ok || f != flowNormal {
				return f, ok
			}
		}
	case *netlist.Jump:
		switch p.Jump {
		case netlist.JumpBreak:
			return flowBreak, true
		case netlist.JumpContinue:
			return flowContinue, true
		}
		return flowReturn, true
	}
	c.diag.Errorf(p.Loc(), "statement cannot be evaluated in a constant function.")
	return flowNormal, false
}

// loopStep runs one iteration of a loop body. Break ends the loop and
// continue starts the next iteration.
func (c *elabContext) loopStep(loop netlist.Proc, body netlist.Proc, vars *env) (flow, bool) {
	if !c.tick(loop) {
		return flowNormal, false
	}
	f, ok := c.exec(body, vars)
	switch {
	case !ok:
		return flowNormal, false
	case f == flowBreak:
		return flowBreak, true
	case f == flowReturn:
		return flowReturn, true
	}
	return flowNormal, true
}

func (c *elabContext) execCase(p *netlist.Case, vars *env) (flow, bool) {
	sel, ok := c.fold(p.Expr, vars)
	if !ok {
		return flowNormal, false
	}
	var dflt netlist.Proc
	for _, it := range p.Items {
		if it.Guard == nil {
			dflt = it.Stmt
			continue
		}
		g, ok := c.fold(it.Guard, vars)
		if !ok {
			return flowNormal, false
		}
		if caseMatch(p.Kind, sel, g) {
			return c.exec(it.Stmt, vars)
		}
	}
	return c.exec(dflt, vars)
}

func caseMatch(kind netlist.CaseKind, a, b value) bool {
	if a.isReal || b.isReal {
		return a.asReal() == b.asReal()
	}
	switch kind {
	case netlist.CaseX:
		return verinum.WildEq(a.num, b.num, false) && verinum.WildEq(b.num, a.num, false)
	case netlist.CaseZ:
		return verinum.WildEq(a.num, b.num, true) && verinum.WildEq(b.num, a.num, true)
	}
	return verinum.CaseEq(a.num, b.num).IsNonZero()
}

// store writes v into lvs, the first l-value taking the most
// significant bits.
func (c *elabContext) store(lvs []*netlist.LValue, v value, vars *env) bool {
	if len(lvs) == 1 {
		return c.storeOne(lvs[0], v, vars)
	}
	var total int64
	for _, lv := range lvs {
		total += lv.Width()
	}
	n := v.asNum(int(total), false).Resize(int(total))
	off := total
	for _, lv := range lvs {
		off -= lv.Width()
		if !c.storeOne(lv, intValue(n.Slice(int(off), int(lv.Width()))), vars) {
			return false
		}
	}
	return true
}

func (c *elabContext) storeOne(lv *netlist.LValue, v value, vars *env) bool {
	if lv.Property != nil {
		return false
	}
	switch lv.Sig.Type().(type) {
	case *netlist.DArrayType, *netlist.QueueType, *netlist.ClassType:
		return false
	}
	sig := lv.Sig
	var word int64
	if lv.Word != nil {
		w, ok := c.fold(lv.Word, vars)
		if !ok || w.isReal {
			return false
		}
		n, defined := w.num.AsInt64()
		if !defined || n < 0 || n >= sig.Words() {
			// Writes outside the array are dropped.
			return true
		}
		word = n
	}
	if lv.Base == nil {
		vars.set(sig, word, coerceTo(v, sig))
		return true
	}
	b, ok := c.fold(lv.Base, vars)
	if !ok || b.isReal {
		return false
	}
	base, defined := b.num.AsInt64()
	if !defined {
		return true
	}
	old, ok := vars.get(sig, word)
	if !ok || old.isReal {
		return false
	}
	bits := old.num.Bits()
	src := v.asNum(int(lv.Width()), false).Resize(int(lv.Width())).Bits()
	for i, bit := range src {
		if k := base + int64(i); k >= 0 && k < int64(len(bits)) {
			bits[k] = bit
		}
	}
	vars.set(sig, word, intValue(verinum.FromBits(bits, sig.Signed())))
	return true
}

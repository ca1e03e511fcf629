package elab

import (
	"math"

	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// value is the result of constant evaluation: an integral or string
// vector, or a real.
type value struct {
	num    *verinum.Verinum
	real   float64
	isReal bool
}

func intValue(v *verinum.Verinum) value { return value{num: v} }
func realValue(r float64) value         { return value{real: r, isReal: true} }

// asReal converts an integral value to real.
func (v value) asReal() float64 {
	if v.isReal {
		return v.real
	}
	return v.num.AsFloat()
}

// asNum converts a real value to an integral one of the given width.
func (v value) asNum(width int, signed bool) *verinum.Verinum {
	if !v.isReal {
		return v.num
	}
	return verinum.FromInt64(int64(math.Round(v.real)), width, signed)
}

// toExpr wraps a value as a constant expression.
func (v value) toExpr() netlist.Expr {
	if v.isReal {
		return netlist.NewRealConst(v.real)
	}
	return netlist.NewConstExpr(v.num)
}

// env holds the variables of a constant function activation.
type env struct {
	vars map[*netlist.Signal][]value
}

func newEnv() *env { return &env{vars: make(map[*netlist.Signal][]value)} }

func (e *env) get(sig *netlist.Signal, word int64) (value, bool) {
	if e == nil {
		return value{}, false
	}
	words, ok := e.vars[sig]
	if !ok || word < 0 || word >= int64(len(words)) {
		return value{}, false
	}
	return words[word], true
}

func (e *env) set(sig *netlist.Signal, word int64, v value) {
	words, ok := e.vars[sig]
	if !ok {
		words = make([]value, sig.Words())
		for i := range words {
			words[i] = initialValue(sig)
		}
		e.vars[sig] = words
	}
	if word >= 0 && word < int64(len(words)) {
		words[word] = v
	}
}

// initialValue is what a variable holds before it is written.
func initialValue(sig *netlist.Signal) value {
	if sig.Type().Base() == netlist.BaseReal {
		return realValue(0)
	}
	fill := verinum.Vx
	if !sig.IsFourState() {
		fill = verinum.V0
	}
	return intValue(verinum.New(int(sig.Width()), fill).WithSigned(sig.Signed()))
}

// constValue elaborates e in s and folds it to a constant. A failure is
// reported once.
func (c *elabContext) constValue(e pform.Expr, s *netlist.Scope) (*verinum.Verinum, bool) {
	v, ok := c.constEval(e, s)
	if !ok {
		return nil, false
	}
	if v.isReal {
		return v.asNum(32, true), true
	}
	return v.num, true
}

// constEval is constValue for contexts that accept reals.
func (c *elabContext) constEval(e pform.Expr, s *netlist.Scope) (value, bool) {
	before := c.diag.Errors()
	x := c.elabExpr(e, s)
	v, ok := c.fold(x, nil)
	if !ok && c.diag.Errors() == before {
		c.diag.Errorf(e, "Unable to evaluate %s as a constant expression.", e)
	}
	return v, ok
}

// constInt evaluates e to a defined integer.
func (c *elabContext) constInt(e pform.Expr, s *netlist.Scope) (int64, bool) {
	v, ok := c.constValue(e, s)
	if !ok {
		return 0, false
	}
	n, ok := v.AsInt64()
	if !ok {
		c.diag.Errorf(e, "Constant expression %s has an undefined value.", e)
		return 0, false
	}
	return n, true
}

// tryConst folds an already elaborated expression without reporting.
func (c *elabContext) tryConst(x netlist.Expr) (*verinum.Verinum, bool) {
	v, ok := c.fold(x, nil)
	if !ok || v.isReal {
		return nil, false
	}
	return v.num, true
}

// fold evaluates an elaborated expression. Variables are read from vars,
// which is nil outside constant functions.
func (c *elabContext) fold(x netlist.Expr, vars *env) (value, bool) {
	switch x := x.(type) {
	case *netlist.ConstExpr:
		return intValue(x.Value), true
	case *netlist.RealConstExpr:
		return realValue(x.Value), true
	case *netlist.EnumConstExpr:
		return intValue(x.Name.Value), true
	case *netlist.SignalExpr:
		var word int64
		if x.Word != nil {
			w, ok := c.fold(x.Word, vars)
			if !ok || w.isReal {
				return value{}, false
			}
			n, ok := w.num.AsInt64()
			if !ok || n < 0 || n >= x.Sig.Words() {
				return intValue(verinum.New(int(x.Width()), verinum.Vx)), true
			}
			word = n
		}
		return vars.get(x.Sig, word)
	case *netlist.SelectExpr:
		return c.foldSelect(x, vars)
	case *netlist.UnaryExpr:
		return c.foldUnary(x, vars)
	case *netlist.BinaryExpr:
		return c.foldBinary(x, vars)
	case *netlist.TernaryExpr:
		return c.foldTernary(x, vars)
	case *netlist.ConcatExpr:
		parts := make([]*verinum.Verinum, 0, len(x.Parms))
		for _, p := range x.Parms {
			v, ok := c.fold(p, vars)
			if !ok || v.isReal {
				return value{}, false
			}
			parts = append(parts, v.num)
		}
		return intValue(verinum.Concat(parts...).Repeat(int(x.Repeat))), true
	case *netlist.CastExpr:
		v, ok := c.fold(x.Expr, vars)
		if !ok {
			return value{}, false
		}
		switch x.Conv {
		case netlist.CastIntToReal:
			return realValue(v.asReal()), true
		case netlist.CastRealToInt:
			return intValue(v.asNum(int(x.Width()), x.Signed())), true
		default:
			bits := v.num.Bits()
			for i, b := range bits {
				if b == verinum.Vx || b == verinum.Vz {
					bits[i] = verinum.V0
				}
			}
			return intValue(verinum.FromBits(bits, x.Signed())), true
		}
	case *netlist.UFuncExpr:
		args := make([]value, len(x.Args))
		for i, a := range x.Args {
			v, ok := c.fold(a, vars)
			if !ok {
				return value{}, false
			}
			args[i] = v
		}
		return c.callConstFunc(x, args)
	case *netlist.SFuncExpr:
		return c.foldSysFunc(x, vars)
	}
	return value{}, false
}

func (c *elabContext) foldSelect(x *netlist.SelectExpr, vars *env) (value, bool) {
	v, ok := c.fold(x.Expr, vars)
	if !ok {
		return value{}, false
	}
	w := int(x.Width())
	if v.isReal {
		return intValue(v.asNum(w, x.Signed())), true
	}
	if x.Base == nil {
		n := v.num
		if !x.Signed() {
			n = n.WithSigned(false)
		}
		return intValue(n.Resize(w).WithSigned(x.Signed())), true
	}
	b, ok := c.fold(x.Base, vars)
	if !ok || b.isReal {
		return value{}, false
	}
	base, ok := b.num.AsInt64()
	if !ok {
		return intValue(verinum.New(w, verinum.Vx)), true
	}
	return intValue(v.num.Slice(int(base), w).WithSigned(x.Signed())), true
}

func (c *elabContext) foldUnary(x *netlist.UnaryExpr, vars *env) (value, bool) {
	v, ok := c.fold(x.Operand, vars)
	if !ok {
		return value{}, false
	}
	if v.isReal {
		switch x.Op {
		case "-":
			return realValue(-v.real), true
		case "+":
			return v, true
		case "!":
			return intValue(verinum.FromBool(v.real == 0)), true
		}
		return value{}, false
	}
	a := v.num
	var r *verinum.Verinum
	switch x.Op {
	case "-":
		r = verinum.Neg(a)
	case "+":
		r = a
	case "~":
		r = verinum.Not(a)
	case "!":
		r = verinum.LogicalNot(a)
	case "&":
		r = verinum.RedAnd(a)
	case "|":
		r = verinum.RedOr(a)
	case "^":
		r = verinum.RedXor(a)
	case "~&":
		r = verinum.Not(verinum.RedAnd(a))
	case "~|":
		r = verinum.Not(verinum.RedOr(a))
	case "~^", "^~":
		r = verinum.Not(verinum.RedXor(a))
	default:
		return value{}, false
	}
	return intValue(fit(r, x)), true
}

// fit adjusts a folded result to the width and signedness of x.
func fit(v *verinum.Verinum, x netlist.Expr) *verinum.Verinum {
	if !netlist.IsPacked(x.Type()) {
		return v
	}
	return v.Resize(int(x.Width())).WithSigned(x.Signed())
}

func (c *elabContext) foldBinary(x *netlist.BinaryExpr, vars *env) (value, bool) {
	lv, ok := c.fold(x.Left, vars)
	if !ok {
		return value{}, false
	}
	// Short circuit keeps constant functions with guarded recursion finite.
	switch x.Op {
	case "&&":
		if !lv.isReal && verinum.Truth(lv.num) == verinum.V0 {
			return intValue(verinum.FromBool(false)), true
		}
	case "||":
		if !lv.isReal && verinum.Truth(lv.num) == verinum.V1 {
			return intValue(verinum.FromBool(true)), true
		}
	}
	rv, ok := c.fold(x.Right, vars)
	if !ok {
		return value{}, false
	}
	if lv.isReal || rv.isReal {
		return foldReal(x.Op, lv.asReal(), rv.asReal(), x)
	}
	a, b := lv.num, rv.num
	var r *verinum.Verinum
	switch x.Op {
	case "+":
		r = verinum.Add(a, b)
	case "-":
		r = verinum.Sub(a, b)
	case "*":
		r = verinum.Mul(a, b)
	case "/":
		r = verinum.Div(a, b)
	case "%":
		r = verinum.Mod(a, b)
	case "**":
		r = verinum.Pow(a, b)
	case "&":
		r = verinum.And(a, b)
	case "|":
		r = verinum.Or(a, b)
	case "^":
		r = verinum.Xor(a, b)
	case "~^", "^~":
		r = verinum.Xnor(a, b)
	case "<<", "<<<":
		n, ok := verinum.ShiftAmount(b)
		if !ok {
			r = verinum.New(a.Width(), verinum.Vx)
		} else {
			r = verinum.Shl(a, n)
		}
	case ">>", ">>>":
		n, ok := verinum.ShiftAmount(b)
		if !ok {
			r = verinum.New(a.Width(), verinum.Vx)
		} else {
			r = verinum.Shr(a, n, x.Op == ">>>" && x.Signed())
		}
	case "==":
		r = verinum.Eq(a, b)
	case "!=":
		r = verinum.Ne(a, b)
	case "===":
		r = verinum.CaseEq(a, b)
	case "!==":
		r = verinum.LogicalNot(verinum.CaseEq(a, b))
	case "==?":
		r = verinum.FromBool(verinum.WildEq(a, b, false))
	case "!=?":
		r = verinum.FromBool(!verinum.WildEq(a, b, false))
	case "<":
		r = verinum.Lt(a, b)
	case "<=":
		r = verinum.Le(a, b)
	case ">":
		r = verinum.Gt(a, b)
	case ">=":
		r = verinum.Ge(a, b)
	case "&&":
		r = verinum.LogicalAnd(a, b)
	case "||":
		r = verinum.LogicalOr(a, b)
	default:
		return value{}, false
	}
	return intValue(fit(r, x)), true
}

func foldReal(op string, a, b float64, x netlist.Expr) (value, bool) {
	switch op {
	case "+":
		return realValue(a + b), true
	case "-":
		return realValue(a - b), true
	case "*":
		return realValue(a * b), true
	case "/":
		return realValue(a / b), true
	case "**":
		return realValue(math.Pow(a, b)), true
	case "==":
		return intValue(verinum.FromBool(a == b)), true
	case "!=":
		return intValue(verinum.FromBool(a != b)), true
	case "<":
		return intValue(verinum.FromBool(a < b)), true
	case "<=":
		return intValue(verinum.FromBool(a <= b)), true
	case ">":
		return intValue(verinum.FromBool(a > b)), true
	case ">=":
		return intValue(verinum.FromBool(a >= b)), true
	case "&&":
		return intValue(verinum.FromBool(a != 0 && b != 0)), true
	case "||":
		return intValue(verinum.FromBool(a != 0 || b != 0)), true
	}
	return value{}, false
}

func (c *elabContext) foldTernary(x *netlist.TernaryExpr, vars *env) (value, bool) {
	cv, ok := c.fold(x.Cond, vars)
	if !ok {
		return value{}, false
	}
	truth := verinum.V1
	if cv.isReal {
		if cv.real == 0 {
			truth = verinum.V0
		}
	} else {
		truth = verinum.Truth(cv.num)
	}
	switch truth {
	case verinum.V1:
		return c.fold(x.True, vars)
	case verinum.V0:
		return c.fold(x.False, vars)
	}
	tv, ok1 := c.fold(x.True, vars)
	fv, ok2 := c.fold(x.False, vars)
	if !ok1 || !ok2 {
		return value{}, false
	}
	if tv.isReal || fv.isReal {
		return realValue(0), true
	}
	// An unknown condition merges the branches bit by bit.
	w := int(x.Width())
	t, f := tv.num.Resize(w), fv.num.Resize(w)
	bits := make([]verinum.Bit, w)
	for i := range bits {
		if t.Bit(i) == f.Bit(i) {
			bits[i] = t.Bit(i)
		} else {
			bits[i] = verinum.Vx
		}
	}
	return intValue(verinum.FromBits(bits, x.Signed())), true
}

func (c *elabContext) foldSysFunc(x *netlist.SFuncExpr, vars *env) (value, bool) {
	args := make([]value, len(x.Args))
	for i, a := range x.Args {
		v, ok := c.fold(a, vars)
		if !ok {
			return value{}, false
		}
		args[i] = v
	}
	switch x.Name {
	case "$clog2":
		if len(args) != 1 {
			return value{}, false
		}
		return intValue(verinum.Clog2(args[0].asNum(32, false))), true
	case "$rtoi":
		if len(args) != 1 {
			return value{}, false
		}
		return intValue(verinum.FromInt64(int64(args[0].asReal()), 32, true)), true
	case "$itor":
		if len(args) != 1 {
			return value{}, false
		}
		return realValue(args[0].asReal()), true
	case "$ln", "$log10", "$exp", "$sqrt", "$floor", "$ceil":
		if len(args) != 1 {
			return value{}, false
		}
		return realValue(realFunc(x.Name, args[0].asReal())), true
	case "$pow":
		if len(args) != 2 {
			return value{}, false
		}
		return realValue(math.Pow(args[0].asReal(), args[1].asReal())), true
	}
	return value{}, false
}

func realFunc(name string, r float64) float64 {
	switch name {
	case "$ln":
		return math.Log(r)
	case "$log10":
		return math.Log10(r)
	case "$exp":
		return math.Exp(r)
	case "$sqrt":
		return math.Sqrt(r)
	case "$floor":
		return math.Floor(r)
	}
	return math.Ceil(r)
}

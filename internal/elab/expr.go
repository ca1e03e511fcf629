package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

type locSetter interface {
	SetLoc(netlist.LineInfo)
}

// at stamps x with the position of n.
func at[T netlist.Expr](x T, n pform.Node) T {
	if ls, ok := any(x).(locSetter); ok {
		ls.SetLoc(loc(n))
	}
	return x
}

// errExpr is what a failed expression elaborates to.
func errExpr(n pform.Node) netlist.Expr {
	return at(netlist.NewConstExpr(verinum.New(1, verinum.Vx)), n)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func kindOf(xs ...netlist.Expr) netlist.BaseKind {
	for _, x := range xs {
		if x.Type().Base() != netlist.BaseBool {
			return netlist.BaseLogic
		}
	}
	return netlist.BaseBool
}

func toReal(x netlist.Expr) netlist.Expr {
	if netlist.IsReal(x) {
		return x
	}
	return netlist.NewCastExpr(netlist.CastIntToReal, x, netlist.RealValue)
}

// elabExpr elaborates e in s. The result has its self-determined width
// and signedness; a failure is reported and yields a 1-bit x.
func (c *elabContext) elabExpr(e pform.Expr, s *netlist.Scope) netlist.Expr {
	switch e := e.(type) {
	case nil:
		return netlist.NewConstExpr(verinum.New(1, verinum.Vx))
	case *pform.ENumber:
		return at(netlist.NewConstExpr(e.Value), e)
	case *pform.EReal:
		return at(netlist.NewRealConst(e.Value), e)
	case *pform.EString:
		return at(netlist.NewConstExpr(verinum.FromString(e.Value)), e)
	case *pform.EIdent:
		return c.elabIdent(e, s)
	case *pform.EUnary:
		return c.elabUnary(e, s)
	case *pform.EBinary:
		return c.elabBinary(e, s)
	case *pform.ETernary:
		return c.elabTernary(e, s)
	case *pform.EConcat:
		return c.elabConcat(e, s)
	case *pform.ECall:
		return c.elabCall(e, s)
	case *pform.ESysCall:
		return c.elabSysCall(e, s)
	case *pform.ECast:
		return c.elabCast(e, s)
	case *pform.ENull:
		return at(netlist.NewNull(), e)
	case *pform.ETypeRef:
		c.diag.Errorf(e, "type %s used where a value is expected.", e.Type)
	case *pform.EEvent:
		c.diag.Errorf(e, "event expression %s used where a value is expected.", e)
	default:
		c.diag.Sorryf(e, "expression %s is not supported.", e)
	}
	return errExpr(e)
}

// elabIdent resolves a name, applying its selects and member accesses.
func (c *elabContext) elabIdent(id *pform.EIdent, s *netlist.Scope) netlist.Expr {
	sym, rest, ok := c.resolvePath(s, id.Package, id.Path, id)
	if !ok {
		c.diag.Errorf(id, "Unable to bind wire/reg/memory `%s' in `%s'", id, c.path(s))
		return errExpr(id)
	}
	idxs := id.Path[len(id.Path)-len(rest)-1].Index
	switch sym.kind {
	case symGenvar:
		x := at(netlist.NewConstExpr(sym.genvar), id)
		return c.constSelect(x, netlist.IntType, idxs, rest, s, id)
	case symParam:
		x := c.paramRef(sym.scope, sym.param, id)
		typ := sym.param.Type
		if typ == nil || !netlist.IsPacked(typ) {
			typ = x.Type()
		}
		return c.constSelect(x, typ, idxs, rest, s, id)
	case symEnum:
		x := at(netlist.NewEnumConst(sym.enum, sym.lit), id)
		return c.constSelect(x, sym.enum, idxs, rest, s, id)
	case symEvent:
		if len(idxs) > 0 || len(rest) > 0 {
			c.diag.Errorf(id, "event %s cannot be indexed.", id)
		}
		return at(netlist.NewEventExpr(sym.event), id)
	case symScope:
		return at(netlist.NewScopeExpr(sym.target.ID(), c.path(sym.target)), id)
	case symSignal:
		return c.signalRval(sym.sig, idxs, rest, s, id)
	}
	c.diag.Errorf(id, "Unable to bind wire/reg/memory `%s' in `%s'", id, c.path(s))
	return errExpr(id)
}

// constSelect applies selects to a constant of type typ.
func (c *elabContext) constSelect(x netlist.Expr, typ netlist.Type, idxs []*pform.Index, rest pform.Name, s *netlist.Scope, n pform.Node) netlist.Expr {
	if len(idxs) == 0 && len(rest) == 0 {
		return x
	}
	if netlist.IsReal(x) {
		c.diag.Errorf(n, "cannot select bits of real value %s.", n)
		return errExpr(n)
	}
	sel, ok := c.packedPath(typ, idxs, rest, s, n)
	if !ok {
		return errExpr(n)
	}
	return c.applySelect(x, sel, n)
}

// signalRval reads a signal through its word index, packed selects and
// member accesses.
func (c *elabContext) signalRval(sig *netlist.Signal, idxs []*pform.Index, rest pform.Name, s *netlist.Scope, n pform.Node) netlist.Expr {
	var base netlist.Expr
	switch t := sig.Type().(type) {
	case *netlist.DArrayType, *netlist.QueueType:
		if len(idxs) == 0 {
			base = netlist.NewSignalExpr(sig, nil)
			break
		}
		if idxs[0].Sel != pform.SelBit {
			c.diag.Sorryf(n, "slices of %s are not supported.", sig.Name())
			return errExpr(n)
		}
		ix := c.elabExpr(idxs[0].Msb, s)
		if netlist.IsReal(ix) {
			c.diag.Errorf(n, "index of %s must not be real.", sig.Name())
			return errExpr(n)
		}
		base = netlist.NewSignalExpr(sig, netlist.NewSelect(ix, nil, 64, ix.Signed()))
		idxs = idxs[1:]
	case *netlist.ClassType:
		base = netlist.NewSignalExpr(sig, nil)
		if len(rest) > 0 {
			return c.propertyRval(base, t, idxs, rest, s, n)
		}
	default:
		if sig.IsArray() {
			if len(idxs) == 0 {
				if len(rest) > 0 {
					c.diag.Errorf(n, "array %s needs %d indices.", sig.Name(), len(sig.Unpacked()))
					return errExpr(n)
				}
				return at(netlist.NewSignalExpr(sig, nil), n)
			}
			if len(idxs) < len(sig.Unpacked()) {
				c.diag.Sorryf(n, "slices of unpacked array %s are not supported.", sig.Name())
				return errExpr(n)
			}
			word, ok := c.wordIndex(sig, idxs[:len(sig.Unpacked())], s, n)
			if !ok {
				return errExpr(n)
			}
			base = netlist.NewSignalExpr(sig, word)
			idxs = idxs[len(sig.Unpacked()):]
		} else {
			base = netlist.NewSignalExpr(sig, nil)
		}
	}
	at(base.(*netlist.SignalExpr), n)
	if len(idxs) == 0 && len(rest) == 0 {
		return base
	}
	if t, ok := base.Type().(*netlist.ClassType); ok {
		return c.propertyRval(base, t, idxs, rest, s, n)
	}
	sel, ok := c.packedPath(base.Type(), idxs, rest, s, n)
	if !ok {
		return errExpr(n)
	}
	return c.applySelect(base, sel, n)
}

// propertyRval reads a class property through a handle.
func (c *elabContext) propertyRval(handle netlist.Expr, ct *netlist.ClassType, idxs []*pform.Index, rest pform.Name, s *netlist.Scope, n pform.Node) netlist.Expr {
	if len(idxs) > 0 {
		c.diag.Errorf(n, "class handle %s cannot be indexed.", handle)
		return errExpr(n)
	}
	prop, _ := ct.Property(rest[0].Name)
	if prop == nil {
		c.diag.Errorf(n, "class %s has no property %s.", ct.Name, rest[0].Name)
		return errExpr(n)
	}
	x := at(netlist.NewPropertyExpr(handle, prop), n)
	if len(rest[0].Index) == 0 && len(rest) == 1 {
		return x
	}
	sel, ok := c.packedPath(prop.Type, rest[0].Index, rest[1:], s, n)
	if !ok {
		return errExpr(n)
	}
	return c.applySelect(x, sel, n)
}

func (c *elabContext) elabUnary(e *pform.EUnary, s *netlist.Scope) netlist.Expr {
	x := c.elabExpr(e.Operand, s)
	if netlist.IsReal(x) {
		switch e.Op {
		case "-", "+":
			return at(netlist.NewUnary(e.Op, x, netlist.RealValue), e)
		case "!":
			return at(netlist.NewUnary(e.Op, x, netlist.LogicScalar), e)
		}
		c.diag.Errorf(e, "operator %s does not accept a real operand.", e.Op)
		return errExpr(e)
	}
	if !netlist.IsPacked(x.Type()) {
		c.diag.Errorf(e, "operand of %s must be an integral value, not %s.", e.Op, x.Type())
		return errExpr(e)
	}
	switch e.Op {
	case "-", "+", "~":
		return at(netlist.NewUnary(e.Op, x, netlist.NewVector(kindOf(x), x.Width(), x.Signed())), e)
	case "!", "&", "|", "^", "~&", "~|", "~^", "^~":
		return at(netlist.NewUnary(e.Op, x, netlist.NewVector(kindOf(x), 1, false)), e)
	}
	c.diag.Errorf(e, "unknown unary operator %s.", e.Op)
	return errExpr(e)
}

var (
	arithOps   = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}
	bitwiseOps = map[string]bool{"&": true, "|": true, "^": true, "~^": true, "^~": true}
	shiftOps   = map[string]bool{"<<": true, ">>": true, "<<<": true, ">>>": true}
	compareOps = map[string]bool{"==": true, "!=": true, "===": true, "!==": true, "==?": true, "!=?": true,
		"<": true, "<=": true, ">": true, ">=": true}
	realOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "**": true,
		"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true, "&&": true, "||": true}
)

func (c *elabContext) elabBinary(e *pform.EBinary, s *netlist.Scope) netlist.Expr {
	l := c.elabExpr(e.Left, s)
	r := c.elabExpr(e.Right, s)

	if netlist.IsReal(l) || netlist.IsReal(r) {
		if !realOps[e.Op] {
			c.diag.Errorf(e, "operator %s does not accept real operands.", e.Op)
			return errExpr(e)
		}
		typ := netlist.Type(netlist.RealValue)
		if compareOps[e.Op] || e.Op == "&&" || e.Op == "||" {
			typ = netlist.LogicScalar
		}
		if e.Op == "&&" || e.Op == "||" {
			return at(netlist.NewBinary(e.Op, l, r, typ), e)
		}
		return at(netlist.NewBinary(e.Op, toReal(l), toReal(r), typ), e)
	}

	lp, rp := netlist.IsPacked(l.Type()), netlist.IsPacked(r.Type())
	if !lp || !rp {
		if (e.Op == "==" || e.Op == "!=" || e.Op == "===" || e.Op == "!==") && netlist.Compatible(l.Type(), r.Type()) {
			return at(netlist.NewBinary(e.Op, l, r, netlist.LogicScalar), e)
		}
		bad := l
		if lp {
			bad = r
		}
		c.diag.Errorf(e, "operator %s cannot be applied to %s of type %s.", e.Op, bad, bad.Type())
		return errExpr(e)
	}

	kind := kindOf(l, r)
	switch {
	case arithOps[e.Op] || bitwiseOps[e.Op]:
		w := max64(l.Width(), r.Width())
		signed := l.Signed() && r.Signed()
		l, r = c.propagate(l, w, signed), c.propagate(r, w, signed)
		return at(netlist.NewBinary(e.Op, l, r, netlist.NewVector(kind, w, signed)), e)
	case e.Op == "**":
		signed := l.Signed() && r.Signed()
		l = c.propagate(l, l.Width(), signed)
		return at(netlist.NewBinary(e.Op, l, r, netlist.NewVector(kind, l.Width(), signed)), e)
	case shiftOps[e.Op]:
		return at(netlist.NewBinary(e.Op, l, r, netlist.NewVector(kindOf(l), l.Width(), l.Signed())), e)
	case compareOps[e.Op]:
		w := max64(l.Width(), r.Width())
		signed := l.Signed() && r.Signed()
		l, r = c.propagate(l, w, signed), c.propagate(r, w, signed)
		return at(netlist.NewBinary(e.Op, l, r, netlist.NewVector(kind, 1, false)), e)
	case e.Op == "&&" || e.Op == "||" || e.Op == "->" || e.Op == "<->":
		return at(netlist.NewBinary(e.Op, l, r, netlist.NewVector(kind, 1, false)), e)
	}
	c.diag.Errorf(e, "unknown binary operator %s.", e.Op)
	return errExpr(e)
}

func (c *elabContext) elabTernary(e *pform.ETernary, s *netlist.Scope) netlist.Expr {
	cond := c.elabExpr(e.Cond, s)
	t := c.elabExpr(e.True, s)
	f := c.elabExpr(e.False, s)
	if netlist.IsReal(t) || netlist.IsReal(f) {
		return at(netlist.NewTernary(cond, toReal(t), toReal(f), netlist.RealValue), e)
	}
	if !netlist.IsPacked(t.Type()) || !netlist.IsPacked(f.Type()) {
		if !netlist.Compatible(t.Type(), f.Type()) {
			c.diag.Errorf(e, "branches of %s have incompatible types %s and %s.", e, t.Type(), f.Type())
			return errExpr(e)
		}
		return at(netlist.NewTernary(cond, t, f, t.Type()), e)
	}
	w := max64(t.Width(), f.Width())
	signed := t.Signed() && f.Signed()
	t, f = c.propagate(t, w, signed), c.propagate(f, w, signed)
	return at(netlist.NewTernary(cond, t, f, netlist.NewVector(kindOf(t, f), w, signed)), e)
}

func (c *elabContext) elabConcat(e *pform.EConcat, s *netlist.Scope) netlist.Expr {
	repeat := int64(1)
	if e.Repeat != nil {
		n, ok := c.constInt(e.Repeat, s)
		if !ok {
			return errExpr(e)
		}
		if n <= 0 {
			c.diag.Errorf(e, "Concatenation repeat must be positive, not %d.", n)
			return errExpr(e)
		}
		repeat = n
	}
	parms := make([]netlist.Expr, 0, len(e.Parms))
	for _, p := range e.Parms {
		if p == nil {
			c.diag.Errorf(e, "Concatenation has an empty operand.")
			continue
		}
		x := c.elabExpr(p, s)
		if netlist.IsReal(x) || !netlist.IsPacked(x.Type()) {
			c.diag.Errorf(p, "Concatenation operand %s must be an integral value, not %s.", p, x.Type())
			continue
		}
		if v, ok := netlist.ConstValue(x); ok && !v.Sized() && !v.IsString() {
			c.diag.Errorf(p, "Concatenation operand \"%s\" has indefinite width.", p)
			continue
		}
		parms = append(parms, x)
	}
	if len(parms) == 0 {
		return errExpr(e)
	}
	return at(netlist.NewConcatExpr(parms, repeat), e)
}

func (c *elabContext) elabCast(e *pform.ECast, s *netlist.Scope) netlist.Expr {
	x := c.elabExpr(e.Expr, s)
	switch {
	case e.Type != nil:
		typ := c.elabType(e.Type, s)
		if typ.Base() == netlist.BaseReal {
			return at(toReal(x), e)
		}
		if !netlist.IsPacked(typ) {
			if netlist.Compatible(typ, x.Type()) {
				return x
			}
			c.diag.Sorryf(e, "cast of %s to %s is not supported.", x.Type(), typ)
			return errExpr(e)
		}
		out := c.castPacked(x, typ.PackedWidth(), typ.Signed(), e)
		if !netlist.IsFourState(typ) && netlist.IsFourState(out.Type()) {
			out = netlist.NewCastExpr(netlist.CastTo2State, out, netlist.NewVector(netlist.BaseBool, out.Width(), out.Signed()))
		}
		return at(out, e)
	case e.Width != nil:
		w, ok := c.constInt(e.Width, s)
		if !ok {
			return errExpr(e)
		}
		if w <= 0 {
			c.diag.Errorf(e, "cast width %d must be positive.", w)
			return errExpr(e)
		}
		return at(c.castPacked(x, w, x.Signed(), e), e)
	}
	if netlist.IsReal(x) {
		c.diag.Errorf(e, "cannot change the signedness of real value %s.", e.Expr)
		return errExpr(e)
	}
	return at(netlist.NewSelect(x, nil, x.Width(), e.Signed != nil && *e.Signed), e)
}

// castPacked sizes x to w bits of the given signedness.
func (c *elabContext) castPacked(x netlist.Expr, w int64, signed bool, n pform.Node) netlist.Expr {
	if netlist.IsReal(x) {
		return netlist.NewCastExpr(netlist.CastRealToInt, x, netlist.NewVector(netlist.BaseLogic, w, signed))
	}
	if !netlist.IsPacked(x.Type()) {
		c.diag.Errorf(n, "cannot cast %s of type %s to a packed value.", x, x.Type())
		return errExpr(n)
	}
	if x.Width() < w {
		x = c.propagate(x, w, x.Signed())
	}
	return netlist.NewSelect(x, nil, w, signed)
}

// propagate rebuilds x for a context of width w. Operands of context
// determined operators are extended before the operator is applied, so
// carries are kept. Signedness is that of the whole expression. x is
// never narrowed.
func (c *elabContext) propagate(x netlist.Expr, w int64, signed bool) netlist.Expr {
	if netlist.IsReal(x) || !netlist.IsPacked(x.Type()) {
		return x
	}
	if w < x.Width() {
		w = x.Width()
	}
	switch t := x.(type) {
	case *netlist.ConstExpr:
		v := t.Value
		if !signed {
			v = v.WithSigned(false)
		}
		v = v.Resize(int(w)).WithSigned(signed)
		out := netlist.NewConstExpr(v)
		out.SetLoc(t.Loc())
		return out
	case *netlist.UnaryExpr:
		switch t.Op {
		case "-", "+", "~":
			op := c.propagate(t.Operand, w, signed)
			out := netlist.NewUnary(t.Op, op, netlist.NewVector(kindOf(op), w, signed))
			out.SetLoc(t.Loc())
			return out
		}
	case *netlist.BinaryExpr:
		switch {
		case arithOps[t.Op] || bitwiseOps[t.Op]:
			l, r := c.propagate(t.Left, w, signed), c.propagate(t.Right, w, signed)
			out := netlist.NewBinary(t.Op, l, r, netlist.NewVector(kindOf(l, r), w, signed))
			out.SetLoc(t.Loc())
			return out
		case t.Op == "**" || shiftOps[t.Op]:
			l := c.propagate(t.Left, w, signed)
			out := netlist.NewBinary(t.Op, l, t.Right, netlist.NewVector(kindOf(l), w, signed))
			out.SetLoc(t.Loc())
			return out
		}
	case *netlist.TernaryExpr:
		tt, ff := c.propagate(t.True, w, signed), c.propagate(t.False, w, signed)
		out := netlist.NewTernary(t.Cond, tt, ff, netlist.NewVector(kindOf(tt, ff), w, signed))
		out.SetLoc(t.Loc())
		return out
	}
	if x.Width() == w && x.Signed() == signed {
		return x
	}
	out := netlist.NewSelect(x, nil, w, signed && x.Signed())
	out.SetLoc(x.Loc())
	return out
}

// foldable reports whether x can be folded at elaboration time.
func foldable(x netlist.Expr) bool {
	switch t := x.(type) {
	case *netlist.ConstExpr, *netlist.RealConstExpr, *netlist.EnumConstExpr:
		return true
	case *netlist.SelectExpr:
		return foldable(t.Expr) && (t.Base == nil || foldable(t.Base))
	case *netlist.UnaryExpr:
		return foldable(t.Operand)
	case *netlist.BinaryExpr:
		return foldable(t.Left) && foldable(t.Right)
	case *netlist.TernaryExpr:
		return foldable(t.Cond) && foldable(t.True) && foldable(t.False)
	case *netlist.ConcatExpr:
		for _, p := range t.Parms {
			if !foldable(p) {
				return false
			}
		}
		return true
	case *netlist.CastExpr:
		return foldable(t.Expr)
	case *netlist.SFuncExpr:
		for _, a := range t.Args {
			if !foldable(a) {
				return false
			}
		}
		switch t.Name {
		case "$clog2", "$rtoi", "$itor", "$ln", "$log10", "$exp", "$sqrt", "$floor", "$ceil", "$pow":
			return true
		}
	}
	return false
}

// reduce replaces constant subtrees of x by their values.
func (c *elabContext) reduce(x netlist.Expr) netlist.Expr {
	if _, done := x.(*netlist.ConstExpr); done {
		return x
	}
	if foldable(x) {
		if v, ok := c.fold(x, nil); ok {
			var out netlist.Expr
			switch {
			case v.isReal:
				rc := netlist.NewRealConst(v.real)
				rc.SetLoc(x.Loc())
				out = rc
			case netlist.IsPacked(x.Type()):
				if ec, ok := x.(*netlist.EnumConstExpr); ok {
					return ec
				}
				out = netlist.NewConstExpr(v.num.Resize(int(x.Width())).WithSigned(x.Signed()))
				out.(*netlist.ConstExpr).SetLoc(x.Loc())
			default:
				return x
			}
			return out
		}
		return x
	}
	switch t := x.(type) {
	case *netlist.SelectExpr:
		t.Expr = c.reduce(t.Expr)
		if t.Base != nil {
			t.Base = c.reduce(t.Base)
		}
	case *netlist.UnaryExpr:
		t.Operand = c.reduce(t.Operand)
	case *netlist.BinaryExpr:
		t.Left, t.Right = c.reduce(t.Left), c.reduce(t.Right)
	case *netlist.TernaryExpr:
		t.Cond, t.True, t.False = c.reduce(t.Cond), c.reduce(t.True), c.reduce(t.False)
	case *netlist.ConcatExpr:
		for i, p := range t.Parms {
			t.Parms[i] = c.reduce(p)
		}
	case *netlist.CastExpr:
		t.Expr = c.reduce(t.Expr)
	case *netlist.SignalExpr:
		if t.Word != nil {
			t.Word = c.reduce(t.Word)
		}
	case *netlist.UFuncExpr:
		for i, a := range t.Args {
			t.Args[i] = c.reduce(a)
		}
	case *netlist.SFuncExpr:
		for i, a := range t.Args {
			t.Args[i] = c.reduce(a)
		}
	}
	return x
}

// fitTo pads or truncates an integral x to exactly w bits.
func fitTo(x netlist.Expr, w int64) netlist.Expr {
	if netlist.IsReal(x) || !netlist.IsPacked(x.Type()) || x.Width() == w {
		return x
	}
	out := netlist.NewSelect(x, nil, w, x.Signed())
	out.SetLoc(x.Loc())
	return out
}

// elabRval elaborates e as the value assigned to a target of type typ
// and width lw. The result is at least lw bits wide; callers truncate.
func (c *elabContext) elabRval(e pform.Expr, s *netlist.Scope, typ netlist.Type, lw int64) netlist.Expr {
	x := c.elabExpr(e, s)
	if typ == nil {
		return c.reduce(x)
	}
	switch {
	case typ.Base() == netlist.BaseReal:
		if !netlist.IsReal(x) && !netlist.IsPacked(x.Type()) {
			c.diag.Errorf(e, "cannot assign %s of type %s to a real.", e, x.Type())
			return netlist.NewRealConst(0)
		}
		return c.reduce(toReal(x))
	case netlist.IsPacked(typ):
		if netlist.IsReal(x) {
			return c.reduce(netlist.NewCastExpr(netlist.CastRealToInt, x, netlist.NewVector(netlist.BaseLogic, lw, typ.Signed())))
		}
		if !netlist.IsPacked(x.Type()) {
			c.diag.Errorf(e, "cannot assign %s of type %s to a value of type %s.", e, x.Type(), typ)
			return errExpr(e)
		}
		if et, ok := typ.(*netlist.EnumType); ok && c.sv() && !enumSource(x, et, e) {
			c.diag.Errorf(e, "This assignment requires an explicit cast to enum type %s.", et)
		}
		x = c.propagate(x, max64(lw, x.Width()), x.Signed())
		return c.reduce(x)
	case typ.Base() == netlist.BaseString:
		if netlist.IsPacked(x.Type()) || x.Type().Base() == netlist.BaseString {
			return c.reduce(x)
		}
	case typ.Base() == netlist.BaseClass:
		if _, isNull := x.(*netlist.NullExpr); isNull || netlist.Compatible(typ, x.Type()) {
			return x
		}
	default:
		if netlist.Compatible(typ, x.Type()) {
			return x
		}
	}
	c.diag.Errorf(e, "cannot assign %s of type %s to a value of type %s.", e, x.Type(), typ)
	return errExpr(e)
}

// enumSource reports whether x may be stored in a variable of enum type et
// without a cast.
func enumSource(x netlist.Expr, et *netlist.EnumType, e pform.Expr) bool {
	if xt, ok := x.Type().(*netlist.EnumType); ok && xt == et {
		return true
	}
	if cast, ok := e.(*pform.ECast); ok && cast.Type != nil {
		return true
	}
	if t, ok := x.(*netlist.TernaryExpr); ok {
		te, _ := t.True.Type().(*netlist.EnumType)
		fe, _ := t.False.Type().(*netlist.EnumType)
		return te == et && fe == et
	}
	return false
}

// elabCond elaborates a condition; its truth is taken at its own width.
func (c *elabContext) elabCond(e pform.Expr, s *netlist.Scope) netlist.Expr {
	x := c.elabExpr(e, s)
	if !netlist.IsReal(x) && !netlist.IsPacked(x.Type()) && x.Type().Base() != netlist.BaseClass {
		c.diag.Errorf(e, "condition %s of type %s is not a value that can be tested.", e, x.Type())
		return errExpr(e)
	}
	return c.reduce(x)
}

// elabCall elaborates a call of a user function.
func (c *elabContext) elabCall(e *pform.ECall, s *netlist.Scope) netlist.Expr {
	fn := c.findTask(s, e.Package, e.Path)
	if fn == nil {
		c.diag.Errorf(e, "No function named `%s' found in this context (%s).", e.Path, c.path(s))
		return errExpr(e)
	}
	if fn.Kind() != netlist.ScopeFunction {
		c.diag.Errorf(e, "%s is a task, not a function.", e.Path)
		return errExpr(e)
	}
	c.elabSigs(fn)
	def := fn.Task
	if def.Void || def.Result == nil {
		c.diag.Errorf(e, "void function %s cannot be used in an expression.", e.Path)
		return errExpr(e)
	}
	args := c.elabArgs(fn, e.Args, s, e)
	if args == nil && len(def.Ports) > 0 {
		return errExpr(e)
	}
	return at(netlist.NewUFuncExpr(fn.ID(), e.Path.String(), def.Result, args, def.Result.Type()), e)
}

// elabArgs binds call arguments to the input ports of fn. Missing
// arguments take the default value of their port.
func (c *elabContext) elabArgs(fn *netlist.Scope, actuals []pform.Expr, s *netlist.Scope, n pform.Node) []netlist.Expr {
	def := fn.Task
	if len(actuals) > len(def.Ports) {
		c.diag.Errorf(n, "too many arguments (%d) in call to %s, which takes %d.", len(actuals), c.path(fn), len(def.Ports))
		return nil
	}
	src := c.sources[fn.ID()]
	args := make([]netlist.Expr, len(def.Ports))
	ok := true
	for i, port := range def.Ports {
		var a pform.Expr
		if i < len(actuals) {
			a = actuals[i]
		}
		evalIn := s
		if a == nil && src != nil && src.task != nil && i < len(src.task.Ports) && src.task.Ports[i].Init != nil {
			a = src.task.Ports[i].Init
			evalIn = fn
		}
		if a == nil {
			c.diag.Errorf(n, "missing argument %d (%s) in call to %s.", i+1, port.Name(), c.path(fn))
			ok = false
			continue
		}
		if port.Port() == netlist.PortOutput || port.Port() == netlist.PortInout || port.Port() == netlist.PortRef {
			c.diag.Sorryf(n, "function %s has %s port %s.", c.path(fn), port.Port(), port.Name())
		}
		x := c.elabRval(a, evalIn, port.Type(), port.Width())
		if netlist.IsPacked(port.Type()) {
			x = fitTo(x, port.Width())
		}
		args[i] = x
	}
	if !ok {
		return nil
	}
	return args
}

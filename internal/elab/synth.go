package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

var bitwiseGates = map[string]netlist.LogicType{
	"&": netlist.LogicAnd, "|": netlist.LogicOr, "^": netlist.LogicXor,
	"~^": netlist.LogicXnor, "^~": netlist.LogicXnor,
}

// synth builds the structure that computes x continuously and returns
// the link carrying its value. A nil link means synthesis failed and
// was reported.
func (c *elabContext) synth(x netlist.Expr, s *netlist.Scope, n pform.Node) *netlist.Link {
	switch x := x.(type) {
	case *netlist.ConstExpr:
		return c.constNode(x.Value, s, n)
	case *netlist.EnumConstExpr:
		return c.constNode(x.Name.Value.Resize(int(x.Width())), s, n)
	case *netlist.RealConstExpr:
		node := netlist.NewRealConstNode(s.ID(), s.LocalSymbol(), x.Value)
		c.addNode(node, n)
		return node.Pin(0)
	case *netlist.SignalExpr:
		return c.synthSignal(x, s, n)
	case *netlist.SelectExpr:
		return c.synthSelect(x, s, n)
	case *netlist.UnaryExpr:
		return c.synthUnary(x, s, n)
	case *netlist.BinaryExpr:
		return c.synthBinary(x, s, n)
	case *netlist.TernaryExpr:
		cond := c.synthBool(x.Cond, s, n)
		t, f := c.synth(x.True, s, n), c.synth(x.False, s, n)
		if cond == nil || t == nil || f == nil {
			return nil
		}
		mux := netlist.NewMux(s.ID(), s.LocalSymbol(), x.Width(), x.Signed())
		c.addNode(mux, n)
		netlist.Connect(mux.Pin(1), f)
		netlist.Connect(mux.Pin(2), t)
		netlist.Connect(mux.Pin(3), cond)
		return mux.Pin(0)
	case *netlist.ConcatExpr:
		return c.synthConcat(x, s, n)
	case *netlist.CastExpr:
		in := c.synth(x.Expr, s, n)
		if in == nil {
			return nil
		}
		node := netlist.NewCast(s.ID(), s.LocalSymbol(), x.Conv, x.Width(), x.Signed())
		c.addNode(node, n)
		netlist.Connect(node.Pin(1), in)
		return node.Pin(0)
	case *netlist.UFuncExpr:
		node := netlist.NewUFunc(s.ID(), s.LocalSymbol(), x.Func, x.Width(), len(x.Args))
		return c.synthCall(node, x.Args, s, n)
	case *netlist.SFuncExpr:
		node := netlist.NewSFunc(s.ID(), s.LocalSymbol(), x.Name, x.Width(), len(x.Args))
		return c.synthCall(node, x.Args, s, n)
	}
	c.diag.Sorryf(n, "expression %s cannot be used in a continuous assignment.", x)
	return nil
}

func (c *elabContext) constNode(v *verinum.Verinum, s *netlist.Scope, n pform.Node) *netlist.Link {
	node := netlist.NewConst(s.ID(), s.LocalSymbol(), v)
	c.addNode(node, n)
	return node.Pin(0)
}

func (c *elabContext) synthCall(node netlist.Node, args []netlist.Expr, s *netlist.Scope, n pform.Node) *netlist.Link {
	c.addNode(node, n)
	for i, a := range args {
		in := c.synth(a, s, n)
		if in == nil {
			return nil
		}
		netlist.Connect(node.Pin(i+1), in)
	}
	return node.Pin(0)
}

func (c *elabContext) synthSignal(x *netlist.SignalExpr, s *netlist.Scope, n pform.Node) *netlist.Link {
	sig := x.Sig
	switch sig.Type().(type) {
	case *netlist.DArrayType, *netlist.QueueType, *netlist.ClassType, *netlist.StringType:
		c.diag.Sorryf(n, "%s of type %s cannot be read by a continuous assignment.", sig.Name(), sig.Type())
		return nil
	}
	if x.Word == nil {
		if sig.IsArray() {
			c.diag.Sorryf(n, "array %s cannot be read as a whole by a continuous assignment.", sig.Name())
			return nil
		}
		return sig.Pin(0)
	}
	v, ok := c.tryConst(x.Word)
	if !ok {
		c.diag.Sorryf(n, "a variable word of array %s cannot be read by a continuous assignment.", sig.Name())
		return nil
	}
	word, defined := v.AsInt64()
	if !defined || word < 0 || word >= sig.Words() {
		return c.constNode(verinum.New(int(x.Width()), verinum.Vx), s, n)
	}
	return sig.Pin(int(word))
}

// extend pads or truncates the value on in from inW to w bits.
func (c *elabContext) extend(in *netlist.Link, inW, w int64, signed bool, s *netlist.Scope, n pform.Node) *netlist.Link {
	switch {
	case w == inW:
		return in
	case w < inW:
		ps := netlist.NewPartSelect(s.ID(), s.LocalSymbol(), inW, 0, w, netlist.PartVP)
		c.addNode(ps, n)
		netlist.Connect(ps.Pin(1), in)
		return ps.Pin(0)
	}
	ext := netlist.NewExtend(s.ID(), s.LocalSymbol(), inW, w, signed)
	c.addNode(ext, n)
	netlist.Connect(ext.Pin(1), in)
	return ext.Pin(0)
}

func (c *elabContext) synthSelect(x *netlist.SelectExpr, s *netlist.Scope, n pform.Node) *netlist.Link {
	in := c.synth(x.Expr, s, n)
	if in == nil {
		return nil
	}
	inW, w := x.Expr.Width(), x.Width()
	if x.IsPad() {
		return c.extend(in, inW, w, x.Signed(), s, n)
	}
	bv, ok := c.tryConst(x.Base)
	if !ok {
		// A run-time base shifts the operand down before selecting.
		base := c.synth(x.Base, s, n)
		if base == nil {
			return nil
		}
		wide := c.extend(in, inW, max64(inW, w), false, s, n)
		sh := netlist.NewArith(s.ID(), s.LocalSymbol(), ">>", max64(inW, w), false)
		c.addNode(sh, n)
		netlist.Connect(sh.Pin(1), wide)
		netlist.Connect(sh.Pin(2), base)
		return c.extend(sh.Pin(0), max64(inW, w), w, false, s, n)
	}
	lo, defined := bv.AsInt64()
	if !defined || lo+w <= 0 || lo >= inW {
		return c.constNode(verinum.New(int(w), verinum.Vx), s, n)
	}
	if lo >= 0 && lo+w <= inW {
		ps := netlist.NewPartSelect(s.ID(), s.LocalSymbol(), inW, lo, w, netlist.PartVP)
		c.addNode(ps, n)
		netlist.Connect(ps.Pin(1), in)
		return ps.Pin(0)
	}
	// Straddling selects read x for the bits outside the operand.
	inLo, inHi := max64(lo, 0), min(lo+w, inW)
	ps := netlist.NewPartSelect(s.ID(), s.LocalSymbol(), inW, inLo, inHi-inLo, netlist.PartVP)
	c.addNode(ps, n)
	netlist.Connect(ps.Pin(1), in)
	var widths []int64
	var pins []*netlist.Link
	if below := inLo - lo; below > 0 {
		widths = append(widths, below)
		pins = append(pins, c.constNode(verinum.New(int(below), verinum.Vx), s, n))
	}
	widths = append(widths, inHi-inLo)
	pins = append(pins, ps.Pin(0))
	if above := lo + w - inHi; above > 0 {
		widths = append(widths, above)
		pins = append(pins, c.constNode(verinum.New(int(above), verinum.Vx), s, n))
	}
	cat := netlist.NewConcat(s.ID(), s.LocalSymbol(), widths)
	c.addNode(cat, n)
	for i, p := range pins {
		netlist.Connect(cat.Pin(i+1), p)
	}
	return cat.Pin(0)
}

// synthBool reduces x to one bit.
func (c *elabContext) synthBool(x netlist.Expr, s *netlist.Scope, n pform.Node) *netlist.Link {
	in := c.synth(x, s, n)
	if in == nil || (x.Width() == 1 && !netlist.IsReal(x)) {
		return in
	}
	if netlist.IsReal(x) {
		cmp := netlist.NewCompare(s.ID(), s.LocalSymbol(), "!=", 1, true)
		c.addNode(cmp, n)
		netlist.Connect(cmp.Pin(1), in)
		zero := netlist.NewRealConstNode(s.ID(), s.LocalSymbol(), 0)
		c.addNode(zero, n)
		netlist.Connect(cmp.Pin(2), zero.Pin(0))
		return cmp.Pin(0)
	}
	red := netlist.NewReduce(s.ID(), s.LocalSymbol(), "|", x.Width())
	c.addNode(red, n)
	netlist.Connect(red.Pin(1), in)
	return red.Pin(0)
}

func (c *elabContext) synthUnary(x *netlist.UnaryExpr, s *netlist.Scope, n pform.Node) *netlist.Link {
	switch x.Op {
	case "+":
		return c.synth(x.Operand, s, n)
	case "~":
		in := c.synth(x.Operand, s, n)
		if in == nil {
			return nil
		}
		g := netlist.NewLogic(s.ID(), s.LocalSymbol(), netlist.LogicNot, 1, x.Width())
		c.addNode(g, n)
		netlist.Connect(g.Pin(1), in)
		return g.Pin(0)
	case "!":
		in := c.synthBool(x.Operand, s, n)
		if in == nil {
			return nil
		}
		g := netlist.NewLogic(s.ID(), s.LocalSymbol(), netlist.LogicNot, 1, 1)
		c.addNode(g, n)
		netlist.Connect(g.Pin(1), in)
		return g.Pin(0)
	case "-":
		in := c.synth(x.Operand, s, n)
		if in == nil {
			return nil
		}
		u := netlist.NewUnaryNode(s.ID(), s.LocalSymbol(), "-", x.Width())
		c.addNode(u, n)
		netlist.Connect(u.Pin(1), in)
		return u.Pin(0)
	}
	in := c.synth(x.Operand, s, n)
	if in == nil {
		return nil
	}
	red := netlist.NewReduce(s.ID(), s.LocalSymbol(), x.Op, x.Operand.Width())
	c.addNode(red, n)
	netlist.Connect(red.Pin(1), in)
	return red.Pin(0)
}

func (c *elabContext) synthBinary(x *netlist.BinaryExpr, s *netlist.Scope, n pform.Node) *netlist.Link {
	if x.Op == "&&" || x.Op == "||" {
		l, r := c.synthBool(x.Left, s, n), c.synthBool(x.Right, s, n)
		if l == nil || r == nil {
			return nil
		}
		gate := netlist.LogicAnd
		if x.Op == "||" {
			gate = netlist.LogicOr
		}
		g := netlist.NewLogic(s.ID(), s.LocalSymbol(), gate, 2, 1)
		c.addNode(g, n)
		netlist.Connect(g.Pin(1), l)
		netlist.Connect(g.Pin(2), r)
		return g.Pin(0)
	}
	l, r := c.synth(x.Left, s, n), c.synth(x.Right, s, n)
	if l == nil || r == nil {
		return nil
	}
	var node netlist.Node
	switch {
	case compareOps[x.Op]:
		node = netlist.NewCompare(s.ID(), s.LocalSymbol(), x.Op, x.Left.Width(), x.Left.Signed() && x.Right.Signed())
	case bitwiseOps[x.Op]:
		node = netlist.NewLogic(s.ID(), s.LocalSymbol(), bitwiseGates[x.Op], 2, x.Width())
	case arithOps[x.Op] || shiftOps[x.Op] || x.Op == "**":
		node = netlist.NewArith(s.ID(), s.LocalSymbol(), x.Op, x.Width(), x.Signed())
	default:
		c.diag.Sorryf(n, "operator %s cannot be used in a continuous assignment.", x.Op)
		return nil
	}
	c.addNode(node, n)
	netlist.Connect(node.Pin(1), l)
	netlist.Connect(node.Pin(2), r)
	return node.Pin(0)
}

func (c *elabContext) synthConcat(x *netlist.ConcatExpr, s *netlist.Scope, n pform.Node) *netlist.Link {
	var out *netlist.Link
	if len(x.Parms) == 1 {
		out = c.synth(x.Parms[0], s, n)
	} else {
		widths := make([]int64, len(x.Parms))
		ins := make([]*netlist.Link, len(x.Parms))
		for i, p := range x.Parms {
			j := len(x.Parms) - 1 - i
			widths[j] = p.Width()
			if ins[j] = c.synth(p, s, n); ins[j] == nil {
				return nil
			}
		}
		cat := netlist.NewConcat(s.ID(), s.LocalSymbol(), widths)
		c.addNode(cat, n)
		for i, in := range ins {
			netlist.Connect(cat.Pin(i+1), in)
		}
		out = cat.Pin(0)
	}
	if out == nil || x.Repeat <= 1 {
		return out
	}
	rep := netlist.NewReplicate(s.ID(), s.LocalSymbol(), x.Width()/x.Repeat, x.Repeat)
	c.addNode(rep, n)
	netlist.Connect(rep.Pin(1), out)
	return rep.Pin(0)
}

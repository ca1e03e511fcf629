package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

var (
	time64   = netlist.NewVector(netlist.BaseLogic, 64, false)
	uint32T  = netlist.NewVector(netlist.BaseLogic, 32, false)
	realArgs = map[string]bool{"$ln": true, "$log10": true, "$exp": true, "$sqrt": true,
		"$floor": true, "$ceil": true, "$pow": true, "$rtoi": true, "$realtobits": true,
		"$sin": true, "$cos": true, "$tan": true, "$asin": true, "$acos": true, "$atan": true,
		"$atan2": true, "$hypot": true, "$sinh": true, "$cosh": true, "$tanh": true}
)

// sysFuncType is the result type of a system function with no special
// elaboration rule.
func sysFuncType(name string) netlist.Type {
	switch name {
	case "$time", "$realtobits":
		return time64
	case "$stime", "$urandom", "$urandom_range":
		return uint32T
	case "$realtime", "$bitstoreal", "$itor", "$ln", "$log10", "$exp", "$sqrt", "$floor", "$ceil",
		"$pow", "$sin", "$cos", "$tan", "$asin", "$acos", "$atan", "$atan2", "$hypot",
		"$sinh", "$cosh", "$tanh":
		return netlist.RealValue
	case "$onehot", "$onehot0", "$isunknown":
		return netlist.LogicScalar
	}
	return netlist.IntegerType
}

func intConst(v int64) *netlist.ConstExpr {
	return netlist.NewConstExpr(verinum.FromInt64(v, 32, true))
}

func (c *elabContext) elabSysCall(e *pform.ESysCall, s *netlist.Scope) netlist.Expr {
	switch e.Name {
	case "$signed", "$unsigned":
		if len(e.Args) != 1 {
			c.diag.Errorf(e, "%s takes exactly one argument.", e.Name)
			return errExpr(e)
		}
		x := c.elabExpr(e.Args[0], s)
		if netlist.IsReal(x) || !netlist.IsPacked(x.Type()) {
			c.diag.Errorf(e, "argument of %s must be an integral value.", e.Name)
			return errExpr(e)
		}
		return at(netlist.NewSelect(x, nil, x.Width(), e.Name == "$signed"), e)
	case "$bits":
		if len(e.Args) != 1 {
			c.diag.Errorf(e, "$bits takes exactly one argument.")
			return errExpr(e)
		}
		return c.elabBits(e, s)
	case "$left", "$right", "$low", "$high", "$size", "$increment", "$dimensions", "$unpacked_dimensions":
		return c.elabQuery(e, s)
	}

	args := make([]netlist.Expr, len(e.Args))
	for i, a := range e.Args {
		if a == nil {
			args[i] = netlist.NewNull()
			continue
		}
		x := c.elabExpr(a, s)
		if realArgs[e.Name] {
			x = toReal(x)
		}
		args[i] = c.reduce(x)
	}
	if e.Name == "$clog2" && len(args) != 1 {
		c.diag.Errorf(e, "$clog2 takes exactly one argument.")
		return errExpr(e)
	}
	return at(netlist.NewSFuncExpr(e.Name, args, sysFuncType(e.Name)), e)
}

// typeOrExpr elaborates the argument of a type query, which may name a
// type instead of a value.
func (c *elabContext) typeOrExpr(a pform.Expr, s *netlist.Scope) (netlist.Type, netlist.Expr) {
	switch a := a.(type) {
	case *pform.ETypeRef:
		return c.elabType(a.Type, s), nil
	case *pform.EIdent:
		if len(a.Path) == 1 && len(a.Path[0].Index) == 0 {
			if a.Package == "" {
				if _, ok := c.findName(s, a.Path[0].Name, a); ok {
					break
				}
			}
			if t, ok := c.lookupType(s, a.Package, a.Path[0].Name); ok {
				return t, nil
			}
		}
	}
	x := c.elabExpr(a, s)
	return x.Type(), x
}

// queryDims lists the dimensions of t, unpacked first.
func queryDims(t netlist.Type, x netlist.Expr) (dims []netlist.Range, unpacked int, dynamic bool) {
	if sx, ok := x.(*netlist.SignalExpr); ok && sx.Word == nil && sx.Sig.IsArray() {
		dims = append(dims, sx.Sig.Unpacked()...)
		unpacked = len(dims)
	}
	for {
		switch tt := t.(type) {
		case *netlist.UnpackedArrayType:
			dims = append(dims, tt.Dims...)
			unpacked = len(dims)
			t = tt.Elem
			continue
		case *netlist.DArrayType:
			return nil, 1, true
		case *netlist.QueueType:
			return nil, 1, true
		}
		break
	}
	dims = append(dims, netlist.PackedDims(t)...)
	return dims, unpacked, false
}

func (c *elabContext) elabBits(e *pform.ESysCall, s *netlist.Scope) netlist.Expr {
	t, x := c.typeOrExpr(e.Args[0], s)
	switch {
	case netlist.IsPacked(t):
		if sx, ok := x.(*netlist.SignalExpr); ok && sx.Word == nil && sx.Sig.IsArray() {
			return at(intConst(sx.Sig.Words()*sx.Sig.Width()), e)
		}
		return at(intConst(t.PackedWidth()), e)
	case t.Base() == netlist.BaseReal:
		return at(intConst(64), e)
	}
	dims, _, dynamic := queryDims(t, x)
	if dynamic {
		if x == nil {
			c.diag.Errorf(e, "$bits of dynamic type %s is not a constant.", t)
			return errExpr(e)
		}
		return at(netlist.NewSFuncExpr("$bits", []netlist.Expr{x}, netlist.IntegerType), e)
	}
	if ua, ok := t.(*netlist.UnpackedArrayType); ok && netlist.IsPacked(ua.Elem) {
		return at(intConst(netlist.RangesWidth(ua.Dims)*ua.Elem.PackedWidth()), e)
	}
	if len(dims) == 0 {
		c.diag.Errorf(e, "$bits cannot be applied to a value of type %s.", t)
		return errExpr(e)
	}
	return at(intConst(netlist.RangesWidth(dims)), e)
}

// elabQuery handles the array query functions. Fixed dimensions fold to
// constants; dynamic ones are left to run time.
func (c *elabContext) elabQuery(e *pform.ESysCall, s *netlist.Scope) netlist.Expr {
	if len(e.Args) < 1 || len(e.Args) > 2 {
		c.diag.Errorf(e, "%s takes one or two arguments.", e.Name)
		return errExpr(e)
	}
	t, x := c.typeOrExpr(e.Args[0], s)
	dims, unpacked, dynamic := queryDims(t, x)
	switch e.Name {
	case "$dimensions":
		if dynamic {
			return at(intConst(1+int64(len(netlist.PackedDims(t)))), e)
		}
		return at(intConst(int64(len(dims))), e)
	case "$unpacked_dimensions":
		return at(intConst(int64(unpacked)), e)
	}
	dim := int64(1)
	if len(e.Args) == 2 {
		d, ok := c.constInt(e.Args[1], s)
		if !ok {
			return errExpr(e)
		}
		dim = d
	}
	if dynamic {
		if x == nil || dim != 1 {
			c.diag.Sorryf(e, "%s of dimension %d of a dynamic array.", e.Name, dim)
			return errExpr(e)
		}
		return at(netlist.NewSFuncExpr(e.Name, []netlist.Expr{x}, netlist.IntegerType), e)
	}
	if len(dims) == 0 {
		dims = []netlist.Range{{Msb: 0, Lsb: 0}}
	}
	if dim < 1 || dim > int64(len(dims)) {
		c.diag.Warnf(e, "%s: dimension %d does not exist; the result is x.", e.Name, dim)
		return at(netlist.NewConstExpr(verinum.New(32, verinum.Vx).WithSigned(true)), e)
	}
	d := dims[dim-1]
	var v int64
	switch e.Name {
	case "$left":
		v = d.Msb
	case "$right":
		v = d.Lsb
	case "$low":
		v = min(d.Msb, d.Lsb)
	case "$high":
		v = max(d.Msb, d.Lsb)
	case "$size":
		v = d.Width()
	case "$increment":
		v = 1
		if d.Ascending() {
			v = -1
		}
	}
	return at(intConst(v), e)
}

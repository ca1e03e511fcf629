package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// partSel is a canonical select of width bits starting lo bits above bit
// 0 of a packed value. When part of the offset is only known at run time
// it is held in off and lo is added to it.
type partSel struct {
	lo    int64
	off   netlist.Expr
	width int64
	typ   netlist.Type
	undef bool
	// wrapped marks an undef select whose index was defined but wrapped.
	wrapped bool
	whole   bool
}

var offsetType = netlist.NewVector(netlist.BaseLogic, 64, true)

func int64Const(v int64) netlist.Expr {
	return netlist.NewConstExpr(verinum.FromInt64(v, 64, true))
}

// addOff sums two run-time offsets, either of which may be nil.
func addOff(a, b netlist.Expr) netlist.Expr {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return netlist.NewBinary("+", a, b, offsetType)
}

// scaledIndex maps a run-time source index to canonical offset times
// stride: idx - lsb for a descending range, lsb - idx for an ascending one.
func scaledIndex(idx netlist.Expr, d netlist.Range, adjust, stride int64) netlist.Expr {
	wide := netlist.NewSelect(idx, nil, 64, idx.Signed())
	var off netlist.Expr
	if d.Ascending() {
		off = netlist.NewBinary("-", int64Const(d.Lsb-adjust), wide, offsetType)
	} else {
		off = netlist.NewBinary("-", wide, int64Const(d.Lsb-adjust), offsetType)
	}
	if stride != 1 {
		off = netlist.NewBinary("*", off, int64Const(stride), offsetType)
	}
	return off
}

// subType is what remains of t after consumed bit selects.
func subType(t netlist.Type, consumed int) netlist.Type {
	if consumed == 0 {
		return t
	}
	switch t := t.(type) {
	case *netlist.PackedArrayType:
		if consumed < len(t.Dims) {
			return &netlist.PackedArrayType{Elem: t.Elem, Dims: t.Dims[consumed:]}
		}
		return subType(t.Elem, consumed-len(t.Dims))
	case *netlist.VectorType:
		if consumed < len(t.Dims) {
			return &netlist.VectorType{Kind: t.Kind, Dims: t.Dims[consumed:]}
		}
		return netlist.NewVector(t.Kind, 1, false)
	case *netlist.EnumType:
		return subType(t.BaseType, consumed)
	}
	kind := netlist.BaseLogic
	if t.Base() == netlist.BaseBool {
		kind = netlist.BaseBool
	}
	return netlist.NewVector(kind, 1, false)
}

func bitKind(t netlist.Type) netlist.BaseKind {
	if t.Base() == netlist.BaseBool {
		return netlist.BaseBool
	}
	return netlist.BaseLogic
}

// packedSelect computes the canonical select that idxs make on a value
// of type typ. Fewer indices than packed dimensions select a slice.
func (c *elabContext) packedSelect(typ netlist.Type, idxs []*pform.Index, s *netlist.Scope, n pform.Node) (partSel, bool) {
	total := typ.PackedWidth()
	if len(idxs) == 0 {
		return partSel{width: total, typ: typ, whole: true}, true
	}
	if !netlist.IsPacked(typ) {
		c.diag.Errorf(n, "cannot select bits of a value of type %s.", typ)
		return partSel{}, false
	}
	dims := netlist.PackedDims(typ)
	if len(dims) == 0 {
		dims = []netlist.Range{{Msb: 0, Lsb: 0}}
	}
	if len(idxs) > len(dims) {
		c.diag.Errorf(n, "%d indices given for a value with %d packed dimensions.", len(idxs), len(dims))
		return partSel{}, false
	}
	strides := make([]int64, len(dims))
	for i := range dims {
		strides[i] = netlist.RangesWidth(dims[i+1:])
	}

	sel := partSel{}
	for k, ix := range idxs {
		d, stride := dims[k], strides[k]
		last := k == len(idxs)-1
		if !last && ix.Sel != pform.SelBit {
			c.diag.Errorf(n, "only the last index may be a part select.")
			return partSel{}, false
		}
		switch ix.Sel {
		case pform.SelBit:
			if !c.addIndex(&sel, ix.Msb, d, 0, stride, s) {
				return partSel{}, false
			}
			sel.width = stride
			sel.typ = subType(typ, k+1)
		case pform.SelPart:
			msb, ok1 := c.constInt(ix.Msb, s)
			lsb, ok2 := c.constInt(ix.Lsb, s)
			if !ok1 || !ok2 {
				return partSel{}, false
			}
			hi, lo := d.Offset(msb), d.Offset(lsb)
			if hi < lo {
				c.diag.Warnf(n, "part select [%d:%d] is reversed for range %s; did you mean [%d:%d]?", msb, lsb, d, lsb, msb)
				hi, lo = lo, hi
			}
			sel.lo += lo * stride
			sel.width = (hi - lo + 1) * stride
			sel.typ = netlist.NewVector(bitKind(typ), sel.width, false)
		case pform.SelIdxUp, pform.SelIdxDown:
			w, ok := c.constInt(ix.Lsb, s)
			if !ok {
				return partSel{}, false
			}
			if w <= 0 {
				c.diag.Errorf(n, "indexed part select width %d must be positive.", w)
				return partSel{}, false
			}
			// adjust moves the base index to the least significant end.
			var adjust int64
			switch {
			case ix.Sel == pform.SelIdxUp && d.Ascending():
				adjust = w - 1
			case ix.Sel == pform.SelIdxDown && !d.Ascending():
				adjust = -(w - 1)
			}
			if !c.addIndex(&sel, ix.Msb, d, adjust, stride, s) {
				return partSel{}, false
			}
			sel.width = w * stride
			sel.typ = netlist.NewVector(bitKind(typ), sel.width, false)
		}
	}
	return sel, true
}

// addIndex adds the canonical offset of the source index e (plus
// adjust) in dimension d to sel.
func (c *elabContext) addIndex(sel *partSel, e pform.Expr, d netlist.Range, adjust, stride int64, s *netlist.Scope) bool {
	x := c.elabExpr(e, s)
	if netlist.IsReal(x) {
		c.diag.Errorf(e, "index %s must not be real.", e)
		return false
	}
	if v, ok := c.tryConst(x); ok {
		idx, defined := v.AsInt64()
		if !defined {
			sel.undef = true
			return true
		}
		// An unsigned index that reads negative as a 32-bit value wrapped.
		if !v.Signed() && v.Width() >= 32 && int32(uint32(idx)) < 0 {
			sel.undef, sel.wrapped = true, true
			return true
		}
		sel.lo += d.Offset(idx+adjust) * stride
		return true
	}
	sel.off = addOff(sel.off, scaledIndex(x, d, -adjust, stride))
	return true
}

// memberSelect narrows sel to a member of the packed struct it denotes.
func (c *elabContext) memberSelect(sel partSel, comp pform.NameComponent, s *netlist.Scope, n pform.Node) (partSel, bool) {
	st, ok := sel.typ.(*netlist.StructType)
	if !ok {
		c.diag.Errorf(n, "%s is not a member of a value of type %s.", comp.Name, sel.typ)
		return partSel{}, false
	}
	if !st.Packed {
		c.diag.Sorryf(n, "members of unpacked structs are not supported here.")
		return partSel{}, false
	}
	m := st.Member(comp.Name)
	if m == nil {
		c.diag.Errorf(n, "struct has no member named %s.", comp.Name)
		return partSel{}, false
	}
	sub, ok := c.packedSelect(m.Type, comp.Index, s, n)
	if !ok {
		return partSel{}, false
	}
	return partSel{
		lo:      sel.lo + m.Offset + sub.lo,
		off:     addOff(sel.off, sub.off),
		width:   sub.width,
		typ:     sub.typ,
		undef:   sel.undef || sub.undef,
		wrapped: sel.wrapped || sub.wrapped,
	}, true
}

// packedPath selects through idxs and then the struct members in rest.
func (c *elabContext) packedPath(typ netlist.Type, idxs []*pform.Index, rest pform.Name, s *netlist.Scope, n pform.Node) (partSel, bool) {
	sel, ok := c.packedSelect(typ, idxs, s, n)
	if !ok {
		return partSel{}, false
	}
	for _, comp := range rest {
		if sel, ok = c.memberSelect(sel, comp, s, n); !ok {
			return partSel{}, false
		}
	}
	return sel, true
}

// inRange reports how a constant select overlaps a value of width w.
func (sel partSel) inRange(w int64) (full, none bool) {
	if sel.off != nil || sel.undef {
		return false, sel.undef
	}
	hi := sel.lo + sel.width - 1
	full = sel.lo >= 0 && hi < w
	none = hi < 0 || sel.lo >= w
	return full, none
}

// base is the canonical offset of sel as an expression.
func (sel partSel) base() netlist.Expr {
	if sel.off == nil {
		return int64Const(sel.lo)
	}
	if sel.lo == 0 {
		return sel.off
	}
	return addOff(sel.off, int64Const(sel.lo))
}

// rangeWarn reports a constant select of what that is not within w bits.
func (c *elabContext) rangeWarn(sel partSel, w int64, what string, n pform.Node) {
	if !c.cfg.Warnings.SelectRange {
		return
	}
	if sel.wrapped {
		c.diag.Warnf(n, "select of %s is out of range.", what)
		return
	}
	if sel.undef {
		c.diag.Warnf(n, "select of %s has an undefined index.", what)
		return
	}
	if full, none := sel.inRange(w); !full && sel.off == nil {
		if none {
			c.diag.Warnf(n, "select of %s is out of range.", what)
		} else {
			c.diag.Warnf(n, "select of %s is partially out of range.", what)
		}
	}
}

// applySelect reads sel out of x. Bits outside x read as x.
func (c *elabContext) applySelect(x netlist.Expr, sel partSel, n pform.Node) netlist.Expr {
	if sel.whole {
		return x
	}
	signed := false
	if sel.typ != nil && sel.typ.Signed() {
		if _, isStruct := sel.typ.(*netlist.StructType); !isStruct {
			signed = true
		}
	}
	c.rangeWarn(sel, x.Width(), x.String(), n)
	if sel.undef {
		return netlist.NewConstExpr(verinum.New(int(sel.width), verinum.Vx))
	}
	out := netlist.NewSelect(x, sel.base(), sel.width, signed)
	out.SetLoc(loc(n))
	return out
}

// wordIndex computes the canonical word of an unpacked array from one
// index per dimension. A constant index out of range yields word -1.
func (c *elabContext) wordIndex(sig *netlist.Signal, idxs []*pform.Index, s *netlist.Scope, n pform.Node) (netlist.Expr, bool) {
	dims := sig.Unpacked()
	consts := make([]int64, 0, len(idxs))
	exprs := make([]netlist.Expr, 0, len(idxs))
	allConst := true
	for _, ix := range idxs {
		if ix.Sel != pform.SelBit {
			c.diag.Sorryf(n, "slices of unpacked array %s are not supported.", sig.Name())
			return nil, false
		}
		x := c.elabExpr(ix.Msb, s)
		exprs = append(exprs, x)
		if v, ok := c.tryConst(x); ok {
			idx, defined := v.AsInt64()
			if !defined {
				return int64Const(-1), true
			}
			consts = append(consts, idx)
		} else {
			allConst = false
		}
	}
	if allConst {
		word, ok := sig.WordIndex(consts)
		if !ok {
			if c.cfg.Warnings.SelectRange {
				c.diag.Warnf(n, "index of array %s is out of range.", sig.Name())
			}
			return int64Const(-1), true
		}
		return int64Const(word), true
	}
	var word netlist.Expr
	for i, d := range dims {
		stride := netlist.RangesWidth(dims[i+1:])
		// Words count from the left bound.
		left := netlist.Range{Msb: d.Lsb, Lsb: d.Msb}
		term := scaledIndex(exprs[i], left, 0, stride)
		word = addOff(word, term)
	}
	return word, true
}

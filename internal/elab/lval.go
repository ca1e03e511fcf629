package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// elabLval elaborates the target of a procedural assignment. A
// concatenation yields several l-values, most significant first. init is
// set for declaration initializers, which may write const variables.
func (c *elabContext) elabLval(e pform.Expr, s *netlist.Scope, init bool) ([]*netlist.LValue, bool) {
	switch e := e.(type) {
	case *pform.EConcat:
		if e.Repeat != nil {
			c.diag.Errorf(e, "repeat concatenation %s is not a valid l-value.", e)
			return nil, false
		}
		var out []*netlist.LValue
		ok := true
		for _, p := range e.Parms {
			sub, good := c.elabLval(p, s, init)
			ok = ok && good
			out = append(out, sub...)
		}
		return out, ok
	case *pform.EIdent:
		lv, ok := c.lvalIdent(e, s, init)
		if !ok {
			return nil, false
		}
		return []*netlist.LValue{lv}, true
	}
	c.diag.Errorf(e, "%s is not a valid l-value.", e)
	return nil, false
}

// checkVariable reports whether sig may be written procedurally.
func (c *elabContext) checkVariable(sig *netlist.Signal, init bool, n pform.Node) bool {
	if sig.Kind().IsNet() {
		if c.promoted[sig] {
			c.diag.Errorf(n, "Cannot perform procedural assignment to variable '%s' because it is also continuously assigned.", sig.Name())
		} else {
			c.diag.Errorf(n, "%s is not a valid l-value in %s; it is declared as a %s.", sig.Name(), c.des.Path(sig.Scope()), sig.Kind())
		}
		return false
	}
	if sig.IsConst() && !init {
		c.diag.Errorf(n, "cannot assign to const variable %s.", sig.Name())
		return false
	}
	c.written[sig] = true
	return true
}

func (c *elabContext) lvalIdent(id *pform.EIdent, s *netlist.Scope, init bool) (*netlist.LValue, bool) {
	sym, rest, ok := c.resolvePath(s, id.Package, id.Path, id)
	if !ok {
		c.diag.Errorf(id, "Could not find variable `%s' in `%s'", id, c.path(s))
		return nil, false
	}
	if sym.kind != symSignal {
		c.diag.Errorf(id, "%s is not a valid l-value; it does not name a variable.", id)
		return nil, false
	}
	sig := sym.sig
	if !c.checkVariable(sig, init, id) {
		return nil, false
	}
	idxs := id.Path[len(id.Path)-len(rest)-1].Index
	lv := netlist.NewLValue(sig)
	typ := sig.Type()

	switch t := typ.(type) {
	case *netlist.DArrayType, *netlist.QueueType:
		if len(idxs) == 0 {
			return lv, true
		}
		if idxs[0].Sel != pform.SelBit {
			c.diag.Sorryf(id, "slices of %s are not supported as l-values.", sig.Name())
			return nil, false
		}
		ix := c.elabExpr(idxs[0].Msb, s)
		if netlist.IsReal(ix) {
			c.diag.Errorf(id, "index of %s must not be real.", sig.Name())
			return nil, false
		}
		lv.Word = c.reduce(netlist.NewSelect(ix, nil, 64, ix.Signed()))
		idxs = idxs[1:]
		typ = elemType(t)
		lv.SetPart(nil, max64(typ.PackedWidth(), 1))
	case *netlist.ClassType:
		if len(rest) == 0 {
			return lv, true
		}
		if len(idxs) > 0 {
			c.diag.Errorf(id, "class handle %s cannot be indexed.", sig.Name())
			return nil, false
		}
		prop, _ := t.Property(rest[0].Name)
		if prop == nil {
			c.diag.Errorf(id, "class %s has no property %s.", t.Name, rest[0].Name)
			return nil, false
		}
		lv.Property = prop
		lv.SetPart(nil, max64(prop.Type.PackedWidth(), 1))
		typ = prop.Type
		idxs, rest = rest[0].Index, rest[1:]
	default:
		if sig.IsArray() {
			if len(idxs) == 0 {
				if len(rest) > 0 {
					c.diag.Errorf(id, "array %s needs %d indices.", sig.Name(), len(sig.Unpacked()))
					return nil, false
				}
				return lv, true
			}
			if len(idxs) < len(sig.Unpacked()) {
				c.diag.Sorryf(id, "slices of unpacked array %s are not supported as l-values.", sig.Name())
				return nil, false
			}
			word, ok := c.wordIndex(sig, idxs[:len(sig.Unpacked())], s, id)
			if !ok {
				return nil, false
			}
			lv.Word = word
			idxs = idxs[len(sig.Unpacked()):]
		}
	}
	if len(idxs) == 0 && len(rest) == 0 {
		return lv, true
	}
	sel, ok := c.packedPath(typ, idxs, rest, s, id)
	if !ok {
		return nil, false
	}
	if sel.whole {
		return lv, true
	}
	c.rangeWarn(sel, max64(typ.PackedWidth(), 1), id.String(), id)
	base := sel.base()
	if sel.undef {
		// Writes through an undefined index are dropped at run time.
		base = netlist.NewConstExpr(verinum.New(64, verinum.Vx))
	}
	lv.SetPart(c.reduce(base), sel.width)
	return lv, true
}

func elemType(t netlist.Type) netlist.Type {
	switch t := t.(type) {
	case *netlist.DArrayType:
		return t.Elem
	case *netlist.QueueType:
		return t.Elem
	}
	return t
}

// lvalType is the type a value written through lv must have.
func lvalType(lv *netlist.LValue) netlist.Type {
	switch {
	case lv.Property != nil && lv.Base == nil:
		return lv.Property.Type
	case lv.Sig.IsArray() && lv.Word == nil:
		return &netlist.UnpackedArrayType{Elem: lv.Sig.Type(), Dims: lv.Sig.Unpacked()}
	case lv.Word != nil && lv.Base == nil:
		switch lv.Sig.Type().(type) {
		case *netlist.DArrayType, *netlist.QueueType:
			return elemType(lv.Sig.Type())
		}
	}
	return lv.Type()
}

// lvalsType is the type of a list of l-values taken as one target.
func lvalsType(lvs []*netlist.LValue) netlist.Type {
	if len(lvs) == 1 {
		return lvalType(lvs[0])
	}
	var w int64
	for _, lv := range lvs {
		w += lv.Width()
	}
	return netlist.NewVector(netlist.BaseLogic, w, false)
}

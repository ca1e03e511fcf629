package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

// netTarget is where a structural driver connects. A nil pin means the
// target lies entirely outside its signal and the driver is dropped.
type netTarget struct {
	pin   *netlist.Link
	width int64
	typ   netlist.Type
	sig   *netlist.Signal // set when the whole signal is the target
}

// elabLnet elaborates the target of a continuous assignment or port
// connection. bidir builds switches instead of directed part selects.
// implicit allows an undeclared simple name to declare a wire.
func (c *elabContext) elabLnet(e pform.Expr, s *netlist.Scope, bidir, implicit bool) (netTarget, bool) {
	switch e := e.(type) {
	case *pform.EIdent:
		return c.lnetIdent(e, s, bidir, implicit)
	case *pform.EConcat:
		if e.Repeat != nil {
			c.diag.Errorf(e, "repeat concatenation %s is not a valid net l-value.", e)
			return netTarget{}, false
		}
		parts := make([]netTarget, 0, len(e.Parms))
		var total int64
		for _, p := range e.Parms {
			t, ok := c.elabLnet(p, s, bidir, implicit)
			if !ok {
				return netTarget{}, false
			}
			parts = append(parts, t)
			total += t.width
		}
		typ := netlist.NewVector(netlist.BaseLogic, total, false)
		tmp := c.tmpSignal(s, netlist.SigWire, typ, e)
		var off int64
		for i := len(parts) - 1; i >= 0; i-- {
			part := parts[i]
			if part.pin != nil {
				var node netlist.Node
				if bidir {
					node = netlist.NewTranVP(s.ID(), s.LocalSymbol(), total, off, part.width)
					netlist.Connect(node.Pin(0), tmp.Pin(0))
					netlist.Connect(node.Pin(1), part.pin)
				} else {
					node = netlist.NewPartSelect(s.ID(), s.LocalSymbol(), total, off, part.width, netlist.PartVP)
					netlist.Connect(node.Pin(1), tmp.Pin(0))
					netlist.Connect(node.Pin(0), part.pin)
				}
				c.addNode(node, e)
			}
			off += part.width
		}
		return netTarget{pin: tmp.Pin(0), width: total, typ: typ}, true
	}
	c.diag.Errorf(e, "%s is not a valid l-value for a continuous assignment.", e)
	return netTarget{}, false
}

// implicitNet declares a scalar wire named name in the module around s.
func (c *elabContext) implicitNet(s *netlist.Scope, name string, n pform.Node) *netlist.Signal {
	mod := c.moduleOf(s)
	sig := netlist.NewSignal(mod.ID(), name, netlist.SigWire, netlist.LogicScalar, nil)
	sig.LineInfo = loc(n)
	mod.AddSignal(sig)
	if c.cfg.Warnings.Implicit {
		c.diag.Warnf(n, "implicit definition of wire '%s' in %s.", name, c.path(mod))
	}
	return sig
}

// netDriveable reports whether sig may be driven structurally,
// turning a SystemVerilog variable into an unresolved wire.
func (c *elabContext) netDriveable(sig *netlist.Signal, bidir bool, n pform.Node) bool {
	if sig.Kind().IsNet() {
		return true
	}
	switch {
	case bidir:
		c.diag.Errorf(n, "variable %s cannot be connected to an inout port.", sig.Name())
	case !c.sv():
		c.diag.Errorf(n, "reg %s; cannot be driven by primitives or continuous assignment.", sig.Name())
	case c.written[sig]:
		c.diag.Errorf(n, "Cannot perform continuous assignment to variable '%s' because it is also procedurally assigned.", sig.Name())
	case !netlist.IsPacked(sig.Type()) && sig.Type().Base() != netlist.BaseReal:
		c.diag.Errorf(n, "variable %s of type %s cannot be continuously assigned.", sig.Name(), sig.Type())
	default:
		sig.SetKind(netlist.SigUnresolvedWire)
		c.promoted[sig] = true
		return true
	}
	return false
}

func (c *elabContext) lnetIdent(id *pform.EIdent, s *netlist.Scope, bidir, implicit bool) (netTarget, bool) {
	var sig *netlist.Signal
	var idxs []*pform.Index
	var rest pform.Name
	sym, r, ok := c.resolvePath(s, id.Package, id.Path, id)
	switch {
	case ok && sym.kind == symSignal:
		sig, rest = sym.sig, r
		idxs = id.Path[len(id.Path)-len(rest)-1].Index
	case ok:
		c.diag.Errorf(id, "%s is not a net and cannot be driven.", id)
		return netTarget{}, false
	case implicit && id.Package == "" && len(id.Path) == 1 && !id.Path.HasIndices():
		sig = c.implicitNet(s, id.Path[0].Name, id)
	default:
		c.diag.Errorf(id, "Unable to bind wire/reg `%s' in `%s'", id, c.path(s))
		return netTarget{}, false
	}
	if !c.netDriveable(sig, bidir, id) {
		return netTarget{}, false
	}

	var word int64
	if sig.IsArray() {
		if len(idxs) < len(sig.Unpacked()) {
			c.diag.Sorryf(id, "cannot drive unpacked array %s as a whole.", sig.Name())
			return netTarget{}, false
		}
		wx, ok := c.wordIndex(sig, idxs[:len(sig.Unpacked())], s, id)
		if !ok {
			return netTarget{}, false
		}
		v, isConst := c.tryConst(wx)
		if !isConst {
			c.diag.Sorryf(id, "cannot drive a variable word of array %s.", sig.Name())
			return netTarget{}, false
		}
		word, _ = v.AsInt64()
		idxs = idxs[len(sig.Unpacked()):]
	}

	W := sig.Width()
	sel, ok := c.packedPath(sig.Type(), idxs, rest, s, id)
	if !ok {
		return netTarget{}, false
	}
	if word < 0 {
		return netTarget{width: sel.width, typ: netlist.NewVector(bitKind(sig.Type()), sel.width, false)}, true
	}
	if sel.whole {
		lo, w := int64(0), W
		if c.multiDriven(sig, lo, w, word, id) {
			return netTarget{}, false
		}
		return netTarget{pin: sig.Pin(int(word)), width: w, typ: sig.Type(), sig: sig}, true
	}
	if sel.off != nil {
		c.diag.Sorryf(id, "cannot drive a variable part select of %s.", sig.Name())
		return netTarget{}, false
	}
	c.rangeWarn(sel, W, id.String(), id)
	full, none := sel.inRange(W)
	if sel.undef || none {
		return netTarget{width: sel.width, typ: netlist.NewVector(bitKind(sig.Type()), sel.width, false)}, true
	}
	lo, w := sel.lo, sel.width
	if !full {
		if lo < 0 {
			c.diag.Sorryf(id, "part select of %s extends below bit 0.", sig.Name())
			return netTarget{}, false
		}
		w = W - lo
	}
	if c.multiDriven(sig, lo, w, word, id) {
		return netTarget{}, false
	}
	typ := netlist.NewVector(bitKind(sig.Type()), w, false)
	if lo == 0 && w == W {
		return netTarget{pin: sig.Pin(int(word)), width: w, typ: sig.Type(), sig: sig}, true
	}
	if bidir {
		t := netlist.NewTranVP(s.ID(), s.LocalSymbol(), W, lo, w)
		c.addNode(t, id)
		netlist.Connect(t.Pin(0), sig.Pin(int(word)))
		return netTarget{pin: t.Pin(1), width: w, typ: typ}, true
	}
	ps := netlist.NewPartSelect(s.ID(), s.LocalSymbol(), W, lo, w, netlist.PartPV)
	c.addNode(ps, id)
	netlist.Connect(ps.Pin(1), sig.Pin(int(word)))
	return netTarget{pin: ps.Pin(0), width: w, typ: typ}, true
}

// multiDriven records a driver of bits [lo, lo+w) of word and reports a
// conflict on a signal that allows only one.
func (c *elabContext) multiDriven(sig *netlist.Signal, lo, w, word int64, n pform.Node) bool {
	if sig.Kind() != netlist.SigUWire && sig.Kind() != netlist.SigUnresolvedWire {
		return false
	}
	if sig.TestAndSetPartDriver(lo+w-1, lo, word) {
		c.diag.Errorf(n, "Unresolved net/uwire %s cannot have multiple drivers.", sig.Name())
		return true
	}
	return false
}

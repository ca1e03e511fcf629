package elab

import (
	"fmt"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

var gateLogic = map[pform.GateType]netlist.LogicType{
	pform.GateAnd: netlist.LogicAnd, pform.GateNand: netlist.LogicNand,
	pform.GateOr: netlist.LogicOr, pform.GateNor: netlist.LogicNor,
	pform.GateXor: netlist.LogicXor, pform.GateXnor: netlist.LogicXnor,
	pform.GateBuf: netlist.LogicBuf, pform.GateNot: netlist.LogicNot,
	pform.GateBufif0: netlist.LogicBufif0, pform.GateBufif1: netlist.LogicBufif1,
	pform.GateNotif0: netlist.LogicNotif0, pform.GateNotif1: netlist.LogicNotif1,
}

var gateTran = map[pform.GateType]netlist.TranType{
	pform.GateTran: netlist.TranTran, pform.GateRtran: netlist.TranRtran,
	pform.GateTranif0: netlist.TranTranif0, pform.GateTranif1: netlist.TranTranif1,
}

func strength(s pform.Strength) netlist.Strength { return netlist.Strength(s) }

// elabDelays elaborates up to three delay values.
func (c *elabContext) elabDelays(list []pform.Expr, s *netlist.Scope, n pform.Node) []netlist.Expr {
	if len(list) > 3 {
		c.diag.Errorf(n, "at most three delay values may be given, not %d.", len(list))
		list = list[:3]
	}
	var out []netlist.Expr
	for _, d := range list {
		x := c.elabExpr(d, s)
		if !netlist.IsReal(x) && !netlist.IsPacked(x.Type()) {
			c.diag.Errorf(d, "delay %s must be a numeric value.", d)
			continue
		}
		out = append(out, c.reduce(x))
	}
	return out
}

// netValue synthesizes an r-value already sized for a target of width w
// and truncates it to w bits.
func (c *elabContext) netValue(rv netlist.Expr, w int64, s *netlist.Scope, n pform.Node) *netlist.Link {
	link := c.synth(rv, s, n)
	if link == nil {
		return nil
	}
	if netlist.IsReal(rv) || !netlist.IsPacked(rv.Type()) {
		return link
	}
	if rv.Width() < w {
		elaberr.Internalf(n, "r-value %s is %d bits, narrower than its %d bit target", rv, rv.Width(), w)
	}
	return c.extend(link, rv.Width(), w, rv.Signed(), s, n)
}

// elabContAssign builds a continuous assignment.
func (c *elabContext) elabContAssign(s *netlist.Scope, g *pform.GAssign) {
	c.lexPos, c.posScope = g.LexicalPos, s.ID()
	defer func() { c.lexPos, c.posScope = 0, netlist.NoScope }()

	target, ok := c.elabLnet(g.Lval, s, false, true)
	if !ok {
		return
	}
	rv := c.elabRval(g.Rval, s, target.typ, target.width)
	if netlist.IsPacked(target.typ) && !netlist.IsFourState(target.typ) && netlist.IsFourState(rv.Type()) {
		rv = netlist.NewCastExpr(netlist.CastTo2State, rv, netlist.NewVector(netlist.BaseBool, rv.Width(), rv.Signed()))
	}
	drv := c.netValue(rv, target.width, s, g)
	if drv == nil || target.pin == nil {
		return
	}
	delays := c.elabDelays(g.Delays, s, g)
	_, named := rv.(*netlist.SignalExpr)
	if len(delays) == 0 && g.Drive.IsDefault() && !named {
		netlist.Connect(drv, target.pin)
		return
	}
	// Strengths and delays need a driver of their own; so does a plain
	// signal, which would otherwise be merged with its source.
	buf := netlist.NewBufz(s.ID(), s.LocalSymbol(), target.width)
	c.addNode(buf, g)
	buf.SetDelays(delays)
	buf.Pin(0).SetDrive(strength(g.Drive.Str0), strength(g.Drive.Str1))
	netlist.Connect(buf.Pin(1), drv)
	netlist.Connect(buf.Pin(0), target.pin)
	c.traceElab(s, "assign "+g.Lval.String())
}

// gateInput synthesizes a gate input of width w. A 1-bit value is
// replicated across a gate array.
func (c *elabContext) gateInput(e pform.Expr, w int64, s *netlist.Scope, n pform.Node) *netlist.Link {
	x := c.reduce(c.elabExpr(e, s))
	if netlist.IsReal(x) || !netlist.IsPacked(x.Type()) {
		c.diag.Errorf(e, "gate input %s must be an integral value.", e)
		return nil
	}
	link := c.synth(x, s, n)
	if link == nil {
		return nil
	}
	switch {
	case x.Width() == w:
		return link
	case x.Width() == 1 && w > 1:
		rep := netlist.NewReplicate(s.ID(), s.LocalSymbol(), 1, w)
		c.addNode(rep, n)
		netlist.Connect(rep.Pin(1), link)
		return rep.Pin(0)
	case w > 1:
		c.diag.Errorf(e, "Expression width %d does not match width %d of the gate array.", x.Width(), w)
		return nil
	}
	if c.cfg.Warnings.PortWidth {
		c.diag.Warnf(e, "gate input %s is %d bits; only the least significant bit is used.", e, x.Width())
	}
	return c.extend(link, x.Width(), 1, false, s, n)
}

// gateOutput connects out, w bits wide, to the target e.
func (c *elabContext) gateOutput(out *netlist.Link, w int64, e pform.Expr, s *netlist.Scope, bidir bool, n pform.Node) {
	target, ok := c.elabLnet(e, s, bidir, true)
	if !ok || target.pin == nil {
		return
	}
	switch {
	case target.width == w:
		netlist.Connect(out, target.pin)
	case w == 1 && !bidir:
		if c.cfg.Warnings.PortWidth {
			c.diag.Warnf(e, "gate output %s is %d bits; it is padded from 1.", e, target.width)
		}
		netlist.Connect(c.extend(out, 1, target.width, false, s, n), target.pin)
	default:
		c.diag.Errorf(e, "Expression width %d does not match width %d of the gate terminal.", target.width, w)
	}
}

// elabGate builds a builtin primitive or primitive array.
func (c *elabContext) elabGate(s *netlist.Scope, g *pform.GBuiltin) {
	c.lexPos, c.posScope = g.LexicalPos, s.ID()
	defer func() { c.lexPos, c.posScope = 0, netlist.NoScope }()

	w := int64(1)
	if g.Range != nil {
		r, ok := c.evalRange(g.Range, s)
		if !ok {
			return
		}
		w = r.Width()
	}
	name := g.Name
	if name == "" {
		name = s.LocalSymbol()
	}
	delays := c.elabDelays(g.Delays, s, g)

	switch g.Type {
	case pform.GatePullup, pform.GatePulldown:
		if len(g.Pins) != 1 {
			c.diag.Errorf(g, "%s takes exactly one terminal.", g.Type)
			return
		}
		v, str := verinum.V1, netlist.StrPull
		if g.Type == pform.GatePulldown {
			v = verinum.V0
		}
		if !g.Drive.IsDefault() {
			str = strength(g.Drive.Str1)
			if v == verinum.V0 {
				str = strength(g.Drive.Str0)
			}
		}
		p := netlist.NewPull(s.ID(), name, v, w, str)
		c.addNode(p, g)
		c.gateOutput(p.Pin(0), w, g.Pins[0], s, false, g)
		return
	case pform.GateTran, pform.GateRtran, pform.GateTranif0, pform.GateTranif1:
		tt := gateTran[g.Type]
		want := 2
		if tt == netlist.TranTranif0 || tt == netlist.TranTranif1 {
			want = 3
		}
		if len(g.Pins) != want {
			c.diag.Errorf(g, "%s takes %d terminals, not %d.", g.Type, want, len(g.Pins))
			return
		}
		t := netlist.NewTran(s.ID(), name, tt, w)
		c.addNode(t, g)
		t.SetDelays(delays)
		c.gateOutput(t.Pin(0), w, g.Pins[0], s, true, g)
		c.gateOutput(t.Pin(1), w, g.Pins[1], s, true, g)
		if want == 3 {
			if in := c.gateInput(g.Pins[2], w, s, g); in != nil {
				netlist.Connect(t.Pin(2), in)
			}
		}
		return
	}

	lt := gateLogic[g.Type]
	switch lt {
	case netlist.LogicBuf, netlist.LogicNot:
		// buf and not drive every terminal but the last.
		if len(g.Pins) < 2 {
			c.diag.Errorf(g, "%s needs at least two terminals.", g.Type)
			return
		}
		outs := g.Pins[:len(g.Pins)-1]
		in := c.gateInput(g.Pins[len(g.Pins)-1], w, s, g)
		for i, o := range outs {
			gname := name
			if len(outs) > 1 {
				gname = fmt.Sprintf("%s$%d", name, i)
			}
			gate := netlist.NewLogic(s.ID(), gname, lt, 1, w)
			c.addNode(gate, g)
			gate.SetDelays(delays)
			gate.Pin(0).SetDrive(strength(g.Drive.Str0), strength(g.Drive.Str1))
			if in != nil {
				netlist.Connect(gate.Pin(1), in)
			}
			c.gateOutput(gate.Pin(0), w, o, s, false, g)
		}
		return
	case netlist.LogicBufif0, netlist.LogicBufif1, netlist.LogicNotif0, netlist.LogicNotif1:
		if len(g.Pins) != 3 {
			c.diag.Errorf(g, "%s takes exactly three terminals.", g.Type)
			return
		}
	default:
		if len(g.Pins) < 2 {
			c.diag.Errorf(g, "%s needs an output and at least one input.", g.Type)
			return
		}
	}
	gate := netlist.NewLogic(s.ID(), name, lt, len(g.Pins)-1, w)
	c.addNode(gate, g)
	gate.SetDelays(delays)
	gate.Pin(0).SetDrive(strength(g.Drive.Str0), strength(g.Drive.Str1))
	for i, p := range g.Pins[1:] {
		if p == nil {
			if c.cfg.Warnings.FloatingInputs {
				c.diag.Warnf(g, "input %d of gate %s is not connected.", i+1, name)
			}
			continue
		}
		if in := c.gateInput(p, w, s, g); in != nil {
			netlist.Connect(gate.Pin(i+1), in)
		}
	}
	if g.Pins[0] != nil {
		c.gateOutput(gate.Pin(0), w, g.Pins[0], s, false, g)
	}
}

// elabUDPInstance builds an instance of a user defined primitive.
func (c *elabContext) elabUDPInstance(s *netlist.Scope, g *pform.GModule, def *netlist.UDPDef) {
	c.lexPos, c.posScope = g.LexicalPos, s.ID()
	defer func() { c.lexPos, c.posScope = 0, netlist.NoScope }()

	if len(g.Ranges) > 0 {
		c.diag.Sorryf(g, "arrays of primitive %s are not supported.", def.Name)
		return
	}
	if len(g.ParamsPos) > 0 || len(g.ParamsNamed) > 0 {
		c.diag.Errorf(g, "primitive %s cannot take parameters.", def.Name)
	}
	pins := make([]pform.Expr, len(def.Ports))
	switch {
	case len(g.PinsNamed) > 0 || g.Wildcard:
		for _, np := range g.PinsNamed {
			idx := -1
			for i, p := range def.Ports {
				if p == np.Name {
					idx = i
				}
			}
			if idx < 0 {
				c.diag.Errorf(np, "primitive %s has no port named %s.", def.Name, np.Name)
				continue
			}
			pins[idx] = np.Expr
		}
		if g.Wildcard {
			for i, p := range def.Ports {
				if pins[i] == nil {
					pins[i] = pform.Ident(g.LineInfo, p)
				}
			}
		}
	default:
		if len(g.PinsPos) != len(def.Ports) {
			c.diag.Errorf(g, "primitive %s takes %d ports, not %d.", def.Name, len(def.Ports), len(g.PinsPos))
			return
		}
		copy(pins, g.PinsPos)
	}
	name := g.Name
	if name == "" {
		name = s.LocalSymbol()
	}
	node := netlist.NewUDP(s.ID(), name, def)
	c.addNode(node, g)
	node.SetDelays(c.elabDelays(g.Delays, s, g))
	node.Pin(0).SetDrive(strength(g.Drive.Str0), strength(g.Drive.Str1))
	for i, p := range pins[1:] {
		if p == nil {
			if c.cfg.Warnings.FloatingInputs {
				c.diag.Warnf(g, "input %s of primitive %s is not connected.", def.Ports[i+1], name)
			}
			continue
		}
		if in := c.gateInput(p, 1, s, g); in != nil {
			netlist.Connect(node.Pin(i+1), in)
		}
	}
	if pins[0] != nil {
		c.gateOutput(node.Pin(0), 1, pins[0], s, false, g)
	}
}

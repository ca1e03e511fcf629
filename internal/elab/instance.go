package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// portBinding is the actual connected to one formal port.
type portBinding struct {
	expr  pform.Expr
	bound bool // explicitly named, possibly to nothing
}

// elabInstance binds the ports of a module instance or instance array.
func (c *elabContext) elabInstance(s *netlist.Scope, g *pform.GModule) {
	if def := c.des.UDP(g.Type); def != nil {
		if _, isModule := c.src.Modules[g.Type]; !isModule {
			c.elabUDPInstance(s, g, def)
			return
		}
	}
	mod, ok := c.src.Modules[g.Type]
	if !ok {
		return
	}
	var insts []*netlist.Scope
	if len(g.Ranges) == 0 {
		id, ok := s.Child(netlist.Named(g.Name))
		if !ok {
			return
		}
		insts = append(insts, c.scope(id))
	} else {
		for _, id := range s.InstanceArrays[g.Name] {
			insts = append(insts, c.scope(id))
		}
	}
	if len(insts) == 0 {
		return
	}
	c.lexPos, c.posScope = g.LexicalPos, s.ID()
	defer func() { c.lexPos, c.posScope = 0, netlist.NoScope }()

	for _, inst := range insts {
		c.elabSigs(inst)
	}
	binds := c.portBindings(s, g, mod)
	for i, b := range binds {
		if i >= len(insts[0].Ports) || len(insts[0].Ports[i]) == 0 {
			if b.expr != nil && c.cfg.Warnings.PortWidth {
				c.diag.Warnf(g, "port %d of %s has no internal connection.", i+1, g.Type)
			}
			continue
		}
		c.bindPort(s, g, insts, i, b)
	}
}

// portBindings matches the actuals of g to the ports of mod.
func (c *elabContext) portBindings(s *netlist.Scope, g *pform.GModule, mod *pform.Module) []portBinding {
	binds := make([]portBinding, len(mod.Ports))
	if len(g.PinsNamed) > 0 || g.Wildcard {
		for _, np := range g.PinsNamed {
			idx := mod.PortIndex(np.Name)
			switch {
			case idx < 0:
				c.diag.Errorf(np, "port ``%s'' is not a port of %s.", np.Name, g.Name)
			case binds[idx].bound:
				c.diag.Errorf(np, "port %s of %s is connected more than once.", np.Name, g.Name)
			default:
				binds[idx] = portBinding{expr: np.Expr, bound: true}
			}
		}
		if g.Wildcard {
			// .* connects each remaining port to a visible name that
			// matches it; explicit connections take precedence.
			for i, p := range mod.Ports {
				if p == nil || binds[i].bound {
					continue
				}
				if _, ok := c.findName(s, p.Name, g); !ok {
					c.diag.Errorf(g, "Unable to bind wildcard port %s of %s; no such name in %s.", p.Name, g.Name, c.path(s))
					continue
				}
				binds[i] = portBinding{expr: pform.Ident(g.LineInfo, p.Name), bound: true}
			}
		}
		return binds
	}
	if len(g.PinsPos) > len(mod.Ports) {
		c.diag.Errorf(g, "Wrong number of ports. Expecting %d, got %d.", len(mod.Ports), len(g.PinsPos))
		return binds
	}
	for i, e := range g.PinsPos {
		binds[i] = portBinding{expr: e, bound: e != nil}
	}
	return binds
}

// portDirection is the direction of a port made of several signals.
func portDirection(sigs []*netlist.Signal) netlist.PortType {
	dir := sigs[0].Port()
	for _, sig := range sigs[1:] {
		if sig.Port() != dir {
			return netlist.PortInout
		}
	}
	return dir
}

// internalPort returns the link and type of a port inside inst.
func (c *elabContext) internalPort(inst *netlist.Scope, sigs []*netlist.Signal, n pform.Node) (*netlist.Link, netlist.Type, bool) {
	for _, sig := range sigs {
		if sig.IsArray() {
			c.diag.Sorryf(n, "unpacked array port %s is not supported.", sig.Name())
			return nil, nil, false
		}
	}
	if len(sigs) == 1 {
		return sigs[0].Pin(0), sigs[0].Type(), true
	}
	var total int64
	for _, sig := range sigs {
		total += sig.Width()
	}
	typ := netlist.NewVector(netlist.BaseLogic, total, false)
	tmp := c.tmpSignal(inst, netlist.SigWire, typ, n)
	off := total
	for _, sig := range sigs {
		off -= sig.Width()
		t := netlist.NewTranVP(inst.ID(), inst.LocalSymbol(), total, off, sig.Width())
		c.addNode(t, n)
		netlist.Connect(t.Pin(0), tmp.Pin(0))
		netlist.Connect(t.Pin(1), sig.Pin(0))
	}
	return tmp.Pin(0), typ, true
}

func typeWidth(t netlist.Type) int64 {
	if w := t.PackedWidth(); w > 0 {
		return w
	}
	return 1
}

// bindPort connects actual b to port i of every instance in insts.
func (c *elabContext) bindPort(s *netlist.Scope, g *pform.GModule, insts []*netlist.Scope, i int, b portBinding) {
	sigs := insts[0].Ports[i]
	dir := portDirection(sigs)
	name := insts[0].PortNames[i]
	if b.expr == nil {
		if dir == netlist.PortInput {
			c.unconnectedInput(insts, i, name, g)
		}
		return
	}
	if id, ok := b.expr.(*pform.EIdent); ok && id.Package == "" && len(id.Path) == 1 && !id.Path.HasIndices() {
		if _, found := c.findName(s, id.Path[0].Name, id); !found {
			c.implicitNet(s, id.Path[0].Name, id)
		}
	}

	internals := make([]*netlist.Link, len(insts))
	var ftype netlist.Type
	for k, inst := range insts {
		link, t, ok := c.internalPort(inst, inst.Ports[i], g)
		if !ok {
			return
		}
		internals[k], ftype = link, t
	}
	switch dir {
	case netlist.PortInput:
		c.bindInput(s, g, insts, internals, ftype, name, b.expr)
	case netlist.PortOutput:
		c.bindOutput(s, g, insts, internals, ftype, sigs, name, b.expr)
	default:
		c.bindInout(s, g, internals, ftype, name, b.expr)
	}
}

func (c *elabContext) unconnectedInput(insts []*netlist.Scope, i int, name string, g *pform.GModule) {
	for _, inst := range insts {
		var v verinum.Bit
		switch inst.UnconnectedDrive {
		case pform.DrivePull0:
			v = verinum.V0
		case pform.DrivePull1:
			v = verinum.V1
		default:
			if c.cfg.Warnings.FloatingInputs {
				c.diag.Warnf(g, "input port %s of %s is not connected.", name, c.path(inst))
			}
			continue
		}
		for _, sig := range inst.Ports[i] {
			c.pullSignal(inst, sig, v, netlist.StrPull, g)
		}
	}
}

// arrayPart picks the bits of an actual that feed instance k of n.
// The first instance takes the most significant part.
func (c *elabContext) arrayPart(link *netlist.Link, fw int64, k, n int, s *netlist.Scope, at pform.Node) *netlist.Link {
	base := int64(n-1-k) * fw
	ps := netlist.NewPartSelect(s.ID(), s.LocalSymbol(), fw*int64(n), base, fw, netlist.PartVP)
	c.addNode(ps, at)
	netlist.Connect(ps.Pin(1), link)
	return ps.Pin(0)
}

// portWidthCheck decides how an actual of width aw feeds n instances of
// a port of width fw. It reports whether the actual is split across the
// instances.
func (c *elabContext) portWidthCheck(aw, fw int64, n int, name string, g *pform.GModule) (split, ok bool) {
	if n == 1 {
		return false, true
	}
	switch aw {
	case fw * int64(n):
		return true, true
	case fw:
		return false, true
	}
	c.diag.Errorf(g, "Port expression width %d of %s does not match expected width %d or %d.", aw, name, fw*int64(n), fw)
	return false, false
}

func (c *elabContext) widthWarning(aw, fw int64, name string, g *pform.GModule) {
	if !c.cfg.Warnings.PortWidth || aw == fw {
		return
	}
	if aw < fw {
		c.diag.Warnf(g, "Port %s of %s expects %d bits, got %d; padding %d high bits.", name, g.Name, fw, aw, fw-aw)
	} else {
		c.diag.Warnf(g, "Port %s of %s expects %d bits, got %d; pruning %d high bits.", name, g.Name, fw, aw, aw-fw)
	}
}

// coerce converts the value on link from type from to type to.
func (c *elabContext) coerce(link *netlist.Link, from, to netlist.Type, s *netlist.Scope, at pform.Node) *netlist.Link {
	fromReal, toReal := from.Base() == netlist.BaseReal, to.Base() == netlist.BaseReal
	var cast *netlist.Cast
	switch {
	case fromReal && !toReal:
		cast = netlist.NewCast(s.ID(), s.LocalSymbol(), netlist.CastRealToInt, typeWidth(to), to.Signed())
	case !fromReal && toReal:
		cast = netlist.NewCast(s.ID(), s.LocalSymbol(), netlist.CastIntToReal, 1, true)
	case !fromReal && netlist.IsFourState(from) && netlist.IsPacked(to) && !netlist.IsFourState(to):
		cast = netlist.NewCast(s.ID(), s.LocalSymbol(), netlist.CastTo2State, typeWidth(from), from.Signed())
	default:
		return link
	}
	c.addNode(cast, at)
	netlist.Connect(cast.Pin(1), link)
	return cast.Pin(0)
}

func (c *elabContext) bindInput(s *netlist.Scope, g *pform.GModule, insts []*netlist.Scope, internals []*netlist.Link, ftype netlist.Type, name string, e pform.Expr) {
	x := c.reduce(c.elabExpr(e, s))
	if !netlist.IsReal(x) && !netlist.IsPacked(x.Type()) {
		c.diag.Errorf(e, "port %s of %s cannot be connected to %s of type %s.", name, g.Name, e, x.Type())
		return
	}
	fw := typeWidth(ftype)
	link := c.synth(x, s, e)
	if link == nil {
		return
	}
	aw := typeWidth(x.Type())
	if ftype.Base() == netlist.BaseReal || netlist.IsReal(x) {
		for _, in := range internals {
			netlist.Connect(c.coerce(link, x.Type(), ftype, s, g), in)
		}
		return
	}
	split, ok := c.portWidthCheck(aw, fw, len(insts), name, g)
	if !ok {
		return
	}
	if !split {
		c.widthWarning(aw, fw, name, g)
		link = c.extend(link, aw, fw, x.Signed(), s, e)
	}
	link = c.coerce(link, x.Type(), ftype, s, g)
	for k, in := range internals {
		l := link
		if split {
			l = c.arrayPart(link, fw, k, len(insts), s, g)
		}
		netlist.Connect(l, in)
	}
}

func (c *elabContext) bindOutput(s *netlist.Scope, g *pform.GModule, insts []*netlist.Scope, internals []*netlist.Link, ftype netlist.Type, sigs []*netlist.Signal, name string, e pform.Expr) {
	target, ok := c.elabLnet(e, s, false, true)
	if !ok || target.pin == nil {
		return
	}
	fw := typeWidth(ftype)
	n := len(insts)
	delayed := false
	for _, sig := range sigs {
		delayed = delayed || sig.DelayPaths() > 0
	}
	outs := make([]*netlist.Link, n)
	for k, in := range internals {
		out := in
		if delayed {
			buf := netlist.NewBufz(insts[k].ID(), insts[k].LocalSymbol(), fw)
			buf.Isolating = true
			c.addNode(buf, g)
			netlist.Connect(buf.Pin(1), in)
			out = buf.Pin(0)
		}
		outs[k] = c.coerce(out, ftype, target.typ, s, g)
	}
	if ftype.Base() == netlist.BaseReal || target.typ.Base() == netlist.BaseReal {
		if n > 1 {
			c.diag.Errorf(e, "real output %s of an instance array cannot drive a single value.", name)
			return
		}
		netlist.Connect(outs[0], target.pin)
		return
	}
	split, ok := c.portWidthCheck(target.width, fw, n, name, g)
	if !ok {
		return
	}
	if split {
		widths := make([]int64, n)
		for k := range widths {
			widths[k] = fw
		}
		cat := netlist.NewConcat(s.ID(), s.LocalSymbol(), widths)
		c.addNode(cat, g)
		for k, out := range outs {
			netlist.Connect(cat.Pin(n-k), out)
		}
		netlist.Connect(cat.Pin(0), target.pin)
		return
	}
	c.widthWarning(target.width, fw, name, g)
	for _, out := range outs {
		netlist.Connect(c.extend(out, fw, target.width, ftype.Signed(), s, e), target.pin)
	}
}

func (c *elabContext) bindInout(s *netlist.Scope, g *pform.GModule, internals []*netlist.Link, ftype netlist.Type, name string, e pform.Expr) {
	if ftype.Base() == netlist.BaseReal {
		c.diag.Sorryf(e, "real inout port %s is not supported.", name)
		return
	}
	if len(internals) > 1 {
		c.diag.Sorryf(e, "inout port %s of an instance array is not supported.", name)
		return
	}
	target, ok := c.elabLnet(e, s, true, true)
	if !ok || target.pin == nil {
		return
	}
	if target.typ != nil && target.typ.Base() == netlist.BaseReal {
		c.diag.Sorryf(e, "a real value cannot be connected to inout port %s.", name)
		return
	}
	fw, tw := typeWidth(ftype), target.width
	in := internals[0]
	switch {
	case fw == tw:
		netlist.Connect(in, target.pin)
	case tw > fw:
		c.widthWarning(tw, fw, name, g)
		t := netlist.NewTranVP(s.ID(), s.LocalSymbol(), tw, 0, fw)
		c.addNode(t, g)
		netlist.Connect(t.Pin(0), target.pin)
		netlist.Connect(t.Pin(1), in)
	default:
		c.widthWarning(tw, fw, name, g)
		t := netlist.NewTranVP(s.ID(), s.LocalSymbol(), fw, 0, tw)
		c.addNode(t, g)
		netlist.Connect(t.Pin(0), in)
		netlist.Connect(t.Pin(1), target.pin)
	}
}

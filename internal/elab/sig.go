package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

var netKinds = map[pform.NetType]netlist.SignalKind{
	pform.NetImplicit:    netlist.SigWire,
	pform.NetImplicitReg: netlist.SigReg,
	pform.NetWire:        netlist.SigWire,
	pform.NetTri:         netlist.SigTri,
	pform.NetTri0:        netlist.SigTri0,
	pform.NetTri1:        netlist.SigTri1,
	pform.NetSupply0:     netlist.SigWire,
	pform.NetSupply1:     netlist.SigWire,
	pform.NetWand:        netlist.SigWand,
	pform.NetTriand:      netlist.SigTriand,
	pform.NetWor:         netlist.SigWor,
	pform.NetTrior:       netlist.SigTrior,
	pform.NetReg:         netlist.SigReg,
	pform.NetUWire:       netlist.SigUWire,
}

var portKinds = map[pform.PortType]netlist.PortType{
	pform.NotAPort:   netlist.NotAPort,
	pform.PortInput:  netlist.PortInput,
	pform.PortOutput: netlist.PortOutput,
	pform.PortInout:  netlist.PortInout,
	pform.PortRef:    netlist.PortRef,
}

// elabSigs runs the signal pass for s.
func (c *elabContext) elabSigs(s *netlist.Scope) {
	if s.Stage() >= netlist.StageSignals {
		return
	}
	src := c.sources[s.ID()]
	c.traceScope(s, "signals")
	if src != nil {
		for _, lex := range src.lexicals() {
			for _, w := range lex.Wires {
				c.elabSig(s, w)
			}
		}
		switch {
		case src.task != nil:
			c.elabTaskSigs(s, src)
		case src.class != nil:
			c.elabClassProps(s, src.class)
		case src.module != nil:
			c.elabModulePorts(s, src.module)
		}
	}
	s.AdvanceStage(netlist.StageSignals)
}

// elabSig returns the signal for w in s, creating it on first request.
// A request for a signal whose declaration is being elaborated is a
// circular dependency, reported once; such requests get a 1-bit stub.
func (c *elabContext) elabSig(s *netlist.Scope, w *pform.Wire) *netlist.Signal {
	key := sigKey{wire: w, scope: s.ID()}
	entry, ok := c.sigs[key]
	if ok {
		switch entry.state {
		case stateDone:
			return entry.sig
		case stateInProgress:
			if entry.stub == nil {
				c.diag.Errorf(w, "circular dependency in the declaration of %s.", w.Name)
				entry.stub = netlist.NewSignal(s.ID(), w.Name, netlist.SigWire, netlist.LogicScalar, nil)
			}
			return entry.stub
		}
	} else {
		entry = &sigEntry{}
		c.sigs[key] = entry
	}
	entry.state = stateInProgress
	savedPos, savedScope := c.lexPos, c.posScope
	c.lexPos, c.posScope = 0, netlist.NoScope
	sig := c.buildSig(s, w)
	c.lexPos, c.posScope = savedPos, savedScope
	entry.sig = sig
	entry.state = stateDone
	return sig
}

// declDims reconciles the port and net declarations of w.
func (c *elabContext) declDims(s *netlist.Scope, w *pform.Wire) []netlist.Range {
	portDims := c.evalDims(w.PortRange, s)
	netDims := c.evalDims(w.NetRange, s)
	if !w.PortDeclared || !w.NetDeclared {
		if w.NetDeclared {
			return netDims
		}
		return portDims
	}
	switch {
	case len(portDims) > 0 && len(netDims) > 0:
		if !rangesEqual(portDims, netDims) {
			c.diag.Errorf(w, "port %s declared as %s but its net as %s.", w.Name, rangesString(portDims), rangesString(netDims))
		}
	case len(portDims) == 0 && len(netDims) > 0, len(portDims) > 0 && len(netDims) == 0:
		if c.cfg.Compat.PortVectorMismatchWarning {
			c.diag.Warnf(w, "scalar and vector declarations of port %s are mixed.", w.Name)
		} else {
			c.diag.Errorf(w, "scalar and vector declarations of port %s are mixed.", w.Name)
		}
	}
	if len(netDims) > 0 {
		return netDims
	}
	return portDims
}

func rangesEqual(a, b []netlist.Range) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func rangesString(dims []netlist.Range) string {
	out := ""
	for _, d := range dims {
		out += d.String()
	}
	return out
}

// declType builds the packed or non-array type of w.
func (c *elabContext) declType(s *netlist.Scope, w *pform.Wire) netlist.Type {
	dims := c.declDims(s, w)
	if w.Type == nil {
		if len(dims) == 0 && !w.Signed {
			return netlist.LogicScalar
		}
		return &netlist.VectorType{Kind: netlist.BaseLogic, Dims: dims, IsSigned: w.Signed}
	}
	base := c.elabType(w.Type, s)
	if v, ok := base.(*netlist.VectorType); ok && !v.Integer && len(v.Dims) == 0 {
		if len(dims) == 0 && !w.Signed {
			return base
		}
		return &netlist.VectorType{Kind: v.Kind, Dims: dims, IsSigned: w.Signed || v.IsSigned}
	}
	if len(dims) > 0 {
		base = c.packedWith(base, dims, w)
	}
	return base
}

func (c *elabContext) buildSig(s *netlist.Scope, w *pform.Wire) *netlist.Signal {
	kind, ok := netKinds[w.Kind]
	if !ok {
		kind = netlist.SigWire
	}
	if s.Kind() == netlist.ScopeTask || s.Kind() == netlist.ScopeFunction {
		// Task and function arguments are always variables.
		if w.Kind == pform.NetImplicit {
			kind = netlist.SigReg
		}
	}
	typ := c.declType(s, w)
	typ, words := c.elabUnpacked(typ, w.Unpacked, s, w)

	if kind.IsNet() && !netlist.IsPacked(typ) && typ.Base() != netlist.BaseReal {
		c.diag.Errorf(w, "net %s cannot have type %s.", w.Name, typ)
		typ = netlist.LogicScalar
	}
	if pw := typ.PackedWidth(); pw > c.cfg.Limits.MaxVectorWidth && c.cfg.Limits.MaxVectorWidth > 0 {
		c.diag.Warnf(w, "vector %s is %d bits wide.", w.Name, pw)
	}

	sig := netlist.NewSignal(s.ID(), w.Name, kind, typ, words)
	sig.LineInfo = loc(w)
	sig.SetPort(portKinds[w.Port])
	sig.SetLexicalPos(w.LexicalPos)
	sig.SetDiscipline(w.Discipline)
	sig.SetConst(w.Const)
	for k, v := range w.Attributes {
		val := "1"
		if v != nil {
			val = v.String()
		}
		sig.SetAttribute(k, val)
	}
	if old := s.Signal(w.Name); old != nil {
		c.diag.Errorf(w, "%s is already declared in %s.", w.Name, c.path(s))
	}
	s.AddSignal(sig)

	switch w.Kind {
	case pform.NetSupply0:
		c.pullSignal(s, sig, verinum.V0, netlist.StrSupply, w)
	case pform.NetSupply1:
		c.pullSignal(s, sig, verinum.V1, netlist.StrSupply, w)
	case pform.NetTri0:
		c.pullSignal(s, sig, verinum.V0, netlist.StrPull, w)
	case pform.NetTri1:
		c.pullSignal(s, sig, verinum.V1, netlist.StrPull, w)
	}
	c.traceElab(s, "signal "+w.Name+" "+typ.String())
	return sig
}

// pullSignal drives every word of sig with a pull device.
func (c *elabContext) pullSignal(s *netlist.Scope, sig *netlist.Signal, v verinum.Bit, str netlist.Strength, n pform.Node) {
	for i := 0; i < sig.PinCount(); i++ {
		p := netlist.NewPull(s.ID(), s.LocalSymbol(), v, sig.Width(), str)
		c.addNode(p, n)
		netlist.Connect(p.Pin(0), sig.Pin(i))
	}
}

// elabTaskSigs collects the ports of a task or function and creates the
// result variable of a function.
func (c *elabContext) elabTaskSigs(s *netlist.Scope, src *scopeSource) {
	def := s.Task
	for _, w := range src.task.Ports {
		sig := c.elabSig(s, w)
		if sig == nil {
			continue
		}
		if sig.Port() == netlist.NotAPort {
			sig.SetPort(netlist.PortInput)
		}
		def.Ports = append(def.Ports, sig)
	}
	if src.fn == nil || def.Void {
		return
	}
	typ := c.elabType(src.fn.Return, s)
	res := netlist.NewSignal(s.ID(), s.BaseName(), netlist.SigReg, typ, nil)
	res.LineInfo = loc(src.fn)
	res.SetPort(netlist.PortOutput)
	s.AddSignal(res)
	def.Result = res
}

func (c *elabContext) elabClassProps(s *netlist.Scope, cl *pform.Class) {
	ct := s.Class
	for _, p := range cl.Properties {
		if prop, _ := ct.Property(p.Name); prop != nil {
			c.diag.Errorf(p, "property %s is already declared in class %s.", p.Name, cl.Name)
			continue
		}
		ct.Properties = append(ct.Properties, &netlist.ClassProperty{
			Name:   p.Name,
			Type:   c.elabType(p.Type, s),
			Static: p.Static,
			Const:  p.Const,
			Local:  p.Local,
		})
	}
}

// elabModulePorts binds the port list of a module to its port signals.
func (c *elabContext) elabModulePorts(s *netlist.Scope, mod *pform.Module) {
	listed := make(map[string]bool)
	for _, p := range mod.Ports {
		if p == nil {
			s.Ports = append(s.Ports, nil)
			s.PortNames = append(s.PortNames, "")
			continue
		}
		var sigs []*netlist.Signal
		for _, e := range p.Exprs {
			name := e.Path[0].Name
			listed[name] = true
			sym, ok := c.localSymbol(s, name)
			if !ok || sym.kind != symSignal {
				c.diag.Errorf(p, "port %s of module %s is not declared.", name, mod.Name)
				continue
			}
			if sym.sig.Port() == netlist.NotAPort {
				c.diag.Errorf(p, "%s is in the port list of %s but is not declared as a port.", name, mod.Name)
				sym.sig.SetPort(netlist.PortInout)
			}
			sigs = append(sigs, sym.sig)
		}
		s.Ports = append(s.Ports, sigs)
		s.PortNames = append(s.PortNames, p.Name)
	}
	for _, w := range mod.Wires {
		if w.Port != pform.NotAPort && !listed[w.Name] {
			c.diag.Errorf(w, "%s is declared as a port but is not in the port list of %s.", w.Name, mod.Name)
		}
	}
	for _, sp := range mod.Specify {
		for _, name := range sp.To {
			if sig := s.Signal(name); sig != nil {
				sig.AddDelayPath()
			} else {
				c.diag.Warnf(sp, "path destination %s is not a signal of %s.", name, mod.Name)
			}
		}
	}
}

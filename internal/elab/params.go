package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/verinum"
)

// declareParams adds the parameters of a lexical scope to s without
// evaluating them.
func (c *elabContext) declareParams(s *netlist.Scope, lex *pform.LexicalScope) {
	for _, p := range lex.Parameters {
		if s.Param(p.Name) != nil {
			c.diag.Errorf(p, "parameter %s is already declared in %s.", p.Name, c.path(s))
			continue
		}
		s.AddParam(&netlist.Param{
			LineInfo:    loc(p),
			Name:        p.Name,
			Expr:        p.Expr,
			EvalScope:   s.ID(),
			TypeDecl:    p.Type,
			IsType:      p.IsType,
			TypeValue:   p.TypeValue,
			TypeScope:   s.ID(),
			Local:       p.Local,
			Overridable: p.Overridable,
			LexicalPos:  p.LexicalPos,
		})
	}
}

// paramValue evaluates p on demand and caches the result. A parameter
// that is requested while its own value is being computed has a circular
// definition.
func (c *elabContext) paramValue(s *netlist.Scope, p *netlist.Param) netlist.Expr {
	switch p.State {
	case netlist.ParamDone:
		return p.Value
	case netlist.ParamInProgress:
		c.diag.Errorf(p, "parameter %s in %s has a circular definition.", p.Name, c.path(s))
		return netlist.NewConstExpr(verinum.New(32, verinum.Vx))
	}
	p.State = netlist.ParamInProgress
	savedPos, savedScope := c.lexPos, c.posScope
	c.lexPos, c.posScope = 0, netlist.NoScope
	defer func() { c.lexPos, c.posScope = savedPos, savedScope }()

	val := c.evalParam(s, p)
	p.Value = val
	p.State = netlist.ParamDone
	if c.phase == phaseScope {
		p.Locked = true
	}
	c.traceParam(s, p, val.String())
	return val
}

func (c *elabContext) evalParam(s *netlist.Scope, p *netlist.Param) netlist.Expr {
	var typ netlist.Type
	if p.TypeDecl != nil {
		typ = c.elabType(p.TypeDecl, s)
		p.Type = typ
	}
	if p.Expr == nil {
		c.diag.Errorf(p, "parameter %s in %s has no value.", p.Name, c.path(s))
		return netlist.NewConstExpr(verinum.Int(0))
	}
	evalScope := c.scope(p.EvalScope)
	if evalScope == nil {
		evalScope = s
	}
	before := c.diag.Errors()
	x := c.elabExpr(p.Expr, evalScope)
	if typ != nil && netlist.IsPacked(typ) && netlist.IsPacked(x.Type()) {
		tw := typ.PackedWidth()
		if x.Width() < tw {
			x = c.propagate(x, tw, x.Signed())
		}
	}
	v, ok := c.fold(x, nil)
	if !ok {
		if c.diag.Errors() == before {
			c.diag.Errorf(p, "Unable to evaluate parameter %s value %s as a constant.", p.Name, p.Expr)
		}
		w := 32
		if typ != nil && netlist.IsPacked(typ) {
			w = int(typ.PackedWidth())
		}
		return netlist.NewConstExpr(verinum.New(w, verinum.Vx))
	}

	var out netlist.Expr
	switch {
	case typ == nil:
		if v.isReal {
			out = netlist.NewRealConst(v.real)
		} else if v.num.IsFill() || v.num.IsString() {
			out = netlist.NewConstExpr(v.num)
		} else {
			out = netlist.NewConstExpr(v.num.WithSized(true))
		}
	case typ.Base() == netlist.BaseReal:
		out = netlist.NewRealConst(v.asReal())
	case typ.Base() == netlist.BaseString:
		out = netlist.NewConstExpr(v.num)
	case netlist.IsPacked(typ):
		w := int(typ.PackedWidth())
		n := v.asNum(w, typ.Signed())
		n = n.Resize(w).WithSigned(typ.Signed()).WithSized(true)
		if et, ok := typ.(*netlist.EnumType); ok {
			out = enumValue(et, n, p.LineInfo)
		} else {
			out = netlist.NewConstExpr(n)
		}
	default:
		c.diag.Errorf(p, "parameter %s cannot have type %s.", p.Name, typ)
		out = netlist.NewConstExpr(verinum.Int(0))
	}
	return out
}

// enumValue maps a constant onto a literal of et when one matches.
func enumValue(et *netlist.EnumType, v *verinum.Verinum, li netlist.LineInfo) netlist.Expr {
	for _, name := range et.Names {
		if name.Value.Equal(v) {
			x := netlist.NewEnumConst(et, name)
			x.SetLoc(li)
			return x
		}
	}
	x := netlist.NewConstExpr(v)
	x.SetLoc(li)
	return x
}

// paramType resolves a type parameter.
func (c *elabContext) paramType(s *netlist.Scope, p *netlist.Param) netlist.Type {
	switch p.State {
	case netlist.ParamDone:
		return p.Resolved
	case netlist.ParamInProgress:
		c.diag.Errorf(p, "type parameter %s in %s has a circular definition.", p.Name, c.path(s))
		return netlist.IntegerType
	}
	p.State = netlist.ParamInProgress
	var typ netlist.Type
	if p.TypeValue == nil {
		c.diag.Errorf(p, "type parameter %s in %s has no default type.", p.Name, c.path(s))
		typ = netlist.IntegerType
	} else {
		ts := c.scope(p.TypeScope)
		if ts == nil {
			ts = s
		}
		typ = c.elabType(p.TypeValue, ts)
	}
	p.Resolved = typ
	p.State = netlist.ParamDone
	if c.phase == phaseScope {
		p.Locked = true
	}
	c.traceParam(s, p, typ.String())
	return typ
}

// evaluateParams forces every parameter of s.
func (c *elabContext) evaluateParams(s *netlist.Scope) {
	for _, p := range s.Params() {
		if p.IsType {
			c.paramType(s, p)
		} else {
			c.paramValue(s, p)
		}
	}
}

// paramRef returns a fresh constant expression for a parameter reference.
func (c *elabContext) paramRef(s *netlist.Scope, p *netlist.Param, n pform.Node) netlist.Expr {
	if p.IsType {
		c.diag.Errorf(n, "type parameter %s used as a value.", p.Name)
		return netlist.NewConstExpr(verinum.Int(0))
	}
	var out netlist.Expr
	switch v := c.paramValue(s, p).(type) {
	case *netlist.ConstExpr:
		e := netlist.NewConstExpr(v.Value)
		e.SetLoc(loc(n))
		out = e
	case *netlist.RealConstExpr:
		e := netlist.NewRealConst(v.Value)
		e.SetLoc(loc(n))
		out = e
	case *netlist.EnumConstExpr:
		e := netlist.NewEnumConst(v.Enum, v.Name)
		e.SetLoc(loc(n))
		out = e
	default:
		out = v
	}
	return out
}

// overrideParams applies the parameter list of an instance to the new
// instance scope. Values are evaluated later in the instantiating scope.
func (c *elabContext) overrideParams(inst *netlist.Scope, parent *netlist.Scope, mod *pform.Module, g *pform.GModule) {
	apply := func(pv *pform.ParamValue, p *netlist.Param) {
		if p.Local {
			c.diag.Errorf(pv, "cannot override localparam %s of %s.", p.Name, g.Type)
			return
		}
		if p.IsType {
			if pv.Type == nil {
				if ref, ok := pv.Expr.(*pform.ETypeRef); ok {
					p.TypeValue = ref.Type
				} else if id, ok := pv.Expr.(*pform.EIdent); ok && len(id.Path) == 1 {
					p.TypeValue = &pform.TypeRef{LineInfo: id.LineInfo, Package: id.Package, Name: id.Path[0].Name}
				} else {
					c.diag.Errorf(pv, "type parameter %s of %s needs a type, not %s.", p.Name, g.Type, pv.Expr)
					return
				}
			} else {
				p.TypeValue = pv.Type
			}
			p.TypeScope = parent.ID()
		} else {
			if pv.Expr == nil {
				if pv.Type != nil {
					c.diag.Errorf(pv, "parameter %s of %s is not a type parameter.", p.Name, g.Type)
				}
				return
			}
			p.Expr = pv.Expr
			p.EvalScope = parent.ID()
		}
		p.Overridden = true
		p.State = netlist.ParamNotStarted
	}

	if len(g.ParamsPos) > 0 {
		// Positional overrides bind to the overridable parameters in
		// declaration order.
		var targets []*netlist.Param
		for _, decl := range mod.Parameters {
			if decl.Local {
				continue
			}
			targets = append(targets, inst.Param(decl.Name))
		}
		if len(g.ParamsPos) > len(targets) {
			c.diag.Errorf(g, "too many parameter overrides (%d) for module %s, which has %d.", len(g.ParamsPos), g.Type, len(targets))
		}
		for i, pv := range g.ParamsPos {
			if i >= len(targets) || targets[i] == nil {
				break
			}
			apply(pv, targets[i])
		}
	}
	for _, pv := range g.ParamsNamed {
		p := inst.Param(pv.Name)
		if p == nil {
			c.diag.Errorf(pv, "parameter %s is not declared in module %s.", pv.Name, g.Type)
			continue
		}
		apply(pv, p)
	}
}

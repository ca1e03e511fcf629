package elab

import (
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

// pendingDefparam is a defparam whose target scope may not exist yet.
type pendingDefparam struct {
	scope netlist.ScopeID
	def   *pform.Defparam
}

// runDefparams applies every pending defparam whose target scope has
// been collected. The rest stay pending for a later pass.
func (c *elabContext) runDefparams() {
	if len(c.defparams) == 0 {
		return
	}
	var keep []*pendingDefparam
	for _, pd := range c.defparams {
		if !c.applyDefparam(pd) {
			keep = append(keep, pd)
		}
	}
	c.defparams = keep
}

// applyDefparam reports whether pd is finished, either applied or
// rejected with an error.
func (c *elabContext) applyDefparam(pd *pendingDefparam) bool {
	s := c.scope(pd.scope)
	d := pd.def
	if len(d.Path) < 2 {
		// A defparam of a parameter in the declaring scope itself.
		return c.setDefparam(s, s, d)
	}
	target := c.findScope(s, d.Path.Prefix())
	if target == nil || target.Stage() < netlist.StageScope {
		return false
	}
	return c.setDefparam(s, target, d)
}

func (c *elabContext) setDefparam(from, target *netlist.Scope, d *pform.Defparam) bool {
	name := d.Path.Last().Name
	p := target.Param(name)
	switch {
	case p == nil:
		c.diag.Errorf(d, "defparam %s: parameter %s is not declared in %s.", d.Path, name, c.path(target))
	case p.Local:
		c.diag.Errorf(d, "defparam %s: cannot override localparam %s.", d.Path, name)
	case p.IsType:
		c.diag.Errorf(d, "defparam %s: cannot override type parameter %s.", d.Path, name)
	case !p.Overridable || p.Locked:
		c.diag.Errorf(d, "defparam %s: parameter %s of %s can no longer be overridden.", d.Path, name, c.path(target))
	default:
		p.Expr = d.Value
		p.EvalScope = from.ID()
		p.Overridden = true
		p.State = netlist.ParamNotStarted
		p.Value = nil
		c.log.WithField("param", c.path(target)+"."+name).Debug("defparam applied")
	}
	return true
}

// residualDefparams warns about defparams whose target never appeared.
func (c *elabContext) residualDefparams() {
	for _, pd := range c.defparams {
		c.diag.Warnf(pd.def, "defparam %s does not name a parameter in the design.", pd.def.Path)
	}
	c.defparams = nil
}

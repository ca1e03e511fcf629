package elab

import (
	"io"

	"github.com/sirupsen/logrus"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/config"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
)

// Elaborator turns a parsed design into a netlist.
type Elaborator struct {
	cfg    *config.Config
	diag   *elaberr.Reporter
	logger *logrus.Logger
}

// Option configures an Elaborator.
type Option func(*Elaborator)

// WithDiagnostics sends diagnostics to r instead of a silent reporter.
func WithDiagnostics(r *elaberr.Reporter) Option {
	return func(e *Elaborator) { e.diag = r }
}

// WithLogger sets the logger used for debug traces.
func WithLogger(l *logrus.Logger) Option {
	return func(e *Elaborator) { e.logger = l }
}

// New creates an Elaborator. A nil cfg means the default configuration.
func New(cfg *config.Config, opts ...Option) *Elaborator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Elaborator{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.diag == nil {
		e.diag = elaberr.NewReporter(nil)
	}
	if e.logger == nil {
		e.logger = logrus.New()
		e.logger.SetOutput(io.Discard)
	}
	return e
}

// Diagnostics returns the reporter of the elaborator.
func (e *Elaborator) Diagnostics() *elaberr.Reporter { return e.diag }

// Elaborate runs every pass over src. The design is returned even when
// errors were reported, together with an error listing them.
func (e *Elaborator) Elaborate(src *pform.Design) (des *netlist.Design, err error) {
	c := newContext(e.cfg, src, e.diag, e.logger)
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*elaberr.InternalError)
			if !ok {
				panic(r)
			}
			e.diag.Recover(ie)
			des, err = c.des, e.diag.Err()
		}
	}()
	c.run()
	return c.des, e.diag.Err()
}

// Elaborate elaborates src with cfg, writing diagnostics to out.
func Elaborate(cfg *config.Config, src *pform.Design, out io.Writer) (*netlist.Design, error) {
	return New(cfg, WithDiagnostics(elaberr.NewReporter(out))).Elaborate(src)
}

func (c *elabContext) run() {
	c.phase = phaseScope
	c.setupDesign()
	c.runWorklist()
	if c.abandon {
		c.log.Debug("elaboration abandoned after the scope pass")
		return
	}

	c.phase = phaseParams
	for _, s := range c.des.Scopes() {
		c.evaluateParams(s)
	}

	c.phase = phaseSignals
	for _, s := range c.des.Scopes() {
		c.elabSigs(s)
	}

	c.phase = phaseElaborate
	// Scopes made while elaborating are blocks, which their statements
	// elaborate, so the list is taken once.
	for _, s := range c.des.Scopes() {
		c.elabScopeItems(s)
	}

	c.phase = phaseCheck
	c.checkProcesses()
	c.log.WithFields(logrus.Fields{
		"scopes":    len(c.des.Scopes()),
		"nodes":     len(c.des.Nodes()),
		"processes": len(c.des.Processes()),
	}).Debug("elaboration finished")
}

// elabScopeItems elaborates the structure and behavior of one scope.
func (c *elabContext) elabScopeItems(s *netlist.Scope) {
	if s.Stage() >= netlist.StageElaborated {
		return
	}
	src := c.sources[s.ID()]
	if src == nil {
		s.AdvanceStage(netlist.StageElaborated)
		return
	}
	c.traceElab(s, "elaborate")
	switch s.Kind() {
	case netlist.ScopeTask, netlist.ScopeFunction:
		c.elabTaskBody(s)
	case netlist.ScopeModule, netlist.ScopeGenerate, netlist.ScopePackage, netlist.ScopeUnit:
		for _, lex := range src.lexicals() {
			for _, w := range lex.Wires {
				if w.Init != nil {
					c.elabVarInit(s, w)
				}
			}
		}
		for _, items := range src.itemSets() {
			c.elabItems(s, items)
		}
	}
	s.AdvanceStage(netlist.StageElaborated)
}

func (c *elabContext) elabItems(s *netlist.Scope, items *pform.ModuleItems) {
	for _, g := range items.Gates {
		switch g := g.(type) {
		case *pform.GAssign:
			c.elabContAssign(s, g)
		case *pform.GBuiltin:
			c.elabGate(s, g)
		case *pform.GModule:
			c.elabInstance(s, g)
		}
	}
	for _, p := range items.Behaviors {
		c.elabProcess(s, p)
	}
}

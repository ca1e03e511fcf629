package elab

import (
	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/sirupsen/logrus"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/config"
	"martianoff/velab/internal/instgraph"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/registry"
	"martianoff/velab/internal/verinum"
)

// phase is the pass the elaborator is in. Passes run in order over the
// whole design.
type phase int

const (
	phaseScope phase = iota
	phaseParams
	phaseSignals
	phaseElaborate
	phaseCheck
)

var phaseNames = []string{"scope", "params", "signals", "elaborate", "check"}

func (p phase) String() string { return phaseNames[p] }

// scopeSource is the syntax a scope was created from. Generate blocks
// elaborated without a scope of their own are merged into their parent.
type scopeSource struct {
	lex    *pform.LexicalScope
	items  *pform.ModuleItems
	module *pform.Module
	task   *pform.Task
	fn     *pform.Function
	class  *pform.Class
	pkg    *pform.Package
	gen    *pform.GenerateBlock
	block  *pform.Block
	merged []*pform.GenerateBlock
}

// lexicals returns the declaration sets of the scope, its own first.
func (s *scopeSource) lexicals() []*pform.LexicalScope {
	var out []*pform.LexicalScope
	if s.lex != nil {
		out = append(out, s.lex)
	}
	for _, g := range s.merged {
		out = append(out, &g.LexicalScope)
	}
	return out
}

// itemSets returns the module item sets of the scope.
func (s *scopeSource) itemSets() []*pform.ModuleItems {
	var out []*pform.ModuleItems
	if s.items != nil {
		out = append(out, s.items)
	}
	for _, g := range s.merged {
		out = append(out, &g.ModuleItems)
	}
	return out
}

// wire finds the declaration of name, including task and function ports.
func (s *scopeSource) wire(name string) *pform.Wire {
	if s == nil {
		return nil
	}
	for _, lex := range s.lexicals() {
		if w := lex.Wire(name); w != nil {
			return w
		}
	}
	if s.task != nil {
		for _, w := range s.task.Ports {
			if w.Name == name {
				return w
			}
		}
	}
	return nil
}

type state int

const (
	stateNotStarted state = iota
	stateInProgress
	stateDone
)

type sigKey struct {
	wire  *pform.Wire
	scope netlist.ScopeID
}

type sigEntry struct {
	state state
	sig   *netlist.Signal
	// stub stands in for the signal while a circular request is open.
	stub *netlist.Signal
}

type typeKey struct {
	typ   pform.DataType
	scope netlist.ScopeID
}

type typeEntry struct {
	state    state
	typ      netlist.Type
	reported bool
}

// elabContext carries everything one elaboration run shares: the
// configuration, the design under construction, the diagnostics sink and
// the memo tables that keep repeated requests idempotent.
type elabContext struct {
	cfg   *config.Config
	des   *netlist.Design
	diag  *elaberr.Reporter
	log   *logrus.Entry
	src   *pform.Design
	reg   *registry.PackageRegistry
	graph *instgraph.Graph

	sources map[netlist.ScopeID]*scopeSource
	blocks  map[pform.Statement]netlist.ScopeID
	sigs    map[sigKey]*sigEntry
	types   map[typeKey]*typeEntry

	work      *linkedlistqueue.Queue
	defparams []*pendingDefparam
	passes    int

	phase    phase
	lexPos   int
	posScope netlist.ScopeID
	genvars  map[string]*verinum.Verinum
	skipped  map[string]bool
	abandon  bool
	steps    int
	blockSeq int

	// promoted holds variables turned into unresolved wires by a
	// continuous assignment; written holds procedurally assigned ones.
	promoted   map[*netlist.Signal]bool
	written    map[*netlist.Signal]bool
	constDepth int

	// loops counts the loops around the statement being elaborated;
	// inFunc is set inside function bodies.
	loops  int
	inFunc bool
}

func newContext(cfg *config.Config, src *pform.Design, diag *elaberr.Reporter, logger *logrus.Logger) *elabContext {
	if cfg.Debug.Scopes || cfg.Debug.Elaborate || cfg.Debug.Params {
		logger.SetLevel(logrus.DebugLevel)
	}
	return &elabContext{
		cfg:      cfg,
		des:      netlist.NewDesign(diag),
		diag:     diag,
		log:      logger.WithField("component", "elab"),
		src:      src,
		reg:      registry.NewRegistry(),
		sources:  make(map[netlist.ScopeID]*scopeSource),
		blocks:   make(map[pform.Statement]netlist.ScopeID),
		sigs:     make(map[sigKey]*sigEntry),
		types:    make(map[typeKey]*typeEntry),
		work:     linkedlistqueue.New(),
		genvars:  make(map[string]*verinum.Verinum),
		skipped:  make(map[string]bool),
		promoted: make(map[*netlist.Signal]bool),
		written:  make(map[*netlist.Signal]bool),
	}
}

func (c *elabContext) scope(id netlist.ScopeID) *netlist.Scope { return c.des.Scope(id) }

func (c *elabContext) path(s *netlist.Scope) string { return c.des.Path(s.ID()) }

// sv reports whether SystemVerilog rules apply.
func (c *elabContext) sv() bool { return c.cfg.SystemVerilog() }

func (c *elabContext) traceScope(s *netlist.Scope, msg string) {
	if c.cfg.Debug.Scopes {
		c.log.WithFields(logrus.Fields{"scope": c.path(s), "pass": c.phase.String()}).Debug(msg)
	}
}

func (c *elabContext) traceElab(s *netlist.Scope, msg string) {
	if c.cfg.Debug.Elaborate {
		c.log.WithFields(logrus.Fields{"scope": c.path(s), "pass": c.phase.String()}).Debug(msg)
	}
}

func (c *elabContext) traceParam(s *netlist.Scope, p *netlist.Param, value string) {
	if c.cfg.Debug.Params {
		c.log.WithFields(logrus.Fields{"scope": c.path(s), "param": p.Name}).Debug("evaluated to " + value)
	}
}

// loc converts a syntax position into a netlist one.
func loc(n pform.Node) netlist.LineInfo {
	if n == nil {
		return netlist.LineInfo{}
	}
	file, line := n.FileLine()
	return netlist.LineInfo{File: file, Line: line}
}

// addNode registers a node built in scope at the position of n.
func (c *elabContext) addNode(node netlist.Node, n pform.Node) {
	node.SetLoc(loc(n))
	c.des.AddNode(node)
}

// tmpSignal makes a compiler-generated signal in scope.
func (c *elabContext) tmpSignal(s *netlist.Scope, kind netlist.SignalKind, typ netlist.Type, n pform.Node) *netlist.Signal {
	sig := netlist.NewSignal(s.ID(), s.LocalSymbol(), kind, typ, nil)
	sig.LineInfo = loc(n)
	sig.SetLocal(true)
	s.AddSignal(sig)
	return sig
}

// moduleOf returns the nearest enclosing module, package, class or unit
// scope; it is where implicit nets are declared.
func (c *elabContext) moduleOf(s *netlist.Scope) *netlist.Scope {
	for cur := s; cur != nil; cur = c.scope(cur.Parent()) {
		if isBoundary(cur.Kind()) {
			return cur
		}
	}
	return s
}

func isBoundary(k netlist.ScopeKind) bool {
	switch k {
	case netlist.ScopeModule, netlist.ScopePackage, netlist.ScopeClass, netlist.ScopeUnit:
		return true
	}
	return false
}

package netlist

import (
	"strconv"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"

	"martianoff/velab/internal/pform"
)

// ScopeKind is the kind of a scope.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeTask
	ScopeFunction
	ScopeGenerate
	ScopeBegin
	ScopeFork
	ScopeClass
	ScopePackage
	ScopeUnit
)

var scopeKindNames = []string{"module", "task", "function", "generate", "begin", "fork", "class", "package", "unit"}

func (k ScopeKind) String() string { return scopeKindNames[k] }

// ScopeName is a scope's name within its parent, with an optional
// numeric index for instance array elements and generate loop blocks.
type ScopeName struct {
	Name     string
	Index    int64
	HasIndex bool
}

// Named builds an unindexed scope name.
func Named(name string) ScopeName { return ScopeName{Name: name} }

// Indexed builds name[idx].
func Indexed(name string, idx int64) ScopeName {
	return ScopeName{Name: name, Index: idx, HasIndex: true}
}

func (n ScopeName) String() string {
	if n.HasIndex {
		return n.Name + "[" + strconv.FormatInt(n.Index, 10) + "]"
	}
	return n.Name
}

// compareScopeNames orders children by name, then numerically by index.
func compareScopeNames(a, b interface{}) int {
	x, y := a.(ScopeName), b.(ScopeName)
	if c := strings.Compare(x.Name, y.Name); c != 0 {
		return c
	}
	switch {
	case x.HasIndex != y.HasIndex:
		if !x.HasIndex {
			return -1
		}
		return 1
	case x.Index < y.Index:
		return -1
	case x.Index > y.Index:
		return 1
	}
	return 0
}

// Stage records how far a scope has been elaborated. Stages only move
// forward.
type Stage int

const (
	StageNone Stage = iota
	StageScope
	StageSignals
	StageElaborated
)

var stageNames = []string{"none", "scope", "signals", "elaborated"}

func (s Stage) String() string { return stageNames[s] }

// ParamState tracks on-demand evaluation of a parameter.
type ParamState int

const (
	ParamNotStarted ParamState = iota
	ParamInProgress
	ParamDone
)

// Param is a parameter of a scope with its unelaborated expression and,
// once evaluated, its constant value.
type Param struct {
	LineInfo
	Name        string
	Expr        pform.Expr
	EvalScope   ScopeID
	TypeDecl    pform.DataType
	Type        Type
	Value       Expr
	IsType      bool
	TypeValue   pform.DataType
	TypeScope   ScopeID
	Resolved    Type
	Local       bool
	Overridable bool
	Overridden  bool
	Locked      bool
	State       ParamState
	LexicalPos  int
}

// TaskDef is the elaborated definition held by a task or function scope.
type TaskDef struct {
	Ports  []*Signal
	Proc   Proc
	Result *Signal
	Void   bool
	Decl   *pform.Task
}

// Scope is a node of the design hierarchy.
type Scope struct {
	LineInfo
	id         ScopeID
	parent     ScopeID
	kind       ScopeKind
	name       ScopeName
	stage      Stage
	children   *treemap.Map
	signals    *treemap.Map
	params     map[string]*Param
	paramOrder []string
	events     map[string]*Event
	eventOrder []string
	localCount int

	ModuleName       string
	Typedefs         map[string]pform.DataType
	Enums            []*EnumType
	EnumNames        map[string]*EnumType
	Classes          map[string]*ClassType
	Imports          []ScopeID
	ImportNames      map[string]ScopeID
	Automatic        bool
	IsCell           bool
	UnconnectedDrive pform.DriveKind
	InstanceArrays   map[string][]ScopeID
	Ports            [][]*Signal
	PortNames        []string
	Task             *TaskDef
	Class            *ClassType
	Genvars          map[string]bool
}

func newScope(id, parent ScopeID, name ScopeName, kind ScopeKind) *Scope {
	return &Scope{
		id:             id,
		parent:         parent,
		kind:           kind,
		name:           name,
		children:       treemap.NewWith(compareScopeNames),
		signals:        treemap.NewWithStringComparator(),
		params:         make(map[string]*Param),
		events:         make(map[string]*Event),
		Typedefs:       make(map[string]pform.DataType),
		EnumNames:      make(map[string]*EnumType),
		Classes:        make(map[string]*ClassType),
		ImportNames:    make(map[string]ScopeID),
		InstanceArrays: make(map[string][]ScopeID),
		Genvars:        make(map[string]bool),
	}
}

func (s *Scope) ID() ScopeID      { return s.id }
func (s *Scope) Parent() ScopeID  { return s.parent }
func (s *Scope) Kind() ScopeKind  { return s.kind }
func (s *Scope) Name() ScopeName  { return s.name }
func (s *Scope) BaseName() string { return s.name.Name }
func (s *Scope) Stage() Stage     { return s.stage }

// AdvanceStage moves the scope to stage and reports whether it was
// behind it. A scope never moves backwards.
func (s *Scope) AdvanceStage(stage Stage) bool {
	if s.stage >= stage {
		return false
	}
	s.stage = stage
	return true
}

// Child looks up a direct child scope.
func (s *Scope) Child(name ScopeName) (ScopeID, bool) {
	v, ok := s.children.Get(name)
	if !ok {
		return NoScope, false
	}
	return v.(ScopeID), true
}

// HasChildNamed reports any child, indexed or not, with base name.
func (s *Scope) HasChildNamed(name string) bool {
	found := false
	s.children.Each(func(k, _ interface{}) {
		if k.(ScopeName).Name == name {
			found = true
		}
	})
	return found
}

// Children returns the child handles in name order.
func (s *Scope) Children() []ScopeID {
	vals := s.children.Values()
	out := make([]ScopeID, len(vals))
	for i, v := range vals {
		out[i] = v.(ScopeID)
	}
	return out
}

// AddSignal registers a signal in the scope.
func (s *Scope) AddSignal(sig *Signal) { s.signals.Put(sig.Name(), sig) }

// Signal looks up a signal declared directly in the scope.
func (s *Scope) Signal(name string) *Signal {
	v, ok := s.signals.Get(name)
	if !ok {
		return nil
	}
	return v.(*Signal)
}

// RemoveSignal drops a signal from the scope.
func (s *Scope) RemoveSignal(name string) { s.signals.Remove(name) }

// Signals returns the signals in name order.
func (s *Scope) Signals() []*Signal {
	vals := s.signals.Values()
	out := make([]*Signal, len(vals))
	for i, v := range vals {
		out[i] = v.(*Signal)
	}
	return out
}

// AddParam declares a parameter, replacing any earlier declaration.
func (s *Scope) AddParam(p *Param) {
	if _, ok := s.params[p.Name]; !ok {
		s.paramOrder = append(s.paramOrder, p.Name)
	}
	s.params[p.Name] = p
}

// Param looks up a parameter declared in the scope.
func (s *Scope) Param(name string) *Param { return s.params[name] }

// Params returns the parameters in declaration order.
func (s *Scope) Params() []*Param {
	out := make([]*Param, len(s.paramOrder))
	for i, n := range s.paramOrder {
		out[i] = s.params[n]
	}
	return out
}

// AddEvent declares an event.
func (s *Scope) AddEvent(ev *Event) {
	if _, ok := s.events[ev.Name()]; !ok {
		s.eventOrder = append(s.eventOrder, ev.Name())
	}
	s.events[ev.Name()] = ev
}

// Event looks up an event declared in the scope.
func (s *Scope) Event(name string) *Event { return s.events[name] }

// Events returns the events in declaration order.
func (s *Scope) Events() []*Event {
	out := make([]*Event, len(s.eventOrder))
	for i, n := range s.eventOrder {
		out[i] = s.events[n]
	}
	return out
}

// LocalSymbol returns a fresh internal name unique within the scope.
func (s *Scope) LocalSymbol() string {
	s.localCount++
	return "_ivl_" + strconv.Itoa(s.localCount)
}

// IsAutomatic reports an automatic task or function.
func (s *Scope) IsAutomatic() bool { return s.Automatic }

package netlist

import "strconv"

// Proc is an elaborated procedural statement.
type Proc interface {
	Loc() LineInfo
	procNode()
}

type procBase struct {
	LineInfo
}

func (*procBase) procNode() {}

// SetLoc records the source position.
func (p *procBase) SetLoc(li LineInfo) { p.LineInfo = li }

// BlockKind is the kind of a statement block.
type BlockKind int

const (
	BlockSeq BlockKind = iota
	BlockPar
	BlockJoinAny
	BlockJoinNone
)

var blockKindNames = []string{"begin", "fork", "fork_join_any", "fork_join_none"}

func (k BlockKind) String() string { return blockKindNames[k] }

// Block is a sequential or parallel block. Scope is set for named blocks.
type Block struct {
	procBase
	Kind  BlockKind
	Scope ScopeID
	Stmts []Proc
}

// LValue is one assignment target: Width() bits of Sig starting at
// canonical bit Base (nil for the whole signal), in word Word.
type LValue struct {
	Sig      *Signal
	Word     Expr
	Base     Expr
	width    int64
	Property *ClassProperty
}

// NewLValue targets the whole signal.
func NewLValue(sig *Signal) *LValue {
	return &LValue{Sig: sig, width: sig.Width()}
}

// Width is the number of bits written.
func (l *LValue) Width() int64 { return l.width }

// SetPart narrows the target to width bits at base.
func (l *LValue) SetPart(base Expr, width int64) {
	l.Base = base
	l.width = width
}

// Type is the type of the written value.
func (l *LValue) Type() Type {
	if l.Property != nil {
		return l.Property.Type
	}
	if l.Base != nil || l.width != l.Sig.Width() {
		kind := l.Sig.Type().Base()
		if kind != BaseBool {
			kind = BaseLogic
		}
		return NewVector(kind, l.width, false)
	}
	return l.Sig.Type()
}

func (l *LValue) String() string {
	s := l.Sig.Name()
	if l.Word != nil {
		s += "[" + l.Word.String() + "]"
	}
	if l.Property != nil {
		s += "." + l.Property.Name
	}
	if l.Base != nil {
		s += "[" + l.Base.String() + " +: " + strconv.FormatInt(l.width, 10) + "]"
	}
	return s
}

// Assign writes Rval into the concatenation of Lvals, the first being
// most significant. Delay, Event and Count hold a non-blocking
// intra-assignment timing control.
type Assign struct {
	procBase
	Lvals       []*LValue
	Rval        Expr
	NonBlocking bool
	Op          string
	Delay       Expr
	Event       *Event
	Count       Expr
}

// LvalWidth sums the l-value widths.
func (a *Assign) LvalWidth() int64 {
	var w int64
	for _, l := range a.Lvals {
		w += l.Width()
	}
	return w
}

// Condit is if/else; either branch may be nil.
type Condit struct {
	procBase
	Cond Expr
	Then Proc
	Else Proc
}

// CaseKind selects the match semantics.
type CaseKind int

const (
	CaseEq CaseKind = iota
	CaseX
	CaseZ
)

var caseKindNames = []string{"case", "casex", "casez"}

func (k CaseKind) String() string { return caseKindNames[k] }

// CaseItem is one arm; a nil Guard is default.
type CaseItem struct {
	Guard Expr
	Stmt  Proc
}

// Case is a case statement with all guards evaluated at a common width.
type Case struct {
	procBase
	Kind  CaseKind
	Expr  Expr
	Items []*CaseItem
}

// While loops while Cond is true.
type While struct {
	procBase
	Cond Expr
	Body Proc
}

// DoWhile runs Body, then loops while Cond is true.
type DoWhile struct {
	procBase
	Body Proc
	Cond Expr
}

// Repeat runs Body Count times.
type Repeat struct {
	procBase
	Count Expr
	Body  Proc
}

// Forever loops Body unconditionally.
type Forever struct {
	procBase
	Body Proc
}

// For is init; while (cond) { body; step }.
type For struct {
	procBase
	Init Proc
	Cond Expr
	Step Proc
	Body Proc
}

// PDelay waits Delay then runs Stmt, which may be nil.
type PDelay struct {
	procBase
	Delay Expr
	Stmt  Proc
}

// EvWait waits for any of Events then runs Stmt, which may be nil.
type EvWait struct {
	procBase
	Events []*Event
	Stmt   Proc
}

// EvTrig triggers an event.
type EvTrig struct {
	procBase
	Event *Event
}

// UTask calls a user task or void function.
type UTask struct {
	procBase
	Task ScopeID
	Name string
}

// STask calls a system task.
type STask struct {
	procBase
	Name string
	Args []Expr
}

// Disable stops the named block or task.
type Disable struct {
	procBase
	Target ScopeID
}

// Alloc allocates the frame of an automatic scope.
type Alloc struct {
	procBase
	Scope ScopeID
}

// Free releases the frame of an automatic scope.
type Free struct {
	procBase
	Scope ScopeID
}

// JumpKind is break, continue or return.
type JumpKind int

const (
	JumpBreak JumpKind = iota
	JumpContinue
	JumpReturn
)

var jumpNames = []string{"break", "continue", "return"}

func (k JumpKind) String() string { return jumpNames[k] }

// Jump transfers control out of a loop or subroutine.
type Jump struct {
	procBase
	Jump  JumpKind
	Scope ScopeID
}

// WaitFork waits for child threads.
type WaitFork struct {
	procBase
}

// Noop does nothing.
type Noop struct {
	procBase
}

// ProcKind is the kind of a process.
type ProcKind int

const (
	ProcInitial ProcKind = iota
	ProcAlways
	ProcAlwaysComb
	ProcAlwaysFF
	ProcAlwaysLatch
	ProcFinal
)

var procKindNames = []string{"initial", "always", "always_comb", "always_ff", "always_latch", "final"}

func (k ProcKind) String() string { return procKindNames[k] }

// ProcTop is a process with its statement tree.
type ProcTop struct {
	LineInfo
	Kind       ProcKind
	Scope      ScopeID
	Stmt       Proc
	Attributes map[string]string
}

// Push reports whether the process may be scheduled ahead of others at
// time zero: always_comb and always_latch always are, and always or
// always_ff when its body is a single wait on one event whose probes are
// all edge probes.
func (p *ProcTop) Push() bool {
	switch p.Kind {
	case ProcAlwaysComb, ProcAlwaysLatch:
		return true
	case ProcAlways, ProcAlwaysFF:
	default:
		return false
	}
	w, ok := p.Stmt.(*EvWait)
	if !ok || len(w.Events) != 1 {
		return false
	}
	return w.Events[0].EdgeOnly()
}

package pform

// Statement is an unelaborated procedural statement.
type Statement interface {
	Node
	stmtNode()
}

// BlockKind is begin/end or one of the fork/join flavors.
type BlockKind int

const (
	BlockSeq BlockKind = iota
	BlockPar
	BlockJoinAny
	BlockJoinNone
)

// Block is begin/end or fork/join. A named block declares a scope.
type Block struct {
	LineInfo
	LexicalScope
	Kind  BlockKind
	Name  string
	Stmts []Statement
}

// EventControl is @(a or posedge b), or @* when Star is set.
type EventControl struct {
	LineInfo
	Events []*EEvent
	Star   bool
}

// Assign is a blocking or non-blocking procedural assignment. Op is set
// for compound assignments (a += b has Op "+"). Delay, Event and Repeat
// describe an intra-assignment timing control.
type Assign struct {
	LineInfo
	Lval        Expr
	Rval        Expr
	NonBlocking bool
	Op          string
	Delay       Expr
	Event       *EventControl
	Repeat      Expr
}

// EventStmt is @(...) stmt. Stmt may be nil.
type EventStmt struct {
	LineInfo
	Control *EventControl
	Stmt    Statement
}

// DelayStmt is #d stmt. Stmt may be nil.
type DelayStmt struct {
	LineInfo
	Delay Expr
	Stmt  Statement
}

// Condit is if/else. Else may be nil.
type Condit struct {
	LineInfo
	Cond Expr
	Then Statement
	Else Statement
}

// CaseKind selects case, casex or casez matching.
type CaseKind int

const (
	CaseEq CaseKind = iota
	CaseX
	CaseZ
)

func (k CaseKind) String() string {
	switch k {
	case CaseX:
		return "casex"
	case CaseZ:
		return "casez"
	}
	return "case"
}

// CaseItem is one arm; a nil Exprs list is the default arm.
type CaseItem struct {
	LineInfo
	Exprs []Expr
	Stmt  Statement
}

// Case is a case statement.
type Case struct {
	LineInfo
	Kind  CaseKind
	Expr  Expr
	Items []*CaseItem
}

// For is a for loop. Decl is set when the loop declares its variable.
type For struct {
	LineInfo
	Decl *Wire
	Init Statement
	Cond Expr
	Step Statement
	Body Statement
}

// While is a while loop.
type While struct {
	LineInfo
	Cond Expr
	Body Statement
}

// DoWhile is do ... while.
type DoWhile struct {
	LineInfo
	Body Statement
	Cond Expr
}

// Repeat is repeat (n) stmt.
type Repeat struct {
	LineInfo
	Count Expr
	Body  Statement
}

// Forever is forever stmt.
type Forever struct {
	LineInfo
	Body Statement
}

// Foreach iterates over the dimensions of Array. An empty entry in Vars
// skips its dimension.
type Foreach struct {
	LineInfo
	Array Name
	Vars  []string
	Body  Statement
}

// Wait is wait (cond) stmt. Stmt may be nil.
type Wait struct {
	LineInfo
	Cond Expr
	Stmt Statement
}

// WaitFork is wait fork.
type WaitFork struct {
	LineInfo
}

// Trigger is -> ev.
type Trigger struct {
	LineInfo
	Event Name
}

// Disable is disable name.
type Disable struct {
	LineInfo
	Target Name
}

// CallTask calls a user or system task, or a function as a statement.
type CallTask struct {
	LineInfo
	Package string
	Path    Name
	Args    []Expr
}

// IsSystem reports a $name call.
func (c *CallTask) IsSystem() bool {
	return len(c.Path) == 1 && len(c.Path[0].Name) > 0 && c.Path[0].Name[0] == '$'
}

// Return leaves a task or function.
type Return struct {
	LineInfo
	Value Expr
}

// Break leaves the innermost loop.
type Break struct {
	LineInfo
}

// Continue starts the next loop iteration.
type Continue struct {
	LineInfo
}

// Null is the empty statement.
type Null struct {
	LineInfo
}

func (*Block) stmtNode()     {}
func (*Assign) stmtNode()    {}
func (*EventStmt) stmtNode() {}
func (*DelayStmt) stmtNode() {}
func (*Condit) stmtNode()    {}
func (*Case) stmtNode()      {}
func (*For) stmtNode()       {}
func (*While) stmtNode()     {}
func (*DoWhile) stmtNode()   {}
func (*Repeat) stmtNode()    {}
func (*Forever) stmtNode()   {}
func (*Foreach) stmtNode()   {}
func (*Wait) stmtNode()      {}
func (*WaitFork) stmtNode()  {}
func (*Trigger) stmtNode()   {}
func (*Disable) stmtNode()   {}
func (*CallTask) stmtNode()  {}
func (*Return) stmtNode()    {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Null) stmtNode()      {}

// ProcessKind is the kind of a behavioral process.
type ProcessKind int

const (
	ProcInitial ProcessKind = iota
	ProcAlways
	ProcAlwaysComb
	ProcAlwaysFF
	ProcAlwaysLatch
	ProcFinal
)

func (k ProcessKind) String() string {
	switch k {
	case ProcAlways:
		return "always"
	case ProcAlwaysComb:
		return "always_comb"
	case ProcAlwaysFF:
		return "always_ff"
	case ProcAlwaysLatch:
		return "always_latch"
	case ProcFinal:
		return "final"
	}
	return "initial"
}

// Process is an initial/always/final block.
type Process struct {
	LineInfo
	Kind       ProcessKind
	LexicalPos int
	Body       Statement
	Attributes map[string]Expr
}

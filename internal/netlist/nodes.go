package netlist

import (
	"martianoff/velab/internal/verinum"
)

// NodeKind enumerates structural device kinds.
type NodeKind int

const (
	NodeConst NodeKind = iota
	NodeLogic
	NodePartSelect
	NodeConcat
	NodeReplicate
	NodeExtend
	NodeArith
	NodeCompare
	NodeReduce
	NodeUnary
	NodeMux
	NodeBufz
	NodeTran
	NodePull
	NodeUDP
	NodeEvProbe
	NodeCast
	NodeSubstitute
	NodeUFunc
	NodeSFunc
)

var nodeKindNames = []string{
	"const", "logic", "part_select", "concat", "replicate", "extend", "arith",
	"compare", "reduce", "unary", "mux", "bufz", "tran", "pull", "udp", "evprobe",
	"cast", "substitute", "ufunc", "sfunc",
}

func (k NodeKind) String() string { return nodeKindNames[k] }

// Node is a structural device.
type Node interface {
	Object
	Kind() NodeKind
	Scope() ScopeID
	Loc() LineInfo
	// Width is the width of the node's primary output or data path.
	Width() int64
	Delays() []Expr
	SetDelays(d []Expr)
	SetLoc(li LineInfo)
}

type nodeBase struct {
	LineInfo
	name   string
	scope  ScopeID
	pins   []*Link
	width  int64
	delays []Expr
}

func (n *nodeBase) init(self Object, scope ScopeID, name string, width int64, pins int) {
	n.name, n.scope, n.width = name, scope, width
	n.pins = newLinks(self, pins, PinInput)
}

func (n *nodeBase) Name() string       { return n.name }
func (n *nodeBase) Scope() ScopeID     { return n.scope }
func (n *nodeBase) Pin(i int) *Link    { return n.pins[i] }
func (n *nodeBase) PinCount() int      { return len(n.pins) }
func (n *nodeBase) Width() int64       { return n.width }
func (n *nodeBase) Delays() []Expr     { return n.delays }
func (n *nodeBase) SetDelays(d []Expr) { n.delays = d }
func (n *nodeBase) SetLoc(li LineInfo) { n.LineInfo = li }
func (n *nodeBase) output(i int)       { n.pins[i].dir = PinOutput }
func (n *nodeBase) passive(i int)      { n.pins[i].dir = PinPassive }

// Const drives a constant value on pin 0. A real constant has IsReal
// set and a nil Value.
type Const struct {
	nodeBase
	Value  *verinum.Verinum
	Real   float64
	IsReal bool
}

// NewConst builds a constant driver.
func NewConst(scope ScopeID, name string, v *verinum.Verinum) *Const {
	n := &Const{Value: v}
	n.init(n, scope, name, int64(v.Width()), 1)
	n.output(0)
	return n
}

// NewRealConstNode builds a real constant driver.
func NewRealConstNode(scope ScopeID, name string, v float64) *Const {
	n := &Const{Real: v, IsReal: true}
	n.init(n, scope, name, 1, 1)
	n.output(0)
	return n
}

func (*Const) Kind() NodeKind { return NodeConst }

// LogicType names a primitive gate function.
type LogicType int

const (
	LogicAnd LogicType = iota
	LogicNand
	LogicOr
	LogicNor
	LogicXor
	LogicXnor
	LogicBuf
	LogicNot
	LogicBufif0
	LogicBufif1
	LogicNotif0
	LogicNotif1
)

var logicNames = []string{"and", "nand", "or", "nor", "xor", "xnor", "buf", "not", "bufif0", "bufif1", "notif0", "notif1"}

func (t LogicType) String() string { return logicNames[t] }

// Logic is a primitive gate; pin 0 is the output, pins 1..n the inputs.
type Logic struct {
	nodeBase
	Gate LogicType
}

// NewLogic builds a gate with the given number of inputs.
func NewLogic(scope ScopeID, name string, gate LogicType, inputs int, width int64) *Logic {
	n := &Logic{Gate: gate}
	n.init(n, scope, name, width, inputs+1)
	n.output(0)
	return n
}

func (*Logic) Kind() NodeKind { return NodeLogic }

// PartDir is the data direction of a part select.
type PartDir int

const (
	PartVP PartDir = iota // vector in, part out
	PartPV                // part in, placed into vector
	PartBI                // bidirectional
)

func (d PartDir) String() string {
	switch d {
	case PartPV:
		return "pv"
	case PartBI:
		return "bi"
	}
	return "vp"
}

// PartSelect connects part [Base+Width()-1:Base] of a vector. Pin 0 is
// the part side and pin 1 the vector side.
type PartSelect struct {
	nodeBase
	Dir         PartDir
	Base        int64
	VectorWidth int64
}

// NewPartSelect builds a part select of width bits at base.
func NewPartSelect(scope ScopeID, name string, vectorWidth, base, width int64, dir PartDir) *PartSelect {
	n := &PartSelect{Dir: dir, Base: base, VectorWidth: vectorWidth}
	n.init(n, scope, name, width, 2)
	switch dir {
	case PartVP:
		n.output(0)
	case PartPV:
		n.output(1)
	default:
		n.passive(0)
		n.passive(1)
	}
	return n
}

func (*PartSelect) Kind() NodeKind { return NodePartSelect }

// Concat joins inputs; pin 1 is the least significant part.
type Concat struct {
	nodeBase
	Widths []int64
}

// NewConcat builds a concatenation of parts, least significant first.
func NewConcat(scope ScopeID, name string, widths []int64) *Concat {
	var total int64
	for _, w := range widths {
		total += w
	}
	n := &Concat{Widths: widths}
	n.init(n, scope, name, total, len(widths)+1)
	n.output(0)
	return n
}

func (*Concat) Kind() NodeKind { return NodeConcat }

// Replicate repeats pin 1 Count times on pin 0.
type Replicate struct {
	nodeBase
	Count int64
}

// NewReplicate builds a replication node.
func NewReplicate(scope ScopeID, name string, inWidth, count int64) *Replicate {
	n := &Replicate{Count: count}
	n.init(n, scope, name, inWidth*count, 2)
	n.output(0)
	return n
}

func (*Replicate) Kind() NodeKind { return NodeReplicate }

// Extend pads pin 1 to Width() on pin 0, replicating the sign bit when
// Signed is set and zero filling otherwise.
type Extend struct {
	nodeBase
	Signed  bool
	InWidth int64
}

// NewExtend builds a pad node.
func NewExtend(scope ScopeID, name string, inWidth, outWidth int64, signed bool) *Extend {
	n := &Extend{Signed: signed, InWidth: inWidth}
	n.init(n, scope, name, outWidth, 2)
	n.output(0)
	return n
}

func (*Extend) Kind() NodeKind { return NodeExtend }

// Arith is a binary arithmetic or shift operator: pin 0 = pin 1 Op pin 2.
type Arith struct {
	nodeBase
	Op     string
	Signed bool
}

// NewArith builds an arithmetic node.
func NewArith(scope ScopeID, name, op string, width int64, signed bool) *Arith {
	n := &Arith{Op: op, Signed: signed}
	n.init(n, scope, name, width, 3)
	n.output(0)
	return n
}

func (*Arith) Kind() NodeKind { return NodeArith }

// Compare is a relational or equality operator with a 1-bit result.
type Compare struct {
	nodeBase
	Op           string
	Signed       bool
	OperandWidth int64
}

// NewCompare builds a comparator.
func NewCompare(scope ScopeID, name, op string, operandWidth int64, signed bool) *Compare {
	n := &Compare{Op: op, Signed: signed, OperandWidth: operandWidth}
	n.init(n, scope, name, 1, 3)
	n.output(0)
	return n
}

func (*Compare) Kind() NodeKind { return NodeCompare }

// Reduce is a reduction operator with a 1-bit result.
type Reduce struct {
	nodeBase
	Op      string
	InWidth int64
}

// NewReduce builds a reduction node.
func NewReduce(scope ScopeID, name, op string, inWidth int64) *Reduce {
	n := &Reduce{Op: op, InWidth: inWidth}
	n.init(n, scope, name, 1, 2)
	n.output(0)
	return n
}

func (*Reduce) Kind() NodeKind { return NodeReduce }

// Unary is negation or logical not.
type Unary struct {
	nodeBase
	Op string
}

// NewUnaryNode builds a unary operator node.
func NewUnaryNode(scope ScopeID, name, op string, width int64) *Unary {
	n := &Unary{Op: op}
	n.init(n, scope, name, width, 2)
	n.output(0)
	return n
}

func (*Unary) Kind() NodeKind { return NodeUnary }

// Mux selects pin 2 when pin 3 is true, else pin 1.
type Mux struct {
	nodeBase
	Signed bool
}

// NewMux builds a 2-to-1 multiplexer.
func NewMux(scope ScopeID, name string, width int64, signed bool) *Mux {
	n := &Mux{Signed: signed}
	n.init(n, scope, name, width, 4)
	n.output(0)
	return n
}

func (*Mux) Kind() NodeKind { return NodeMux }

// Bufz passes pin 1 to pin 0 and isolates the two sides. It carries
// non-default drive strengths and delays of continuous assignments.
type Bufz struct {
	nodeBase
	Isolating bool
}

// NewBufz builds a buffer.
func NewBufz(scope ScopeID, name string, width int64) *Bufz {
	n := &Bufz{}
	n.init(n, scope, name, width, 2)
	n.output(0)
	return n
}

func (*Bufz) Kind() NodeKind { return NodeBufz }

// TranType names a bidirectional switch.
type TranType int

const (
	TranTran TranType = iota
	TranRtran
	TranTranif0
	TranTranif1
	TranVP
)

var tranNames = []string{"tran", "rtran", "tranif0", "tranif1", "tran_vp"}

func (t TranType) String() string { return tranNames[t] }

// Tran joins pins 0 and 1 bidirectionally; pin 2 enables the
// conditional forms. TranVP connects a part of the vector on pin 0 to
// pin 1 at Offset.
type Tran struct {
	nodeBase
	Type        TranType
	VectorWidth int64
	Offset      int64
}

// NewTran builds a switch.
func NewTran(scope ScopeID, name string, typ TranType, width int64) *Tran {
	n := &Tran{Type: typ, VectorWidth: width}
	pins := 2
	if typ == TranTranif0 || typ == TranTranif1 {
		pins = 3
	}
	n.init(n, scope, name, width, pins)
	n.passive(0)
	n.passive(1)
	return n
}

// NewTranVP builds a bidirectional part select.
func NewTranVP(scope ScopeID, name string, vectorWidth, offset, width int64) *Tran {
	n := &Tran{Type: TranVP, VectorWidth: vectorWidth, Offset: offset}
	n.init(n, scope, name, width, 2)
	n.passive(0)
	n.passive(1)
	return n
}

func (*Tran) Kind() NodeKind { return NodeTran }

// Pull drives a constant 0 or 1 at pull or supply strength.
type Pull struct {
	nodeBase
	Value verinum.Bit
}

// NewPull builds a pull device driving value with strength.
func NewPull(scope ScopeID, name string, value verinum.Bit, width int64, str Strength) *Pull {
	n := &Pull{Value: value}
	n.init(n, scope, name, width, 1)
	n.output(0)
	n.pins[0].SetDrive(str, str)
	return n
}

func (*Pull) Kind() NodeKind { return NodePull }

// UDPDef is an elaborated user defined primitive table.
type UDPDef struct {
	Name       string
	Ports      []string
	Sequential bool
	Table      []string
	Initial    verinum.Bit
}

// UDP instantiates a primitive table; pin 0 is the output.
type UDP struct {
	nodeBase
	Def *UDPDef
}

// NewUDP builds a primitive instance.
func NewUDP(scope ScopeID, name string, def *UDPDef) *UDP {
	n := &UDP{Def: def}
	n.init(n, scope, name, 1, len(def.Ports))
	n.output(0)
	return n
}

func (*UDP) Kind() NodeKind { return NodeUDP }

// Edge is the edge a probe is sensitive to.
type Edge int

const (
	EdgeAny Edge = iota
	EdgePos
	EdgeNeg
	EdgeBoth
)

var edgeNames = []string{"anyedge", "posedge", "negedge", "edge"}

func (e Edge) String() string { return edgeNames[e] }

// Probe watches its pins and triggers Event on the matching edge.
type Probe struct {
	nodeBase
	Edge  Edge
	Event *Event
}

// NewProbe builds a probe with one pin per watched nexus and attaches it
// to ev.
func NewProbe(scope ScopeID, name string, ev *Event, edge Edge, pins int) *Probe {
	n := &Probe{Edge: edge, Event: ev}
	n.init(n, scope, name, int64(pins), pins)
	ev.AddProbe(n)
	return n
}

func (*Probe) Kind() NodeKind { return NodeEvProbe }

// CastKind names a value conversion.
type CastKind int

const (
	CastIntToReal CastKind = iota
	CastRealToInt
	CastTo2State
)

var castNames = []string{"int_to_real", "real_to_int", "to_2state"}

func (k CastKind) String() string { return castNames[k] }

// Cast converts pin 1 to pin 0.
type Cast struct {
	nodeBase
	Conv   CastKind
	Signed bool
}

// NewCast builds a conversion node; width is the output width (1 for
// real outputs).
func NewCast(scope ScopeID, name string, conv CastKind, width int64, signed bool) *Cast {
	n := &Cast{Conv: conv, Signed: signed}
	n.init(n, scope, name, width, 2)
	n.output(0)
	return n
}

func (*Cast) Kind() NodeKind { return NodeCast }

// Substitute replaces bits [Base+PartWidth-1:Base] of the vector on pin 1
// with pin 2 and drives the result on pin 0.
type Substitute struct {
	nodeBase
	Base      int64
	PartWidth int64
}

// NewSubstitute builds a substitution node.
func NewSubstitute(scope ScopeID, name string, width, base, partWidth int64) *Substitute {
	n := &Substitute{Base: base, PartWidth: partWidth}
	n.init(n, scope, name, width, 3)
	n.output(0)
	return n
}

func (*Substitute) Kind() NodeKind { return NodeSubstitute }

// UFunc evaluates a user function continuously.
type UFunc struct {
	nodeBase
	Def ScopeID
}

// NewUFunc builds a function node with one pin per argument.
func NewUFunc(scope ScopeID, name string, def ScopeID, width int64, args int) *UFunc {
	n := &UFunc{Def: def}
	n.init(n, scope, name, width, args+1)
	n.output(0)
	return n
}

func (*UFunc) Kind() NodeKind { return NodeUFunc }

// SFunc evaluates a system function continuously.
type SFunc struct {
	nodeBase
	Func string
}

// NewSFunc builds a system function node.
func NewSFunc(scope ScopeID, name, fn string, width int64, args int) *SFunc {
	n := &SFunc{Func: fn}
	n.init(n, scope, name, width, args+1)
	n.output(0)
	return n
}

func (*SFunc) Kind() NodeKind { return NodeSFunc }

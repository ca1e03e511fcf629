package pform

// Gate is a structural module item.
type Gate interface {
	Node
	gateNode()
}

// Strength is a drive strength.
type Strength int

const (
	StrengthHighZ Strength = iota
	StrengthWeak
	StrengthPull
	StrengthStrong
	StrengthSupply
)

var strengthNames = []string{"highz", "weak", "pull", "strong", "supply"}

func (s Strength) String() string { return strengthNames[s] }

// ParseStrength maps a strength keyword without its 0/1 suffix.
func ParseStrength(s string) (Strength, bool) {
	for i, n := range strengthNames {
		if n == s {
			return Strength(i), true
		}
	}
	return StrengthStrong, false
}

// Drive is a (strength0, strength1) pair.
type Drive struct {
	Str0 Strength
	Str1 Strength
}

// DefaultDrive is (strong0, strong1).
var DefaultDrive = Drive{Str0: StrengthStrong, Str1: StrengthStrong}

// IsDefault reports (strong0, strong1).
func (d Drive) IsDefault() bool { return d == DefaultDrive }

// GAssign is a continuous assignment.
type GAssign struct {
	LineInfo
	LexicalPos int
	Lval       Expr
	Rval       Expr
	Delays     []Expr
	Drive      Drive
}

// GateType names a builtin primitive.
type GateType int

const (
	GateAnd GateType = iota
	GateNand
	GateOr
	GateNor
	GateXor
	GateXnor
	GateBuf
	GateNot
	GateBufif0
	GateBufif1
	GateNotif0
	GateNotif1
	GateTran
	GateRtran
	GateTranif0
	GateTranif1
	GatePullup
	GatePulldown
)

var gateTypeNames = []string{
	"and", "nand", "or", "nor", "xor", "xnor", "buf", "not",
	"bufif0", "bufif1", "notif0", "notif1",
	"tran", "rtran", "tranif0", "tranif1", "pullup", "pulldown",
}

func (g GateType) String() string { return gateTypeNames[g] }

// ParseGateType maps a primitive keyword.
func ParseGateType(s string) (GateType, bool) {
	for i, n := range gateTypeNames {
		if n == s {
			return GateType(i), true
		}
	}
	return GateAnd, false
}

// GBuiltin instantiates a builtin primitive, optionally as an array.
type GBuiltin struct {
	LineInfo
	LexicalPos int
	Type       GateType
	Name       string
	Range      *Range
	Pins       []Expr
	Delays     []Expr
	Drive      Drive
}

// ParamValue is one instance parameter override. Type is set for a type
// parameter override.
type ParamValue struct {
	LineInfo
	Name string
	Expr Expr
	Type DataType
}

// NamedPin is .name(expr); a nil Expr is an explicit no-connect.
type NamedPin struct {
	LineInfo
	Name string
	Expr Expr
}

// GModule instantiates a module or UDP by name.
type GModule struct {
	LineInfo
	LexicalPos  int
	Type        string
	Name        string
	Ranges      []*Range
	ParamsPos   []*ParamValue
	ParamsNamed []*ParamValue
	PinsPos     []Expr
	PinsNamed   []*NamedPin
	Wildcard    bool
	Delays      []Expr
	Drive       Drive
}

func (*GAssign) gateNode()  {}
func (*GBuiltin) gateNode() {}
func (*GModule) gateNode()  {}

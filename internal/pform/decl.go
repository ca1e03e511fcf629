package pform

// NetType is the declared kind of a wire or variable.
type NetType int

const (
	NetNone NetType = iota
	NetImplicit
	NetImplicitReg
	NetWire
	NetTri
	NetTri0
	NetTri1
	NetSupply0
	NetSupply1
	NetWand
	NetTriand
	NetWor
	NetTrior
	NetReg
	NetUWire
)

var netTypeNames = map[NetType]string{
	NetNone:        "none",
	NetImplicit:    "implicit",
	NetImplicitReg: "implicit_reg",
	NetWire:        "wire",
	NetTri:         "tri",
	NetTri0:        "tri0",
	NetTri1:        "tri1",
	NetSupply0:     "supply0",
	NetSupply1:     "supply1",
	NetWand:        "wand",
	NetTriand:      "triand",
	NetWor:         "wor",
	NetTrior:       "trior",
	NetReg:         "reg",
	NetUWire:       "uwire",
}

func (t NetType) String() string { return netTypeNames[t] }

// ParseNetType maps a keyword to its NetType.
func ParseNetType(s string) (NetType, bool) {
	for k, v := range netTypeNames {
		if v == s {
			return k, true
		}
	}
	return NetNone, false
}

// PortType is the direction of a port declaration.
type PortType int

const (
	NotAPort PortType = iota
	PortInput
	PortOutput
	PortInout
	PortRef
)

func (p PortType) String() string {
	switch p {
	case PortInput:
		return "input"
	case PortOutput:
		return "output"
	case PortInout:
		return "inout"
	case PortRef:
		return "ref"
	}
	return "none"
}

// Wire is a net, variable or port declaration. A port declared in two
// statements (input [3:0] a; wire [3:0] a;) keeps both sets of packed
// dimensions so the signal elaborator can reconcile them.
type Wire struct {
	LineInfo
	Name         string
	Kind         NetType
	Port         PortType
	PortDeclared bool
	NetDeclared  bool
	PortRange    []*Range
	NetRange     []*Range
	Signed       bool
	Type         DataType
	Unpacked     []*Range
	Init         Expr
	Const        bool
	Discipline   string
	Attributes   map[string]Expr
	LexicalPos   int
}

// Parameter is a parameter, localparam or type parameter.
type Parameter struct {
	LineInfo
	Name        string
	Expr        Expr
	Type        DataType
	Local       bool
	Overridable bool
	IsType      bool
	TypeValue   DataType
	LexicalPos  int
}

// Defparam overrides the parameter at Path relative to the declaring scope.
type Defparam struct {
	LineInfo
	Path  Name
	Value Expr
}

// Typedef binds a name to a type.
type Typedef struct {
	LineInfo
	Name string
	Type DataType
}

// NamedEvent declares an event.
type NamedEvent struct {
	LineInfo
	Name       string
	LexicalPos int
}

// Import is import pkg::name or import pkg::*.
type Import struct {
	LineInfo
	Package string
	Name    string
}

// Wildcard reports import pkg::*.
func (i *Import) Wildcard() bool { return i.Name == "*" || i.Name == "" }

// LexicalScope holds the declarations every scope kind may carry.
type LexicalScope struct {
	Parameters []*Parameter
	Wires      []*Wire
	Typedefs   []*Typedef
	Events     []*NamedEvent
	Genvars    []string
	Tasks      []*Task
	Functions  []*Function
	Classes    []*Class
	Imports    []*Import
}

// Wire looks up a declared wire by name.
func (s *LexicalScope) Wire(name string) *Wire {
	for _, w := range s.Wires {
		if w.Name == name {
			return w
		}
	}
	return nil
}

// Parameter looks up a declared parameter by name.
func (s *LexicalScope) Parameter(name string) *Parameter {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Function looks up a declared function by name.
func (s *LexicalScope) Function(name string) *Function {
	for _, f := range s.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Task looks up a declared task by name.
func (s *LexicalScope) Task(name string) *Task {
	for _, t := range s.Tasks {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// ModuleItems holds the items that only modules and generate blocks carry.
type ModuleItems struct {
	Defparams []*Defparam
	Behaviors []*Process
	Gates     []Gate
	Generates []Generate
}

// Task is a task declaration. Ports are ordered.
type Task struct {
	LineInfo
	LexicalScope
	Name      string
	Ports     []*Wire
	Body      Statement
	Automatic bool
}

// Function is a function declaration. A nil Return is void.
type Function struct {
	Task
	Return DataType
}

// IsVoid reports a void function.
func (f *Function) IsVoid() bool {
	if f.Return == nil {
		return true
	}
	_, ok := f.Return.(*VoidType)
	return ok
}

// ClassProperty is a class data member.
type ClassProperty struct {
	LineInfo
	Name   string
	Type   DataType
	Static bool
	Const  bool
	Local  bool
	Init   Expr
}

// Class is a class declaration; methods live in the embedded scope.
type Class struct {
	LineInfo
	LexicalScope
	Name       string
	Extends    string
	Virtual    bool
	Properties []*ClassProperty
}

// Package is a package, or the compilation unit when Name is empty.
type Package struct {
	LineInfo
	LexicalScope
	Name string
}

// DriveKind is the `unconnected_drive directive in effect for a module.
type DriveKind int

const (
	DriveNone DriveKind = iota
	DrivePull0
	DrivePull1
)

// Port is a module port. Exprs holds the internal nets making up the
// port; a port with several is a concatenation. A nil Port in
// Module.Ports is an empty positional port.
type Port struct {
	LineInfo
	Name  string
	Exprs []*EIdent
}

// Module is a module definition.
type Module struct {
	LineInfo
	LexicalScope
	ModuleItems
	Name             string
	Ports            []*Port
	UnconnectedDrive DriveKind
	IsCell           bool
	Attributes       map[string]Expr
	Specify          []*SpecifyPath
}

// SpecifyPath is a module path delay such as (a, b *> y) = 3. A port
// named in To is a delay path destination.
type SpecifyPath struct {
	LineInfo
	From   []string
	To     []string
	Delays []Expr
}

// PortIndex returns the position of the named port, or -1.
func (m *Module) PortIndex(name string) int {
	for i, p := range m.Ports {
		if p != nil && p.Name == name {
			return i
		}
	}
	return -1
}

// UDP is a user defined primitive. Ports[0] is the output. Table rows use
// the "inputs:output" or "inputs:state:output" layout.
type UDP struct {
	LineInfo
	Name       string
	Ports      []string
	Sequential bool
	Table      []string
	Initial    Expr
}

// Design is the whole parsed input.
type Design struct {
	Unit     *Package
	Packages []*Package
	Modules  map[string]*Module
	Order    []string
	UDPs     map[string]*UDP
}

// NewDesign returns an empty design with an empty compilation unit.
func NewDesign() *Design {
	return &Design{
		Unit:    &Package{},
		Modules: make(map[string]*Module),
		UDPs:    make(map[string]*UDP),
	}
}

// AddModule registers a module, keeping declaration order.
func (d *Design) AddModule(m *Module) {
	if _, ok := d.Modules[m.Name]; !ok {
		d.Order = append(d.Order, m.Name)
	}
	d.Modules[m.Name] = m
}

// Package looks up a package by name.
func (d *Design) Package(name string) *Package {
	for _, p := range d.Packages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

package pform

import (
	"fmt"
	"strconv"
	"strings"

	"martianoff/velab/internal/verinum"
)

// Expr is an unelaborated expression.
type Expr interface {
	Node
	String() string
	exprNode()
}

// ENumber is a sized or unsized integer literal.
type ENumber struct {
	LineInfo
	Value *verinum.Verinum
}

// EReal is a real literal.
type EReal struct {
	LineInfo
	Value float64
}

// EString is a string literal.
type EString struct {
	LineInfo
	Value string
}

// EIdent references a signal, parameter, genvar, event or scope by a
// possibly hierarchical name. Package is set for pkg::name references.
type EIdent struct {
	LineInfo
	Package string
	Path    Name
}

// EUnary applies a prefix operator: - + ~ ! & | ^ ~& ~| ~^.
type EUnary struct {
	LineInfo
	Op      string
	Operand Expr
}

// EBinary applies an infix operator.
type EBinary struct {
	LineInfo
	Op    string
	Left  Expr
	Right Expr
}

// ETernary is cond ? t : f.
type ETernary struct {
	LineInfo
	Cond  Expr
	True  Expr
	False Expr
}

// EConcat is {a, b} or, with Repeat set, {n{a, b}}.
type EConcat struct {
	LineInfo
	Repeat Expr
	Parms  []Expr
}

// ECall calls a user function.
type ECall struct {
	LineInfo
	Package string
	Path    Name
	Args    []Expr
}

// ESysCall calls a system function such as $clog2.
type ESysCall struct {
	LineInfo
	Name string
	Args []Expr
}

// EdgeKind is the edge of an event expression.
type EdgeKind int

const (
	EdgeAny EdgeKind = iota
	EdgePos
	EdgeNeg
	EdgeBoth
)

func (e EdgeKind) String() string {
	switch e {
	case EdgePos:
		return "posedge"
	case EdgeNeg:
		return "negedge"
	case EdgeBoth:
		return "edge"
	}
	return "anyedge"
}

// EEvent is one term of an event control.
type EEvent struct {
	LineInfo
	Edge EdgeKind
	Expr Expr
}

// ETypeRef wraps a data type where an expression is expected, as in $bits(T).
type ETypeRef struct {
	LineInfo
	Type DataType
}

// ECast is T'(expr), N'(expr), signed'(expr) or unsigned'(expr).
type ECast struct {
	LineInfo
	Type   DataType
	Width  Expr
	Signed *bool
	Expr   Expr
}

// ENull is the null class handle.
type ENull struct {
	LineInfo
}

func (*ENumber) exprNode()  {}
func (*EReal) exprNode()    {}
func (*EString) exprNode()  {}
func (*EIdent) exprNode()   {}
func (*EUnary) exprNode()   {}
func (*EBinary) exprNode()  {}
func (*ETernary) exprNode() {}
func (*EConcat) exprNode()  {}
func (*ECall) exprNode()    {}
func (*ESysCall) exprNode() {}
func (*EEvent) exprNode()   {}
func (*ETypeRef) exprNode() {}
func (*ECast) exprNode()    {}
func (*ENull) exprNode()    {}

func (e *ENumber) String() string { return e.Value.Text() }
func (e *EReal) String() string   { return strconv.FormatFloat(e.Value, 'g', -1, 64) }
func (e *EString) String() string { return strconv.Quote(e.Value) }

func (e *EIdent) String() string {
	if e.Package != "" {
		return e.Package + "::" + e.Path.String()
	}
	return e.Path.String()
}

func (e *EUnary) String() string { return e.Op + "(" + e.Operand.String() + ")" }

func (e *EBinary) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}

func (e *ETernary) String() string {
	return "(" + e.Cond.String() + " ? " + e.True.String() + " : " + e.False.String() + ")"
}

func (e *EConcat) String() string {
	inner := "{" + joinExprs(e.Parms) + "}"
	if e.Repeat != nil {
		return "{" + e.Repeat.String() + inner + "}"
	}
	return inner
}

func (e *ECall) String() string {
	name := e.Path.String()
	if e.Package != "" {
		name = e.Package + "::" + name
	}
	return name + "(" + joinExprs(e.Args) + ")"
}

func (e *ESysCall) String() string { return e.Name + "(" + joinExprs(e.Args) + ")" }

func (e *EEvent) String() string {
	if e.Edge == EdgeAny {
		return e.Expr.String()
	}
	return e.Edge.String() + " " + e.Expr.String()
}

func (e *ETypeRef) String() string { return e.Type.String() }

func (e *ECast) String() string {
	switch {
	case e.Type != nil:
		return e.Type.String() + "'(" + e.Expr.String() + ")"
	case e.Width != nil:
		return e.Width.String() + "'(" + e.Expr.String() + ")"
	case e.Signed != nil && *e.Signed:
		return "signed'(" + e.Expr.String() + ")"
	}
	return "unsigned'(" + e.Expr.String() + ")"
}

func (e *ENull) String() string { return "null" }

func joinExprs(list []Expr) string {
	parts := make([]string, len(list))
	for i, p := range list {
		if p == nil {
			parts[i] = ""
			continue
		}
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// Ident builds a simple identifier expression.
func Ident(li LineInfo, name string) *EIdent {
	return &EIdent{LineInfo: li, Path: Simple(name)}
}

// Number builds an integer literal from an int64.
func Number(li LineInfo, val int64) *ENumber {
	return &ENumber{LineInfo: li, Value: verinum.Int(val)}
}

// IdentName returns the simple name of an identifier expression, or an
// error if the expression is anything more complex.
func IdentName(e Expr) (string, error) {
	id, ok := e.(*EIdent)
	if !ok || id.Package != "" || len(id.Path) != 1 || len(id.Path[0].Index) != 0 {
		return "", fmt.Errorf("%s is not a simple identifier", e)
	}
	return id.Path[0].Name, nil
}

package netlist

import (
	"fmt"
	"strconv"
	"strings"

	"martianoff/velab/internal/verinum"
)

// ExprKind enumerates elaborated expression kinds.
type ExprKind int

const (
	ExprConst ExprKind = iota
	ExprRealConst
	ExprSignal
	ExprSelect
	ExprUnary
	ExprBinary
	ExprTernary
	ExprConcat
	ExprUFunc
	ExprSFunc
	ExprEvent
	ExprCast
	ExprEnumConst
	ExprNull
	ExprScope
	ExprProperty
)

var exprKindNames = []string{
	"const", "realconst", "signal", "select", "unary", "binary", "ternary", "concat",
	"ufunc", "sfunc", "event", "cast", "enumconst", "null", "scope", "property",
}

func (k ExprKind) String() string { return exprKindNames[k] }

// Expr is an elaborated, width-determined expression.
type Expr interface {
	Kind() ExprKind
	Width() int64
	Signed() bool
	// Type is the value type: a vector for packed results, otherwise
	// real, string, class, event or void.
	Type() Type
	Loc() LineInfo
	String() string
}

type exprBase struct {
	LineInfo
	typ Type
}

func (e *exprBase) Type() Type { return e.typ }
func (e *exprBase) Signed() bool {
	return e.typ.Signed()
}
func (e *exprBase) Width() int64 {
	if w := e.typ.PackedWidth(); w >= 0 {
		return w
	}
	return 1
}

// SetLoc records the source position.
func (e *exprBase) SetLoc(li LineInfo) { e.LineInfo = li }

// IsReal reports a real-valued expression.
func IsReal(e Expr) bool { return e.Type().Base() == BaseReal }

// ConstExpr is an integer, vector or string constant.
type ConstExpr struct {
	exprBase
	Value *verinum.Verinum
}

// NewConstExpr wraps a value.
func NewConstExpr(v *verinum.Verinum) *ConstExpr {
	c := &ConstExpr{Value: v}
	c.typ = NewVector(BaseLogic, int64(v.Width()), v.Signed())
	return c
}

func (*ConstExpr) Kind() ExprKind   { return ExprConst }
func (e *ConstExpr) String() string { return e.Value.Text() }

// RealConstExpr is a real constant.
type RealConstExpr struct {
	exprBase
	Value float64
}

// NewRealConst wraps a float.
func NewRealConst(v float64) *RealConstExpr {
	c := &RealConstExpr{Value: v}
	c.typ = RealValue
	return c
}

func (*RealConstExpr) Kind() ExprKind   { return ExprRealConst }
func (e *RealConstExpr) String() string { return strconv.FormatFloat(e.Value, 'g', -1, 64) }

// SignalExpr reads a signal, or one word of an array when Word is set.
// Word is the canonical word number counted from the left bound of each
// unpacked dimension; for dynamic arrays and queues it is the element
// index.
type SignalExpr struct {
	exprBase
	Sig  *Signal
	Word Expr
}

// NewSignalExpr reads sig; word selects an unpacked element.
func NewSignalExpr(sig *Signal, word Expr) *SignalExpr {
	e := &SignalExpr{Sig: sig, Word: word}
	e.typ = sig.Type()
	switch t := sig.Type().(type) {
	case *DArrayType:
		if word != nil {
			e.typ = t.Elem
		}
	case *QueueType:
		if word != nil {
			e.typ = t.Elem
		}
	}
	if sig.IsArray() && word == nil {
		e.typ = &UnpackedArrayType{Elem: sig.Type(), Dims: sig.Unpacked()}
	}
	return e
}

func (*SignalExpr) Kind() ExprKind { return ExprSignal }
func (e *SignalExpr) String() string {
	if e.Word != nil {
		return e.Sig.Name() + "[" + e.Word.String() + "]"
	}
	return e.Sig.Name()
}

// SelectExpr selects Width() bits of Expr starting at canonical bit Base.
// With a nil Base it pads or truncates Expr to Width(); padding sign
// extends when the select itself is signed.
type SelectExpr struct {
	exprBase
	Expr Expr
	Base Expr
}

// NewSelect builds a part select or pad.
func NewSelect(e Expr, base Expr, width int64, signed bool) *SelectExpr {
	s := &SelectExpr{Expr: e, Base: base}
	kind := BaseLogic
	if e.Type().Base() == BaseBool {
		kind = BaseBool
	}
	s.typ = NewVector(kind, width, signed)
	return s
}

func (*SelectExpr) Kind() ExprKind { return ExprSelect }
func (e *SelectExpr) String() string {
	if e.Base == nil {
		return fmt.Sprintf("pad%d(%s)", e.Width(), e.Expr)
	}
	return fmt.Sprintf("%s[%s +: %d]", e.Expr, e.Base, e.Width())
}

// IsPad reports a pure pad/truncate.
func (e *SelectExpr) IsPad() bool { return e.Base == nil }

// UnaryExpr applies a prefix operator.
type UnaryExpr struct {
	exprBase
	Op      string
	Operand Expr
}

// NewUnary builds a unary expression of the given result type.
func NewUnary(op string, operand Expr, typ Type) *UnaryExpr {
	u := &UnaryExpr{Op: op, Operand: operand}
	u.typ = typ
	return u
}

func (*UnaryExpr) Kind() ExprKind   { return ExprUnary }
func (e *UnaryExpr) String() string { return e.Op + "(" + e.Operand.String() + ")" }

// BinaryExpr applies an infix operator.
type BinaryExpr struct {
	exprBase
	Op    string
	Left  Expr
	Right Expr
}

// NewBinary builds a binary expression of the given result type.
func NewBinary(op string, l, r Expr, typ Type) *BinaryExpr {
	b := &BinaryExpr{Op: op, Left: l, Right: r}
	b.typ = typ
	return b
}

func (*BinaryExpr) Kind() ExprKind { return ExprBinary }
func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op + " " + e.Right.String() + ")"
}

// TernaryExpr is cond ? t : f.
type TernaryExpr struct {
	exprBase
	Cond  Expr
	True  Expr
	False Expr
}

// NewTernary builds a conditional expression.
func NewTernary(c, t, f Expr, typ Type) *TernaryExpr {
	e := &TernaryExpr{Cond: c, True: t, False: f}
	e.typ = typ
	return e
}

func (*TernaryExpr) Kind() ExprKind { return ExprTernary }
func (e *TernaryExpr) String() string {
	return "(" + e.Cond.String() + " ? " + e.True.String() + " : " + e.False.String() + ")"
}

// ConcatExpr concatenates Parms (first is most significant) Repeat times.
type ConcatExpr struct {
	exprBase
	Parms  []Expr
	Repeat int64
}

// NewConcatExpr builds a concatenation.
func NewConcatExpr(parms []Expr, repeat int64) *ConcatExpr {
	var w int64
	kind := BaseBool
	for _, p := range parms {
		w += p.Width()
		if p.Type().Base() != BaseBool {
			kind = BaseLogic
		}
	}
	c := &ConcatExpr{Parms: parms, Repeat: repeat}
	c.typ = NewVector(kind, w*repeat, false)
	return c
}

func (*ConcatExpr) Kind() ExprKind { return ExprConcat }
func (e *ConcatExpr) String() string {
	parts := make([]string, len(e.Parms))
	for i, p := range e.Parms {
		parts[i] = p.String()
	}
	s := "{" + strings.Join(parts, ", ") + "}"
	if e.Repeat != 1 {
		return fmt.Sprintf("{%d%s}", e.Repeat, s)
	}
	return s
}

// UFuncExpr calls a user function.
type UFuncExpr struct {
	exprBase
	Func   ScopeID
	Name   string
	Result *Signal
	Args   []Expr
}

// NewUFuncExpr builds a call whose value is the function's result signal.
func NewUFuncExpr(fn ScopeID, name string, result *Signal, args []Expr, typ Type) *UFuncExpr {
	e := &UFuncExpr{Func: fn, Name: name, Result: result, Args: args}
	e.typ = typ
	return e
}

func (*UFuncExpr) Kind() ExprKind   { return ExprUFunc }
func (e *UFuncExpr) String() string { return e.Name + "(" + joinExprs(e.Args) + ")" }

// SFuncExpr calls a system function at run time.
type SFuncExpr struct {
	exprBase
	Name string
	Args []Expr
}

// NewSFuncExpr builds a system function call.
func NewSFuncExpr(name string, args []Expr, typ Type) *SFuncExpr {
	e := &SFuncExpr{Name: name, Args: args}
	e.typ = typ
	return e
}

func (*SFuncExpr) Kind() ExprKind   { return ExprSFunc }
func (e *SFuncExpr) String() string { return e.Name + "(" + joinExprs(e.Args) + ")" }

// EventExpr names an event, as an argument to a system task.
type EventExpr struct {
	exprBase
	Event *Event
}

// NewEventExpr wraps an event.
func NewEventExpr(ev *Event) *EventExpr {
	e := &EventExpr{Event: ev}
	e.typ = EventValue
	return e
}

func (*EventExpr) Kind() ExprKind   { return ExprEvent }
func (e *EventExpr) String() string { return e.Event.Name() }

// CastExpr converts between real and integral or 4 and 2 state values.
type CastExpr struct {
	exprBase
	Conv CastKind
	Expr Expr
}

// NewCastExpr builds a conversion to typ.
func NewCastExpr(conv CastKind, e Expr, typ Type) *CastExpr {
	c := &CastExpr{Conv: conv, Expr: e}
	c.typ = typ
	return c
}

func (*CastExpr) Kind() ExprKind   { return ExprCast }
func (e *CastExpr) String() string { return e.Conv.String() + "(" + e.Expr.String() + ")" }

// EnumConstExpr is an enumeration literal.
type EnumConstExpr struct {
	exprBase
	Enum *EnumType
	Name *EnumName
}

// NewEnumConst wraps a literal of an enum.
func NewEnumConst(et *EnumType, name *EnumName) *EnumConstExpr {
	e := &EnumConstExpr{Enum: et, Name: name}
	e.typ = et
	return e
}

func (*EnumConstExpr) Kind() ExprKind   { return ExprEnumConst }
func (e *EnumConstExpr) String() string { return e.Name.Name }

// NullExpr is the null class handle.
type NullExpr struct {
	exprBase
}

// NewNull builds a null handle.
func NewNull() *NullExpr {
	n := &NullExpr{}
	n.typ = &ClassType{Name: "null"}
	return n
}

func (*NullExpr) Kind() ExprKind { return ExprNull }
func (*NullExpr) String() string { return "null" }

// ScopeExpr names a scope, as an argument to a system task.
type ScopeExpr struct {
	exprBase
	Scope ScopeID
	Path  string
}

// NewScopeExpr wraps a scope reference.
func NewScopeExpr(id ScopeID, path string) *ScopeExpr {
	e := &ScopeExpr{Scope: id, Path: path}
	e.typ = VoidValue
	return e
}

func (*ScopeExpr) Kind() ExprKind   { return ExprScope }
func (e *ScopeExpr) String() string { return e.Path }

// PropertyExpr reads a class property through a handle.
type PropertyExpr struct {
	exprBase
	Handle   Expr
	Property *ClassProperty
}

// NewPropertyExpr builds a property read.
func NewPropertyExpr(handle Expr, prop *ClassProperty) *PropertyExpr {
	e := &PropertyExpr{Handle: handle, Property: prop}
	e.typ = prop.Type
	return e
}

func (*PropertyExpr) Kind() ExprKind   { return ExprProperty }
func (e *PropertyExpr) String() string { return e.Handle.String() + "." + e.Property.Name }

func joinExprs(list []Expr) string {
	parts := make([]string, len(list))
	for i, a := range list {
		if a != nil {
			parts[i] = a.String()
		}
	}
	return strings.Join(parts, ", ")
}

// ConstValue returns the value of a constant expression.
func ConstValue(e Expr) (*verinum.Verinum, bool) {
	switch c := e.(type) {
	case *ConstExpr:
		return c.Value, true
	case *EnumConstExpr:
		return c.Name.Value, true
	}
	return nil, false
}

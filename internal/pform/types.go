package pform

import (
	"strings"
)

// DataType is an unelaborated data type.
type DataType interface {
	Node
	String() string
	typeNode()
}

// RangeKind distinguishes fixed, dynamic and queue dimensions.
type RangeKind int

const (
	RangeFixed   RangeKind = iota // [msb:lsb]
	RangeSize                     // [N], same as [0:N-1]
	RangeDynamic                  // []
	RangeQueue                    // [$] or [$:bound]
)

// Range is one packed or unpacked dimension. For RangeSize only Msb is
// set. For RangeQueue Lsb holds the optional bound.
type Range struct {
	LineInfo
	Kind RangeKind
	Msb  Expr
	Lsb  Expr
}

func (r *Range) String() string {
	switch r.Kind {
	case RangeSize:
		return "[" + r.Msb.String() + "]"
	case RangeDynamic:
		return "[]"
	case RangeQueue:
		if r.Lsb != nil {
			return "[$:" + r.Lsb.String() + "]"
		}
		return "[$]"
	}
	return "[" + r.Msb.String() + ":" + r.Lsb.String() + "]"
}

func rangesString(dims []*Range) string {
	var sb strings.Builder
	for _, d := range dims {
		sb.WriteString(d.String())
	}
	return sb.String()
}

// VarKind is the base of a vector type.
type VarKind int

const (
	VarLogic VarKind = iota
	VarReg
	VarBit
)

func (k VarKind) String() string {
	switch k {
	case VarReg:
		return "reg"
	case VarBit:
		return "bit"
	}
	return "logic"
}

// VectorType is logic/reg/bit with packed dimensions. Integer marks the
// "integer" keyword and Implicit a declaration that named no type at all.
type VectorType struct {
	LineInfo
	Base     VarKind
	Signed   bool
	Integer  bool
	Implicit bool
	Dims     []*Range
}

// Atom2Type is byte, shortint, int or longint.
type Atom2Type struct {
	LineInfo
	Width  int
	Signed bool
}

// RealType is real or shortreal.
type RealType struct {
	LineInfo
	Short bool
}

// StringType is the string type.
type StringType struct {
	LineInfo
}

// StructMember declares one or more members sharing a type.
type StructMember struct {
	LineInfo
	Type  DataType
	Names []string
	Init  Expr
}

// StructType is struct or union, packed or not.
type StructType struct {
	LineInfo
	Packed  bool
	Union   bool
	Signed  bool
	Members []*StructMember
}

// EnumName is one enumeration literal with an optional explicit value.
type EnumName struct {
	LineInfo
	Name  string
	Value Expr
}

// EnumType is an enumeration over a base type (int when Base is nil).
type EnumType struct {
	LineInfo
	Base  DataType
	Names []*EnumName
}

// ArrayType adds dimensions to an element type. Packed arrays of named
// types and typedef'd unpacked arrays use it.
type ArrayType struct {
	LineInfo
	Elem   DataType
	Dims   []*Range
	Packed bool
}

// TypeRef names a typedef, type parameter or class.
type TypeRef struct {
	LineInfo
	Package string
	Name    string
	Dims    []*Range
}

// EventType is the event data type.
type EventType struct {
	LineInfo
}

// VoidType is the void return type.
type VoidType struct {
	LineInfo
}

func (*VectorType) typeNode() {}
func (*Atom2Type) typeNode()  {}
func (*RealType) typeNode()   {}
func (*StringType) typeNode() {}
func (*StructType) typeNode() {}
func (*EnumType) typeNode()   {}
func (*ArrayType) typeNode()  {}
func (*TypeRef) typeNode()    {}
func (*EventType) typeNode()  {}
func (*VoidType) typeNode()   {}

func (t *VectorType) String() string {
	var sb strings.Builder
	switch {
	case t.Integer:
		sb.WriteString("integer")
	case t.Implicit:
	default:
		sb.WriteString(t.Base.String())
	}
	if t.Signed && !t.Integer {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("signed")
	}
	if len(t.Dims) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(rangesString(t.Dims))
	}
	return sb.String()
}

func (t *Atom2Type) String() string {
	name := map[int]string{8: "byte", 16: "shortint", 32: "int", 64: "longint"}[t.Width]
	if !t.Signed {
		name += " unsigned"
	}
	return name
}

func (t *RealType) String() string {
	if t.Short {
		return "shortreal"
	}
	return "real"
}

func (*StringType) String() string { return "string" }

func (t *StructType) String() string {
	var sb strings.Builder
	if t.Union {
		sb.WriteString("union")
	} else {
		sb.WriteString("struct")
	}
	if t.Packed {
		sb.WriteString(" packed")
	}
	if t.Signed {
		sb.WriteString(" signed")
	}
	sb.WriteString(" {")
	for _, m := range t.Members {
		sb.WriteString(" ")
		sb.WriteString(m.Type.String())
		sb.WriteString(" ")
		sb.WriteString(strings.Join(m.Names, ", "))
		sb.WriteString(";")
	}
	sb.WriteString(" }")
	return sb.String()
}

func (t *EnumType) String() string {
	names := make([]string, len(t.Names))
	for i, n := range t.Names {
		names[i] = n.Name
	}
	base := ""
	if t.Base != nil {
		base = " " + t.Base.String()
	}
	return "enum" + base + " {" + strings.Join(names, ", ") + "}"
}

func (t *ArrayType) String() string { return t.Elem.String() + rangesString(t.Dims) }

func (t *TypeRef) String() string {
	name := t.Name
	if t.Package != "" {
		name = t.Package + "::" + name
	}
	return name + rangesString(t.Dims)
}

func (*EventType) String() string { return "event" }
func (*VoidType) String() string  { return "void" }

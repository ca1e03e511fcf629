package netlist

import (
	"fmt"
	"strings"

	"martianoff/velab/internal/verinum"
)

// Range is an elaborated dimension. Msb is the left bound, so [0:7] is
// an ascending range.
type Range struct {
	Msb int64
	Lsb int64
}

// Width is the number of elements in the range.
func (r Range) Width() int64 {
	if r.Msb >= r.Lsb {
		return r.Msb - r.Lsb + 1
	}
	return r.Lsb - r.Msb + 1
}

// Ascending reports a [low:high] range.
func (r Range) Ascending() bool { return r.Msb < r.Lsb }

// Contains reports whether idx lies between the bounds.
func (r Range) Contains(idx int64) bool {
	if r.Msb >= r.Lsb {
		return idx <= r.Msb && idx >= r.Lsb
	}
	return idx >= r.Msb && idx <= r.Lsb
}

// Offset maps a source index to its canonical offset from the least
// significant element. It may return values outside [0, Width).
func (r Range) Offset(idx int64) int64 {
	if r.Msb >= r.Lsb {
		return idx - r.Lsb
	}
	return r.Lsb - idx
}

func (r Range) String() string { return fmt.Sprintf("[%d:%d]", r.Msb, r.Lsb) }

// RangesWidth multiplies the widths of dims.
func RangesWidth(dims []Range) int64 {
	w := int64(1)
	for _, d := range dims {
		w *= d.Width()
	}
	return w
}

func rangesString(dims []Range) string {
	var sb strings.Builder
	for _, d := range dims {
		sb.WriteString(d.String())
	}
	return sb.String()
}

// BaseKind classifies the value representation of a type.
type BaseKind int

const (
	BaseNone BaseKind = iota
	BaseLogic
	BaseBool
	BaseReal
	BaseString
	BaseClass
	BaseEvent
	BaseDArray
	BaseQueue
	BaseUArray
	BaseVoid
)

var baseKindNames = []string{"none", "logic", "bool", "real", "string", "class", "event", "darray", "queue", "uarray", "void"}

func (k BaseKind) String() string { return baseKindNames[k] }

// Type is an immutable elaborated type.
type Type interface {
	String() string
	Base() BaseKind
	// PackedWidth is the bit width of a packed type, -1 otherwise.
	PackedWidth() int64
	Signed() bool
}

// VectorType is a packed vector of logic or bool bits. A scalar has no
// dimensions.
type VectorType struct {
	Kind     BaseKind
	Dims     []Range
	IsSigned bool
	Integer  bool
	Implicit bool
}

func (t *VectorType) Base() BaseKind     { return t.Kind }
func (t *VectorType) PackedWidth() int64 { return RangesWidth(t.Dims) }
func (t *VectorType) Signed() bool       { return t.IsSigned }

func (t *VectorType) String() string {
	name := "logic"
	if t.Kind == BaseBool {
		name = "bit"
	}
	if t.IsSigned {
		name += " signed"
	}
	return name + rangesString(t.Dims)
}

// Common vector types.
var (
	LogicScalar = &VectorType{Kind: BaseLogic}
	BoolScalar  = &VectorType{Kind: BaseBool}
	IntegerType = &VectorType{Kind: BaseLogic, Dims: []Range{{31, 0}}, IsSigned: true, Integer: true}
	IntType     = &VectorType{Kind: BaseBool, Dims: []Range{{31, 0}}, IsSigned: true, Integer: true}
	RealValue   = &RealType{}
	StringValue = &StringType{}
	EventValue  = &EventType{}
	VoidValue   = &VoidType{}
)

// NewVector returns a [width-1:0] vector.
func NewVector(kind BaseKind, width int64, signed bool) *VectorType {
	if width <= 1 && !signed {
		if kind == BaseBool {
			return BoolScalar
		}
		return LogicScalar
	}
	return &VectorType{Kind: kind, Dims: []Range{{width - 1, 0}}, IsSigned: signed}
}

// RealType is real or shortreal.
type RealType struct {
	Short bool
}

func (t *RealType) Base() BaseKind     { return BaseReal }
func (t *RealType) PackedWidth() int64 { return -1 }
func (t *RealType) Signed() bool       { return true }
func (t *RealType) String() string {
	if t.Short {
		return "shortreal"
	}
	return "real"
}

// StringType is the string type.
type StringType struct{}

func (*StringType) Base() BaseKind     { return BaseString }
func (*StringType) PackedWidth() int64 { return -1 }
func (*StringType) Signed() bool       { return false }
func (*StringType) String() string     { return "string" }

// EventType is the named event type.
type EventType struct{}

func (*EventType) Base() BaseKind     { return BaseEvent }
func (*EventType) PackedWidth() int64 { return -1 }
func (*EventType) Signed() bool       { return false }
func (*EventType) String() string     { return "event" }

// VoidType is the return type of void functions.
type VoidType struct{}

func (*VoidType) Base() BaseKind     { return BaseVoid }
func (*VoidType) PackedWidth() int64 { return -1 }
func (*VoidType) Signed() bool       { return false }
func (*VoidType) String() string     { return "void" }

// PackedArrayType is a packed array of a packed element type such as a
// struct or an enum.
type PackedArrayType struct {
	Elem Type
	Dims []Range
}

func (t *PackedArrayType) Base() BaseKind { return t.Elem.Base() }
func (t *PackedArrayType) PackedWidth() int64 {
	return RangesWidth(t.Dims) * t.Elem.PackedWidth()
}
func (t *PackedArrayType) Signed() bool   { return false }
func (t *PackedArrayType) String() string { return t.Elem.String() + rangesString(t.Dims) }

// StructMember is a member with its bit offset from the struct LSB.
type StructMember struct {
	Name   string
	Type   Type
	Offset int64
	Init   *verinum.Verinum
}

// StructType is a struct or union.
type StructType struct {
	Packed   bool
	Union    bool
	IsSigned bool
	Members  []*StructMember
}

func (t *StructType) Base() BaseKind {
	if !t.Packed {
		return BaseUArray
	}
	for _, m := range t.Members {
		if m.Type.Base() == BaseLogic {
			return BaseLogic
		}
	}
	return BaseBool
}

func (t *StructType) PackedWidth() int64 {
	if !t.Packed {
		return -1
	}
	var w int64
	for _, m := range t.Members {
		mw := m.Type.PackedWidth()
		if t.Union {
			if mw > w {
				w = mw
			}
		} else {
			w += mw
		}
	}
	return w
}

func (t *StructType) Signed() bool { return t.IsSigned }

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
	sb.WriteString(" {")
	for _, m := range t.Members {
		fmt.Fprintf(&sb, " %s %s;", m.Type, m.Name)
	}
	sb.WriteString(" }")
	return sb.String()
}

// Member looks up a member by name.
func (t *StructType) Member(name string) *StructMember {
	for _, m := range t.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// EnumName is one enumeration literal.
type EnumName struct {
	Name  string
	Value *verinum.Verinum
}

// EnumType is an enumeration over a packed base type.
type EnumType struct {
	BaseType Type
	Names    []*EnumName
	Scope    ScopeID
}

func (t *EnumType) Base() BaseKind     { return t.BaseType.Base() }
func (t *EnumType) PackedWidth() int64 { return t.BaseType.PackedWidth() }
func (t *EnumType) Signed() bool       { return t.BaseType.Signed() }
func (t *EnumType) String() string {
	names := make([]string, len(t.Names))
	for i, n := range t.Names {
		names[i] = n.Name
	}
	return "enum {" + strings.Join(names, ", ") + "}"
}

// Integer reports whether the base is an integer atom type.
func (t *EnumType) Integer() bool {
	if v, ok := t.BaseType.(*VectorType); ok {
		return v.Integer
	}
	return false
}

// Lookup returns the named literal.
func (t *EnumType) Lookup(name string) *EnumName {
	for _, n := range t.Names {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// UnpackedArrayType is a fixed-size unpacked array.
type UnpackedArrayType struct {
	Elem Type
	Dims []Range
}

func (t *UnpackedArrayType) Base() BaseKind     { return BaseUArray }
func (t *UnpackedArrayType) PackedWidth() int64 { return -1 }
func (t *UnpackedArrayType) Signed() bool       { return t.Elem.Signed() }
func (t *UnpackedArrayType) String() string     { return t.Elem.String() + " $" + rangesString(t.Dims) }

// DArrayType is a dynamic array. Prefix holds fixed dimensions absorbed
// from the declaration that precede the dynamic one.
type DArrayType struct {
	Elem   Type
	Prefix []Range
}

func (t *DArrayType) Base() BaseKind     { return BaseDArray }
func (t *DArrayType) PackedWidth() int64 { return -1 }
func (t *DArrayType) Signed() bool       { return t.Elem.Signed() }
func (t *DArrayType) String() string     { return t.Elem.String() + rangesString(t.Prefix) + "[]" }

// QueueType is a queue. MaxIndex is -1 for an unbounded queue.
type QueueType struct {
	Elem     Type
	MaxIndex int64
}

func (t *QueueType) Base() BaseKind     { return BaseQueue }
func (t *QueueType) PackedWidth() int64 { return -1 }
func (t *QueueType) Signed() bool       { return t.Elem.Signed() }
func (t *QueueType) String() string {
	if t.MaxIndex >= 0 {
		return fmt.Sprintf("%s[$:%d]", t.Elem, t.MaxIndex)
	}
	return t.Elem.String() + "[$]"
}

// ClassProperty is a class data member.
type ClassProperty struct {
	Name   string
	Type   Type
	Static bool
	Const  bool
	Local  bool
}

// ClassType is an elaborated class.
type ClassType struct {
	Name       string
	Super      *ClassType
	Properties []*ClassProperty
	Scope      ScopeID
	Virtual    bool
}

func (t *ClassType) Base() BaseKind     { return BaseClass }
func (t *ClassType) PackedWidth() int64 { return -1 }
func (t *ClassType) Signed() bool       { return false }
func (t *ClassType) String() string     { return "class " + t.Name }

// Property finds a property in the class or its ancestors.
func (t *ClassType) Property(name string) (*ClassProperty, *ClassType) {
	for c := t; c != nil; c = c.Super {
		for _, p := range c.Properties {
			if p.Name == name {
				return p, c
			}
		}
	}
	return nil, nil
}

// IsPacked reports a type with a bit width.
func IsPacked(t Type) bool { return t != nil && t.PackedWidth() >= 0 }

// IsFourState reports a packed type that can hold x and z.
func IsFourState(t Type) bool { return IsPacked(t) && t.Base() == BaseLogic }

// PackedDims flattens the packed dimensions of t, outermost first. A
// struct, enum or scalar contributes a single [w-1:0] dimension when it
// is the element of a packed array.
func PackedDims(t Type) []Range {
	switch t := t.(type) {
	case *VectorType:
		return t.Dims
	case *PackedArrayType:
		dims := append([]Range(nil), t.Dims...)
		inner := PackedDims(t.Elem)
		if len(inner) == 0 {
			if w := t.Elem.PackedWidth(); w > 1 {
				inner = []Range{{w - 1, 0}}
			}
		}
		return append(dims, inner...)
	case *EnumType:
		return PackedDims(t.BaseType)
	case *StructType:
		if w := t.PackedWidth(); w > 0 {
			return []Range{{w - 1, 0}}
		}
	}
	return nil
}

// Equivalent reports type equivalence: identical structure, signedness
// and state count.
func Equivalent(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch at := a.(type) {
	case *VectorType:
		bt, ok := b.(*VectorType)
		return ok && at.Kind == bt.Kind && at.IsSigned == bt.IsSigned && at.PackedWidth() == bt.PackedWidth()
	case *RealType:
		bt, ok := b.(*RealType)
		return ok && at.Short == bt.Short
	case *StringType, *EventType, *VoidType:
		return a.Base() == b.Base()
	case *PackedArrayType:
		bt, ok := b.(*PackedArrayType)
		return ok && RangesWidth(at.Dims) == RangesWidth(bt.Dims) && Equivalent(at.Elem, bt.Elem)
	case *StructType:
		bt, ok := b.(*StructType)
		if !ok || at.Packed != bt.Packed || at.Union != bt.Union || len(at.Members) != len(bt.Members) {
			return false
		}
		for i := range at.Members {
			if !Equivalent(at.Members[i].Type, bt.Members[i].Type) {
				return false
			}
		}
		return true
	case *EnumType:
		return false
	case *UnpackedArrayType:
		bt, ok := b.(*UnpackedArrayType)
		if !ok || len(at.Dims) != len(bt.Dims) {
			return false
		}
		for i := range at.Dims {
			if at.Dims[i].Width() != bt.Dims[i].Width() {
				return false
			}
		}
		return Equivalent(at.Elem, bt.Elem)
	case *DArrayType:
		bt, ok := b.(*DArrayType)
		return ok && Equivalent(at.Elem, bt.Elem)
	case *QueueType:
		bt, ok := b.(*QueueType)
		return ok && Equivalent(at.Elem, bt.Elem)
	case *ClassType:
		return false
	}
	return false
}

// Compatible reports assignment compatibility. Packed types and reals
// interconvert; other kinds need equivalent types, except that a class
// handle accepts a derived class.
func Compatible(dst, src Type) bool {
	if dst == nil || src == nil {
		return false
	}
	if dst == src {
		return true
	}
	dp := IsPacked(dst) || dst.Base() == BaseReal
	sp := IsPacked(src) || src.Base() == BaseReal
	if dp && sp {
		if de, ok := dst.(*EnumType); ok {
			return src == de
		}
		return true
	}
	switch d := dst.(type) {
	case *StringType:
		return src.Base() == BaseString || IsPacked(src)
	case *ClassType:
		s, ok := src.(*ClassType)
		for ; ok && s != nil; s = s.Super {
			if s == d {
				return true
			}
		}
		return false
	case *DArrayType:
		switch s := src.(type) {
		case *DArrayType:
			return Equivalent(d.Elem, s.Elem)
		case *QueueType:
			return Equivalent(d.Elem, s.Elem)
		case *UnpackedArrayType:
			return len(s.Dims) == 1 && Equivalent(d.Elem, s.Elem)
		}
	case *QueueType:
		switch s := src.(type) {
		case *DArrayType:
			return Equivalent(d.Elem, s.Elem)
		case *QueueType:
			return Equivalent(d.Elem, s.Elem)
		case *UnpackedArrayType:
			return len(s.Dims) == 1 && Equivalent(d.Elem, s.Elem)
		}
	}
	return Equivalent(dst, src)
}

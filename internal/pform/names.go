package pform

import "strings"

// IndexSel tells how an Index selects from its prefix.
type IndexSel int

const (
	SelBit     IndexSel = iota // [i]
	SelPart                    // [msb:lsb]
	SelIdxUp                   // [base +: width]
	SelIdxDown                 // [base -: width]
)

// Index is one bracketed select. For SelBit only Msb is set; for the
// indexed part selects Msb is the base and Lsb the width.
type Index struct {
	Sel IndexSel
	Msb Expr
	Lsb Expr
}

func (ix *Index) String() string {
	switch ix.Sel {
	case SelPart:
		return "[" + ix.Msb.String() + ":" + ix.Lsb.String() + "]"
	case SelIdxUp:
		return "[" + ix.Msb.String() + "+:" + ix.Lsb.String() + "]"
	case SelIdxDown:
		return "[" + ix.Msb.String() + "-:" + ix.Lsb.String() + "]"
	}
	return "[" + ix.Msb.String() + "]"
}

// NameComponent is one dotted element of a hierarchical name with the
// selects that follow it.
type NameComponent struct {
	Name  string
	Index []*Index
}

func (c NameComponent) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	for _, ix := range c.Index {
		sb.WriteString(ix.String())
	}
	return sb.String()
}

// Name is a hierarchical path like a.b[2].c[7:0].
type Name []NameComponent

func (n Name) String() string {
	parts := make([]string, len(n))
	for i, c := range n {
		parts[i] = c.String()
	}
	return strings.Join(parts, ".")
}

// Last returns the final component.
func (n Name) Last() NameComponent {
	return n[len(n)-1]
}

// Prefix returns all but the final component.
func (n Name) Prefix() Name {
	return n[:len(n)-1]
}

// Simple makes a one-component name without selects.
func Simple(name string) Name {
	return Name{{Name: name}}
}

// HasIndices reports whether any component carries a select.
func (n Name) HasIndices() bool {
	for _, c := range n {
		if len(c.Index) > 0 {
			return true
		}
	}
	return false
}

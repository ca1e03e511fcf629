package pform

import "fmt"

// LineInfo locates a construct in its source file.
type LineInfo struct {
	File string
	Line int
}

// FileLine returns the source position.
func (l LineInfo) FileLine() (string, int) { return l.File, l.Line }

// Pos returns the LineInfo itself; embedding structs inherit it.
func (l LineInfo) Pos() LineInfo { return l }

func (l LineInfo) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Node is any located syntax element.
type Node interface {
	FileLine() (string, int)
	Pos() LineInfo
}

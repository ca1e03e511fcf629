package netlist

import "fmt"

// ScopeID is a handle into the design's scope arena. Zero is no scope.
type ScopeID uint32

// NoScope is the zero handle.
const NoScope ScopeID = 0

// IsValid reports whether the handle refers to a scope.
func (id ScopeID) IsValid() bool { return id != NoScope }

func (id ScopeID) String() string { return fmt.Sprintf("scope#%d", uint32(id)) }

// LineInfo is a source position carried by netlist objects.
type LineInfo struct {
	File string
	Line int
}

// FileLine returns the source position.
func (l LineInfo) FileLine() (string, int) { return l.File, l.Line }

// Loc returns the LineInfo; embedding types inherit it.
func (l LineInfo) Loc() LineInfo { return l }

func (l LineInfo) String() string { return fmt.Sprintf("%s:%d", l.File, l.Line) }

package pform

// Generate is a generate construct inside a module or generate block.
type Generate interface {
	Node
	generateNode()
	// Number is the 1-based position of the construct among the generate
	// constructs of its enclosing scope; unnamed blocks are called
	// genblk<Number>.
	Number() int
}

// GenerateBlock is a generate region scope. It is also a Generate when it
// appears as a bare named block.
type GenerateBlock struct {
	LineInfo
	LexicalScope
	ModuleItems
	Name       string
	Ordinal    int
	LexicalPos int
	// Nested is set when the branch is a bare conditional construct with
	// no begin/end; it is elaborated directly without an extra scope.
	Nested Generate
}

// GenerateFor is a loop generate scheme.
type GenerateFor struct {
	LineInfo
	Var        string
	Init       Expr
	Cond       Expr
	Step       Expr
	Block      *GenerateBlock
	Ordinal    int
	LexicalPos int
}

// GenerateIf is a conditional generate scheme. Else may be nil.
type GenerateIf struct {
	LineInfo
	Cond       Expr
	Then       *GenerateBlock
	Else       *GenerateBlock
	Ordinal    int
	LexicalPos int
}

// GenerateCaseItem is one arm; nil Exprs is default.
type GenerateCaseItem struct {
	LineInfo
	Exprs []Expr
	Block *GenerateBlock
}

// GenerateCase is a case generate scheme.
type GenerateCase struct {
	LineInfo
	Expr       Expr
	Items      []*GenerateCaseItem
	Ordinal    int
	LexicalPos int
}

func (*GenerateBlock) generateNode() {}
func (*GenerateFor) generateNode()   {}
func (*GenerateIf) generateNode()    {}
func (*GenerateCase) generateNode()  {}

func (g *GenerateBlock) Number() int { return g.Ordinal }
func (g *GenerateFor) Number() int   { return g.Ordinal }
func (g *GenerateIf) Number() int    { return g.Ordinal }
func (g *GenerateCase) Number() int  { return g.Ordinal }

// Position returns the lexical position of a generate construct.
func Position(g Generate) int {
	switch g := g.(type) {
	case *GenerateBlock:
		return g.LexicalPos
	case *GenerateFor:
		return g.LexicalPos
	case *GenerateIf:
		return g.LexicalPos
	case *GenerateCase:
		return g.LexicalPos
	}
	return 0
}

package netlist

// SignalKind is the elaborated kind of a net or variable.
type SignalKind int

const (
	SigNone SignalKind = iota
	SigReg
	SigWire
	SigTri
	SigTri0
	SigTri1
	SigWand
	SigTriand
	SigWor
	SigTrior
	SigUWire
	SigUnresolvedWire
)

var signalKindNames = []string{"none", "reg", "wire", "tri", "tri0", "tri1", "wand", "triand", "wor", "trior", "uwire", "unresolved_wire"}

func (k SignalKind) String() string { return signalKindNames[k] }

// IsNet reports a kind that is driven structurally.
func (k SignalKind) IsNet() bool { return k != SigReg && k != SigNone }

// PortType is the direction of a port signal.
type PortType int

const (
	NotAPort PortType = iota
	PortInput
	PortOutput
	PortInout
	PortRef
)

var portTypeNames = []string{"none", "input", "output", "inout", "ref"}

func (p PortType) String() string { return portTypeNames[p] }

// Signal is an elaborated net or variable. It owns one pin per unpacked
// word.
type Signal struct {
	LineInfo
	name       string
	scope      ScopeID
	kind       SignalKind
	port       PortType
	typ        Type
	unpacked   []Range
	pins       []*Link
	local      bool
	lexicalPos int
	discipline string
	attributes map[string]string
	isConst    bool
	delayPaths int
	driven     map[int64][]Range
}

// NewSignal builds a signal. typ is the packed (or non-array) element
// type; unpacked holds any unpacked dimensions.
func NewSignal(scope ScopeID, name string, kind SignalKind, typ Type, unpacked []Range) *Signal {
	s := &Signal{name: name, scope: scope, kind: kind, typ: typ, unpacked: unpacked}
	words := RangesWidth(unpacked)
	if words < 1 {
		words = 1
	}
	dir := PinPassive
	if kind == SigReg {
		dir = PinOutput
	}
	s.pins = newLinks(s, int(words), dir)
	return s
}

func (s *Signal) Name() string        { return s.name }
func (s *Signal) Scope() ScopeID      { return s.scope }
func (s *Signal) Kind() SignalKind    { return s.kind }
func (s *Signal) Port() PortType      { return s.port }
func (s *Signal) Type() Type          { return s.typ }
func (s *Signal) Unpacked() []Range   { return s.unpacked }
func (s *Signal) Pin(i int) *Link     { return s.pins[i] }
func (s *Signal) PinCount() int       { return len(s.pins) }
func (s *Signal) IsLocal() bool       { return s.local }
func (s *Signal) LexicalPos() int     { return s.lexicalPos }
func (s *Signal) Discipline() string  { return s.discipline }
func (s *Signal) IsConst() bool       { return s.isConst }
func (s *Signal) DelayPaths() int     { return s.delayPaths }
func (s *Signal) Signed() bool        { return s.typ.Signed() }
func (s *Signal) IsArray() bool       { return len(s.unpacked) > 0 }
func (s *Signal) PackedDims() []Range { return PackedDims(s.typ) }
func (s *Signal) IsFourState() bool   { return IsFourState(s.typ) }
func (s *Signal) SetPort(p PortType)  { s.port = p }
func (s *Signal) SetLocal(local bool) { s.local = local }
func (s *Signal) SetLexicalPos(p int) { s.lexicalPos = p }
func (s *Signal) SetDiscipline(d string) {
	s.discipline = d
}
func (s *Signal) SetConst(c bool) { s.isConst = c }
func (s *Signal) AddDelayPath()   { s.delayPaths++ }

// SetKind changes the kind; reg pins become drivers.
func (s *Signal) SetKind(k SignalKind) {
	s.kind = k
	for _, p := range s.pins {
		switch {
		case k == SigReg:
			p.dir = PinOutput
		case p.dir == PinOutput:
			p.dir = PinPassive
		}
	}
}

// Attributes returns the attribute map, which may be nil.
func (s *Signal) Attributes() map[string]string { return s.attributes }

// SetAttribute records a named attribute.
func (s *Signal) SetAttribute(key, val string) {
	if s.attributes == nil {
		s.attributes = make(map[string]string)
	}
	s.attributes[key] = val
}

// Width is the packed width, or 1 for types without one.
func (s *Signal) Width() int64 {
	if w := s.typ.PackedWidth(); w > 0 {
		return w
	}
	return 1
}

// Words is the number of unpacked array words.
func (s *Signal) Words() int64 { return int64(len(s.pins)) }

// WordIndex maps unpacked source indices to a word number counted from
// the left bound of each dimension.
func (s *Signal) WordIndex(indices []int64) (int64, bool) {
	if len(indices) != len(s.unpacked) {
		return 0, false
	}
	var word int64
	for i, d := range s.unpacked {
		var off int64
		if d.Ascending() {
			off = indices[i] - d.Msb
		} else {
			off = d.Msb - indices[i]
		}
		if off < 0 || off >= d.Width() {
			return 0, false
		}
		word = word*d.Width() + off
	}
	return word, true
}

// TestAndSetPartDriver records that canonical bits [lsb, msb] of word are
// driven and reports whether any of them already were.
func (s *Signal) TestAndSetPartDriver(msb, lsb, word int64) bool {
	if s.driven == nil {
		s.driven = make(map[int64][]Range)
	}
	for _, r := range s.driven[word] {
		if lsb <= r.Msb && msb >= r.Lsb {
			return true
		}
	}
	s.driven[word] = append(s.driven[word], Range{Msb: msb, Lsb: lsb})
	return false
}

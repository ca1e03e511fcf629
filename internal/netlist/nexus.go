package netlist

// PinDir is the direction of a link as seen from its owner.
type PinDir int

const (
	PinPassive PinDir = iota
	PinInput
	PinOutput
)

func (d PinDir) String() string {
	switch d {
	case PinInput:
		return "input"
	case PinOutput:
		return "output"
	}
	return "passive"
}

// Strength is a drive strength on an output link.
type Strength int

const (
	StrHighZ Strength = iota
	StrWeak
	StrPull
	StrStrong
	StrSupply
)

var strengthNames = []string{"highz", "weak", "pull", "strong", "supply"}

func (s Strength) String() string { return strengthNames[s] }

// Object owns links: signals and nodes.
type Object interface {
	Name() string
	Pin(i int) *Link
	PinCount() int
}

// Link is one pin of a signal or node. Every link is joined to exactly
// one nexus.
type Link struct {
	owner  Object
	pin    int
	dir    PinDir
	drive0 Strength
	drive1 Strength
	nexus  *Nexus
}

func newLinks(owner Object, count int, dir PinDir) []*Link {
	links := make([]*Link, count)
	for i := range links {
		l := &Link{owner: owner, pin: i, dir: dir, drive0: StrStrong, drive1: StrStrong}
		l.nexus = &Nexus{links: []*Link{l}}
		links[i] = l
	}
	return links
}

func (l *Link) Object() Object   { return l.owner }
func (l *Link) PinIndex() int    { return l.pin }
func (l *Link) Dir() PinDir      { return l.dir }
func (l *Link) SetDir(d PinDir)  { l.dir = d }
func (l *Link) Nexus() *Nexus    { return l.nexus }
func (l *Link) Drive0() Strength { return l.drive0 }
func (l *Link) Drive1() Strength { return l.drive1 }
func (l *Link) IsLinked() bool   { return len(l.nexus.links) > 1 }
func (l *Link) SetDrive(s0, s1 Strength) {
	l.drive0, l.drive1 = s0, s1
}

// IsLinkedTo reports whether both links share a nexus.
func (l *Link) IsLinkedTo(o *Link) bool { return l.nexus == o.nexus }

// Nexus is an equipotential connection point.
type Nexus struct {
	links []*Link
}

// Links returns the joined links. There is always at least one.
func (n *Nexus) Links() []*Link { return n.links }

// Drivers returns the output links.
func (n *Nexus) Drivers() []*Link {
	var out []*Link
	for _, l := range n.links {
		if l.dir == PinOutput {
			out = append(out, l)
		}
	}
	return out
}

// Signals returns the signals with a pin on this nexus.
func (n *Nexus) Signals() []*Signal {
	var out []*Signal
	for _, l := range n.links {
		if s, ok := l.owner.(*Signal); ok {
			out = append(out, s)
		}
	}
	return out
}

// Name picks a display name from the first attached signal.
func (n *Nexus) Name() string {
	for _, l := range n.links {
		if s, ok := l.owner.(*Signal); ok && !s.IsLocal() {
			return s.Name()
		}
	}
	for _, l := range n.links {
		if s, ok := l.owner.(*Signal); ok {
			return s.Name()
		}
	}
	return ""
}

// Connect joins the nexuses of a and b. The smaller nexus is merged into
// the larger one.
func Connect(a, b *Link) {
	na, nb := a.nexus, b.nexus
	if na == nb {
		return
	}
	if len(na.links) < len(nb.links) {
		na, nb = nb, na
	}
	for _, l := range nb.links {
		l.nexus = na
	}
	na.links = append(na.links, nb.links...)
	nb.links = nil
}

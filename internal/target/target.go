// Package target holds the backends that read a finished design through
// the netlist accessor API.
package target

import (
	"fmt"
	"io"
	"sort"

	"martianoff/velab/internal/apiversion"
	"martianoff/velab/internal/netlist"
)

// Backend writes an elaborated design in some output format.
type Backend interface {
	// Name is the value of the CLI --target flag selecting the backend.
	Name() string
	// Requires is the accessor API constraint the backend was written for.
	Requires() string
	// Emit writes des to w.
	Emit(w io.Writer, des *netlist.Design) error
}

var backends = map[string]func() Backend{
	"text": NewTextBackend,
	"json": NewJSONBackend,
}

// Names lists the known backends.
func Names() []string {
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the named backend after checking that this build's
// accessor API satisfies what the backend requires.
func Lookup(name string) (Backend, error) {
	mk, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q (known: %v)", name, Names())
	}
	b := mk()
	if err := apiversion.Check(b.Requires()); err != nil {
		return nil, fmt.Errorf("target %s: %w", name, err)
	}
	return b, nil
}

// nexusIDs numbers the nexuses of a design in the order they are first
// met: signals of each scope, then nodes.
type nexusIDs struct {
	ids   map[*netlist.Nexus]int
	order []*netlist.Nexus
}

func numberNexuses(des *netlist.Design) *nexusIDs {
	n := &nexusIDs{ids: make(map[*netlist.Nexus]int)}
	for _, s := range des.Scopes() {
		for _, sig := range s.Signals() {
			for i := 0; i < sig.PinCount(); i++ {
				n.id(sig.Pin(i).Nexus())
			}
		}
	}
	for _, node := range des.Nodes() {
		for i := 0; i < node.PinCount(); i++ {
			n.id(node.Pin(i).Nexus())
		}
	}
	return n
}

func (n *nexusIDs) id(x *netlist.Nexus) int {
	if id, ok := n.ids[x]; ok {
		return id
	}
	id := len(n.order)
	n.ids[x] = id
	n.order = append(n.order, x)
	return id
}

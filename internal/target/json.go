package target

import (
	"encoding/json"
	"fmt"
	"io"

	"martianoff/velab/internal/apiversion"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/validator"
)

// Netlist is the JSON form of an elaborated design. Scope, node and
// nexus references are indices into the corresponding lists; scope 0
// means none.
type Netlist struct {
	APIVersion string    `json:"api_version"`
	Roots      []int     `json:"roots"`
	Scopes     []Scope   `json:"scopes"`
	Nexuses    []Nexus   `json:"nexuses"`
	Nodes      []Node    `json:"nodes"`
	Processes  []Process `json:"processes"`
	Errors     int       `json:"errors"`
}

type Scope struct {
	ID        int      `json:"id"`
	Parent    int      `json:"parent"`
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Kind      string   `json:"kind"`
	Module    string   `json:"module,omitempty"`
	Automatic bool     `json:"automatic,omitempty"`
	Params    []Param  `json:"params"`
	Signals   []Signal `json:"signals"`
	Events    []string `json:"events"`
}

type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Local bool   `json:"local,omitempty"`
	Type  bool   `json:"type,omitempty"`
}

type Signal struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Port    string `json:"port"`
	Type    string `json:"type"`
	Width   int64  `json:"width"`
	Signed  bool   `json:"signed"`
	Words   int64  `json:"words"`
	Local   bool   `json:"local,omitempty"`
	Nexuses []int  `json:"nexuses"`
}

type Nexus struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Links   int    `json:"links"`
	Drivers int    `json:"drivers"`
}

type Pin struct {
	Dir   string `json:"dir"`
	Nexus int    `json:"nexus"`
}

type Node struct {
	Kind  string            `json:"kind"`
	Name  string            `json:"name"`
	Scope int               `json:"scope"`
	Width int64             `json:"width"`
	Attrs map[string]string `json:"attrs,omitempty"`
	Pins  []Pin             `json:"pins"`
}

type Process struct {
	Kind  string `json:"kind"`
	Scope int    `json:"scope"`
	Push  bool   `json:"push"`
	File  string `json:"file"`
	Line  int    `json:"line"`
}

// Export converts des to its JSON form.
func Export(des *netlist.Design) *Netlist {
	nex := numberNexuses(des)
	out := &Netlist{
		APIVersion: apiversion.Current,
		Roots:      []int{},
		Scopes:     []Scope{},
		Nexuses:    []Nexus{},
		Nodes:      []Node{},
		Processes:  []Process{},
		Errors:     des.Errors(),
	}
	for _, r := range des.Roots() {
		out.Roots = append(out.Roots, int(r.ID()))
	}
	for _, s := range des.Scopes() {
		js := Scope{
			ID:        int(s.ID()),
			Parent:    int(s.Parent()),
			Name:      s.Name().String(),
			Path:      des.Path(s.ID()),
			Kind:      s.Kind().String(),
			Module:    s.ModuleName,
			Automatic: s.IsAutomatic(),
			Params:    []Param{},
			Signals:   []Signal{},
			Events:    []string{},
		}
		for _, p := range s.Params() {
			jp := Param{Name: p.Name, Local: p.Local, Type: p.IsType}
			switch {
			case p.IsType && p.Resolved != nil:
				jp.Value = p.Resolved.String()
			case p.Value != nil:
				jp.Value = p.Value.String()
			}
			js.Params = append(js.Params, jp)
		}
		for _, sig := range s.Signals() {
			jsig := Signal{
				Name:   sig.Name(),
				Kind:   sig.Kind().String(),
				Port:   sig.Port().String(),
				Type:   sig.Type().String(),
				Width:  sig.Width(),
				Signed: sig.Signed(),
				Words:  sig.Words(),
				Local:  sig.IsLocal(),
			}
			for i := 0; i < sig.PinCount(); i++ {
				jsig.Nexuses = append(jsig.Nexuses, nex.id(sig.Pin(i).Nexus()))
			}
			js.Signals = append(js.Signals, jsig)
		}
		for _, ev := range s.Events() {
			js.Events = append(js.Events, ev.Name())
		}
		out.Scopes = append(out.Scopes, js)
	}
	for _, n := range des.Nodes() {
		jn := Node{Kind: n.Kind().String(), Name: n.Name(), Scope: int(n.Scope()), Width: n.Width(), Attrs: nodeAttrs(n), Pins: []Pin{}}
		for i := 0; i < n.PinCount(); i++ {
			l := n.Pin(i)
			jn.Pins = append(jn.Pins, Pin{Dir: l.Dir().String(), Nexus: nex.id(l.Nexus())})
		}
		out.Nodes = append(out.Nodes, jn)
	}
	for _, x := range nex.order {
		out.Nexuses = append(out.Nexuses, Nexus{
			ID:      nex.ids[x],
			Name:    x.Name(),
			Links:   len(x.Links()),
			Drivers: len(x.Drivers()),
		})
	}
	for _, p := range des.Processes() {
		out.Processes = append(out.Processes, Process{
			Kind:  p.Kind.String(),
			Scope: int(p.Scope),
			Push:  p.Push(),
			File:  p.File,
			Line:  p.Line,
		})
	}
	return out
}

// ExportJSON renders des as indented JSON and checks it against the
// netlist schema.
func ExportJSON(des *netlist.Design) ([]byte, error) {
	data, err := json.MarshalIndent(Export(des), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling netlist: %w", err)
	}
	v, err := validator.New()
	if err != nil {
		return nil, err
	}
	if err := v.ValidateJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}

type jsonBackend struct{}

// NewJSONBackend creates the JSON export backend.
func NewJSONBackend() Backend { return &jsonBackend{} }

func (*jsonBackend) Name() string     { return "json" }
func (*jsonBackend) Requires() string { return "^1.4" }

func (*jsonBackend) Emit(w io.Writer, des *netlist.Design) error {
	data, err := ExportJSON(des)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing netlist: %w", err)
	}
	return nil
}

var _ Backend = (*jsonBackend)(nil)

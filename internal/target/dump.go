package target

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"martianoff/velab/internal/netlist"
)

type textBackend struct{}

// NewTextBackend creates the human readable dump backend.
func NewTextBackend() Backend { return &textBackend{} }

func (*textBackend) Name() string     { return "text" }
func (*textBackend) Requires() string { return ">= 1.0, < 2" }

func (*textBackend) Emit(w io.Writer, des *netlist.Design) error { return Dump(w, des) }

var _ Backend = (*textBackend)(nil)

// Dump writes a readable listing of the scopes, nodes and processes of des.
func Dump(w io.Writer, des *netlist.Design) error {
	bw := bufio.NewWriter(w)
	d := &dumper{w: bw, des: des, nex: numberNexuses(des)}
	d.scopes()
	d.nodes()
	d.processes()
	return bw.Flush()
}

type dumper struct {
	w   *bufio.Writer
	des *netlist.Design
	nex *nexusIDs
}

func (d *dumper) printf(indent int, format string, args ...any) {
	d.w.WriteString(strings.Repeat("    ", indent))
	fmt.Fprintf(d.w, format, args...)
	d.w.WriteByte('\n')
}

func (d *dumper) scopes() {
	d.printf(0, "SCOPES:")
	for _, s := range d.des.Scopes() {
		head := fmt.Sprintf("%s %s", s.Kind(), d.des.Path(s.ID()))
		if s.ModuleName != "" && s.Kind() == netlist.ScopeModule {
			head += " (" + s.ModuleName + ")"
		}
		if s.IsAutomatic() {
			head += " automatic"
		}
		d.printf(1, "%s", head)
		for _, p := range s.Params() {
			d.printf(2, "%s", paramLine(p))
		}
		for _, sig := range s.Signals() {
			d.printf(2, "%s", d.signalLine(sig))
		}
		for _, ev := range s.Events() {
			d.printf(2, "event %s probes=%d", ev.Name(), len(ev.Probes()))
		}
	}
}

func paramLine(p *netlist.Param) string {
	kw := "parameter"
	if p.Local {
		kw = "localparam"
	}
	switch {
	case p.IsType && p.Resolved != nil:
		return fmt.Sprintf("%s type %s = %s", kw, p.Name, p.Resolved)
	case p.Value != nil:
		return fmt.Sprintf("%s %s = %s", kw, p.Name, p.Value)
	}
	return fmt.Sprintf("%s %s", kw, p.Name)
}

func (d *dumper) signalLine(sig *netlist.Signal) string {
	var sb strings.Builder
	if sig.Port() != netlist.NotAPort {
		sb.WriteString(sig.Port().String())
		sb.WriteByte(' ')
	}
	fmt.Fprintf(&sb, "%s %s %s", sig.Kind(), sig.Type(), sig.Name())
	for _, r := range sig.Unpacked() {
		sb.WriteString(r.String())
	}
	fmt.Fprintf(&sb, " width=%d", sig.Width())
	if sig.IsLocal() {
		sb.WriteString(" local")
	}
	sb.WriteString(" nexus=")
	for i := 0; i < sig.PinCount(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", d.nex.id(sig.Pin(i).Nexus()))
	}
	return sb.String()
}

func (d *dumper) nodes() {
	d.printf(0, "NODES:")
	for _, n := range d.des.Nodes() {
		attrs := nodeAttrs(n)
		var sb strings.Builder
		for _, k := range sortedKeys(attrs) {
			fmt.Fprintf(&sb, " %s=%s", k, attrs[k])
		}
		d.printf(1, "%s %s.%s width=%d%s", n.Kind(), d.des.Path(n.Scope()), n.Name(), n.Width(), sb.String())
		for i := 0; i < n.PinCount(); i++ {
			l := n.Pin(i)
			d.printf(2, "pin%d %s -> nexus %d (%s)", i, l.Dir(), d.nex.id(l.Nexus()), l.Nexus().Name())
		}
	}
}

func (d *dumper) processes() {
	d.printf(0, "PROCESSES:")
	for _, p := range d.des.Processes() {
		head := fmt.Sprintf("%s %s", p.Kind, d.des.Path(p.Scope))
		if p.Push() {
			head += " push"
		}
		d.printf(1, "%s /* %s */", head, p.LineInfo)
		d.stmt(2, p.Stmt)
	}
}

func eventNames(evs []*netlist.Event) string {
	names := make([]string, len(evs))
	for i, ev := range evs {
		names[i] = ev.Name()
	}
	return strings.Join(names, " or ")
}

func lvals(lvs []*netlist.LValue) string {
	if len(lvs) == 1 {
		return lvs[0].String()
	}
	parts := make([]string, len(lvs))
	for i, lv := range lvs {
		parts[i] = lv.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d *dumper) stmt(ind int, p netlist.Proc) {
	switch p := p.(type) {
	case nil:
		d.printf(ind, ";")
	case *netlist.Block:
		label := p.Kind.String()
		if p.Scope.IsValid() {
			label += " : " + d.des.Path(p.Scope)
		}
		d.printf(ind, "%s", label)
		for _, st := range p.Stmts {
			d.stmt(ind+1, st)
		}
		d.printf(ind, "end")
	case *netlist.Assign:
		op := "="
		if p.NonBlocking {
			op = "<="
		}
		timing := ""
		switch {
		case p.Delay != nil:
			timing = "#(" + p.Delay.String() + ") "
		case p.Event != nil && p.Count != nil:
			timing = "repeat(" + p.Count.String() + ") @(" + p.Event.Name() + ") "
		case p.Event != nil:
			timing = "@(" + p.Event.Name() + ") "
		}
		d.printf(ind, "%s %s%s %s%s;", lvals(p.Lvals), p.Op, op, timing, p.Rval)
	case *netlist.Condit:
		d.printf(ind, "if (%s)", p.Cond)
		d.stmt(ind+1, p.Then)
		if p.Else != nil {
			d.printf(ind, "else")
			d.stmt(ind+1, p.Else)
		}
	case *netlist.Case:
		d.printf(ind, "%s (%s)", p.Kind, p.Expr)
		for _, it := range p.Items {
			if it.Guard == nil {
				d.printf(ind+1, "default:")
			} else {
				d.printf(ind+1, "%s:", it.Guard)
			}
			d.stmt(ind+2, it.Stmt)
		}
		d.printf(ind, "endcase")
	case *netlist.While:
		d.printf(ind, "while (%s)", p.Cond)
		d.stmt(ind+1, p.Body)
	case *netlist.DoWhile:
		d.printf(ind, "do")
		d.stmt(ind+1, p.Body)
		d.printf(ind, "while (%s);", p.Cond)
	case *netlist.Repeat:
		d.printf(ind, "repeat (%s)", p.Count)
		d.stmt(ind+1, p.Body)
	case *netlist.Forever:
		d.printf(ind, "forever")
		d.stmt(ind+1, p.Body)
	case *netlist.For:
		d.printf(ind, "for")
		d.stmt(ind+1, p.Init)
		if p.Cond != nil {
			d.printf(ind+1, "while (%s)", p.Cond)
		}
		d.stmt(ind+1, p.Body)
		d.stmt(ind+1, p.Step)
	case *netlist.PDelay:
		d.printf(ind, "#(%s)", p.Delay)
		if p.Stmt != nil {
			d.stmt(ind+1, p.Stmt)
		}
	case *netlist.EvWait:
		d.printf(ind, "@(%s)", eventNames(p.Events))
		if p.Stmt != nil {
			d.stmt(ind+1, p.Stmt)
		}
	case *netlist.EvTrig:
		d.printf(ind, "-> %s;", p.Event.Name())
	case *netlist.UTask:
		d.printf(ind, "%s;", p.Name)
	case *netlist.STask:
		args := make([]string, len(p.Args))
		for i, a := range p.Args {
			args[i] = a.String()
		}
		d.printf(ind, "%s(%s);", p.Name, strings.Join(args, ", "))
	case *netlist.Disable:
		d.printf(ind, "disable %s;", d.des.Path(p.Target))
	case *netlist.Alloc:
		d.printf(ind, "alloc %s;", d.des.Path(p.Scope))
	case *netlist.Free:
		d.printf(ind, "free %s;", d.des.Path(p.Scope))
	case *netlist.Jump:
		d.printf(ind, "%s;", p.Jump)
	case *netlist.WaitFork:
		d.printf(ind, "wait fork;")
	case *netlist.Noop:
		d.printf(ind, ";")
	default:
		d.printf(ind, "/* %T */", p)
	}
}

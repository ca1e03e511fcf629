package target

import (
	"sort"
	"strconv"
	"strings"

	"martianoff/velab/internal/netlist"
)

// nodeAttrs lists the kind-specific fields of a node.
func nodeAttrs(n netlist.Node) map[string]string {
	itoa := func(v int64) string { return strconv.FormatInt(v, 10) }
	btoa := strconv.FormatBool
	a := make(map[string]string)
	switch n := n.(type) {
	case *netlist.Const:
		if n.IsReal {
			a["value"] = strconv.FormatFloat(n.Real, 'g', -1, 64)
		} else {
			a["value"] = n.Value.String()
		}
	case *netlist.Logic:
		a["gate"] = n.Gate.String()
	case *netlist.PartSelect:
		a["dir"] = n.Dir.String()
		a["base"] = itoa(n.Base)
		a["vector_width"] = itoa(n.VectorWidth)
	case *netlist.Concat:
		parts := make([]string, len(n.Widths))
		for i, w := range n.Widths {
			parts[i] = itoa(w)
		}
		a["widths"] = strings.Join(parts, ",")
	case *netlist.Replicate:
		a["count"] = itoa(n.Count)
	case *netlist.Extend:
		a["signed"] = btoa(n.Signed)
		a["in_width"] = itoa(n.InWidth)
	case *netlist.Arith:
		a["op"] = n.Op
		a["signed"] = btoa(n.Signed)
	case *netlist.Compare:
		a["op"] = n.Op
		a["signed"] = btoa(n.Signed)
		a["operand_width"] = itoa(n.OperandWidth)
	case *netlist.Reduce:
		a["op"] = n.Op
		a["in_width"] = itoa(n.InWidth)
	case *netlist.Unary:
		a["op"] = n.Op
	case *netlist.Mux:
		a["signed"] = btoa(n.Signed)
	case *netlist.Bufz:
		a["isolating"] = btoa(n.Isolating)
	case *netlist.Tran:
		a["type"] = n.Type.String()
		if n.Type == netlist.TranVP {
			a["vector_width"] = itoa(n.VectorWidth)
			a["offset"] = itoa(n.Offset)
		}
	case *netlist.Pull:
		a["value"] = n.Value.String()
	case *netlist.UDP:
		a["def"] = n.Def.Name
		a["sequential"] = btoa(n.Def.Sequential)
	case *netlist.Probe:
		a["edge"] = n.Edge.String()
		a["event"] = n.Event.Name()
	case *netlist.Cast:
		a["conv"] = n.Conv.String()
		a["signed"] = btoa(n.Signed)
	case *netlist.Substitute:
		a["base"] = itoa(n.Base)
		a["part_width"] = itoa(n.PartWidth)
	case *netlist.SFunc:
		a["func"] = n.Func
	}
	return a
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

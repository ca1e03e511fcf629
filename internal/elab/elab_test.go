package elab_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/config"
	"martianoff/velab/internal/elab"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform/loader"
	"martianoff/velab/internal/verinum"
)

// elaborate loads a YAML design and elaborates it with the default
// configuration, adjusted by opts.
func elaborate(t *testing.T, src string, opts ...func(*config.Config)) (*netlist.Design, *elaberr.Reporter) {
	t.Helper()
	pf, err := loader.Load("test.yaml", []byte(src))
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Language.Generation = config.Gen2012
	for _, opt := range opts {
		opt(cfg)
	}
	r := elaberr.NewReporter(nil)
	des, _ := elab.New(cfg, elab.WithDiagnostics(r)).Elaborate(pf)
	require.NotNil(t, des)
	return des, r
}

func nodesOf[T netlist.Node](des *netlist.Design) []T {
	var out []T
	for _, n := range des.Nodes() {
		if x, ok := n.(T); ok {
			out = append(out, x)
		}
	}
	return out
}

func countMessages(r *elaberr.Reporter, sev elaberr.Severity, substr string) int {
	n := 0
	for _, d := range r.Filter(sev) {
		if strings.Contains(d.Msg, substr) {
			n++
		}
	}
	return n
}

func partSelects(des *netlist.Design, dir netlist.PartDir) []*netlist.PartSelect {
	var out []*netlist.PartSelect
	for _, ps := range nodesOf[*netlist.PartSelect](des) {
		if ps.Dir == dir {
			out = append(out, ps)
		}
	}
	return out
}

func TestCounterProcess(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: counter
    wires:
      - {name: q, port: output, kind: reg, range: "[3:0]"}
      - {name: clk, port: input}
    behaviors:
      - kind: always
        body: "@(posedge clk) q <= q + 1;"
`)
	require.Zero(t, r.Errors(), r.Diagnostics())

	procs := des.Processes()
	require.Len(t, procs, 1)
	p := procs[0]
	assert.Equal(t, netlist.ProcAlways, p.Kind)
	assert.True(t, p.Push())

	wait, ok := p.Stmt.(*netlist.EvWait)
	require.True(t, ok, "body is %T", p.Stmt)
	require.Len(t, wait.Events, 1)
	ev := wait.Events[0]
	require.Len(t, ev.Probes(), 1)
	assert.Equal(t, netlist.EdgePos, ev.Probes()[0].Edge)
	assert.True(t, ev.EdgeOnly())

	clk := des.FindSignal("counter.clk")
	require.NotNil(t, clk)
	assert.True(t, ev.Probes()[0].Pin(0).IsLinkedTo(clk.Pin(0)))

	assign, ok := wait.Stmt.(*netlist.Assign)
	require.True(t, ok, "controlled statement is %T", wait.Stmt)
	assert.True(t, assign.NonBlocking)
	require.Len(t, assign.Lvals, 1)
	assert.Equal(t, "q", assign.Lvals[0].Sig.Name())
	assert.Equal(t, int64(4), assign.Rval.Width())
}

func TestNarrowConstantIsPadded(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: a, range: "[7:0]"}
    gates:
      - assign: {lval: a, rval: "4'hF"}
`)
	require.Zero(t, r.Errors(), r.Diagnostics())

	a := des.FindSignal("top.a")
	require.NotNil(t, a)
	assert.Equal(t, int64(8), a.Width())

	consts := nodesOf[*netlist.Const](des)
	require.Len(t, consts, 1)
	k := consts[0]
	require.Equal(t, 8, k.Value.Width())
	assert.True(t, k.Pin(0).IsLinkedTo(a.Pin(0)))
	bits := k.Value.Bits()
	for i := 0; i < 4; i++ {
		assert.Equal(t, verinum.V1, bits[i], "bit %d", i)
	}
	for i := 4; i < 8; i++ {
		assert.Equal(t, verinum.V0, bits[i], "bit %d", i)
	}
}

const genLoop = `
modules:
  - name: top
    gates:
      - instance: {module: sub, name: u}
%s
  - name: sub
    parameters:
      - {name: N, value: "3"}
    genvars: [i]
    generate:
      - for:
          var: i
          init: "0"
          cond: "i < N"
          step: "i + 1"
          block:
            name: g
            wires:
              - {name: w, range: "[i:0]"}
            gates:
              - assign: {lval: w, rval: "i"}
`

func TestGenerateLoop(t *testing.T) {
	tests := []struct {
		name      string
		defparams string
		want      int
	}{
		{name: "default bound", want: 3},
		{name: "defparam bound", defparams: "    defparams: [{path: u.N, value: \"5\"}]", want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, strings.Replace(genLoop, "%s", tt.defparams, 1))
			require.Zero(t, r.Errors(), r.Diagnostics())

			u := des.FindScope("top.u")
			require.NotNil(t, u)
			var blocks []*netlist.Scope
			for _, id := range u.Children() {
				if s := des.Scope(id); s.BaseName() == "g" {
					blocks = append(blocks, s)
				}
			}
			require.Len(t, blocks, tt.want)
			for i, s := range blocks {
				assert.Equal(t, netlist.ScopeGenerate, s.Kind())
				assert.Equal(t, netlist.StageElaborated, s.Stage())
				w := s.Signal("w")
				require.NotNil(t, w, "scope %s", des.Path(s.ID()))
				assert.Equal(t, int64(i+1), w.Width())
				assert.True(t, w.Pin(0).IsLinked(), "w of %s is driven", des.Path(s.ID()))
			}
			assert.NotNil(t, des.FindScope("top.u.g[2]"))
			assert.Nil(t, des.FindScope(fmt.Sprintf("top.u.g[%d]", tt.want)))
		})
	}
}

func TestMultipleDrivers(t *testing.T) {
	tests := []struct {
		name       string
		lhs1, lhs2 string
		wantErrors int
	}{
		{name: "same range", lhs1: "s[3:0]", lhs2: "s[3:0]", wantErrors: 1},
		{name: "overlapping ranges", lhs1: "s[5:2]", lhs2: "s[3:0]", wantErrors: 1},
		{name: "disjoint ranges", lhs1: "s[7:4]", lhs2: "s[3:0]", wantErrors: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: s, kind: uwire, range: "[7:0]"}
      - {name: x, range: "[3:0]"}
    gates:
      - assign: {lval: "`+tt.lhs1+`", rval: x}
      - assign: {lval: "`+tt.lhs2+`", rval: x}
`)
			assert.Equal(t, tt.wantErrors, countMessages(r, elaberr.SeverityError, "multiple drivers"))
			assert.Equal(t, tt.wantErrors, r.Errors())
		})
	}
}

func TestWiredNetsAllowMultipleDrivers(t *testing.T) {
	_, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: s, range: "[7:0]"}
      - {name: x, range: "[7:0]"}
    gates:
      - assign: {lval: s, rval: x}
      - assign: {lval: s, rval: x}
`)
	assert.Zero(t, r.Errors())
}

func TestIndexedPartSelectTargets(t *testing.T) {
	tests := []struct {
		name     string
		decl     string
		lhs      string
		wantBase int64
		wantW    int64
	}{
		{name: "up on descending", decl: "[7:0]", lhs: "v[2 +: 4]", wantBase: 2, wantW: 4},
		{name: "down on descending", decl: "[7:0]", lhs: "v[5 -: 4]", wantBase: 2, wantW: 4},
		{name: "up on ascending", decl: "[0:7]", lhs: "v[2 +: 4]", wantBase: 2, wantW: 4},
		{name: "down on ascending", decl: "[0:7]", lhs: "v[5 -: 4]", wantBase: 2, wantW: 4},
		{name: "offset range", decl: "[15:8]", lhs: "v[9 +: 3]", wantBase: 1, wantW: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: v, range: "`+tt.decl+`"}
      - {name: x, range: "[3:0]"}
    gates:
      - assign: {lval: "`+tt.lhs+`", rval: x}
`)
			require.Zero(t, r.Errors(), r.Diagnostics())
			assert.Zero(t, r.Warnings(), r.Diagnostics())
			pvs := partSelects(des, netlist.PartPV)
			require.Len(t, pvs, 1)
			ps := pvs[0]
			lsb, msb := ps.Base, ps.Base+ps.Width()-1
			assert.Equal(t, tt.wantBase, lsb)
			assert.Equal(t, tt.wantW, msb-lsb+1)
			assert.True(t, lsb >= 0 && msb <= 7)
			assert.True(t, ps.Pin(1).IsLinkedTo(des.FindSignal("top.v").Pin(0)))
		})
	}
}

func TestOutOfRangeTargetIsDropped(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: v, range: "[7:0]"}
      - {name: x, range: "[1:0]"}
    gates:
      - assign: {lval: "v[10 +: 2]", rval: x}
`)
	assert.Zero(t, r.Errors(), r.Diagnostics())
	assert.Equal(t, 1, countMessages(r, elaberr.SeverityWarning, "out of range"))
	assert.Empty(t, partSelects(des, netlist.PartPV))
	assert.False(t, des.FindSignal("top.v").Pin(0).IsLinked())
}

func TestReversedPartSelect(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: v, range: "[7:0]"}
      - {name: x, range: "[3:0]"}
    gates:
      - assign: {lval: "v[0:3]", rval: x}
`)
	assert.Zero(t, r.Errors(), r.Diagnostics())
	assert.Equal(t, 1, countMessages(r, elaberr.SeverityWarning, "reversed"))
	pvs := partSelects(des, netlist.PartPV)
	require.Len(t, pvs, 1)
	assert.Equal(t, int64(0), pvs[0].Base)
	assert.Equal(t, int64(4), pvs[0].Width())
}

const defparamDesign = `
modules:
  - name: top
    gates:
      - instance: {module: sub, name: u}
    defparams:
      - {path: %s, value: "7"}
  - name: sub
    parameters:
      - {name: N, value: "3"}
      - {name: T, is_type: true, type: "logic [3:0]"}
    localparams:
      - {name: L, value: "1"}
    wires:
      - {name: w, type: "T"}
`

func TestDefparamPolicy(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
		check   func(t *testing.T, des *netlist.Design)
	}{
		{
			name: "ordinary parameter",
			path: "u.N",
			check: func(t *testing.T, des *netlist.Design) {
				p := des.FindScope("top.u").Param("N")
				require.NotNil(t, p)
				assert.True(t, p.Overridden)
				k, ok := p.Value.(*netlist.ConstExpr)
				require.True(t, ok, "value is %T", p.Value)
				v, defined := k.Value.AsInt64()
				require.True(t, defined)
				assert.Equal(t, int64(7), v)
			},
		},
		{name: "localparam", path: "u.L", wantErr: "cannot override localparam"},
		{name: "type parameter", path: "u.T", wantErr: "cannot override type parameter"},
		{name: "unknown parameter", path: "u.Q", wantErr: "is not declared"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, strings.Replace(defparamDesign, "%s", tt.path, 1))
			if tt.wantErr == "" {
				require.Zero(t, r.Errors(), r.Diagnostics())
			} else {
				assert.Equal(t, 1, r.Errors(), r.Diagnostics())
				assert.Equal(t, 1, countMessages(r, elaberr.SeverityError, tt.wantErr))
			}
			if tt.check != nil {
				tt.check(t, des)
			}
			w := des.FindSignal("top.u.w")
			require.NotNil(t, w)
			assert.Equal(t, int64(4), w.Width())
		})
	}
}

func TestDefparamOfMissingScopeWarns(t *testing.T) {
	_, r := elaborate(t, strings.Replace(defparamDesign, "%s", "nowhere.N", 1))
	assert.Zero(t, r.Errors(), r.Diagnostics())
	assert.Equal(t, 1, countMessages(r, elaberr.SeverityWarning, "does not name a parameter"))
}

func TestPortWidthCoercion(t *testing.T) {
	tests := []struct {
		name        string
		actual      string
		portRange   string
		wantWarning string
		check       func(t *testing.T, des *netlist.Design)
	}{
		{
			name: "narrow unsigned actual", actual: "n4", portRange: "[7:0]", wantWarning: "padding 4 high bits",
			check: func(t *testing.T, des *netlist.Design) {
				exts := nodesOf[*netlist.Extend](des)
				require.Len(t, exts, 1)
				assert.Equal(t, int64(4), exts[0].InWidth)
				assert.Equal(t, int64(8), exts[0].Width())
				assert.False(t, exts[0].Signed)
				assert.True(t, exts[0].Pin(1).IsLinkedTo(des.FindSignal("top.n4").Pin(0)))
				assert.True(t, exts[0].Pin(0).IsLinkedTo(des.FindSignal("top.u.a").Pin(0)))
			},
		},
		{
			name: "narrow signed actual", actual: "s4", portRange: "[7:0]", wantWarning: "padding 4 high bits",
			check: func(t *testing.T, des *netlist.Design) {
				exts := nodesOf[*netlist.Extend](des)
				require.Len(t, exts, 1)
				assert.True(t, exts[0].Signed)
			},
		},
		{
			name: "wide actual", actual: "n8", portRange: "[3:0]", wantWarning: "pruning 4 high bits",
			check: func(t *testing.T, des *netlist.Design) {
				assert.Empty(t, nodesOf[*netlist.Extend](des))
				vps := partSelects(des, netlist.PartVP)
				require.Len(t, vps, 1)
				assert.Equal(t, int64(0), vps[0].Base)
				assert.Equal(t, int64(4), vps[0].Width())
			},
		},
		{
			name: "equal widths", actual: "n8", portRange: "[7:0]",
			check: func(t *testing.T, des *netlist.Design) {
				assert.Empty(t, nodesOf[*netlist.Extend](des))
				assert.Empty(t, nodesOf[*netlist.PartSelect](des))
				assert.True(t, des.FindSignal("top.n8").Pin(0).IsLinkedTo(des.FindSignal("top.u.a").Pin(0)))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: n4, range: "[3:0]"}
      - {name: s4, range: "[3:0]", signed: true}
      - {name: n8, range: "[7:0]"}
    gates:
      - instance: {module: sub, name: u, ports: {a: `+tt.actual+`}}
  - name: sub
    wires:
      - {name: a, port: input, range: "`+tt.portRange+`"}
`)
			require.Zero(t, r.Errors(), r.Diagnostics())
			if tt.wantWarning == "" {
				assert.Zero(t, r.Warnings(), r.Diagnostics())
			} else {
				assert.Equal(t, 1, countMessages(r, elaberr.SeverityWarning, tt.wantWarning), r.Diagnostics())
			}
			tt.check(t, des)
		})
	}
}

func TestPortBindingErrors(t *testing.T) {
	tests := []struct {
		name    string
		inst    string
		wantErr string
	}{
		{name: "unknown named port", inst: "{module: sub, name: u, ports: {zz: x}}", wantErr: "is not a port of"},
		{name: "too many positional ports", inst: "{module: sub, name: u, ports: [x, x, x]}", wantErr: "Wrong number of ports"},
		{name: "wildcard without a match", inst: "{module: sub, name: u, wildcard: true}", wantErr: "Unable to bind wildcard port b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: x}
      - {name: a}
    gates:
      - instance: `+tt.inst+`
  - name: sub
    wires:
      - {name: a, port: input}
      - {name: b, port: input}
`)
			assert.Equal(t, 1, countMessages(r, elaberr.SeverityError, tt.wantErr), r.Diagnostics())
		})
	}
}

func TestUnknownModuleAbandons(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    gates:
      - instance: {module: nothere, name: u}
`)
	assert.Equal(t, 1, countMessages(r, elaberr.SeverityError, "Unknown module type"))
	assert.Empty(t, des.Processes())
}

func TestRecursiveInstantiation(t *testing.T) {
	_, r := elaborate(t, `
modules:
  - name: top
    gates:
      - instance: {module: a, name: u}
  - name: a
    gates:
      - instance: {module: b, name: u}
  - name: b
    gates:
      - instance: {module: a, name: u}
`)
	assert.NotZero(t, r.Errors())
}

func TestAlwaysWithoutDelay(t *testing.T) {
	_, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: r, kind: reg}
    behaviors:
      - kind: always
        body: "r = ~r;"
`)
	assert.Equal(t, 1, countMessages(r, elaberr.SeverityError, "does not have any delay"))
}

func TestAlwaysCombSensitivity(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: a, range: "[3:0]"}
      - {name: b, range: "[3:0]"}
      - {name: y, type: "logic [3:0]"}
    behaviors:
      - kind: always_comb
        body: "y = a & b;"
`)
	require.Zero(t, r.Errors(), r.Diagnostics())
	require.Len(t, des.Processes(), 1)
	p := des.Processes()[0]
	assert.True(t, p.Push())
	blk, ok := p.Stmt.(*netlist.Block)
	require.True(t, ok)
	require.Len(t, blk.Stmts, 2)
	wait, ok := blk.Stmts[1].(*netlist.EvWait)
	require.True(t, ok)
	probes := wait.Events[0].Probes()
	require.Len(t, probes, 1)
	assert.Equal(t, 2, probes[0].PinCount(), "a and b, not y")
}

func TestAlwaysFFNeedsEdge(t *testing.T) {
	_, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: d}
      - {name: q, type: logic}
    behaviors:
      - kind: always_ff
        body: "@(d) q <= d;"
`)
	assert.Equal(t, 1, countMessages(r, elaberr.SeverityError, "must begin with an edge event control"))
}

func TestConstantFunctionInParameter(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    functions:
      - name: clog2
        returns: integer
        ports:
          - {name: v, port: input, type: integer}
        body: |
          begin
            clog2 = 0;
            for (v = v - 1; v > 0; v = v >> 1)
              clog2 = clog2 + 1;
          end
    localparams:
      - {name: W, value: "clog2(17)"}
    wires:
      - {name: x, range: "[W-1:0]"}
`)
	require.Zero(t, r.Errors(), r.Diagnostics())
	assert.Equal(t, int64(5), des.FindSignal("top.x").Width())
}

func TestTaskCallLowering(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: r, type: "logic [7:0]"}
    tasks:
      - name: inc
        ports:
          - {name: a, port: input, type: "logic [7:0]"}
          - {name: b, port: output, type: "logic [7:0]"}
        body: "b = a + 1;"
    behaviors:
      - kind: initial
        body: "inc(r, r);"
`)
	require.Zero(t, r.Errors(), r.Diagnostics())
	var top *netlist.ProcTop
	for _, p := range des.Processes() {
		if p.Kind == netlist.ProcInitial {
			top = p
		}
	}
	require.NotNil(t, top)
	blk, ok := top.Stmt.(*netlist.Block)
	require.True(t, ok, "body is %T", top.Stmt)
	require.Len(t, blk.Stmts, 3, "copy in, call, copy out")
	assert.IsType(t, &netlist.Assign{}, blk.Stmts[0])
	call, ok := blk.Stmts[1].(*netlist.UTask)
	require.True(t, ok)
	assert.Equal(t, "top.inc", call.Name)
	assert.IsType(t, &netlist.Assign{}, blk.Stmts[2])
}

func TestInternalErrorIsRecovered(t *testing.T) {
	r := elaberr.NewReporter(nil)
	e := elab.New(nil, elab.WithDiagnostics(r))
	pf, err := loader.Load("empty.yaml", []byte("modules: []\n"))
	require.NoError(t, err)
	des, err := e.Elaborate(pf)
	require.NoError(t, err)
	assert.NotNil(t, des.Unit())
	assert.Same(t, r, e.Diagnostics())
}

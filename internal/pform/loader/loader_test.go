package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/internal/pform"
)

func TestParseExpr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		validate func(t *testing.T, e pform.Expr)
	}{
		{
			name:  "sized literal",
			input: "4'b1010",
			validate: func(t *testing.T, e pform.Expr) {
				n, ok := e.(*pform.ENumber)
				require.True(t, ok, "expected ENumber, got %T", e)
				assert.Equal(t, 4, n.Value.Width())
				assert.True(t, n.Value.Sized())
				v, defined := n.Value.AsInt64()
				assert.True(t, defined)
				assert.Equal(t, int64(10), v)
			},
		},
		{
			name:  "precedence",
			input: "a + b * c",
			validate: func(t *testing.T, e pform.Expr) {
				b, ok := e.(*pform.EBinary)
				require.True(t, ok, "expected EBinary, got %T", e)
				assert.Equal(t, "+", b.Op)
				r, ok := b.Right.(*pform.EBinary)
				require.True(t, ok)
				assert.Equal(t, "*", r.Op)
			},
		},
		{
			name:  "hierarchical name with selects",
			input: "top.g[1].w[3:0]",
			validate: func(t *testing.T, e pform.Expr) {
				id, ok := e.(*pform.EIdent)
				require.True(t, ok, "expected EIdent, got %T", e)
				require.Len(t, id.Path, 3)
				assert.Equal(t, "g", id.Path[1].Name)
				require.Len(t, id.Path[2].Index, 1)
				assert.Equal(t, pform.SelPart, id.Path[2].Index[0].Sel)
			},
		},
		{
			name:  "indexed part select",
			input: "v[i +: 4]",
			validate: func(t *testing.T, e pform.Expr) {
				id := e.(*pform.EIdent)
				require.Len(t, id.Path[0].Index, 1)
				assert.Equal(t, pform.SelIdxUp, id.Path[0].Index[0].Sel)
			},
		},
		{
			name:  "replication",
			input: "{2{a, b}}",
			validate: func(t *testing.T, e pform.Expr) {
				c, ok := e.(*pform.EConcat)
				require.True(t, ok, "expected EConcat, got %T", e)
				assert.NotNil(t, c.Repeat)
				assert.Len(t, c.Parms, 2)
			},
		},
		{
			name:  "system function",
			input: "$clog2(N + 1)",
			validate: func(t *testing.T, e pform.Expr) {
				c, ok := e.(*pform.ESysCall)
				require.True(t, ok, "expected ESysCall, got %T", e)
				assert.Equal(t, "$clog2", c.Name)
				assert.Len(t, c.Args, 1)
			},
		},
		{
			name:  "ternary",
			input: "s ? a : b",
			validate: func(t *testing.T, e pform.Expr) {
				_, ok := e.(*pform.ETernary)
				assert.True(t, ok, "expected ETernary, got %T", e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseExpr(tt.input)
			require.NoError(t, err)
			tt.validate(t, e)
		})
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, input := range []string{"a +", "(a", "a b"} {
		_, err := ParseExpr(input)
		assert.Error(t, err, input)
	}
}

func TestParseStatement(t *testing.T) {
	st, err := ParseStatement("@(posedge clk) q <= q + 1;")
	require.NoError(t, err)
	ev, ok := st.(*pform.EventStmt)
	require.True(t, ok, "expected EventStmt, got %T", st)
	require.Len(t, ev.Control.Events, 1)
	assert.Equal(t, pform.EdgePos, ev.Control.Events[0].Edge)
	as, ok := ev.Stmt.(*pform.Assign)
	require.True(t, ok, "expected Assign, got %T", ev.Stmt)
	assert.True(t, as.NonBlocking)
}

func TestLoadModule(t *testing.T) {
	des, err := Load("counter.yaml", []byte(`
modules:
  - name: counter
    parameters:
      - {name: W, value: 4}
    wires:
      - {name: clk, port: input}
      - {name: q, port: output, type: "logic [W-1:0]"}
      - {name: n, range: "[W-1:0]"}
    gates:
      - assign: {lval: n, rval: "q + 1"}
    behaviors:
      - kind: always_ff
        body: "@(posedge clk) q <= n;"
`))
	require.NoError(t, err)
	require.Equal(t, []string{"counter"}, des.Order)
	m := des.Modules["counter"]
	require.NotNil(t, m)

	require.Len(t, m.Ports, 2)
	assert.Equal(t, "clk", m.Ports[0].Name)
	assert.Equal(t, 1, m.PortIndex("q"))

	clk := m.Wire("clk")
	require.NotNil(t, clk)
	assert.Equal(t, pform.PortInput, clk.Port)
	assert.Equal(t, pform.NetImplicit, clk.Kind)

	q := m.Wire("q")
	assert.Equal(t, pform.NetReg, q.Kind)
	assert.NotNil(t, q.Type)

	n := m.Wire("n")
	assert.Equal(t, pform.NetWire, n.Kind)
	assert.Len(t, n.NetRange, 1)
	assert.Less(t, clk.LexicalPos, n.LexicalPos)

	p := m.Parameter("W")
	require.NotNil(t, p)
	assert.True(t, p.Overridable)

	require.Len(t, m.Gates, 1)
	_, ok := m.Gates[0].(*pform.GAssign)
	assert.True(t, ok)
	require.Len(t, m.Behaviors, 1)
	assert.Equal(t, pform.ProcAlwaysFF, m.Behaviors[0].Kind)
	assert.Equal(t, "counter.yaml", m.File)
}

func TestLoadInstance(t *testing.T) {
	tests := []struct {
		name     string
		inst     string
		validate func(t *testing.T, g *pform.GModule)
	}{
		{
			name: "named",
			inst: `{module: sub, name: u, params: {W: 8}, ports: {a: x, b: ""}}`,
			validate: func(t *testing.T, g *pform.GModule) {
				require.Len(t, g.ParamsNamed, 1)
				assert.Equal(t, "W", g.ParamsNamed[0].Name)
				require.Len(t, g.PinsNamed, 2)
				assert.NotNil(t, g.PinsNamed[0].Expr)
				assert.Nil(t, g.PinsNamed[1].Expr)
			},
		},
		{
			name: "positional",
			inst: `{module: sub, name: u, params: [8], ports: [x, "", y]}`,
			validate: func(t *testing.T, g *pform.GModule) {
				assert.Len(t, g.ParamsPos, 1)
				require.Len(t, g.PinsPos, 3)
				assert.Nil(t, g.PinsPos[1])
			},
		},
		{
			name: "array with wildcard",
			inst: `{module: sub, name: u, range: "[3:0]", wildcard: true}`,
			validate: func(t *testing.T, g *pform.GModule) {
				assert.Len(t, g.Ranges, 1)
				assert.True(t, g.Wildcard)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, err := Load("t.yaml", []byte("modules:\n  - name: top\n    gates:\n      - instance: "+tt.inst+"\n"))
			require.NoError(t, err)
			gates := des.Modules["top"].Gates
			require.Len(t, gates, 1)
			g, ok := gates[0].(*pform.GModule)
			require.True(t, ok)
			assert.Equal(t, "sub", g.Type)
			tt.validate(t, g)
		})
	}
}

func TestLoadGenerate(t *testing.T) {
	des, err := Load("gen.yaml", []byte(`
modules:
  - name: top
    generate:
      - for:
          var: i
          init: "0"
          cond: "i < 4"
          step: "i + 1"
          block:
            name: g
            wires:
              - {name: w}
      - if:
          cond: "1"
          then:
            wires:
              - {name: t}
`))
	require.NoError(t, err)
	gens := des.Modules["top"].Generates
	require.Len(t, gens, 2)

	loop, ok := gens[0].(*pform.GenerateFor)
	require.True(t, ok)
	assert.Equal(t, "i", loop.Var)
	assert.Equal(t, "g", loop.Block.Name)
	assert.NotNil(t, loop.Block.Wire("w"))

	cond, ok := gens[1].(*pform.GenerateIf)
	require.True(t, ok)
	assert.Equal(t, 2, cond.Number())
	assert.Nil(t, cond.Else)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unknown top key", "wires: []\n", `unknown key "wires"`},
		{"module without name", "modules:\n  - {wires: []}\n", "module without a name"},
		{"unknown net kind", "modules:\n  - name: m\n    wires:\n      - {name: a, kind: bogus}\n", `unknown net kind "bogus"`},
		{"bad expression", "modules:\n  - name: m\n    gates:\n      - assign: {lval: a, rval: \"b +\"}\n", "t.yaml"},
		{"unknown process", "modules:\n  - name: m\n    behaviors:\n      - {kind: sometimes, body: \";\"}\n", "unknown process kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("t.yaml", []byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadEmpty(t *testing.T) {
	des, err := Load("empty.yaml", nil)
	require.NoError(t, err)
	assert.Empty(t, des.Modules)
	assert.NotNil(t, des.Unit)
}

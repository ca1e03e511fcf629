package elab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/internal/netlist"
)

func TestEnumParameterValue(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    typedefs:
      - {name: state, type: "enum logic [1:0] { IDLE, RUN = 2 }"}
    parameters:
      - {name: P, type: state, value: "2"}
      - {name: Q, type: state, value: "3"}
`)
	require.Zero(t, r.Errors(), r.Diagnostics())
	top := des.FindScope("top")
	require.NotNil(t, top)

	p := top.Param("P")
	require.NotNil(t, p)
	ec, ok := p.Value.(*netlist.EnumConstExpr)
	require.True(t, ok, "P is %T", p.Value)
	assert.Equal(t, "RUN", ec.Name.Name)
	assert.Equal(t, p.LineInfo, ec.Loc())

	// No literal has the value 3.
	q := top.Param("Q")
	require.NotNil(t, q)
	cq, ok := q.Value.(*netlist.ConstExpr)
	require.True(t, ok, "Q is %T", q.Value)
	v, _ := cq.Value.AsInt64()
	assert.Equal(t, int64(3), v)
	assert.Equal(t, q.LineInfo, cq.Loc())
}

func TestRealExpressionIsFolded(t *testing.T) {
	_, body := initialBody(t, `
      - {name: r, type: real}`, "r = 1.5 * 2.0;")

	a, ok := body.(*netlist.Assign)
	require.True(t, ok, "body is %T", body)
	rc, ok := a.Rval.(*netlist.RealConstExpr)
	require.True(t, ok, "value is %T", a.Rval)
	assert.Equal(t, 3.0, rc.Value)
	assert.NotZero(t, rc.Loc().Line)
}

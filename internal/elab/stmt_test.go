package elab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/internal/netlist"
)

// initialBody elaborates a module with one initial process and returns
// its statement tree.
func initialBody(t *testing.T, wires, body string) (*netlist.Design, netlist.Proc) {
	t.Helper()
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
`+wires+`
    behaviors:
      - kind: initial
        body: "`+body+`"
`)
	require.Zero(t, r.Errors(), r.Diagnostics())
	procs := des.Processes()
	require.Len(t, procs, 1)
	return des, procs[0].Stmt
}

func TestIntraAssignmentDelay(t *testing.T) {
	des, body := initialBody(t, `
      - {name: a, kind: reg, range: "[3:0]"}
      - {name: b, kind: reg, range: "[3:0]"}`, "a = #3 b;")

	blk, ok := body.(*netlist.Block)
	require.True(t, ok, "body is %T", body)
	require.Len(t, blk.Stmts, 2)

	// The value is sampled into a temporary first.
	save, ok := blk.Stmts[0].(*netlist.Assign)
	require.True(t, ok, "first statement is %T", blk.Stmts[0])
	require.Len(t, save.Lvals, 1)
	tmp := save.Lvals[0].Sig
	assert.True(t, tmp.IsLocal())
	assert.Equal(t, int64(4), tmp.Width())
	src, ok := save.Rval.(*netlist.SignalExpr)
	require.True(t, ok, "sampled value is %T", save.Rval)
	assert.Same(t, des.FindSignal("top.b"), src.Sig)

	// Then the delay, then the write of the temporary.
	wait, ok := blk.Stmts[1].(*netlist.PDelay)
	require.True(t, ok, "second statement is %T", blk.Stmts[1])
	d, ok := wait.Delay.(*netlist.ConstExpr)
	require.True(t, ok, "delay is %T", wait.Delay)
	v, _ := d.Value.AsInt64()
	assert.Equal(t, int64(3), v)

	write, ok := wait.Stmt.(*netlist.Assign)
	require.True(t, ok, "delayed statement is %T", wait.Stmt)
	assert.Equal(t, "a", write.Lvals[0].Sig.Name())
	rd, ok := write.Rval.(*netlist.SignalExpr)
	require.True(t, ok)
	assert.Same(t, tmp, rd.Sig)
}

func TestWaitLowering(t *testing.T) {
	t.Run("expression", func(t *testing.T) {
		des, body := initialBody(t, `
      - {name: start, kind: reg}
      - {name: q, kind: reg}`, "wait (start) q = 1;")

		blk, ok := body.(*netlist.Block)
		require.True(t, ok, "body is %T", body)
		require.Len(t, blk.Stmts, 2)

		loop, ok := blk.Stmts[0].(*netlist.While)
		require.True(t, ok, "first statement is %T", blk.Stmts[0])
		not, ok := loop.Cond.(*netlist.UnaryExpr)
		require.True(t, ok, "loop condition is %T", loop.Cond)
		assert.Equal(t, "!", not.Op)

		ev, ok := loop.Body.(*netlist.EvWait)
		require.True(t, ok, "loop body is %T", loop.Body)
		require.Len(t, ev.Events, 1)
		probes := ev.Events[0].Probes()
		require.Len(t, probes, 1)
		assert.Equal(t, netlist.EdgeAny, probes[0].Edge)
		assert.True(t, probes[0].Pin(0).IsLinkedTo(des.FindSignal("top.start").Pin(0)))

		_, ok = blk.Stmts[1].(*netlist.Assign)
		assert.True(t, ok, "last statement is %T", blk.Stmts[1])
	})

	t.Run("false constant", func(t *testing.T) {
		_, body := initialBody(t, `
      - {name: q, kind: reg}`, "wait (0) q = 1;")

		ev, ok := body.(*netlist.EvWait)
		require.True(t, ok, "body is %T", body)
		require.Len(t, ev.Events, 1)
		assert.True(t, ev.Events[0].NeverTriggered())
		assert.NotNil(t, ev.Stmt)
	})

	t.Run("true constant", func(t *testing.T) {
		_, body := initialBody(t, `
      - {name: q, kind: reg}`, "wait (1) q = 1;")

		_, ok := body.(*netlist.Assign)
		assert.True(t, ok, "body is %T", body)
	})
}

func TestForeachLowering(t *testing.T) {
	tests := []struct {
		name     string
		array    string
		validate func(t *testing.T, loop *netlist.For)
	}{
		{
			name:  "ascending unpacked",
			array: `{name: m, kind: reg, range: "[7:0]", unpacked: "[0:3]"}`,
			validate: func(t *testing.T, loop *netlist.For) {
				cond := loop.Cond.(*netlist.BinaryExpr)
				assert.Equal(t, "<=", cond.Op)
				to, ok := cond.Right.(*netlist.ConstExpr)
				require.True(t, ok, "bound is %T", cond.Right)
				v, _ := to.Value.AsInt64()
				assert.Equal(t, int64(3), v)
				step, ok := loop.Step.(*netlist.Assign).Rval.(*netlist.BinaryExpr)
				require.True(t, ok)
				assert.Equal(t, "+", step.Op)
			},
		},
		{
			name:  "descending unpacked",
			array: `{name: m, kind: reg, range: "[7:0]", unpacked: "[3:0]"}`,
			validate: func(t *testing.T, loop *netlist.For) {
				cond := loop.Cond.(*netlist.BinaryExpr)
				assert.Equal(t, ">=", cond.Op)
				to := cond.Right.(*netlist.ConstExpr)
				v, _ := to.Value.AsInt64()
				assert.Equal(t, int64(0), v)
			},
		},
		{
			name:  "dynamic array",
			array: `{name: m, kind: reg, range: "[7:0]", unpacked: "[]"}`,
			validate: func(t *testing.T, loop *netlist.For) {
				cond := loop.Cond.(*netlist.BinaryExpr)
				assert.Equal(t, "<=", cond.Op)
				hi, ok := cond.Right.(*netlist.SFuncExpr)
				require.True(t, ok, "bound is %T", cond.Right)
				assert.Equal(t, "$high", hi.Name)
				require.Len(t, hi.Args, 1)
				arr, ok := hi.Args[0].(*netlist.SignalExpr)
				require.True(t, ok)
				assert.Equal(t, "m", arr.Sig.Name())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body := initialBody(t, `
      - `+tt.array+`
      - {name: x, type: int}`, "foreach (m[i]) x = i;")

			blk, ok := body.(*netlist.Block)
			require.True(t, ok, "body is %T", body)
			require.NotEqual(t, netlist.NoScope, blk.Scope)
			require.Len(t, blk.Stmts, 1)
			loop, ok := blk.Stmts[0].(*netlist.For)
			require.True(t, ok, "loop is %T", blk.Stmts[0])

			init, ok := loop.Init.(*netlist.Assign)
			require.True(t, ok)
			assert.Equal(t, "i", init.Lvals[0].Sig.Name())
			_, ok = loop.Body.(*netlist.Assign)
			assert.True(t, ok, "loop body is %T", loop.Body)
			tt.validate(t, loop)
		})
	}
}

package elab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/verinum"
)

func TestUnconnectedDrive(t *testing.T) {
	tests := []struct {
		name      string
		directive string
		wantPull  bool
		value     verinum.Bit
	}{
		{name: "pull1", directive: "\n    unconnected_drive: pull1", wantPull: true, value: verinum.V1},
		{name: "pull0", directive: "\n    unconnected_drive: pull0", wantPull: true, value: verinum.V0},
		{name: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, `
modules:
  - name: top
    gates:
      - instance: {module: sub, name: u}
  - name: sub`+tt.directive+`
    wires:
      - {name: a, port: input, range: "[1:0]"}
`)
			require.Zero(t, r.Errors(), r.Diagnostics())
			a := des.FindSignal("top.u.a")
			require.NotNil(t, a)

			pulls := nodesOf[*netlist.Pull](des)
			if !tt.wantPull {
				assert.Empty(t, pulls)
				assert.Equal(t, 1, countMessages(r, elaberr.SeverityWarning, "is not connected"), r.Diagnostics())
				return
			}
			require.Len(t, pulls, 1)
			assert.Equal(t, tt.value, pulls[0].Value)
			assert.Equal(t, int64(2), pulls[0].Width())
			assert.Equal(t, netlist.StrPull, pulls[0].Pin(0).Drive0())
			assert.True(t, pulls[0].Pin(0).IsLinkedTo(a.Pin(0)))
			assert.Zero(t, countMessages(r, elaberr.SeverityWarning, "is not connected"))
		})
	}
}

func TestDelayPathOutputIsIsolated(t *testing.T) {
	tests := []struct {
		name    string
		specify string
		want    int
	}{
		{name: "with path", specify: "\n    specify:\n      - {from: a, to: y, delay: \"3\"}", want: 1},
		{name: "without path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: x}
      - {name: z}
    gates:
      - instance: {module: sub, name: u, ports: {a: x, y: z}}
  - name: sub`+tt.specify+`
    wires:
      - {name: a, port: input}
      - {name: y, port: output}
    gates:
      - assign: {lval: y, rval: a}
`)
			require.Zero(t, r.Errors(), r.Diagnostics())
			y := des.FindSignal("top.u.y")
			require.NotNil(t, y)
			assert.Equal(t, tt.want, y.DelayPaths())

			var isolating []*netlist.Bufz
			for _, b := range nodesOf[*netlist.Bufz](des) {
				if b.Isolating {
					isolating = append(isolating, b)
				}
			}
			require.Len(t, isolating, tt.want)
			if tt.want == 0 {
				return
			}
			buf := isolating[0]
			assert.True(t, buf.Pin(1).IsLinkedTo(y.Pin(0)))
			assert.True(t, buf.Pin(0).IsLinkedTo(des.FindSignal("top.z").Pin(0)))
			assert.False(t, buf.Pin(0).IsLinkedTo(y.Pin(0)))
		})
	}
}

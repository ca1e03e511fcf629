package elab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/config"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/verinum"
)

func TestSupplyNets(t *testing.T) {
	tests := []struct {
		kind     string
		value    verinum.Bit
		strength netlist.Strength
	}{
		{"supply0", verinum.V0, netlist.StrSupply},
		{"supply1", verinum.V1, netlist.StrSupply},
		{"tri0", verinum.V0, netlist.StrPull},
		{"tri1", verinum.V1, netlist.StrPull},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: p, kind: `+tt.kind+`, range: "[3:0]"}
`)
			require.Zero(t, r.Errors(), r.Diagnostics())
			p := des.FindSignal("top.p")
			require.NotNil(t, p)
			if tt.strength == netlist.StrSupply {
				assert.Equal(t, netlist.SigWire, p.Kind())
			}

			pulls := nodesOf[*netlist.Pull](des)
			require.Len(t, pulls, 1)
			pull := pulls[0]
			assert.Equal(t, tt.value, pull.Value)
			assert.Equal(t, int64(4), pull.Width())
			assert.Equal(t, tt.strength, pull.Pin(0).Drive0())
			assert.Equal(t, tt.strength, pull.Pin(0).Drive1())
			assert.True(t, pull.Pin(0).IsLinkedTo(p.Pin(0)))
		})
	}
}

func TestQueueDeclarations(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: q, type: int, unpacked: "[$]"}
      - {name: qb, type: int, unpacked: "[$:3]"}
      - {name: qn, type: int, unpacked: "[$:-1]"}
      - {name: qa, type: int, unpacked: "[2][$]"}
`)
	queue := func(name string) *netlist.QueueType {
		t.Helper()
		sig := des.FindSignal("top." + name)
		require.NotNil(t, sig, name)
		qt, ok := sig.Type().(*netlist.QueueType)
		require.True(t, ok, "%s has type %T", name, sig.Type())
		return qt
	}

	assert.Equal(t, int64(-1), queue("q").MaxIndex)
	assert.Equal(t, int64(3), queue("qb").MaxIndex)
	assert.Equal(t, int64(-1), queue("qn").MaxIndex)

	assert.Equal(t, 1, countMessages(r, elaberr.SeveritySorry, "queue bound"), r.Diagnostics())
	assert.Equal(t, 1, countMessages(r, elaberr.SeveritySorry, "arrays of queues"), r.Diagnostics())
	assert.Equal(t, 2, r.Errors())
}

func TestWideVectorWarning(t *testing.T) {
	const design = `
modules:
  - name: top
    wires:
      - {name: v, range: "[31:0]"}
`
	assert.Equal(t, int64(1)<<30, config.DefaultConfig().Limits.MaxVectorWidth)

	_, r := elaborate(t, design)
	assert.Zero(t, countMessages(r, elaberr.SeverityWarning, "bits wide"))

	_, r = elaborate(t, design, func(cfg *config.Config) { cfg.Limits.MaxVectorWidth = 16 })
	assert.Zero(t, r.Errors(), r.Diagnostics())
	assert.Equal(t, 1, countMessages(r, elaberr.SeverityWarning, "v is 32 bits wide"), r.Diagnostics())
}

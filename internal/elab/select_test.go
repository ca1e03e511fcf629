package elab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/netlist"
)

func TestUnusableSelectBaseIsDropped(t *testing.T) {
	tests := []struct {
		name    string
		lhs     string
		warning string
		text    string
	}{
		{name: "undefined base", lhs: "v[1'bx +: 4]", warning: "undefined index", text: "1'bx"},
		{name: "wrapped unsigned base", lhs: "v[32'hFFFFFFFF +: 4]", warning: "out of range", text: "4294967295"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: v, range: "[7:0]"}
      - {name: x, range: "[3:0]"}
    gates:
      - assign: {lval: "`+tt.lhs+`", rval: x}
`)
			assert.Zero(t, r.Errors(), r.Diagnostics())
			warnings := r.Filter(elaberr.SeverityWarning)
			require.Len(t, warnings, 1, r.Diagnostics())
			assert.Contains(t, warnings[0].Msg, tt.warning)
			assert.Contains(t, warnings[0].Msg, tt.text)
			assert.NotContains(t, warnings[0].Msg, "'sb")

			assert.Empty(t, partSelects(des, netlist.PartPV))
			assert.False(t, des.FindSignal("top.v").Pin(0).IsLinked())
		})
	}
}

func TestSelectBelowBitZeroIsUnsupported(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: v, range: "[7:0]"}
      - {name: x, range: "[3:0]"}
    gates:
      - assign: {lval: "v[-2 +: 4]", rval: x}
`)
	assert.Equal(t, 1, countMessages(r, elaberr.SeveritySorry, "below bit 0"), r.Diagnostics())
	assert.Zero(t, countMessages(r, elaberr.SeverityError, ""))
	assert.Empty(t, partSelects(des, netlist.PartPV))
}

func TestPackedTargets(t *testing.T) {
	tests := []struct {
		name     string
		typedefs string
		decl     string
		lhs      string
		rhs      string
		target   string
		wantBase int64
		wantW    int64
	}{
		{
			name:     "packed array element",
			decl:     `{name: m, kind: wire, type: "logic [3:0][7:0]"}`,
			lhs:      "m[2]",
			rhs:      `{name: x, range: "[7:0]"}`,
			target:   "top.m",
			wantBase: 16,
			wantW:    8,
		},
		{
			name:     "packed array slice",
			decl:     `{name: m, kind: wire, type: "logic [3:0][7:0]"}`,
			lhs:      "m[2:1]",
			rhs:      `{name: x, range: "[15:0]"}`,
			target:   "top.m",
			wantBase: 8,
			wantW:    16,
		},
		{
			name: "nested struct member",
			typedefs: `
    typedefs:
      - {name: inner, type: "struct packed { logic [1:0] x; logic [2:0] y; }"}
      - {name: outer, type: "struct packed { logic a; inner b; logic [3:0] c; }"}`,
			decl:     `{name: s, kind: wire, type: outer}`,
			lhs:      "s.b.y",
			rhs:      `{name: x, range: "[2:0]"}`,
			target:   "top.s",
			wantBase: 4,
			wantW:    3,
		},
		{
			name: "struct member bit",
			typedefs: `
    typedefs:
      - {name: inner, type: "struct packed { logic [1:0] x; logic [2:0] y; }"}
      - {name: outer, type: "struct packed { logic a; inner b; logic [3:0] c; }"}`,
			decl:     `{name: s, kind: wire, type: outer}`,
			lhs:      "s.b.x[1]",
			rhs:      `{name: x}`,
			target:   "top.s",
			wantBase: 8,
			wantW:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			des, r := elaborate(t, `
modules:
  - name: top`+tt.typedefs+`
    wires:
      - `+tt.decl+`
      - `+tt.rhs+`
    gates:
      - assign: {lval: "`+tt.lhs+`", rval: x}
`)
			require.Zero(t, r.Errors(), r.Diagnostics())
			pvs := partSelects(des, netlist.PartPV)
			require.Len(t, pvs, 1)
			assert.Equal(t, tt.wantBase, pvs[0].Base)
			assert.Equal(t, tt.wantW, pvs[0].Width())
			sig := des.FindSignal(tt.target)
			require.NotNil(t, sig)
			assert.Equal(t, sig.Width(), pvs[0].VectorWidth)
			assert.True(t, pvs[0].Pin(1).IsLinkedTo(sig.Pin(0)))
		})
	}
}

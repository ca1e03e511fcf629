package netlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/elaberr"
)

func TestRange(t *testing.T) {
	tests := []struct {
		name     string
		r        Range
		idx      int64
		width    int64
		offset   int64
		contains bool
	}{
		{"descending msb", Range{Msb: 7, Lsb: 0}, 7, 8, 7, true},
		{"descending lsb", Range{Msb: 7, Lsb: 0}, 0, 8, 0, true},
		{"ascending left", Range{Msb: 0, Lsb: 7}, 0, 8, 7, true},
		{"ascending right", Range{Msb: 0, Lsb: 7}, 7, 8, 0, true},
		{"offset range", Range{Msb: 15, Lsb: 8}, 9, 8, 1, true},
		{"below", Range{Msb: 15, Lsb: 8}, 7, 8, -1, false},
		{"scalar", Range{}, 0, 1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.width, tt.r.Width())
			assert.Equal(t, tt.offset, tt.r.Offset(tt.idx))
			assert.Equal(t, tt.contains, tt.r.Contains(tt.idx))
		})
	}
}

func TestConnectMergesNexus(t *testing.T) {
	a := NewSignal(1, "a", SigWire, NewVector(BaseLogic, 4, false), nil)
	b := NewSignal(1, "b", SigWire, NewVector(BaseLogic, 4, false), nil)
	c := NewSignal(1, "c", SigReg, NewVector(BaseLogic, 4, false), nil)

	assert.False(t, a.Pin(0).IsLinked())
	Connect(a.Pin(0), b.Pin(0))
	assert.True(t, a.Pin(0).IsLinkedTo(b.Pin(0)))
	assert.False(t, a.Pin(0).IsLinkedTo(c.Pin(0)))

	Connect(c.Pin(0), b.Pin(0))
	assert.True(t, a.Pin(0).IsLinkedTo(c.Pin(0)))
	assert.Len(t, a.Pin(0).Nexus().Links(), 3)
	assert.Len(t, a.Pin(0).Nexus().Drivers(), 1)
	assert.Len(t, a.Pin(0).Nexus().Signals(), 3)

	// Joining twice is harmless.
	Connect(a.Pin(0), c.Pin(0))
	assert.Len(t, a.Pin(0).Nexus().Links(), 3)
}

func TestSignalWords(t *testing.T) {
	mem := NewSignal(1, "mem", SigReg, NewVector(BaseLogic, 8, false), []Range{{Msb: 0, Lsb: 3}, {Msb: 1, Lsb: 0}})
	assert.Equal(t, int64(8), mem.Words())
	assert.Equal(t, int64(8), mem.Width())
	assert.True(t, mem.IsArray())

	w, ok := mem.WordIndex([]int64{2, 0})
	require.True(t, ok)
	assert.Equal(t, int64(5), w)
	_, ok = mem.WordIndex([]int64{4, 0})
	assert.False(t, ok)
	_, ok = mem.WordIndex([]int64{1})
	assert.False(t, ok)
}

func TestPartDrivers(t *testing.T) {
	s := NewSignal(1, "s", SigWire, NewVector(BaseLogic, 8, false), nil)
	assert.False(t, s.TestAndSetPartDriver(3, 0, 0))
	assert.False(t, s.TestAndSetPartDriver(7, 4, 0))
	assert.True(t, s.TestAndSetPartDriver(4, 4, 0))
	assert.False(t, s.TestAndSetPartDriver(3, 0, 1))
}

func TestSetKindChangesPinDirection(t *testing.T) {
	s := NewSignal(1, "s", SigWire, LogicScalar, nil)
	assert.Equal(t, PinPassive, s.Pin(0).Dir())
	s.SetKind(SigReg)
	assert.Equal(t, PinOutput, s.Pin(0).Dir())
	s.SetKind(SigWire)
	assert.Equal(t, PinPassive, s.Pin(0).Dir())
}

func TestPartSelectPins(t *testing.T) {
	vp := NewPartSelect(1, "vp", 8, 2, 4, PartVP)
	assert.Equal(t, PinOutput, vp.Pin(0).Dir())
	assert.Equal(t, PinInput, vp.Pin(1).Dir())

	pv := NewPartSelect(1, "pv", 8, 2, 4, PartPV)
	assert.Equal(t, PinInput, pv.Pin(0).Dir())
	assert.Equal(t, PinOutput, pv.Pin(1).Dir())
}

func TestDesignLookup(t *testing.T) {
	des := NewDesign(elaberr.NewReporter(nil))
	top := des.NewScope(NoScope, Named("top"), ScopeModule)
	des.AddRoot(top.ID())
	g0 := des.NewScope(top.ID(), Indexed("g", 0), ScopeGenerate)
	g1 := des.NewScope(top.ID(), Indexed("g", 1), ScopeGenerate)
	u := des.NewScope(g1.ID(), Named("u"), ScopeModule)
	sig := NewSignal(u.ID(), "x", SigWire, LogicScalar, nil)
	u.AddSignal(sig)

	assert.Same(t, top, des.FindScope("top"))
	assert.Same(t, g0, des.FindScope("top.g[0]"))
	assert.Same(t, u, des.FindScope("top.g[1].u"))
	assert.Nil(t, des.FindScope("top.g[2]"))
	assert.Nil(t, des.FindScope("other"))
	assert.Same(t, sig, des.FindSignal("top.g[1].u.x"))
	assert.Nil(t, des.FindSignal("top.g[1].u.y"))

	assert.Equal(t, "top.g[1].u", des.Path(u.ID()))
	assert.Equal(t, []ScopeID{g0.ID(), g1.ID()}, top.Children())
	require.Len(t, des.Roots(), 1)
}

func TestStageOnlyAdvances(t *testing.T) {
	des := NewDesign(elaberr.NewReporter(nil))
	s := des.NewScope(NoScope, Named("m"), ScopeModule)
	assert.Equal(t, StageNone, s.Stage())
	assert.True(t, s.AdvanceStage(StageSignals))
	assert.False(t, s.AdvanceStage(StageScope))
	assert.Equal(t, StageSignals, s.Stage())
}

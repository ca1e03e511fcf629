package elab

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/config"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform/loader"
)

func runContext(t *testing.T, src string) *elabContext {
	t.Helper()
	pf, err := loader.Load("test.yaml", []byte(src))
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := config.DefaultConfig()
	cfg.Language.Generation = config.Gen2012
	c := newContext(cfg, pf, elaberr.NewReporter(nil), logger)
	c.run()
	return c
}

func TestSignalElaborationIsIdempotent(t *testing.T) {
	c := runContext(t, `
modules:
  - name: top
    wires:
      - {name: s, kind: uwire, range: "[7:0]"}
      - {name: x, range: "[7:0]"}
    gates:
      - assign: {lval: s, rval: x}
`)
	require.Zero(t, c.diag.Errors(), c.diag.Diagnostics())
	top := c.des.FindScope("top")
	require.NotNil(t, top)
	w := c.src.Modules["top"].Wire("s")
	require.NotNil(t, w)

	before := len(c.diag.Diagnostics())
	first := c.elabSig(top, w)
	second := c.elabSig(top, w)
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Same(t, top.Signal("s"), first)
	assert.Len(t, c.diag.Diagnostics(), before)

	// Another request for the whole scope changes nothing either.
	n := len(top.Signals())
	c.elabSigs(top)
	assert.Len(t, top.Signals(), n)
}

func TestCircularSignalDeclaration(t *testing.T) {
	c := runContext(t, `
modules:
  - name: top
    wires:
      - {name: a, range: "[$bits(b)-1:0]"}
      - {name: b, range: "[$bits(a)-1:0]"}
`)
	n := 0
	for _, d := range c.diag.Filter(elaberr.SeverityError) {
		if d.Msg == "circular dependency in the declaration of a." || d.Msg == "circular dependency in the declaration of b." {
			n++
		}
	}
	assert.Equal(t, 1, n, c.diag.Diagnostics())
	// The stub keeps later lookups of the name quiet.
	assert.Equal(t, 1, c.diag.Errors(), c.diag.Diagnostics())

	top := c.des.FindScope("top")
	require.NotNil(t, top)
	assert.NotNil(t, top.Signal("a"))
	assert.NotNil(t, top.Signal("b"))
}

func TestTypeCache(t *testing.T) {
	c := runContext(t, `
modules:
  - name: top
    typedefs:
      - {name: word, type: "logic [15:0]"}
      - {name: pair, type: "struct packed { word hi; word lo; }"}
    wires:
      - {name: p, type: pair}
`)
	require.Zero(t, c.diag.Errors(), c.diag.Diagnostics())
	top := c.des.FindScope("top")
	dt := c.src.Modules["top"].Wire("p").Type

	first := c.elabType(dt, top)
	second := c.elabType(dt, top)
	assert.Same(t, first, second)
	assert.True(t, netlist.Compatible(first, second))
	assert.Equal(t, int64(32), first.PackedWidth())
}

func TestCircularTypeReportedOnce(t *testing.T) {
	c := runContext(t, `
modules:
  - name: top
    typedefs:
      - {name: ta, type: tb}
      - {name: tb, type: ta}
    wires:
      - {name: x, type: ta}
      - {name: y, type: tb}
`)
	n := 0
	for _, d := range c.diag.Filter(elaberr.SeverityError) {
		if len(d.Msg) >= 24 && d.Msg[:24] == "circular type definition" {
			n++
		}
	}
	assert.Equal(t, 1, n, c.diag.Diagnostics())

	// Asking again hits the cache.
	before := c.diag.Errors()
	c.elabType(c.src.Modules["top"].Wire("x").Type, c.des.FindScope("top"))
	assert.Equal(t, before, c.diag.Errors())
}

func TestPhasesRunInOrder(t *testing.T) {
	c := runContext(t, `
modules:
  - name: top
    gates:
      - instance: {module: sub, name: u}
  - name: sub
    wires:
      - {name: a, port: input}
`)
	assert.Equal(t, phaseCheck, c.phase)
	for _, s := range c.des.Scopes() {
		assert.Equal(t, netlist.StageElaborated, s.Stage(), c.des.Path(s.ID()))
	}
}

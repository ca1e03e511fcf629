package elab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenblkNames(t *testing.T) {
	des, r := elaborate(t, `
modules:
  - name: top
    wires:
      - {name: genblk2}
    generate:
      - if: {cond: "1", then: {wires: [{name: a}]}}
      - if: {cond: "1", then: {wires: [{name: b}]}}
`)
	require.Zero(t, r.Errors(), r.Diagnostics())

	first := des.FindScope("top.genblk1")
	require.NotNil(t, first)
	assert.NotNil(t, first.Signal("a"))

	// genblk2 is taken by the wire.
	assert.Nil(t, des.FindScope("top.genblk2"))
	second := des.FindScope("top.genblk02")
	require.NotNil(t, second)
	assert.NotNil(t, second.Signal("b"))
	assert.NotNil(t, des.FindSignal("top.genblk2"))
}

package instgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/internal/pform"
	"martianoff/velab/internal/pform/loader"
)

func load(t *testing.T, src string) *pform.Design {
	t.Helper()
	des, err := loader.Load("graph.yaml", []byte(src))
	require.NoError(t, err)
	return des
}

func TestBuildEdgesAndRoots(t *testing.T) {
	des := load(t, `
udps:
  - name: mux
    ports: [o, a, b]
modules:
  - name: top
    gates:
      - instance: {module: mid, name: m0}
      - instance: {module: mid, name: m1}
      - instance: {module: mux, name: p0}
  - name: mid
    gates:
      - instance: {module: leaf, name: l}
  - name: leaf
  - name: tb
    gates:
      - instance: {module: ghost, name: g}
`)
	g := Build(des)

	top := g.GetNode("top")
	require.NotNil(t, top)
	assert.Len(t, top.Children, 2)
	assert.Len(t, g.GetNode("mid").Parents, 2)
	assert.Nil(t, g.GetNode("mux"))

	require.Len(t, g.Undefined, 1)
	assert.Equal(t, "g", g.Undefined[0].Instance)
	assert.Equal(t, []string{"top", "tb"}, g.Roots())
}

func TestCellsAreNeverRoots(t *testing.T) {
	des := load(t, `
modules:
  - name: top
  - name: lib_cell
    cell: true
`)
	assert.Equal(t, []string{"top"}, Build(des).Roots())
}

func TestGenerateEdgesAreConditional(t *testing.T) {
	des := load(t, `
modules:
  - name: top
    gates:
      - instance: {module: a, name: u0}
    generate:
      - if:
          cond: "1"
          then:
            gates:
              - instance: {module: b, name: u1}
      - block:
          name: plain
          gates:
            - instance: {module: c, name: u2}
  - name: a
  - name: b
  - name: c
`)
	g := Build(des)
	cond := map[string]bool{}
	for _, e := range g.GetNode("top").Children {
		cond[e.Instance] = e.Conditional
	}
	assert.Equal(t, map[string]bool{"u0": false, "u1": true, "u2": false}, cond)
}

func TestFindAllCycles(t *testing.T) {
	des := load(t, `
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
	g := Build(des)
	cycles := g.FindAllCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "a"}, cycles[0].Cycle)
	assert.Equal(t, "recursive instantiation: a -> b -> a", cycles[0].Error())
	assert.Equal(t, map[string]bool{"a": true, "b": true}, InCycle(cycles))
}

func TestConditionalRecursionIsNotACycle(t *testing.T) {
	des := load(t, `
modules:
  - name: tree
    parameters:
      - {name: D, value: "3"}
    generate:
      - if:
          cond: "D > 0"
          then:
            gates:
              - instance: {module: tree, name: sub, params: {D: "D - 1"}}
`)
	g := Build(des)
	assert.Empty(t, g.FindAllCycles())
	assert.Equal(t, []string{"tree"}, g.TopologicalSort())
}

func TestTopologicalSort(t *testing.T) {
	des := load(t, `
modules:
  - name: top
    gates:
      - instance: {module: mid, name: m}
  - name: mid
    gates:
      - instance: {module: leaf, name: l}
  - name: leaf
`)
	order := Build(des).TopologicalSort()
	require.Len(t, order, 3)
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	assert.Less(t, pos["leaf"], pos["mid"])
	assert.Less(t, pos["mid"], pos["top"])
}

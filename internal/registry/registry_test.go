package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform/loader"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r)
	assert.Empty(t, r.Packages())
	assert.Nil(t, r.Prelude())
}

func TestRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(PackageInfo{
		Name:    "cfg",
		Scope:   netlist.ScopeID(3),
		Exports: map[string]Kind{"WIDTH": KindParameter, "word_t": KindType},
	}))

	info, kind, err := r.Resolve("cfg", "WIDTH")
	require.NoError(t, err)
	assert.Equal(t, netlist.ScopeID(3), info.Scope)
	assert.Equal(t, KindParameter, kind)

	_, _, err = r.Resolve("cfg", "DEPTH")
	assert.EqualError(t, err, "DEPTH is not declared in package cfg")
	_, _, err = r.Resolve("nope", "WIDTH")
	assert.EqualError(t, err, "package nope is not declared")
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(PackageInfo{Name: "p"}))
	err := r.Register(PackageInfo{Name: "p"})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "package p is already declared", err.Error())
}

func TestPrelude(t *testing.T) {
	r := NewRegistry()
	r.RegisterPrelude(PackageInfo{Name: "$unit", Exports: map[string]Kind{"G": KindParameter}})
	assert.True(t, r.IsPreludePackage("$unit"))
	assert.False(t, r.IsPreludePackage("cfg"))
	require.NotNil(t, r.Prelude())
	assert.True(t, r.Prelude().IsPrelude)
	assert.True(t, r.Prelude().Has("G"))
}

func TestVisible(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(PackageInfo{Name: "a", Exports: map[string]Kind{"x": KindParameter, "y": KindParameter}}))
	require.NoError(t, r.Register(PackageInfo{Name: "b", Exports: map[string]Kind{"y": KindParameter}}))

	info, err := r.Visible("x", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "a", info.Name)

	info, err = r.Visible("z", []string{"a", "b"})
	assert.NoError(t, err)
	assert.Nil(t, info)

	_, err = r.Visible("y", []string{"b", "a"})
	var amb *AmbiguousError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, "y is imported from more than one package (a, b)", err.Error())

	// importing the same package twice is not ambiguous
	info, err = r.Visible("y", []string{"b", "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", info.Name)
}

func TestCheckConflict(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.CheckConflict("x", "p", map[string]bool{"y": true}))
	err := r.CheckConflict("x", "p", map[string]bool{"x": true})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, err.Error(), "p::x")
}

func TestBuildInfo(t *testing.T) {
	des, err := loader.Load("pkg.yaml", []byte(`
packages:
  - name: types
    parameters:
      - {name: W, value: "8"}
      - {name: T, is_type: true, type: "logic [3:0]"}
    typedefs:
      - {name: state_t, type: "enum {IDLE, RUN}"}
    functions:
      - {name: f, returns: "int", body: "f = 1;"}
    tasks:
      - {name: t, body: ";"}
`))
	require.NoError(t, err)
	info := BuildInfo(des.Package("types"), netlist.ScopeID(7))
	assert.Equal(t, "types", info.Name)
	assert.Equal(t, map[string]Kind{
		"W":       KindParameter,
		"T":       KindType,
		"state_t": KindType,
		"IDLE":    KindEnumLiteral,
		"RUN":     KindEnumLiteral,
		"f":       KindFunction,
		"t":       KindTask,
	}, info.Exports)

	unit := BuildInfo(des.Unit, netlist.ScopeID(1))
	assert.Equal(t, "$unit", unit.Name)
	assert.Empty(t, unit.Exports)
}

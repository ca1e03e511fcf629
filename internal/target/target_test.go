package target

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bazelbuild/rules_go/go/tools/bazel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/velab/elaberr"
	"martianoff/velab/internal/config"
	"martianoff/velab/internal/elab"
	"martianoff/velab/internal/netlist"
	"martianoff/velab/internal/pform/loader"
)

// fixture finds a file under testdata, through Bazel runfiles when
// running under Bazel and relative to the module root otherwise.
func fixture(t *testing.T, name string) string {
	t.Helper()
	if p, err := bazel.Runfile(filepath.Join("internal/target/testdata", name)); err == nil {
		return p
	}
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "internal/target/testdata", name)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("testdata %s not found", name)
		}
		dir = parent
	}
}

func elaborateFixture(t *testing.T) *netlist.Design {
	t.Helper()
	src, err := loader.LoadFile(fixture(t, "counter.yaml"))
	require.NoError(t, err)
	cfg := config.DefaultConfig()
	cfg.Language.Generation = config.Gen2012
	cfg.Roots = []string{"top"}
	r := elaberr.NewReporter(nil)
	des, err := elab.New(cfg, elab.WithDiagnostics(r)).Elaborate(src)
	require.NoError(t, err, r.Diagnostics())
	return des
}

func TestDump(t *testing.T) {
	des := elaborateFixture(t)
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, des))
	out := buf.String()

	for _, want := range []string{
		"SCOPES:",
		"module top",
		"module top.u (counter)",
		"parameter W = ",
		"NODES:",
		"const top.",
		"PROCESSES:",
		"always_ff top.u push",
		"initial top",
		"@(",
		"if (",
		"#(",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "SCOPES:"), strings.Index(out, "NODES:"))
	assert.Less(t, strings.Index(out, "NODES:"), strings.Index(out, "PROCESSES:"))
}

func TestExportJSON(t *testing.T) {
	des := elaborateFixture(t)
	data, err := ExportJSON(des)
	require.NoError(t, err)

	var n Netlist
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Equal(t, "1.4.0", n.APIVersion)
	require.Len(t, n.Roots, 1)
	assert.Zero(t, n.Errors)

	byPath := make(map[string]Scope)
	for _, s := range n.Scopes {
		byPath[s.Path] = s
	}
	u, ok := byPath["top.u"]
	require.True(t, ok)
	assert.Equal(t, "counter", u.Module)
	assert.Equal(t, n.Roots[0], u.Parent)

	var q *Signal
	for i := range u.Signals {
		if u.Signals[i].Name == "q" {
			q = &u.Signals[i]
		}
	}
	require.NotNil(t, q)
	assert.Equal(t, int64(8), q.Width)
	assert.Equal(t, "output", q.Port)

	// The output of the instance shares a nexus with top.b.
	var b *Signal
	for i, s := range byPath["top"].Signals {
		if s.Name == "b" {
			b = &byPath["top"].Signals[i]
		}
	}
	require.NotNil(t, b)
	assert.Equal(t, b.Nexuses, q.Nexuses)

	require.Len(t, n.Processes, 2)
	kinds := []string{n.Processes[0].Kind, n.Processes[1].Kind}
	assert.ElementsMatch(t, []string{"always_ff", "initial"}, kinds)
	for _, nx := range n.Nexuses {
		assert.GreaterOrEqual(t, nx.Links, 1)
	}
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"json", "text"}, Names())
	for _, name := range Names() {
		b, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, b.Name())
	}
	_, err := Lookup("vvp")
	assert.Error(t, err)
}

func TestBackendsEmit(t *testing.T) {
	des := elaborateFixture(t)
	for _, name := range Names() {
		b, err := Lookup(name)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, b.Emit(&buf, des), name)
		assert.NotEmpty(t, buf.String(), name)
	}
}

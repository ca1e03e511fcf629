package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterDesign = `
modules:
  - name: top
    wires:
      - {name: clk, kind: logic}
      - {name: q, type: "logic [3:0]"}
    behaviors:
      - kind: always
        body: "@(posedge clk) q <= q + 1;"
`

const brokenDesign = `
modules:
  - name: top
    gates:
      - instance: {module: missing, name: u}
`

func writeDesign(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "design.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func resetOptions(t *testing.T) {
	t.Helper()
	saved := opts
	opts = options{target: "text"}
	t.Cleanup(func() { opts = saved })
}

func TestElaborateFile(t *testing.T) {
	tests := []struct {
		name     string
		design   string
		target   string
		wantErr  bool
		validate func(t *testing.T, out, stderr string)
	}{
		{
			name:   "text dump",
			design: counterDesign,
			target: "text",
			validate: func(t *testing.T, out, stderr string) {
				assert.Contains(t, out, "always top push")
				assert.Empty(t, stderr)
			},
		},
		{
			name:   "json export",
			design: counterDesign,
			target: "json",
			validate: func(t *testing.T, out, stderr string) {
				var n map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &n))
				assert.Equal(t, "1.4.0", n["api_version"])
			},
		},
		{
			name:    "unknown module",
			design:  brokenDesign,
			target:  "text",
			wantErr: true,
			validate: func(t *testing.T, out, stderr string) {
				assert.Empty(t, out)
				assert.Contains(t, stderr, "missing")
			},
		},
		{
			name:    "unknown target",
			design:  counterDesign,
			target:  "vvp",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetOptions(t)
			opts.target = tt.target
			path := writeDesign(t, t.TempDir(), tt.design)

			var out, stderr bytes.Buffer
			err := elaborateFile(path, &out, &stderr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err, stderr.String())
			}
			if tt.validate != nil {
				tt.validate(t, out.String(), stderr.String())
			}
		})
	}
}

func TestConfigNextToDesign(t *testing.T) {
	resetOptions(t)
	dir := t.TempDir()
	path := writeDesign(t, dir, counterDesign)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "velab.yaml"), []byte("api:\n  require: \">= 2\"\n"), 0644))

	var out, stderr bytes.Buffer
	err := elaborateFile(path, &out, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not satisfy")
}

func TestCommandLineOverrides(t *testing.T) {
	resetOptions(t)
	opts.generation = "2005"
	opts.roots = []string{"top"}
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "design.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "2005", string(cfg.Language.Generation))
	assert.Equal(t, []string{"top"}, cfg.Roots)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.True(t, strings.HasPrefix(out.String(), "velab version "))
	assert.Contains(t, out.String(), "Netlist API: 1.4.0")
}

func TestWatchStopsOnCancel(t *testing.T) {
	resetOptions(t)
	path := writeDesign(t, t.TempDir(), counterDesign)

	ctx, cancel := context.WithCancel(context.Background())
	var out, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- watch(ctx, path, &out, &stderr) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, out.String(), "PROCESSES:")
}

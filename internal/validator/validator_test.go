package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validNetlist() map[string]any {
	return map[string]any{
		"api_version": "1.4.0",
		"roots":       []any{1},
		"scopes": []any{
			map[string]any{
				"id": 1, "parent": 0, "name": "top", "path": "top", "kind": "module", "module": "top",
				"params": []any{map[string]any{"name": "N", "value": "4"}},
				"signals": []any{
					map[string]any{
						"name": "a", "kind": "wire", "port": "input", "type": "logic[3:0]",
						"width": 4, "signed": false, "words": 1, "nexuses": []any{0},
					},
				},
				"events": []any{},
			},
		},
		"nexuses": []any{map[string]any{"id": 0, "name": "a", "links": 2, "drivers": 1}},
		"nodes": []any{
			map[string]any{
				"kind": "const", "name": "_c0", "scope": 1, "width": 4,
				"attrs": map[string]any{"value": "4'b0000"},
				"pins":  []any{map[string]any{"dir": "output", "nexus": 0}},
			},
		},
		"processes": []any{
			map[string]any{"kind": "always_ff", "scope": 1, "push": true, "file": "top.v", "line": 3},
		},
		"errors": 0,
	}
}

func TestNetlistContract(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(n map[string]any)
		wantErr bool
	}{
		{
			name:    "valid netlist",
			mutate:  func(map[string]any) {},
			wantErr: false,
		},
		{
			name:    "bad api version",
			mutate:  func(n map[string]any) { n["api_version"] = "v1" },
			wantErr: true,
		},
		{
			name: "unknown node kind",
			mutate: func(n map[string]any) {
				n["nodes"].([]any)[0].(map[string]any)["kind"] = "flipflop"
			},
			wantErr: true,
		},
		{
			name: "zero width signal",
			mutate: func(n map[string]any) {
				sig := n["scopes"].([]any)[0].(map[string]any)["signals"].([]any)[0].(map[string]any)
				sig["width"] = 0
			},
			wantErr: true,
		},
		{
			name: "signal without pins",
			mutate: func(n map[string]any) {
				sig := n["scopes"].([]any)[0].(map[string]any)["signals"].([]any)[0].(map[string]any)
				sig["nexuses"] = []any{}
			},
			wantErr: true,
		},
		{
			name: "unknown field",
			mutate: func(n map[string]any) {
				n["processes"].([]any)[0].(map[string]any)["priority"] = 1
			},
			wantErr: true,
		},
		{
			name:    "negative error count",
			mutate:  func(n map[string]any) { n["errors"] = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := validNetlist()
			tt.mutate(n)
			err := v.Validate(n)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	assert.Nil(t, v.ValidationErrors([]byte(`{"api_version": "1.4.0", "roots": [], "scopes": [], "nexuses": [], "nodes": [], "processes": [], "errors": 0}`)))

	errs := v.ValidationErrors([]byte(`{"api_version": "1.4.0", "roots": [], "scopes": [], "nexuses": [], "nodes": [], "processes": [{"kind": "sometimes", "scope": 1, "push": false, "file": "", "line": 0}], "errors": 0}`))
	assert.NotEmpty(t, errs)

	errs = v.ValidationErrors([]byte(`{not json`))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "compiling netlist")
}

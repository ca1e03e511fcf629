package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("VELAB_GENERATION", "")
	cfg := DefaultConfig()
	assert.Equal(t, Gen2012, cfg.Language.Generation)
	assert.True(t, cfg.SystemVerilog())
	assert.True(t, cfg.Generate2005())
	assert.Equal(t, int64(1)<<30, cfg.Limits.MaxVectorWidth)
	assert.True(t, cfg.Warnings.PortWidth)
	assert.False(t, cfg.Compat.MissingModulesTolerated)
}

func TestGenerationFromEnv(t *testing.T) {
	t.Setenv("VELAB_GENERATION", "2001")
	cfg := DefaultConfig()
	assert.Equal(t, Gen2001, cfg.Language.Generation)
	assert.False(t, cfg.SystemVerilog())
	assert.False(t, cfg.Generate2005())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "velab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
language:
  generation: "2005"
compat:
  missingModulesTolerated: true
warnings:
  floatingInputs: true
roots: [top]
`), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Gen2005, cfg.Language.Generation)
	assert.True(t, cfg.Compat.MissingModulesTolerated)
	assert.True(t, cfg.Warnings.FloatingInputs)
	assert.Equal(t, []string{"top"}, cfg.Roots)
	assert.Equal(t, defaultMaxLoopIterations, cfg.Limits.MaxLoopIterations)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "velab.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"language": {"generation": "2017"}, "api": {"require": ">= 1.0"}}`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Gen2017, cfg.Language.Generation)
	assert.Equal(t, ">= 1.0", cfg.API.Require)
}

func TestLoadRejectsUnknownGeneration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("language: {generation: \"1066\"}\n"), 0644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "unknown language generation")
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Roots = []string{"a", "b"}

	for _, name := range []string{"out.yaml", "out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.Save(path))
		back, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, cfg.Roots, back.Roots)
		assert.Equal(t, cfg.Language, back.Language)
	}
}

func TestLoadMissingDirUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Limits, cfg.Limits)
}

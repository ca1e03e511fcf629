// Package config holds the options that steer elaboration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Generation selects the language standard the design is written against.
type Generation string

const (
	Gen1995 Generation = "1995"
	Gen2001 Generation = "2001"
	Gen2005 Generation = "2005"
	Gen2009 Generation = "2009"
	Gen2012 Generation = "2012"
	Gen2017 Generation = "2017"
)

// Config is the top-level elaboration configuration.
type Config struct {
	// Language selects the source standard.
	Language LanguageConfig `yaml:"language" json:"language"`

	// Compat holds compatibility toggles that relax checks.
	Compat CompatConfig `yaml:"compat" json:"compat"`

	// Warnings enables optional warning classes.
	Warnings WarningConfig `yaml:"warnings" json:"warnings"`

	// Debug enables structured trace logging.
	Debug DebugConfig `yaml:"debug" json:"debug"`

	// Limits bounds runaway designs.
	Limits LimitConfig `yaml:"limits" json:"limits"`

	// API pins the accessor API version a backend expects.
	API APIConfig `yaml:"api" json:"api"`

	// Roots lists the root module names. Empty means every module that
	// is never instantiated.
	Roots []string `yaml:"roots,omitempty" json:"roots,omitempty"`
}

// LanguageConfig selects the source standard.
type LanguageConfig struct {
	// Generation is one of 1995, 2001, 2005, 2009, 2012, 2017.
	Generation Generation `yaml:"generation" json:"generation"`
}

// CompatConfig holds compatibility toggles.
type CompatConfig struct {
	// PortVectorMismatchWarning demotes scalar-port/vector-net
	// declaration mismatches to warnings.
	PortVectorMismatchWarning bool `yaml:"portVectorMismatchWarning" json:"portVectorMismatchWarning"`

	// MissingModulesTolerated keeps going after unknown module types.
	MissingModulesTolerated bool `yaml:"missingModulesTolerated" json:"missingModulesTolerated"`
}

// WarningConfig enables optional warning classes.
type WarningConfig struct {
	Implicit       bool `yaml:"implicit" json:"implicit"`
	PortWidth      bool `yaml:"portWidth" json:"portWidth"`
	SelectRange    bool `yaml:"selectRange" json:"selectRange"`
	FloatingInputs bool `yaml:"floatingInputs" json:"floatingInputs"`
	Sensitivity    bool `yaml:"sensitivity" json:"sensitivity"`
	Lifetime       bool `yaml:"lifetime" json:"lifetime"`
}

// DebugConfig enables structured trace logging.
type DebugConfig struct {
	Scopes    bool `yaml:"scopes" json:"scopes"`
	Elaborate bool `yaml:"elaborate" json:"elaborate"`
	Params    bool `yaml:"params" json:"params"`
}

// LimitConfig bounds runaway designs.
type LimitConfig struct {
	// MaxVectorWidth is the width above which a vector draws a warning.
	MaxVectorWidth int64 `yaml:"maxVectorWidth" json:"maxVectorWidth"`

	// MaxLoopIterations bounds generate loops and constant function loops.
	MaxLoopIterations int `yaml:"maxLoopIterations" json:"maxLoopIterations"`
}

// APIConfig pins the netlist accessor API.
type APIConfig struct {
	// Require is a semantic version constraint, e.g. ">= 1.2, < 2".
	Require string `yaml:"require,omitempty" json:"require,omitempty"`
}

const (
	defaultMaxVectorWidth    = int64(1) << 30
	defaultMaxLoopIterations = 256 * 1024
)

// DefaultConfig returns the default elaboration configuration.
func DefaultConfig() *Config {
	return &Config{
		Language: LanguageConfig{Generation: defaultGeneration()},
		Warnings: WarningConfig{
			PortWidth:   true,
			SelectRange: true,
		},
		Limits: LimitConfig{
			MaxVectorWidth:    defaultMaxVectorWidth,
			MaxLoopIterations: defaultMaxLoopIterations,
		},
	}
}

// defaultGeneration uses VELAB_GENERATION if set, otherwise 2012.
func defaultGeneration() Generation {
	if g := os.Getenv("VELAB_GENERATION"); g != "" {
		return Generation(g)
	}
	return Gen2012
}

// SystemVerilog reports whether the generation enables SystemVerilog.
func (c *Config) SystemVerilog() bool {
	switch c.Language.Generation {
	case Gen2009, Gen2012, Gen2017:
		return true
	}
	return false
}

// Generate2005 reports whether generate naming follows 1364-2005 rules.
func (c *Config) Generate2005() bool {
	return c.Language.Generation != Gen1995 && c.Language.Generation != Gen2001
}

// LoadFile loads configuration from a YAML or JSON file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Load looks for velab.yaml, .velab.yaml or velab.json in dir and
// returns DefaultConfig if none exists.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"velab.yaml", ".velab.yaml", "velab.json"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return DefaultConfig(), nil
}

// applyDefaults fills in missing configuration with defaults.
func (c *Config) applyDefaults() {
	if c.Language.Generation == "" {
		c.Language.Generation = defaultGeneration()
	}
	if c.Limits.MaxVectorWidth <= 0 {
		c.Limits.MaxVectorWidth = defaultMaxVectorWidth
	}
	if c.Limits.MaxLoopIterations <= 0 {
		c.Limits.MaxLoopIterations = defaultMaxLoopIterations
	}
}

func (c *Config) validate() error {
	switch c.Language.Generation {
	case Gen1995, Gen2001, Gen2005, Gen2009, Gen2012, Gen2017:
		return nil
	}
	return fmt.Errorf("unknown language generation %q", c.Language.Generation)
}

// Save writes the configuration to a file. The format follows the
// file extension.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		data, err = toJSON(c)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

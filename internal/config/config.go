// Package config reads codescope.toml or codescope.yaml. Command-line flags
// override whatever the file sets; zero values mean "use the default".
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"codescope/internal/lint"
)

// FileNames are looked up in this order in every directory.
var FileNames = []string{"codescope.toml", "codescope.yaml", "codescope.yml"}

type Config struct {
	Analysis   Analysis   `toml:"analysis" yaml:"analysis"`
	Timeouts   Timeouts   `toml:"timeouts" yaml:"timeouts"`
	Complexity Complexity `toml:"complexity" yaml:"complexity"`
	Lint       Lint       `toml:"lint" yaml:"lint"`

	// Path is the file the config came from, empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

type Analysis struct {
	Tasks          []string `toml:"tasks" yaml:"tasks"`
	Jobs           int      `toml:"jobs" yaml:"jobs"`
	MaxDiagnostics int      `toml:"max_diagnostics" yaml:"max_diagnostics"`
	// Exclude holds path.Match patterns over slash-separated paths relative
	// to the source root. A pattern also matches any single path element.
	Exclude []string `toml:"exclude" yaml:"exclude"`
}

type Timeouts struct {
	// Function bounds data flow and type checking of one function body.
	Function time.Duration `toml:"function" yaml:"function"`
}

type Complexity struct {
	MaxCyclomatic int `toml:"max_cyclomatic" yaml:"max_cyclomatic"`
	MaxNesting    int `toml:"max_nesting" yaml:"max_nesting"`
	MaxFanOut     int `toml:"max_fan_out" yaml:"max_fan_out"`
}

type Lint struct {
	Disable []string `toml:"disable" yaml:"disable"`
}

// Default returns the settings used when no file is found.
func Default() *Config {
	return &Config{
		Timeouts:   Timeouts{Function: 5 * time.Second},
		Complexity: Complexity{MaxCyclomatic: 10, MaxNesting: 4},
	}
}

// Load reads a config file, picking the decoder by extension. Keys the
// decoder does not know are errors, and so are invalid values. Unset keys
// keep their Default values.
func Load(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigurationError{Path: file, Err: fmt.Errorf("%w: %w", ErrMissingInput, err)}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(file)); ext {
	case ".toml":
		err = decodeTOML(data, cfg)
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	default:
		err = fmt.Errorf("%w: unsupported config format %q", ErrInvalidValue, ext)
	}
	if err != nil {
		return nil, &ConfigurationError{Path: file, Err: err}
	}
	cfg.Path = file
	if err := cfg.Validate(); err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.Path = file
		}
		return nil, err
	}
	return cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%w: unknown keys %s", ErrInvalidValue, strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// пустой файл допустим, остаются значения по умолчанию
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Validate rejects negative limits and unknown lint rules.
func (c *Config) Validate() error {
	switch {
	case c.Analysis.Jobs < 0:
		return invalid("analysis.jobs", "must not be negative, got %d", c.Analysis.Jobs)
	case c.Analysis.MaxDiagnostics < 0:
		return invalid("analysis.max_diagnostics", "must not be negative, got %d", c.Analysis.MaxDiagnostics)
	case c.Timeouts.Function < 0:
		return invalid("timeouts.function", "must not be negative, got %s", c.Timeouts.Function)
	case c.Complexity.MaxCyclomatic < 0:
		return invalid("complexity.max_cyclomatic", "must not be negative, got %d", c.Complexity.MaxCyclomatic)
	case c.Complexity.MaxNesting < 0:
		return invalid("complexity.max_nesting", "must not be negative, got %d", c.Complexity.MaxNesting)
	case c.Complexity.MaxFanOut < 0:
		return invalid("complexity.max_fan_out", "must not be negative, got %d", c.Complexity.MaxFanOut)
	}
	for _, p := range c.Analysis.Exclude {
		if _, err := path.Match(p, ""); err != nil {
			return invalid("analysis.exclude", "bad pattern %q", p)
		}
	}
	if err := (lint.Options{Disable: c.Lint.Disable}).Validate(); err != nil {
		return &ConfigurationError{Field: "lint.disable", Err: fmt.Errorf("%w: %w", ErrInvalidValue, err)}
	}
	return nil
}

// Excluded reports whether rel, a slash-separated path relative to the
// source root, matches one of the exclude patterns.
func (a Analysis) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range a.Exclude {
		if ok, _ := path.Match(p, rel); ok {
			return true
		}
		for _, elem := range strings.Split(rel, "/") {
			if ok, _ := path.Match(p, elem); ok {
				return true
			}
		}
	}
	return false
}

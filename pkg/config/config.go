// Package config loads obb settings from a TOML file and merges them with
// command-line flags.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/philipparndt/obbkit/pkg/obb"
	"github.com/philipparndt/obbkit/pkg/preview"
	"github.com/philipparndt/obbkit/pkg/report"
)

// Config holds every tunable of the obb tool
type Config struct {
	Solver  obb.Config      `toml:"solver"`
	Output  Output          `toml:"output"`
	Preview preview.Options `toml:"preview"`
	Batch   Batch           `toml:"batch"`
}

// Output selects the algorithm and the report format
type Output struct {
	Method string `toml:"method"`
	Format string `toml:"format"`
	// Binary writes box meshes as binary STL.
	Binary bool `toml:"binary"`
}

// Batch configures the worker pool
type Batch struct {
	Workers int `toml:"workers"`
}

// Flags holds CLI flag values that override config file settings
type Flags struct {
	Method  string
	Format  string
	Binary  bool
	Workers int
}

// Default returns the built-in configuration
func Default() Config {
	c := Config{
		Solver:  obb.DefaultConfig(),
		Preview: preview.DefaultOptions(),
	}
	c.Resolve(Flags{})
	return c
}

// Load reads a TOML config file on top of the defaults. Unknown keys are
// rejected so typos do not go unnoticed.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the solver tolerances, the preview size and the method
// and format names
func (c Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	p := c.Preview
	if p.Width < 0 || p.Height < 0 || p.Supersample < 0 || p.LineWidth < 0 {
		return fmt.Errorf("preview sizes must not be negative: width %d, height %d, supersample %d, line_width %d",
			p.Width, p.Height, p.Supersample, p.LineWidth)
	}

	m, err := obb.ParseMethod(c.Output.Method)
	if err != nil {
		return err
	}
	if m == obb.MethodDegenerate {
		return fmt.Errorf("method %q cannot be requested", c.Output.Method)
	}
	switch c.Output.Format {
	case report.FormatText, report.FormatJSON, report.FormatYAML:
		return nil
	}
	return fmt.Errorf("%w: %q", report.ErrUnknownFormat, c.Output.Format)
}

// Method returns the parsed solver method
func (c Config) Method() obb.Method {
	m, _ := obb.ParseMethod(c.Output.Method)
	return m
}

// Resolve applies flags and fills in anything still unset.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.Method != "" {
		c.Output.Method = flags.Method
	}
	if flags.Format != "" {
		c.Output.Format = flags.Format
	}
	if flags.Binary {
		c.Output.Binary = true
	}
	if flags.Workers > 0 {
		c.Batch.Workers = flags.Workers
	}

	c.Solver = c.Solver.WithDefaults()
	c.Preview = c.Preview.WithDefaults()
	if c.Output.Method == "" {
		c.Output.Method = obb.MethodExhaustive.String()
	}
	if c.Output.Format == "" {
		c.Output.Format = report.FormatText
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = runtime.NumCPU()
	}
}

// Write encodes the configuration as TOML
func (c Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

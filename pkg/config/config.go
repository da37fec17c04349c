// Package config provides the run configuration for the rastermnf tools.
// The command line fills in the per-run record; batch policy can
// additionally be loaded from a YAML file, with defaults used when the file
// is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunMode selects what a batch run produces. Transform output and the
// variance report are mutually exclusive, so the choice is a tagged value
// rather than a pair of booleans.
type RunMode int

const (
	// ModeTransform writes one dimensionality-reduced raster per input.
	ModeTransform RunMode = iota

	// ModeVariance prints accumulated explained-variance ratios per input
	// and writes no output files.
	ModeVariance
)

// MNF method selectors, matching the -m flag values.
const (
	// MethodStandard applies the plain MNF transform and keeps the leading
	// components.
	MethodStandard = 1

	// MethodDenoise smooths the second MNF component with a Savitzky-Golay
	// filter and returns bands of the inverse transform.
	MethodDenoise = 2
)

// Batch holds the batch policy options loadable from a YAML file.
type Batch struct {
	// OutputDir is the directory, relative to the working directory, that
	// transform outputs are written to.
	OutputDir string `yaml:"outputDir"`

	// Suffix is inserted between the input file stem and the extension
	// when naming outputs.
	Suffix string `yaml:"suffix"`

	// ContinueOnError makes the batch log and skip files that fail instead
	// of aborting the run. The run still reports failure at the end.
	ContinueOnError bool `yaml:"continueOnError"`

	// BandStats prints a min/mean/max summary for every output band.
	BandStats bool `yaml:"bandStats"`
}

// Config is the immutable record a run is driven by.
type Config struct {
	// Format is the input extension filter, without the leading dot.
	Format string `yaml:"-"`

	// Components is the number of MNF components to keep. Required and
	// positive.
	Components int `yaml:"-"`

	// Method selects the MNF variant (MethodStandard or MethodDenoise).
	Method int `yaml:"-"`

	// BrightnessNormalize enables per-pixel spectral normalization before
	// the transform.
	BrightnessNormalize bool `yaml:"-"`

	// Mode selects between transform output and the variance report.
	Mode RunMode `yaml:"-"`

	// Batch is the batch policy, optionally overridden from a YAML file.
	Batch Batch `yaml:"batch"`
}

// Default returns a configuration with default values.
func Default() *Config {
	cfg := &Config{
		Format: "tif",
		Method: MethodStandard,
		Mode:   ModeTransform,
	}
	cfg.Batch.OutputDir = "MNF"
	cfg.Batch.Suffix = "_MNF"
	cfg.Batch.ContinueOnError = true
	return cfg
}

// Load returns the default configuration overlaid with the YAML file at
// path. A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the batch policy section of the configuration to a YAML file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate checks the cross-field invariants of a fully populated record.
func (c *Config) Validate() error {
	if c.Format == "" {
		return fmt.Errorf("input format must not be empty")
	}
	if c.Components < 1 {
		return fmt.Errorf("number of components must be a positive integer, got %d", c.Components)
	}
	if c.Method != MethodStandard && c.Method != MethodDenoise {
		return fmt.Errorf("unsupported method %d: valid methods are 1 (standard MNF) and 2 (Savitzky-Golay denoised MNF)", c.Method)
	}
	if c.Batch.OutputDir == "" {
		return fmt.Errorf("batch output directory must not be empty")
	}
	return nil
}

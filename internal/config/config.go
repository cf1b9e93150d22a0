// Package config loads the settings of the demo driver from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file the driver looks for in its
// working directory.
const FileName = "mrrd-demo.yaml"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds the parameters of a demo run.
type Config struct {
	// Output file and dataset group
	Output struct {
		Path  string `yaml:"path"`
		Group string `yaml:"group"`

		// Deflate level for new stacks and tables, 0 disables it
		Compression int `yaml:"compression"`
	} `yaml:"output"`

	// Phantom and acquisition geometry
	Acquisition struct {
		Nx int `yaml:"nx"`
		Ny int `yaml:"ny"`

		// Field of view of the encoded space in mm
		FOV [3]float32 `yaml:"fov"`

		ReconMatrix [3]uint16  `yaml:"reconMatrix"`
		ReconFOV    [3]float32 `yaml:"reconFov"`

		ResonanceFrequencyHz int64   `yaml:"resonanceFrequencyHz"`
		SampleTimeUS         float32 `yaml:"sampleTimeUs"`
	} `yaml:"acquisition"`

	Preview struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"preview"`

	// debug, info, warn or error
	LogLevel string `yaml:"logLevel"`
}

// DefaultConfig returns the settings of the reference run.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Output.Path = "testdata.h5"
	cfg.Output.Group = "dataset"

	cfg.Acquisition.Nx = 256
	cfg.Acquisition.Ny = 128
	cfg.Acquisition.FOV = [3]float32{600, 300, 6}
	cfg.Acquisition.ReconMatrix = [3]uint16{128, 128, 1}
	cfg.Acquisition.ReconFOV = [3]float32{300, 300, 6}
	cfg.Acquisition.ResonanceFrequencyHz = 63500000
	cfg.Acquisition.SampleTimeUS = 5.0

	cfg.Preview.Path = "testdata_preview.png"

	cfg.LogLevel = "info"
	return cfg
}

// LoadConfig reads the file at path over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	a := &c.Acquisition
	switch {
	case c.Output.Path == "":
		return fmt.Errorf("%w: output.path is empty", ErrInvalid)
	case c.Output.Group == "":
		return fmt.Errorf("%w: output.group is empty", ErrInvalid)
	case c.Output.Compression < 0 || c.Output.Compression > 9:
		return fmt.Errorf("%w: output.compression %d not in 0-9", ErrInvalid, c.Output.Compression)
	case a.Nx < 1 || a.Nx > 65535 || a.Ny < 1 || a.Ny > 65535:
		return fmt.Errorf("%w: matrix %dx%d", ErrInvalid, a.Nx, a.Ny)
	case a.ReconMatrix[0] == 0 || a.ReconMatrix[1] == 0 || a.ReconMatrix[2] == 0:
		return fmt.Errorf("%w: recon matrix %v", ErrInvalid, a.ReconMatrix)
	case a.ResonanceFrequencyHz <= 0:
		return fmt.Errorf("%w: resonance frequency %d", ErrInvalid, a.ResonanceFrequencyHz)
	case a.SampleTimeUS <= 0:
		return fmt.Errorf("%w: sample time %g", ErrInvalid, a.SampleTimeUS)
	case c.Preview.Enabled && c.Preview.Path == "":
		return fmt.Errorf("%w: preview.path is empty", ErrInvalid)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

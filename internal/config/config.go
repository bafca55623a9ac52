// Package config loads the server configuration from YAML and provides
// defaults for every setting.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/blob-tracker-mcp/internal/detection"
	"github.com/ironsheep/blob-tracker-mcp/internal/logger"
	"github.com/ironsheep/blob-tracker-mcp/internal/tracking"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Detector holds the defaults for region detection requests.
	Detector struct {
		// Restrictions filter the regions that are reported.
		detection.Restrictions `yaml:",inline"`

		// CreateTree enables containment tree building.
		CreateTree bool `yaml:"createTree"`

		// Threshold binarises the luminance before detection when in 0..255.
		// -1 detects on the raw luminance.
		Threshold int `yaml:"threshold"`
	} `yaml:"detector"`

	// Assignment parameters for the Hungarian solver
	Assignment struct {
		// Epsilon is the zero tolerance of the cover step.
		Epsilon float64 `yaml:"epsilon"`
	} `yaml:"assignment"`

	// Tracker parameters
	Tracker tracking.Config `yaml:"tracker"`

	// Log output
	Log struct {
		// Level is one of debug, info, warn, error or off.
		Level string `yaml:"level"`

		// Format is "json" or "console".
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detector.Restrictions = detection.DefaultRestrictions()
	cfg.Detector.CreateTree = false
	cfg.Detector.Threshold = -1

	cfg.Assignment.Epsilon = 1e-9

	cfg.Tracker.MaxDistance = 50
	cfg.Tracker.MaxMissed = 5
	cfg.Tracker.Epsilon = 1e-9

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	return cfg
}

// LoadConfig loads configuration from a YAML file. Settings absent from the
// file keep their defaults. If the file doesn't exist, it returns the default
// configuration. The result is validated.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate reports the first setting that is out of range.
func (c *Config) Validate() error {
	r := c.Detector.Restrictions
	switch {
	case r.MinSize < 0:
		return fmt.Errorf("%w: detector.minSize %d is negative", ErrInvalid, r.MinSize)
	case r.MaxSize < r.MinSize:
		return fmt.Errorf("%w: detector.maxSize %d below minSize %d", ErrInvalid, r.MaxSize, r.MinSize)
	case r.MinValue < 0 || r.MaxValue > 255 || r.MinValue > r.MaxValue:
		return fmt.Errorf("%w: detector value window [%d, %d] not within [0, 255]", ErrInvalid, r.MinValue, r.MaxValue)
	case c.Detector.Threshold < -1 || c.Detector.Threshold > 255:
		return fmt.Errorf("%w: detector.threshold %d not in -1..255", ErrInvalid, c.Detector.Threshold)
	case !validTolerance(c.Assignment.Epsilon):
		return fmt.Errorf("%w: assignment.epsilon %v", ErrInvalid, c.Assignment.Epsilon)
	case !validTolerance(c.Tracker.Epsilon):
		return fmt.Errorf("%w: tracker.epsilon %v", ErrInvalid, c.Tracker.Epsilon)
	case c.Tracker.MaxMissed < 0:
		return fmt.Errorf("%w: tracker.maxMissed %d is negative", ErrInvalid, c.Tracker.MaxMissed)
	case math.IsNaN(c.Tracker.MaxDistance):
		return fmt.Errorf("%w: tracker.maxDistance is NaN", ErrInvalid)
	case c.Log.Format != "json" && c.Log.Format != "console":
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func validTolerance(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

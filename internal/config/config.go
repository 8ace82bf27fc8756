package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fakeyudi/touchgrass/internal/nature"
)

// Config holds all configurable touchgrass settings.
type Config struct {
	UnlockMinutes   int    `json:"unlock_minutes"`
	DefaultCategory string `json:"default_category"` // grass | snow | sand | sky
	GatewayMode     string `json:"gateway_mode"`     // auto | file | demo
	ShieldDir       string `json:"shield_dir"`
	MaxDimension    int    `json:"max_dimension"`
	SampleStride    int    `json:"sample_stride"`
	Workers         int    `json:"workers"`
	LogLevel        string `json:"log_level"`
	ThresholdsFile  string `json:"thresholds_file"` // YAML threshold override
	// ClassifierVariant names the photo classifier; only "color" is built.
	ClassifierVariant string `json:"classifier"`
	// Pointers so an explicit false in a project file beats a global true.
	// nil means neither file set the key.
	RequireDaylight *bool `json:"require_daylight,omitempty"`
	DemoFallback    *bool `json:"demo_fallback,omitempty"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		UnlockMinutes:     60,
		DefaultCategory:   string(nature.Grass),
		GatewayMode:       "auto",
		MaxDimension:      nature.DefaultMaxDimension,
		SampleStride:      nature.DefaultSampleStride,
		Workers:           4,
		LogLevel:          "info",
		ClassifierVariant: "color",
	}
}

func boolPtr(b bool) *bool { return &b }

// GlobalPath is ~/.config/touchgrass/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "touchgrass", "config.json"), nil
}

// LoadGlobal reads ~/.config/touchgrass/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .touchgrassconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".touchgrassconfig", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	apply(&result, global)
	apply(&result, project)
	return result
}

// apply copies every set field of src over dst.
func apply(dst, src *Config) {
	if src == nil {
		return
	}
	if src.UnlockMinutes > 0 {
		dst.UnlockMinutes = src.UnlockMinutes
	}
	if src.DefaultCategory != "" {
		dst.DefaultCategory = src.DefaultCategory
	}
	if src.GatewayMode != "" {
		dst.GatewayMode = src.GatewayMode
	}
	if src.ShieldDir != "" {
		dst.ShieldDir = src.ShieldDir
	}
	if src.MaxDimension > 0 {
		dst.MaxDimension = src.MaxDimension
	}
	if src.SampleStride > 0 {
		dst.SampleStride = src.SampleStride
	}
	if src.Workers > 0 {
		dst.Workers = src.Workers
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.ThresholdsFile != "" {
		dst.ThresholdsFile = src.ThresholdsFile
	}
	if src.ClassifierVariant != "" {
		dst.ClassifierVariant = src.ClassifierVariant
	}
	if src.RequireDaylight != nil {
		dst.RequireDaylight = boolPtr(*src.RequireDaylight)
	}
	if src.DemoFallback != nil {
		dst.DemoFallback = boolPtr(*src.DemoFallback)
	}
}

// UnlockDuration is UnlockMinutes as a duration.
func (c Config) UnlockDuration() time.Duration {
	return time.Duration(c.UnlockMinutes) * time.Minute
}

// Daylight reports whether grass unlocks require daylight.
func (c Config) Daylight() bool { return c.RequireDaylight != nil && *c.RequireDaylight }

// Demo reports whether demo fallback is on. It defaults to on.
func (c Config) Demo() bool { return c.DemoFallback == nil || *c.DemoFallback }

// Category parses DefaultCategory.
func (c Config) Category() (nature.Category, error) {
	return nature.ParseCategory(c.DefaultCategory)
}

// Thresholds returns the classifier threshold table, applying the YAML
// override when one is configured. A malformed override is a *ParseError.
func (c Config) Thresholds() (nature.ThresholdTable, error) {
	if c.ThresholdsFile == "" {
		return nature.DefaultThresholds(), nil
	}
	table, err := nature.LoadThresholds(c.ThresholdsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("thresholds file %s: %w", c.ThresholdsFile, err)
		}
		return nil, &ParseError{Path: c.ThresholdsFile, Err: err}
	}
	return table, nil
}

// Classifier builds the classifier variant named by c and tunes it.
func (c Config) Classifier() (*nature.ColorRegionClassifier, error) {
	table, err := c.Thresholds()
	if err != nil {
		return nil, err
	}
	v, err := nature.NewClassifier(c.ClassifierVariant)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	cl, ok := v.(*nature.ColorRegionClassifier)
	if !ok {
		return nil, fmt.Errorf("classifier %q cannot score photos in batches", c.ClassifierVariant)
	}
	cl.MaxDimension = c.MaxDimension
	cl.SampleStride = c.SampleStride
	cl.Workers = c.Workers
	cl.Thresholds = table
	return cl, nil
}

// Save writes c as JSON to path, creating parent directories.
func Save(c Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

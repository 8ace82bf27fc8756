// Package nature scores photos for the natural scenes that unlock restricted apps.
package nature

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a scene type the classifier can be asked to confirm.
type Category string

const (
	Grass Category = "grass"
	Snow  Category = "snow"
	Sand  Category = "sand"
	Sky   Category = "sky"
)

// AllCategories returns every supported category in display order.
func AllCategories() []Category {
	return []Category{Grass, Snow, Sand, Sky}
}

// ParseCategory converts user input (case-insensitive) to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown nature category %q (want grass, snow, sand or sky)", s)
}

func (c Category) String() string { return string(c) }

// Thresholds is the pass bar for one category. Both scores must strictly
// exceed their threshold for a result to be valid.
type Thresholds struct {
	Color   float64 `yaml:"color"`
	Texture float64 `yaml:"texture"`
}

// ThresholdTable maps each category to its pass bar.
type ThresholdTable map[Category]Thresholds

// DefaultThresholds returns the strict table used unless overridden.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		Grass: {Color: 0.3, Texture: 0.5},
		Snow:  {Color: 0.4, Texture: 0.7},
		Sand:  {Color: 0.3, Texture: 0.4},
		Sky:   {Color: 0.3, Texture: 0.5},
	}
}

// For returns the thresholds for c, falling back to the default table.
func (t ThresholdTable) For(c Category) Thresholds {
	if th, ok := t[c]; ok {
		return th
	}
	return DefaultThresholds()[c]
}

// thresholdFile is the on-disk shape of a threshold override.
type thresholdFile struct {
	Version    string                `yaml:"version"`
	Thresholds map[string]Thresholds `yaml:"thresholds"`
}

// LoadThresholds reads a YAML override and merges it over the defaults.
// Unknown categories are rejected; values are clamped to [0,1].
func LoadThresholds(path string) (ThresholdTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f thresholdFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse thresholds %s: %w", path, err)
	}

	table := DefaultThresholds()
	for name, th := range f.Thresholds {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("thresholds %s: %w", path, err)
		}
		table[c] = Thresholds{Color: clamp01(th.Color), Texture: clamp01(th.Texture)}
	}
	return table, nil
}

// WriteThresholds writes table as a YAML override file.
func WriteThresholds(table ThresholdTable, path string) error {
	f := thresholdFile{Version: "1", Thresholds: make(map[string]Thresholds, len(table))}
	for c, th := range table {
		f.Thresholds[string(c)] = th
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

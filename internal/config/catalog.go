package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the optional strategies.yaml file.
//
//	tiers:
//	  - {name: gold, size: 3}
//	strategies:
//	  - name: hot_window
//	    params: {window: 100}
//	  - name: linear_trend
//	    staged: true
//	  - name: ema_trend
//	    enabled: false
type Catalog struct {
	Tiers      []Tier         `yaml:"tiers"`
	Strategies []StrategySpec `yaml:"strategies"`
}

// StrategySpec overrides one built-in strategy.
type StrategySpec struct {
	Name    string             `yaml:"name"`
	Enabled *bool              `yaml:"enabled"`
	Staged  bool               `yaml:"staged"` // registered inactive until committed
	Params  map[string]float64 `yaml:"params"`
}

// IsEnabled reports whether the catalog entry leaves the strategy enabled. Missing means enabled.
func (s StrategySpec) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Param returns a parameter or the default when unset.
func (s StrategySpec) Param(key string, def float64) float64 {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}

// Spec returns the override for a strategy name, or a zero spec.
func (c *Catalog) Spec(name string) StrategySpec {
	if c == nil {
		return StrategySpec{Name: name}
	}
	for _, s := range c.Strategies {
		if s.Name == name {
			return s
		}
	}
	return StrategySpec{Name: name}
}

// LoadCatalog parses a strategies.yaml file.
func LoadCatalog(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategies file %s: %w", path, err)
	}
	return ParseCatalog(content)
}

// ParseCatalog parses catalog YAML and rejects duplicate names.
func ParseCatalog(content []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse strategies file: %w", err)
	}

	seen := make(map[string]bool, len(catalog.Strategies))
	for _, s := range catalog.Strategies {
		if s.Name == "" {
			return nil, fmt.Errorf("strategy entry without name")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate strategy entry %q", s.Name)
		}
		seen[s.Name] = true
	}
	return &catalog, nil
}

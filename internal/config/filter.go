package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExclusionRule describes one extra request exclusion. Exactly one of
// Contains or Prefix must be set.
type ExclusionRule struct {
	Name     string `yaml:"name"`
	Contains string `yaml:"contains,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// FilterRules is the top-level YAML configuration for request exclusions.
type FilterRules struct {
	Exclusions []ExclusionRule `yaml:"exclusions"`
}

// LoadFilterRules reads and validates a filter rules YAML file.
func LoadFilterRules(path string) (*FilterRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filter rules: %w", err)
	}
	var rules FilterRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("filter rules: %w", err)
	}
	for i, r := range rules.Exclusions {
		if r.Name == "" {
			return nil, fmt.Errorf("filter rules: exclusions[%d] missing name", i)
		}
		if (r.Contains == "") == (r.Prefix == "") {
			return nil, fmt.Errorf("filter rules: exclusions[%d] (%s) needs exactly one of contains or prefix", i, r.Name)
		}
	}
	return &rules, nil
}

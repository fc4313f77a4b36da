package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BrowserSet is a named engine/headless combination a schedule can
// select via its browser_set override.
type BrowserSet struct {
	Engine   string `yaml:"engine"`
	Headless bool   `yaml:"headless"`
}

// LoadBrowserSets parses the browser-sets YAML file. A missing path
// returns an empty map so callers fall back to defaults.
func LoadBrowserSets(path string) (map[string]BrowserSet, error) {
	if path == "" {
		return map[string]BrowserSet{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read browser sets file: %w", err)
	}

	var sets map[string]BrowserSet
	if err := yaml.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parse browser sets file: %w", err)
	}

	for name, set := range sets {
		if set.Engine == "" {
			return nil, fmt.Errorf("browser set %q: engine is required", name)
		}
	}

	return sets, nil
}

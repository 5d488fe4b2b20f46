package planner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a decomposition from a YAML or JSON file.
func Load(path string) (Decomposition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Decomposition{}, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML or JSON decomposition.
func Parse(data []byte) (Decomposition, error) {
	var plan Decomposition
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Decomposition{}, fmt.Errorf("parse plan: %w", err)
	}
	return plan, nil
}

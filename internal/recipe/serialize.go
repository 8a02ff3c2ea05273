package recipe

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SaveJSON writes the recipe to path as indented JSON.
func SaveJSON(r *Recipe, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("recipe: encode json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("recipe: write %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a recipe from a JSON file.
func LoadJSON(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: read %s: %w", path, err)
	}
	var r Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("recipe: parse %s: %w", path, err)
	}
	return &r, nil
}

// SaveYAML writes the recipe to path as YAML, the human-reviewable twin of
// the JSON form.
func SaveYAML(r *Recipe, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("recipe: encode yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("recipe: write %s: %w", path, err)
	}
	return nil
}

// LoadYAML reads a recipe from a YAML file.
func LoadYAML(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: read %s: %w", path, err)
	}
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("recipe: parse %s: %w", path, err)
	}
	return &r, nil
}

// Package config provides configuration loading utilities for safety lists.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SafetyLists holds the operator-maintained content-filter tables. Empty
// fields mean "use the compiled-in defaults"; the classifier fills them in.
type SafetyLists struct {
	Profanity           []string `yaml:"profanity"`
	BlockedTopics       []string `yaml:"blocked_topics"`
	EducationalKeywords []string `yaml:"educational_keywords"`
}

// LoadSafetyLists reads filters.yaml from dir. A missing directory or file
// is not an error: the classifier falls back to its defaults so a fresh
// checkout works without any config files.
func LoadSafetyLists(dir string) (SafetyLists, error) {
	var lists SafetyLists
	if dir == "" {
		return lists, nil
	}
	path := filepath.Join(dir, "filters.yaml")
	content, err := os.ReadFile(path) // #nosec G304 -- operator-provided config path
	if err != nil {
		if os.IsNotExist(err) {
			return lists, nil
		}
		return lists, fmt.Errorf("op=config.LoadSafetyLists: %w", err)
	}
	if err := yaml.Unmarshal(content, &lists); err != nil {
		return lists, fmt.Errorf("op=config.LoadSafetyLists: parse %s: %w", path, err)
	}
	return lists, nil
}

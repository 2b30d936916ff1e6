package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML settings profile, merges it over the defaults and
// validates the result. Operators use profiles to pin a fleet-wide metric set
// and thresholds without touching the API.
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings profile: %w", err)
	}
	var p Patch
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Settings{}, fmt.Errorf("parse settings profile %s: %w", path, err)
	}
	s := WithDefaults(p)
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings profile %s: %w", path, err)
	}
	return s, nil
}

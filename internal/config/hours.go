package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fitstudio/internal/hours"
	"fitstudio/internal/model"
)

// OpeningHoursConfig is the root of opening_hours.yaml.
type OpeningHoursConfig struct {
	Defaults struct {
		Hours model.WeekHours `yaml:"hours"`
	} `yaml:"defaults"`
	CreatedBy string `yaml:"created_by"`
}

// LoadOpeningHours loads and validates the default opening hours file.
func LoadOpeningHours(path string) (*OpeningHoursConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read opening hours config: %w", err)
	}

	var cfg OpeningHoursConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse opening hours config: %w", err)
	}

	for d := range cfg.Defaults.Hours {
		if !d.Valid() {
			return nil, fmt.Errorf("opening hours config: unknown weekday %q", d)
		}
	}
	if errs := hours.Validate(cfg.Defaults.Hours); len(errs) > 0 {
		var parts []string
		for _, d := range model.AllWeekdays {
			if msg, ok := errs[d]; ok {
				parts = append(parts, fmt.Sprintf("%s: %s", d, msg))
			}
		}
		return nil, fmt.Errorf("opening hours config: %s", strings.Join(parts, "; "))
	}

	if cfg.CreatedBy == "" {
		cfg.CreatedBy = "config"
	}
	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lox/evdash/internal/aggregate"
	"github.com/lox/evdash/internal/filter"
)

// Config tunes the dashboard views. Every field has a default.
type Config struct {
	Aggregation aggregate.Options   `yaml:"aggregation"`
	Defaults    filter.DefaultSizes `yaml:"defaults"`
	Narrative   Narrative           `yaml:"narrative"`
}

// Narrative selects how insight summaries are written.
type Narrative struct {
	Provider string `yaml:"provider"` // "template" or "openai"
	Model    string `yaml:"model"`
}

func Default() Config {
	return Config{
		Aggregation: aggregate.DefaultOptions(),
		Defaults:    filter.DefaultSizes{States: 5, Makes: 10},
		Narrative:   Narrative{Provider: "template", Model: "gpt-4o-mini"},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("config: %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no view can honour.
func (c Config) Validate() error {
	if c.Aggregation.HistogramBins < 1 {
		return fmt.Errorf("aggregation.histogram_bins must be at least 1, got %d", c.Aggregation.HistogramBins)
	}
	if c.Defaults.States < 0 || c.Defaults.Makes < 0 {
		return errors.New("defaults must not be negative")
	}
	switch c.Narrative.Provider {
	case "template", "openai":
	default:
		return fmt.Errorf("unknown narrative provider %q", c.Narrative.Provider)
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/mlfq-sim/internal/engine"
	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// Config represents the complete configuration file.
// Every section is optional; missing values keep their defaults.
type Config struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Simulation struct {
		Schemes     []string `yaml:"schemes"`
		Parallelism int      `yaml:"parallelism"`
	} `yaml:"simulation"`

	Trace struct {
		Dir string `yaml:"dir"`
	} `yaml:"trace"`

	Archive struct {
		Path string `yaml:"path"`
	} `yaml:"archive"`

	Server struct {
		Port      int     `yaml:"port"`
		RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 disables
		Burst     int     `yaml:"burst"`
		MaxTicks  int     `yaml:"max_ticks"` // per-request bound on simulated ticks
	} `yaml:"server"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Simulation.Schemes = []string{"A", "B", "C"}
	cfg.Simulation.Parallelism = 3
	cfg.Server.Port = 50051
	cfg.Server.RateLimit = 50
	cfg.Server.Burst = 10
	cfg.Server.MaxTicks = 1_000_000
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9090
	return cfg
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks scheme names and numeric ranges.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Simulation.Schemes) == 0 {
		errs = append(errs, errors.New("simulation.schemes must not be empty"))
	}
	for _, s := range c.Simulation.Schemes {
		if _, err := engine.LookupScheme(types.SchemeID(s)); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Simulation.Parallelism < 0 {
		errs = append(errs, fmt.Errorf("simulation.parallelism must not be negative, got %d", c.Simulation.Parallelism))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative, got %g", c.Server.RateLimit))
	}
	if c.Server.MaxTicks < 0 {
		errs = append(errs, fmt.Errorf("server.max_ticks must not be negative, got %d", c.Server.MaxTicks))
	}
	return errors.Join(errs...)
}

// SchemeIDs returns the configured schemes as identifiers.
func (c *Config) SchemeIDs() []types.SchemeID {
	ids := make([]types.SchemeID, 0, len(c.Simulation.Schemes))
	for _, s := range c.Simulation.Schemes {
		ids = append(ids, types.SchemeID(strings.TrimSpace(s)))
	}
	return ids
}

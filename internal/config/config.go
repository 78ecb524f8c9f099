// Package config handles interpreter configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMemory    = 4096
	DefaultRegisters = 1000
)

// Config holds interpreter capacities and behavior switches.
type Config struct {
	Memory       int  `toml:"memory" yaml:"memory"`
	Registers    int  `toml:"registers" yaml:"registers"`
	MaxSteps     int  `toml:"max_steps" yaml:"max_steps"`           // 0 = unlimited
	MaxCallDepth int  `toml:"max_call_depth" yaml:"max_call_depth"` // 0 = unlimited
	Strict       bool `toml:"strict" yaml:"strict"`
	Dump         Dump `toml:"dump" yaml:"dump"`
}

// Dump configures the debug dump printed after a run.
type Dump struct {
	Memory    int `toml:"memory" yaml:"memory"`
	Registers int `toml:"registers" yaml:"registers"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Memory:    DefaultMemory,
		Registers: DefaultRegisters,
		Dump: Dump{
			Memory:    25,
			Registers: 5,
		},
	}
}

// Load parses a TOML or YAML file, chosen by extension. Fields missing
// from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config format %q for %s", ext, path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the values for consistency
func (c Config) Validate() error {
	var errs []error

	if c.Memory <= 0 {
		errs = append(errs, fmt.Errorf("memory must be positive, got %d", c.Memory))
	}
	if c.Registers <= 0 {
		errs = append(errs, fmt.Errorf("registers must be positive, got %d", c.Registers))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps))
	}
	if c.MaxCallDepth < 0 {
		errs = append(errs, fmt.Errorf("max_call_depth must not be negative, got %d", c.MaxCallDepth))
	}
	if c.Dump.Memory < 0 || c.Dump.Memory > c.Memory {
		errs = append(errs, fmt.Errorf("dump.memory must be within [0, %d], got %d", c.Memory, c.Dump.Memory))
	}
	if c.Dump.Registers < 0 || c.Dump.Registers > c.Registers {
		errs = append(errs, fmt.Errorf("dump.registers must be within [0, %d], got %d", c.Registers, c.Dump.Registers))
	}

	return errors.Join(errs...)
}

// Package yaml provides YAML-based run configuration parsing and lookup.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlConfig represents the raw YAML structure
type yamlConfig struct {
	Libc    yamlLibc `yaml:"libc"`
	Color   string   `yaml:"color"`
	Format  string   `yaml:"format"`
	Jobs    int      `yaml:"jobs"`
	Verbose bool     `yaml:"verbose"`
}

type yamlLibc struct {
	Spec     string `yaml:"spec"`
	Path     string `yaml:"path"`
	Sysroot  string `yaml:"sysroot"`
	Disabled bool   `yaml:"disabled"`
}

// ConfigParser parses YAML run configuration files
type ConfigParser struct{}

// NewConfigParser creates a new YAML parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile parses a YAML configuration file into a RunConfig
func (p *ConfigParser) ParseFile(filePath string) (entities.RunConfig, error) {
	//nolint:gosec // G304: filePath is the user-selected configuration file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return entities.RunConfig{}, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a RunConfig. Unset keys keep their defaults.
func (p *ConfigParser) Parse(data []byte) (entities.RunConfig, error) {
	var raw yamlConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return entities.RunConfig{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config := entities.DefaultRunConfig()

	libc, err := convertLibc(raw.Libc)
	if err != nil {
		return entities.RunConfig{}, err
	}
	config.Libc = libc

	if raw.Color != "" {
		if config.Color, err = entities.ParseColorMode(raw.Color); err != nil {
			return entities.RunConfig{}, err
		}
	}
	if raw.Format != "" {
		if config.Format, err = entities.ParseOutputFormat(raw.Format); err != nil {
			return entities.RunConfig{}, err
		}
	}
	if raw.Jobs < 0 {
		return entities.RunConfig{}, fmt.Errorf("jobs must not be negative, got %d", raw.Jobs)
	}
	config.Jobs = raw.Jobs
	config.Verbose = raw.Verbose

	return config, nil
}

func convertLibc(yl yamlLibc) (entities.LibcConfig, error) {
	var chosen []entities.LibcConfig
	if yl.Spec != "" {
		chosen = append(chosen, entities.LibcConfig{Mode: entities.LibcModeSpec, Spec: entities.LibcSpec(yl.Spec)})
	}
	if yl.Path != "" {
		chosen = append(chosen, entities.LibcConfig{Mode: entities.LibcModePath, Path: yl.Path})
	}
	if yl.Sysroot != "" {
		chosen = append(chosen, entities.LibcConfig{Mode: entities.LibcModeSysroot, Sysroot: yl.Sysroot})
	}
	if yl.Disabled {
		chosen = append(chosen, entities.LibcConfig{Mode: entities.LibcModeNone})
	}

	switch len(chosen) {
	case 0:
		return entities.LibcConfig{Mode: entities.LibcModeAuto}, nil
	case 1:
		if err := chosen[0].Validate(); err != nil {
			return entities.LibcConfig{}, err
		}
		return chosen[0], nil
	default:
		return entities.LibcConfig{}, fmt.Errorf("libc: spec, path, sysroot and disabled are mutually exclusive")
	}
}

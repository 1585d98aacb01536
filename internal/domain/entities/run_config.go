package entities

import (
	"fmt"
	"strings"
)

// LibcMode selects how the C runtime is resolved for FORTIFY-SOURCE checks
type LibcMode string

const (
	// LibcModeAuto probes the default library directories
	LibcModeAuto LibcMode = "auto"
	// LibcModeNone disables libc checks, FORTIFY-SOURCE is always unknown
	LibcModeNone LibcMode = "none"
	// LibcModePath uses an explicit library file
	LibcModePath LibcMode = "path"
	// LibcModeSysroot probes the default directories below a system root
	LibcModeSysroot LibcMode = "sysroot"
	// LibcModeSpec substitutes a compiled-in specification symbol list
	LibcModeSpec LibcMode = "spec"
)

// LibcConfig is the run-wide C runtime resolution strategy
type LibcConfig struct {
	Mode    LibcMode
	Path    string   // LibcModePath
	Sysroot string   // LibcModeSysroot
	Spec    LibcSpec // LibcModeSpec
}

// ColorMode is the color-output tri-state. The core never interprets it.
type ColorMode string

// Color modes
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// OutputFormat selects the report renderer
type OutputFormat string

// Output formats
const (
	OutputText  OutputFormat = "text"
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// RunConfig is the configuration of one run
type RunConfig struct {
	Libc    LibcConfig
	Color   ColorMode
	Format  OutputFormat
	Jobs    int // 0 means one worker per available CPU
	Verbose bool
}

// DefaultRunConfig returns the configuration used when nothing is specified
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Libc:   LibcConfig{Mode: LibcModeAuto},
		Color:  ColorAuto,
		Format: OutputText,
	}
}

// ParseColorMode validates a color keyword
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(s)); m {
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q: want auto, always or never", s)
	}
}

// ParseOutputFormat validates an output format keyword
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputTable, OutputJSON, OutputYAML:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q: want text, table, json or yaml", s)
	}
}

// Validate checks that the libc strategy carries the value its mode needs
func (c LibcConfig) Validate() error {
	switch c.Mode {
	case LibcModeAuto, LibcModeNone:
		return nil
	case LibcModePath:
		if c.Path == "" {
			return fmt.Errorf("libc mode %q requires a library path", c.Mode)
		}
	case LibcModeSysroot:
		if c.Sysroot == "" {
			return fmt.Errorf("libc mode %q requires a sysroot directory", c.Mode)
		}
	case LibcModeSpec:
		if _, err := ParseLibcSpec(string(c.Spec)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown libc mode %q", c.Mode)
	}
	return nil
}

package yaml

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

func TestConfigParser_Parse_Valid(t *testing.T) {
	parser := NewConfigParser()
	yamlData := []byte(`libc:
  spec: lsb4dot1
color: never
jobs: 4
format: json
verbose: true
`)

	config, err := parser.Parse(yamlData)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if config.Libc.Mode != entities.LibcModeSpec || config.Libc.Spec != entities.LSB4Dot1 {
		t.Errorf("Libc = %+v, want spec lsb4dot1", config.Libc)
	}
	if config.Color != entities.ColorNever {
		t.Errorf("Color = %v, want never", config.Color)
	}
	if config.Jobs != 4 {
		t.Errorf("Jobs = %d, want 4", config.Jobs)
	}
	if config.Format != entities.OutputJSON {
		t.Errorf("Format = %v, want json", config.Format)
	}
	if !config.Verbose {
		t.Error("Verbose should be true")
	}
}

func TestConfigParser_Parse_Defaults(t *testing.T) {
	parser := NewConfigParser()

	for name, data := range map[string]string{
		"empty":      "",
		"color only": "color: auto\n",
	} {
		t.Run(name, func(t *testing.T) {
			config, err := parser.Parse([]byte(data))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if config != entities.DefaultRunConfig() {
				t.Errorf("Parse() = %+v, want defaults", config)
			}
		})
	}
}

func TestConfigParser_Parse_LibcModes(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want entities.LibcConfig
	}{
		{"path", "libc:\n  path: /lib/libc.so.6\n", entities.LibcConfig{Mode: entities.LibcModePath, Path: "/lib/libc.so.6"}},
		{"sysroot", "libc:\n  sysroot: /opt/arm\n", entities.LibcConfig{Mode: entities.LibcModeSysroot, Sysroot: "/opt/arm"}},
		{"disabled", "libc:\n  disabled: true\n", entities.LibcConfig{Mode: entities.LibcModeNone}},
		{"auto", "libc: {}\n", entities.LibcConfig{Mode: entities.LibcModeAuto}},
	}

	parser := NewConfigParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := parser.Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if config.Libc != tt.want {
				t.Errorf("Libc = %+v, want %+v", config.Libc, tt.want)
			}
		})
	}
}

func TestConfigParser_Parse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"conflicting libc", "libc:\n  spec: lsb5\n  sysroot: /opt\n", "mutually exclusive"},
		{"unknown spec", "libc:\n  spec: lsb9\n", "unknown libc specification"},
		{"bad color", "color: sometimes\n", "invalid color mode"},
		{"bad format", "format: xml\n", "invalid output format"},
		{"negative jobs", "jobs: -2\n", "must not be negative"},
		{"unknown key", "colour: never\n", "failed to parse YAML"},
		{"broken yaml", "libc: [broken\n", "failed to parse YAML"},
	}

	parser := NewConfigParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should return an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Parse() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigParser_ParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hardcheck.yml")
	if err := os.WriteFile(path, []byte("format: table\n"), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := NewConfigParser().ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if config.Format != entities.OutputTable {
		t.Errorf("Format = %v, want table", config.Format)
	}

	if _, err := NewConfigParser().ParseFile(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("ParseFile() should fail for a missing file")
	}
}

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
)

var _ interfaces.Logger = (*Logger)(nil)

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(&buf, tt.verbose, entities.ColorNever)

			log.Debug("Found type PT_GNU_RELRO inside program headers.")
			log.Warn("Archive member is not an object file", interfaces.F("member", "README"))

			out := buf.String()
			if got := strings.Contains(out, "PT_GNU_RELRO"); got != tt.wantDebug {
				t.Errorf("debug line logged = %v, want %v\n%s", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "level=warning") || !strings.Contains(out, "member=README") {
				t.Errorf("warning line missing fields:\n%s", out)
			}
		})
	}
}

func TestLogger_NoColorsWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false, entities.ColorNever).Error("Analysis failed", interfaces.F("path", "/bin/ls"))

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("output contains color escapes: %q", buf.String())
	}
	if !strings.Contains(buf.String(), `msg="Analysis failed"`) {
		t.Errorf("output = %q, want the quoted message", buf.String())
	}
}

func TestLogger_WithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	root := New(&buf, true, entities.ColorNever)
	child := root.With(interfaces.PathField("/usr/lib/libfoo.a"))

	child.Debug("Archive member analyzed", interfaces.F("member", "foo.o"))
	root.Info("Batch done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "path=/usr/lib/libfoo.a") || !strings.Contains(lines[0], "member=foo.o") {
		t.Errorf("child line = %q, want path and member fields", lines[0])
	}
	if strings.Contains(lines[1], "path=") {
		t.Errorf("parent line = %q, must not inherit child fields", lines[1])
	}
}

package gateways

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestInputFinder_Expand(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"bin/true", "bin/false", "lib/libz.a", "lib/sub/libm.so.6"} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Symlink(filepath.Join(root, "bin/true"), filepath.Join(root, "lib/true-link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	missing := filepath.Join(root, "missing")

	tests := []struct {
		name      string
		recursive bool
		args      []string
		want      []string
	}{
		{
			name:      "files are kept in order",
			recursive: true,
			args:      []string{filepath.Join(root, "lib/libz.a"), filepath.Join(root, "bin/true")},
			want:      []string{filepath.Join(root, "lib/libz.a"), filepath.Join(root, "bin/true")},
		},
		{
			name:      "directories are walked lexically",
			recursive: true,
			args:      []string{filepath.Join(root, "lib"), filepath.Join(root, "bin")},
			want: []string{
				filepath.Join(root, "lib/libz.a"),
				filepath.Join(root, "lib/sub/libm.so.6"),
				filepath.Join(root, "bin/false"),
				filepath.Join(root, "bin/true"),
			},
		},
		{
			name:      "directories are kept without recursion",
			recursive: false,
			args:      []string{filepath.Join(root, "bin")},
			want:      []string{filepath.Join(root, "bin")},
		},
		{
			name:      "missing paths are left to the analysis",
			recursive: true,
			args:      []string{missing},
			want:      []string{missing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInputFinder(tt.recursive).Expand(tt.args)
			if err != nil {
				t.Fatalf("Expand() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expand() = %v, want %v", got, tt.want)
			}
		})
	}
}

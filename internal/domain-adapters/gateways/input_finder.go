package gateways

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// InputFinder expands command line arguments into the files to analyze
type InputFinder struct {
	recursive bool
}

// NewInputFinder creates a finder. recursive enables directory walking.
func NewInputFinder(recursive bool) *InputFinder {
	return &InputFinder{recursive: recursive}
}

// Expand returns args with every directory replaced by the regular files below
// it, in lexical order, when recursion is enabled. Without recursion, and for
// anything that is not a directory, the argument is kept as is so the analysis
// reports its error.
func (f *InputFinder) Expand(args []string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() || !f.recursive {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

// Package mmap maps input files read-only for the binary analyzers.
package mmap

import (
	"fmt"
	"os"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

// Loader implements gateways.ImageLoader on top of the operating system's file mappings
type Loader struct{}

// NewLoader creates a new loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load maps path read-only. Empty files yield an image with no data.
func (l *Loader) Load(path string) (*entities.BinaryImage, error) {
	//nolint:gosec // G304: path is an input file named by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrIOFailure, err)
	}
	//nolint:errcheck // Defer close, the mapping outlives the descriptor
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrIOFailure, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", entities.ErrIOFailure, path)
	}
	if info.Size() == 0 {
		return entities.NewBinaryImage(path, nil, nil), nil
	}

	data, release, err := mapFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to map %s: %w", entities.ErrIOFailure, path, err)
	}
	return entities.NewBinaryImage(path, data, release), nil
}

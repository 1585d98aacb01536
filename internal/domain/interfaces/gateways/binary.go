// Package gateways defines the contracts of the binary inspection adapters.
package gateways

import (
	"context"
	"debug/elf"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

// ImageLoader maps input files read-only
type ImageLoader interface {
	// Load maps path. The caller must Close the returned image.
	Load(path string) (*entities.BinaryImage, error)
}

// BinaryAnalyzer sniffs an image's format and extracts its feature statuses
type BinaryAnalyzer interface {
	// Analyze sets image.Format and returns the ordered feature list for that format
	Analyze(ctx context.Context, image *entities.BinaryImage) ([]entities.FeatureReport, error)
}

// LibcResolver locates the C runtime a dynamically linked ELF binary needs
type LibcResolver interface {
	// Resolve returns a shared, immutable handle. needed is the binary's DT_NEEDED
	// list and machine its ELF machine, used to reject foreign-architecture libraries.
	Resolve(ctx context.Context, needed []string, machine elf.Machine) (*entities.LibcHandle, error)
}

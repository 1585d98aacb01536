// Package gateways provides adapter implementations that inspect binary files.
package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/interfaces/gateways"
)

// binaryAnalyzerGateway implements binary hardening analysis using pure Go.
// Uses debug/elf and debug/pe packages - no external tools required
type binaryAnalyzerGateway struct {
	elf     *elfAnalyzer
	pe      *peAnalyzer
	archive *archiveAnalyzer
	logger  interfaces.Logger
}

// NewBinaryAnalyzerGateway creates a new binary analyzer gateway. resolver may
// be nil, in which case FORTIFY-SOURCE is always unknown.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewBinaryAnalyzerGateway(resolver gateways.LibcResolver, logger interfaces.Logger) *binaryAnalyzerGateway {
	logger = interfaces.OrNoOp(logger)
	return &binaryAnalyzerGateway{
		elf:     newELFAnalyzer(resolver, logger),
		pe:      newPEAnalyzer(logger),
		archive: newArchiveAnalyzer(logger),
		logger:  logger,
	}
}

// Analyze sniffs the image format and runs the analyzer for that format
func (g *binaryAnalyzerGateway) Analyze(ctx context.Context, image *entities.BinaryImage) ([]entities.FeatureReport, error) {
	format, err := Sniff(image.Data)
	image.Format = format
	if err != nil {
		return nil, err
	}
	g.logger.Debug("Detected binary format", interfaces.PathField(image.Path), interfaces.F("format", format.String()))

	switch format {
	case entities.FormatELF32, entities.FormatELF64:
		return g.elf.Analyze(ctx, image)
	case entities.FormatPE32, entities.FormatPE32Plus:
		return g.pe.Analyze(ctx, image)
	case entities.FormatArchive:
		return g.archive.Analyze(ctx, image)
	default:
		panic(fmt.Sprintf("no analyzer for binary format %s", format))
	}
}

// requireFormat panics when an analyzer is handed an image of another format
func requireFormat(image *entities.BinaryImage, ok bool, analyzer string) {
	if !ok {
		panic(fmt.Sprintf("%s analyzer reached with %s image %s", analyzer, image.Format, image.Path))
	}
}

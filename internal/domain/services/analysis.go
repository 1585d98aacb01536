package services

import (
	"context"
	"fmt"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/interfaces/gateways"
	"github.com/ochairo/hardcheck/internal/domain/interfaces/services"
)

// analysisService implements AnalysisService by delegating I/O to gateways
type analysisService struct {
	loader   gateways.ImageLoader
	analyzer gateways.BinaryAnalyzer
	logger   interfaces.Logger
}

// NewAnalysisService creates a new analysis service with dependency injection
func NewAnalysisService(loader gateways.ImageLoader, analyzer gateways.BinaryAnalyzer, logger interfaces.Logger) services.AnalysisService {
	return &analysisService{
		loader:   loader,
		analyzer: analyzer,
		logger:   interfaces.OrNoOp(logger),
	}
}

// AnalyzeFile maps path, runs the format analyzer and releases the mapping
func (s *analysisService) AnalyzeFile(ctx context.Context, path string) entities.AnalysisResult {
	result := entities.AnalysisResult{Path: path}

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	log := s.logger.With(interfaces.PathField(path))

	image, err := s.loader.Load(path)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", path, err)
		log.Error("Failed to load binary", interfaces.ErrField(err))
		return result
	}
	defer func() {
		if cerr := image.Close(); cerr != nil {
			log.Warn("Failed to release binary mapping", interfaces.ErrField(cerr))
		}
	}()

	features, err := s.analyzer.Analyze(ctx, image)
	result.Format = image.Format
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", path, err)
		log.Error("Binary analysis failed", interfaces.ErrField(err))
		return result
	}

	result.Features = features
	log.Debug("Binary analyzed",
		interfaces.F("format", image.Format.String()),
		interfaces.F("features", len(features)))
	return result
}

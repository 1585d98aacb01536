// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/hardcheck/internal/domain/entities"
)

// AnalysisService analyzes one input file end to end
type AnalysisService interface {
	// AnalyzeFile never returns an error: fatal per-file errors are recorded
	// in the result so a batch can carry on
	AnalyzeFile(ctx context.Context, path string) entities.AnalysisResult
}

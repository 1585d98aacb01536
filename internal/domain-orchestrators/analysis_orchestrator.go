// Package orchestrators coordinates services for multi-file use cases.
package orchestrators

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
	"github.com/ochairo/hardcheck/internal/domain/interfaces/services"
)

// AnalysisOrchestrator runs the per-file analysis of a batch on a bounded pool of workers
type AnalysisOrchestrator struct {
	analysisService services.AnalysisService
	jobs            int
	logger          interfaces.Logger
}

// NewAnalysisOrchestrator creates an orchestrator. jobs <= 0 means one worker per available CPU.
func NewAnalysisOrchestrator(analysisService services.AnalysisService, jobs int, logger interfaces.Logger) *AnalysisOrchestrator {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return &AnalysisOrchestrator{
		analysisService: analysisService,
		jobs:            jobs,
		logger:          interfaces.OrNoOp(logger),
	}
}

// Workers returns the pool size
func (o *AnalysisOrchestrator) Workers() int {
	return o.jobs
}

// BatchSummary counts the outcome of a batch
type BatchSummary struct {
	Files    int
	Failed   int
	Statuses map[entities.FeatureStatus]int
	Duration time.Duration
}

// AnalyzeAll analyzes every path and returns one result per path, in input order.
// A failing file never stops the others; its error is recorded in its result.
func (o *AnalysisOrchestrator) AnalyzeAll(ctx context.Context, paths []string) []entities.AnalysisResult {
	startTime := time.Now()
	results := make([]entities.AnalysisResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)

	for i, path := range paths {
		g.Go(func() error {
			results[i] = o.analysisService.AnalyzeFile(gctx, path)
			return nil
		})
	}
	// Tasks never return errors, per-file failures live in the results
	_ = g.Wait()

	o.logger.Debug("Batch analyzed",
		interfaces.F("files", len(paths)),
		interfaces.F("workers", o.jobs),
		interfaces.F("duration", time.Since(startTime)))
	return results
}

// Summarize counts failures and feature statuses across results
func Summarize(results []entities.AnalysisResult, duration time.Duration) BatchSummary {
	summary := BatchSummary{
		Files:    len(results),
		Statuses: make(map[entities.FeatureStatus]int),
		Duration: duration,
	}
	for _, r := range results {
		if r.Failed() {
			summary.Failed++
			continue
		}
		for _, f := range r.Features {
			summary.Statuses[f.Status]++
		}
	}
	return summary
}

// String renders a one-line human summary
func (s BatchSummary) String() string {
	return fmt.Sprintf("%d files, %d failed: %d present, %d probably present, %d absent, %d unknown (%v)",
		s.Files, s.Failed,
		s.Statuses[entities.StatusPresent],
		s.Statuses[entities.StatusProbablyPresent],
		s.Statuses[entities.StatusAbsent],
		s.Statuses[entities.StatusUnknown],
		s.Duration.Round(time.Millisecond))
}

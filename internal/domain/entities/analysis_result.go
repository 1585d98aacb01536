package entities

// AnalysisResult holds the ordered feature statuses of one input file, or the
// fatal error that stopped its analysis
type AnalysisResult struct {
	Path     string
	Format   BinaryFormat
	Features []FeatureReport
	Err      error
}

// Failed reports whether the file hit a fatal per-file error
func (r AnalysisResult) Failed() bool {
	return r.Err != nil
}

// Status returns the status recorded for feature, and false if the feature
// was not part of this result
func (r AnalysisResult) Status(feature SecurityFeature) (FeatureStatus, bool) {
	for _, f := range r.Features {
		if f.Feature == feature {
			return f.Status, true
		}
	}
	return StatusUnknown, false
}

// AnyFailed reports whether at least one result failed
func AnyFailed(results []AnalysisResult) bool {
	for _, r := range results {
		if r.Failed() {
			return true
		}
	}
	return false
}

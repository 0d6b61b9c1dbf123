// Package analyze computes summary statistics over review collections.
package analyze

import "github.com/placelens/placelens/internal/report"

// KeywordExtractor derives popular keywords from a review collection. The
// pipeline ships with NoopKeywords; richer extraction plugs in here without
// touching the orchestrator.
type KeywordExtractor interface {
	Extract(reviews []report.Review) map[string]int
}

// NoopKeywords always yields an empty keyword map.
type NoopKeywords struct{}

// Extract returns an empty map for any input.
func (NoopKeywords) Extract([]report.Review) map[string]int {
	return map[string]int{}
}

// Analyzer turns review collections into report.Analysis values.
type Analyzer struct {
	keywords KeywordExtractor
}

// New builds an Analyzer; a nil extractor falls back to NoopKeywords.
func New(keywords KeywordExtractor) *Analyzer {
	if keywords == nil {
		keywords = NoopKeywords{}
	}
	return &Analyzer{keywords: keywords}
}

// Summarize computes the review count and mean rating. A review without a
// rating contributes 0 to the mean, and the mean of an empty collection is
// defined as 0.
func (a *Analyzer) Summarize(reviews []report.Review) report.Analysis {
	analysis := report.Analysis{
		TotalReviews: len(reviews),
		Keywords:     a.keywords.Extract(reviews),
	}
	if len(reviews) == 0 {
		return analysis
	}
	var sum float64
	for _, rv := range reviews {
		sum += rv.Rating
	}
	analysis.AverageRating = sum / float64(len(reviews))
	return analysis
}

package analyze

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/placelens/placelens/internal/report"
)

// TestSummarizeEmpty defines the empty collection as count 0, average 0.
func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	analysis := New(nil).Summarize(nil)
	require.Zero(t, analysis.TotalReviews)
	require.Zero(t, analysis.AverageRating)
	require.NotNil(t, analysis.Keywords)
	require.Empty(t, analysis.Keywords)
}

// TestSummarizeMean computes the arithmetic mean with absent ratings as 0.
func TestSummarizeMean(t *testing.T) {
	t.Parallel()

	reviews := []report.Review{
		{Nickname: "a", Rating: 5},
		{Nickname: "b", Rating: 3},
		{Nickname: "c"}, // no rating, counts as 0
	}
	analysis := New(nil).Summarize(reviews)
	require.Equal(t, 3, analysis.TotalReviews)
	require.InDelta(t, 8.0/3.0, analysis.AverageRating, 1e-9)
}

// TestKeywordsAlwaysEmpty pins the no-op extractor's contract.
func TestKeywordsAlwaysEmpty(t *testing.T) {
	t.Parallel()

	reviews := []report.Review{{Content: "정말 맛있어요 맛있어요"}}
	analysis := New(NoopKeywords{}).Summarize(reviews)
	require.Empty(t, analysis.Keywords)
}

// TestCustomExtractor verifies the extension point is honored.
func TestCustomExtractor(t *testing.T) {
	t.Parallel()

	analysis := New(stubKeywords{"맛집": 2}).Summarize([]report.Review{{}})
	require.Equal(t, map[string]int{"맛집": 2}, analysis.Keywords)
}

type stubKeywords map[string]int

func (s stubKeywords) Extract([]report.Review) map[string]int {
	return s
}

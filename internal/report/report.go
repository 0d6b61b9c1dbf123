// Package report defines the domain model for store review reports.
package report

import "time"

// Status is the lifecycle state of a Report. Transitions are monotonic:
// a report starts in StatusProgress and moves exactly once to
// StatusCompleted or StatusFailed.
type Status string

// Supported report statuses.
const (
	StatusProgress  Status = "PROGRESS"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether the status will never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AnonymousMember is the sentinel member id for requests without a
// decodable credential. Anonymous jobs emit no progress events and are
// excluded from per-member listings.
const AnonymousMember int64 = 0

// Store is a physical business. Rows are created lazily the first time a
// job references an unseen name; Name is the unique business key.
type Store struct {
	ID        int64
	PlaceID   string // external place id; empty until resolved
	Name      string
	Address   string
	Category  string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Report is one pipeline execution, keyed by the id handed back to the
// caller at submission time.
type Report struct {
	ID                int64
	MemberID          int64
	StoreID           int64
	Status            Status
	TotalReviewCount  int
	AverageReviewRate float64
	PopularKeywords   map[string]int
	AnalyticsResult   *Analysis
	CreatedAt         time.Time
}

// Review is one structured visitor review extracted from a raw document.
type Review struct {
	Nickname string  `json:"nickname"`
	Content  string  `json:"content"`
	Date     string  `json:"date"`
	Revisit  string  `json:"revisit"`
	Rating   float64 `json:"rating,omitempty"`
}

// Analysis is the summary computed over a review collection.
type Analysis struct {
	TotalReviews  int            `json:"total_reviews"`
	AverageRating float64        `json:"average_rating"`
	Keywords      map[string]int `json:"keywords"`
}

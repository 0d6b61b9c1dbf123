package report

import "errors"

// Sentinel errors used across the pipeline. ErrPlaceNotFound and
// ErrNoReviews are expected outcomes for ambiguous or unreviewed stores,
// not process faults; they still mark the report FAILED.
var (
	ErrNotFound      = errors.New("report not found")
	ErrStoreNotFound = errors.New("store not found")
	ErrPlaceNotFound = errors.New("place id not found for query")
	ErrNoReviews     = errors.New("no reviews found")
)

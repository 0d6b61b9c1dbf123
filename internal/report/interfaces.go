package report

import (
	"context"
	"time"

	"github.com/placelens/placelens/internal/progress"
)

// Repository persists stores and reports. Every write is one short
// transaction on a fresh pool acquisition; no connection is held across an
// acquisition stage.
type Repository interface {
	// CreateStoreIfAbsent returns the store with the given name, creating
	// it first if no row exists. Idempotent on name.
	CreateStoreIfAbsent(ctx context.Context, name string) (Store, error)
	// CreateReport inserts a report in StatusProgress with zero counts.
	CreateReport(ctx context.Context, memberID, storeID int64) (Report, error)
	// AttachPlaceID sets the resolved place id on the report's store row.
	AttachPlaceID(ctx context.Context, reportID int64, placeID string) error
	// CompleteReport attaches the place id to the owning store, writes the
	// analysis summary, and moves the report to StatusCompleted in a single
	// transaction.
	CompleteReport(ctx context.Context, reportID int64, placeID string, analysis Analysis) error
	// UpdateStatus moves the report to the given status.
	UpdateStatus(ctx context.Context, reportID int64, status Status) error
	// GetReport returns ErrNotFound when no row matches.
	GetReport(ctx context.Context, reportID int64) (Report, error)
	// ListByMember returns the member's reports, newest first. Anonymous
	// reports are excluded; memberID 0 yields an empty slice.
	ListByMember(ctx context.Context, memberID int64) ([]Report, error)
}

// Fetcher acquires raw documents from the external place site. Both calls
// block on a browser session and must run on the worker pool, never on a
// request goroutine.
type Fetcher interface {
	Place(ctx context.Context, query string) (string, error)
	Reviews(ctx context.Context, placeID string, moreClicks int) (string, error)
}

// Gateway publishes progress events to named channels on the message bus.
// Delivery is fire-and-forget, at most once.
type Gateway interface {
	Publish(ctx context.Context, channel string, evt progress.Event) error
	PublishToMany(ctx context.Context, channels []string, evt progress.Event) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

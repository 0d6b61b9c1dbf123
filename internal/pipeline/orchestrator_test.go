package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/placelens/placelens/internal/analyze"
	"github.com/placelens/placelens/internal/channel"
	systemclock "github.com/placelens/placelens/internal/clock/system"
	gwmemory "github.com/placelens/placelens/internal/gateway/memory"
	"github.com/placelens/placelens/internal/progress"
	"github.com/placelens/placelens/internal/report"
	storememory "github.com/placelens/placelens/internal/store/memory"
	"github.com/placelens/placelens/internal/worker"
)

const searchPageHTML = `<html><script>window.__APOLLO_STATE__ = {` +
	`"RestaurantListSummary:1997987484":{"__typename":"RestaurantListSummary",` +
	`"name":"스타벅스 정자동점","id":"1997987484"}};</script></html>`

const reviewPageHTML = `<html><body><ul>
<li class="place_apply_pui EjjAW">
  <div class="pui__JiVbY3"><span class="pui__uslU0d">맛집헌터</span></div>
  <div class="pui__vn15t2"><a>파스타가 정말 맛있어요.</a></div>
  <div class="pui__QKE5Pr"><span class="pui__gfuUIT"><time>7.21.월</time></span></div>
</li>
<li class="place_apply_pui EjjAW">
  <div class="pui__vn15t2"><a>보통이었어요</a></div>
</li>
</ul></body></html>`

const emptyReviewPageHTML = `<html><body><ul></ul></body></html>`

func newTestHarness(t *testing.T, fetcher report.Fetcher) (*Orchestrator, *storememory.ReportStore, *gwmemory.Gateway) {
	t.Helper()
	repo := storememory.New(systemclock.New())
	gw := gwmemory.New()
	pool, err := worker.NewPool(2)
	require.NoError(t, err)
	orch := New(repo, fetcher, gw, analyze.New(nil), pool, nil, zap.NewNop(), Config{
		MoreClicks:     5,
		AcquireTimeout: time.Second,
	})
	return orch, repo, gw
}

// TestRunJobSuccess walks the whole stage sequence and checks the stored
// summary and the emitted event stream.
func TestRunJobSuccess(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeHTML: searchPageHTML, reviewsHTML: reviewPageHTML}
	orch, repo, gw := newTestHarness(t, fetcher)
	ctx := context.Background()

	reportID, err := orch.CreateJob(ctx, 42, "스타벅스 정자동점")
	require.NoError(t, err)

	analysis, err := orch.RunJob(ctx, 42, reportID, "스타벅스 정자동점")
	require.NoError(t, err)
	require.Equal(t, 2, analysis.TotalReviews)

	rp, err := repo.GetReport(ctx, reportID)
	require.NoError(t, err)
	require.Equal(t, report.StatusCompleted, rp.Status)
	require.Equal(t, 2, rp.TotalReviewCount)
	require.NotNil(t, rp.AnalyticsResult)

	st, err := repo.GetStore(ctx, rp.StoreID)
	require.NoError(t, err)
	require.Equal(t, "1997987484", st.PlaceID)

	require.Equal(t, "1997987484", fetcher.lastPlaceID)
	require.Equal(t, 5, fetcher.lastMoreClicks)

	events := gw.Events(channel.User(42))
	require.NotEmpty(t, events)
	require.Equal(t, progress.StatusStarted, events[0].Status)
	require.Equal(t, progress.StatusCompleted, events[len(events)-1].Status)
	require.Equal(t, 100, events[len(events)-1].Progress)
	for i := 1; i < len(events); i++ {
		require.GreaterOrEqual(t, events[i].Progress, events[i-1].Progress,
			"progress must be non-decreasing")
	}
}

// TestRunJobPlaceNotFound fails the job before any review fetch and closes
// the channel with a single error event.
func TestRunJobPlaceNotFound(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeHTML: "<html><body>no match</body></html>"}
	orch, repo, gw := newTestHarness(t, fetcher)
	ctx := context.Background()

	reportID, err := orch.CreateJob(ctx, 7, "없는 가게")
	require.NoError(t, err)

	_, err = orch.RunJob(ctx, 7, reportID, "없는 가게")
	require.ErrorIs(t, err, report.ErrPlaceNotFound)

	rp, err := repo.GetReport(ctx, reportID)
	require.NoError(t, err)
	require.Equal(t, report.StatusFailed, rp.Status)
	require.Zero(t, fetcher.reviewCalls, "no review fetch after failed resolution")

	events := gw.Events(channel.User(7))
	var errorEvents int
	for _, evt := range events {
		if evt.Status == progress.StatusError {
			errorEvents++
		}
	}
	require.Equal(t, 1, errorEvents)
	require.Equal(t, progress.StatusError, events[len(events)-1].Status)
}

// TestRunJobNoReviews fails the job but keeps the resolved place id on the
// store row.
func TestRunJobNoReviews(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeHTML: searchPageHTML, reviewsHTML: emptyReviewPageHTML}
	orch, repo, _ := newTestHarness(t, fetcher)
	ctx := context.Background()

	reportID, err := orch.CreateJob(ctx, 9, "리뷰없는집")
	require.NoError(t, err)

	_, err = orch.RunJob(ctx, 9, reportID, "리뷰없는집")
	require.ErrorIs(t, err, report.ErrNoReviews)

	rp, err := repo.GetReport(ctx, reportID)
	require.NoError(t, err)
	require.Equal(t, report.StatusFailed, rp.Status)

	st, err := repo.GetStore(ctx, rp.StoreID)
	require.NoError(t, err)
	require.Equal(t, "1997987484", st.PlaceID, "resolution survives the failure")
}

// TestRunJobFailureKeepsProgressMonotonic fails a job after the 50% event
// and checks the terminal error event does not roll progress back.
func TestRunJobFailureKeepsProgressMonotonic(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeHTML: searchPageHTML, reviewsHTML: emptyReviewPageHTML}
	orch, _, gw := newTestHarness(t, fetcher)
	ctx := context.Background()

	reportID, err := orch.CreateJob(ctx, 5, "리뷰없는집")
	require.NoError(t, err)

	_, err = orch.RunJob(ctx, 5, reportID, "리뷰없는집")
	require.ErrorIs(t, err, report.ErrNoReviews)

	events := gw.Events(channel.User(5))
	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		require.GreaterOrEqual(t, events[i].Progress, events[i-1].Progress,
			"progress must be non-decreasing")
	}
	last := events[len(events)-1]
	require.Equal(t, progress.StatusError, last.Status)
	require.Equal(t, 50, last.Progress)
}

// TestRunJobAnonymousEmitsNothing runs a full job for member 0 without a
// single published event.
func TestRunJobAnonymousEmitsNothing(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeHTML: searchPageHTML, reviewsHTML: reviewPageHTML}
	orch, _, gw := newTestHarness(t, fetcher)
	ctx := context.Background()

	reportID, err := orch.CreateJob(ctx, report.AnonymousMember, "스타벅스 정자동점")
	require.NoError(t, err)

	_, err = orch.RunJob(ctx, report.AnonymousMember, reportID, "스타벅스 정자동점")
	require.NoError(t, err)
	require.Empty(t, gw.Messages(channel.User(0)))
}

// TestRunJobPublishFailureDoesNotAbort treats the bus as fire-and-forget.
func TestRunJobPublishFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeHTML: searchPageHTML, reviewsHTML: reviewPageHTML}
	orch, repo, gw := newTestHarness(t, fetcher)
	gw.FailChannel(channel.User(3), errors.New("bus unavailable"))
	ctx := context.Background()

	reportID, err := orch.CreateJob(ctx, 3, "스타벅스 정자동점")
	require.NoError(t, err)

	_, err = orch.RunJob(ctx, 3, reportID, "스타벅스 정자동점")
	require.NoError(t, err)

	rp, err := repo.GetReport(ctx, reportID)
	require.NoError(t, err)
	require.Equal(t, report.StatusCompleted, rp.Status)
}

// TestCreateJobReusesStore resolves repeated names to one store row.
func TestCreateJobReusesStore(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeHTML: searchPageHTML, reviewsHTML: reviewPageHTML}
	orch, repo, _ := newTestHarness(t, fetcher)
	ctx := context.Background()

	first, err := orch.CreateJob(ctx, 1, "같은가게")
	require.NoError(t, err)
	second, err := orch.CreateJob(ctx, 2, "같은가게")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	a, err := repo.GetReport(ctx, first)
	require.NoError(t, err)
	b, err := repo.GetReport(ctx, second)
	require.NoError(t, err)
	require.Equal(t, a.StoreID, b.StoreID)
}

// TestCreateJobRequiresName rejects empty store names.
func TestCreateJobRequiresName(t *testing.T) {
	t.Parallel()

	orch, _, _ := newTestHarness(t, &stubFetcher{})
	_, err := orch.CreateJob(context.Background(), 1, "")
	require.Error(t, err)
}

// TestRunJobFetchError wraps a browser failure and fails the report.
func TestRunJobFetchError(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{placeErr: errors.New("browser crashed")}
	orch, repo, _ := newTestHarness(t, fetcher)
	ctx := context.Background()

	reportID, err := orch.CreateJob(ctx, 11, "어디든")
	require.NoError(t, err)

	_, err = orch.RunJob(ctx, 11, reportID, "어디든")
	require.ErrorContains(t, err, "acquire_place")

	rp, err := repo.GetReport(ctx, reportID)
	require.NoError(t, err)
	require.Equal(t, report.StatusFailed, rp.Status)
}

// stubFetcher returns canned documents and records call shape.
type stubFetcher struct {
	placeHTML   string
	placeErr    error
	reviewsHTML string
	reviewsErr  error

	placeCalls     int
	reviewCalls    int
	lastPlaceID    string
	lastMoreClicks int
}

func (f *stubFetcher) Place(_ context.Context, _ string) (string, error) {
	f.placeCalls++
	return f.placeHTML, f.placeErr
}

func (f *stubFetcher) Reviews(_ context.Context, placeID string, moreClicks int) (string, error) {
	f.reviewCalls++
	f.lastPlaceID = placeID
	f.lastMoreClicks = moreClicks
	return f.reviewsHTML, f.reviewsErr
}

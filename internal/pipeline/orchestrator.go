// Package pipeline sequences the stages that turn a store name into a
// persisted review report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/placelens/placelens/internal/analyze"
	"github.com/placelens/placelens/internal/channel"
	"github.com/placelens/placelens/internal/extract"
	"github.com/placelens/placelens/internal/metrics"
	"github.com/placelens/placelens/internal/progress"
	"github.com/placelens/placelens/internal/report"
	"github.com/placelens/placelens/internal/worker"
)

// Progress percentages for the fixed stage sequence.
const (
	pctResolving  = 10
	pctCollecting = 50
	pctAnalyzing  = 70
	pctSaving     = 90
)

// Config controls per-job behavior.
type Config struct {
	// MoreClicks is the number of "load more" expansions per review fetch.
	MoreClicks int
	// AcquireTimeout bounds each acquisition stage. A stage that exceeds it
	// fails the job instead of holding a pool slot indefinitely.
	AcquireTimeout time.Duration
	// JobBudget bounds one whole job run.
	JobBudget time.Duration
}

// Orchestrator drives one job per RunJob invocation: acquisition,
// extraction, analysis, persistence, and progress emission, strictly in
// order. It holds no per-job state across invocations; every report
// mutation is a fresh read-modify-write through the repository.
type Orchestrator struct {
	repo     report.Repository
	fetcher  report.Fetcher
	gateway  report.Gateway
	analyzer *analyze.Analyzer
	pool     *worker.Pool
	pipeMet  *metrics.Pipeline
	logger   *zap.Logger
	cfg      Config
}

// New constructs an Orchestrator. Metrics may be nil.
func New(
	repo report.Repository,
	fetcher report.Fetcher,
	gw report.Gateway,
	analyzer *analyze.Analyzer,
	pool *worker.Pool,
	pipeMet *metrics.Pipeline,
	logger *zap.Logger,
	cfg Config,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = analyze.New(nil)
	}
	if cfg.MoreClicks <= 0 {
		cfg.MoreClicks = 5
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 60 * time.Second
	}
	return &Orchestrator{
		repo:     repo,
		fetcher:  fetcher,
		gateway:  gw,
		analyzer: analyzer,
		pool:     pool,
		pipeMet:  pipeMet,
		logger:   logger,
		cfg:      cfg,
	}
}

// CreateJob is the synchronous half: it resolves (or lazily creates) the
// store row and inserts the report in PROGRESS. Errors propagate to the
// caller; nothing long-running happens here.
func (o *Orchestrator) CreateJob(ctx context.Context, memberID int64, storeName string) (int64, error) {
	if storeName == "" {
		return 0, fmt.Errorf("store name is required")
	}
	st, err := o.repo.CreateStoreIfAbsent(ctx, storeName)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	rp, err := o.repo.CreateReport(ctx, memberID, st.ID)
	if err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	return rp.ID, nil
}

// RunJob is the detached half. It executes the stage sequence for one
// report and finalizes the row on success or failure. The returned
// analysis serves callers that bypass the bus (tests, synchronous tools);
// the error never reaches an HTTP caller, who already holds the report id.
func (o *Orchestrator) RunJob(
	ctx context.Context,
	memberID int64,
	reportID int64,
	storeName string,
) (report.Analysis, error) {
	if o.cfg.JobBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.JobBudget)
		defer cancel()
	}

	ch := ""
	if memberID != report.AnonymousMember {
		ch = channel.User(memberID)
	}

	o.pipeMet.JobStarted()
	analysis, lastPct, err := o.run(ctx, ch, reportID, storeName)
	if err != nil {
		o.pipeMet.JobCompleted("failed")
		o.fail(ctx, ch, reportID, err, lastPct)
		return report.Analysis{}, err
	}
	o.pipeMet.JobCompleted("completed")
	return analysis, nil
}

// run returns the last emitted progress percentage alongside any error, so
// the terminal error event never reports less progress than what the
// channel has already seen.
func (o *Orchestrator) run(
	ctx context.Context,
	ch string,
	reportID int64,
	storeName string,
) (report.Analysis, int, error) {
	pct := pctResolving
	o.emit(ctx, ch, progress.Started("resolving location", pct))

	placeHTML, err := o.acquire(ctx, "acquire_place", func(ctx context.Context) (string, error) {
		return o.fetcher.Place(ctx, storeName)
	})
	if err != nil {
		return report.Analysis{}, pct, err
	}
	placeID, err := extract.PlaceID(placeHTML)
	if err != nil {
		return report.Analysis{}, pct, err
	}
	// Attach immediately so the resolution survives a later stage failure.
	if err := o.repo.AttachPlaceID(ctx, reportID, placeID); err != nil {
		return report.Analysis{}, pct, err
	}

	pct = pctCollecting
	o.emit(ctx, ch, progress.Processing("collecting reviews", pct))

	reviewsHTML, err := o.acquire(ctx, "acquire_reviews", func(ctx context.Context) (string, error) {
		return o.fetcher.Reviews(ctx, placeID, o.cfg.MoreClicks)
	})
	if err != nil {
		return report.Analysis{}, pct, err
	}
	reviews, err := extract.Reviews(reviewsHTML)
	if err != nil {
		return report.Analysis{}, pct, err
	}
	if len(reviews) == 0 {
		return report.Analysis{}, pct, report.ErrNoReviews
	}

	pct = pctAnalyzing
	o.emit(ctx, ch, progress.Processing("analyzing", pct))
	start := time.Now()
	analysis := o.analyzer.Summarize(reviews)
	o.pipeMet.ObserveStage("analyze", time.Since(start))

	pct = pctSaving
	o.emit(ctx, ch, progress.Processing("saving", pct))
	start = time.Now()
	if err := o.repo.CompleteReport(ctx, reportID, placeID, analysis); err != nil {
		return report.Analysis{}, pct, err
	}
	o.pipeMet.ObserveStage("save", time.Since(start))

	o.emit(ctx, ch, progress.Completed("done", analysis))
	return analysis, 100, nil
}

// acquire runs one blocking fetch on the worker pool under its own
// deadline, so a hung browser session surfaces as a stage timeout rather
// than an occupied slot forever.
func (o *Orchestrator) acquire(
	ctx context.Context,
	stage string,
	fetch func(context.Context) (string, error),
) (string, error) {
	start := time.Now()
	defer func() { o.pipeMet.ObserveStage(stage, time.Since(start)) }()

	stageCtx, cancel := context.WithTimeout(ctx, o.cfg.AcquireTimeout)
	defer cancel()

	var html string
	err := o.pool.Do(stageCtx, func(ctx context.Context) error {
		var fetchErr error
		html, fetchErr = fetch(ctx)
		return fetchErr
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", stage, err)
	}
	return html, nil
}

// fail finalizes a job exactly once: the FAILED status write is best
// effort and its own failure is logged, never allowed to mask the
// original error; one error event closes the channel sequence at the last
// percentage the channel saw.
func (o *Orchestrator) fail(ctx context.Context, ch string, reportID int64, cause error, lastPct int) {
	// The job context may already be dead (timeout); give the terminal
	// write and event a short lease of their own.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := o.repo.UpdateStatus(ctx, reportID, report.StatusFailed); err != nil {
		o.logger.Error("persist FAILED status",
			zap.Int64("report_id", reportID),
			zap.NamedError("status_err", err),
			zap.NamedError("cause", cause),
		)
	}
	o.emit(ctx, ch, progress.Errored(cause.Error(), lastPct))
	o.logger.Warn("report job failed", zap.Int64("report_id", reportID), zap.Error(cause))
}

// emit publishes one progress event to the member's channel. Anonymous
// jobs have no channel and emit nothing. Publish failures are logged and
// never abort the job; the bus is fire-and-forget.
func (o *Orchestrator) emit(ctx context.Context, ch string, evt progress.Event) {
	if ch == "" {
		return
	}
	if err := o.gateway.Publish(ctx, ch, evt); err != nil {
		o.logger.Warn("progress publish failed",
			zap.String("channel", ch),
			zap.String("status", string(evt.Status)),
			zap.Error(err),
		)
	}
}

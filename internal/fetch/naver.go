// Package fetch acquires raw place documents with a headless browser.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	placeSearchURLFormat = "https://pcmap.place.naver.com/restaurant/list?query=%s"
	reviewURLFormat      = "https://pcmap.place.naver.com/place/%s/review/visitor"

	defaultPlaceUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"
	defaultReviewUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-G973F) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/88.0.4324.93 Mobile Safari/537.36"

	// moreLinkExpr locates the "load more" link on the review page.
	moreLinkExpr = `//a[contains(text(),"더보기")]`

	// settleDelay lets the list re-render after a scroll or click.
	settleDelay = 500 * time.Millisecond
)

// stealthScript masks the obvious headless fingerprints before any page
// script runs; the review pages degrade to an empty shell without it.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.navigator.chrome = { runtime: {} };
Object.defineProperty(navigator, 'languages', { get: () => ['en-US','en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1,2,3,4,5] });
`

// Config controls the behavior of the fetcher.
type Config struct {
	MaxParallel     int
	NavTimeout      time.Duration
	ClickTimeout    time.Duration
	PlaceUserAgent  string
	ReviewUserAgent string
}

// Fetcher implements report.Fetcher using chromedp and headless Chrome.
// Every navigation runs under an explicit bounded timeout; both entry
// points block and are meant to run on the worker pool.
type Fetcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a headless fetcher backed by chromedp.
func New(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 25 * time.Second
	}
	if cfg.ClickTimeout <= 0 {
		cfg.ClickTimeout = 3 * time.Second
	}
	if cfg.PlaceUserAgent == "" {
		cfg.PlaceUserAgent = defaultPlaceUserAgent
	}
	if cfg.ReviewUserAgent == "" {
		cfg.ReviewUserAgent = defaultReviewUserAgent
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (f *Fetcher) Close() {
	f.allocCancel()
}

func placeSearchTarget(query string) string {
	return fmt.Sprintf(placeSearchURLFormat, url.QueryEscape(query))
}

func reviewTarget(placeID string) string {
	return fmt.Sprintf(reviewURLFormat, url.PathEscape(placeID))
}

// Place navigates the search page for query and returns the rendered DOM.
func (f *Fetcher) Place(ctx context.Context, query string) (string, error) {
	html, err := f.render(ctx, placeSearchTarget(query), f.cfg.PlaceUserAgent, nil)
	if err != nil {
		return "", fmt.Errorf("fetch place document for %q: %w", query, err)
	}
	return html, nil
}

// Reviews navigates the visitor review page for placeID, expands the list
// by clicking the more-link up to moreClicks times, and returns the
// rendered DOM. Clicks stop early once the link disappears.
func (f *Fetcher) Reviews(ctx context.Context, placeID string, moreClicks int) (string, error) {
	html, err := f.render(ctx, reviewTarget(placeID), f.cfg.ReviewUserAgent, f.expandReviews(moreClicks))
	if err != nil {
		return "", fmt.Errorf("fetch review document for place %s: %w", placeID, err)
	}
	return html, nil
}

// render opens a fresh tab, navigates under the configured timeout, runs
// the optional extra action, and snapshots the DOM.
func (f *Fetcher) render(
	ctx context.Context,
	target string,
	userAgent string,
	extra chromedp.Action,
) (string, error) {
	if err := f.acquire(ctx); err != nil {
		return "", err
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavTimeout)
	defer cancel()

	// Propagate caller cancellation into the browser task.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-taskCtx.Done():
		}
	}()

	actions := []chromedp.Action{
		f.sessionSetupAction(userAgent),
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if extra != nil {
		actions = append(actions, extra)
	}
	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (f *Fetcher) sessionSetupAction(userAgent string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx); err != nil {
			return fmt.Errorf("install stealth script: %w", err)
		}
		if err := emulation.SetUserAgentOverride(userAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// expandReviews scrolls the list and clicks the more-link a bounded number
// of times. Each click waits on the link with its own short deadline
// instead of a fixed sleep; a missing link ends the expansion.
func (f *Fetcher) expandReviews(moreClicks int) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil).Do(ctx); err != nil {
			return fmt.Errorf("scroll review list: %w", err)
		}
		if err := chromedp.Sleep(settleDelay).Do(ctx); err != nil {
			return err
		}
		for i := 0; i < moreClicks; i++ {
			clickCtx, cancel := context.WithTimeout(ctx, f.cfg.ClickTimeout)
			err := chromedp.Run(clickCtx,
				chromedp.WaitVisible(moreLinkExpr, chromedp.BySearch),
				chromedp.Click(moreLinkExpr, chromedp.BySearch),
			)
			cancel()
			if err != nil {
				// Link gone: the list is fully expanded.
				break
			}
			if err := chromedp.Sleep(settleDelay).Do(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

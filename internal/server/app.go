// Package server builds and runs the application.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/placelens/placelens/internal/analyze"
	"github.com/placelens/placelens/internal/api"
	"github.com/placelens/placelens/internal/auth"
	systemclock "github.com/placelens/placelens/internal/clock/system"
	"github.com/placelens/placelens/internal/config"
	"github.com/placelens/placelens/internal/fetch"
	gwmemory "github.com/placelens/placelens/internal/gateway/memory"
	gwpubsub "github.com/placelens/placelens/internal/gateway/pubsub"
	"github.com/placelens/placelens/internal/logging"
	"github.com/placelens/placelens/internal/metrics"
	"github.com/placelens/placelens/internal/pipeline"
	"github.com/placelens/placelens/internal/report"
	"github.com/placelens/placelens/internal/search"
	storememory "github.com/placelens/placelens/internal/store/memory"
	storepostgres "github.com/placelens/placelens/internal/store/postgres"
	"github.com/placelens/placelens/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	apiServer *api.Server
	fetcher   *fetch.Fetcher
	pgStore   *storepostgres.ReportStore
	busGW     *gwpubsub.Gateway
}

// Build creates the application's dependencies. Missing infrastructure
// selects in-memory fallbacks: no DSN means an in-memory repository, no
// Pub/Sub project means an in-memory gateway. That keeps local runs and
// integration tests free of external services.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies", zap.Int("port", cfg.Server.Port))

	var repo report.Repository
	if cfg.DB.DSN != "" {
		app.pgStore, err = storepostgres.NewReportStore(ctx, storepostgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxOpenConns),
		})
		if err != nil {
			return nil, fmt.Errorf("report store init failed: %w", err)
		}
		repo = app.pgStore
		logger.Info("using postgres report store")
	} else {
		repo = storememory.New(systemclock.New())
		logger.Warn("no db.dsn configured, using in-memory report store")
	}

	var gw report.Gateway
	if cfg.PubSub.ProjectID != "" {
		app.busGW, err = gwpubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName, logger.Named("pubsub"))
		if err != nil {
			return nil, fmt.Errorf("pubsub gateway init failed: %w", err)
		}
		gw = app.busGW
		logger.Info("pubsub gateway initialized",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.TopicName),
		)
	} else {
		gw = gwmemory.New()
		logger.Warn("no pubsub.project_id configured, using in-memory gateway")
	}

	app.fetcher, err = fetch.New(fetch.Config{
		MaxParallel:     cfg.Fetch.MaxParallel,
		NavTimeout:      cfg.NavTimeout(),
		ClickTimeout:    cfg.ClickTimeout(),
		PlaceUserAgent:  cfg.Fetch.PlaceUserAgent,
		ReviewUserAgent: cfg.Fetch.ReviewUserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher init failed: %w", err)
	}

	pool, err := worker.NewPool(cfg.Pipeline.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("worker pool init failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	pipeMetrics, err := metrics.NewPipeline(registry)
	if err != nil {
		return nil, fmt.Errorf("pipeline metrics init failed: %w", err)
	}
	httpMetrics, err := metrics.NewHTTP(registry)
	if err != nil {
		return nil, fmt.Errorf("http metrics init failed: %w", err)
	}

	orch := pipeline.New(repo, app.fetcher, gw, analyze.New(nil), pool, pipeMetrics,
		logger.Named("pipeline"), pipeline.Config{
			MoreClicks:     cfg.Pipeline.MoreClicks,
			AcquireTimeout: cfg.AcquireTimeout(),
			JobBudget:      cfg.JobBudget(),
		})

	var members api.MemberResolver
	if cfg.Auth.JWTSecret != "" {
		members, err = auth.NewTokenService(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, fmt.Errorf("token service init failed: %w", err)
		}
	} else {
		members = anonymousMembers{}
		logger.Warn("no auth.jwt_secret configured, all requests are anonymous")
	}

	var searcher *search.Client
	if cfg.Search.ClientID != "" {
		searcher, err = search.New(cfg.Search.ClientID, cfg.Search.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("search client init failed: %w", err)
		}
		logger.Info("store search enabled")
	}

	app.apiServer = api.NewServer(orch, repo, members, searcher, app.fetcher,
		httpMetrics, registry, logger.Named("api"), api.Config{
			RequestTimeout: cfg.RequestTimeout(),
		})

	return app, nil
}

// Run starts the HTTP server and blocks until the context is canceled or
// a termination signal arrives, then shuts down gracefully: stop accepting
// requests, wait for in-flight report jobs, release infrastructure.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	if err := a.apiServer.WaitJobs(shutdownCtx); err != nil {
		a.logger.Warn("report jobs still running at shutdown", zap.Error(err))
	}

	return a.Close()
}

// Close releases infrastructure clients.
func (a *App) Close() error {
	if a.fetcher != nil {
		a.fetcher.Close()
	}
	if a.busGW != nil {
		if err := a.busGW.Close(); err != nil {
			a.logger.Warn("pubsub gateway close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	a.logger.Info("shutdown complete")
	// Best effort; stderr sync fails on some platforms.
	_ = a.logger.Sync()
	return nil
}

// anonymousMembers resolves every request to the anonymous member when no
// JWT secret is configured.
type anonymousMembers struct{}

func (anonymousMembers) FromRequest(*http.Request) int64 { return report.AnonymousMember }

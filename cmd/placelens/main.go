// Package main hosts the report service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, report
//     submission and lookup, plus synchronous place/review utilities.
//     Submission returns a report id immediately; the pipeline runs on a
//     detached goroutine.
//   - Pipeline: internal/pipeline.Orchestrator drives each job through
//     acquisition (headless browser), extraction, analysis, and
//     persistence, emitting progress events to the member's channel after
//     every stage. Blocking acquisitions run on a bounded worker pool.
//   - Persistence & fanout: store and report rows live in Postgres via
//     pgx; progress events go out on a GCP Pub/Sub topic tagged with the
//     logical channel name. Both fall back to in-memory implementations
//     when unconfigured.
//   - Configuration & plumbing: Viper populates config from env/files
//     (PLACELENS_ prefix); zap provides structured logging; Prometheus
//     metrics are exported via middleware and /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/placelens/placelens/internal/config"
	"github.com/placelens/placelens/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "placelens: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Cloud Run style port override.
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}

	ctx := context.Background()
	app, err := server.Build(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	return app.Run(ctx)
}

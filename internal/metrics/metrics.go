// Package metrics owns the Prometheus collectors for the report pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline tracks job lifecycle and per-stage latency.
type Pipeline struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	stageDuration *prometheus.HistogramVec
}

// NewPipeline registers the collectors against the provided registry.
func NewPipeline(reg prometheus.Registerer) (*Pipeline, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Pipeline{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "placelens_jobs_started_total",
			Help: "Total report jobs that have started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placelens_jobs_completed_total",
			Help: "Total report jobs completed partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "placelens_jobs_running",
			Help: "Current number of running report jobs.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placelens_stage_duration_seconds",
			Help:    "Wall time per pipeline stage.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
	}
	for _, c := range []prometheus.Collector{
		p.jobsStarted, p.jobsCompleted, p.jobsRunning, p.stageDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register pipeline collector: %w", err)
		}
	}
	return p, nil
}

// JobStarted records a new running job.
func (p *Pipeline) JobStarted() {
	if p == nil {
		return
	}
	p.jobsStarted.Inc()
	p.jobsRunning.Inc()
}

// JobCompleted records a finished job with its result label.
func (p *Pipeline) JobCompleted(result string) {
	if p == nil {
		return
	}
	p.jobsCompleted.WithLabelValues(result).Inc()
	p.jobsRunning.Dec()
}

// ObserveStage records one stage's wall time.
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// HTTP tracks request counts and latency for the API surface.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP registers the HTTP collectors against the provided registry.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "placelens_http_requests_total",
			Help: "Total HTTP requests partitioned by method and status.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placelens_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	for _, c := range []prometheus.Collector{h.requests, h.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register http collector: %w", err)
		}
	}
	return h, nil
}

// Middleware instruments a handler chain.
func (h *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		h.requests.WithLabelValues(r.Method, fmt.Sprintf("%d", ww.status)).Inc()
		h.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

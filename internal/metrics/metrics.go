// Package metrics exports upstream and pipeline measurements to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements fetch.Observer, ercot.TokenObserver and
// service.PipelineObserver.
type Recorder struct {
	attempts      *prometheus.CounterVec
	attemptTime   *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	retryDelay    *prometheus.HistogramVec
	tokenRefresh  *prometheus.CounterVec
	pipelineTime  *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpLatencies *prometheus.HistogramVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		attempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spp_upstream_attempts_total",
				Help: "Upstream HTTP attempts by label and outcome",
			},
			[]string{"label", "outcome"},
		),
		attemptTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spp_upstream_attempt_duration_seconds",
				Help:    "Duration of a single upstream attempt",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"label"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spp_upstream_retries_total",
				Help: "Retries scheduled after a retryable upstream failure",
			},
			[]string{"label"},
		),
		retryDelay: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spp_upstream_retry_delay_seconds",
				Help:    "Backoff delay before a retry",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"label"},
		),
		tokenRefresh: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spp_token_refresh_total",
				Help: "Token refreshes by outcome",
			},
			[]string{"outcome"},
		),
		pipelineTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spp_pipeline_duration_seconds",
				Help:    "Forecast and backtest pipeline duration",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"pipeline", "outcome"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spp_http_requests_total",
				Help: "API requests by route and status",
			},
			[]string{"route", "status"},
		),
		httpLatencies: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spp_http_request_duration_seconds",
				Help:    "API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

func (r *Recorder) ObserveAttempt(label, outcome string, d time.Duration) {
	r.attempts.WithLabelValues(label, outcome).Inc()
	r.attemptTime.WithLabelValues(label).Observe(d.Seconds())
}

func (r *Recorder) ObserveRetry(label string, delay time.Duration) {
	r.retries.WithLabelValues(label).Inc()
	r.retryDelay.WithLabelValues(label).Observe(delay.Seconds())
}

func (r *Recorder) ObserveTokenRefresh(outcome string, _ time.Duration) {
	r.tokenRefresh.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObservePipeline(pipeline, outcome string, d time.Duration) {
	r.pipelineTime.WithLabelValues(pipeline, outcome).Observe(d.Seconds())
}

// ObserveHTTP records one served API request.
func (r *Recorder) ObserveHTTP(route, status string, d time.Duration) {
	r.httpRequests.WithLabelValues(route, status).Inc()
	r.httpLatencies.WithLabelValues(route).Observe(d.Seconds())
}

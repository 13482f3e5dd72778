package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guestlens_analysis_runs_total",
		Help: "Total guest analysis runs",
	})
	FallbackServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "guestlens_fallback_served_total",
		Help: "Total runs answered by the synthetic fallback dataset",
	})
	CollectorErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guestlens_collector_errors_total",
		Help: "Total suppressed collector failures",
	}, []string{"collector"})
	AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "guestlens_analysis_duration_seconds",
		Help:    "Guest analysis duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guestlens_api_retries_total",
		Help: "Total platform API retry attempts",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(AnalysisRuns, FallbackServed, CollectorErrors, AnalysisDuration, APIRetries)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveAnalysisDuration records a run duration.
func ObserveAnalysisDuration(start time.Time) {
	AnalysisDuration.Observe(time.Since(start).Seconds())
}

// IncCollectorError increments the suppressed-failure counter for a collector.
func IncCollectorError(collector string) { CollectorErrors.WithLabelValues(collector).Inc() }

// IncAPIRetry increments the retry counter for an API method.
func IncAPIRetry(method string) { APIRetries.WithLabelValues(method).Inc() }

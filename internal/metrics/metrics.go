// Package metrics provides Prometheus metrics for graphfs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphfs_scans_total",
			Help: "Total scans by engine and result",
		},
		[]string{"engine", "result"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphfs_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"engine"},
	)

	pruneDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphfs_prune_duration_seconds",
			Help:    "Time to derive the bounded view from the raw tree",
			Buckets: prometheus.DefBuckets,
		},
	)

	layoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphfs_layout_duration_seconds",
			Help:    "Time of one full layout pass, relaxation included",
			Buckets: prometheus.DefBuckets,
		},
	)

	viewNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphfs_view_nodes",
			Help: "Number of nodes in the live view",
		},
	)

	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphfs_mutations_total",
			Help: "View mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphfs_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScan records a finished scan. result is one of ok, failed,
// unavailable, canceled.
func RecordScan(engine, result string, duration time.Duration) {
	scansTotal.WithLabelValues(engine, result).Inc()
	if result == "ok" {
		scanDuration.WithLabelValues(engine).Observe(duration.Seconds())
	}
}

func RecordPrune(duration time.Duration) {
	pruneDuration.Observe(duration.Seconds())
}

func RecordLayout(duration time.Duration) {
	layoutDuration.Observe(duration.Seconds())
}

func SetViewNodes(n int) {
	viewNodes.Set(float64(n))
}

// RecordMutation records a mutation attempt; applied is false for no-ops.
func RecordMutation(op string, applied bool) {
	result := "applied"
	if !applied {
		result = "noop"
	}
	mutationsTotal.WithLabelValues(op, result).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that counts requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
	})
}

package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI provider requests by model and outcome",
		},
		[]string{"model", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI provider request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)
	AIModelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_model_calls_total",
			Help: "Completed orchestrated calls by model and tier",
		},
		[]string{"model", "tier"},
	)
	AIRateGateSkipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_rate_gate_skips_total",
			Help: "Primary-model attempts skipped because the rate window was saturated",
		},
	)
	AIQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_queue_depth",
			Help: "Provider calls waiting in the bounded request queue",
		},
	)

	SafetyRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "safety_rejections_total",
			Help: "Messages rejected by the content-safety classifier, by reason",
		},
		[]string{"reason"},
	)
	QuickResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quick_responses_total",
			Help: "Chat turns answered from the canned-response table",
		},
	)
	CreditsDebitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_debited_total",
			Help: "Total credits debited for paid model calls",
		},
	)
	CreditRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_rejections_total",
			Help: "Chat turns rejected for insufficient credits",
		},
	)

	GuideJobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guide_jobs_enqueued_total",
			Help: "Guide-generation jobs enqueued, by kind",
		},
		[]string{"kind"},
	)
	GuideJobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guide_jobs_completed_total",
			Help: "Guide-generation jobs completed, by kind and status",
		},
		[]string{"kind", "status"},
	)
)

var initMetricsOnce sync.Once

// InitMetrics registers all collectors with the default registry. Call once
// per process before serving /metrics.
func InitMetrics() {
	initMetricsOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AIModelCallsTotal,
			AIRateGateSkipsTotal,
			AIQueueDepth,
			SafetyRejectionsTotal,
			QuickResponsesTotal,
			CreditsDebitedTotal,
			CreditRejectionsTotal,
			GuideJobsEnqueuedTotal,
			GuideJobsCompletedTotal,
		)
	})
}

// HTTPMetricsMiddleware records request counts and latency per route.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

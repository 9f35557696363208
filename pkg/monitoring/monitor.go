package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// ReportsIngested 按结果统计上报：accepted / invalid / not_found / failed
	ReportsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybuddy_reports_total",
			Help: "Activity reports received, by outcome",
		},
		[]string{"outcome"},
	)

	ProficiencyDelta = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studybuddy_proficiency_delta",
			Help:    "Change in proficiency applied per report",
			Buckets: []float64{-0.3, -0.2, -0.1, -0.05, 0, 0.05, 0.1, 0.2, 0.3},
		},
	)

	SelectionStrategy = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybuddy_selection_total",
			Help: "Next-activity selections, by strategy",
		},
		[]string{"strategy"},
	)

	HydrationLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybuddy_hydration_lookups_total",
			Help: "Hydration cache lookups, by result",
		},
		[]string{"result"},
	)

	ChatRateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studybuddy_chat_rate_limited_total",
			Help: "Chat requests rejected by the per-user quota",
		},
	)

	UpstreamRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybuddy_ai_upstream_attempts_total",
			Help: "Calls to the AI gateway, by result",
		},
		[]string{"result"},
	)

	QueueDrained = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studybuddy_offline_queue_items_total",
			Help: "Offline queue items by result (queued, synced, failed, deferred)",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Init 可重复调用，只注册一次
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ReportsIngested,
			ProficiencyDelta,
			SelectionStrategy,
			HydrationLookups,
			ChatRateLimited,
			UpstreamRetries,
			QueueDrained,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

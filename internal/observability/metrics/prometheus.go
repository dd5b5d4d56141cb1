package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks inbound request volume and latency for /metrics scrapes.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors on the default registry.
func NewHTTPMetrics(cfg Config) *HTTPMetrics {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) *HTTPMetrics {
	constLabels := prometheus.Labels{
		"service": serviceLabel(cfg),
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "groupchat_http_requests_total",
		Help:        "HTTP requests by route, method and status.",
		ConstLabels: constLabels,
	}, []string{"route", "method", "status_code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "groupchat_http_request_duration_seconds",
		Help:        "HTTP request latency by route and method.",
		ConstLabels: constLabels,
		Buckets:     prometheus.DefBuckets,
	}, []string{"route", "method"})

	registerer.MustRegister(requests, duration)
	return &HTTPMetrics{requests: requests, duration: duration}
}

// Observe records one completed request.
func (m *HTTPMetrics) Observe(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if strings.TrimSpace(route) == "" {
		route = "unknown"
	}
	method = strings.ToUpper(method)
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// GinMiddleware records request metrics keyed by the matched route template.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.Observe(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// LockMetrics measures time spent waiting on per-key critical sections.
type LockMetrics struct {
	wait *prometheus.HistogramVec
}

// NewLockMetrics registers the lock wait histogram on the default registry.
func NewLockMetrics(cfg Config) *LockMetrics {
	return newLockMetrics(prometheus.DefaultRegisterer, cfg)
}

func newLockMetrics(registerer prometheus.Registerer, cfg Config) *LockMetrics {
	wait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "groupchat_lock_wait_seconds",
		Help:        "Time spent acquiring per-group and per-member locks.",
		ConstLabels: prometheus.Labels{"service": serviceLabel(cfg)},
		Buckets:     []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"resource"})
	registerer.MustRegister(wait)
	return &LockMetrics{wait: wait}
}

// ObserveWait records how long a lock on resource took to acquire.
func (m *LockMetrics) ObserveWait(resource string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.wait.WithLabelValues(resource).Observe(elapsed.Seconds())
}

func serviceLabel(cfg Config) string {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		return "groupchat"
	}
	return name
}

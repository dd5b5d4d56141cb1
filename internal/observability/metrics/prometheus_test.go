package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := prometheus.NewRegistry()
	m := newHTTPMetrics(registry, Config{ServiceName: "groupchat"})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/groups/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/42", nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("/groups/:id", "GET", "204"))
	if got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
}

func TestLockMetricsObserveWait(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newLockMetrics(registry, Config{})
	m.ObserveWait("group_sequence", 3*time.Millisecond)

	if n := testutil.CollectAndCount(m.wait); n != 1 {
		t.Fatalf("expected 1 series, got %d", n)
	}

	var nilMetrics *LockMetrics
	nilMetrics.ObserveWait("group_sequence", time.Millisecond)
}

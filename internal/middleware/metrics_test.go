package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/products/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/products/:id", "200"))
	for _, id := range []string{"a", "b"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/products/:id", "200"))

	if after-before != 2 {
		t.Fatalf("expected 2 requests counted under the route pattern, got %v", after-before)
	}
}

func TestRecordWebhookOutcome(t *testing.T) {
	counter := webhookEvents.WithLabelValues("unknown", "ignored")
	before := testutil.ToFloat64(counter)

	RecordWebhookOutcome("", "ignored")

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected increment of 1, got %v", got)
	}
}

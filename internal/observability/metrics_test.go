package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `ringpos_http_requests_total{code="418",route="/test"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `ringpos_http_request_duration_seconds_bucket{route="/test"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveUpstreamGroupsByClass(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveUpstream(http.MethodPost, "/sales/{id}/items", 201, 10*time.Millisecond)
	metrics.ObserveUpstream(http.MethodPost, "/sales/{id}/items", 0, time.Millisecond)
	metrics.CountOperation("cancel", "upstream_failed")

	body := scrape(t, metrics)
	for _, want := range []string{
		`ringpos_upstream_requests_total{class="2xx",method="POST",route="/sales/{id}/items"} 1`,
		`ringpos_upstream_requests_total{class="error",method="POST",route="/sales/{id}/items"} 1`,
		`ringpos_pos_operations_total{op="cancel",outcome="upstream_failed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream(http.MethodGet, "/x", 200, time.Millisecond)
	m.CountOperation("x", "ok")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if m.Middleware(next) == nil {
		t.Fatal("expected passthrough handler")
	}
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/index", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	r.Get("/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func serve(r http.Handler, method, target string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, target, http.NoBody))
}

func TestMiddleware_LabelsByRouteAndStatus(t *testing.T) {
	r := newRouter()

	tests := []struct {
		method, target, route, status string
	}{
		{http.MethodGet, "/search?q=x", "/search", "200"},
		{http.MethodPost, "/index", "/index", "403"},
		{http.MethodGet, "/fail", "/fail", "500"},
	}
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tt.method, tt.route, tt.status))
			serve(r, tt.method, tt.target)
			after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(tt.method, tt.route, tt.status))
			if after-before != 1 {
				t.Errorf("requests_total{%s %s %s} grew by %v, want 1", tt.method, tt.route, tt.status, after-before)
			}
		})
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/empty", func(http.ResponseWriter, *http.Request) {})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/empty", "200"))
	serve(r, http.MethodGet, "/empty")
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/empty", "200")); got-before != 1 {
		t.Errorf("handler writing nothing should count as 200, grew by %v", got-before)
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	r := newRouter()

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	serve(r, http.MethodGet, "/no/such/path/123")
	serve(r, http.MethodGet, "/another/456")
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	if after-before != 2 {
		t.Errorf("unmatched paths should share one label, grew by %v", after-before)
	}
}

func TestRegister_ExposesCollectors(t *testing.T) {
	Register()
	Register()

	r := newRouter()
	r.Handle("/metrics", promhttp.Handler())
	serve(r, http.MethodGet, "/search")
	ConversionAttemptsTotal.WithLabelValues("docling", ".pdf", "success").Inc()

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, name := range []string{"semdesk_http_requests_total", "semdesk_conversion_attempts_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}

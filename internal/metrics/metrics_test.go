package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	c := New(prometheus.NewRegistry())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/recipes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := c.Middleware(mux)

	for _, id := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/recipes/"+id, nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	body := scrape(t, c)
	want := `plateplan_http_requests_total{method="GET",route="GET /v1/recipes/{id}",status_code="404"} 2`
	if !strings.Contains(body, want) {
		t.Errorf("expected %q in scrape output:\n%s", want, body)
	}
}

func TestEngineCounters(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.AssignmentOutcome("ok")
	c.AssignmentOutcome("locked")
	c.DayItemsWritten("plan", 3)
	c.DayItemsWritten("plan", 0)
	c.RecipeCache("hit")
	c.AutoMultiplier(0.75)
	c.ShoppingExport()
	c.RateLimited()

	body := scrape(t, c)
	for _, want := range []string{
		`plateplan_plan_assignments_total{outcome="locked"} 1`,
		`plateplan_plan_assignments_total{outcome="ok"} 1`,
		`plateplan_day_items_written_total{source="plan"} 3`,
		`plateplan_recipe_cache_requests_total{result="hit"} 1`,
		`plateplan_auto_scale_multiplier_count 1`,
		`plateplan_shopping_list_exports_total 1`,
		`plateplan_http_rate_limited_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in scrape output", want)
		}
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.AssignmentOutcome("ok")
	c.DayItemsWritten("manual", 1)
	c.RecipeCache("miss")
	c.AutoMultiplier(1)
	c.ShoppingExport()
	c.RateLimited()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if got := c.Middleware(next); got == nil {
		t.Fatal("expected pass-through handler")
	}
}

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("failed to read scrape: %v", err)
	}
	return string(body)
}

// Package metrics exposes Prometheus instrumentation for the HTTP layer and
// the planning engine. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plateplan"

// Collector holds every metric the service exports.
type Collector struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	assignmentsTotal *prometheus.CounterVec
	dayItemsWritten  *prometheus.CounterVec
	autoMultiplier   prometheus.Histogram
	recipeCacheTotal *prometheus.CounterVec
	shoppingExports  prometheus.Counter
	rateLimited      prometheus.Counter
}

// New registers the metrics on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		gatherer: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		assignmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plan_assignments_total",
				Help:      "Plan assignment attempts by outcome",
			},
			[]string{"outcome"},
		),
		dayItemsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "day_items_written_total",
				Help:      "Day items persisted by source",
			},
			[]string{"source"},
		),
		autoMultiplier: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "auto_scale_multiplier",
				Help:      "Multipliers chosen by auto-scaling",
				Buckets:   []float64{0.25, 0.5, 0.75, 1, 1.25, 1.5, 2, 2.5, 3},
			},
		),
		recipeCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recipe_cache_requests_total",
				Help:      "Recipe cache lookups by result",
			},
			[]string{"result"},
		),
		shoppingExports: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shopping_list_exports_total",
				Help:      "Shopping list PDF exports",
			},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_rate_limited_total",
				Help:      "Requests rejected by the per-IP limiter",
			},
		),
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency. It must wrap the ServeMux
// directly so that r.Pattern is populated after routing.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		c.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		c.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// AssignmentOutcome counts one assign call: ok, locked, invalid or error.
func (c *Collector) AssignmentOutcome(outcome string) {
	if c == nil {
		return
	}
	c.assignmentsTotal.WithLabelValues(outcome).Inc()
}

func (c *Collector) DayItemsWritten(source string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.dayItemsWritten.WithLabelValues(source).Add(float64(n))
}

func (c *Collector) AutoMultiplier(m float64) {
	if c == nil {
		return
	}
	c.autoMultiplier.Observe(m)
}

// RecipeCache counts a cache lookup: hit, miss or error.
func (c *Collector) RecipeCache(result string) {
	if c == nil {
		return
	}
	c.recipeCacheTotal.WithLabelValues(result).Inc()
}

func (c *Collector) ShoppingExport() {
	if c == nil {
		return
	}
	c.shoppingExports.Inc()
}

// RateLimited counts a 429. The limiter runs outside Middleware, so these
// requests never reach http_requests_total.
func (c *Collector) RateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

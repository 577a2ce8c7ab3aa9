package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPStatusClass     *prometheus.CounterVec

	AuthFailuresCounter *prometheus.CounterVec
	RateLimitedCounter  prometheus.Counter

	PriceItemsCounter *prometheus.CounterVec
	BatchSizeHist     prometheus.Histogram

	StoreOperationDuration *prometheus.HistogramVec
}

// New registers the service collectors on a fresh registry under prefix.
func New(prefix string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPStatusClass: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_status_class_total",
				Help: "Total number of HTTP responses by status class (2xx, 4xx, 5xx)",
			},
			[]string{"class"},
		),
		AuthFailuresCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_auth_failures_total",
				Help: "Total number of rejected API keys by reason",
			},
			[]string{"reason"},
		),
		RateLimitedCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_rate_limited_total",
				Help: "Total number of requests rejected by the per-key rate limit",
			},
		),
		PriceItemsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_price_items_total",
				Help: "Total number of submitted price items by endpoint and outcome",
			},
			[]string{"endpoint", "outcome", "mode"},
		),
		BatchSizeHist: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_price_batch_size",
				Help:    "Number of items per accepted batch request",
				Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
			},
		),
		StoreOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_store_operation_duration_seconds",
				Help:    "Duration of store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// TrackStoreOperation returns a function that records the duration of a store operation
func (m *Metrics) TrackStoreOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		if m == nil {
			return
		}
		m.StoreOperationDuration.WithLabelValues(operationType).Observe(time.Since(startTime).Seconds())
	}
}

// RecordAuthFailure counts a rejected key
func (m *Metrics) RecordAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresCounter.WithLabelValues(reason).Inc()
}

// RecordRateLimited counts a throttled request
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedCounter.Inc()
}

// RecordPriceItems counts processed price items
func (m *Metrics) RecordPriceItems(endpoint, outcome, mode string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.PriceItemsCounter.WithLabelValues(endpoint, outcome, mode).Add(float64(n))
}

// RecordBatchSize observes the size of a batch request
func (m *Metrics) RecordBatchSize(n int) {
	if m == nil {
		return
	}
	m.BatchSizeHist.Observe(float64(n))
}

// Middleware records request count and latency per route
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			code := c.Response().Status
			status := strconv.Itoa(code)
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
			m.HTTPStatusClass.WithLabelValues(strconv.Itoa(code/100) + "xx").Inc()
			return nil
		}
	}
}

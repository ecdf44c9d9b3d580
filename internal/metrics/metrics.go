// Package metrics exposes Prometheus metrics for HTTP traffic, CSV imports
// and stock changes.
//
// Metrics live on a private registry rather than the global default so tests
// can build as many instances as they like.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/Inventory/internal/core"
)

const namespace = "inventory"

// Import run results used as the "result" label.
const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultCanceled = "canceled"
)

// Metrics holds the registry and every collector the service reports.
//
// Thread Safety: Safe for concurrent use by multiple goroutines.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	importRows      *prometheus.CounterVec
	importRuns      *prometheus.CounterVec
	importDuration  prometheus.Histogram
	stockChanges    prometheus.Counter
}

var _ core.Recorder = (*Metrics)(nil)

// New registers all collectors plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_rows_total",
				Help:      "Imported CSV rows by outcome.",
			},
			[]string{"outcome"},
		),
		importRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Import runs by result.",
			},
			[]string{"result"},
		),
		importDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Wall time of import runs.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
		),
		stockChanges: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_changes_total",
				Help:      "Stock history entries written.",
			},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.importRows,
		m.importRuns,
		m.importDuration,
		m.stockChanges,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Pre-create label sets so dashboards show zeroes before the first import.
	for _, o := range []core.Outcome{
		core.OutcomeAdded, core.OutcomeSkippedDuplicate, core.OutcomeSkippedInvalid, core.OutcomeSkippedError,
	} {
		m.importRows.WithLabelValues(string(o))
	}
	for _, r := range []string{ResultSuccess, ResultFailed, ResultCanceled} {
		m.importRuns.WithLabelValues(r)
	}

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// TrackImportSlots exports the limiter's occupancy as gauges.
func (m *Metrics) TrackImportSlots(l *core.ImportLimiter) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imports_in_flight",
			Help:      "Imports currently holding a limiter slot.",
		}, func() float64 { return float64(l.Active()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "import_slots",
			Help:      "Maximum number of concurrent imports.",
		}, func() float64 { return float64(l.Capacity()) }),
	)
}

// ImportRow implements core.Recorder.
func (m *Metrics) ImportRow(outcome core.Outcome) {
	m.importRows.WithLabelValues(string(outcome)).Inc()
}

// ImportFinished implements core.Recorder.
func (m *Metrics) ImportFinished(d time.Duration, err error) {
	m.importDuration.Observe(d.Seconds())
	m.importRuns.WithLabelValues(importResult(err)).Inc()
}

// StockChanged implements core.Recorder.
func (m *Metrics) StockChanged() {
	m.stockChanges.Inc()
}

func importResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultFailed
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests and observes latency. Routes are labelled with
// the chi pattern (e.g. /api/products/{id}) so ids do not explode the label
// set; unmatched paths are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/stache/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render kinds and results used as metric labels.
const (
	renderNamed  = "named"
	renderInline = "inline"

	resultOK    = "ok"
	resultError = "error"
)

// metrics holds the server's Prometheus collectors. Each server gets its own
// registry so several servers can live in one process.
type metrics struct {
	reg *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	renders  *prometheus.CounterVec
	reloads  *prometheus.CounterVec
}

func newMetrics(templates *registry.TemplateRegistry) *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stache_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stache_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stache_renders_total",
				Help: "Template renders by kind and result",
			},
			[]string{"kind", "result"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stache_template_reloads_total",
				Help: "Template directory reloads by result",
			},
			[]string{"result"},
		),
	}

	m.reg.MustRegister(
		m.requests,
		m.duration,
		m.renders,
		m.reloads,
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "stache_templates_loaded",
				Help: "Number of templates in the registry",
			},
			func() float64 { return float64(templates.Count()) },
		),
	)
	return m
}

// middleware records request counts and latency by route pattern.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		// Route patterns keep label cardinality bounded
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *metrics) render(kind, result string) {
	m.renders.WithLabelValues(kind, result).Inc()
}

func (m *metrics) reload(result string) {
	m.reloads.WithLabelValues(result).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

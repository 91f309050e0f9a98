package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Viskores/viskores-sub000/internal/device"
	"github.com/Viskores/viskores-sub000/internal/dispatch"
)

const (
	unmatched = "unmatched"

	// dispatchIDHeader carries the id of the dispatch a request started.
	dispatchIDHeader = "X-Dispatch-Id"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viskores_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 9),
		},
		[]string{"method", "route"},
	)

	sampleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viskores_http_sample_requests_total",
			Help: "Sample dispatches started over HTTP by sample, device and outcome.",
		},
		[]string{"sample", "device", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(sampleRequestsTotal)
}

// recordSampleRequest counts one POST /v1/dispatches. dev is the device the
// dispatch ran on, or the requested one when it failed.
func recordSampleRequest(sample string, dev device.ID, class dispatch.ErrorClass) {
	outcome := string(class)
	if class == dispatch.ClassNone {
		outcome = "ok"
	}
	sampleRequestsTotal.WithLabelValues(sample, dev.String(), outcome).Inc()
}

// metricsMiddleware records request count and duration labelled by chi route
// pattern, so /v1/dispatches/{id} is one series however many ids are read.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unmatched
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

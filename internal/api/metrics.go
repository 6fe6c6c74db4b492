package api

import (
    "net/http"
    "strconv"
    "time"

    "github.com/gorilla/mux"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    httpRequestsTotal = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "marketplace",
            Name:      "http_requests_total",
            Help:      "Total number of HTTP requests by method, route and status code.",
        },
        []string{"method", "route", "status"},
    )

    httpRequestDuration = promauto.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "marketplace",
            Name:      "http_request_duration_seconds",
            Help:      "HTTP request latency in seconds.",
            Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
        },
        []string{"method", "route"},
    )
)

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (sr *statusRecorder) WriteHeader(code int) {
    sr.status = code
    sr.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware labels by route template, not raw path, so record ids
// don't become label values.
func metricsMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        start := time.Now()

        next.ServeHTTP(rec, r)

        route := routeTemplate(r)
        httpRequestDuration.
            WithLabelValues(r.Method, route).
            Observe(time.Since(start).Seconds())

        httpRequestsTotal.
            WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
            Inc()
    })
}

func routeTemplate(r *http.Request) string {
    if route := mux.CurrentRoute(r); route != nil {
        if tpl, err := route.GetPathTemplate(); err == nil {
            return tpl
        }
    }
    return "unmatched"
}

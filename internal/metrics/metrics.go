// Package metrics holds the Prometheus collectors of the trophy proxy.
//
// Collectors are package-level so any component can record into them; they are
// only exported once Init registers them (main passes prometheus.DefaultRegisterer,
// tests pass a fresh registry).
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPRequests counts proxy requests by method, templated path and status.
var HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "trophy_proxy_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// HTTPDuration tracks proxy request latency.
var HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "trophy_proxy_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// TokenExchanges counts vendor token acquisitions by kind (full, refresh, restored).
var TokenExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "trophy_proxy_token_exchanges_total",
	Help: "Vendor token acquisitions by kind.",
}, []string{"kind"})

// VendorRetries counts second attempts against the vendor API (auth, legacy).
var VendorRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "trophy_proxy_vendor_retries_total",
	Help: "Vendor request retries by reason.",
}, []string{"reason"})

// NewTrophies counts trophies detected by the watchdog.
var NewTrophies = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "trophy_proxy_new_trophies_total",
	Help: "Newly earned trophies detected by the watchdog.",
})

// Init registers every collector with reg. Registering twice on the same registry panics.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests, HTTPDuration, TokenExchanges, VendorRetries, NewTrophies)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency. It must wrap the ServeMux
// without replacing the request, since the path label is read from the
// pattern the mux sets on it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		path := routeLabel(r)
		HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel is the mux pattern that served r, without its method. Requests
// no route matched share one label so raw paths never reach the collectors.
func routeLabel(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return "unmatched"
	}
	if _, rest, ok := strings.Cut(p, " "); ok {
		p = rest
	}
	return p
}

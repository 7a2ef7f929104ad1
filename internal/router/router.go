package router

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/auth"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/catalog"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/trophy"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/internal/watchdog"
	"github.com/ovaphlow/pitchfork/service-trophy-proxy/pkg/utilities"
)

// Deps are the handlers mounted by RegisterRoutes. Watchdog may be nil.
type Deps struct {
	Auth     *auth.Handler
	Trophy   *trophy.Handler
	Catalog  *catalog.Handler
	Watchdog *watchdog.Handler
	// APIKeyHash is a bcrypt hash; when set every /api route requires X-Api-Key.
	APIKeyHash string
}

// APIKeyHashFromEnv reads PROXY_API_KEY_HASH.
func APIKeyHashFromEnv() string {
	return strings.TrimSpace(os.Getenv("PROXY_API_KEY_HASH"))
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned by RequestIDMiddleware, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware reuses an incoming X-Request-ID or assigns a KSUID, and echoes it back.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" || len(id) > 64 {
				id = utilities.NewRequestID()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none';")
			}
			// HSTS only over TLS
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyMiddleware rejects /api requests whose X-Api-Key does not match the
// bcrypt hash. An empty hash disables the check.
func APIKeyMiddleware(hash string, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if hash == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("X-Api-Key")
			if key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
				logger.Warnw("api key rejected", "request_id", RequestID(r.Context()), "path", r.URL.Path, "remote", r.RemoteAddr)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, deps Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/login", deps.Auth.Login)

	mux.HandleFunc("GET /api/profile/{username}", deps.Trophy.Profile)
	mux.HandleFunc("GET /api/trophies/{accountId}", deps.Trophy.Titles)
	mux.HandleFunc("GET /api/trophies/{accountId}/{gameId}", deps.Trophy.TitleTrophies)
	mux.HandleFunc("GET /api/summary/{accountId}", deps.Trophy.Summary)

	mux.HandleFunc("POST /api/unify", deps.Catalog.Unify)
	mux.HandleFunc("GET /api/library/{accountId}", deps.Catalog.Library)
	mux.HandleFunc("GET /api/catalog/{id}", deps.Catalog.Entry)

	if deps.Watchdog != nil {
		mux.HandleFunc("POST /api/watchdog/poke", deps.Watchdog.Poke)
		mux.HandleFunc("GET /api/watchdog", deps.Watchdog.Status)
	}

	// outermost first: request id, logging, metrics, security headers, api key
	var handler http.Handler = mux
	handler = APIKeyMiddleware(deps.APIKeyHash, logger)(handler)
	handler = SecurityHeadersMiddleware()(handler)
	handler = metrics.Middleware(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

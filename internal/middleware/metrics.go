package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nzoschke/studyvault/internal/metrics"
)

// Metrics records request count and latency per normalized route
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses stored names so labels stay bounded
func normalizePath(path string) string {
	switch path {
	case "/health", "/metrics",
		"/api/auth/register", "/api/auth/login", "/api/auth/logout", "/api/auth/password",
		"/api/files", "/api/files/upload":
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/api/files/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/files/{storedName}"
	}

	return "other"
}

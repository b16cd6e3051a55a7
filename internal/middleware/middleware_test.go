package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nzoschke/studyvault/internal/config"
	"github.com/nzoschke/studyvault/internal/ctxkeys"
	"github.com/nzoschke/studyvault/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type stubValidator map[string]string

func (s stubValidator) Validate(_ context.Context, token string) (string, error) {
	identity, ok := s[token]
	if !ok {
		return "", errors.New("invalid token")
	}
	return identity, nil
}

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(ctxkeys.Identity(r.Context()) + "|" + ctxkeys.Token(r.Context())))
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(stubValidator{"good": "alice"})(http.HandlerFunc(echoIdentity))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", "|"},
		{"valid token", "Bearer good", "alice|good"},
		{"lowercase scheme", "bearer good", "alice|good"},
		{"invalid token", "Bearer bad", "|"},
		{"basic auth", "Basic good", "|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(echoIdentity)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req = req.WithContext(ctxkeys.WithIdentity(req.Context(), "alice"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	final := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "handler") })
	Chain(final, mark("first"), mark("second")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.False(t, limiter.Allow("1.2.3.4"))
	assert.True(t, limiter.Allow("5.6.7.8"))

	now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow("1.2.3.4"))

	now = now.Add(2 * time.Minute)
	limiter.Cleanup()
	assert.Empty(t, limiter.requests)
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(NewRateLimiter(1, time.Minute))(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", " 198.51.100.7 ")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(req))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/api/files", normalizePath("/api/files"))
	assert.Equal(t, "/api/files/upload", normalizePath("/api/files/upload"))
	assert.Equal(t, "/api/files/{storedName}", normalizePath("/api/files/0b7f.txt"))
	assert.Equal(t, "other", normalizePath("/api/files/a/b"))
	assert.Equal(t, "other", normalizePath("/wp-login.php"))
}

func TestMetrics(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/files/{storedName}", "418")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/files/x.txt", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestConfigMiddleware(t *testing.T) {
	cfg := &config.Config{AppName: "StudyVault", JWTSecret: "secret", S3SecretKey: "s3"}

	var got *config.Config
	handler := Config(cfg)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ctxkeys.Config(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if assert.NotNil(t, got) {
		assert.Equal(t, "StudyVault", got.AppName)
		assert.Empty(t, got.JWTSecret)
		assert.Empty(t, got.S3SecretKey)
	}
}

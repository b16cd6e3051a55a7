package middleware

import (
	"net/http"

	"github.com/nzoschke/studyvault/internal/config"
	"github.com/nzoschke/studyvault/internal/ctxkeys"
)

// Config adds the sanitized configuration to the request context.
// JWTSecret and storage credentials never reach handlers this way.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	sanitized := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxkeys.WithConfig(r.Context(), sanitized)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

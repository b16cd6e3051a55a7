package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nzoschke/studyvault/internal/ctxkeys"
)

// TokenValidator resolves a bearer token to a username
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// AuthMiddleware checks the bearer token and adds the identity to context if valid.
// Requests without a valid token continue anonymously.
func AuthMiddleware(sessions TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := sessions.Validate(r.Context(), token)
			if err != nil {
				slog.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := ctxkeys.WithIdentity(r.Context(), identity)
			ctx = ctxkeys.WithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Identity(r.Context()) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="studyvault"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}

		next.ServeHTTP(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

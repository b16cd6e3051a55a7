package routes

import (
	"net/http"

	"github.com/nzoschke/studyvault/internal/app"
	"github.com/nzoschke/studyvault/internal/handler"
	"github.com/nzoschke/studyvault/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	auth := handler.NewAuthHandler(app.AccountService)
	files := handler.NewFileHandler(app.FileService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /health", health.Health)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth (rate limited)
	rateLimit := middleware.RateLimit(app.LoginLimiter)

	mux.HandleFunc("POST /api/auth/register", rateLimit(auth.Register))
	mux.HandleFunc("POST /api/auth/login", rateLimit(auth.Login))
	mux.HandleFunc("POST /api/auth/logout", middleware.RequireAuth(auth.Logout))
	mux.HandleFunc("POST /api/auth/password", middleware.RequireAuth(auth.ChangePassword))

	// ============================================================================
	// PROTECTED ROUTES (/api/files/*)
	// ============================================================================

	mux.HandleFunc("POST /api/files/upload", middleware.RequireAuth(files.Upload))
	mux.HandleFunc("GET /api/files", middleware.RequireAuth(files.List))
	mux.HandleFunc("GET /api/files/{storedName}", middleware.RequireAuth(files.Download))
	mux.HandleFunc("PUT /api/files/{storedName}", middleware.RequireAuth(files.Replace))
	mux.HandleFunc("DELETE /api/files/{storedName}", middleware.RequireAuth(files.Delete))

	return middleware.Chain(mux,
		middleware.Metrics,
		middleware.RequestLogging,
		middleware.Config(app.Cfg),
		middleware.AuthMiddleware(app.Sessions),
	)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nzoschke/studyvault/internal/ctxkeys"
)

// Pinger is satisfied by *sqlx.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports liveness plus database reachability.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := map[string]any{
		"status":    "ok",
		"database":  "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if cfg := ctxkeys.Config(r.Context()); cfg != nil {
		resp["app"] = cfg.AppName
		resp["env"] = cfg.AppEnv
		resp["storage"] = cfg.StorageBackend
		resp["sessions"] = cfg.SessionBackend
	}

	err := h.db.PingContext(ctx)
	if err != nil {
		slog.Error("health check failed", "error", err)
		resp["status"] = "fail"
		resp["database"] = "fail"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain health check func to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type HealthHandler struct {
	Store  Pinger
	Redis  Pinger // nil when REDIS_URL is unset
	Logger *zap.Logger
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	body := map[string]string{"status": "ok"}
	healthy := h.check(ctx, body, "store", h.Store)
	if h.Redis != nil {
		healthy = h.check(ctx, body, "redis", h.Redis) && healthy
	}

	if !healthy {
		body["status"] = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *HealthHandler) check(ctx context.Context, body map[string]string, name string, dep Pinger) bool {
	if err := dep.Ping(ctx); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
		}
		body[name] = "unavailable"
		return false
	}
	body[name] = "ok"
	return true
}

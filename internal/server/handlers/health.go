package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/repsync/pkg/api"
)

// PingFunc проверяет доступность хранилища
type PingFunc func(ctx context.Context) error

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger *slog.Logger
	ping   PingFunc
}

// NewHealthHandler создает новый handler для health check. ping may be nil.
func NewHealthHandler(logger *slog.Logger, ping PingFunc) *HealthHandler {
	return &HealthHandler{
		logger: logger,
		ping:   ping,
	}
}

// Health обрабатывает GET /api/v1/health. Connectivity Monitor клиента
// считает сервер доступным только при 2xx.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ok", Time: time.Now().UTC()}

	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.logger.Error("Storage health check failed", "error", err)
			resp.Status = "unavailable"
			sendJSON(h.logger, w, resp, http.StatusServiceUnavailable)
			return
		}
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/IgorGrieder/link-registry/internal/constants"
	"github.com/IgorGrieder/link-registry/internal/infrastructure/logger"
	"github.com/IgorGrieder/link-registry/pkg/httputils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Timestamp string `json:"timestamp" example:"2024-01-15T10:30:00Z"`
}

// Pinger is implemented by storage backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health, readiness and metrics endpoints
type HealthHandler struct {
	store   Pinger
	timeout time.Duration
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store, timeout: 2 * time.Second}
}

// Health reports that the process is serving.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputils.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Ready reports whether the link store answers within the timeout.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			httputils.WriteAPIError(w, r, constants.ErrUnavailable)
			return
		}
	}
	httputils.RespondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Metrics returns Prometheus metrics
func (h *HealthHandler) Metrics() http.Handler {
	return promhttp.Handler()
}

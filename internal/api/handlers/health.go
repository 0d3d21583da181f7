package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ledgerline/invoice-adjust-backend/internal/adapters/billing"
	"github.com/ledgerline/invoice-adjust-backend/internal/api/dto"
)

// healthProbeTimeout bounds each provider check so a hung billing API
// cannot stall the health endpoint.
const healthProbeTimeout = 2 * time.Second

// HealthHandler handles health check requests, probing each registered
// billing provider.
type HealthHandler struct {
	registry *billing.Registry
}

// NewHealthHandler creates a new health handler. A nil registry skips
// provider probes.
func NewHealthHandler(registry *billing.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// ServeHTTP handles the health check request. The endpoint always
// returns 200 so load balancers keep routing to the API itself; a
// failing provider is reported as "degraded" in the body.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := dto.NewHealthResponse()

	if h.registry != nil {
		for _, name := range h.registry.List() {
			provider, err := h.registry.Get(name)
			if err != nil {
				continue
			}

			ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
			if err := provider.HealthCheck(ctx); err != nil {
				response.Providers[name] = "unreachable"
				response.Status = "degraded"
			} else {
				response.Providers[name] = "ok"
			}
			cancel()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inventario-smart/internal/middleware"
	"inventario-smart/internal/service"
)

// DashboardHandler serves the aggregated dashboard summary
type DashboardHandler struct {
	inventory service.InventoryService
	logger    *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(inventory service.InventoryService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// RegisterRoutes registers the dashboard route
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/dashboard", h.Summary)
}

// Summary returns catalog totals, low-stock items and the consumption forecast
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.inventory.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("Failed to build dashboard summary", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build dashboard summary")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

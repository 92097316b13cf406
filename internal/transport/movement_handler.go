package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inventario-smart/internal/domain"
	"inventario-smart/internal/middleware"
	"inventario-smart/internal/repository"
	"inventario-smart/internal/service"
)

// MovementHandler handles HTTP requests for the stock-movement ledger
type MovementHandler struct {
	inventory service.InventoryService
	logger    *zap.Logger
}

// NewMovementHandler creates a new MovementHandler
func NewMovementHandler(inventory service.InventoryService, logger *zap.Logger) *MovementHandler {
	return &MovementHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// RegisterRoutes registers all movement routes
func (h *MovementHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/movements", h.List)
}

// List returns ledger entries newest-first.
// Query params: sku, product, reason, date_from, date_to (YYYY-MM-DD), limit.
func (h *MovementHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filter := repository.MovementFilter{
		SKU:    params.Get("sku"),
		Reason: domain.MovementReason(params.Get("reason")),
	}

	if raw := params.Get("product"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ProductID = id
		}
	}
	if raw := params.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			filter.Limit = limit
		}
	}
	if from, ok := parseDate(params.Get("date_from")); ok {
		filter.DateFrom = &from
	}
	if to, ok := parseDate(params.Get("date_to")); ok {
		filter.DateTo = &to
	}

	movements, err := h.inventory.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list movements", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list movements")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, movements)
}

// parseDate parses a YYYY-MM-DD query value. Malformed dates are ignored,
// matching the original API's lenient behavior.
func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

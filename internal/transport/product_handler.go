package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"inventario-smart/internal/domain"
	"inventario-smart/internal/middleware"
	"inventario-smart/internal/repository"
	"inventario-smart/internal/service"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	SKU    string `json:"sku" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Qty    int    `json:"qty" validate:"gte=0"`
	Status string `json:"status"`
	Price  int64  `json:"price" validate:"gte=0"`
}

// UpdateProductRequest represents a partial product edit. Omitted fields are
// left untouched.
type UpdateProductRequest struct {
	SKU   *string `json:"sku"`
	Name  *string `json:"name"`
	Price *int64  `json:"price"`
}

// BuyRequest represents a point-of-sale purchase payload
type BuyRequest struct {
	Qty int `json:"qty"`
}

// AdjustStockRequest represents a stock adjustment payload
type AdjustStockRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// ProductHandler handles HTTP requests for catalog products
type ProductHandler struct {
	inventory service.InventoryService
	logger    *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(inventory service.InventoryService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/buy", h.Buy)
		r.Post("/{id}/adjust_stock", h.AdjustStock)
	})
}

// List returns the full catalog
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ListProducts(r.Context())
	if err != nil {
		h.respondError(w, err, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.inventory.CreateProduct(r.Context(), service.ProductInput{
		SKU:    req.SKU,
		Name:   req.Name,
		Qty:    req.Qty,
		Status: domain.ProductStatus(req.Status),
		Price:  req.Price,
	})
	if err != nil {
		h.respondError(w, err, "failed to create product")
		return
	}

	h.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles a partial product edit
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.inventory.UpdateProduct(r.Context(), id, service.ProductPatch{
		SKU:   req.SKU,
		Name:  req.Name,
		Price: req.Price,
	})
	if err != nil {
		h.respondError(w, err, "failed to update product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete removes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.inventory.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, err, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Buy handles a point-of-sale purchase of a single product
func (h *ProductHandler) Buy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req BuyRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.inventory.Buy(r.Context(), id, req.Qty)
	if err != nil {
		h.respondError(w, err, "failed to register purchase")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// AdjustStock handles a signed stock adjustment
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req AdjustStockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.inventory.AdjustStock(
		r.Context(),
		id,
		req.Delta,
		domain.MovementReason(req.Reason),
		req.Note,
	)
	if err != nil {
		h.respondError(w, err, "failed to adjust stock")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

// respondError maps service errors to the wire: domain rejections become 400
// with the Django-compatible flat {"error": "..."} body the clients extract
// messages from, missing products become 404, anything else is a 500.
func (h *ProductHandler) respondError(w http.ResponseWriter, err error, logMsg string) {
	var rejection *service.RejectionError
	if errors.As(err, &rejection) {
		middleware.RespondWithRejection(w, http.StatusBadRequest, rejection.Message)
		return
	}

	if errors.Is(err, repository.ErrProductNotFound) {
		middleware.RespondWithRejection(w, http.StatusNotFound, "Producto no encontrado")
		return
	}

	h.logger.Error(logMsg, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, logMsg)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"inventario-smart/internal/domain"
	"inventario-smart/internal/repository"
)

const (
	lowStockThreshold = 5
	lowStockTopN      = 5
	forecastTopN      = 5
	forecastWindow    = 30 * 24 * time.Hour
	activityWindow    = 7 * 24 * time.Hour

	dashboardCacheKey = "dashboard:summary"
	dashboardCacheTTL = 5 * time.Minute
)

// RejectionError is a domain-level rejection with a user-facing message. It
// maps to a 400 response with the message passed through verbatim.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string { return e.Message }

func reject(format string, args ...interface{}) error {
	return &RejectionError{Message: fmt.Sprintf(format, args...)}
}

// ProductInput carries the fields accepted when creating a product.
type ProductInput struct {
	SKU    string
	Name   string
	Qty    int
	Status domain.ProductStatus
	Price  int64
}

// ProductPatch carries a partial update. Nil fields are left untouched.
type ProductPatch struct {
	SKU   *string
	Name  *string
	Price *int64
}

// BuyResult is returned by a successful point-of-sale purchase.
type BuyResult struct {
	Message  string                `json:"message"`
	NewStock int                   `json:"new_stock"`
	Status   domain.ProductStatus  `json:"status"`
	Movement *domain.StockMovement `json:"movement"`
}

// AdjustResult is returned by a successful stock adjustment.
type AdjustResult struct {
	Message  string                `json:"message"`
	Product  *domain.Product       `json:"product"`
	Movement *domain.StockMovement `json:"movement"`
}

// InventoryService owns all stock-changing operations and the dashboard
// aggregation. Every write records a ledger entry and invalidates the cached
// dashboard summary.
type InventoryService interface {
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	Buy(ctx context.Context, id int64, qty int) (*BuyResult, error)
	AdjustStock(ctx context.Context, id int64, delta int, reason domain.MovementReason, note string) (*AdjustResult, error)
	ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*domain.StockMovement, error)
	Dashboard(ctx context.Context) (*domain.DashboardSummary, error)
}

type inventoryService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	cache        *redis.Client
	logger       *zap.Logger
	now          func() time.Time
}

// NewInventoryService creates a new instance of InventoryService. The redis
// client is optional; without it the dashboard is recomputed on every call.
func NewInventoryService(
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	cache *redis.Client,
	logger *zap.Logger,
) InventoryService {
	return &inventoryService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// ListProducts returns the full catalog, most recently updated first.
func (s *inventoryService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.List(ctx)
}

// CreateProduct validates and stores a new catalog product.
func (s *inventoryService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Name = strings.TrimSpace(input.Name)

	if input.SKU == "" {
		return nil, reject("SKU no puede estar vacío")
	}
	if input.Name == "" {
		return nil, reject("Nombre no puede estar vacío")
	}
	if input.Qty < 0 {
		return nil, reject("Cantidad inválida")
	}
	if input.Price < 0 {
		return nil, reject("Precio inválido")
	}
	if input.Status == "" {
		input.Status = domain.StatusAvailable
	}
	if !input.Status.Valid() {
		return nil, reject("status inválido")
	}

	product := &domain.Product{
		SKU:    input.SKU,
		Name:   input.Name,
		Qty:    input.Qty,
		Status: input.Status,
		Price:  input.Price,
	}
	product.RefreshStatus()

	if err := s.productRepo.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrSKUExists) {
			return nil, reject("sku: Ya existe un producto con este SKU")
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidateDashboard(ctx)
	return product, nil
}

// UpdateProduct applies a partial sku/name/price edit.
func (s *inventoryService) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.SKU != nil {
		sku := strings.TrimSpace(*patch.SKU)
		if sku == "" {
			return nil, reject("SKU no puede estar vacío")
		}
		product.SKU = sku
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, reject("Nombre no puede estar vacío")
		}
		product.Name = name
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return nil, reject("Precio inválido")
		}
		product.Price = *patch.Price
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrSKUExists) {
			return nil, reject("sku: Ya existe un producto con este SKU")
		}
		return nil, err
	}

	s.invalidateDashboard(ctx)
	return product, nil
}

// DeleteProduct removes a product and, by cascade, its ledger entries.
func (s *inventoryService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateDashboard(ctx)
	return nil
}

// Buy registers a point-of-sale purchase: decrements stock, refreshes the
// product status and appends a ledger entry for the sale.
func (s *inventoryService) Buy(ctx context.Context, id int64, qty int) (*BuyResult, error) {
	if qty <= 0 {
		return nil, reject("Cantidad inválida")
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if qty > product.Qty {
		return nil, reject("Stock insuficiente")
	}

	product.Qty -= qty
	product.RefreshStatus()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	movement := &domain.StockMovement{
		ProductID: product.ID,
		Delta:     -qty,
		Reason:    domain.ReasonAdjustment,
		Note:      "Venta punto de venta",
	}
	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, err
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("Purchase registered",
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Int("qty", qty),
		zap.Int("new_stock", product.Qty),
	)

	return &BuyResult{
		Message:  "Compra registrada",
		NewStock: product.Qty,
		Status:   product.Status,
		Movement: movement,
	}, nil
}

// AdjustStock applies a signed stock delta with a reason and note. The
// adjustment is rejected if it would leave the stock negative.
func (s *inventoryService) AdjustStock(ctx context.Context, id int64, delta int, reason domain.MovementReason, note string) (*AdjustResult, error) {
	if delta == 0 {
		return nil, reject("delta no puede ser 0")
	}
	if reason == "" {
		reason = domain.ReasonAdjustment
	}
	if !reason.Valid() {
		return nil, reject("reason inválido")
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	newQty := product.Qty + delta
	if newQty < 0 {
		return nil, reject("El ajuste dejaría el stock negativo (%d)", newQty)
	}

	product.Qty = newQty
	product.RefreshStatus()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	movement := &domain.StockMovement{
		ProductID: product.ID,
		Delta:     delta,
		Reason:    reason,
		Note:      strings.TrimSpace(note),
	}
	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, err
	}

	s.invalidateDashboard(ctx)
	s.logger.Info("Stock adjusted",
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Int("delta", delta),
		zap.String("reason", string(reason)),
	)

	return &AdjustResult{
		Message:  "Ajuste aplicado",
		Product:  product,
		Movement: movement,
	}, nil
}

// ListMovements returns ledger entries newest-first, honoring the filter.
func (s *inventoryService) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*domain.StockMovement, error) {
	return s.movementRepo.List(ctx, filter)
}

// Dashboard computes the summary (totals, recent activity, low stock and the
// consumption forecast), serving a cached copy when one is fresh.
func (s *inventoryService) Dashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	if cached := s.cachedDashboard(ctx); cached != nil {
		return cached, nil
	}

	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	movementsLast7d, err := s.movementRepo.CountSince(ctx, now.Add(-activityWindow))
	if err != nil {
		return nil, err
	}

	usage, err := s.movementRepo.UsageSince(ctx, now.Add(-forecastWindow))
	if err != nil {
		return nil, err
	}

	summary := &domain.DashboardSummary{
		TotalProducts:   len(products),
		MovementsLast7d: movementsLast7d,
		LowStock:        []domain.LowStockItem{},
		Forecast:        []domain.ForecastItem{},
	}

	for _, p := range products {
		summary.TotalStock += p.Qty
		summary.TotalValue += int64(p.Qty) * p.Price

		if p.Qty <= lowStockThreshold {
			summary.LowStock = append(summary.LowStock, domain.LowStockItem{
				ID:     p.ID,
				SKU:    p.SKU,
				Name:   p.Name,
				Qty:    p.Qty,
				Status: p.Status,
			})
		}

		if units := usage[p.ID]; units > 0 {
			daily := float64(units) / 30.0
			days := float64(p.Qty) / daily
			daysRounded := math.Round(days*10) / 10
			summary.Forecast = append(summary.Forecast, domain.ForecastItem{
				SKU:           p.SKU,
				Name:          p.Name,
				AvgDailyUsage: math.Round(daily*100) / 100,
				DaysToZero:    &daysRounded,
				CurrentQty:    p.Qty,
			})
		}
	}

	sort.SliceStable(summary.LowStock, func(i, j int) bool {
		return summary.LowStock[i].Qty < summary.LowStock[j].Qty
	})
	if len(summary.LowStock) > lowStockTopN {
		summary.LowStock = summary.LowStock[:lowStockTopN]
	}

	sort.SliceStable(summary.Forecast, func(i, j int) bool {
		return *summary.Forecast[i].DaysToZero < *summary.Forecast[j].DaysToZero
	})
	if len(summary.Forecast) > forecastTopN {
		summary.Forecast = summary.Forecast[:forecastTopN]
	}

	s.storeDashboard(ctx, summary)
	return summary, nil
}

func (s *inventoryService) cachedDashboard(ctx context.Context) *domain.DashboardSummary {
	if s.cache == nil {
		return nil
	}

	payload, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		}
		return nil
	}

	summary := &domain.DashboardSummary{}
	if err := json.Unmarshal(payload, summary); err != nil {
		s.logger.Warn("Dashboard cache payload invalid", zap.Error(err))
		return nil
	}
	return summary
}

func (s *inventoryService) storeDashboard(ctx context.Context, summary *domain.DashboardSummary) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, payload, dashboardCacheTTL).Err(); err != nil {
		s.logger.Warn("Dashboard cache write failed", zap.Error(err))
	}
}

func (s *inventoryService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey).Err(); err != nil {
		s.logger.Warn("Dashboard cache invalidation failed", zap.Error(err))
	}
}

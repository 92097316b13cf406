package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"inventario-smart/internal/client"
	"inventario-smart/internal/domain"
	"inventario-smart/internal/notify"
)

const movementHistoryLimit = 50

var (
	// ErrCartEmpty is returned when checkout is attempted on an empty cart.
	ErrCartEmpty = errors.New("el carrito está vacío")
	// ErrCheckoutInFlight is returned when a checkout is already running.
	ErrCheckoutInFlight = errors.New("ya hay una compra en curso")
)

// CatalogAPI is the slice of the remote catalog client the sales view needs.
type CatalogAPI interface {
	List(ctx context.Context) ([]domain.Product, error)
	Buy(ctx context.Context, id int64, qty int) (*client.BuyResponse, error)
	ListMovements(ctx context.Context, limit int) ([]domain.StockMovement, error)
}

// Session is the state of one point-of-sale page visit: the catalog
// snapshot, the recent movement history, the cart and the pending SKU and
// quantity inputs. The catalog snapshot is read-only and only replaced
// wholesale by a refresh; the cart is lost when the session goes away.
type Session struct {
	api    CatalogAPI
	notify *notify.Center
	logger *zap.Logger

	mu          sync.Mutex
	products    []domain.Product
	movements   []domain.StockMovement
	cart        Cart
	skuInput    string
	qtyInput    int
	confirming  bool
	loading     bool
	loadingMovs bool
}

// NewSession creates a Session. The notification center is injected; the
// session never owns it.
func NewSession(api CatalogAPI, center *notify.Center, logger *zap.Logger) *Session {
	return &Session{
		api:      api,
		notify:   center,
		logger:   logger,
		qtyInput: 1,
	}
}

// RefreshCatalog replaces the catalog snapshot with a fresh listing. On
// failure the last-known-good snapshot is kept and an error toast is raised.
func (s *Session) RefreshCatalog(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	products, err := s.api.List(ctx)
	if err != nil {
		s.notify.Error("No se pudo cargar el catálogo")
		return err
	}

	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
	return nil
}

// RefreshMovements replaces the movement history with the latest entries.
// On failure the last-known-good history is kept and an error toast raised.
func (s *Session) RefreshMovements(ctx context.Context) error {
	s.setLoadingMovs(true)
	defer s.setLoadingMovs(false)

	movements, err := s.api.ListMovements(ctx, movementHistoryLimit)
	if err != nil {
		s.notify.Error("No se pudo cargar el historial")
		return err
	}

	s.mu.Lock()
	s.movements = movements
	s.mu.Unlock()
	return nil
}

// Products returns a copy of the current catalog snapshot.
func (s *Session) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Movements returns a copy of the current movement history.
func (s *Session) Movements() []domain.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StockMovement, len(s.movements))
	copy(out, s.movements)
	return out
}

// SetSKUInput sets the pending SKU lookup text.
func (s *Session) SetSKUInput(sku string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skuInput = sku
}

// SetQtyInput sets the pending quantity.
func (s *Session) SetQtyInput(qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qtyInput = qty
}

// Inputs returns the pending SKU and quantity inputs.
func (s *Session) Inputs() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skuInput, s.qtyInput
}

// Lines returns a copy of the cart lines.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// Totals recomputes the cart's price breakdown.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals()
}

// Confirming reports whether a checkout is currently in flight. The UI uses
// it to disable the checkout trigger.
func (s *Session) Confirming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirming
}

// Loading reports whether a catalog or movement refresh is in flight.
func (s *Session) Loading() (catalog, movements bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading, s.loadingMovs
}

// AddToCart validates the pending inputs against the catalog snapshot and
// appends or merges a cart line. Preconditions are checked in order and each
// failure raises exactly one error toast without mutating anything. On
// success the inputs are reset (SKU cleared, quantity back to 1).
func (s *Session) AddToCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	skuText := strings.TrimSpace(s.skuInput)
	qty := s.qtyInput

	if skuText == "" {
		return s.rejectAdd("Ingresa un SKU")
	}
	if qty <= 0 {
		return s.rejectAdd("Cantidad inválida")
	}

	product, ok := s.findBySKU(skuText)
	if !ok {
		return s.rejectAdd(fmt.Sprintf("SKU %q no encontrado", skuText))
	}
	if qty > product.Qty {
		return s.rejectAdd(fmt.Sprintf("Stock insuficiente. Disponible: %d", product.Qty))
	}

	// Merging must respect the stock bound on the combined quantity; a
	// merge that would exceed it rejects the whole add.
	if existing, found := s.cart.find(product.ID); found {
		if existing.Qty+qty > product.Qty {
			return s.rejectAdd(fmt.Sprintf("No puedes superar el stock (%d)", product.Qty))
		}
	}

	s.cart.add(product, qty)
	s.skuInput = ""
	s.qtyInput = 1
	return nil
}

// UpdateLineQty clamps the requested quantity into the line's valid range.
func (s *Session) UpdateLineQty(productID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.UpdateLineQty(productID, qty)
}

// RemoveLine removes a cart line; no-op when absent.
func (s *Session) RemoveLine(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveLine(productID)
}

// ClearCart empties the cart.
func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
}

// ConfirmPurchase executes one buy call per cart line, sequentially in cart
// order, waiting for each before issuing the next. The first failure aborts
// the rest: lines before it are committed server-side, the failing line and
// everything after are not, the cart is left untouched for inspection or
// retry (no rollback of committed lines) and a single error toast is raised.
// When every line succeeds the movement history and catalog are refreshed,
// a success toast is raised and the cart is cleared.
func (s *Session) ConfirmPurchase(ctx context.Context) error {
	s.mu.Lock()
	if s.confirming {
		s.mu.Unlock()
		return ErrCheckoutInFlight
	}
	if s.cart.Len() == 0 {
		s.mu.Unlock()
		s.notify.Error("Carrito vacío")
		return ErrCartEmpty
	}
	s.confirming = true
	lines := s.cart.Lines()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.confirming = false
		s.mu.Unlock()
	}()

	for _, line := range lines {
		if _, err := s.api.Buy(ctx, line.Product.ID, line.Qty); err != nil {
			msg := "No se pudo completar la compra"
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				msg = apiErr.Message
			}
			s.logger.Warn("Checkout aborted",
				zap.Int64("product_id", line.Product.ID),
				zap.String("sku", line.Product.SKU),
				zap.Error(err),
			)
			s.notify.Error(msg)
			return err
		}
	}

	// Refresh failures raise their own toasts and never undo the sale.
	_ = s.RefreshMovements(ctx)
	_ = s.RefreshCatalog(ctx)

	s.notify.Success("Compra realizada")
	s.ClearCart()
	return nil
}

// rejectAdd raises the toast for a failed add and returns it as an error.
// Callers hold s.mu.
func (s *Session) rejectAdd(msg string) error {
	s.notify.Error(msg)
	return errors.New(msg)
}

// findBySKU resolves a SKU against the snapshot, case-insensitively.
// Callers hold s.mu.
func (s *Session) findBySKU(sku string) (domain.Product, bool) {
	for _, p := range s.products {
		if strings.EqualFold(p.SKU, sku) {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

func (s *Session) setLoadingMovs(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingMovs = v
}

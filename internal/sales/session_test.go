package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"inventario-smart/internal/client"
	"inventario-smart/internal/domain"
	"inventario-smart/internal/notify"
)

// fakeCatalog records buy calls and fails on demand.
type fakeCatalog struct {
	mu        sync.Mutex
	products  []domain.Product
	movements []domain.StockMovement
	listErr   error

	buyCalls []buyCall
	buyErrs  map[int64]error
	buyGate  chan struct{}
}

type buyCall struct {
	productID int64
	qty       int
}

func (f *fakeCatalog) List(ctx context.Context) ([]domain.Product, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.products, nil
}

func (f *fakeCatalog) Buy(ctx context.Context, id int64, qty int) (*client.BuyResponse, error) {
	if f.buyGate != nil {
		<-f.buyGate
	}
	f.mu.Lock()
	f.buyCalls = append(f.buyCalls, buyCall{productID: id, qty: qty})
	err := f.buyErrs[id]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &client.BuyResponse{Message: "Compra realizada", NewStock: 0, Status: domain.StatusAvailable}, nil
}

func (f *fakeCatalog) ListMovements(ctx context.Context, limit int) ([]domain.StockMovement, error) {
	return f.movements, nil
}

func (f *fakeCatalog) calls() []buyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]buyCall, len(f.buyCalls))
	copy(out, f.buyCalls)
	return out
}

func newTestSession(t *testing.T, api CatalogAPI) (*Session, *notify.Center) {
	t.Helper()
	center := notify.NewCenterTTL(time.Minute)
	return NewSession(api, center, zap.NewNop()), center
}

func lastToast(t *testing.T, center *notify.Center) notify.Toast {
	t.Helper()
	active := center.Active()
	if len(active) == 0 {
		t.Fatal("expected at least one toast")
	}
	return active[len(active)-1]
}

func catalogSnapshot() []domain.Product {
	return []domain.Product{
		{ID: 1, SKU: "SKU-001", Name: "Azucar", Qty: 5, Status: domain.StatusAvailable, Price: 1200},
		{ID: 2, SKU: "SKU-002", Name: "Cafe", Qty: 10, Status: domain.StatusAvailable, Price: 8000},
		{ID: 3, SKU: "SKU-003", Name: "Te", Qty: 2, Status: domain.StatusAvailable, Price: 2500},
	}
}

func TestAddToCartRejectsEmptySKU(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, center := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("   ")
	s.SetQtyInput(2)

	if err := s.AddToCart(); err == nil {
		t.Fatal("expected rejection")
	}
	if got := lastToast(t, center); got.Message != "Ingresa un SKU" || got.Severity != notify.SeverityError {
		t.Errorf("unexpected toast %+v", got)
	}
	if len(s.Lines()) != 0 {
		t.Error("cart must stay empty on rejection")
	}
}

func TestAddToCartRejectsInvalidQtyBeforeLookup(t *testing.T) {
	// No catalog loaded: if the quantity check ran after the lookup the
	// toast would be "no encontrado" instead.
	api := &fakeCatalog{}
	s, center := newTestSession(t, api)

	s.SetSKUInput("SKU-404")
	s.SetQtyInput(0)

	if err := s.AddToCart(); err == nil {
		t.Fatal("expected rejection")
	}
	if got := lastToast(t, center); got.Message != "Cantidad inválida" {
		t.Errorf("expected quantity rejection first, got %q", got.Message)
	}
}

func TestAddToCartRejectsUnknownSKU(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, center := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-404")
	s.SetQtyInput(1)

	if err := s.AddToCart(); err == nil {
		t.Fatal("expected rejection")
	}
	if got := lastToast(t, center); got.Message != `SKU "SKU-404" no encontrado` {
		t.Errorf("unexpected toast %q", got.Message)
	}
}

func TestAddToCartRejectsQtyOverStock(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, center := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-003")
	s.SetQtyInput(3)

	if err := s.AddToCart(); err == nil {
		t.Fatal("expected rejection")
	}
	if got := lastToast(t, center); got.Message != "Stock insuficiente. Disponible: 2" {
		t.Errorf("unexpected toast %q", got.Message)
	}
}

func TestAddToCartMatchesSKUCaseInsensitively(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, _ := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("sku-001")
	s.SetQtyInput(2)

	if err := s.AddToCart(); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	lines := s.Lines()
	if len(lines) != 1 || lines[0].Product.ID != 1 || lines[0].Qty != 2 {
		t.Errorf("unexpected lines %+v", lines)
	}
}

func TestAddToCartResetsInputsOnSuccess(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, _ := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-001")
	s.SetQtyInput(3)

	if err := s.AddToCart(); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	sku, qty := s.Inputs()
	if sku != "" || qty != 1 {
		t.Errorf("expected inputs reset to (\"\", 1), got (%q, %d)", sku, qty)
	}
}

func TestAddToCartRejectsMergeExceedingStock(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, center := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-001")
	s.SetQtyInput(3)
	if err := s.AddToCart(); err != nil {
		t.Fatalf("first add must succeed: %v", err)
	}

	// Stock 5, line holds 3: adding 4 more would exceed it.
	s.SetSKUInput("SKU-001")
	s.SetQtyInput(4)
	if err := s.AddToCart(); err == nil {
		t.Fatal("expected merge rejection")
	}
	if got := lastToast(t, center); got.Message != "No puedes superar el stock (5)" {
		t.Errorf("unexpected toast %q", got.Message)
	}
	if lines := s.Lines(); len(lines) != 1 || lines[0].Qty != 3 {
		t.Errorf("existing line must be untouched, got %+v", lines)
	}
}

func TestAddToCartMergesWithinStock(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, _ := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-001")
	s.SetQtyInput(3)
	_ = s.AddToCart()
	s.SetSKUInput("SKU-001")
	s.SetQtyInput(2)
	if err := s.AddToCart(); err != nil {
		t.Fatalf("merge within stock must succeed: %v", err)
	}
	if lines := s.Lines(); len(lines) != 1 || lines[0].Qty != 5 {
		t.Errorf("expected single line with qty 5, got %+v", lines)
	}
}

func TestConfirmPurchaseEmptyCart(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, center := newTestSession(t, api)

	err := s.ConfirmPurchase(context.Background())
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
	if got := lastToast(t, center); got.Message != "Carrito vacío" {
		t.Errorf("unexpected toast %q", got.Message)
	}
	if len(api.calls()) != 0 {
		t.Error("no buy calls must be issued for an empty cart")
	}
}

func TestConfirmPurchaseSuccessClearsCart(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, center := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-001")
	s.SetQtyInput(2)
	_ = s.AddToCart()
	s.SetSKUInput("SKU-002")
	s.SetQtyInput(1)
	_ = s.AddToCart()

	if err := s.ConfirmPurchase(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := api.calls()
	if len(calls) != 2 || calls[0] != (buyCall{1, 2}) || calls[1] != (buyCall{2, 1}) {
		t.Errorf("expected one buy per line in cart order, got %+v", calls)
	}
	if len(s.Lines()) != 0 {
		t.Error("cart must be cleared after a successful checkout")
	}
	if got := lastToast(t, center); got.Message != "Compra realizada" || got.Severity != notify.SeveritySuccess {
		t.Errorf("unexpected toast %+v", got)
	}
}

func TestConfirmPurchaseAbortsOnFirstFailure(t *testing.T) {
	api := &fakeCatalog{
		products: catalogSnapshot(),
		buyErrs: map[int64]error{
			2: &client.APIError{StatusCode: 400, Message: "Stock insuficiente"},
		},
	}
	s, center := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	for _, in := range []struct {
		sku string
		qty int
	}{{"SKU-001", 1}, {"SKU-002", 2}, {"SKU-003", 1}} {
		s.SetSKUInput(in.sku)
		s.SetQtyInput(in.qty)
		if err := s.AddToCart(); err != nil {
			t.Fatalf("add %s: %v", in.sku, err)
		}
	}
	toastsBefore := len(center.Active())

	err := s.ConfirmPurchase(context.Background())
	if err == nil {
		t.Fatal("expected checkout failure")
	}

	calls := api.calls()
	if len(calls) != 2 {
		t.Fatalf("lines after the failure must not be attempted, got %+v", calls)
	}
	if calls[0].productID != 1 || calls[1].productID != 2 {
		t.Errorf("expected buys for products 1 then 2, got %+v", calls)
	}
	if len(s.Lines()) != 3 {
		t.Error("cart must be kept intact after a failed checkout")
	}

	active := center.Active()
	if len(active) != toastsBefore+1 {
		t.Fatalf("expected exactly one new toast, got %d", len(active)-toastsBefore)
	}
	if got := active[len(active)-1]; got.Message != "Stock insuficiente" || got.Severity != notify.SeverityError {
		t.Errorf("toast must carry the server message, got %+v", got)
	}
}

func TestConfirmPurchaseFallbackMessageOnTransportError(t *testing.T) {
	api := &fakeCatalog{
		products: catalogSnapshot(),
		buyErrs:  map[int64]error{1: errors.New("connection refused")},
	}
	s, center := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-001")
	s.SetQtyInput(1)
	_ = s.AddToCart()

	if err := s.ConfirmPurchase(context.Background()); err == nil {
		t.Fatal("expected checkout failure")
	}
	if got := lastToast(t, center); got.Message != "No se pudo completar la compra" {
		t.Errorf("unexpected toast %q", got.Message)
	}
}

func TestConfirmPurchaseRejectsConcurrentCheckout(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeCatalog{products: catalogSnapshot(), buyGate: gate}
	s, _ := newTestSession(t, api)
	_ = s.RefreshCatalog(context.Background())

	s.SetSKUInput("SKU-001")
	s.SetQtyInput(1)
	_ = s.AddToCart()

	done := make(chan error, 1)
	go func() { done <- s.ConfirmPurchase(context.Background()) }()

	// Wait until the first checkout holds the in-flight flag.
	deadline := time.After(2 * time.Second)
	for !s.Confirming() {
		select {
		case <-deadline:
			t.Fatal("first checkout never started")
		case <-time.After(time.Millisecond):
		}
	}

	if err := s.ConfirmPurchase(context.Background()); !errors.Is(err, ErrCheckoutInFlight) {
		t.Fatalf("expected ErrCheckoutInFlight, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first checkout must complete: %v", err)
	}
	if s.Confirming() {
		t.Error("in-flight flag must be released after completion")
	}
}

func TestRefreshCatalogKeepsLastKnownGoodOnFailure(t *testing.T) {
	api := &fakeCatalog{products: catalogSnapshot()}
	s, center := newTestSession(t, api)

	if err := s.RefreshCatalog(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	api.listErr = errors.New("boom")
	if err := s.RefreshCatalog(context.Background()); err == nil {
		t.Fatal("expected refresh failure")
	}
	if len(s.Products()) != 3 {
		t.Error("snapshot must be kept on refresh failure")
	}
	if got := lastToast(t, center); got.Message != "No se pudo cargar el catálogo" {
		t.Errorf("unexpected toast %q", got.Message)
	}
}

func TestProperty_CartLinesNeverExceedStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every line satisfies 1 <= qty <= stock after arbitrary adds and edits", prop.ForAll(
		func(addQtys []int, editQty int) bool {
			api := &fakeCatalog{products: catalogSnapshot()}
			s, _ := newTestSession(t, api)
			if err := s.RefreshCatalog(context.Background()); err != nil {
				return false
			}

			for _, q := range addQtys {
				s.SetSKUInput("SKU-002")
				s.SetQtyInput(q)
				_ = s.AddToCart()
			}
			s.UpdateLineQty(2, editQty)

			for _, l := range s.Lines() {
				if l.Qty < 1 || l.Qty > l.Product.Qty {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(-3, 15)),
		gen.IntRange(-10, 100),
	))

	properties.TestingRun(t)
}

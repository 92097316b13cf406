// Package snapshot holds the client's locally cached copy of server-owned
// catalog data. The store is single-writer-from-network: local state only
// changes by applying a freshly fetched listing, except for delete, which
// optimistically filters the removed product out by id.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"inventario-smart/internal/client"
	"inventario-smart/internal/domain"
	"inventario-smart/internal/notify"
)

// CatalogAPI is the slice of the remote catalog client the store drives.
type CatalogAPI interface {
	List(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, input client.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch client.ProductPatch) (*domain.Product, error)
	Remove(ctx context.Context, id int64) error
	Buy(ctx context.Context, id int64, qty int) (*client.BuyResponse, error)
	AdjustStock(ctx context.Context, id int64, payload client.AdjustPayload) (*client.AdjustResponse, error)
}

// Store owns the inventory view's catalog snapshot. Every side-effecting
// operation calls the remote service and then refreshes the full snapshot;
// there is no incremental merge of server responses into local state.
type Store struct {
	api    CatalogAPI
	notify *notify.Center
	logger *zap.Logger

	mu      sync.Mutex
	items   []domain.Product
	loading bool
}

// NewStore creates a Store around the given client and notification center.
func NewStore(api CatalogAPI, center *notify.Center, logger *zap.Logger) *Store {
	return &Store{api: api, notify: center, logger: logger}
}

// Items returns a copy of the current snapshot.
func (s *Store) Items() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.items))
	copy(out, s.items)
	return out
}

// Loading reports whether a network operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Refresh replaces the snapshot with a fresh listing. On failure the
// last-known-good snapshot is kept and an error toast is raised.
func (s *Store) Refresh(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	items, err := s.api.List(ctx)
	if err != nil {
		s.notify.Error("No se pudo cargar Inventario")
		return err
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Create registers a new product, then refreshes the snapshot.
func (s *Store) Create(ctx context.Context, input client.ProductInput) error {
	if _, err := s.api.Create(ctx, input); err != nil {
		s.notify.Error(messageOf(err, "No se pudo crear el producto"))
		return err
	}

	s.notify.Success("Producto creado")
	return s.Refresh(ctx)
}

// Update applies a partial sku/name/price edit, then refreshes the snapshot.
func (s *Store) Update(ctx context.Context, id int64, patch client.ProductPatch) error {
	if _, err := s.api.Update(ctx, id, patch); err != nil {
		s.notify.Error(messageOf(err, "No se pudo actualizar"))
		return err
	}

	s.notify.Success("Producto actualizado")
	return s.Refresh(ctx)
}

// Remove deletes a product server-side, then drops it from the local
// snapshot by id instead of refetching.
func (s *Store) Remove(ctx context.Context, id int64) error {
	if err := s.api.Remove(ctx, id); err != nil {
		s.notify.Error("No se pudo eliminar el producto. Intenta nuevamente.")
		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	var removed *domain.Product
	for _, p := range s.items {
		if p.ID == id {
			removed = &p
			continue
		}
		kept = append(kept, p)
	}
	s.items = kept
	s.mu.Unlock()

	if removed != nil {
		s.notify.Success(fmt.Sprintf("Producto %s eliminado correctamente", removed.SKU))
	}
	return nil
}

// Buy registers a purchase, then refreshes the snapshot.
func (s *Store) Buy(ctx context.Context, id int64, qty int) error {
	if _, err := s.api.Buy(ctx, id, qty); err != nil {
		s.notify.Error(messageOf(err, "Error al comprar"))
		return err
	}
	return s.Refresh(ctx)
}

// Adjust applies a stock adjustment, then refreshes the snapshot.
func (s *Store) Adjust(ctx context.Context, id int64, payload client.AdjustPayload) error {
	if _, err := s.api.AdjustStock(ctx, id, payload); err != nil {
		s.notify.Error(messageOf(err, "No se pudo aplicar el ajuste"))
		return err
	}

	s.notify.Success("Ajuste aplicado")
	return s.Refresh(ctx)
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// messageOf extracts the user-facing message from an API error, falling back
// to a per-operation generic message.
func messageOf(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

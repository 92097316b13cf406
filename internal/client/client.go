// Package client implements the typed HTTP client for the Inventario Smart
// REST API. It owns base-URL normalization and the extraction of
// human-readable error messages from structured error bodies.
package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"inventario-smart/internal/domain"
)

// NormalizeBaseURL strips trailing slashes from raw and appends exactly one
// /api suffix. It is idempotent: normalizing an already-normalized URL
// returns it unchanged.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(raw, "/")
	if strings.HasSuffix(base, "/api") {
		return base
	}
	return base + "/api"
}

// ProductInput carries the fields sent when creating a product.
type ProductInput struct {
	SKU    string               `json:"sku"`
	Name   string               `json:"name"`
	Qty    int                  `json:"qty"`
	Status domain.ProductStatus `json:"status"`
	Price  int64                `json:"price"`
}

// ProductPatch carries a partial product edit. Nil fields are omitted.
type ProductPatch struct {
	SKU   *string `json:"sku,omitempty"`
	Name  *string `json:"name,omitempty"`
	Price *int64  `json:"price,omitempty"`
}

// BuyResponse is returned by the buy endpoint.
type BuyResponse struct {
	Message  string               `json:"message"`
	NewStock int                  `json:"new_stock"`
	Status   domain.ProductStatus `json:"status"`
}

// AdjustPayload is the body of a stock adjustment.
type AdjustPayload struct {
	Delta  int                   `json:"delta"`
	Reason domain.MovementReason `json:"reason,omitempty"`
	Note   string                `json:"note,omitempty"`
}

// AdjustResponse is returned by the adjust_stock endpoint.
type AdjustResponse struct {
	Message  string                `json:"message"`
	Product  *domain.Product       `json:"product"`
	Movement *domain.StockMovement `json:"movement"`
}

// Client is the remote catalog client. All business data and logic live
// server-side; the client only carries typed requests and responses.
type Client struct {
	http *resty.Client
}

// New creates a Client against the given raw base URL. Timeouts are left at
// the transport default.
func New(rawBaseURL string) *Client {
	httpClient := resty.New().
		SetBaseURL(NormalizeBaseURL(rawBaseURL)).
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient}
}

// BaseURL returns the normalized base URL requests are issued against.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// List fetches the full product catalog.
func (c *Client) List(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&products).
		Get("/products/")
	if err := c.check(resp, err, "No se pudo cargar el catálogo"); err != nil {
		return nil, err
	}
	return products, nil
}

// Create registers a new product.
func (c *Client) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	product := &domain.Product{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(input).
		SetResult(product).
		Post("/products/")
	if err := c.check(resp, err, "No se pudo crear el producto"); err != nil {
		return nil, err
	}
	return product, nil
}

// Update applies a partial sku/name/price edit.
func (c *Client) Update(ctx context.Context, id int64, patch ProductPatch) (*domain.Product, error) {
	product := &domain.Product{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(patch).
		SetResult(product).
		Patch(fmt.Sprintf("/products/%d/", id))
	if err := c.check(resp, err, "No se pudo actualizar"); err != nil {
		return nil, err
	}
	return product, nil
}

// Remove deletes a product.
func (c *Client) Remove(ctx context.Context, id int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/products/%d/", id))
	return c.check(resp, err, "No se pudo eliminar el producto")
}

// Buy registers a point-of-sale purchase. The server rejects the call when
// qty exceeds the available stock.
func (c *Client) Buy(ctx context.Context, id int64, qty int) (*BuyResponse, error) {
	result := &BuyResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]int{"qty": qty}).
		SetResult(result).
		Post(fmt.Sprintf("/products/%d/buy/", id))
	if err := c.check(resp, err, "No se pudo completar la compra"); err != nil {
		return nil, err
	}
	return result, nil
}

// AdjustStock applies a signed stock delta with a reason and note.
func (c *Client) AdjustStock(ctx context.Context, id int64, payload AdjustPayload) (*AdjustResponse, error) {
	result := &AdjustResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		Post(fmt.Sprintf("/products/%d/adjust_stock/", id))
	if err := c.check(resp, err, "No se pudo aplicar el ajuste"); err != nil {
		return nil, err
	}
	return result, nil
}

// ListMovements fetches the newest ledger entries, capped at limit.
func (c *Client) ListMovements(ctx context.Context, limit int) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetResult(&movements).
		Get("/movements/")
	if err := c.check(resp, err, "No se pudo cargar el historial"); err != nil {
		return nil, err
	}
	return movements, nil
}

// Dashboard fetches the aggregated dashboard summary.
func (c *Client) Dashboard(ctx context.Context) (*domain.DashboardSummary, error) {
	summary := &domain.DashboardSummary{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(summary).
		Get("/dashboard/")
	if err := c.check(resp, err, "No se pudo cargar el resumen"); err != nil {
		return nil, err
	}
	return summary, nil
}

// check folds transport failures and non-2xx responses into a single error
// carrying the best human-readable message available. Transport failures get
// the same generic fallback as unreadable rejection bodies.
func (c *Client) check(resp *resty.Response, err error, fallback string) error {
	if err != nil {
		return &APIError{Message: fallback, cause: err}
	}
	if resp.IsError() {
		return &APIError{
			StatusCode: resp.StatusCode(),
			Message:    extractMessage(resp.Body(), fallback),
		}
	}
	return nil
}

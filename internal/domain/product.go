package domain

import "time"

// ProductStatus is the lifecycle status of a catalog product.
type ProductStatus string

const (
	StatusAvailable ProductStatus = "AVAILABLE"
	StatusPending   ProductStatus = "PENDING"
	StatusOut       ProductStatus = "OUT"
)

// Valid reports whether s is one of the known statuses.
func (s ProductStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusPending, StatusOut:
		return true
	}
	return false
}

// Product represents a product in the catalog. Price is in whole currency
// units (CLP has no minor unit in practice).
type Product struct {
	ID        int64         `json:"id" db:"id"`
	SKU       string        `json:"sku" db:"sku"`
	Name      string        `json:"name" db:"name"`
	Qty       int           `json:"qty" db:"qty"`
	Status    ProductStatus `json:"status" db:"status"`
	Price     int64         `json:"price" db:"price"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// RefreshStatus recomputes Status from Qty after a stock change. A product
// that runs out is marked OUT; stock coming back flips OUT to AVAILABLE.
// PENDING is a manual state and is only cleared by running out.
func (p *Product) RefreshStatus() {
	switch {
	case p.Qty == 0:
		p.Status = StatusOut
	case p.Status == StatusOut:
		p.Status = StatusAvailable
	}
}

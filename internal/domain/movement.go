package domain

import "time"

// MovementReason classifies why a stock movement happened.
type MovementReason string

const (
	ReasonAdjustment MovementReason = "ADJUSTMENT"
	ReasonDamage     MovementReason = "DAMAGE"
	ReasonReturn     MovementReason = "RETURN"
	ReasonCount      MovementReason = "COUNT"
)

// Valid reports whether r is one of the known reasons.
func (r MovementReason) Valid() bool {
	switch r {
	case ReasonAdjustment, ReasonDamage, ReasonReturn, ReasonCount:
		return true
	}
	return false
}

// StockMovement is an append-only ledger entry recording a signed stock
// change. SKU and name are denormalized for display; the ledger is never
// mutated or deleted once written.
type StockMovement struct {
	ID          int64          `json:"id" db:"id"`
	ProductID   int64          `json:"product" db:"product_id"`
	ProductSKU  string         `json:"product_sku" db:"product_sku"`
	ProductName string         `json:"product_name" db:"product_name"`
	Delta       int            `json:"delta" db:"delta"`
	Reason      MovementReason `json:"reason" db:"reason"`
	Note        string         `json:"note" db:"note"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// Package view computes the filtered, ordered projections shown in the
// dashboard tables. Projections are pure functions of the base collection
// and the query state: they never mutate their input and always produce the
// same output for the same input, so they can be recomputed on every state
// change.
package view

import (
	"sort"
	"strings"

	"inventario-smart/internal/domain"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ProductSortKey names a sortable product column.
type ProductSortKey string

const (
	SortBySKU    ProductSortKey = "sku"
	SortByName   ProductSortKey = "name"
	SortByQty    ProductSortKey = "qty"
	SortByStatus ProductSortKey = "status"
	SortByPrice  ProductSortKey = "price"
)

// ProductQuery is the filter and sort state of the inventory table. Text
// filters match case-insensitive substrings, the status filter matches
// exactly, and all active filters must hold (logical AND).
type ProductQuery struct {
	SKU     string
	Name    string
	Status  domain.ProductStatus
	SortKey ProductSortKey
	SortDir Direction
}

// NewProductQuery returns the inventory table's initial state: no filters,
// sorted by SKU ascending.
func NewProductQuery() ProductQuery {
	return ProductQuery{SortKey: SortBySKU, SortDir: Ascending}
}

// ToggleSort flips the direction when key is already active and otherwise
// switches to key, resetting the direction to ascending.
func (q *ProductQuery) ToggleSort(key ProductSortKey) {
	if q.SortKey == key {
		if q.SortDir == Ascending {
			q.SortDir = Descending
		} else {
			q.SortDir = Ascending
		}
		return
	}
	q.SortKey = key
	q.SortDir = Ascending
}

// Apply projects the base collection through the query: records matching all
// active filters, stable-sorted by the sort key. The input slice is never
// modified.
func (q ProductQuery) Apply(items []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(items))
	for _, p := range items {
		if !containsFold(p.SKU, q.SKU) {
			continue
		}
		if !containsFold(p.Name, q.Name) {
			continue
		}
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		out = append(out, p)
	}

	key := q.SortKey
	if key == "" {
		key = SortBySKU
	}
	asc := q.SortDir != Descending

	sort.SliceStable(out, func(i, j int) bool {
		less := productLess(out[i], out[j], key)
		if asc {
			return less
		}
		return productLess(out[j], out[i], key)
	})

	return out
}

func productLess(a, b domain.Product, key ProductSortKey) bool {
	switch key {
	case SortByName:
		return a.Name < b.Name
	case SortByQty:
		return a.Qty < b.Qty
	case SortByStatus:
		return a.Status < b.Status
	case SortByPrice:
		return a.Price < b.Price
	default:
		return a.SKU < b.SKU
	}
}

// MovementQuery is the filter state of the movement history table. Movements
// arrive from the server newest-first and keep that order; the query only
// narrows the set.
type MovementQuery struct {
	SKU    string
	Name   string
	Reason domain.MovementReason
}

// Apply returns the movements matching all active filters, preserving the
// base order. The input slice is never modified.
func (q MovementQuery) Apply(items []domain.StockMovement) []domain.StockMovement {
	out := make([]domain.StockMovement, 0, len(items))
	for _, m := range items {
		if !containsFold(m.ProductSKU, q.SKU) {
			continue
		}
		if !containsFold(m.ProductName, q.Name) {
			continue
		}
		if q.Reason != "" && m.Reason != q.Reason {
			continue
		}
		out = append(out, m)
	}
	return out
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

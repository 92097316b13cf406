// Package sales implements the point-of-sale cart and checkout flow: a
// client-side draft order held against the last-fetched catalog snapshot,
// with stock-bounded quantities and a sequential, abort-on-failure checkout.
package sales

import (
	"inventario-smart/internal/domain"
)

// IVA CL (19%)
const taxRatePercent = 19

// Line pairs a product snapshot with the requested quantity. The quantity
// always satisfies 1 <= Qty <= Product.Qty.
type Line struct {
	Product domain.Product
	Qty     int
}

// Totals is the cart's price breakdown. Tax is rounded half away from zero,
// which on a non-negative subtotal matches the original Math.round.
type Totals struct {
	Subtotal int64
	Tax      int64
	Total    int64
}

// Cart is an ordered sequence of lines, at most one per product. It is
// ephemeral: never persisted, cleared on successful checkout.
type Cart struct {
	lines []Line
}

// Lines returns a copy of the cart lines in first-added order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// Totals recomputes the price breakdown from the current lines. It is a pure
// function of the cart state and is never cached.
func (c *Cart) Totals() Totals {
	var subtotal int64
	for _, l := range c.lines {
		subtotal += int64(l.Qty) * l.Product.Price
	}
	tax := (subtotal*taxRatePercent + 50) / 100
	return Totals{Subtotal: subtotal, Tax: tax, Total: subtotal + tax}
}

// UpdateLineQty clamps qty into [1, product stock] and applies it. Direct
// numeric edits never fail, they self-correct.
func (c *Cart) UpdateLineQty(productID int64, qty int) {
	for i, l := range c.lines {
		if l.Product.ID != productID {
			continue
		}
		if qty < 1 {
			qty = 1
		}
		if qty > l.Product.Qty {
			qty = l.Product.Qty
		}
		c.lines[i].Qty = qty
		return
	}
}

// RemoveLine removes the line for the given product; no-op when absent.
func (c *Cart) RemoveLine(productID int64) {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// add appends a new line or merges qty into an existing one. Bounds are
// checked by the caller.
func (c *Cart) add(product domain.Product, qty int) {
	for i, l := range c.lines {
		if l.Product.ID == product.ID {
			c.lines[i].Qty += qty
			return
		}
	}
	c.lines = append(c.lines, Line{Product: product, Qty: qty})
}

// find returns the line for the given product, if present.
func (c *Cart) find(productID int64) (Line, bool) {
	for _, l := range c.lines {
		if l.Product.ID == productID {
			return l, true
		}
	}
	return Line{}, false
}

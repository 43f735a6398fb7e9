// Package cart implements the pre-checkout selection of products: at most
// one entry per product id, insertion-ordered, with subtotals recomputed on
// every mutation.
package cart

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
)

// Totals is the on-demand aggregate over the cart entries. It is never
// cached separately from the entries.
type Totals struct {
	ItemCount   int64           `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Cart holds the user's in-progress selection. Safe for concurrent use.
type Cart struct {
	mu      sync.RWMutex
	entries map[string]model.CartEntry
	order   []string
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{entries: make(map[string]model.CartEntry)}
}

// Add merges quantity onto an existing entry or inserts a new one. The entry
// price and subtotal are recomputed from the passed product's current price,
// so an admin price edit is picked up on the next add of that product rather
// than retroactively. Invalid input is rejected before any mutation.
func (c *Cart) Add(p model.Product, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", apperr.ErrValidation)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: product id is required", apperr.ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product price must not be negative", apperr.ErrValidation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[p.ID]
	if !ok {
		e = model.CartEntry{ProductID: p.ID}
		c.order = append(c.order, p.ID)
	}
	e.Quantity += quantity
	e.Title = p.Title
	e.Price = p.Price
	e.Subtotal = p.Price.Mul(decimal.NewFromInt(e.Quantity))
	c.entries[p.ID] = e
	return nil
}

// Remove deletes the entry entirely regardless of its quantity. It reports
// whether an entry was actually removed; removing an absent product is a
// no-op.
func (c *Cart) Remove(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[productID]; !ok {
		return false
	}
	delete(c.entries, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Totals sums quantities and subtotals over the current entries.
func (c *Cart) Totals() Totals {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalsLocked()
}

func (c *Cart) totalsLocked() Totals {
	t := Totals{TotalAmount: decimal.Zero}
	for _, e := range c.entries {
		t.ItemCount += e.Quantity
		t.TotalAmount = t.TotalAmount.Add(e.Subtotal)
	}
	return t
}

// Entries returns a copy of the entries in insertion order.
func (c *Cart) Entries() []model.CartEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entriesLocked()
}

func (c *Cart) entriesLocked() []model.CartEntry {
	out := make([]model.CartEntry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// Snapshot returns the entries and totals from a single consistent view of
// the cart.
func (c *Cart) Snapshot() ([]model.CartEntry, Totals) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entriesLocked(), c.totalsLocked()
}

// Clear empties all entries. Called as part of successful order placement.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]model.CartEntry)
	c.order = nil
}

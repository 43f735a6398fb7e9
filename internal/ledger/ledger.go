// Package ledger keeps the append-only list of placed orders. Orders are
// never mutated or removed once appended.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/cart"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
	"github.com/fairyhunter13/shop-state-engine/internal/remote"
)

// Ledger records placed orders, oldest first.
type Ledger struct {
	mu     sync.RWMutex
	client remote.Client
	orders []model.Order
	now    func() time.Time
}

// New creates an empty ledger backed by the given remote client.
func New(client remote.Client) *Ledger {
	return &Ledger{client: client, now: time.Now}
}

// PlaceOrder snapshots the cart by value, sends the order to the backend,
// and only on remote success appends it to the ledger and clears the cart,
// both in the same turn. On failure the ledger and the cart are left exactly
// as they were; no local-only order is ever created.
func (l *Ledger) PlaceOrder(ctx context.Context, c *cart.Cart) (model.Order, error) {
	items, totals := c.Snapshot()
	if totals.ItemCount == 0 {
		return model.Order{}, fmt.Errorf("%w: cart is empty", apperr.ErrValidation)
	}
	order := model.Order{
		Items:       items,
		TotalAmount: totals.TotalAmount,
		PlacedAt:    l.now().UTC(),
	}
	id, err := l.client.PlaceOrder(ctx, order)
	if err != nil {
		return model.Order{}, err
	}
	order.ID = id
	l.mu.Lock()
	l.orders = append(l.orders, order)
	l.mu.Unlock()
	c.Clear()
	return order, nil
}

// Orders returns a copy of the placed orders, oldest first.
func (l *Ledger) Orders() []model.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.Order(nil), l.orders...)
}

// Len reports the number of placed orders.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

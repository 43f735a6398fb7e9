// Package catalog reconciles remote product listings into local state and
// mirrors admin product mutations against the remote collaborator. Remote
// failures always leave the local catalog untouched.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
	"github.com/fairyhunter13/shop-state-engine/internal/remote"
)

// Catalog holds the full purchasable listing plus the subset owned by the
// current user. The owned subset is always a subset of available by id.
type Catalog struct {
	mu        sync.RWMutex
	client    remote.Client
	available []model.Product
	owned     []model.Product
}

// New creates an empty catalog backed by the given remote client.
func New(client remote.Client) *Catalog {
	return &Catalog{client: client}
}

// Refresh fetches the remote listing and wholesale-replaces both subsets:
// full reconciliation, not an incremental merge. The owned subset is the
// listing filtered by ownerID ("" yields an empty owned subset). Concurrent
// refreshes are last-write-wins by response arrival order, not issue order.
func (c *Catalog) Refresh(ctx context.Context, ownerID string) error {
	products, err := c.client.List(ctx)
	if err != nil {
		return err
	}
	owned := make([]model.Product, 0)
	for _, p := range products {
		if ownerID != "" && p.OwnerID == ownerID {
			owned = append(owned, p)
		}
	}
	c.mu.Lock()
	c.available = products
	c.owned = owned
	c.mu.Unlock()
	return nil
}

// Create sends the draft to the backend and appends the server-assigned
// product to both subsets on success.
func (c *Catalog) Create(ctx context.Context, draft model.ProductDraft) (model.Product, error) {
	if draft.Title == "" {
		return model.Product{}, fmt.Errorf("%w: title is required", apperr.ErrValidation)
	}
	if draft.Price.IsNegative() {
		return model.Product{}, fmt.Errorf("%w: price must not be negative", apperr.ErrValidation)
	}
	p, err := c.client.Create(ctx, draft)
	if err != nil {
		return model.Product{}, err
	}
	c.mu.Lock()
	c.available = append(c.available, p)
	c.owned = append(c.owned, p)
	c.mu.Unlock()
	return p, nil
}

// Update requires ownership, sends the patch, and on success applies it in
// place in both subsets. If a concurrent refresh dropped the product while
// the call was in flight, the commit skips the missing subset instead of
// corrupting it.
func (c *Catalog) Update(ctx context.Context, id string, patch model.ProductPatch) error {
	if id == "" {
		return fmt.Errorf("%w: product id is required", apperr.ErrValidation)
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", apperr.ErrValidation)
	}
	if !c.Owns(id) {
		return fmt.Errorf("%w: product %s", apperr.ErrNotOwner, id)
	}
	if err := c.client.Update(ctx, id, patch); err != nil {
		return err
	}
	c.mu.Lock()
	patchInPlace(c.available, id, patch)
	patchInPlace(c.owned, id, patch)
	c.mu.Unlock()
	return nil
}

// Delete requires ownership, sends the delete, and on success removes the
// product from both subsets.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: product id is required", apperr.ErrValidation)
	}
	if !c.Owns(id) {
		return fmt.Errorf("%w: product %s", apperr.ErrNotOwner, id)
	}
	if err := c.client.Delete(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	c.available = removeByID(c.available, id)
	c.owned = removeByID(c.owned, id)
	c.mu.Unlock()
	return nil
}

// Owns reports whether the owned subset contains the product id.
func (c *Catalog) Owns(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.owned {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Find looks a product up in the available subset.
func (c *Catalog) Find(id string) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.available {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// Available returns a copy of the full purchasable listing.
func (c *Catalog) Available() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Product(nil), c.available...)
}

// Owned returns a copy of the current user's products.
func (c *Catalog) Owned() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Product(nil), c.owned...)
}

// ClearOwned drops the user-scoped subset. Called on logout and expiry; the
// available listing survives.
func (c *Catalog) ClearOwned() {
	c.mu.Lock()
	c.owned = nil
	c.mu.Unlock()
}

func patchInPlace(list []model.Product, id string, patch model.ProductPatch) {
	for i := range list {
		if list[i].ID == id {
			list[i] = patch.Apply(list[i])
			return
		}
	}
}

func removeByID(list []model.Product, id string) []model.Product {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Package model defines the domain types of the shop state engine.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as served by the remote backend. Products are
// immutable once fetched except through an explicit admin update.
type Product struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// ProductDraft is the payload for creating a product. The id and owner are
// assigned by the backend.
type ProductDraft struct {
	Title       string          `json:"title"`
	ImageURL    string          `json:"image_url"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// ProductPatch is a partial product update; nil fields are left unchanged.
type ProductPatch struct {
	Title       *string          `json:"title,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

// Apply returns p with the non-nil patch fields replaced.
func (pp ProductPatch) Apply(p Product) Product {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.ImageURL != nil {
		p.ImageURL = *pp.ImageURL
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	return p
}

// CartEntry is one product line in the cart. Subtotal is always price times
// quantity; it is recomputed on every mutation, never set independently.
type CartEntry struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Order is an immutable snapshot of a placed cart. Items keep the cart's
// insertion order at the time of placement.
type Order struct {
	ID          string          `json:"id"`
	Items       []CartEntry     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PlacedAt    time.Time       `json:"placed_at"`
}

// Session is the authenticated identity bound to the process. The absence of
// a Session value means unauthenticated; a Session is never partially
// populated.
type Session struct {
	UserID         string    `json:"user_id"`
	Token          string    `json:"token"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}

// Credentials identify a user against the remote auth endpoint.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the remote authentication response. ExpiresIn is in seconds.
type AuthResult struct {
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

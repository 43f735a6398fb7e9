package shop

import "github.com/fairyhunter13/shop-state-engine/internal/model"

// Intent is the sealed union of state transitions a screen may request. New
// intents are added by declaring a new type here and handling it in the
// dispatcher's type switch; an unhandled intent is rejected at dispatch.
type Intent interface {
	isIntent()
}

// SignUp registers a new account and installs the issued session.
type SignUp struct {
	Credentials model.Credentials
}

// LogIn authenticates an existing account and installs the issued session.
type LogIn struct {
	Credentials model.Credentials
}

// LogOut clears the session and the user-scoped catalog subset.
type LogOut struct{}

// RestoreSession reinstalls a persisted session, if one is still valid.
type RestoreSession struct{}

// FetchProducts reconciles the catalog against the remote listing.
type FetchProducts struct{}

// CreateProduct creates a product owned by the signed-in user.
type CreateProduct struct {
	Draft model.ProductDraft
}

// UpdateProduct patches an owned product.
type UpdateProduct struct {
	ProductID string
	Patch     model.ProductPatch
}

// DeleteProduct removes an owned product.
type DeleteProduct struct {
	ProductID string
}

// AddToCart merges a product into the cart. A zero Quantity defaults to 1.
type AddToCart struct {
	ProductID string
	Quantity  int64
}

// RemoveFromCart deletes a cart entry entirely.
type RemoveFromCart struct {
	ProductID string
}

// PlaceOrder snapshots the cart into a new order and submits it.
type PlaceOrder struct{}

func (SignUp) isIntent()         {}
func (LogIn) isIntent()          {}
func (LogOut) isIntent()         {}
func (RestoreSession) isIntent() {}
func (FetchProducts) isIntent()  {}
func (CreateProduct) isIntent()  {}
func (UpdateProduct) isIntent()  {}
func (DeleteProduct) isIntent()  {}
func (AddToCart) isIntent()      {}
func (RemoveFromCart) isIntent() {}
func (PlaceOrder) isIntent()     {}

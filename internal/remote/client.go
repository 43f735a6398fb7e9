// Package remote talks to the storefront backend: product CRUD, order
// placement, and authentication. Transport details stay in this package; the
// state engine only ever sees the Client interface and treats every call as
// fallible and asynchronous.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/shop-state-engine/internal/apperr"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
)

// AuthMode selects between the signup and login endpoints.
type AuthMode string

const (
	AuthSignUp AuthMode = "signup"
	AuthLogIn  AuthMode = "login"
)

// Client is the remote collaborator boundary. Implementations never retry;
// retrying is the caller's decision.
type Client interface {
	List(ctx context.Context) ([]model.Product, error)
	Create(ctx context.Context, draft model.ProductDraft) (model.Product, error)
	Update(ctx context.Context, id string, patch model.ProductPatch) error
	Delete(ctx context.Context, id string) error
	PlaceOrder(ctx context.Context, order model.Order) (string, error)
	Authenticate(ctx context.Context, creds model.Credentials, mode AuthMode) (model.AuthResult, error)
}

// TokenSource supplies the current bearer token, or "" when unauthenticated.
type TokenSource func() string

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	base   string
	hc     *http.Client
	tokens TokenSource
}

// NewHTTPClient creates a client against baseURL. A nil tokens source sends
// unauthenticated requests.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenSource) *HTTPClient {
	if tokens == nil {
		tokens = func() string { return "" }
	}
	return &HTTPClient{
		base:   strings.TrimRight(baseURL, "/"),
		hc:     &http.Client{Timeout: timeout},
		tokens: tokens,
	}
}

var _ Client = (*HTTPClient)(nil)

// SetTokenSource replaces the bearer token source. Used to break the
// construction cycle between the client and the session store that holds the
// token.
func (c *HTTPClient) SetTokenSource(tokens TokenSource) {
	if tokens != nil {
		c.tokens = tokens
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode %s %s: %v", apperr.ErrRemote, method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrRemote, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.tokens(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperr.ErrRemote, method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s",
			apperr.ErrRemote, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s %s: %v", apperr.ErrRemote, method, path, err)
		}
	}
	return nil
}

// List fetches the full product listing.
func (c *HTTPClient) List(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create sends a product draft and returns the server-assigned product.
func (c *HTTPClient) Create(ctx context.Context, draft model.ProductDraft) (model.Product, error) {
	var out model.Product
	if err := c.do(ctx, http.MethodPost, "/products", draft, &out); err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// Update sends a partial product update.
func (c *HTTPClient) Update(ctx context.Context, id string, patch model.ProductPatch) error {
	return c.do(ctx, http.MethodPatch, "/products/"+id, patch, nil)
}

// Delete removes a product.
func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/products/"+id, nil, nil)
}

// PlaceOrder submits an order and returns the server-assigned order id.
func (c *HTTPClient) PlaceOrder(ctx context.Context, order model.Order) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", order, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Authenticate signs a user up or in and returns the issued credential.
func (c *HTTPClient) Authenticate(ctx context.Context, creds model.Credentials, mode AuthMode) (model.AuthResult, error) {
	var out model.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/"+string(mode), creds, &out); err != nil {
		return model.AuthResult{}, err
	}
	return out, nil
}

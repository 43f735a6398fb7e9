// Package remotetest provides an in-process storefront backend speaking the
// same HTTP contract the remote client expects. Tests run against it, and the
// demo binary embeds it when no real backend is configured.
package remotetest

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fairyhunter13/shop-state-engine/internal/model"
)

type account struct {
	userID   string
	password string
}

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Backend is an in-memory storefront service: accounts, products, and
// orders, with HS256 bearer tokens on mutating routes.
type Backend struct {
	mu           sync.Mutex
	secret       []byte
	accounts     map[string]account // keyed by email
	products     map[string]model.Product
	productOrder []string
	orders       map[string]model.Order
	tokenTTL     time.Duration
	failNext     bool
}

// New creates an empty Backend with a random signing secret and one-hour
// tokens.
func New() *Backend {
	return &Backend{
		secret:   []byte(uuid.NewString()),
		accounts: make(map[string]account),
		products: make(map[string]model.Product),
		orders:   make(map[string]model.Order),
		tokenTTL: time.Hour,
	}
}

// SetTokenTTL overrides the lifetime of subsequently issued tokens.
func (b *Backend) SetTokenTTL(d time.Duration) {
	b.mu.Lock()
	b.tokenTTL = d
	b.mu.Unlock()
}

// FailNext makes the next API call fail with HTTP 500. Used to exercise the
// engine's remote-failure paths.
func (b *Backend) FailNext() {
	b.mu.Lock()
	b.failNext = true
	b.mu.Unlock()
}

// Seed inserts a product directly, bypassing the API. Returns the stored
// product with its assigned id.
func (b *Backend) Seed(ownerID string, draft model.ProductDraft) model.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := model.Product{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       draft.Title,
		ImageURL:    draft.ImageURL,
		Description: draft.Description,
		Price:       draft.Price,
	}
	b.products[p.ID] = p
	b.productOrder = append(b.productOrder, p.ID)
	return p
}

// OrderCount reports how many orders the backend has accepted.
func (b *Backend) OrderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// Router returns the backend's HTTP handler.
func (b *Backend) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/", b.authHandler)
	mux.HandleFunc("/products", b.productsHandler)
	mux.HandleFunc("/products/", b.productHandler)
	mux.HandleFunc("/orders", b.ordersHandler)
	return mux
}

func (b *Backend) takeFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext {
		b.failNext = false
		return true
	}
	return false
}

func (b *Backend) issueToken(userID string) (string, int64, error) {
	b.mu.Lock()
	ttl := b.tokenTTL
	b.mu.Unlock()
	now := time.Now()
	cl := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(b.secret)
	if err != nil {
		return "", 0, err
	}
	return tok, int64(ttl / time.Second), nil
}

// authUserID validates the bearer token and returns the user it was issued
// to.
func (b *Backend) authUserID(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	var cl claims
	tok, err := jwt.ParseWithClaims(parts[1], &cl, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", false
	}
	return cl.UserID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (b *Backend) authHandler(w http.ResponseWriter, r *http.Request) {
	if b.takeFailure() {
		writeError(w, http.StatusInternalServerError, "injected failure")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	mode := strings.TrimPrefix(r.URL.Path, "/auth/")
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var userID string
	switch mode {
	case "signup":
		b.mu.Lock()
		if _, exists := b.accounts[creds.Email]; exists {
			b.mu.Unlock()
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		userID = uuid.NewString()
		b.accounts[creds.Email] = account{userID: userID, password: creds.Password}
		b.mu.Unlock()
	case "login":
		b.mu.Lock()
		acct, ok := b.accounts[creds.Email]
		b.mu.Unlock()
		if !ok || acct.password != creds.Password {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		userID = acct.userID
	default:
		writeError(w, http.StatusNotFound, "unknown auth mode")
		return
	}

	tok, expiresIn, err := b.issueToken(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResult{UserID: userID, Token: tok, ExpiresIn: expiresIn})
}

func (b *Backend) productsHandler(w http.ResponseWriter, r *http.Request) {
	if b.takeFailure() {
		writeError(w, http.StatusInternalServerError, "injected failure")
		return
	}
	switch r.Method {
	case http.MethodGet:
		b.mu.Lock()
		out := make([]model.Product, 0, len(b.productOrder))
		for _, id := range b.productOrder {
			out = append(out, b.products[id])
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		userID, ok := b.authUserID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		var draft model.ProductDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if draft.Title == "" || draft.Price.IsNegative() {
			writeError(w, http.StatusBadRequest, "title required, price must not be negative")
			return
		}
		p := b.Seed(userID, draft)
		writeJSON(w, http.StatusCreated, p)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (b *Backend) productHandler(w http.ResponseWriter, r *http.Request) {
	if b.takeFailure() {
		writeError(w, http.StatusInternalServerError, "injected failure")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/products/")
	if id == "" {
		writeError(w, http.StatusNotFound, "product id required")
		return
	}
	userID, ok := b.authUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, exists := b.products[id]
	if !exists {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if p.OwnerID != userID {
		writeError(w, http.StatusForbidden, "not the product owner")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var patch model.ProductPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		b.products[id] = patch.Apply(p)
		writeJSON(w, http.StatusOK, b.products[id])
	case http.MethodDelete:
		delete(b.products, id)
		for i, pid := range b.productOrder {
			if pid == id {
				b.productOrder = append(b.productOrder[:i], b.productOrder[i+1:]...)
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (b *Backend) ordersHandler(w http.ResponseWriter, r *http.Request) {
	if b.takeFailure() {
		writeError(w, http.StatusInternalServerError, "injected failure")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := b.authUserID(r); !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	var order model.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(order.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order has no items")
		return
	}
	order.ID = uuid.NewString()
	b.mu.Lock()
	b.orders[order.ID] = order
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"id": order.ID})
}

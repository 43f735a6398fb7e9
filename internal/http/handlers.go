package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/shop-state-engine/internal/config"
	httpopenapi "github.com/fairyhunter13/shop-state-engine/internal/http/openapi"
	"github.com/fairyhunter13/shop-state-engine/internal/model"
	"github.com/fairyhunter13/shop-state-engine/internal/shop"
)

// App carries the handler dependencies: config plus the process-wide state
// container. Handlers only dispatch intents and read snapshots; the store
// owns every effect.
type App struct {
	Cfg     config.Config
	Shop    *shop.Store
	started time.Time
}

// NewApp constructs the HTTP application around the store.
func NewApp(cfg config.Config, st *shop.Store) *App {
	return &App{Cfg: cfg, Shop: st, started: time.Now()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

// sessionView is the session as shown to screens: the token stays inside the
// engine.
type sessionView struct {
	Authenticated  bool      `json:"authenticated"`
	UserID         string    `json:"user_id,omitempty"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitzero"`
}

func (a *App) sessionViewNow() sessionView {
	snap := a.Shop.Snapshot()
	v := sessionView{Authenticated: snap.Authenticated}
	if snap.Session != nil {
		v.UserID = snap.Session.UserID
		v.TokenExpiresAt = snap.Session.TokenExpiresAt
	}
	return v
}

func (a *App) authHandler(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/auth/")
	if action == "session" {
		if r.Method != http.MethodGet {
			WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
			return
		}
		writeJSON(w, http.StatusOK, a.sessionViewNow())
		return
	}
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	switch action {
	case "signup", "login":
		var creds model.Credentials
		if !decodeJSON(w, r, &creds) {
			return
		}
		var in shop.Intent
		if action == "signup" {
			in = shop.SignUp{Credentials: creds}
		} else {
			in = shop.LogIn{Credentials: creds}
		}
		if err := a.Shop.Dispatch(r.Context(), in); err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.sessionViewNow())
	case "logout":
		if err := a.Shop.Dispatch(r.Context(), shop.LogOut{}); err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.sessionViewNow())
	default:
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	}
}

func (a *App) productsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.Shop.Snapshot().Available)
	case http.MethodPost:
		var draft model.ProductDraft
		if !decodeJSON(w, r, &draft) {
			return
		}
		if err := a.Shop.Dispatch(r.Context(), shop.CreateProduct{Draft: draft}); err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a.Shop.Snapshot().Owned)
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (a *App) ownedProductsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, a.Shop.Snapshot().Owned)
}

func (a *App) refreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	if err := a.Shop.Dispatch(r.Context(), shop.FetchProducts{}); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Shop.Snapshot().Available)
}

func (a *App) productHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/products/")
	if id == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var patch model.ProductPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		if err := a.Shop.Dispatch(r.Context(), shop.UpdateProduct{ProductID: id, Patch: patch}); err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.Shop.Snapshot().Owned)
	case http.MethodDelete:
		if err := a.Shop.Dispatch(r.Context(), shop.DeleteProduct{ProductID: id}); err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.Shop.Snapshot().Owned)
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

// cartView pairs the entries with their on-demand totals.
type cartView struct {
	Items  []model.CartEntry `json:"items"`
	Totals any               `json:"totals"`
}

func (a *App) cartSnapshot() cartView {
	snap := a.Shop.Snapshot()
	return cartView{Items: snap.CartItems, Totals: snap.CartTotals}
}

func (a *App) cartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, a.cartSnapshot())
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

func (a *App) cartItemsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var req addToCartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := shop.AddToCart{ProductID: req.ProductID, Quantity: req.Quantity}
	if err := a.Shop.Dispatch(r.Context(), in); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.cartSnapshot())
}

func (a *App) cartItemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/cart/items/")
	if id == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if err := a.Shop.Dispatch(r.Context(), shop.RemoveFromCart{ProductID: id}); err != nil {
		WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.cartSnapshot())
}

func (a *App) ordersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.Shop.Snapshot().Orders)
	case http.MethodPost:
		if err := a.Shop.Dispatch(r.Context(), shop.PlaceOrder{}); err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a.Shop.Snapshot().Orders)
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (a *App) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, _ *http.Request) {
	dispatched, failed, version := a.Shop.Metrics()
	snap := a.Shop.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"intents_dispatched": dispatched,
		"intents_failed":     failed,
		"state_version":      version,
		"cart_item_count":    snap.CartTotals.ItemCount,
		"orders_placed":      len(snap.Orders),
		"uptime_sec":         time.Since(a.started).Seconds(),
	})
}

func (a *App) openapiHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}

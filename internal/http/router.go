package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/", app.authHandler)
	mux.HandleFunc("/products", app.productsHandler)
	mux.HandleFunc("/products/owned", app.ownedProductsHandler)
	mux.HandleFunc("/products/refresh", app.refreshHandler)
	mux.HandleFunc("/products/", app.productHandler)
	mux.HandleFunc("/cart", app.cartHandler)
	mux.HandleFunc("/cart/items", app.cartItemsHandler)
	mux.HandleFunc("/cart/items/", app.cartItemHandler)
	mux.HandleFunc("/orders", app.ordersHandler)
	mux.HandleFunc("/healthz", app.healthHandler)
	mux.HandleFunc("/debug/metrics", app.metricsHandler)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/openapi.yaml", app.openapiHandler)
	mux.HandleFunc("/docs", app.docsHandler)
	return WithRequestID(WithLogging(mux))
}

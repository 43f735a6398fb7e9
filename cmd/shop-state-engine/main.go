// Package main boots the shop state engine behind its HTTP surface. When no
// remote backend is configured it embeds an in-process one, so the binary is
// runnable standalone.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fairyhunter13/shop-state-engine/internal/blob"
	"github.com/fairyhunter13/shop-state-engine/internal/config"
	httpapi "github.com/fairyhunter13/shop-state-engine/internal/http"
	"github.com/fairyhunter13/shop-state-engine/internal/obs"
	"github.com/fairyhunter13/shop-state-engine/internal/remote"
	"github.com/fairyhunter13/shop-state-engine/internal/remote/remotetest"
	"github.com/fairyhunter13/shop-state-engine/internal/shop"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	obs.InitLogger()
	obs.Logger.Info("service_starting")

	baseURL := cfg.RemoteBaseURL
	if baseURL == "" {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			obs.Logger.Error("embedded_backend_listen_error", "error", err)
			os.Exit(1)
		}
		backend := remotetest.New()
		go func() {
			if err := http.Serve(ln, backend.Router()); err != nil && err != http.ErrServerClosed {
				obs.Logger.Error("embedded_backend_error", "error", err)
			}
		}()
		baseURL = "http://" + ln.Addr().String()
		obs.Logger.Info("embedded_backend_listen", "base_url", baseURL)
	}

	blobs := blob.NewFileStore(cfg.SessionBlobPath)
	client := remote.NewHTTPClient(baseURL, cfg.RemoteTimeout, nil)
	st := shop.New(client, blobs, cfg.SessionBlobKey)
	client.SetTokenSource(st.Session.Token)

	if err := st.Dispatch(context.Background(), shop.RestoreSession{}); err != nil {
		obs.Logger.Warn("session_restore_failed", "error", err)
	} else if st.Session.IsAuthenticated() {
		obs.Logger.Info("session_restored", "user_id", st.Session.UserID())
	}

	st.Subscribe(func(snap shop.Snapshot) {
		obs.Logger.Info("state_committed",
			"version", snap.Version,
			"authenticated", snap.Authenticated,
			"available_products", len(snap.Available),
			"cart_items", snap.CartTotals.ItemCount,
			"orders", len(snap.Orders),
		)
	})

	app := httpapi.NewApp(cfg, st)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
}

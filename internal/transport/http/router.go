// Package httpapi assembles the portal's HTTP surface: middleware chain,
// public gateway-facing routes, and the authenticated API.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphandler "himstay/internal/application/handler"
	payhandler "himstay/internal/payment/handler"
	"himstay/internal/platform/middleware"
	"himstay/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Applications *apphandler.Handler
	Payments     *payhandler.Handler
	Tokens       middleware.TokenValidator
	Logger       *slog.Logger
	// Health reports backend liveness; nil checks are skipped.
	Health func() error
}

// NewRouter builds the full route tree. The gateway callback and the probes
// stay outside the auth chain; everything else requires a portal token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Device)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))

	r.Get("/healthz", handleHealth(d.Health))
	r.Handle("/metrics", promhttp.Handler())

	// HimKosh posts here with no portal credentials.
	r.Group(func(pub chi.Router) {
		d.Payments.RegisterPublic(pub)
	})

	r.Group(func(api chi.Router) {
		api.Use(middleware.RequireAuth(d.Tokens, d.Logger))
		d.Applications.Register(api)
		d.Payments.Register(api)
	})

	return r
}

func handleHealth(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable,
					map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

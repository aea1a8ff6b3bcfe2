// Package router sets up all HTTP routes and middleware chains for the
// card server. The whole surface can be mounted under a base path when the
// app is served behind a path-routing proxy.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cartecard/internal/handlers"
	"cartecard/internal/middleware"
)

// apiRateLimit caps requests per client IP on the /api surface. Card
// rendering and LINE pushes are the expensive paths behind it.
const (
	apiRateLimit  = 60
	apiRateWindow = time.Minute
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. basePath is "" or a normalized "/prefix".
func New(basePath string, wiz *handlers.Wizard, delivery *handlers.Delivery, proxy *handlers.ImageProxy) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	mount := func(r chi.Router) {
		r.Get("/health", healthHandler)

		r.Route("/api", func(r chi.Router) {
			limiter := middleware.NewRateLimiter(apiRateLimit, apiRateWindow)
			r.Use(limiter.Middleware)

			r.Get("/image-proxy", proxy.Fetch)
			r.Post("/send-image", delivery.SendImage)
			r.Post("/upload-image", delivery.UploadImage)

			r.Post("/session", wiz.Bootstrap)
			r.Route("/session/{id}", func(r chi.Router) {
				r.Get("/", wiz.Snapshot)
				r.Post("/start", wiz.Start)
				r.Post("/flip", wiz.Flip)
				r.Post("/confirm", wiz.Confirm)
				r.Post("/form", wiz.Form)
				r.Get("/card", wiz.Card)
				r.Post("/back", wiz.Back)
			})
		})
	}

	if basePath == "" {
		mount(r)
	} else {
		r.Route(basePath, mount)
	}

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// Package api exposes the service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/spinplate/internal/resilience"
	"github.com/sells-group/spinplate/internal/service"
)

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures the router.
type Option func(*Handler)

// WithCORSOrigins sets the allowed browser origins. Empty means none.
func WithCORSOrigins(origins []string) Option {
	return func(h *Handler) {
		h.corsOrigins = origins
	}
}

// WithPinger adds a dependency check to /health.
func WithPinger(p Pinger) Option {
	return func(h *Handler) {
		h.pinger = p
	}
}

// WithBreakers reports per-endpoint circuit state on /health.
func WithBreakers(b *resilience.EndpointBreakers) Option {
	return func(h *Handler) {
		h.breakers = b
	}
}

// WithDiscoverTimeout bounds a single /discover request.
func WithDiscoverTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.discoverTimeout = d
	}
}

// Handler serves the HTTP surface.
type Handler struct {
	svc             *service.Service
	pinger          Pinger
	breakers        *resilience.EndpointBreakers
	corsOrigins     []string
	discoverTimeout time.Duration
}

// NewHandler creates a Handler over svc.
func NewHandler(svc *service.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, discoverTimeout: 90 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns the chi router with all routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(h.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.health)
	r.Post("/discover", h.discover)

	r.Route("/candidates", func(r chi.Router) {
		r.Get("/", h.listCandidates)
		r.Get("/count", h.countCandidates)
	})
	r.Put("/facets", h.setFacets)
	r.Get("/facets", h.getFacets)
	r.Post("/pick", h.pick)

	r.Route("/visits", func(r chi.Router) {
		r.Get("/", h.listVisits)
		r.Post("/", h.addVisit)
		r.Delete("/{id}", h.removeVisit)
		r.Patch("/{id}", h.updateVisit)
	})

	r.Get("/location", h.getLocation)
	r.Put("/location", h.setLocation)

	return r
}

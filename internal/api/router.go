package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/deidaraiorek/gogol/internal/metrics"
)

// NewRouter builds the HTTP handler. The metrics endpoint is mounted only
// when m is not nil.
func NewRouter(h *Handler, m *metrics.Metrics, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(m))
	r.Use(middleware.Recoverer)
	r.Use(cors(defaultCORSConfig(allowedOrigins)))

	r.Get("/", h.Root)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/stats", h.Stats)
		r.Get("/search", h.Search)
		r.Post("/index/rebuild", h.Rebuild)
	})

	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	return r
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caneco-bridge/internal/catalog"
	"caneco-bridge/internal/config"
)

func NewRouter(cfg *config.Config, cat *catalog.Catalog, pool *pgxpool.Pool) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggingMiddleware)
	r.Use(RecoverMiddleware)

	r.Get("/health", HealthHandler(pool))
	r.Get("/version", VersionHandler())

	// Conversion endpoint used by CAD tooling
	r.Post("/convert", ConvertHandler(cfg, cat, pool))

	// External APIs
	r.Route("/api", func(api chi.Router) {
		api.With(APIKeyAuth(cfg)).Get("/runs", RunsHandler(pool))
	})

	return r
}

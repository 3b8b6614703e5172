package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"anglestudio/internal/http/handlers"
	"anglestudio/internal/middleware"
)

// NewRouter assembles the API routes with the shared middleware chain. The
// country lookup may be nil when no GeoIP database is configured.
func NewRouter(app *handlers.App, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.I18N(app.Config.DefaultLocale, lookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/presets", app.Presets)

	r.Route("/v1/designs", func(r chi.Router) {
		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).
			Post("/", app.DesignsCreate)
		r.Get("/{id}", app.DesignStatus)
		r.Get("/{id}/angles", app.DesignAngles)
		r.Get("/{id}/download", app.DesignDownload)
	})

	return r
}

package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/itchan-dev/newsletter/internal/middleware"
	"github.com/itchan-dev/newsletter/internal/setup"
)

// New creates and configures a new chi router with all the routes.
func New(deps *setup.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics)

	app := deps.Config.Public.Application
	if len(app.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   app.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"WWW-Authenticate"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(mw.SecurityHeadersWithCSP(app.SecureHeaders, mw.APIContentSecurityPolicy))

	// preflight without a configured origin list still gets 200 instead of 405
	r.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := deps.Handler

	r.Get("/health_check", h.HealthCheck)
	r.Get("/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/subscriptions", h.Subscribe)
	r.Get("/subscriptions/confirm", h.Confirm)
	r.Post("/newsletter", h.PublishNewsletter)

	return r
}

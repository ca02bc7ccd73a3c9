package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/igarcialujan/user-management-api/internal/config"
	"github.com/igarcialujan/user-management-api/internal/handler"
	"github.com/igarcialujan/user-management-api/internal/middleware"
	"github.com/igarcialujan/user-management-api/internal/observability"
)

const maxBodyBytes = 1 << 20

type Deps struct {
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	AuditHandler   *handler.AuditHandler
	HealthHandler  *handler.HealthHandler

	// Metrics and Gatherer are nil when metrics are disabled.
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
}

func New(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.Tracing)
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", deps.HealthHandler.Health)
	r.Get("/readyz", deps.HealthHandler.Ready)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := deps.AuthMiddleware.RequireAuth

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(middleware.MaxBodyBytes(maxBodyBytes))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/", deps.AuthHandler.Login)
			auth.Post("/refresh-token", deps.AuthHandler.Refresh)
			auth.With(requireAuth).Post("/logout", deps.AuthHandler.Logout)
		})

		api.Route("/users", func(users chi.Router) {
			users.Post("/", deps.UserHandler.Register)

			users.Route("/{id}", func(user chi.Router) {
				user.Use(requireAuth)
				user.Get("/", deps.UserHandler.Get)
				user.Patch("/", deps.UserHandler.Update)
				user.Delete("/", deps.UserHandler.Delete)
				user.Put("/favorites/{ref}", deps.UserHandler.AddFavorite)
				user.Delete("/favorites/{ref}", deps.UserHandler.RemoveFavorite)
				user.Get("/activity", deps.AuditHandler.Activity)
			})
		})
	})

	return r
}

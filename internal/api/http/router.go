package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spec-kit/marketplace-portal/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-portal/internal/auth"
	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Prefix           string
	Health           *handlers.HealthHandler
	Auth             *handlers.AuthHandler
	ProviderRequests *handlers.ProviderRequestsHandler
	ServicePages     *handlers.ServicePagesHandler
	Users            *handlers.UsersHandler
	AuthMiddleware   *auth.AuthMiddleware
	Gatherer         prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(observability.Handler(cfg.Gatherer)))
	}

	authed := cfg.AuthMiddleware.Handle
	admin := auth.RequireRole(domain.RoleAdmin)
	owner := auth.RequireRole(domain.RoleServiceOwner, domain.RoleAdmin)

	api := app.Group(cfg.Prefix)
	api.Post("/register", cfg.Auth.Register)
	api.Post("/login", cfg.Auth.Login)
	api.Post("/logout", authed, cfg.Auth.Logout)
	api.Get("/me", authed, cfg.Auth.Me)
	api.Post("/refresh", authed, cfg.Auth.Refresh)
	api.Get("/user", authed, cfg.Auth.Profile)

	api.Post("/provider-requests", authed, cfg.ProviderRequests.Submit)

	api.Get("/service-page", authed, cfg.ServicePages.Show)
	api.Post("/service-page", authed, owner, cfg.ServicePages.Save)
	api.Get("/service-page/users/:user/menus", authed, cfg.ServicePages.ListMenus)
	api.Post("/service-page/:user/menus", authed, owner, cfg.ServicePages.CreateMenu)

	api.Get("/admin/users", authed, admin, cfg.Users.List)
	api.Get("/admin/provider-requests", authed, admin, cfg.ProviderRequests.List)
	api.Post("/admin/provider-requests/:id/handle", authed, admin, cfg.ProviderRequests.Handle)
	api.Get("/admin/service-pages", authed, admin, cfg.ServicePages.AdminList)
}

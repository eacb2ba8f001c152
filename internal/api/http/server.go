package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-portal/internal/auth"
	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/observability"
	"github.com/spec-kit/marketplace-portal/internal/repository"
)

const bodyLimit = 20 << 20

// Repositories holds the sandbox's in-memory stores.
type Repositories struct {
	Users            repository.UserRepository
	ProviderRequests repository.ProviderRequestRepository
	ServicePages     repository.ServicePageRepository
	Menus            repository.MenuRepository
	Documents        repository.DocumentRepository
}

// NewRepositories returns empty in-memory stores.
func NewRepositories() Repositories {
	return Repositories{
		Users:            repository.NewUserRepository(),
		ProviderRequests: repository.NewProviderRequestRepository(),
		ServicePages:     repository.NewServicePageRepository(),
		Menus:            repository.NewMenuRepository(),
		Documents:        repository.NewDocumentRepository(),
	}
}

// ServerDependencies configures NewServer. Nil Registry disables /metrics.
type ServerDependencies struct {
	Config       config.Config
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Repositories *Repositories
	HealthDeps   map[string]handlers.Pinger
}

// Server is the sandbox marketplace backend.
type Server struct {
	App   *fiber.App
	Auth  *auth.Service
	Repos Repositories
}

// NewServer builds the fiber app and seeds the administrator account when
// one is configured.
func NewServer(ctx context.Context, deps ServerDependencies) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	repos := NewRepositories()
	if deps.Repositories != nil {
		repos = *deps.Repositories
	}

	var metrics *observability.Metrics
	var gatherer prometheus.Gatherer
	if deps.Registry != nil {
		metrics = observability.NewMetrics(deps.Registry)
		gatherer = deps.Registry
	}

	authService := auth.NewService(deps.Config.Auth, repos.Users)
	if email := deps.Config.App.SeedAdminEmail; email != "" {
		admin, err := authService.EnsureAdmin(ctx, "Administrator", email, deps.Config.App.SeedAdminPassword)
		if err != nil {
			return nil, fmt.Errorf("seed admin: %w", err)
		}
		logger.Info("admin account ready", zap.Int64("user_id", admin.ID), zap.String("email", admin.Email))
	}

	app := fiber.New(fiber.Config{
		AppName:               deps.Config.App.Name,
		ErrorHandler:          ErrorHandler,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, deps.Config.App.RequestTimeout())

	RegisterRoutes(app, RouteConfig{
		Prefix:           deps.Config.App.RoutePrefix,
		Health:           handlers.NewHealthHandler(deps.Config.App.Name, deps.Config.App.Version, deps.HealthDeps),
		Auth:             handlers.NewAuthHandler(authService),
		ProviderRequests: handlers.NewProviderRequestsHandler(repos.ProviderRequests, repos.Users, repos.Documents, logger),
		ServicePages:     handlers.NewServicePagesHandler(repos.ServicePages, repos.Menus, repos.Documents),
		Users:            handlers.NewUsersHandler(repos.Users),
		AuthMiddleware:   auth.NewAuthMiddleware(authService.TokenManager(), repos.Users),
		Gatherer:         gatherer,
	})

	return &Server{App: app, Auth: authService, Repos: repos}, nil
}

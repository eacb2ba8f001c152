package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/config"
	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/observability"
	"github.com/spec-kit/marketplace-portal/internal/persistence"
	"github.com/spec-kit/marketplace-portal/internal/transport"
)

// Portal bundles the client workflows around one session and one dispatcher.
type Portal struct {
	API      *transport.Dispatcher
	Sessions *SessionManager
	Requests *ProviderRequestService
	Uploads  *UploadService
	Pages    *ServicePageService
	Users    *UserService
	Events   events.Dispatcher
}

// PortalDependencies encapsulates what NewPortal needs. Nil Doer uses a
// default HTTP client; nil Events gets an in-memory dispatcher.
type PortalDependencies struct {
	Config  config.Config
	Doer    transport.Doer
	Store   persistence.SessionStore
	Events  events.Dispatcher
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewPortal wires the dispatcher to the session manager's token and builds
// every workflow on top of it.
func NewPortal(deps PortalDependencies) *Portal {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Events
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}

	var sessions *SessionManager
	tokens := transport.TokenSourceFunc(func(ctx context.Context) string {
		if sessions == nil {
			return ""
		}
		return sessions.Token(ctx)
	})
	api := transport.NewDispatcher(transport.OptionsFromConfig(deps.Config.API), deps.Doer, tokens, logger, deps.Metrics)

	sessions = NewSessionManager(SessionDependencies{
		API:           api,
		Store:         deps.Store,
		Dispatcher:    dispatcher,
		Logger:        logger.Named("session"),
		RefreshWindow: deps.Config.API.RefreshWindow(),
	})

	return &Portal{
		API:      api,
		Sessions: sessions,
		Requests: NewProviderRequestService(api, dispatcher, logger.Named("provider_requests")),
		Uploads:  NewUploadService(api, dispatcher, logger.Named("uploads")),
		Pages:    NewServicePageService(api, dispatcher, logger.Named("service_page"), deps.Config.API.MenuConcurrency),
		Users:    NewUserService(api, dispatcher, logger.Named("users")),
		Events:   dispatcher,
	}
}

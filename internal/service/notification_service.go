package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/events"
)

// NotificationService logs state-change events for operators.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSessionChanged, n.handleSessionChanged)
	n.dispatcher.Subscribe(events.EventRequestDecided, n.handleRequestDecided)
	n.dispatcher.Subscribe(events.EventRequestSubmitted, n.handleRequestSubmitted)
	n.dispatcher.Subscribe(events.EventPageSaved, n.handlePageSaved)
	for _, t := range []events.EventType{
		events.EventRequestsReplaced,
		events.EventPageLoaded,
		events.EventMenusChanged,
		events.EventUsersLoaded,
		events.EventPagesLoaded,
	} {
		n.dispatcher.Subscribe(t, n.handleCollectionEvent)
	}
}

func (n *NotificationService) handleSessionChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionChangedPayload)
	if !ok {
		return nil
	}
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Bool("authenticated", payload.Authenticated),
		zap.String("reason", payload.Reason),
	}
	if payload.User != nil {
		fields = append(fields, zap.Int64("user_id", payload.User.ID), zap.String("role", string(payload.User.Role)))
	}
	n.logger.Info("SessionChanged", fields...)
	return nil
}

func (n *NotificationService) handleRequestDecided(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestDecidedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ProviderRequestDecided",
		zap.String("event_id", event.ID),
		zap.Int64("request_id", payload.RequestID),
		zap.String("status", string(payload.NewStatus)))
	return nil
}

func (n *NotificationService) handleRequestSubmitted(_ context.Context, event events.Event) error {
	n.logger.Info("ProviderRequestSubmitted", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handlePageSaved(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PagePayload)
	if !ok || payload.Page == nil {
		return nil
	}
	n.logger.Info("ServicePageSaved",
		zap.String("event_id", event.ID),
		zap.Int64("page_id", payload.Page.ID),
		zap.Int64("owner_id", payload.Page.UserID))
	return nil
}

func (n *NotificationService) handleCollectionEvent(_ context.Context, event events.Event) error {
	n.logger.Debug(string(event.Type), zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}

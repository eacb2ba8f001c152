package service

import (
	"context"
	"errors"

	"github.com/spec-kit/marketplace-portal/internal/events"
	"github.com/spec-kit/marketplace-portal/internal/transport"
)

// Requester issues backend calls. *transport.Dispatcher satisfies it.
type Requester interface {
	Do(ctx context.Context, req transport.Request, out any) error
}

var (
	// ErrNotAuthenticated is returned by session-bound calls made while anonymous.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoDocument is returned when a provider request is submitted without a file.
	ErrNoDocument = errors.New("Please select a file.")
	// ErrDecisionInFlight is returned when a decision for the same request is still outstanding.
	ErrDecisionInFlight = errors.New("a decision for this request is already in progress")
	// ErrUnknownDecision is returned for decisions other than approve or reject.
	ErrUnknownDecision = errors.New("unknown decision")
	// ErrEmptyMenuName is returned when a blank menu item name is added to a draft.
	ErrEmptyMenuName = errors.New("menu item name is required")
	// ErrDuplicateMenuName is returned when a draft already holds the name, ignoring case.
	ErrDuplicateMenuName = errors.New("menu item already exists")
)

// publishEvent hands event to dispatcher, which stamps ID and Timestamp.
// A nil dispatcher drops it.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	_ = dispatcher.Publish(ctx, event)
}

// messageOf returns the user-facing message for a normalized error.
func messageOf(err error) string {
	if err == nil {
		return ""
	}
	return transport.Normalize(err).Message
}

package events

import (
	"time"

	"github.com/spec-kit/marketplace-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionChanged   EventType = "session_changed"
	EventRequestsReplaced EventType = "requests_replaced"
	EventRequestDecided   EventType = "request_decided"
	EventRequestSubmitted EventType = "request_submitted"
	EventPageLoaded       EventType = "page_loaded"
	EventPageSaved        EventType = "page_saved"
	EventMenusChanged     EventType = "menus_changed"
	EventUsersLoaded      EventType = "users_loaded"
	EventPagesLoaded      EventType = "pages_loaded"
)

// Event is a state-change notification for the presentation layer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionChangedPayload payload.
type SessionChangedPayload struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
	Reason        string       `json:"reason"`
}

// RequestsReplacedPayload payload.
type RequestsReplacedPayload struct {
	Count   int `json:"count"`
	Pending int `json:"pending"`
}

// RequestDecidedPayload payload.
type RequestDecidedPayload struct {
	RequestID int64                        `json:"request_id"`
	NewStatus domain.ProviderRequestStatus `json:"new_status"`
}

// RequestSubmittedPayload payload.
type RequestSubmittedPayload struct {
	FileName string `json:"file_name"`
	Message  string `json:"message"`
}

// PagePayload payload for page_loaded and page_saved.
type PagePayload struct {
	Page *domain.ServicePage `json:"page,omitempty"`
}

// MenusChangedPayload payload.
type MenusChangedPayload struct {
	OwnerID int64 `json:"owner_id"`
	Count   int   `json:"count"`
}

// CollectionPayload payload for admin collection reads.
type CollectionPayload struct {
	Count int `json:"count"`
}

package domain

import "time"

// ProviderRequestStatus enumerates lifecycle states for provider requests.
type ProviderRequestStatus string

const (
	ProviderRequestPending  ProviderRequestStatus = "pending"
	ProviderRequestApproved ProviderRequestStatus = "approved"
	ProviderRequestRejected ProviderRequestStatus = "rejected"
)

// Terminal reports whether no further transition is permitted from the status.
func (s ProviderRequestStatus) Terminal() bool {
	return s == ProviderRequestApproved || s == ProviderRequestRejected
}

// ProviderRequest is an end user's application for provider status.
type ProviderRequest struct {
	ID        int64                 `json:"id"`
	UserID    int64                 `json:"user_id"`
	UserEmail string                `json:"user_email,omitempty"`
	Document  string                `json:"document"`
	Status    ProviderRequestStatus `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

package dto

import "github.com/spec-kit/marketplace-portal/internal/domain"

// HandleProviderRequest sets a provider request's terminal status.
type HandleProviderRequest struct {
	Status domain.ProviderRequestStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// ServicePageForm is the text part of the page multipart form.
type ServicePageForm struct {
	Content string `json:"content" form:"content" validate:"required"`
}

// MenuRequest creates one menu item.
type MenuRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// DataResponse wraps a resource.
type DataResponse struct {
	Data any `json:"data"`
}

// MessageResponse carries a status message and optionally the affected resource.
type MessageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

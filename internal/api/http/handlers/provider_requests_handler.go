package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-portal/internal/api/dto"
	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/repository"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// ProviderRequestsHandler manages provider applications.
type ProviderRequestsHandler struct {
	requests repository.ProviderRequestRepository
	users    repository.UserRepository
	docs     repository.DocumentRepository
	logger   *zap.Logger
}

// NewProviderRequestsHandler constructs handler.
func NewProviderRequestsHandler(requests repository.ProviderRequestRepository, users repository.UserRepository, docs repository.DocumentRepository, logger *zap.Logger) *ProviderRequestsHandler {
	return &ProviderRequestsHandler{requests: requests, users: users, docs: docs, logger: logger}
}

// Submit handles POST /provider-requests.
func (h *ProviderRequestsHandler) Submit(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	header, err := c.FormFile("document")
	if err != nil || header.Size == 0 {
		return apperrors.NewValidationError("The document field is required.",
			apperrors.FieldError{Field: "document", Messages: []string{"The document field is required."}})
	}
	data, err := readPart(header)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	doc := &repository.StoredDocument{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}
	if err := h.docs.Put(c.UserContext(), "provider-requests", doc); err != nil {
		return apperrors.NewInternalError(err)
	}

	request := &domain.ProviderRequest{
		UserID:    principal.User.ID,
		UserEmail: principal.User.Email,
		Document:  doc.StorageKey,
		Status:    domain.ProviderRequestPending,
	}
	if err := h.requests.Create(c.UserContext(), request); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.logger.Info("provider request submitted",
		zap.Int64("request_id", request.ID),
		zap.Int64("user_id", request.UserID),
		zap.Int64("size_bytes", doc.SizeBytes))

	return c.Status(http.StatusCreated).JSON(dto.MessageResponse{
		Message: "Provider request submitted successfully.",
		Data:    request,
	})
}

// List handles GET /admin/provider-requests.
func (h *ProviderRequestsHandler) List(c *fiber.Ctx) error {
	list, err := h.requests.List(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(dto.DataResponse{Data: list})
}

// Handle handles POST /admin/provider-requests/:id/handle. Repeating the
// current terminal status succeeds; switching to the other one conflicts.
func (h *ProviderRequestsHandler) Handle(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewNotFound("Provider request", nil)
	}

	var req dto.HandleProviderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	current, err := h.requests.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Provider request", map[string]any{"id": id})
		}
		return apperrors.NewInternalError(err)
	}

	if current.Status == req.Status {
		return c.JSON(dto.MessageResponse{Message: "Provider request already " + string(req.Status) + ".", Data: current})
	}
	if current.Status.Terminal() {
		return apperrors.NewConflict("Provider request has already been handled.", map[string]any{"status": current.Status})
	}

	updated, err := h.requests.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if updated.Status == domain.ProviderRequestApproved {
		if err := h.promote(c, updated.UserID); err != nil {
			return err
		}
	}
	return c.JSON(dto.MessageResponse{Message: "Provider request " + string(updated.Status) + ".", Data: updated})
}

// promote makes a plain user a service owner. Other roles are left as they are.
func (h *ProviderRequestsHandler) promote(c *fiber.Ctx, userID int64) error {
	account, err := h.users.GetByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperrors.NewInternalError(err)
	}
	if account.Role != domain.RoleUser {
		return nil
	}
	if err := h.users.UpdateRole(c.UserContext(), userID, domain.RoleServiceOwner); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

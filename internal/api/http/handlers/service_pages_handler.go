package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-portal/internal/api/dto"
	"github.com/spec-kit/marketplace-portal/internal/auth"
	"github.com/spec-kit/marketplace-portal/internal/domain"
	"github.com/spec-kit/marketplace-portal/internal/repository"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

// ServicePagesHandler manages provider pages and their menus.
type ServicePagesHandler struct {
	pages repository.ServicePageRepository
	menus repository.MenuRepository
	docs  repository.DocumentRepository
}

// NewServicePagesHandler constructs handler.
func NewServicePagesHandler(pages repository.ServicePageRepository, menus repository.MenuRepository, docs repository.DocumentRepository) *ServicePagesHandler {
	return &ServicePagesHandler{pages: pages, menus: menus, docs: docs}
}

// Show handles GET /service-page.
func (h *ServicePagesHandler) Show(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	page, err := h.pages.GetByUser(c.UserContext(), principal.User.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("Service page", nil)
		}
		return apperrors.NewInternalError(err)
	}
	if err := h.attachMenu(c, page); err != nil {
		return err
	}
	return c.JSON(page)
}

// Save handles POST /service-page. It creates the caller's page or replaces
// it in place; logo and banner parts are optional and omitted ones are kept.
func (h *ServicePagesHandler) Save(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}

	form := dto.ServicePageForm{Content: c.FormValue("content")}
	if err := dto.Validate(&form); err != nil {
		return err
	}

	page := &domain.ServicePage{UserID: principal.User.ID, Content: form.Content}
	if page.Logo, err = h.storeOptional(c, "logo", "service-pages/logos"); err != nil {
		return err
	}
	if page.Banner, err = h.storeOptional(c, "banner", "service-pages/banners"); err != nil {
		return err
	}

	status := http.StatusOK
	if _, err := h.pages.GetByUser(c.UserContext(), page.UserID); errors.Is(err, repository.ErrNotFound) {
		status = http.StatusCreated
	}
	if err := h.pages.Upsert(c.UserContext(), page); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := h.attachMenu(c, page); err != nil {
		return err
	}
	return c.Status(status).JSON(dto.DataResponse{Data: page})
}

// CreateMenu handles POST /service-page/:user/menus.
func (h *ServicePagesHandler) CreateMenu(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ownerID, err := strconv.ParseInt(c.Params("user"), 10, 64)
	if err != nil {
		return apperrors.NewNotFound("User", nil)
	}
	if !auth.CanActFor(principal, ownerID) {
		return apperrors.NewForbidden("This action is unauthorized.")
	}

	var req dto.MenuRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	item := &domain.MenuItem{UserID: ownerID, Name: req.Name}
	if page, err := h.pages.GetByUser(c.UserContext(), ownerID); err == nil {
		item.ServicePageID = page.ID
	}
	if err := h.menus.Create(c.UserContext(), item); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(dto.DataResponse{Data: item})
}

// ListMenus handles GET /service-page/users/:user/menus.
func (h *ServicePagesHandler) ListMenus(c *fiber.Ctx) error {
	ownerID, err := strconv.ParseInt(c.Params("user"), 10, 64)
	if err != nil {
		return apperrors.NewNotFound("User", nil)
	}
	items, err := h.menus.ListByUser(c.UserContext(), ownerID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(items)
}

// AdminList handles GET /admin/service-pages.
func (h *ServicePagesHandler) AdminList(c *fiber.Ctx) error {
	pages, err := h.pages.List(c.UserContext())
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	for i := range pages {
		if err := h.attachMenu(c, &pages[i]); err != nil {
			return err
		}
	}
	return c.JSON(dto.DataResponse{Data: pages})
}

func (h *ServicePagesHandler) attachMenu(c *fiber.Ctx, page *domain.ServicePage) error {
	items, err := h.menus.ListByUser(c.UserContext(), page.UserID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	page.Menu = items
	return nil
}

// storeOptional saves the named file part if present and returns its storage key.
// A missing part yields "".
func (h *ServicePagesHandler) storeOptional(c *fiber.Ctx, field, folder string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil
	}
	data, err := readPart(header)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	doc := &repository.StoredDocument{
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}
	if err := h.docs.Put(c.UserContext(), folder, doc); err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return doc.StorageKey, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

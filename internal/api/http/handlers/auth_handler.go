package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-portal/internal/api/dto"
	"github.com/spec-kit/marketplace-portal/internal/auth"
	apperrors "github.com/spec-kit/marketplace-portal/pkg/util/errorutil"
)

const tokenType = "bearer"

// AuthHandler exposes account and token endpoints.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Register(c.UserContext(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		User:      user,
		Token:     token,
		TokenType: tokenType,
		ExpiresIn: expiresIn(exp),
	})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		User:      user,
		Token:     token,
		TokenType: tokenType,
		ExpiresIn: expiresIn(exp),
	})
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), principal); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Successfully logged out"})
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.UserResponse{User: principal.User})
}

// Profile handles GET /user.
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(principal.User)
}

// Refresh handles POST /refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	token, exp, err := h.auth.Refresh(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenResponse{Token: token, TokenType: tokenType, ExpiresIn: expiresIn(exp)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("Unauthenticated.")
	}
	return principal, nil
}

func expiresIn(exp time.Time) int64 {
	secs := int64(time.Until(exp).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

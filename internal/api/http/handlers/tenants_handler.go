package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TenantsHandler exposes auth endpoints for customer accounts.
type TenantsHandler struct {
	auth *service.AuthService
}

// NewTenantsHandler constructs handler.
func NewTenantsHandler(authService *service.AuthService) *TenantsHandler {
	return &TenantsHandler{auth: authService}
}

// Register handles POST /auth/tenants/register.
func (h *TenantsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterTenantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	tenant, err := h.auth.RegisterTenant(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"id":    tenant.ID,
			"name":  tenant.Name,
			"email": tenant.Email,
		},
	})
}

// Login handles POST /auth/tenants/login.
func (h *TenantsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	tenant, result, err := h.auth.LoginTenant(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			Subject:   string(domain.SubjectTypeTenant),
			Name:      tenant.Name,
		},
	})
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketsHandler manages tenant-facing ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Tenant == nil {
		return apperrors.NewUnauthorized("tenant required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssetID:     req.AssetID,
	}
	ticket, err := h.service.Create(c.Context(), principal.Tenant, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Tenant == nil {
		return apperrors.NewUnauthorized("tenant required")
	}
	filter := parseTicketQuery(c)
	tickets, err := h.service.ListForTenant(c.Context(), principal.Tenant.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Tenant == nil {
		return apperrors.NewUnauthorized("tenant required")
	}
	ticket, err := h.service.GetForTenant(c.Context(), principal.Tenant.ID, c.Params("id"))
	if err != nil {
		return err
	}
	limit, offset := parsePagination(c)
	comments, err := h.service.ListComments(c.Context(), ticket.ID, limit, offset)
	if err != nil {
		return err
	}
	history, err := h.service.ListHistory(c.Context(), ticket.ID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, comments, history)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Tenant == nil {
		return apperrors.NewUnauthorized("tenant required")
	}
	ticket, err := h.service.GetForTenant(c.Context(), principal.Tenant.ID, c.Params("id"))
	if err != nil {
		return err
	}
	limit, offset := parsePagination(c)
	comments, err := h.service.ListComments(c.Context(), ticket.ID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Tenant == nil {
		return apperrors.NewUnauthorized("tenant required")
	}
	ticket, err := h.service.GetForTenant(c.Context(), principal.Tenant.ID, c.Params("id"))
	if err != nil {
		return err
	}
	limit, offset := parsePagination(c)
	entries, err := h.service.ListHistory(c.Context(), ticket.ID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, historyResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Tenant == nil {
		return apperrors.NewUnauthorized("tenant required")
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if _, err := h.service.GetForTenant(c.Context(), principal.Tenant.ID, c.Params("id")); err != nil {
		return err
	}
	comment, err := h.service.AddComment(c.Context(), service.TenantActor(principal.Tenant), c.Params("id"), req.Body, false)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// NotificationsHandler serves the durable notification inbox. Reads are
// scoped to the caller's recipient keys so the websocket channel and the
// inbox always agree on what a caller may see.
type NotificationsHandler struct {
	notifications repository.NotificationRepository
	cfg           config.NotificationConfig
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications repository.NotificationRepository, cfg config.NotificationConfig) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, cfg: cfg}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	keys, err := recipientKeys(c)
	if err != nil {
		return err
	}
	limit := h.cfg.RecentLimit
	items, err := h.notifications.ListRecent(c.Context(), keys, limit)
	if err != nil {
		return apperrors.MapError(err)
	}
	out := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		out = append(out, notificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	keys, err := recipientKeys(c)
	if err != nil {
		return err
	}
	if err := h.notifications.MarkRead(c.Context(), c.Params("id"), keys); err != nil {
		return mapNotificationError(err, c.Params("id"))
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

// Delete DELETE /notifications/:id.
func (h *NotificationsHandler) Delete(c *fiber.Ctx) error {
	keys, err := recipientKeys(c)
	if err != nil {
		return err
	}
	if err := h.notifications.Delete(c.Context(), c.Params("id"), keys); err != nil {
		return mapNotificationError(err, c.Params("id"))
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

func recipientKeys(c *fiber.Ctx) ([]string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	identity := realtime.Identity{
		SubjectType: principal.SubjectType,
		SubjectID:   principal.ID(),
		Name:        principal.Name(),
	}
	if principal.Staff != nil {
		identity.Role = principal.Staff.Role
	}
	keys := identity.NotificationKeys()
	if len(keys) == 0 {
		return nil, apperrors.NewForbidden("no notification channel")
	}
	return keys, nil
}

func mapNotificationError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	return apperrors.MapError(err)
}

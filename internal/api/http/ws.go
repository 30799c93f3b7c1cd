package http

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const identityKey = "ws_identity"

// clientFrame is the only inbound message shape. Clients manage their room
// subscriptions; everything else flows server to client.
type clientFrame struct {
	Action    string   `json:"action"`
	TicketID  string   `json:"ticket_id,omitempty"`
	TicketIDs []string `json:"ticket_ids,omitempty"`
}

// WSHandler upgrades authenticated clients onto the live channel.
type WSHandler struct {
	registry *realtime.Registry
	tickets  *service.TicketService
	auth     *auth.AuthMiddleware
	logger   *zap.Logger
}

// NewWSHandler constructs the handler.
func NewWSHandler(registry *realtime.Registry, tickets *service.TicketService, authMiddleware *auth.AuthMiddleware, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{registry: registry, tickets: tickets, auth: authMiddleware, logger: logger}
}

// Upgrade authenticates the handshake before the protocol switch. The
// credential arrives as a query parameter because browsers cannot set
// headers on websocket dials. A bad or revoked token kills the handshake
// here; nothing is ever registered for it.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return apperrors.NewHandshakeRejected("websocket upgrade required")
	}
	token := c.Query("token")
	if token == "" {
		return apperrors.NewHandshakeRejected("token required")
	}
	principal, err := h.auth.Resolve(c, token)
	if err != nil {
		return apperrors.NewHandshakeRejected("invalid credential")
	}
	identity := realtime.Identity{
		SubjectType: principal.SubjectType,
		SubjectID:   principal.ID(),
		Name:        principal.Name(),
		TokenID:     principal.TokenID,
	}
	if principal.Staff != nil {
		identity.Role = principal.Staff.Role
	}
	c.Locals(identityKey, identity)
	return c.Next()
}

// Serve runs the connection lifecycle: register, pump inbound frames,
// unregister. Join and leave are idempotent so a client replaying its
// subscriptions after a reconnect is harmless.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(ws *websocket.Conn) {
		identity, ok := ws.Locals(identityKey).(realtime.Identity)
		if !ok {
			_ = ws.Close()
			return
		}
		conn := h.registry.Register(ws, identity)
		defer h.registry.Unregister(conn)

		for {
			var frame clientFrame
			if err := ws.ReadJSON(&frame); err != nil {
				return
			}
			h.handleFrame(conn, identity, frame)
		}
	})
}

func (h *WSHandler) handleFrame(conn *realtime.Connection, identity realtime.Identity, frame clientFrame) {
	switch frame.Action {
	case "subscribe":
		h.subscribe(conn, identity, frame.TicketID)
	case "unsubscribe":
		if frame.TicketID != "" {
			h.registry.Leave(conn, realtime.TicketRoom(frame.TicketID))
		}
	case "resubscribe":
		for _, ticketID := range frame.TicketIDs {
			h.subscribe(conn, identity, ticketID)
		}
	default:
		h.logger.Debug("ignoring unknown live-channel action",
			zap.String("action", frame.Action),
			zap.String("conn_id", conn.ID))
	}
}

// subscribe joins the ticket room after an ownership check: tenants may
// only watch their own tickets, staff may watch any.
func (h *WSHandler) subscribe(conn *realtime.Connection, identity realtime.Identity, ticketID string) {
	if ticketID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var err error
	if identity.SubjectType == domain.SubjectTypeTenant {
		_, err = h.tickets.GetForTenant(ctx, identity.SubjectID, ticketID)
	} else {
		_, err = h.tickets.Get(ctx, ticketID)
	}
	if err != nil {
		_ = conn.Enqueue(realtime.LiveMessage{
			Kind:      "subscribe_denied",
			TicketID:  ticketID,
			Timestamp: time.Now(),
		})
		return
	}
	h.registry.Join(conn, realtime.TicketRoom(ticketID))
	_ = conn.Enqueue(realtime.LiveMessage{
		Kind:      "subscribed",
		TicketID:  ticketID,
		Timestamp: time.Now(),
	})
}

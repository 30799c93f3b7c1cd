package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tenants        *handlers.TenantsHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Notifications  *handlers.NotificationsHandler
	Dashboard      *handlers.DashboardHandler
	Assets         *handlers.AssetsHandler
	WS             *WSHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/tenants/register", cfg.Tenants.Register)
	authGroup.Post("/tenants/login", cfg.Tenants.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Staff.Logout)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireTenant())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle,
		auth.RequireStaffRole(domain.StaffRoleAgent, domain.StaffRoleAdmin))
	staff.Get("/tickets", cfg.StaffTickets.ListTickets)
	staff.Get("/tickets/:id", cfg.StaffTickets.GetTicket)
	staff.Patch("/tickets/:id/status", cfg.StaffTickets.ChangeStatus)
	staff.Patch("/tickets/:id/priority", cfg.StaffTickets.ChangePriority)
	staff.Post("/tickets/:id/assign", cfg.StaffTickets.Assign)
	staff.Post("/tickets/:id/resolve", cfg.StaffTickets.Resolve)
	staff.Post("/tickets/:id/comments", cfg.StaffTickets.AddComment)
	staff.Delete("/tickets/:id", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.StaffTickets.DeleteTicket)
	staff.Get("/dashboard/stats", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Dashboard.Stats)
	staff.Get("/assets", cfg.Assets.List)
	staff.Post("/assets", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Assets.Create)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	notifications.Get("/", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/:id", cfg.Notifications.Delete)

	app.Get("/ws", cfg.WS.Upgrade, cfg.WS.Serve())
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-client/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-client/internal/auth"
	"github.com/spec-kit/helpdesk-client/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	LocalAuth      *handlers.LocalAuthHandler
	State          *handlers.StateHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Attachments    *handlers.AttachmentsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Session        auth.SessionView
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/local/token", cfg.LocalAuth.IssueToken)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	state := protected.Group("/state")
	state.Get("/session", cfg.State.Session)
	state.Get("/events", cfg.State.Events)
	state.Get("/metrics", cfg.State.Metrics)

	signedIn := protected.Group("", auth.RequireSignedIn(cfg.Session))
	signedIn.Get("/state/tickets", cfg.State.Tickets)
	signedIn.Get("/state/stats", cfg.State.Stats)
	signedIn.Get("/state/filters", cfg.State.GetFilters)
	signedIn.Put("/state/filters", cfg.State.PutFilters)
	signedIn.Get("/state/notifications", cfg.State.Notifications)

	privileged := auth.RequireRole(cfg.Session, domain.RoleIT, domain.RoleAdmin)
	actions := signedIn.Group("/actions")
	actions.Post("/tickets/reload", cfg.Tickets.Reload)
	actions.Post("/tickets/:id/status", privileged, cfg.Tickets.UpdateStatus)
	actions.Post("/tickets/:id/advance", privileged, cfg.Tickets.Advance)
	actions.Post("/tickets/:id/reply", cfg.Tickets.Reply)
	actions.Post("/tickets/:id/delete", cfg.Tickets.Delete)
	actions.Post("/tickets/:id/approve", cfg.Tickets.Approve)
	actions.Post("/tickets/:id/toggle", cfg.Tickets.Toggle)
	actions.Post("/notifications/read-all", cfg.Notifications.ReadAll)
	actions.Post("/notifications/:id/open", cfg.Notifications.Open)
	actions.Post("/tickets/:id/attachments/:attachmentId/open", cfg.Attachments.OpenImage)
	actions.Post("/lightbox/close", cfg.Attachments.CloseLightbox)

	signedIn.Get("/state/lightbox", cfg.Attachments.Lightbox)
	signedIn.Get("/attachments/:ticketId/:attachmentId", cfg.Attachments.Get)

	if cfg.Admin == nil {
		return
	}
	adminOnly := auth.RequireRole(cfg.Session, domain.RoleAdmin)
	adminState := signedIn.Group("/state/admin", adminOnly)
	adminState.Get("/members", cfg.Admin.Members)
	adminState.Get("/management", cfg.Admin.Management)
	adminState.Get("/audit-logs", cfg.Admin.AuditLogs)

	adminActions := actions.Group("/admin", adminOnly)
	adminActions.Post("/reload", cfg.Admin.Reload)
	adminActions.Post("/members/:id/role", cfg.Admin.UpdateRole)
	adminActions.Post("/members/:id/delete", cfg.Admin.DeleteMember)
	adminActions.Post("/categories", cfg.Admin.CreateCategory)
	adminActions.Post("/categories/:id/rename", cfg.Admin.RenameCategory)
	adminActions.Post("/categories/:id/delete", cfg.Admin.DeleteCategory)
	adminActions.Post("/groups", cfg.Admin.CreateGroup)
	adminActions.Post("/groups/:id/members/:memberId/add", cfg.Admin.AddGroupMember)
	adminActions.Post("/groups/:id/members/:memberId/remove", cfg.Admin.RemoveGroupMember)
	adminActions.Post("/groups/:id/supervisor/:memberId", cfg.Admin.SetSupervisor)
	adminActions.Post("/audit-logs/query", cfg.Admin.QueryAuditLogs)
	adminActions.Post("/audit-logs/export", cfg.Admin.ExportAuditLogs)
	adminActions.Post("/audit-logs/purge", cfg.Admin.PurgeAuditLogs)
}

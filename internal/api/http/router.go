package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opsdesk/sla-service/internal/api/http/handlers"
	"github.com/opsdesk/sla-service/internal/auth"
	"github.com/opsdesk/sla-service/internal/domain"
	"github.com/opsdesk/sla-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	SLA            *handlers.SLAHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	app.Post("/auth/token", cfg.Auth.Token)

	slaGroup := app.Group("/sla", cfg.AuthMiddleware.Handle)
	viewer := auth.RequireRole(domain.ClientRoleViewer)
	operator := auth.RequireRole(domain.ClientRoleOperator)

	slaGroup.Get("/priority-matrix", viewer, cfg.SLA.PriorityMatrix)
	slaGroup.Post("/deadlines", viewer, cfg.SLA.PreviewDeadlines)

	instances := slaGroup.Group("/instances")
	instances.Post("", operator, cfg.SLA.StartTracking)
	instances.Get("/:ticketID", viewer, cfg.SLA.GetStatus)
	instances.Get("/:ticketID/escalation", viewer, cfg.SLA.GetEscalation)
	instances.Get("/:ticketID/history", viewer, cfg.SLA.ListHistory)
	instances.Post("/:ticketID/pause", operator, cfg.SLA.Pause)
	instances.Post("/:ticketID/resume", operator, cfg.SLA.Resume)
	instances.Post("/:ticketID/first-response", operator, cfg.SLA.RecordFirstResponse)
	instances.Post("/:ticketID/resolve", operator, cfg.SLA.RecordResolution)
	instances.Post("/:ticketID/awaiting-customer", operator, cfg.SLA.MarkAwaitingCustomer)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-distribution/internal/api/http/handlers"
	"github.com/spec-kit/task-distribution/internal/auth"
	"github.com/spec-kit/task-distribution/internal/domain"
	"github.com/spec-kit/task-distribution/internal/service"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Accounts *handlers.AccountsHandler
	Tasks    *handlers.TasksHandler
	Guard    *auth.Guard
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	adminOnly := cfg.Guard.Authorize(domain.RoleAdmin)
	agentOnly := cfg.Guard.Authorize(domain.RoleAgent)

	for prefix, guard := range map[string]fiber.Handler{"/agents": adminOnly, "/subagents": agentOnly} {
		accounts := app.Group(prefix, guard)
		accounts.Get("/", cfg.Accounts.List)
		accounts.Post("/", cfg.Accounts.Create)
		accounts.Get("/:id", cfg.Accounts.Get)
		accounts.Put("/:id", cfg.Accounts.Update)
		accounts.Delete("/:id", cfg.Accounts.Delete)
	}

	tasks := app.Group("/tasks")
	tasks.Post("/upload", adminOnly, cfg.Tasks.Upload)
	tasks.Post("/upload-subagent", agentOnly, cfg.Tasks.Upload)

	tasks.Get("/", cfg.Guard.Authorize(), cfg.Tasks.List(service.ViewScoped))
	tasks.Get("/admin", adminOnly, cfg.Tasks.List(service.ViewAdminCreated))
	tasks.Get("/agent", agentOnly, cfg.Tasks.List(service.ViewAgentAssigned))
	tasks.Get("/agent-created", agentOnly, cfg.Tasks.List(service.ViewAgentCreated))
	tasks.Get("/subagent", cfg.Guard.Authorize(domain.RoleSubAgent), cfg.Tasks.List(service.ViewSubAgentAssigned))

	tasks.Patch("/:id/status", cfg.Guard.Authorize(domain.RoleAdmin, domain.RoleAgent, domain.RoleSubAgent), cfg.Tasks.UpdateStatus)
	tasks.Delete("/:id", cfg.Guard.Authorize(domain.RoleAdmin, domain.RoleAgent), cfg.Tasks.Delete)
}

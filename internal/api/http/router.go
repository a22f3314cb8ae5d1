package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ullaszensar/mealtrackpro/internal/api/http/handlers"
	"github.com/ullaszensar/mealtrackpro/internal/auth"
	"github.com/ullaszensar/mealtrackpro/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Submissions    *handlers.SubmissionsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// NewApp builds a Fiber app with the error envelope and global middlewares installed.
func NewApp(name string, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      name,
		ErrorHandler: ErrorHandler(logger, metrics),
	})
	RegisterMiddlewares(app, logger, metrics, timeout)
	return app
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Post("/login", cfg.Auth.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protected.Post("/logout", cfg.Auth.Logout)
	protected.Get("/me", cfg.Auth.Me)

	admin := auth.RequireAdmin()

	subs := protected.Group("/meal-submissions")
	subs.Post("", cfg.Submissions.Create)
	subs.Get("", cfg.Submissions.List)
	subs.Get("/window", cfg.Submissions.Window)
	subs.Get("/date/:date", cfg.Submissions.ListByDate)
	subs.Get("/:id", cfg.Submissions.Get)
	subs.Get("/:id/history", admin, cfg.Submissions.History)
	subs.Patch("/:id/status", admin, cfg.Submissions.UpdateStatus)

	reports := protected.Group("/reports", admin)
	reports.Get("/range", cfg.Reports.Range)
	reports.Get("/summary", cfg.Reports.Summary)

	users := protected.Group("/users", admin)
	users.Get("", cfg.Users.List)
	users.Post("", cfg.Users.Create)
}

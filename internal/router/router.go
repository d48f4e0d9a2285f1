// Package router wires the planner's HTTP handlers and middleware into a
// fiber app.
package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/soltixdb/clusterplan/internal/config"
	"github.com/soltixdb/clusterplan/internal/handlers"
	"github.com/soltixdb/clusterplan/internal/logging"
	"github.com/soltixdb/clusterplan/internal/metrics"
	"github.com/soltixdb/clusterplan/internal/middleware"
	"github.com/soltixdb/clusterplan/internal/services"
	"github.com/soltixdb/clusterplan/internal/utils"
)

// Setup configures all routes and middlewares. m may be nil.
func Setup(app *fiber.App, logger *logging.Logger, planService *services.PlanService,
	m *metrics.Metrics, cfg config.Config, version string,
) *handlers.Handler {
	h := handlers.New(logger, planService, version)

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))

	logCfg := logging.DefaultMiddlewareConfig()
	if m != nil && cfg.Metrics.Enabled {
		app.Use(m.FiberMiddleware())
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(m.Handler()))
		logCfg.SkipPaths = append(logCfg.SkipPaths, cfg.Metrics.Path)
	}
	app.Use(logging.FiberMiddleware(logger, logCfg))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	v1 := app.Group("/v1", middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled))

	v1.Post("/plans", h.ComputePlans)
	v1.Post("/plans/preview", h.PreviewPlans)
	v1.Get("/plans", h.ListPlans)
	v1.Get("/plans/:cluster", h.GetPlan)
	v1.Get("/plans/:cluster/history", h.GetPlanHistory)
	v1.Delete("/plans/:cluster", h.DeletePlan)

	v1.Post("/capacity/validate", h.ValidateCapacity)

	v1.Get("/hosts", h.ListHosts)
	v1.Put("/hosts/:host/retire", h.RetireHost)
	v1.Delete("/hosts/:host/retire", h.UnretireHost)

	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, planService *services.PlanService,
	m *metrics.Metrics, cfg config.Config, version string,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "clusterplan",
		DisableStartupMessage: true,
		BodyLimit:             utils.MaxDeclarationBytes,
		ReadTimeout:           utils.DefaultRequestTimeout,
		WriteTimeout:          utils.DefaultRequestTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, planService, m, cfg, version)

	return app
}

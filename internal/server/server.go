// Package server exposes the analysis pipeline over HTTP: submit an
// analysis, inspect its compiled report, approve it, deploy it.
package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/planlytics/planforge/internal/compile"
	"github.com/planlytics/planforge/internal/ctxlog"
	"github.com/planlytics/planforge/internal/gateway"
	"github.com/planlytics/planforge/internal/review"
)

// Options wires the server's collaborators. Gateway may be nil, which
// disables the deploy endpoint.
type Options struct {
	Store    review.Store
	Gateway  gateway.Gateway
	OrgID    int64
	PlanYear int
	Logger   *slog.Logger
}

// Server is the HTTP surface over the compile/review/deploy pipeline.
type Server struct {
	app     *fiber.App
	store   review.Store
	gw      gateway.Gateway
	compile compile.Options
	logger  *slog.Logger
}

// New builds the Fiber application and registers all routes.
func New(opts Options) *Server {
	s := &Server{
		store:   opts.Store,
		gw:      opts.Gateway,
		compile: compile.Options{OrgID: opts.OrgID, PlanYear: opts.PlanYear},
		logger:  opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:   "PlanForge API",
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(func(c *fiber.Ctx) error {
		c.SetUserContext(ctxlog.WithLogger(c.UserContext(), s.logger))
		return c.Next()
	})

	app.Get("/health", s.health)

	api := app.Group("/api")
	api.Post("/analyses", s.submitAnalysis)
	api.Get("/analyses", s.listAnalyses)
	api.Get("/analyses/:id", s.getAnalysis)
	api.Get("/analyses/:id/report", s.getReport)
	api.Get("/analyses/:id/tables", s.getTables)
	api.Post("/analyses/:id/approve", s.approveAnalysis)
	api.Post("/analyses/:id/reject", s.rejectAnalysis)
	api.Post("/analyses/:id/deploy", s.deployAnalysis)

	s.app = app
	return s
}

// App exposes the Fiber application for tests and custom listeners.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until the listener fails or the app is shut down.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

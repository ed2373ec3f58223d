package hosting

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"maestro/src/features/config"
	"maestro/src/features/metrics"
	"maestro/src/features/players"
	"maestro/src/features/status"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, playersService *players.Service, statusStore *status.Store) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "Maestro",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	playersHandler := players.NewHandler(playersService)

	players.RegisterRoutes(app, playersHandler)
	status.RegisterRoutes(app, statusStore)
	config.RegisterRoutes(app, cfg)
	metrics.RegisterRoutes(app)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

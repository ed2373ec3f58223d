package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the config routes with the Fiber app.
func RegisterRoutes(app *fiber.App, manager *Manager) {
	api := app.Group("/api/config")
	api.Get("/", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "application/json")
		return c.SendString(manager.GetJSON())
	})
}

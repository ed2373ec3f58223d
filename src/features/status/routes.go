package status

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes the snapshot store.
func RegisterRoutes(app *fiber.App, store *Store) {
	api := app.Group("/api/status")
	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(store.All())
	})
	api.Get("/:id", func(c *fiber.Ctx) error {
		snap, ok := store.Get(c.Params("id"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown player"})
		}
		return c.JSON(snap)
	})
}

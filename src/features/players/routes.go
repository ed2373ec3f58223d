package players

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the player registry routes.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api/players")

	api.Get("/", handler.List)
	api.Post("/:id/connect", handler.Connect)
	api.Post("/:id/disconnect", handler.Disconnect)
	api.Get("/:id/status", handler.Status)

	api.Post("/:id/play", handler.Play)
	api.Post("/:id/pause", handler.Pause)
	api.Post("/:id/next", handler.Next)
	api.Post("/:id/previous", handler.Previous)
	api.Put("/:id/volume", handler.SetVolume)
	api.Post("/:id/repeat", handler.ToggleRepeat)
	api.Post("/:id/shuffle", handler.ToggleShuffle)
	api.Post("/:id/play-item", handler.PlayItem)

	api.Get("/:id/playlists", handler.Playlists)
	api.Get("/:id/playlists/:playlistID/tracks", handler.Tracks)
	api.Post("/:id/refresh", handler.Refresh)

	api.Get("/:id/devices", handler.Devices)
	api.Put("/:id/device", handler.SelectDevice)

	api.Get("/:id/search", handler.Search)

	api.Post("/:id/authorize", handler.Authorize)
	api.Post("/:id/logout", handler.Logout)
}

package players

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"maestro/src/player"
)

// Handler exposes the player registry over HTTP.
type Handler struct {
	service *Service
}

// NewHandler creates a new players handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// commandResponse is the JSON body for transport commands: applied false
// with a 200 status is a soft failure, not an error.
type commandResponse struct {
	Applied bool `json:"applied"`
}

// List returns all configured players.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.JSON(h.service.List())
}

// Connect establishes a player's backend connection.
func (h *Handler) Connect(c *fiber.Ctx) error {
	fresh, err := h.service.Connect(c.Context(), c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"connected": true, "fresh": fresh})
}

// Disconnect disposes a player's driver.
func (h *Handler) Disconnect(c *fiber.Ctx) error {
	h.service.Disconnect(c.Params("id"))
	return c.JSON(fiber.Map{"connected": false})
}

// Status returns the player's live snapshot.
func (h *Handler) Status(c *fiber.Ctx) error {
	snap, err := h.service.Status(c.Context(), c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(snap)
}

func (h *Handler) Play(c *fiber.Ctx) error {
	return h.sendCommand(c, h.service.Play)
}

func (h *Handler) Pause(c *fiber.Ctx) error {
	return h.sendCommand(c, h.service.Pause)
}

func (h *Handler) Next(c *fiber.Ctx) error {
	return h.sendCommand(c, h.service.Next)
}

func (h *Handler) Previous(c *fiber.Ctx) error {
	return h.sendCommand(c, h.service.Previous)
}

func (h *Handler) ToggleRepeat(c *fiber.Ctx) error {
	return h.sendCommand(c, h.service.ToggleRepeat)
}

func (h *Handler) ToggleShuffle(c *fiber.Ctx) error {
	return h.sendCommand(c, h.service.ToggleShuffle)
}

// SetVolume sets the player volume from a JSON body {"volume": 0.5}.
func (h *Handler) SetVolume(c *fiber.Ctx) error {
	var body struct {
		Volume float64 `json:"volume"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	applied, err := h.service.SetVolume(c.Context(), c.Params("id"), body.Volume)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(commandResponse{Applied: applied})
}

// PlayItem starts a track within a playlist.
func (h *Handler) PlayItem(c *fiber.Ctx) error {
	var body struct {
		PlaylistID string `json:"playlistId"`
		TrackID    string `json:"trackId"`
	}
	if err := c.BodyParser(&body); err != nil || body.TrackID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "playlistId and trackId are required"})
	}
	applied, err := h.service.PlayItem(c.Context(), c.Params("id"), body.PlaylistID, body.TrackID)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(commandResponse{Applied: applied})
}

// Playlists lists the player's playlists.
func (h *Handler) Playlists(c *fiber.Ctx) error {
	playlists, err := h.service.Playlists(c.Context(), c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(playlists)
}

// Tracks lists a playlist's tracks.
func (h *Handler) Tracks(c *fiber.Ctx) error {
	tracks, err := h.service.Tracks(c.Context(), c.Params("id"), c.Params("playlistID"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(tracks)
}

// Devices lists the player's output devices.
func (h *Handler) Devices(c *fiber.Ctx) error {
	devices, err := h.service.Devices(c.Context(), c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(devices)
}

// SelectDevice transfers playback from a JSON body {"deviceId": "..."}.
func (h *Handler) SelectDevice(c *fiber.Ctx) error {
	var body struct {
		DeviceID string `json:"deviceId"`
	}
	if err := c.BodyParser(&body); err != nil || body.DeviceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "deviceId is required"})
	}
	applied, err := h.service.SelectDevice(c.Context(), c.Params("id"), body.DeviceID)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(commandResponse{Applied: applied})
}

// Search queries the player's catalog.
func (h *Handler) Search(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "q is required"})
	}
	kind := player.SearchKind(c.Query("type", string(player.SearchTracks)))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	results, err := h.service.Search(c.Context(), c.Params("id"), query, kind, limit, offset)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(results)
}

// Refresh drops the player's entity cache.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	if err := h.service.Refresh(c.Params("id")); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"refreshed": true})
}

// Authorize exchanges an authorization code from a JSON body
// {"code": "..."}.
func (h *Handler) Authorize(c *fiber.Ctx) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil || body.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code is required"})
	}
	if err := h.service.Authorize(c.Context(), c.Params("id"), body.Code); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"authorized": true})
}

// Logout discards the player's cached credential.
func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.service.Logout(c.Params("id")); err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"authorized": false})
}

func (h *Handler) sendCommand(c *fiber.Ctx, op func(ctx context.Context, id string) (bool, error)) error {
	applied, err := op(c.Context(), c.Params("id"))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(commandResponse{Applied: applied})
}

// sendError maps driver error types to HTTP status codes.
func sendError(c *fiber.Ctx, err error) error {
	var (
		authErr *player.AuthorizationError
		connErr *player.ConnectionError
		respErr *player.UnexpectedResponseError
	)
	switch {
	case errors.As(err, &authErr):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &connErr), errors.As(err, &respErr):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.Error("Player request failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

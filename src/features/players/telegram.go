package players

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"maestro/src/player"
)

// TelegramHandler handles Telegram commands for the players feature.
type TelegramHandler struct {
	service *Service
}

// NewTelegramHandler creates a new Telegram handler for the players feature.
func NewTelegramHandler(service *Service) *TelegramHandler {
	return &TelegramHandler{service: service}
}

// HandleCommand processes player-related Telegram commands. Commands
// that take a player accept its id or name as the first argument and
// default to the only connected player when there is exactly one.
func (h *TelegramHandler) HandleCommand(bot *tgbotapi.BotAPI, chatID int64, command string, args string) error {
	switch command {
	case "players":
		return h.handleList(bot, chatID)
	case "status":
		return h.handleStatus(bot, chatID, args)
	case "play", "pause", "next", "prev":
		return h.handleTransport(bot, chatID, command, args)
	case "volume":
		return h.handleVolume(bot, chatID, args)
	default:
		msg := tgbotapi.NewMessage(chatID, "❌ Unknown players command. Use /players")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}
}

// GetCommands returns the available commands for this handler.
func (h *TelegramHandler) GetCommands() map[string]string {
	return map[string]string{
		"players": "List configured players",
		"status":  "Show playback status",
		"play":    "Resume playback",
		"pause":   "Pause playback",
		"next":    "Skip to next track",
		"prev":    "Skip to previous track",
		"volume":  "Set volume (0-100)",
	}
}

// HandleCallback handles callback queries for this feature.
func (h *TelegramHandler) HandleCallback(bot *tgbotapi.BotAPI, callback *tgbotapi.CallbackQuery) bool {
	if !strings.HasPrefix(callback.Data, "players_") {
		return false
	}
	chatID := callback.Message.Chat.ID
	command := strings.TrimPrefix(callback.Data, "players_")
	if err := h.HandleCommand(bot, chatID, command, ""); err != nil {
		h.send(bot, chatID, "❌ Failed to process player action")
	}
	return true
}

func (h *TelegramHandler) handleList(bot *tgbotapi.BotAPI, chatID int64) error {
	infos := h.service.List()
	if len(infos) == 0 {
		h.send(bot, chatID, "No players configured")
		return nil
	}

	var b strings.Builder
	b.WriteString("*🎛 Players*\n\n")
	for _, info := range infos {
		state := "○ disconnected"
		if info.Connected {
			state = "● connected"
		}
		fmt.Fprintf(&b, "`%s` — %s (%s) %s\n", info.ID, info.Name, info.Type, state)
	}
	h.send(bot, chatID, b.String())
	return nil
}

func (h *TelegramHandler) handleStatus(bot *tgbotapi.BotAPI, chatID int64, args string) error {
	playerID, _, err := h.resolvePlayer(args)
	if err != nil {
		h.send(bot, chatID, "❌ "+err.Error())
		return nil
	}

	snap, err := h.service.Status(context.Background(), playerID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*▶️ %s*\n\n", playerID)
	fmt.Fprintf(&b, "State: %s\n", snap.State)
	if snap.Track != nil {
		fmt.Fprintf(&b, "Track: %s — %s\n", snap.Track.Name, snap.Track.Artist)
	}
	fmt.Fprintf(&b, "Volume: %d%%\n", int(snap.Volume*100))
	if snap.Repeat != player.RepeatUnknown {
		fmt.Fprintf(&b, "Repeat: %s\n", snap.Repeat)
	}
	h.send(bot, chatID, b.String())
	return nil
}

func (h *TelegramHandler) handleTransport(bot *tgbotapi.BotAPI, chatID int64, command, args string) error {
	playerID, _, err := h.resolvePlayer(args)
	if err != nil {
		h.send(bot, chatID, "❌ "+err.Error())
		return nil
	}

	ctx := context.Background()
	var applied bool
	switch command {
	case "play":
		applied, err = h.service.Play(ctx, playerID)
	case "pause":
		applied, err = h.service.Pause(ctx, playerID)
	case "next":
		applied, err = h.service.Next(ctx, playerID)
	case "prev":
		applied, err = h.service.Previous(ctx, playerID)
	}
	if err != nil {
		return err
	}
	if applied {
		h.send(bot, chatID, "✅ Done")
	} else {
		h.send(bot, chatID, "⚠️ Command accepted but not applied")
	}
	return nil
}

func (h *TelegramHandler) handleVolume(bot *tgbotapi.BotAPI, chatID int64, args string) error {
	playerID, rest, err := h.resolvePlayer(args)
	if err != nil {
		h.send(bot, chatID, "❌ "+err.Error())
		return nil
	}

	percent, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		h.send(bot, chatID, "❌ Usage: /volume [player] <0-100>")
		return nil
	}

	applied, err := h.service.SetVolume(context.Background(), playerID, float64(percent)/100)
	if err != nil {
		return err
	}
	if applied {
		h.send(bot, chatID, fmt.Sprintf("🔊 Volume set to %d%%", percent))
	} else {
		h.send(bot, chatID, "⚠️ Volume change not applied")
	}
	return nil
}

// resolvePlayer picks the target player from the first argument token,
// falling back to the single connected player.
func (h *TelegramHandler) resolvePlayer(args string) (playerID, rest string, err error) {
	fields := strings.Fields(args)
	infos := h.service.List()

	if len(fields) > 0 {
		for _, info := range infos {
			if info.ID == fields[0] || strings.EqualFold(info.Name, fields[0]) {
				return info.ID, strings.Join(fields[1:], " "), nil
			}
		}
	}

	var connected []Info
	for _, info := range infos {
		if info.Connected {
			connected = append(connected, info)
		}
	}
	if len(connected) == 1 {
		return connected[0].ID, args, nil
	}
	if len(connected) == 0 {
		return "", "", fmt.Errorf("no player connected; use /players")
	}
	return "", "", fmt.Errorf("several players connected; name one, e.g. /status <player>")
}

func (h *TelegramHandler) send(bot *tgbotapi.BotAPI, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	bot.Send(msg)
}

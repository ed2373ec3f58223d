package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"maestro/src/features/config"
	"maestro/src/features/hosting"
	"maestro/src/features/logging"
	"maestro/src/features/players"
	"maestro/src/features/status"
	"maestro/src/infra/credentials"
	"maestro/src/infra/spotify"
	"maestro/src/infra/store"
	"maestro/src/infra/vlc"
	"maestro/src/infra/watcher"
	"maestro/src/player"
)

func main() {
	// Load configuration
	cfgManager, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	// Durable key-value store backing the credential cache
	durable, err := store.NewSqliteStore(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to open key-value store: %v", err)
	}
	defer durable.Close()

	credentialCache := credentials.NewCache(store.NewExpiring(durable))

	// Snapshot store and the player registry
	statusStore := status.NewStore()
	factory := driverFactory(cfgManager, credentialCache)
	playersService := players.NewService(cfgManager, statusStore, factory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playersService.AutoConnect(ctx)

	// Watch the config file for edits when enabled. A reload swaps the
	// manager's config and restarts every active player against it.
	var configWatcher *watcher.Watcher
	if cfgManager.Get().Sync.WatchConfig {
		configWatcher, err = watcher.NewWatcher(func() {
			reloaded, err := config.Load(cfgManager.Path())
			if err != nil {
				slog.Error("Config reload failed, keeping current configuration", "error", err)
				return
			}
			cfgManager.Update(reloaded.Get())
			playersService.DisposeAll()
			playersService.AutoConnect(ctx)
		})
		if err != nil {
			slog.Error("Failed to create config watcher", "error", err)
		} else if err := configWatcher.Start(ctx, cfgManager.Path()); err != nil {
			slog.Error("Failed to start config watcher", "error", err)
		}
	}

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	if cfgManager.Get().Telegram.Enabled {
		telegramBot, err = hosting.NewTelegramBot(cfgManager, playersService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, playersService, statusStore)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down...")

	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}
	if configWatcher != nil {
		configWatcher.Stop()
	}

	playersService.DisposeAll()

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}

// driverFactory builds the driver matching a player's configured type.
func driverFactory(cfgManager *config.Manager, creds *credentials.Cache) players.DriverFactory {
	return func(pcfg config.Player) (player.Driver, error) {
		switch pcfg.Type {
		case "vlc":
			return vlc.NewDriver(pcfg), nil
		case "spotify":
			return spotify.NewDriver(pcfg, cfgManager, creds), nil
		default:
			return nil, fmt.Errorf("unknown player type %q", pcfg.Type)
		}
	}
}

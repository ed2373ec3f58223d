package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		slog.Info("Default configuration created successfully", "path", path)
		return NewManager(defaultCfg, path), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return NewManager(&cfg, path), nil
}

// applyDefaults fills in the values the YAML may omit. Players without a
// stable id get one generated; the id must stay stable across reloads,
// so generated ids are written back on Save.
func applyDefaults(cfg *Config) {
	for i := range cfg.Players {
		if cfg.Players[i].ID == "" {
			cfg.Players[i].ID = uuid.New().String()
		}
		if cfg.Players[i].Name == "" {
			cfg.Players[i].Name = cfg.Players[i].Type
		}
		if cfg.Players[i].Type == "vlc" && cfg.Players[i].Port == 0 {
			cfg.Players[i].Port = 8080
		}
	}
	if cfg.Sync.IntervalSeconds <= 0 {
		cfg.Sync.IntervalSeconds = 1
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3636
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./maestro.db"
	}
}

// applyEnvOverrides lets secrets come from the environment instead of
// the config file.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if secret := os.Getenv("SPOTIFY_CLIENT_SECRET"); secret != "" {
		for i := range cfg.Players {
			if cfg.Players[i].Type == "spotify" {
				cfg.Players[i].ClientSecret = secret
			}
		}
	}
	if password := os.Getenv("VLC_PASSWORD"); password != "" {
		for i := range cfg.Players {
			if cfg.Players[i].Type == "vlc" && cfg.Players[i].Password == "" {
				cfg.Players[i].Password = password
			}
		}
	}
}

// createDefaultConfig creates a new Config with sensible default values.
func createDefaultConfig() *Config {
	return &Config{
		Players: []Player{
			{
				ID:       uuid.New().String(),
				Name:     "VLC",
				Type:     "vlc",
				Host:     "127.0.0.1",
				Port:     8080,
				Password: "",
			},
		},
		Logger: Logger{
			Level:  "info",
			Format: "text",
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3636,
		},
		Database: Database{
			Path: "./maestro.db",
		},
		Sync: Sync{
			IntervalSeconds: 1,
			WatchConfig:     false,
		},
		Telegram: Telegram{
			Enabled:      false,
			Token:        "", // Can be obtained with https://t.me/BotFather
			AllowedUsers: []string{},
		},
	}
}

// saveDefaultConfig saves the default configuration to the specified file path.
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}

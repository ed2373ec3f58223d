package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe
// access to it.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	path   string
}

// NewManager creates a new Manager for a configuration loaded from path.
func NewManager(config *Config, path string) *Manager {
	return &Manager{config: config, path: path}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Path returns the file the configuration was loaded from.
func (m *Manager) Path() string {
	return m.path
}

// Update replaces the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"players_changed", len(oldConfig.Players) != len(config.Players),
			"telegram_enabled_changed", oldConfig.Telegram.Enabled != config.Telegram.Enabled,
			"sync_interval_changed", oldConfig.Sync.IntervalSeconds != config.Sync.IntervalSeconds,
		)
	}
}

// PlayerByID returns the configuration of one player.
func (m *Manager) PlayerByID(id string) (Player, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.config.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// SetPlayerAuthCode records the authorization code obtained for a player
// and persists the change. An empty code clears it, which invalidates
// any cached credential issued from the previous code.
func (m *Manager) SetPlayerAuthCode(id, code string) error {
	m.mu.Lock()
	updated := false
	for i := range m.config.Players {
		if m.config.Players[i].ID == id {
			m.config.Players[i].AuthCode = code
			updated = true
			break
		}
	}
	m.mu.Unlock()

	if !updated {
		return fmt.Errorf("unknown player %q", id)
	}
	return m.Save(m.path)
}

// Save writes the current configuration to the specified file path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create config file", "path", path, "error", err)
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(m.config); err != nil {
		slog.Error("failed to encode config", "path", path, "error", err)
		return err
	}

	slog.Info("Configuration saved successfully", "path", path)
	return nil
}

// redactedCfg gets a redacted copy of the Config. Callers hold the lock.
func (m *Manager) redactedCfg() Config {
	cfgCpy := *m.config
	cfgCpy.Telegram.Token = "<redacted>"
	players := make([]Player, len(cfgCpy.Players))
	copy(players, cfgCpy.Players)
	for i := range players {
		if players[i].Password != "" {
			players[i].Password = "<redacted>"
		}
		if players[i].ClientSecret != "" {
			players[i].ClientSecret = "<redacted>"
		}
		if players[i].AuthCode != "" {
			players[i].AuthCode = "<redacted>"
		}
	}
	cfgCpy.Players = players
	return cfgCpy
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jsonBytes, err := json.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

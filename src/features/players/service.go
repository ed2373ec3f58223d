// Package players owns the configured player registry: driver
// construction, connection lifecycle, status synchronizers and command
// dispatch.
package players

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"maestro/src/features/config"
	"maestro/src/features/metrics"
	"maestro/src/features/status"
	"maestro/src/player"
)

// DriverFactory builds a driver for one player configuration.
type DriverFactory func(cfg config.Player) (player.Driver, error)

// Authorizer is implemented by drivers whose backend needs an
// interactive code exchange before authenticated operations work.
type Authorizer interface {
	Authorize(ctx context.Context, code string) error
	Logout() error
}

// Info is the registry's public view of one player.
type Info struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
}

// Service is the player registry. Drivers are constructed lazily on
// first connect and disposed on disconnect; each connected player gets
// its own status synchronizer.
type Service struct {
	cfg     *config.Manager
	store   *status.Store
	factory DriverFactory

	mu      sync.Mutex
	drivers map[string]player.Driver
	syncers map[string]*status.Synchronizer
}

// NewService creates the registry.
func NewService(cfg *config.Manager, store *status.Store, factory DriverFactory) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		factory: factory,
		drivers: make(map[string]player.Driver),
		syncers: make(map[string]*status.Synchronizer),
	}
}

// List returns all configured players and their connection state.
func (s *Service) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg.Get()
	infos := make([]Info, 0, len(cfg.Players))
	for _, p := range cfg.Players {
		connected := false
		if d, ok := s.drivers[p.ID]; ok {
			connected = d.IsConnected()
		}
		infos = append(infos, Info{ID: p.ID, Name: p.Name, Type: p.Type, Connected: connected})
	}
	return infos
}

// Connect builds the player's driver if needed and establishes its
// backend connection. Reports whether a new connection was made.
func (s *Service) Connect(ctx context.Context, playerID string) (bool, error) {
	s.mu.Lock()
	driver, ok := s.drivers[playerID]
	if !ok {
		pcfg, found := s.cfg.PlayerByID(playerID)
		if !found {
			s.mu.Unlock()
			return false, fmt.Errorf("unknown player %q", playerID)
		}
		var err error
		driver, err = s.factory(pcfg)
		if err != nil {
			s.mu.Unlock()
			return false, fmt.Errorf("building driver for %q: %w", playerID, err)
		}
		s.drivers[playerID] = driver
		s.store.Set(playerID, player.Disconnected())
	}
	s.mu.Unlock()

	fresh, err := driver.Connect(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if _, running := s.syncers[playerID]; !running {
		interval := time.Duration(s.cfg.Get().Sync.IntervalSeconds) * time.Second
		syncer := status.NewSynchronizer(playerID, driver, s.store, interval)
		s.syncers[playerID] = syncer
		syncer.Start()
	}
	s.mu.Unlock()

	if fresh {
		slog.Info("Player connected", "player", playerID)
	}
	return fresh, nil
}

// Disconnect stops the player's synchronizer and disposes its driver.
// Unknown or never-connected players are a no-op.
func (s *Service) Disconnect(playerID string) {
	s.mu.Lock()
	driver := s.drivers[playerID]
	syncer := s.syncers[playerID]
	delete(s.drivers, playerID)
	delete(s.syncers, playerID)
	s.mu.Unlock()

	if syncer != nil {
		syncer.Stop()
	}
	if driver != nil {
		driver.Dispose()
		s.store.Set(playerID, player.Disconnected())
		slog.Info("Player disconnected", "player", playerID)
	}
}

// AutoConnect connects every player configured with auto_connect. A
// failure is logged and does not stop the others.
func (s *Service) AutoConnect(ctx context.Context) {
	for _, p := range s.cfg.Get().Players {
		if !p.AutoConnect {
			continue
		}
		if _, err := s.Connect(ctx, p.ID); err != nil {
			slog.Error("Auto-connect failed", "player", p.ID, "error", err)
		}
	}
}

// DisposeAll disconnects every active player. Used on shutdown and when
// a config reload replaces the player list.
func (s *Service) DisposeAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.drivers))
	for id := range s.drivers {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Disconnect(id)
	}
}

// driver returns the active driver for a player.
func (s *Service) driver(playerID string) (player.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[playerID]
	if !ok {
		return nil, fmt.Errorf("player %q is not connected", playerID)
	}
	return d, nil
}

// command dispatches one transport command and records its outcome.
func (s *Service) command(playerID, name string, op func(player.Driver) (bool, error)) (bool, error) {
	driver, err := s.driver(playerID)
	if err != nil {
		return false, err
	}
	applied, err := op(driver)
	metrics.CommandsTotal.WithLabelValues(playerID, name, metrics.CommandOutcome(applied, err)).Inc()
	if err != nil {
		slog.Error("Command failed", "player", playerID, "command", name, "error", err)
	} else if !applied {
		slog.Debug("Command not applied", "player", playerID, "command", name)
	}
	return applied, err
}

func (s *Service) Play(ctx context.Context, playerID string) (bool, error) {
	return s.command(playerID, "play", func(d player.Driver) (bool, error) { return d.Play(ctx) })
}

func (s *Service) Pause(ctx context.Context, playerID string) (bool, error) {
	return s.command(playerID, "pause", func(d player.Driver) (bool, error) { return d.Pause(ctx) })
}

func (s *Service) Next(ctx context.Context, playerID string) (bool, error) {
	return s.command(playerID, "next", func(d player.Driver) (bool, error) { return d.Next(ctx) })
}

func (s *Service) Previous(ctx context.Context, playerID string) (bool, error) {
	return s.command(playerID, "previous", func(d player.Driver) (bool, error) { return d.Previous(ctx) })
}

func (s *Service) SetVolume(ctx context.Context, playerID string, volume float64) (bool, error) {
	return s.command(playerID, "set_volume", func(d player.Driver) (bool, error) { return d.SetVolume(ctx, volume) })
}

func (s *Service) ToggleRepeat(ctx context.Context, playerID string) (bool, error) {
	return s.command(playerID, "toggle_repeat", func(d player.Driver) (bool, error) { return d.ToggleRepeat(ctx) })
}

func (s *Service) ToggleShuffle(ctx context.Context, playerID string) (bool, error) {
	return s.command(playerID, "toggle_shuffle", func(d player.Driver) (bool, error) { return d.ToggleShuffle(ctx) })
}

func (s *Service) PlayItem(ctx context.Context, playerID, playlistID, trackID string) (bool, error) {
	return s.command(playerID, "play_item", func(d player.Driver) (bool, error) {
		return d.PlayItem(ctx, playlistID, trackID)
	})
}

func (s *Service) SelectDevice(ctx context.Context, playerID, deviceID string) (bool, error) {
	return s.command(playerID, "select_device", func(d player.Driver) (bool, error) {
		return d.SelectDevice(ctx, deviceID)
	})
}

// Status returns the player's live snapshot from the store, falling back
// to a direct driver fetch when nothing was published yet.
func (s *Service) Status(ctx context.Context, playerID string) (*player.Snapshot, error) {
	if snap, ok := s.store.Get(playerID); ok {
		return snap, nil
	}
	driver, err := s.driver(playerID)
	if err != nil {
		return player.Disconnected(), nil
	}
	return driver.Status(ctx)
}

func (s *Service) Playlists(ctx context.Context, playerID string) ([]*player.Playlist, error) {
	driver, err := s.driver(playerID)
	if err != nil {
		return nil, err
	}
	return driver.Playlists(ctx)
}

func (s *Service) Tracks(ctx context.Context, playerID, playlistID string) ([]*player.Track, error) {
	driver, err := s.driver(playerID)
	if err != nil {
		return nil, err
	}
	return driver.Tracks(ctx, playlistID)
}

func (s *Service) Devices(ctx context.Context, playerID string) ([]*player.Device, error) {
	driver, err := s.driver(playerID)
	if err != nil {
		return nil, err
	}
	return driver.Devices(ctx)
}

func (s *Service) Search(ctx context.Context, playerID, query string, kind player.SearchKind, limit, offset int) (*player.SearchResults, error) {
	driver, err := s.driver(playerID)
	if err != nil {
		return nil, err
	}
	return driver.Search(ctx, query, kind, limit, offset)
}

// Refresh drops the player's entity cache.
func (s *Service) Refresh(playerID string) error {
	driver, err := s.driver(playerID)
	if err != nil {
		return err
	}
	driver.Refresh()
	return nil
}

// Authorize runs the interactive-code exchange on drivers that support
// it.
func (s *Service) Authorize(ctx context.Context, playerID, code string) error {
	driver, err := s.driver(playerID)
	if err != nil {
		return err
	}
	auth, ok := driver.(Authorizer)
	if !ok {
		return fmt.Errorf("player %q does not support authorization", playerID)
	}
	return auth.Authorize(ctx, code)
}

// Logout discards the player's cached credential.
func (s *Service) Logout(playerID string) error {
	driver, err := s.driver(playerID)
	if err != nil {
		return err
	}
	auth, ok := driver.(Authorizer)
	if !ok {
		return fmt.Errorf("player %q does not support authorization", playerID)
	}
	return auth.Logout()
}

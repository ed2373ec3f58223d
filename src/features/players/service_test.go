package players

import (
	"context"
	"testing"

	"maestro/src/features/config"
	"maestro/src/features/status"
	"maestro/src/player"
)

type fakeDriver struct {
	connected    bool
	connectCalls int
	disposed     bool
	playApplied  bool
	playErr      error
}

func (d *fakeDriver) Connect(ctx context.Context) (bool, error) {
	d.connectCalls++
	if d.connected {
		return false, nil
	}
	d.connected = true
	return true, nil
}

func (d *fakeDriver) IsConnected() bool { return d.connected }

func (d *fakeDriver) Status(ctx context.Context) (*player.Snapshot, error) {
	return player.NewSnapshot(true, player.StatePlaying, nil, 0.5, nil, player.RepeatNone, player.Indicator{}), nil
}

func (d *fakeDriver) Playlists(ctx context.Context) ([]*player.Playlist, error) {
	return []*player.Playlist{{ID: "1", Name: "Mix"}}, nil
}

func (d *fakeDriver) Tracks(ctx context.Context, playlistID string) ([]*player.Track, error) {
	return nil, nil
}

func (d *fakeDriver) PlayItem(ctx context.Context, playlistID, trackID string) (bool, error) {
	return true, nil
}

func (d *fakeDriver) Play(ctx context.Context) (bool, error)     { return d.playApplied, d.playErr }
func (d *fakeDriver) Pause(ctx context.Context) (bool, error)    { return true, nil }
func (d *fakeDriver) Next(ctx context.Context) (bool, error)     { return true, nil }
func (d *fakeDriver) Previous(ctx context.Context) (bool, error) { return true, nil }

func (d *fakeDriver) SetVolume(ctx context.Context, volume float64) (bool, error) { return true, nil }
func (d *fakeDriver) ToggleRepeat(ctx context.Context) (bool, error)              { return true, nil }
func (d *fakeDriver) ToggleShuffle(ctx context.Context) (bool, error)             { return true, nil }

func (d *fakeDriver) Devices(ctx context.Context) ([]*player.Device, error) { return nil, nil }
func (d *fakeDriver) SelectDevice(ctx context.Context, deviceID string) (bool, error) {
	return false, nil
}

func (d *fakeDriver) Search(ctx context.Context, query string, kind player.SearchKind, limit, offset int) (*player.SearchResults, error) {
	return &player.SearchResults{}, nil
}

func (d *fakeDriver) Refresh() {}
func (d *fakeDriver) Dispose() { d.disposed = true; d.connected = false }

func newTestService(t *testing.T) (*Service, *fakeDriver, *int) {
	t.Helper()
	cfg := &config.Config{
		Players: []config.Player{{ID: "p1", Name: "Test", Type: "vlc"}},
		Sync:    config.Sync{IntervalSeconds: 1},
	}
	manager := config.NewManager(cfg, "")
	driver := &fakeDriver{playApplied: true}
	factoryCalls := 0
	factory := func(pcfg config.Player) (player.Driver, error) {
		factoryCalls++
		return driver, nil
	}
	return NewService(manager, status.NewStore(), factory), driver, &factoryCalls
}

func TestConnectBuildsDriverOnce(t *testing.T) {
	service, driver, factoryCalls := newTestService(t)
	defer service.DisposeAll()

	fresh, err := service.Connect(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !fresh {
		t.Fatal("first connect should report a fresh connection")
	}

	fresh, err = service.Connect(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second Connect: %v", err)
	}
	if fresh {
		t.Fatal("second connect should be idempotent")
	}
	if *factoryCalls != 1 {
		t.Fatalf("factory called %d times, want 1", *factoryCalls)
	}
	if driver.connectCalls != 2 {
		t.Fatalf("driver.Connect called %d times, want 2", driver.connectCalls)
	}
}

func TestConnectUnknownPlayer(t *testing.T) {
	service, _, _ := newTestService(t)
	if _, err := service.Connect(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown player")
	}
}

func TestCommandRequiresConnection(t *testing.T) {
	service, _, _ := newTestService(t)
	if _, err := service.Play(context.Background(), "p1"); err == nil {
		t.Fatal("expected error before connect")
	}
}

func TestCommandDispatch(t *testing.T) {
	service, driver, _ := newTestService(t)
	defer service.DisposeAll()

	if _, err := service.Connect(context.Background(), "p1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	applied, err := service.Play(context.Background(), "p1")
	if err != nil || !applied {
		t.Fatalf("Play = %v, %v, want applied", applied, err)
	}

	driver.playApplied = false
	applied, err = service.Play(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Play soft failure: %v", err)
	}
	if applied {
		t.Fatal("soft failure must pass through as applied=false")
	}
}

func TestDisconnectDisposesDriver(t *testing.T) {
	service, driver, _ := newTestService(t)

	if _, err := service.Connect(context.Background(), "p1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	service.Disconnect("p1")

	if !driver.disposed {
		t.Fatal("driver not disposed")
	}
	snap, err := service.Status(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snap.IsConnected {
		t.Fatal("disconnected player must publish a disconnected snapshot")
	}

	// Idempotent.
	service.Disconnect("p1")
}

func TestListReflectsConnectionState(t *testing.T) {
	service, _, _ := newTestService(t)
	defer service.DisposeAll()

	infos := service.List()
	if len(infos) != 1 || infos[0].Connected {
		t.Fatalf("expected one disconnected player, got %+v", infos)
	}

	if _, err := service.Connect(context.Background(), "p1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	infos = service.List()
	if !infos[0].Connected {
		t.Fatal("expected player reported connected")
	}
}

func TestAuthorizeUnsupportedDriver(t *testing.T) {
	service, _, _ := newTestService(t)
	defer service.DisposeAll()

	if _, err := service.Connect(context.Background(), "p1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := service.Authorize(context.Background(), "p1", "code"); err == nil {
		t.Fatal("expected error for driver without authorization support")
	}
}

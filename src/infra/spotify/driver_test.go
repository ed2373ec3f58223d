package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"maestro/src/features/config"
	"maestro/src/infra/credentials"
	"maestro/src/infra/store"
	"maestro/src/player"
)

type memDurable struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemDurable() *memDurable {
	return &memDurable{data: make(map[string][]byte)}
}

func (m *memDurable) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memDurable) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memDurable) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memDurable) Close() error { return nil }

const testAuthCode = "code-1"

func newTestDriver(t *testing.T, authenticated bool, handler http.Handler) (*Driver, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Player{
		ID:           "spotify-1",
		Name:         "Living Room",
		Type:         "spotify",
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost/callback",
	}
	if authenticated {
		cfg.AuthCode = testAuthCode
	}

	manager := config.NewManager(&config.Config{Players: []config.Player{cfg}}, filepath.Join(t.TempDir(), "config.yml"))
	creds := credentials.NewCache(store.NewExpiring(newMemDurable()))

	d := NewDriver(cfg, manager, creds)
	d.api = newAPIClient(server.URL, d.AccessToken)
	d.accountsBase = server.URL
	d.retryDelay = time.Millisecond

	if authenticated {
		err := creds.Store(d.fingerprint, credentials.Record{
			AccessToken: "token-abc",
			IssuingCode: testAuthCode,
			ExpiresAt:   time.Now().Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("seeding credential: %v", err)
		}
	}
	return d, server
}

func TestWriteRetriesUntilApplied(t *testing.T) {
	var calls int
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 5 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	applied, err := d.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !applied {
		t.Fatal("expected command to resolve applied after pending answers")
	}
	if calls != 6 {
		t.Fatalf("expected 6 requests, got %d", calls)
	}
}

func TestWriteExhaustsRetries(t *testing.T) {
	var calls int
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))

	applied, err := d.Pause(context.Background())
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if applied {
		t.Fatal("expected soft failure after exhausting the retry budget")
	}
	if calls != 6 {
		t.Fatalf("expected 6 requests (initial + 5 retries), got %d", calls)
	}
}

func TestWriteAuthorizationRejection(t *testing.T) {
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := d.Next(context.Background())
	var authErr *player.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
}

func TestSetVolumeClampsToWirePercent(t *testing.T) {
	var got []string
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.Query().Get("volume_percent"))
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, volume := range []float64{1.4, -0.3, 0.5} {
		if _, err := d.SetVolume(context.Background(), volume); err != nil {
			t.Fatalf("SetVolume(%v): %v", volume, err)
		}
	}

	want := []string{"100", "0", "50"}
	for i, percent := range want {
		if got[i] != percent {
			t.Errorf("volume %d: sent %q, want %q", i, got[i], percent)
		}
	}
}

func TestRestrictedDeviceSelectIsLocalNoOp(t *testing.T) {
	var transfers int
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/me/player/devices" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"devices":[
				{"id":"dev-open","name":"Desk","is_active":true,"is_restricted":false,"volume_percent":40},
				{"id":"dev-locked","name":"TV","is_active":false,"is_restricted":true,"volume_percent":100}
			]}`))
			return
		}
		transfers++
		w.WriteHeader(http.StatusNoContent)
	}))

	devices, err := d.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected both devices listed, got %d", len(devices))
	}
	if !devices[1].Restricted {
		t.Fatal("expected second device to be restricted")
	}

	applied, err := d.SelectDevice(context.Background(), "dev-locked")
	if err != nil {
		t.Fatalf("SelectDevice restricted: %v", err)
	}
	if applied {
		t.Fatal("selecting a restricted device must resolve false")
	}
	if transfers != 0 {
		t.Fatalf("restricted selection must not reach the network, saw %d transfers", transfers)
	}

	applied, err = d.SelectDevice(context.Background(), "dev-open")
	if err != nil {
		t.Fatalf("SelectDevice open: %v", err)
	}
	if !applied || transfers != 1 {
		t.Fatalf("open selection should transfer once, applied=%v transfers=%d", applied, transfers)
	}
}

func TestDevicesFallBackToSyntheticDefault(t *testing.T) {
	d, _ := newTestDriver(t, false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unauthenticated device listing must not call the API")
	}))

	devices, err := d.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 || devices[0].ID != syntheticDeviceID {
		t.Fatalf("expected the synthetic default device, got %+v", devices)
	}
	if !devices[0].Restricted {
		t.Fatal("synthetic device must be restricted")
	}

	applied, err := d.SelectDevice(context.Background(), syntheticDeviceID)
	if err != nil || applied {
		t.Fatalf("synthetic device selection should be a soft no-op, got applied=%v err=%v", applied, err)
	}
}

func TestUnauthenticatedWriteIsSoftFailure(t *testing.T) {
	var calls int
	d, _ := newTestDriver(t, false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}))

	applied, err := d.SetVolume(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if applied {
		t.Fatal("expected soft failure without a credential")
	}
	if calls != 0 {
		t.Fatalf("expected no API requests, got %d", calls)
	}
}

func TestSearchDegradesToEmptyResults(t *testing.T) {
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	results, err := d.Search(context.Background(), "anything", player.SearchTracks, 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results.Tracks) != 0 || len(results.Playlists) != 0 {
		t.Fatalf("expected empty results, got %+v", results)
	}
}

func TestStatusNothingPlaying(t *testing.T) {
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	snap, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !snap.IsConnected {
		t.Fatal("204 means connected with nothing playing")
	}
	if snap.State != player.StateStopped || snap.Track != nil {
		t.Fatalf("expected a stopped, trackless snapshot, got %+v", snap)
	}
}

func TestStatusMapsPlayerState(t *testing.T) {
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"device": {"id":"dev-1","name":"Desk","is_active":true,"is_restricted":false,"volume_percent":70},
			"shuffle_state": true,
			"repeat_state": "context",
			"is_playing": true,
			"item": {"id":"t1","name":"Song","artists":[{"name":"Artist A"},{"name":"Artist B"}]}
		}`))
	}))

	snap, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snap.State != player.StatePlaying {
		t.Errorf("state = %q, want playing", snap.State)
	}
	if snap.Volume != 0.7 {
		t.Errorf("volume = %v, want 0.7", snap.Volume)
	}
	if snap.Repeat != player.RepeatAll {
		t.Errorf("repeat = %q, want all", snap.Repeat)
	}
	if snap.Shuffle == nil || !*snap.Shuffle {
		t.Error("expected shuffle on")
	}
	if snap.Track == nil || snap.Track.Artist != "Artist A, Artist B" {
		t.Errorf("track = %+v, want joined artists", snap.Track)
	}
}

func TestPlaylistsMemoizedUntilRefresh(t *testing.T) {
	var calls int
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"pl-1","name":"Focus"}]}`))
	}))

	for i := 0; i < 3; i++ {
		playlists, err := d.Playlists(context.Background())
		if err != nil {
			t.Fatalf("Playlists: %v", err)
		}
		if len(playlists) != 1 || playlists[0].Name != "Focus" {
			t.Fatalf("unexpected playlists %+v", playlists)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single fetch, got %d", calls)
	}

	d.Refresh()
	if _, err := d.Playlists(context.Background()); err != nil {
		t.Fatalf("Playlists after refresh: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected a refetch after refresh, got %d calls", calls)
	}
}

func TestAuthorizeCachesCredential(t *testing.T) {
	d, _ := newTestDriver(t, false, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		user, pass, _ := r.BasicAuth()
		if user != "client" || pass != "secret" {
			t.Errorf("unexpected basic auth %q:%q", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
	}))

	if err := d.Authorize(context.Background(), "new-code"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	token, ok := d.AccessToken()
	if !ok || token != "fresh-token" {
		t.Fatalf("AccessToken = %q,%v, want cached fresh token", token, ok)
	}
	if p, _ := d.manager.PlayerByID("spotify-1"); p.AuthCode != "new-code" {
		t.Fatalf("auth code not persisted in live config, got %q", p.AuthCode)
	}

	if err := d.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, ok := d.AccessToken(); ok {
		t.Fatal("expected no token after logout")
	}
}

func TestTokenInvalidatedByCodeChange(t *testing.T) {
	d, _ := newTestDriver(t, true, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if _, ok := d.AccessToken(); !ok {
		t.Fatal("expected seeded token to be valid")
	}
	if err := d.manager.SetPlayerAuthCode("spotify-1", "different-code"); err != nil {
		t.Fatalf("SetPlayerAuthCode: %v", err)
	}
	if _, ok := d.AccessToken(); ok {
		t.Fatal("expected token issued from the old code to be discarded")
	}
}

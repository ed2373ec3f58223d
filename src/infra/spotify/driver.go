package spotify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"maestro/src/features/config"
	"maestro/src/features/metrics"
	"maestro/src/infra/credentials"
	"maestro/src/infra/retrypoll"
	"maestro/src/player"
)

// Driver controls a player through the cloud REST API. Write commands
// are accepted by the backend before they take effect, so every
// state-changing call runs through the retry-poll executor; reads never
// retry. While the API is unauthenticated the driver falls back to the
// companion local web helper for basic transport and status.
type Driver struct {
	cfg         config.Player
	manager     *config.Manager
	creds       *credentials.Cache
	fingerprint string
	cache       *player.EntityCache
	api         *apiClient
	helper      *webHelper

	accountsBase string
	authHTTP     *http.Client
	retryDelay   time.Duration
	retries      int

	mu         sync.Mutex
	connected  bool
	restricted map[string]bool
	disposed   atomic.Bool
}

// Ensure Driver implements player.Driver.
var _ player.Driver = (*Driver)(nil)

// syntheticDeviceID identifies the placeholder device reported when the
// real device list is unavailable.
const syntheticDeviceID = "default-output"

// NewDriver builds a cloud driver for the given player configuration.
func NewDriver(cfg config.Player, manager *config.Manager, creds *credentials.Cache) *Driver {
	d := &Driver{
		cfg:          cfg,
		manager:      manager,
		creds:        creds,
		fingerprint:  credentials.Fingerprint(cfg.ID, cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI),
		cache:        player.NewEntityCache(),
		helper:       newWebHelper(cfg.WebHelperURL),
		accountsBase: defaultAccountsBase,
		authHTTP:     &http.Client{Timeout: requestTimeout},
		retryDelay:   retrypoll.DefaultDelay,
		retries:      retrypoll.DefaultRetries,
		restricted:   make(map[string]bool),
	}
	d.api = newAPIClient(defaultAPIBase, d.AccessToken)
	return d
}

// AccessToken returns the currently valid bearer token, if any. This is
// the narrow capability consumers get instead of the backend client's
// internals.
func (d *Driver) AccessToken() (string, bool) {
	rec, ok := d.creds.Token(d.fingerprint, d.authCode())
	if !ok {
		return "", false
	}
	return rec.AccessToken, true
}

// authCode reads the issuing code from the live configuration, which may
// have been reloaded since the driver was built.
func (d *Driver) authCode() string {
	if p, ok := d.manager.PlayerByID(d.cfg.ID); ok {
		return p.AuthCode
	}
	return d.cfg.AuthCode
}

// Connect verifies that either the REST API (with a valid cached token)
// or the local web helper is reachable. Idempotent; reports whether a
// new connection was established.
func (d *Driver) Connect(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return false, nil
	}

	if _, ok := d.AccessToken(); ok {
		status, err := d.api.get(ctx, "/me/player", nil, nil)
		if err != nil {
			return false, err
		}
		if status != http.StatusOK && status != http.StatusNoContent {
			return false, &player.UnexpectedResponseError{Endpoint: "/me/player", Status: status}
		}
	} else if _, err := d.helper.Status(ctx); err != nil {
		return false, &player.ConnectionError{Backend: "spotify", Err: err}
	}

	d.connected = true
	d.cache.Clear()
	slog.Info("Connected to cloud player", "player", d.cfg.ID, "authenticated", d.hasToken())
	return true, nil
}

// IsConnected reports whether Connect succeeded.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Driver) hasToken() bool {
	_, ok := d.AccessToken()
	return ok
}

// Status fetches the player state. With a valid token the REST API is
// authoritative; otherwise the web helper answers. "Nothing playing"
// (204) is not an error.
func (d *Driver) Status(ctx context.Context) (*player.Snapshot, error) {
	if !d.hasToken() {
		return d.helper.Status(ctx)
	}

	var state playerStateResponse
	status, err := d.api.get(ctx, "/me/player", nil, &state)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return d.snapshot(&state), nil
	case http.StatusNoContent:
		return player.NewSnapshot(true, player.StateStopped, nil, 0, nil, player.RepeatNone, player.Indicator{Text: "idle"}), nil
	case http.StatusUnauthorized:
		return nil, &player.AuthorizationError{Reason: "bearer token rejected"}
	default:
		return nil, &player.UnexpectedResponseError{Endpoint: "/me/player", Status: status}
	}
}

func (d *Driver) snapshot(state *playerStateResponse) *player.Snapshot {
	playback := player.StatePaused
	if state.IsPlaying {
		playback = player.StatePlaying
	}
	if state.Item == nil && !state.IsPlaying {
		playback = player.StateStopped
	}

	volume := 0.0
	if state.Device != nil {
		volume = math.Min(1, math.Max(0, float64(state.Device.VolumePercent)/100))
	}

	repeat := player.RepeatUnknown
	switch state.RepeatState {
	case "off":
		repeat = player.RepeatNone
	case "context":
		repeat = player.RepeatAll
	case "track":
		repeat = player.RepeatTrack
	}

	track := state.Item.track()
	shuffle := state.ShuffleState
	indicator := player.Indicator{Text: string(playback)}
	if track != nil {
		indicator.Text = track.Name
		indicator.Tooltip = track.Artist
	}

	return player.NewSnapshot(true, playback, track, volume, &shuffle, repeat, indicator)
}

// Playlists lists the user's playlists, memoized until refresh. Best
// effort: failures degrade to an empty list.
func (d *Driver) Playlists(ctx context.Context) ([]*player.Playlist, error) {
	return d.cache.Playlists(ctx, func(ctx context.Context) ([]*player.Playlist, error) {
		if !d.hasToken() {
			return []*player.Playlist{}, nil
		}
		var page playlistPageResponse
		status, err := d.api.get(ctx, "/me/playlists", url.Values{"limit": {"50"}}, &page)
		if err != nil || status != http.StatusOK {
			slog.Debug("Playlist listing degraded to empty", "player", d.cfg.ID, "status", status, "error", err)
			return []*player.Playlist{}, nil
		}
		playlists := make([]*player.Playlist, 0, len(page.Items))
		for _, item := range page.Items {
			playlists = append(playlists, &player.Playlist{ID: item.ID, Name: item.Name})
		}
		return playlists, nil
	})
}

// Tracks lists a playlist's tracks, memoized per playlist. Best effort.
func (d *Driver) Tracks(ctx context.Context, playlistID string) ([]*player.Track, error) {
	return d.cache.Tracks(ctx, playlistID, func(ctx context.Context) ([]*player.Track, error) {
		if !d.hasToken() {
			return []*player.Track{}, nil
		}
		var page playlistTracksResponse
		path := fmt.Sprintf("/playlists/%s/tracks", playlistID)
		status, err := d.api.get(ctx, path, url.Values{"limit": {"100"}}, &page)
		if err != nil || status != http.StatusOK {
			slog.Debug("Track listing degraded to empty", "player", d.cfg.ID, "status", status, "error", err)
			return []*player.Track{}, nil
		}
		tracks := make([]*player.Track, 0, len(page.Items))
		for _, item := range page.Items {
			if t := item.Track.track(); t != nil {
				tracks = append(tracks, t)
			}
		}
		return tracks, nil
	})
}

// PlayItem starts a track within a playlist context.
func (d *Driver) PlayItem(ctx context.Context, playlistID, trackID string) (bool, error) {
	body := map[string]any{
		"context_uri": "spotify:playlist:" + playlistID,
		"offset":      map[string]string{"uri": "spotify:track:" + trackID},
	}
	return d.write(ctx, "play_item", http.MethodPut, "/me/player/play", nil, body, nil)
}

// Play resumes playback.
func (d *Driver) Play(ctx context.Context) (bool, error) {
	return d.write(ctx, "play", http.MethodPut, "/me/player/play", nil, nil, d.helper.Resume)
}

// Pause pauses playback.
func (d *Driver) Pause(ctx context.Context) (bool, error) {
	return d.write(ctx, "pause", http.MethodPut, "/me/player/pause", nil, nil, d.helper.Pause)
}

// Next skips forward.
func (d *Driver) Next(ctx context.Context) (bool, error) {
	return d.write(ctx, "next", http.MethodPost, "/me/player/next", nil, nil, d.helper.Next)
}

// Previous skips backward.
func (d *Driver) Previous(ctx context.Context) (bool, error) {
	return d.write(ctx, "previous", http.MethodPost, "/me/player/previous", nil, nil, d.helper.Previous)
}

// SetVolume sets the volume, clamped to [0, 1] before it becomes a
// percentage on the wire.
func (d *Driver) SetVolume(ctx context.Context, volume float64) (bool, error) {
	volume = math.Min(1, math.Max(0, volume))
	query := url.Values{}
	query.Set("volume_percent", strconv.Itoa(int(math.Round(volume*100))))
	return d.write(ctx, "set_volume", http.MethodPut, "/me/player/volume", query, nil, nil)
}

// ToggleRepeat cycles the repeat mode off -> context -> track -> off.
// When the authoritative lookup fails the current mode is unknown and
// the cycle restarts at context.
func (d *Driver) ToggleRepeat(ctx context.Context) (bool, error) {
	next := "context"
	if current, ok := d.currentState(ctx); ok {
		switch current.RepeatState {
		case "context":
			next = "track"
		case "track":
			next = "off"
		}
	}
	query := url.Values{}
	query.Set("state", next)
	return d.write(ctx, "toggle_repeat", http.MethodPut, "/me/player/repeat", query, nil, nil)
}

// ToggleShuffle flips the shuffle state.
func (d *Driver) ToggleShuffle(ctx context.Context) (bool, error) {
	target := true
	if current, ok := d.currentState(ctx); ok {
		target = !current.ShuffleState
	}
	query := url.Values{}
	query.Set("state", strconv.FormatBool(target))
	return d.write(ctx, "toggle_shuffle", http.MethodPut, "/me/player/shuffle", query, nil, nil)
}

func (d *Driver) currentState(ctx context.Context) (*playerStateResponse, bool) {
	if !d.hasToken() {
		return nil, false
	}
	var state playerStateResponse
	status, err := d.api.get(ctx, "/me/player", nil, &state)
	if err != nil || status != http.StatusOK {
		return nil, false
	}
	return &state, true
}

// Devices lists output devices. Restricted devices are kept in the list
// but remembered so their selection never reaches the network. When the
// list is unavailable a single synthetic default device stands in.
func (d *Driver) Devices(ctx context.Context) ([]*player.Device, error) {
	if d.hasToken() {
		var list deviceListResponse
		status, err := d.api.get(ctx, "/me/player/devices", nil, &list)
		if err == nil && status == http.StatusOK {
			devices := make([]*player.Device, 0, len(list.Devices))
			d.mu.Lock()
			d.restricted = make(map[string]bool)
			for _, dev := range list.Devices {
				d.restricted[dev.ID] = dev.IsRestricted
				devices = append(devices, &player.Device{
					ID:         dev.ID,
					Name:       dev.Name,
					Active:     dev.IsActive,
					Restricted: dev.IsRestricted,
				})
			}
			d.mu.Unlock()
			return devices, nil
		}
		slog.Debug("Device listing degraded to synthetic default", "player", d.cfg.ID, "status", status, "error", err)
	}

	d.mu.Lock()
	d.restricted = map[string]bool{syntheticDeviceID: true}
	d.mu.Unlock()
	return []*player.Device{{
		ID:         syntheticDeviceID,
		Name:       "Default Output",
		Active:     true,
		Restricted: true,
	}}, nil
}

// SelectDevice transfers playback to the given device. Selecting a
// restricted device is a permanent no-op that resolves false without a
// network call.
func (d *Driver) SelectDevice(ctx context.Context, deviceID string) (bool, error) {
	d.mu.Lock()
	restricted := d.restricted[deviceID]
	d.mu.Unlock()
	if restricted {
		return false, nil
	}

	body := map[string][]string{"device_ids": {deviceID}}
	return d.write(ctx, "select_device", http.MethodPut, "/me/player", nil, body, nil)
}

// Search queries the catalog. Best effort: any failure degrades to
// empty results.
func (d *Driver) Search(ctx context.Context, query string, kind player.SearchKind, limit, offset int) (*player.SearchResults, error) {
	results := &player.SearchResults{Tracks: []*player.Track{}, Playlists: []*player.Playlist{}}
	if !d.hasToken() {
		return results, nil
	}

	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", string(kind))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page searchResponse
	status, err := d.api.get(ctx, "/search", params, &page)
	if err != nil || status != http.StatusOK {
		slog.Debug("Search degraded to empty results", "player", d.cfg.ID, "status", status, "error", err)
		return results, nil
	}

	if page.Tracks != nil {
		for i := range page.Tracks.Items {
			if t := page.Tracks.Items[i].track(); t != nil {
				results.Tracks = append(results.Tracks, t)
			}
		}
	}
	if page.Playlists != nil {
		for _, item := range page.Playlists.Items {
			results.Playlists = append(results.Playlists, &player.Playlist{ID: item.ID, Name: item.Name})
		}
	}
	return results, nil
}

// Authorize exchanges an authorization code obtained interactively for a
// bearer token and caches the resulting credential. This is the only
// path that triggers authorization; background operations never do.
func (d *Driver) Authorize(ctx context.Context, code string) error {
	rec, err := d.exchangeCode(ctx, code)
	if err != nil {
		return err
	}
	if err := d.creds.Store(d.fingerprint, rec); err != nil {
		return err
	}
	if err := d.manager.SetPlayerAuthCode(d.cfg.ID, code); err != nil {
		return err
	}
	slog.Info("Authorized cloud player", "player", d.cfg.ID, "expiresAt", rec.ExpiresAt)
	return nil
}

// Logout discards the cached credential and clears the issuing code from
// the live configuration so a future authorization starts clean.
func (d *Driver) Logout() error {
	if err := d.creds.Clear(d.fingerprint); err != nil {
		return err
	}
	return d.manager.SetPlayerAuthCode(d.cfg.ID, "")
}

// Refresh drops the entity cache.
func (d *Driver) Refresh() {
	d.cache.Clear()
}

// Dispose marks the driver disposed and clears its caches. In-flight
// requests are not cancelled; late results are discarded on arrival.
func (d *Driver) Dispose() {
	if d.disposed.Swap(true) {
		return
	}
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	d.cache.Clear()
	slog.Debug("Cloud driver disposed", "player", d.cfg.ID)
}

// write runs a state-changing call through the retry-poll executor:
// 204 (or 200) is applied, 202 is accepted-but-pending and re-issued
// after a fixed delay up to the attempt budget, anything else is a hard
// error. Without a valid token the call degrades to the helper fallback
// when one exists, or resolves false; it never blocks on interactive
// authorization.
func (d *Driver) write(ctx context.Context, command, method, path string, query url.Values, body any, fallback func(context.Context) bool) (bool, error) {
	if !d.hasToken() {
		if fallback != nil {
			return fallback(ctx), nil
		}
		return false, nil
	}

	return retrypoll.Do(ctx, func(ctx context.Context) (retrypoll.Outcome, error) {
		status, err := d.api.send(ctx, method, path, query, body)
		if err != nil {
			return 0, err
		}
		switch status {
		case http.StatusNoContent, http.StatusOK:
			return retrypoll.Applied, nil
		case http.StatusAccepted:
			metrics.RetryAttemptsTotal.WithLabelValues(d.cfg.ID, command).Inc()
			return retrypoll.Pending, nil
		case http.StatusUnauthorized, http.StatusForbidden:
			return 0, &player.AuthorizationError{Reason: fmt.Sprintf("%s rejected with status %d", path, status)}
		default:
			return 0, &player.UnexpectedResponseError{Endpoint: path, Status: status}
		}
	}, d.retries, d.retryDelay)
}

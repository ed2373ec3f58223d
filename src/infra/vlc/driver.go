package vlc

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"maestro/src/features/config"
	"maestro/src/player"
)

// Driver controls a VLC instance through its HTTP control endpoint.
// Every command is a single GET with the command encoded in the query
// string; the endpoint applies the command before answering, so no
// retry machinery is needed.
type Driver struct {
	cfg   config.Player
	base  *url.URL
	http  *http.Client
	cache *player.EntityCache

	mu        sync.Mutex
	connected bool
	disposed  atomic.Bool
}

const requestTimeout = 5 * time.Second

// Ensure Driver implements player.Driver.
var _ player.Driver = (*Driver)(nil)

// NewDriver builds a driver for the given player configuration.
func NewDriver(cfg config.Player) *Driver {
	base := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/",
	}
	if cfg.Password != "" {
		// The control endpoint authenticates with an empty username.
		base.User = url.UserPassword("", cfg.Password)
	}
	return &Driver{
		cfg:   cfg,
		base:  base,
		http:  &http.Client{Timeout: requestTimeout},
		cache: player.NewEntityCache(),
	}
}

// BaseURL returns the endpoint the driver talks to, credentials included.
func (d *Driver) BaseURL() string {
	return d.base.String()
}

// Connect probes the status endpoint. It reports true only when a new
// connection was established.
func (d *Driver) Connect(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return false, nil
	}

	if _, err := d.fetchStatus(ctx); err != nil {
		return false, err
	}

	d.connected = true
	d.cache.Clear()
	slog.Info("Connected to VLC", "player", d.cfg.ID, "host", d.cfg.Host, "port", d.cfg.Port)
	return true, nil
}

// IsConnected reports whether the last probe succeeded.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Status fetches and parses the current status document.
func (d *Driver) Status(ctx context.Context) (*player.Snapshot, error) {
	doc, err := d.fetchStatus(ctx)
	if err != nil {
		return nil, err
	}
	return d.snapshot(doc), nil
}

// Playlists lists the endpoint's top-level playlist containers, memoized
// until Refresh or reconnect.
func (d *Driver) Playlists(ctx context.Context) ([]*player.Playlist, error) {
	return d.cache.Playlists(ctx, func(ctx context.Context) ([]*player.Playlist, error) {
		doc, err := d.fetchPlaylist(ctx)
		if err != nil {
			return nil, err
		}
		var playlists []*player.Playlist
		for _, node := range doc.containers() {
			playlists = append(playlists, &player.Playlist{ID: node.ID, Name: node.Name})
		}
		return playlists, nil
	})
}

// Tracks lists a playlist's entries in document order.
func (d *Driver) Tracks(ctx context.Context, playlistID string) ([]*player.Track, error) {
	return d.cache.Tracks(ctx, playlistID, func(ctx context.Context) ([]*player.Track, error) {
		doc, err := d.fetchPlaylist(ctx)
		if err != nil {
			return nil, err
		}
		for _, node := range doc.containers() {
			if node.ID != playlistID {
				continue
			}
			var tracks []*player.Track
			for _, leaf := range node.flatten() {
				tracks = append(tracks, &player.Track{ID: leaf.ID, Name: leaf.Name, Artist: leaf.Artist})
			}
			return tracks, nil
		}
		return nil, nil
	})
}

// PlayItem starts playback of a playlist entry by its document id.
func (d *Driver) PlayItem(ctx context.Context, playlistID, trackID string) (bool, error) {
	params := url.Values{}
	params.Set("id", trackID)
	if err := d.command(ctx, "pl_play", params); err != nil {
		return false, err
	}
	return true, nil
}

// Play resumes playback.
func (d *Driver) Play(ctx context.Context) (bool, error) {
	if err := d.command(ctx, "pl_play", nil); err != nil {
		return false, err
	}
	return true, nil
}

// Pause toggles pause.
func (d *Driver) Pause(ctx context.Context) (bool, error) {
	if err := d.command(ctx, "pl_pause", nil); err != nil {
		return false, err
	}
	return true, nil
}

// Next skips to the next entry.
func (d *Driver) Next(ctx context.Context) (bool, error) {
	if err := d.command(ctx, "pl_next", nil); err != nil {
		return false, err
	}
	return true, nil
}

// Previous skips to the previous entry.
func (d *Driver) Previous(ctx context.Context) (bool, error) {
	if err := d.command(ctx, "pl_previous", nil); err != nil {
		return false, err
	}
	return true, nil
}

// SetVolume sets the output volume. The value is clamped to [0, 1] and
// scaled to the endpoint's 0..256 range.
func (d *Driver) SetVolume(ctx context.Context, volume float64) (bool, error) {
	volume = math.Min(1, math.Max(0, volume))
	params := url.Values{}
	params.Set("val", fmt.Sprintf("%d", int(math.Round(volume*fullVolume))))
	if err := d.command(ctx, "volume", params); err != nil {
		return false, err
	}
	return true, nil
}

// ToggleRepeat toggles repeating the current entry.
func (d *Driver) ToggleRepeat(ctx context.Context) (bool, error) {
	if err := d.command(ctx, "pl_repeat", nil); err != nil {
		return false, err
	}
	return true, nil
}

// ToggleShuffle toggles random playback.
func (d *Driver) ToggleShuffle(ctx context.Context) (bool, error) {
	if err := d.command(ctx, "pl_random", nil); err != nil {
		return false, err
	}
	return true, nil
}

// Devices is not a capability of the control endpoint; the list is
// always empty.
func (d *Driver) Devices(ctx context.Context) ([]*player.Device, error) {
	return []*player.Device{}, nil
}

// SelectDevice is unsupported; it soft-fails without a network call.
func (d *Driver) SelectDevice(ctx context.Context, deviceID string) (bool, error) {
	return false, nil
}

// Search filters the cached playlists and tracks by name. Best effort:
// a failed underlying fetch yields empty results.
func (d *Driver) Search(ctx context.Context, query string, kind player.SearchKind, limit, offset int) (*player.SearchResults, error) {
	results := &player.SearchResults{Tracks: []*player.Track{}, Playlists: []*player.Playlist{}}
	needle := strings.ToLower(query)

	playlists, err := d.Playlists(ctx)
	if err != nil {
		slog.Debug("Search fell back to empty results", "player", d.cfg.ID, "error", err)
		return results, nil
	}

	switch kind {
	case player.SearchPlaylists:
		for _, pl := range playlists {
			if strings.Contains(strings.ToLower(pl.Name), needle) {
				results.Playlists = append(results.Playlists, pl)
			}
		}
	default:
		for _, pl := range playlists {
			tracks, err := d.Tracks(ctx, pl.ID)
			if err != nil {
				continue
			}
			for _, track := range tracks {
				if strings.Contains(strings.ToLower(track.Name), needle) {
					results.Tracks = append(results.Tracks, track)
				}
			}
		}
	}

	clip(&results.Tracks, limit, offset)
	clipPlaylists(&results.Playlists, limit, offset)
	return results, nil
}

// Refresh drops the entity cache.
func (d *Driver) Refresh() {
	d.cache.Clear()
}

// Dispose marks the driver disposed and clears its caches. In-flight
// requests are not cancelled; their results are discarded on arrival.
func (d *Driver) Dispose() {
	if d.disposed.Swap(true) {
		return
	}
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	d.cache.Clear()
	slog.Debug("VLC driver disposed", "player", d.cfg.ID)
}

// command issues a single control command and discards the response body.
func (d *Driver) command(ctx context.Context, name string, params url.Values) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("command", name)
	_, err := d.get(ctx, "/requests/status.xml", params)
	return err
}

func (d *Driver) fetchStatus(ctx context.Context) (*statusDocument, error) {
	body, err := d.get(ctx, "/requests/status.xml", nil)
	if err != nil {
		return nil, err
	}
	var doc statusDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &player.ParseError{Source: "status", Err: err}
	}
	return &doc, nil
}

func (d *Driver) fetchPlaylist(ctx context.Context) (*playlistDocument, error) {
	body, err := d.get(ctx, "/requests/playlist.xml", nil)
	if err != nil {
		return nil, err
	}
	var doc playlistDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &player.ParseError{Source: "playlist", Err: err}
	}
	return &doc, nil
}

// get performs one GET against the control endpoint. Any status other
// than 200 is a hard error.
func (d *Driver) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	rel := &url.URL{Path: path}
	if params != nil {
		rel.RawQuery = params.Encode()
	}
	reqURL := d.base.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, err
	}
	if d.cfg.Password != "" {
		req.SetBasicAuth("", d.cfg.Password)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, &player.ConnectionError{Backend: "vlc", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &player.UnexpectedResponseError{Endpoint: path, Status: resp.StatusCode}
	}

	return readBody(resp)
}

// snapshot maps a status document to the domain snapshot.
func (d *Driver) snapshot(doc *statusDocument) *player.Snapshot {
	volume := float64(doc.Volume) / fullVolume
	volume = math.Min(1, math.Max(0, volume))

	var track *player.Track
	if title := doc.meta("title"); title != "" {
		track = &player.Track{
			ID:     doc.CurrentPlID,
			Name:   title,
			Artist: doc.meta("artist"),
		}
	} else if filename := doc.meta("filename"); filename != "" {
		track = &player.Track{ID: doc.CurrentPlID, Name: filename}
	}

	shuffle := doc.Random
	indicator := player.Indicator{Text: string(doc.playbackState())}
	if track != nil {
		indicator.Text = track.Name
		indicator.Tooltip = strings.TrimSpace(track.Artist + " " + track.Name)
	}

	return player.NewSnapshot(true, doc.playbackState(), track, volume, &shuffle, doc.repeatMode(), indicator)
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &player.ConnectionError{Backend: "vlc", Err: err}
	}
	return body, nil
}

func clip(items *[]*player.Track, limit, offset int) {
	*items = clipSlice(*items, limit, offset)
}

func clipPlaylists(items *[]*player.Playlist, limit, offset int) {
	*items = clipSlice(*items, limit, offset)
}

func clipSlice[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"maestro/src/player"
)

const defaultWebHelperBase = "http://127.0.0.1:3678"

// webHelper is the companion local discovery client. When the cloud API
// is unauthenticated the driver falls back to it for basic status and
// transport.
type webHelper struct {
	base *url.URL
	http *http.Client
}

func newWebHelper(rawURL string) *webHelper {
	if rawURL == "" {
		rawURL = defaultWebHelperBase
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		u, _ = url.Parse(defaultWebHelperBase)
	}
	return &webHelper{
		base: u,
		http: &http.Client{Timeout: 3 * time.Second},
	}
}

// helperStatus is the local helper's status document.
type helperStatus struct {
	Stopped        bool `json:"stopped"`
	Paused         bool `json:"paused"`
	Buffering      bool `json:"buffering"`
	Volume         int  `json:"volume"`
	VolumeSteps    int  `json:"volume_steps"`
	RepeatContext  bool `json:"repeat_context"`
	RepeatTrack    bool `json:"repeat_track"`
	ShuffleContext bool `json:"shuffle_context"`
	Track          *struct {
		URI         string   `json:"uri"`
		Name        string   `json:"name"`
		ArtistNames []string `json:"artist_names"`
	} `json:"track"`
}

// Status fetches the helper's playback state and maps it to a snapshot.
func (w *webHelper) Status(ctx context.Context) (*player.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base.String()+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, &player.ConnectionError{Backend: "spotify-helper", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &player.UnexpectedResponseError{Endpoint: "/status", Status: resp.StatusCode}
	}

	var status helperStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &player.ParseError{Source: "helper status", Err: err}
	}

	state := player.StatePlaying
	switch {
	case status.Stopped:
		state = player.StateStopped
	case status.Paused:
		state = player.StatePaused
	}

	steps := status.VolumeSteps
	if steps <= 0 {
		steps = 65535
	}
	volume := float64(status.Volume) / float64(steps)

	var track *player.Track
	if status.Track != nil {
		artist := ""
		if len(status.Track.ArtistNames) > 0 {
			artist = status.Track.ArtistNames[0]
		}
		track = &player.Track{ID: status.Track.URI, Name: status.Track.Name, Artist: artist}
	}

	repeat := player.RepeatNone
	switch {
	case status.RepeatTrack:
		repeat = player.RepeatTrack
	case status.RepeatContext:
		repeat = player.RepeatAll
	}

	shuffle := status.ShuffleContext
	indicator := player.Indicator{Text: string(state)}
	if track != nil {
		indicator.Text = track.Name
		indicator.Tooltip = track.Artist
	}

	return player.NewSnapshot(true, state, track, volume, &shuffle, repeat, indicator), nil
}

// Resume, Pause, Next and Previous issue the helper's basic transport
// commands. A helper failure is a soft failure for the caller.
func (w *webHelper) Resume(ctx context.Context) bool   { return w.command(ctx, "/player/resume") }
func (w *webHelper) Pause(ctx context.Context) bool    { return w.command(ctx, "/player/pause") }
func (w *webHelper) Next(ctx context.Context) bool     { return w.command(ctx, "/player/next") }
func (w *webHelper) Previous(ctx context.Context) bool { return w.command(ctx, "/player/prev") }

func (w *webHelper) command(ctx context.Context, path string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base.String()+path, nil)
	if err != nil {
		return false
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent
}

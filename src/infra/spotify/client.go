package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"maestro/src/player"
)

const (
	defaultAPIBase      = "https://api.spotify.com/v1"
	defaultAccountsBase = "https://accounts.spotify.com"
	requestTimeout      = 10 * time.Second
)

// apiClient is a thin bearer-token HTTP client for the cloud REST API.
// It reports raw status codes; the driver decides what counts as
// success, pending or failure.
type apiClient struct {
	base  *url.URL
	http  *http.Client
	token func() (string, bool)
}

func newAPIClient(base string, token func() (string, bool)) *apiClient {
	u, err := url.Parse(base)
	if err != nil {
		u, _ = url.Parse(defaultAPIBase)
	}
	return &apiClient{
		base:  u,
		http:  &http.Client{Timeout: requestTimeout},
		token: token,
	}
}

// get performs a GET and decodes a 200 body into dest. Other status
// codes are returned undecoded for the caller to classify.
func (c *apiClient) get(ctx context.Context, path string, query url.Values, dest any) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return resp.StatusCode, &player.ParseError{Source: strings.TrimPrefix(path, "/"), Err: err}
		}
	}
	return resp.StatusCode, nil
}

// send performs a state-changing call and returns the raw status code.
func (c *apiClient) send(ctx context.Context, method, path string, query url.Values, body any) (int, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, err
		}
	}
	resp, err := c.do(ctx, method, path, query, payload)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Response, error) {
	rel := &url.URL{Path: c.base.Path + path}
	if query != nil {
		rel.RawQuery = query.Encode()
	}
	reqURL := c.base.ResolveReference(rel)

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if tok, ok := c.token(); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &player.ConnectionError{Backend: "spotify", Err: err}
	}
	return resp, nil
}

// Wire shapes of the REST API responses the driver consumes.

type playerStateResponse struct {
	Device       *deviceResponse `json:"device"`
	ShuffleState bool            `json:"shuffle_state"`
	RepeatState  string          `json:"repeat_state"`
	IsPlaying    bool            `json:"is_playing"`
	Item         *trackResponse  `json:"item"`
}

type deviceResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	VolumePercent int    `json:"volume_percent"`
}

type deviceListResponse struct {
	Devices []deviceResponse `json:"devices"`
}

type trackResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (t *trackResponse) track() *player.Track {
	if t == nil {
		return nil
	}
	var artists []string
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return &player.Track{ID: t.ID, Name: t.Name, Artist: strings.Join(artists, ", ")}
}

type playlistItemResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type searchResponse struct {
	Tracks *struct {
		Items []trackResponse `json:"items"`
	} `json:"tracks"`
	Playlists *struct {
		Items []playlistItemResponse `json:"items"`
	} `json:"playlists"`
}

type playlistPageResponse struct {
	Items []playlistItemResponse `json:"items"`
}

type playlistTracksResponse struct {
	Items []struct {
		Track *trackResponse `json:"track"`
	} `json:"items"`
}

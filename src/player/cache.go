package player

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gosimple/unidecode"
)

// EntityCache memoizes a driver's playlist list and, per playlist, its
// track list. A nil playlist slice means "never fetched"; an empty one
// means "fetched, backend has none". Invalidation is explicit only:
// Clear is called on reconnect and on a user-initiated refresh, never on
// a timer.
type EntityCache struct {
	mu        sync.Mutex
	fetched   bool
	playlists []*Playlist
	tracks    map[string][]*Track
}

// NewEntityCache returns an empty, unfetched cache.
func NewEntityCache() *EntityCache {
	return &EntityCache{tracks: make(map[string][]*Track)}
}

// Playlists returns the cached playlist list, fetching it with fetch on
// first use. Results are sorted case-insensitively by name and kept in
// that order for subsequent calls.
func (c *EntityCache) Playlists(ctx context.Context, fetch func(context.Context) ([]*Playlist, error)) ([]*Playlist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetched {
		return c.playlists, nil
	}

	playlists, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if playlists == nil {
		playlists = []*Playlist{}
	}
	sort.SliceStable(playlists, func(i, j int) bool {
		return sortKey(playlists[i].Name) < sortKey(playlists[j].Name)
	})
	c.playlists = playlists
	c.fetched = true
	return c.playlists, nil
}

// Tracks returns the cached track list for a playlist, fetching it on
// first use. Track order is the backend's document order and is never
// re-sorted.
func (c *EntityCache) Tracks(ctx context.Context, playlistID string, fetch func(context.Context) ([]*Track, error)) ([]*Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tracks, ok := c.tracks[playlistID]; ok {
		return tracks, nil
	}

	tracks, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []*Track{}
	}
	c.tracks[playlistID] = tracks
	return tracks, nil
}

// Clear drops every cached entity.
func (c *EntityCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetched = false
	c.playlists = nil
	c.tracks = make(map[string][]*Track)
}

// sortKey folds a display name so playlists sort the same regardless of
// case or diacritics.
func sortKey(name string) string {
	return strings.ToLower(unidecode.Unidecode(name))
}

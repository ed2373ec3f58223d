package player

import "context"

// SearchKind selects which entity type a search targets.
type SearchKind string

const (
	SearchTracks    SearchKind = "track"
	SearchPlaylists SearchKind = "playlist"
)

// SearchResults holds the entities matched by a search. Backends that
// cannot serve a search return empty collections, never an error.
type SearchResults struct {
	Tracks    []*Track    `json:"tracks"`
	Playlists []*Playlist `json:"playlists"`
}

// Driver is the contract every remote player backend implements. A driver
// is bound to a single backend connection and owns its entity cache.
//
// Transport controls return (applied, err). A hard error means the
// transport failed or the backend answered outside its documented
// protocol; (false, nil) is a legitimate outcome meaning the change is
// not believed to have taken effect (unsupported capability, exhausted
// retries, missing credentials). Callers must not treat false as an
// error.
type Driver interface {
	// Connect establishes the backend connection. It is idempotent and
	// reports whether a new connection was made (false when already
	// connected). The entity cache is cleared whenever a new connection
	// is established.
	Connect(ctx context.Context) (bool, error)

	// IsConnected reports whether the driver currently holds a live
	// connection.
	IsConnected() bool

	// Status returns a fresh snapshot of the backend's playback state.
	// "Nothing playing" is not an error; the track field is simply nil.
	Status(ctx context.Context) (*Snapshot, error)

	// Playlists returns the backend's playlists, memoized until Refresh
	// or reconnect.
	Playlists(ctx context.Context) ([]*Playlist, error)

	// Tracks returns the tracks of a playlist, memoized per playlist.
	Tracks(ctx context.Context, playlistID string) ([]*Track, error)

	// PlayItem starts playback of a track within a playlist.
	PlayItem(ctx context.Context, playlistID, trackID string) (bool, error)

	Play(ctx context.Context) (bool, error)
	Pause(ctx context.Context) (bool, error)
	Next(ctx context.Context) (bool, error)
	Previous(ctx context.Context) (bool, error)

	// SetVolume sets the backend volume. The value is clamped to [0, 1]
	// before it reaches the wire.
	SetVolume(ctx context.Context, volume float64) (bool, error)

	ToggleRepeat(ctx context.Context) (bool, error)
	ToggleShuffle(ctx context.Context) (bool, error)

	// Devices lists the backend's output devices. Restricted devices are
	// included; selecting one is a permanent no-op.
	Devices(ctx context.Context) ([]*Device, error)

	// SelectDevice transfers playback to the given output device.
	SelectDevice(ctx context.Context, deviceID string) (bool, error)

	// Search looks up tracks or playlists. Best effort: any internal
	// failure degrades to empty results.
	Search(ctx context.Context, query string, kind SearchKind, limit, offset int) (*SearchResults, error)

	// Refresh drops the entity cache so the next listing refetches.
	Refresh()

	// Dispose releases all resources. Idempotent. In-flight requests are
	// not cancelled; their late results are discarded on arrival.
	Dispose()
}

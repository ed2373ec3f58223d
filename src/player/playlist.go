package player

// Playlist is a named, ordered collection of tracks on a remote backend.
// Ids are taken verbatim from the backend.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track is a single playable entry of a playlist.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist,omitempty"`
}

// Device is an output device the backend can route playback to.
// Restricted devices are reported by the backend but cannot be selected;
// their selection never reaches the network.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	Restricted bool   `json:"restricted"`
}

package player

// PlaybackState describes what the backend's transport is doing.
type PlaybackState string

const (
	StateStopped PlaybackState = "stopped"
	StatePaused  PlaybackState = "paused"
	StatePlaying PlaybackState = "playing"
)

// RepeatMode describes the backend's repeat setting. RepeatUnknown is
// used when the authoritative lookup failed and the real mode cannot be
// determined.
type RepeatMode string

const (
	RepeatNone    RepeatMode = "none"
	RepeatAll     RepeatMode = "all"
	RepeatTrack   RepeatMode = "track"
	RepeatUnknown RepeatMode = "unknown"
)

// Indicator is the auxiliary info shown next to a player's status by
// whatever presentation layer consumes the snapshot.
type Indicator struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip,omitempty"`
	Color   string `json:"color,omitempty"`
	Command string `json:"command,omitempty"`
}

// Snapshot is an immutable point-in-time view of a driver's playback
// status. It is fully populated at construction and never mutated once
// handed to a consumer.
type Snapshot struct {
	IsConnected bool          `json:"isConnected"`
	State       PlaybackState `json:"state"`
	Track       *Track        `json:"track,omitempty"`
	Volume      float64       `json:"volume"`
	IsMute      bool          `json:"isMute"`
	Shuffle     *bool         `json:"shuffle,omitempty"`
	Repeat      RepeatMode    `json:"repeat"`
	Indicator   Indicator     `json:"indicator"`
}

// NewSnapshot builds a snapshot, deriving IsMute from the stored volume.
func NewSnapshot(connected bool, state PlaybackState, track *Track, volume float64, shuffle *bool, repeat RepeatMode, indicator Indicator) *Snapshot {
	return &Snapshot{
		IsConnected: connected,
		State:       state,
		Track:       track,
		Volume:      volume,
		IsMute:      volume <= 0,
		Shuffle:     shuffle,
		Repeat:      repeat,
		Indicator:   indicator,
	}
}

// Disconnected returns the snapshot published for a player with no live
// connection.
func Disconnected() *Snapshot {
	return NewSnapshot(false, StateStopped, nil, 0, nil, RepeatUnknown, Indicator{Text: "disconnected"})
}

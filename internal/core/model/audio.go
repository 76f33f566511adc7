package model

// PlaybackState is the Audio Controller state.
type PlaybackState string

const (
	AudioPlaying PlaybackState = "playing"
	AudioStopped PlaybackState = "stopped"
)

// AudioState is a read-only view of the Audio Controller.
type AudioState struct {
	State     PlaybackState `json:"state"`
	TrackName string        `json:"trackName"`
	TrackInfo string        `json:"trackInfo"`
	Volume    int           `json:"volume"`
}

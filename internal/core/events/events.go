package events

import "focusplay/internal/core/model"

// Type defines the kind of event carried by the bus.
type Type string

const (
	TimerTicked       Type = "timerTicked"
	TimerCompleted    Type = "timerCompleted"
	AudioStateChanged Type = "audioStateChanged"
	StatsUpdated      Type = "statsUpdated"
	Notification      Type = "notification"
)

// Event is a single bus message. Only the fields relevant to Type are set.
type Event struct {
	Type Type

	// Timer events.
	SessionID    string
	RunID        string
	Kind         model.PhaseKind
	RemainingSec int
	TotalSec     int

	Audio model.AudioState
	Stats model.Stats

	Title string
	Body  string
}

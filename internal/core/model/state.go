package model

import "time"

// Phase is the Timer Engine execution state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
)

// PhaseKind tells which countdown is active, orthogonal to Phase.
type PhaseKind string

const (
	KindWork  PhaseKind = "work"
	KindBreak PhaseKind = "break"
)

// Valid reports whether kind is Work or Break.
func (kind PhaseKind) Valid() bool {
	return kind == KindWork || kind == KindBreak
}

// TimerState is a point-in-time read of the Timer Engine.
type TimerState struct {
	Running      bool      `json:"running"`
	TotalSec     int       `json:"totalSec"`
	RemainingSec int       `json:"remainingSec"`
	SessionID    string    `json:"sessionId"`
	RunID        string    `json:"runId"`
	Phase        Phase     `json:"phase"`
	Kind         PhaseKind `json:"kind"`
	// Unsaved is set when the last snapshot write failed; the session keeps
	// running in memory but may not be resumable.
	Unsaved bool `json:"unsaved"`
}

// Snapshot is the persisted form of an in-progress session.
type Snapshot struct {
	SessionID    string    `yaml:"session_id" json:"profileId"`
	Kind         PhaseKind `yaml:"kind" json:"kind"`
	TotalSec     int       `yaml:"total_sec" json:"totalSec"`
	RemainingSec int       `yaml:"remaining_sec" json:"remainingSec"`
	Paused       bool      `yaml:"paused,omitempty" json:"paused"`
	SavedAt      int64     `yaml:"saved_at" json:"savedAt"`
}

// CompletionRecord marks one finished work phase.
type CompletionRecord struct {
	RunID       string    `json:"runId"`
	Date        string    `json:"date"`
	ProfileID   string    `json:"profileId"`
	CompletedAt time.Time `json:"completedAt"`
}

// Stats is derived from completion records.
type Stats struct {
	SessionsToday int `json:"sessionsToday"`
	Streak        int `json:"streak"`
}

// DateLayout formats calendar days in completion records.
const DateLayout = "2006-01-02"

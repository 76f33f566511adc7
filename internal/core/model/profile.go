package model

import "strings"

// BreakSuffix distinguishes the session id of a break from its work session.
const BreakSuffix = "-break"

// Profile is a user-defined session template.
type Profile struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	WorkSec        int    `yaml:"work_sec" json:"durationSec"`
	MusicPath      string `yaml:"music_path,omitempty" json:"musicPath"`
	Shuffle        bool   `yaml:"shuffle,omitempty" json:"shuffle"`
	BreakSec       int    `yaml:"break_sec" json:"breakDurationSec"`
	BreakMusicPath string `yaml:"break_music_path,omitempty" json:"breakMusicPath"`
	BreakShuffle   bool   `yaml:"break_shuffle,omitempty" json:"breakShuffle"`
	IsDefault      bool   `yaml:"is_default,omitempty" json:"isDefault"`
}

// HasBreak reports whether the profile chains into a break.
func (profile Profile) HasBreak() bool {
	return profile.BreakSec > 0
}

// BreakMusic returns the music used during breaks. The break path wins when set,
// and its shuffle flag comes with it; otherwise the work path and work shuffle
// flag are used.
func (profile Profile) BreakMusic() (string, bool) {
	if profile.BreakMusicPath != "" {
		return profile.BreakMusicPath, profile.BreakShuffle
	}
	return profile.MusicPath, profile.Shuffle
}

// SessionID returns the timer session id for the given phase kind.
func (profile Profile) SessionID(kind PhaseKind) string {
	if kind == KindBreak {
		return profile.ID + BreakSuffix
	}
	return profile.ID
}

// ProfileIDOfSession returns the profile a session id of kind belongs to. Only
// break sessions carry the suffix; a work session id is the profile id itself.
func ProfileIDOfSession(sessionID string, kind PhaseKind) string {
	if kind == KindBreak {
		return strings.TrimSuffix(sessionID, BreakSuffix)
	}
	return sessionID
}

// DefaultProfiles returns the profiles written on first run.
func DefaultProfiles() []Profile {
	return []Profile{
		{ID: "deep-work", Name: "Deep Work - 90 min", WorkSec: 90 * 60, IsDefault: true},
		{ID: "pomodoro", Name: "Pomodoro - 25 min", WorkSec: 25 * 60, BreakSec: 5 * 60},
		{ID: "short-break", Name: "Short Break - 5 min", WorkSec: 5 * 60},
	}
}

package tray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"focusplay/internal/core/model"
)

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "00:00", formatRemaining(-4))
	assert.Equal(t, "00:59", formatRemaining(59))
	assert.Equal(t, "25:00", formatRemaining(1500))
	assert.Equal(t, "1:30:00", formatRemaining(5400))
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "Ready", statusLine(view{phase: model.PhaseIdle}))
	assert.Equal(t, "Work 24:59", statusLine(view{phase: model.PhaseRunning, kind: model.KindWork, remaining: 1499}))
	assert.Equal(t, "Break 04:00 (paused)", statusLine(view{phase: model.PhasePaused, kind: model.KindBreak, remaining: 240}))
	assert.Equal(t, "Work complete", statusLine(view{phase: model.PhaseCompleted, kind: model.KindWork}))
}

func TestAudioLine(t *testing.T) {
	assert.Equal(t, "Music off", audioLine(model.AudioState{State: model.AudioStopped}))
	assert.Equal(t, "Music: Error: no playable tracks", audioLine(model.AudioState{State: model.AudioStopped, TrackInfo: "Error: no playable tracks"}))
	assert.Equal(t, "♪ rain.mp3 (Looping)", audioLine(model.AudioState{State: model.AudioPlaying, TrackName: "rain.mp3", TrackInfo: "Looping"}))
}

func TestStatsLine(t *testing.T) {
	assert.Equal(t, "Today: 0 · Streak: 0 days", statsLine(model.Stats{}))
	assert.Equal(t, "Today: 3 · Streak: 1 day", statsLine(model.Stats{SessionsToday: 3, Streak: 1}))
}

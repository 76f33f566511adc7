package tray

import (
	"fmt"
	"strings"

	"focusplay/internal/core/model"
)

// view is what the tray shows about the engine.
type view struct {
	phase     model.Phase
	kind      model.PhaseKind
	remaining int
	audio     model.AudioState
	stats     model.Stats
}

func formatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	seconds = seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func kindLabel(kind model.PhaseKind) string {
	if kind == model.KindBreak {
		return "Break"
	}
	return "Work"
}

func statusLine(current view) string {
	switch current.phase {
	case model.PhaseRunning:
		return fmt.Sprintf("%s %s", kindLabel(current.kind), formatRemaining(current.remaining))
	case model.PhasePaused:
		return fmt.Sprintf("%s %s (paused)", kindLabel(current.kind), formatRemaining(current.remaining))
	case model.PhaseCompleted:
		return kindLabel(current.kind) + " complete"
	default:
		return "Ready"
	}
}

func audioLine(audio model.AudioState) string {
	if audio.State != model.AudioPlaying {
		if strings.HasPrefix(audio.TrackInfo, "Error") {
			return "Music: " + audio.TrackInfo
		}
		return "Music off"
	}
	if audio.TrackInfo == "" {
		return "♪ " + audio.TrackName
	}
	return fmt.Sprintf("♪ %s (%s)", audio.TrackName, audio.TrackInfo)
}

func statsLine(stats model.Stats) string {
	days := "days"
	if stats.Streak == 1 {
		days = "day"
	}
	return fmt.Sprintf("Today: %d · Streak: %d %s", stats.SessionsToday, stats.Streak, days)
}

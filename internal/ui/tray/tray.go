// Package tray presents the engine in the desktop system tray. It observes the
// event bus like any other subscriber and sends commands through callbacks.
package tray

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"focusplay/internal/core/events"
	"focusplay/internal/core/model"
)

const menuTitle = "FocusPlay"

// VolumePresets are offered in the volume submenu.
var VolumePresets = []int{0, 25, 50, 75, 100}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnStartWork   func(profileID string)
	OnResume      func(snapshot model.Snapshot)
	OnTogglePause func()
	OnStop        func()
	OnSkip        func()
	OnVolume      func(level int)
	OnQuit        func()
}

// Manager handles system tray state. Its methods must run on the fyne thread.
type Manager struct {
	app       desktop.App
	callbacks Callbacks
	profiles  []model.Profile
	resumable *model.Snapshot
	current   view
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
		current:   view{phase: model.PhaseIdle, kind: model.KindWork},
	}
	manager.refreshMenu()
	return manager
}

// SetProfiles replaces the profile submenu.
func (manager *Manager) SetProfiles(profiles []model.Profile) {
	manager.profiles = append([]model.Profile(nil), profiles...)
	manager.refreshMenu()
}

// SetResumable offers a persisted session for resuming; nil withdraws it.
func (manager *Manager) SetResumable(snapshot *model.Snapshot) {
	manager.resumable = snapshot
	manager.refreshMenu()
}

// SetTimer updates the status line from a Timer State.
func (manager *Manager) SetTimer(state model.TimerState) {
	manager.current.phase = state.Phase
	manager.current.kind = state.Kind
	manager.current.remaining = state.RemainingSec
	manager.refreshMenu()
}

// SetAudio updates the music line.
func (manager *Manager) SetAudio(state model.AudioState) {
	manager.current.audio = state
	manager.refreshMenu()
}

// SetStats updates the stats line.
func (manager *Manager) SetStats(stats model.Stats) {
	manager.current.stats = stats
	manager.refreshMenu()
}

// Observe applies bus events to the tray until sub is cancelled. Notification
// events go to notify.
func (manager *Manager) Observe(sub *events.Subscription, notify func(title, body string)) {
	for event := range sub.C() {
		if event.Type == events.Notification {
			if notify != nil {
				notify(event.Title, event.Body)
			}
			continue
		}
		fyne.Do(func() {
			manager.apply(event)
		})
	}
}

func (manager *Manager) apply(event events.Event) {
	switch event.Type {
	case events.TimerTicked:
		manager.current.phase = model.PhaseRunning
		manager.current.kind = event.Kind
		manager.current.remaining = event.RemainingSec
	case events.TimerCompleted:
		manager.current.phase = model.PhaseCompleted
		manager.current.kind = event.Kind
		manager.current.remaining = 0
	case events.AudioStateChanged:
		manager.current.audio = event.Audio
	case events.StatsUpdated:
		manager.current.stats = event.Stats
	default:
		return
	}
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(manager.buildMenu())
}

func (manager *Manager) buildMenu() *fyne.Menu {
	status := disabled(fmt.Sprintf("Status: %s", statusLine(manager.current)))
	music := disabled(audioLine(manager.current.audio))
	stats := disabled(statsLine(manager.current.stats))

	start := fyne.NewMenuItem("Start work", nil)
	items := make([]*fyne.MenuItem, 0, len(manager.profiles))
	for _, profile := range manager.profiles {
		id := profile.ID
		label := profile.Name
		if profile.IsDefault {
			label += " (default)"
		}
		items = append(items, fyne.NewMenuItem(label, func() {
			if manager.callbacks.OnStartWork != nil {
				manager.callbacks.OnStartWork(id)
			}
		}))
	}
	start.ChildMenu = fyne.NewMenu("", items...)
	start.Disabled = len(items) == 0

	pauseLabel := "Pause"
	if manager.current.phase == model.PhasePaused {
		pauseLabel = "Resume"
	}
	active := manager.current.phase == model.PhaseRunning || manager.current.phase == model.PhasePaused
	pause := fyne.NewMenuItem(pauseLabel, func() {
		if manager.callbacks.OnTogglePause != nil {
			manager.callbacks.OnTogglePause()
		}
	})
	pause.Disabled = !active

	stop := fyne.NewMenuItem("Stop", func() {
		if manager.callbacks.OnStop != nil {
			manager.callbacks.OnStop()
		}
	})
	stop.Disabled = manager.current.phase == model.PhaseIdle

	skipLabel := "Skip to break"
	if manager.current.kind == model.KindBreak {
		skipLabel = "Skip break"
	}
	skip := fyne.NewMenuItem(skipLabel, func() {
		if manager.callbacks.OnSkip != nil {
			manager.callbacks.OnSkip()
		}
	})
	skip.Disabled = !active

	volume := fyne.NewMenuItem(fmt.Sprintf("Volume (%d%%)", manager.current.audio.Volume), nil)
	presets := make([]*fyne.MenuItem, 0, len(VolumePresets))
	for _, level := range VolumePresets {
		item := fyne.NewMenuItem(fmt.Sprintf("%d%%", level), func() {
			if manager.callbacks.OnVolume != nil {
				manager.callbacks.OnVolume(level)
			}
		})
		item.Checked = manager.current.audio.Volume == level
		presets = append(presets, item)
	}
	volume.ChildMenu = fyne.NewMenu("", presets...)

	quit := fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	})
	quit.IsQuit = true

	controls := []*fyne.MenuItem{status, music, stats, fyne.NewMenuItemSeparator()}
	if manager.resumable != nil {
		snapshot := *manager.resumable
		label := fmt.Sprintf("Resume %s (%s left)", snapshot.SessionID, formatRemaining(snapshot.RemainingSec))
		controls = append(controls, fyne.NewMenuItem(label, func() {
			if manager.callbacks.OnResume != nil {
				manager.callbacks.OnResume(snapshot)
			}
		}))
	}
	controls = append(controls, start, pause, stop, skip,
		fyne.NewMenuItemSeparator(),
		volume,
		fyne.NewMenuItemSeparator(),
		quit,
	)
	return fyne.NewMenu(menuTitle, controls...)
}

func disabled(label string) *fyne.MenuItem {
	item := fyne.NewMenuItem(label, nil)
	item.Disabled = true
	return item
}

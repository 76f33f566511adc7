// Package app is the command surface a presentation layer binds to. It routes
// timer commands through the session orchestrator, audio commands to the audio
// controller, and record operations to the stores.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"focusplay/internal/core/events"
	"focusplay/internal/core/model"
	"focusplay/internal/core/session"
)

// Audio is the audio command surface.
type Audio interface {
	PlayLooping(path string) error
	PlayShuffleFolder(folder string) error
	Stop()
	SetVolume(v int) int
	GetState() model.AudioState
}

// ProfileStore persists profiles.
type ProfileStore interface {
	List() ([]model.Profile, error)
	Get(id string) (model.Profile, error)
	Save(profile model.Profile) (model.Profile, error)
	Delete(id string) error
}

// SettingsStore persists the settings record.
type SettingsStore interface {
	Get() model.Settings
	Save(settings model.Settings) error
}

// App binds the engine to callers.
type App struct {
	session  *session.Orchestrator
	audio    Audio
	profiles ProfileStore
	settings SettingsStore
	bus      *events.Bus
	logger   zerolog.Logger
}

// New creates an App.
func New(orchestrator *session.Orchestrator, audio Audio, profiles ProfileStore, settings SettingsStore, bus *events.Bus, logger *zerolog.Logger) *App {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "app").Logger()
	}
	return &App{
		session:  orchestrator,
		audio:    audio,
		profiles: profiles,
		settings: settings,
		bus:      bus,
		logger:   log,
	}
}

// Subscribe registers an observer for the given event types, or all of them.
func (app *App) Subscribe(buffer int, types ...events.Type) *events.Subscription {
	return app.bus.Subscribe(buffer, types...)
}

// StartTimer starts a bare countdown for sessionID.
func (app *App) StartTimer(sessionID string, totalSec int) error {
	return app.session.StartTimer(sessionID, totalSec)
}

// StartWork starts the work phase of the profile with id.
func (app *App) StartWork(profileID string) error {
	profile, err := app.profiles.Get(profileID)
	if err != nil {
		return err
	}
	return app.session.StartWork(profile)
}

// StartBreak starts the break phase of the profile with id.
func (app *App) StartBreak(profileID string) error {
	profile, err := app.profiles.Get(profileID)
	if err != nil {
		return err
	}
	return app.session.StartBreak(profile)
}

// PauseTimer pauses the running countdown.
func (app *App) PauseTimer() error {
	return app.session.Pause()
}

// ResumeTimer continues a paused countdown when snapshot is nil, and restarts a
// persisted session otherwise.
func (app *App) ResumeTimer(snapshot *model.Snapshot) error {
	if snapshot == nil {
		return app.session.Resume()
	}
	return app.session.ResumeSession(*snapshot)
}

// StopTimer ends the countdown and discards the resumable snapshot.
func (app *App) StopTimer() error {
	return app.session.Stop()
}

// Skip abandons the current phase without credit.
func (app *App) Skip() error {
	return app.session.Skip()
}

// GetTimerState returns the Timer State.
func (app *App) GetTimerState() model.TimerState {
	return app.session.Status().Timer
}

// Status returns the cycle view including phase kind and pending auto-chain.
func (app *App) Status() session.Status {
	return app.session.Status()
}

// PlayLooping plays one file on loop.
func (app *App) PlayLooping(path string) error {
	return app.audio.PlayLooping(path)
}

// PlayShuffleFolder plays the media files of folder in shuffled order.
func (app *App) PlayShuffleFolder(folder string) error {
	return app.audio.PlayShuffleFolder(folder)
}

// StopAudio halts playback.
func (app *App) StopAudio() {
	app.audio.Stop()
}

// SetVolume clamps v to 0-100, applies it and returns the applied value.
func (app *App) SetVolume(v int) int {
	return app.audio.SetVolume(v)
}

// GetAudioState returns the Audio State.
func (app *App) GetAudioState() model.AudioState {
	return app.audio.GetState()
}

// CheckResumeSession returns the resumable snapshot, or nil.
func (app *App) CheckResumeSession() (*model.Snapshot, error) {
	return app.session.CheckResumeSession()
}

// GetStats returns sessions today and the current streak.
func (app *App) GetStats(ctx context.Context) (model.Stats, error) {
	return app.session.Stats(ctx)
}

// RecordSessionComplete credits one completion to the active profile.
func (app *App) RecordSessionComplete(ctx context.Context) (model.Stats, error) {
	return app.session.RecordSessionComplete(ctx)
}

// LoadProfiles lists every profile.
func (app *App) LoadProfiles() ([]model.Profile, error) {
	return app.profiles.List()
}

// GetProfile returns the profile with id.
func (app *App) GetProfile(id string) (model.Profile, error) {
	return app.profiles.Get(id)
}

// SaveProfile creates or replaces a profile and returns it with its id.
func (app *App) SaveProfile(profile model.Profile) (model.Profile, error) {
	saved, err := app.profiles.Save(profile)
	if err != nil {
		return model.Profile{}, err
	}
	app.logger.Info().Str("profile", saved.ID).Msg("profile saved")
	return saved, nil
}

// DeleteProfile removes a profile. A running session of it is unaffected.
func (app *App) DeleteProfile(id string) error {
	if err := app.profiles.Delete(id); err != nil {
		return err
	}
	app.logger.Info().Str("profile", id).Msg("profile deleted")
	return nil
}

// GetSettings returns the settings record.
func (app *App) GetSettings() model.Settings {
	return app.settings.Get()
}

// SaveSettings persists settings and applies the default volume.
func (app *App) SaveSettings(settings model.Settings) error {
	if err := app.settings.Save(settings); err != nil {
		return err
	}
	app.audio.SetVolume(settings.DefaultVolume)
	return nil
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusplay/internal/audio"
	"focusplay/internal/core/errs"
	"focusplay/internal/core/events"
	"focusplay/internal/core/model"
	"focusplay/internal/core/session"
	"focusplay/internal/core/timer"
	"focusplay/internal/storage"
)

// silentPlayer accepts every file and plays until cancelled.
type silentPlayer struct{}

func (silentPlayer) Inspect(string) error { return nil }

func (silentPlayer) Play(ctx context.Context, _ string) error {
	<-ctx.Done()
	return nil
}

func (silentPlayer) SetVolume(float64) {}

func newApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	clock := clockwork.NewFakeClock()
	bus := events.NewBus()

	snapshots := storage.NewSnapshotStore(dir, clock, storage.DefaultSnapshotMaxAge)
	history, err := storage.OpenHistory(dir, clock)
	require.NoError(t, err)
	profiles := storage.NewProfileStore(dir)
	settings, err := storage.NewSettingsStore(dir)
	require.NoError(t, err)

	engine := timer.New(snapshots, bus, timer.Options{Clock: clock})
	controller := audio.New(silentPlayer{}, bus, audio.Options{Volume: settings.Get().DefaultVolume})
	orchestrator := session.New(session.Dependencies{
		Timer:     engine,
		Audio:     controller,
		History:   history,
		Snapshots: snapshots,
		Profiles:  profiles,
		Settings:  settings,
		Bus:       bus,
	}, session.Options{Clock: clock})

	t.Cleanup(func() {
		_ = engine.Stop()
		controller.Stop()
		orchestrator.Close()
		bus.Close()
		_ = history.Close()
	})
	return New(orchestrator, controller, profiles, settings, bus, nil), dir
}

func TestFirstRunProfiles(t *testing.T) {
	app, _ := newApp(t)
	profiles, err := app.LoadProfiles()
	require.NoError(t, err)
	require.Len(t, profiles, 3)

	pomodoro, err := app.GetProfile("pomodoro")
	require.NoError(t, err)
	assert.Equal(t, 25*60, pomodoro.WorkSec)
	assert.Equal(t, 5*60, pomodoro.BreakSec)

	_, err = app.GetProfile("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestProfileCrud(t *testing.T) {
	app, _ := newApp(t)
	saved, err := app.SaveProfile(model.Profile{Name: "Reading", WorkSec: 1200, IsDefault: true})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	profiles, err := app.LoadProfiles()
	require.NoError(t, err)
	defaults := 0
	for _, profile := range profiles {
		if profile.IsDefault {
			defaults++
			assert.Equal(t, saved.ID, profile.ID)
		}
	}
	assert.Equal(t, 1, defaults)

	_, err = app.SaveProfile(model.Profile{Name: "Broken", WorkSec: 0})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)

	require.NoError(t, app.DeleteProfile(saved.ID))
	_, err = app.GetProfile(saved.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeletingActiveProfileKeepsSessionRunning(t *testing.T) {
	app, _ := newApp(t)
	require.NoError(t, app.StartWork("pomodoro"))
	require.NoError(t, app.DeleteProfile("pomodoro"))

	state := app.GetTimerState()
	assert.True(t, state.Running)
	assert.Equal(t, "pomodoro", state.SessionID)
}

func TestSaveSettingsAppliesVolume(t *testing.T) {
	app, dir := newApp(t)
	assert.Equal(t, 70, app.GetAudioState().Volume)

	settings := app.GetSettings()
	settings.DefaultVolume = 35
	settings.Theme = "ocean"
	require.NoError(t, app.SaveSettings(settings))
	assert.Equal(t, 35, app.GetAudioState().Volume)
	assert.Equal(t, "ocean", app.GetSettings().Theme)

	settings.Theme = "neon"
	assert.ErrorIs(t, app.SaveSettings(settings), errs.ErrInvalidArgument)
	assert.Equal(t, "ocean", app.GetSettings().Theme)

	_, err := os.Stat(filepath.Join(dir, "settings.yaml"))
	assert.NoError(t, err)
}

func TestVolumeIsClamped(t *testing.T) {
	app, _ := newApp(t)
	assert.Equal(t, 100, app.SetVolume(150))
	assert.Equal(t, 0, app.SetVolume(-5))
}

func TestPauseLeavesResumableSnapshotAndStopClearsIt(t *testing.T) {
	app, _ := newApp(t)
	require.NoError(t, app.StartTimer("pomodoro", 1500))
	require.NoError(t, app.PauseTimer())

	snapshot, err := app.CheckResumeSession()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.Paused)
	assert.Equal(t, 1500, snapshot.RemainingSec)

	require.NoError(t, app.ResumeTimer(nil))
	assert.True(t, app.GetTimerState().Running)

	require.NoError(t, app.StopTimer())
	state := app.GetTimerState()
	assert.False(t, state.Running)
	assert.Equal(t, state.TotalSec, state.RemainingSec)

	snapshot, err = app.CheckResumeSession()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestResumeFromSnapshotAfterRestart(t *testing.T) {
	app, _ := newApp(t)
	saved := &model.Snapshot{SessionID: "pomodoro", Kind: model.KindWork, TotalSec: 1500, RemainingSec: 120}
	require.NoError(t, app.ResumeTimer(saved))

	state := app.GetTimerState()
	assert.True(t, state.Running)
	assert.Equal(t, 120, state.RemainingSec)
	assert.Equal(t, 1500, state.TotalSec)
}

func TestPauseWhileIdleFails(t *testing.T) {
	app, _ := newApp(t)
	assert.ErrorIs(t, app.PauseTimer(), errs.ErrInvalidState)
	assert.ErrorIs(t, app.ResumeTimer(nil), errs.ErrInvalidState)
}

func TestRecordSessionCompleteUpdatesStats(t *testing.T) {
	app, _ := newApp(t)
	sub := app.Subscribe(4, events.StatsUpdated)
	defer sub.Cancel()

	stats, err := app.RecordSessionComplete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SessionsToday)
	assert.Equal(t, 1, stats.Streak)

	event := <-sub.C()
	assert.Equal(t, stats, event.Stats)

	again, err := app.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats, again)
}

func TestAudioErrorsReachCaller(t *testing.T) {
	app, dir := newApp(t)
	err := app.PlayLooping(filepath.Join(dir, "missing.mp3"))
	assert.ErrorIs(t, err, errs.ErrAudioSource)
	assert.Equal(t, model.AudioStopped, app.GetAudioState().State)

	err = app.PlayShuffleFolder(dir)
	assert.ErrorIs(t, err, errs.ErrAudioSource)
}

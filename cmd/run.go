package main

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"focusplay/internal/app"
	"focusplay/internal/audio"
	"focusplay/internal/config"
	"focusplay/internal/core/events"
	"focusplay/internal/core/model"
	"focusplay/internal/core/session"
	"focusplay/internal/core/timer"
	"focusplay/internal/logging"
	"focusplay/internal/platform"
	"focusplay/internal/storage"
	"focusplay/internal/ui/tray"
)

// services is the wired engine behind the tray.
type services struct {
	app          *app.App
	bus          *events.Bus
	controller   *audio.Controller
	orchestrator *session.Orchestrator
	history      *storage.History
}

func openServices(cfg config.Config, logger *zerolog.Logger) (*services, error) {
	clock := clockwork.NewRealClock()

	settings, err := storage.NewSettingsStore(cfg.DataDir)
	if err != nil {
		logger.Warn().Err(err).Msg("settings unreadable, using defaults")
	}
	profiles := storage.NewProfileStore(cfg.DataDir)
	if _, err := profiles.Load(); err != nil {
		return nil, err
	}
	snapshots := storage.NewSnapshotStore(cfg.DataDir, clock, cfg.SnapshotMaxAge)
	history, err := storage.OpenHistory(cfg.DataDir, clock)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	engine := timer.New(snapshots, bus, timer.Options{Clock: clock, Logger: logger})
	controller := audio.New(audio.NewBeepPlayer(cfg.SampleRate), bus, audio.Options{
		Extensions: cfg.AudioExtensions,
		Recursive:  cfg.AudioRecursive,
		Volume:     settings.Get().DefaultVolume,
		Logger:     logger,
	})
	orchestrator := session.New(session.Dependencies{
		Timer:     engine,
		Audio:     controller,
		History:   history,
		Snapshots: snapshots,
		Profiles:  profiles,
		Settings:  settings,
		Bus:       bus,
	}, session.Options{Clock: clock, GraceDelay: cfg.GraceDelay, Logger: logger})

	return &services{
		app:          app.New(orchestrator, controller, profiles, settings, bus, logger),
		bus:          bus,
		controller:   controller,
		orchestrator: orchestrator,
		history:      history,
	}, nil
}

// Close silences audio and releases the stores. The timer is left alone so the
// persisted snapshot survives for the next launch.
func (rt *services) Close() error {
	rt.controller.Stop()
	rt.orchestrator.Close()
	rt.bus.Close()
	return rt.history.Close()
}

func runTrayCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			fmt.Fprintln(cmd.ErrOrStderr(), "FocusPlay is already running.")
			return nil
		}
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	logger, logFile, err := logging.New(logging.Options{Dir: cfg.DataDir, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer closeQuietly(logFile)

	rt, err := openServices(cfg, &logger)
	if err != nil {
		return err
	}
	defer closeQuietly(rt)

	runTray(rt, guard, logger.With().Str("component", "tray").Logger())
	return nil
}

func runTray(rt *services, guard *platform.InstanceGuard, logger zerolog.Logger) {
	fyneApp := fyneapp.NewWithID("com.focusplay.app")
	fyneApp.SetIcon(theme.MediaMusicIcon())
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		logger.Error().Msg("system tray unsupported on this platform")
		return
	}

	trayWindow := fyneApp.NewWindow(appName)
	trayWindow.SetContent(widget.NewLabel("FocusPlay is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	notify := func(title, body string) {
		fyneApp.SendNotification(fyne.NewNotification(title, body))
	}
	report := func(action string, err error) {
		if err == nil {
			return
		}
		logger.Warn().Err(err).Str("action", action).Msg("tray command failed")
		notify(appName, fmt.Sprintf("Could not %s: %v", action, err))
	}

	var trayManager *tray.Manager
	refresh := func() {
		trayManager.SetTimer(rt.app.GetTimerState())
		trayManager.SetAudio(rt.app.GetAudioState())
	}
	trayManager = tray.New(desktopApp, tray.Callbacks{
		OnStartWork: func(profileID string) {
			report("start work", rt.app.StartWork(profileID))
			trayManager.SetResumable(nil)
			refresh()
		},
		OnResume: func(snapshot model.Snapshot) {
			report("resume session", rt.app.ResumeTimer(&snapshot))
			trayManager.SetResumable(nil)
			refresh()
		},
		OnTogglePause: func() {
			if rt.app.GetTimerState().Phase == model.PhasePaused {
				report("resume", rt.app.ResumeTimer(nil))
			} else {
				report("pause", rt.app.PauseTimer())
			}
			refresh()
		},
		OnStop: func() {
			report("stop", rt.app.StopTimer())
			refresh()
		},
		OnSkip: func() {
			report("skip", rt.app.Skip())
			refresh()
		},
		OnVolume: func(level int) {
			rt.app.SetVolume(level)
			refresh()
		},
		OnQuit: func() {
			fyneApp.Quit()
		},
	})
	desktopApp.SetSystemTrayIcon(theme.MediaMusicIcon())

	if profiles, err := rt.app.LoadProfiles(); err == nil {
		trayManager.SetProfiles(profiles)
	} else {
		logger.Warn().Err(err).Msg("load profiles failed")
	}
	if stats, err := rt.app.GetStats(context.Background()); err == nil {
		trayManager.SetStats(stats)
	}
	refresh()
	if snapshot, err := rt.app.CheckResumeSession(); err == nil && snapshot != nil {
		trayManager.SetResumable(snapshot)
		notify(appName, fmt.Sprintf("Session %s can be resumed from the tray.", snapshot.SessionID))
	}

	sub := rt.app.Subscribe(64)
	go trayManager.Observe(sub, notify)
	go func() {
		for range guard.Requests() {
			notify(appName, "FocusPlay is already running in the system tray.")
		}
	}()

	fyneApp.Run()
	sub.Cancel()
}

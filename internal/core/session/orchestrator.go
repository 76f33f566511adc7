// Package session sequences work and break phases on top of the timer engine
// and keeps audio and completion history in step with them.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/events"
	"focusplay/internal/core/model"
)

// maxHandledRuns bounds the completion run ids remembered for deduplication.
// The history's unique run id column catches anything older.
const maxHandledRuns = 16

// DefaultGraceDelay lets a completion chime finish before the next phase starts.
const DefaultGraceDelay = 800 * time.Millisecond

// Timer is the Timer Engine command surface.
type Timer interface {
	Start(sessionID string, kind model.PhaseKind, totalSec int) error
	Pause() error
	Resume() error
	ResumeFrom(snapshot model.Snapshot) error
	Stop() error
	GetState() model.TimerState
}

// Audio is the Audio Controller command surface.
type Audio interface {
	PlayLooping(path string) error
	PlayShuffleFolder(folder string) error
	Stop()
	GetState() model.AudioState
}

// History appends completion records and derives stats from them.
type History interface {
	Append(ctx context.Context, record model.CompletionRecord) (bool, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// Snapshots reads the persisted in-progress session.
type Snapshots interface {
	LoadSnapshot() (*model.Snapshot, error)
}

// Profiles resolves profiles by id.
type Profiles interface {
	Get(id string) (model.Profile, error)
	Default() (model.Profile, error)
}

// Settings reads the current preferences.
type Settings interface {
	Get() model.Settings
}

// Dependencies groups the collaborators of an Orchestrator.
type Dependencies struct {
	Timer     Timer
	Audio     Audio
	History   History
	Snapshots Snapshots
	Profiles  Profiles
	Settings  Settings
	Bus       *events.Bus
}

// Options configures an Orchestrator.
type Options struct {
	Clock clockwork.Clock
	// GraceDelay postpones auto-chained phases. Zero starts them at once.
	GraceDelay time.Duration
	Logger     *zerolog.Logger
}

// Status is the orchestrator's view of the current cycle.
type Status struct {
	Timer     model.TimerState `json:"timer"`
	Kind      model.PhaseKind  `json:"kind"`
	ProfileID string           `json:"profileId"`
	// ReadySec is the countdown shown while no phase runs.
	ReadySec int `json:"readySec"`
	// Pending is the session id an auto-chain action will start, if any.
	Pending string `json:"pending,omitempty"`
}

type pendingAction struct {
	sessionID string
	token     int
	timer     clockwork.Timer
}

// Orchestrator sequences Work, Break, Work cycles.
type Orchestrator struct {
	mu sync.Mutex

	deps   Dependencies
	clock  clockwork.Clock
	grace  time.Duration
	logger zerolog.Logger

	active    model.Profile
	hasActive bool
	kind      model.PhaseKind
	readySec  int
	pending   *pendingAction
	tokens    int
	handled   map[string]bool
	runOrder  []string

	sub  *events.Subscription
	done chan struct{}
}

// New creates an Orchestrator and starts listening for completion events.
func New(deps Dependencies, options Options) *Orchestrator {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.GraceDelay < 0 {
		options.GraceDelay = 0
	}
	logger := zerolog.Nop()
	if options.Logger != nil {
		logger = options.Logger.With().Str("component", "session").Logger()
	}
	orchestrator := &Orchestrator{
		deps:    deps,
		clock:   options.Clock,
		grace:   options.GraceDelay,
		logger:  logger,
		kind:    model.KindWork,
		handled: make(map[string]bool),
		done:    make(chan struct{}),
	}
	orchestrator.sub = deps.Bus.Subscribe(16, events.TimerCompleted)
	go orchestrator.listen()
	return orchestrator
}

// Close stops listening for events and drops any pending auto-chain action.
func (orchestrator *Orchestrator) Close() {
	orchestrator.sub.Cancel()
	<-orchestrator.done
	orchestrator.mu.Lock()
	orchestrator.cancelPendingLocked()
	orchestrator.mu.Unlock()
}

// StartWork starts the work phase of profile.
func (orchestrator *Orchestrator) StartWork(profile model.Profile) error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	if err := orchestrator.startWorkLocked(profile); err != nil {
		return err
	}
	orchestrator.cancelPendingLocked()
	return nil
}

// StartBreak starts the break phase of profile.
func (orchestrator *Orchestrator) StartBreak(profile model.Profile) error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	if err := orchestrator.startBreakLocked(profile); err != nil {
		return err
	}
	orchestrator.cancelPendingLocked()
	return nil
}

// StartTimer starts a bare countdown without touching audio. A session id
// naming a stored profile is that profile's work phase; one naming a stored
// profile plus the break suffix is its break. Anything else runs as work.
func (orchestrator *Orchestrator) StartTimer(sessionID string, totalSec int) error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	kind := orchestrator.kindOfSessionLocked(sessionID)
	if err := orchestrator.deps.Timer.Start(sessionID, kind, totalSec); err != nil {
		return err
	}
	orchestrator.cancelPendingLocked()
	orchestrator.adoptLocked(model.ProfileIDOfSession(sessionID, kind), kind, totalSec)
	return nil
}

// Pause pauses the running phase.
func (orchestrator *Orchestrator) Pause() error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.deps.Timer.Pause()
}

// Resume continues a paused phase.
func (orchestrator *Orchestrator) Resume() error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	return orchestrator.deps.Timer.Resume()
}

// Stop ends the current phase, silences audio and returns to the work countdown.
func (orchestrator *Orchestrator) Stop() error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	orchestrator.cancelPendingLocked()
	if err := orchestrator.stopTimerLocked(); err != nil {
		return err
	}
	orchestrator.deps.Audio.Stop()
	orchestrator.resetToWorkLocked()
	return nil
}

// Skip abandons the current phase without credit. Skipping work moves into the
// profile's break when it has one; anything else returns to the work countdown.
func (orchestrator *Orchestrator) Skip() error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	if !orchestrator.hasActive {
		return errs.InvalidState("no active profile to skip")
	}
	orchestrator.cancelPendingLocked()
	if err := orchestrator.stopTimerLocked(); err != nil {
		return err
	}

	if orchestrator.kind == model.KindWork && orchestrator.active.HasBreak() {
		return orchestrator.startBreakLocked(orchestrator.active)
	}
	orchestrator.deps.Audio.Stop()
	orchestrator.resetToWorkLocked()
	return nil
}

// CheckResumeSession returns the persisted in-progress session, or nil. It
// never resumes by itself.
func (orchestrator *Orchestrator) CheckResumeSession() (*model.Snapshot, error) {
	snapshot, err := orchestrator.deps.Snapshots.LoadSnapshot()
	if err != nil {
		orchestrator.logger.Warn().Err(err).Msg("load snapshot failed")
		return nil, err
	}
	if snapshot == nil || snapshot.RemainingSec <= 0 {
		return nil, nil
	}
	return snapshot, nil
}

// ResumeSession restarts a persisted session and its music.
func (orchestrator *Orchestrator) ResumeSession(snapshot model.Snapshot) error {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	if err := orchestrator.deps.Timer.ResumeFrom(snapshot); err != nil {
		return err
	}
	orchestrator.cancelPendingLocked()
	kind := orchestrator.deps.Timer.GetState().Kind
	orchestrator.adoptLocked(model.ProfileIDOfSession(snapshot.SessionID, kind), kind, snapshot.TotalSec)

	path, shuffle := orchestrator.active.MusicPath, orchestrator.active.Shuffle
	if kind == model.KindBreak {
		path, shuffle = orchestrator.active.BreakMusic()
	}
	if path != "" && orchestrator.deps.Settings.Get().AutoStartAudio {
		orchestrator.playLocked(path, shuffle)
	}
	return nil
}

// Stats derives today's count and the streak from the completion log.
func (orchestrator *Orchestrator) Stats(ctx context.Context) (model.Stats, error) {
	return orchestrator.deps.History.Stats(ctx)
}

// RecordSessionComplete appends a completion for the active profile outside the
// timer flow and returns the updated stats.
func (orchestrator *Orchestrator) RecordSessionComplete(ctx context.Context) (model.Stats, error) {
	orchestrator.mu.Lock()
	profileID := orchestrator.active.ID
	orchestrator.mu.Unlock()
	return orchestrator.record(ctx, "manual-"+uuid.NewString(), profileID)
}

// Status returns the orchestrator view of the cycle.
func (orchestrator *Orchestrator) Status() Status {
	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	status := Status{
		Timer:     orchestrator.deps.Timer.GetState(),
		Kind:      orchestrator.kind,
		ProfileID: orchestrator.active.ID,
		ReadySec:  orchestrator.readySec,
	}
	if orchestrator.pending != nil {
		status.Pending = orchestrator.pending.sessionID
	}
	return status
}

func (orchestrator *Orchestrator) startWorkLocked(profile model.Profile) error {
	if profile.ID == "" {
		return errs.InvalidArgument("profile has no id")
	}
	if profile.WorkSec <= 0 {
		return errs.InvalidArgument("profile %q has no work duration", profile.ID)
	}
	if err := orchestrator.deps.Timer.Start(profile.SessionID(model.KindWork), model.KindWork, profile.WorkSec); err != nil {
		return err
	}
	orchestrator.active = profile
	orchestrator.hasActive = true
	orchestrator.kind = model.KindWork
	orchestrator.readySec = profile.WorkSec

	if orchestrator.deps.Settings.Get().AutoStartAudio {
		if profile.MusicPath != "" {
			orchestrator.playLocked(profile.MusicPath, profile.Shuffle)
		} else {
			orchestrator.deps.Audio.Stop()
		}
	}
	orchestrator.logger.Info().Str("profile", profile.ID).Msg("work started")
	return nil
}

func (orchestrator *Orchestrator) startBreakLocked(profile model.Profile) error {
	if profile.ID == "" {
		return errs.InvalidArgument("profile has no id")
	}
	if !profile.HasBreak() {
		return errs.InvalidArgument("profile %q has no break", profile.ID)
	}
	if err := orchestrator.deps.Timer.Start(profile.SessionID(model.KindBreak), model.KindBreak, profile.BreakSec); err != nil {
		return err
	}
	orchestrator.active = profile
	orchestrator.hasActive = true
	orchestrator.kind = model.KindBreak
	orchestrator.readySec = profile.BreakSec

	path, shuffle := profile.BreakMusic()
	switch {
	case path == "":
		orchestrator.deps.Audio.Stop()
	case orchestrator.deps.Settings.Get().AutoStartAudio:
		orchestrator.playLocked(path, shuffle)
	}
	orchestrator.logger.Info().Str("profile", profile.ID).Msg("break started")
	return nil
}

// playLocked starts music. Audio failures never fail the phase; the controller
// has already published its stopped state.
func (orchestrator *Orchestrator) playLocked(path string, shuffle bool) {
	var err error
	if shuffle {
		err = orchestrator.deps.Audio.PlayShuffleFolder(path)
	} else {
		err = orchestrator.deps.Audio.PlayLooping(path)
	}
	if err != nil {
		orchestrator.logger.Warn().Err(err).Str("path", path).Msg("music unavailable")
	}
}

func (orchestrator *Orchestrator) stopTimerLocked() error {
	if err := orchestrator.deps.Timer.Stop(); err != nil && !errors.Is(err, errs.ErrInvalidState) {
		return err
	}
	return nil
}

func (orchestrator *Orchestrator) resetToWorkLocked() {
	orchestrator.kind = model.KindWork
	if orchestrator.hasActive {
		orchestrator.readySec = orchestrator.active.WorkSec
	}
}

// adoptLocked makes profileID active, synthesizing a profile for unknown ids.
func (orchestrator *Orchestrator) adoptLocked(profileID string, kind model.PhaseKind, totalSec int) {
	profile, err := orchestrator.deps.Profiles.Get(profileID)
	if err != nil {
		profile = model.Profile{ID: profileID, Name: profileID}
		if kind == model.KindWork {
			profile.WorkSec = totalSec
		} else {
			profile.BreakSec = totalSec
		}
	}
	orchestrator.active = profile
	orchestrator.hasActive = true
	orchestrator.kind = kind
	orchestrator.readySec = totalSec
}

func (orchestrator *Orchestrator) listen() {
	defer close(orchestrator.done)
	for event := range orchestrator.sub.C() {
		orchestrator.handleCompletion(event)
	}
}

func (orchestrator *Orchestrator) handleCompletion(event events.Event) {
	orchestrator.mu.Lock()
	if event.RunID == "" || !orchestrator.markHandledLocked(event.RunID) {
		orchestrator.mu.Unlock()
		return
	}
	state := orchestrator.deps.Timer.GetState()
	current := state.RunID == event.RunID && state.Phase == model.PhaseCompleted
	orchestrator.mu.Unlock()

	if event.Kind == model.KindWork {
		if _, err := orchestrator.record(context.Background(), event.RunID, model.ProfileIDOfSession(event.SessionID, event.Kind)); err != nil {
			orchestrator.logger.Error().Err(err).Msg("record completion failed")
		}
	}

	orchestrator.mu.Lock()
	defer orchestrator.mu.Unlock()
	if !current {
		orchestrator.logger.Debug().Str("run", event.RunID).Msg("completion superseded, not chaining")
		return
	}
	settings := orchestrator.deps.Settings.Get()

	if event.Kind == model.KindWork {
		orchestrator.notifyLocked(settings, "Work session complete! Take a break.")
		if orchestrator.active.HasBreak() {
			profile := orchestrator.active
			orchestrator.scheduleLocked(profile.SessionID(model.KindBreak), func() error {
				return orchestrator.startBreakLocked(profile)
			})
			return
		}
	} else {
		orchestrator.notifyLocked(settings, "Break's over! Time to focus.")
	}

	orchestrator.resetToWorkLocked()
	if settings.AutoStartNextTimer {
		next, err := orchestrator.nextProfileLocked()
		if err != nil {
			orchestrator.logger.Warn().Err(err).Msg("no profile to auto-start")
			return
		}
		orchestrator.scheduleLocked(next.SessionID(model.KindWork), func() error {
			return orchestrator.startWorkLocked(next)
		})
	}
}

// markHandledLocked reports whether runID is new, remembering the most recent
// maxHandledRuns ids.
func (orchestrator *Orchestrator) markHandledLocked(runID string) bool {
	if orchestrator.handled[runID] {
		return false
	}
	orchestrator.handled[runID] = true
	orchestrator.runOrder = append(orchestrator.runOrder, runID)
	if len(orchestrator.runOrder) > maxHandledRuns {
		oldest := orchestrator.runOrder[0]
		orchestrator.runOrder = orchestrator.runOrder[1:]
		delete(orchestrator.handled, oldest)
	}
	return true
}

func (orchestrator *Orchestrator) kindOfSessionLocked(sessionID string) model.PhaseKind {
	if _, err := orchestrator.deps.Profiles.Get(sessionID); err == nil {
		return model.KindWork
	}
	profileID := strings.TrimSuffix(sessionID, model.BreakSuffix)
	if profileID == sessionID {
		return model.KindWork
	}
	if _, err := orchestrator.deps.Profiles.Get(profileID); err == nil {
		return model.KindBreak
	}
	return model.KindWork
}

// record appends one completion and publishes the updated stats.
func (orchestrator *Orchestrator) record(ctx context.Context, runID, profileID string) (model.Stats, error) {
	now := orchestrator.clock.Now()
	_, err := orchestrator.deps.History.Append(ctx, model.CompletionRecord{
		RunID:       runID,
		Date:        now.Local().Format(model.DateLayout),
		ProfileID:   profileID,
		CompletedAt: now,
	})
	if err != nil {
		return model.Stats{}, err
	}
	stats, err := orchestrator.deps.History.Stats(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	orchestrator.deps.Bus.Publish(events.Event{Type: events.StatsUpdated, Stats: stats})
	return stats, nil
}

// nextProfileLocked picks the profile to auto-start: the active one as currently
// stored, else the active one as last seen, else the default.
func (orchestrator *Orchestrator) nextProfileLocked() (model.Profile, error) {
	if orchestrator.hasActive {
		if stored, err := orchestrator.deps.Profiles.Get(orchestrator.active.ID); err == nil {
			return stored, nil
		}
		if orchestrator.active.WorkSec > 0 {
			return orchestrator.active, nil
		}
	}
	return orchestrator.deps.Profiles.Default()
}

func (orchestrator *Orchestrator) notifyLocked(settings model.Settings, body string) {
	if !settings.NotifyOnComplete {
		return
	}
	orchestrator.deps.Bus.Publish(events.Event{Type: events.Notification, Title: "FocusPlay", Body: body})
}

// scheduleLocked runs action after the grace delay unless a command cancels it
// first. Only one action is pending at a time. Failed commands leave it in place.
func (orchestrator *Orchestrator) scheduleLocked(sessionID string, action func() error) {
	orchestrator.cancelPendingLocked()
	orchestrator.tokens++
	token := orchestrator.tokens
	pending := &pendingAction{sessionID: sessionID, token: token}
	pending.timer = orchestrator.clock.AfterFunc(orchestrator.grace, func() {
		orchestrator.mu.Lock()
		defer orchestrator.mu.Unlock()
		if orchestrator.pending == nil || orchestrator.pending.token != token {
			return
		}
		orchestrator.pending = nil
		if err := action(); err != nil {
			orchestrator.logger.Warn().Err(err).Str("session", sessionID).Msg("auto-chain failed")
		}
	})
	orchestrator.pending = pending
	orchestrator.logger.Debug().Str("session", sessionID).Dur("delay", orchestrator.grace).Msg("auto-chain scheduled")
}

func (orchestrator *Orchestrator) cancelPendingLocked() {
	if orchestrator.pending == nil {
		return
	}
	orchestrator.pending.timer.Stop()
	orchestrator.logger.Debug().Str("session", orchestrator.pending.sessionID).Msg("auto-chain cancelled")
	orchestrator.pending = nil
}

// Package timer implements the countdown state machine behind work and break
// sessions.
package timer

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/events"
	"focusplay/internal/core/model"
)

// SnapshotStore persists the in-progress session.
type SnapshotStore interface {
	SaveSnapshot(snapshot model.Snapshot) error
	ClearSnapshot() error
}

// Options contains runtime options for the Engine.
type Options struct {
	Clock        clockwork.Clock
	TickInterval time.Duration
	Logger       *zerolog.Logger
	// NewRunID mints the identifier attached to every countdown run.
	NewRunID func() string
}

// Engine owns the Timer State. Commands are serialized by cmdMu; state is
// guarded by mu, which the tick loop also takes, so every command observes and
// transitions the phase atomically with respect to a tick.
type Engine struct {
	cmdMu sync.Mutex
	mu    sync.Mutex

	clock    clockwork.Clock
	interval time.Duration
	store    SnapshotStore
	bus      events.Publisher
	logger   zerolog.Logger
	newRunID func() string

	sessionID     string
	runID         string
	kind          model.PhaseKind
	phase         model.Phase
	total         int
	remaining     int
	startedAt     time.Time
	resumedAt     time.Time
	baseRemaining int
	unsaved       bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an idle Engine.
func New(store SnapshotStore, bus events.Publisher, options Options) *Engine {
	if options.Clock == nil {
		options.Clock = clockwork.NewRealClock()
	}
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.NewRunID == nil {
		options.NewRunID = uuid.NewString
	}
	logger := zerolog.Nop()
	if options.Logger != nil {
		logger = options.Logger.With().Str("component", "timer").Logger()
	}
	return &Engine{
		clock:    options.Clock,
		interval: options.TickInterval,
		store:    store,
		bus:      bus,
		logger:   logger,
		newRunID: options.NewRunID,
		phase:    model.PhaseIdle,
		kind:     model.KindWork,
	}
}

// Start begins a new countdown of totalSec seconds for a phase of kind.
func (engine *Engine) Start(sessionID string, kind model.PhaseKind, totalSec int) error {
	if sessionID == "" {
		return errs.InvalidArgument("session id is empty")
	}
	if !kind.Valid() {
		return errs.InvalidArgument("unknown phase kind %q", kind)
	}
	if totalSec <= 0 {
		return errs.InvalidArgument("total seconds must be positive, got %d", totalSec)
	}

	engine.cmdMu.Lock()
	defer engine.cmdMu.Unlock()

	engine.mu.Lock()
	if engine.phase == model.PhaseRunning {
		current := engine.sessionID
		engine.mu.Unlock()
		return errs.InvalidState("session %q is already running", current)
	}
	previous := engine.detachLoopLocked()

	now := engine.clock.Now()
	engine.sessionID = sessionID
	engine.runID = engine.newRunID()
	engine.kind = kind
	engine.total = totalSec
	engine.remaining = totalSec
	engine.startedAt = now
	engine.enterRunningLocked(now)
	engine.saveSnapshotLocked()
	engine.mu.Unlock()

	engine.launchLoop(previous)
	engine.logger.Info().Str("session", sessionID).Int("total_sec", totalSec).Msg("timer started")
	return nil
}

// Pause freezes the running countdown.
func (engine *Engine) Pause() error {
	engine.cmdMu.Lock()
	defer engine.cmdMu.Unlock()

	engine.mu.Lock()
	if engine.phase != model.PhaseRunning {
		phase := engine.phase
		engine.mu.Unlock()
		return errs.InvalidState("pause while %s", phase)
	}
	engine.phase = model.PhasePaused
	previous := engine.detachLoopLocked()
	engine.saveSnapshotLocked()
	remaining := engine.remaining
	engine.mu.Unlock()

	waitLoop(previous)
	engine.logger.Info().Int("remaining_sec", remaining).Msg("timer paused")
	return nil
}

// Resume continues a paused countdown from the remaining value frozen by Pause.
func (engine *Engine) Resume() error {
	engine.cmdMu.Lock()
	defer engine.cmdMu.Unlock()

	engine.mu.Lock()
	if engine.phase != model.PhasePaused {
		phase := engine.phase
		engine.mu.Unlock()
		return errs.InvalidState("resume while %s", phase)
	}
	engine.enterRunningLocked(engine.clock.Now())
	engine.saveSnapshotLocked()
	engine.mu.Unlock()

	engine.launchLoop(nil)
	engine.logger.Info().Msg("timer resumed")
	return nil
}

// ResumeFrom restarts a countdown from a persisted snapshot. Valid only while
// Idle. A snapshot without a kind resumes as work.
func (engine *Engine) ResumeFrom(snapshot model.Snapshot) error {
	if snapshot.SessionID == "" {
		return errs.InvalidArgument("snapshot has no session id")
	}
	kind := snapshot.Kind
	if kind == "" {
		kind = model.KindWork
	}
	if !kind.Valid() {
		return errs.InvalidArgument("unknown phase kind %q", kind)
	}
	if snapshot.TotalSec <= 0 || snapshot.RemainingSec <= 0 || snapshot.RemainingSec > snapshot.TotalSec {
		return errs.InvalidArgument("snapshot remaining %d of %d is out of range", snapshot.RemainingSec, snapshot.TotalSec)
	}

	engine.cmdMu.Lock()
	defer engine.cmdMu.Unlock()

	engine.mu.Lock()
	if engine.phase != model.PhaseIdle {
		phase := engine.phase
		engine.mu.Unlock()
		return errs.InvalidState("resume snapshot while %s", phase)
	}
	previous := engine.detachLoopLocked()

	now := engine.clock.Now()
	engine.sessionID = snapshot.SessionID
	engine.runID = engine.newRunID()
	engine.kind = kind
	engine.total = snapshot.TotalSec
	engine.remaining = snapshot.RemainingSec
	engine.startedAt = now
	engine.enterRunningLocked(now)
	engine.saveSnapshotLocked()
	engine.mu.Unlock()

	engine.launchLoop(previous)
	engine.logger.Info().Str("session", snapshot.SessionID).Int("remaining_sec", snapshot.RemainingSec).Msg("timer resumed from snapshot")
	return nil
}

// Stop halts the countdown and discards the resumable snapshot.
func (engine *Engine) Stop() error {
	engine.cmdMu.Lock()
	defer engine.cmdMu.Unlock()

	engine.mu.Lock()
	if engine.phase == model.PhaseIdle {
		engine.mu.Unlock()
		return errs.InvalidState("stop while idle")
	}
	previous := engine.detachLoopLocked()
	engine.phase = model.PhaseIdle
	engine.remaining = engine.total
	engine.clearSnapshotLocked()
	engine.mu.Unlock()

	waitLoop(previous)
	engine.logger.Info().Msg("timer stopped")
	return nil
}

// GetState returns a snapshot of the Timer State.
func (engine *Engine) GetState() model.TimerState {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return model.TimerState{
		Running:      engine.phase == model.PhaseRunning,
		TotalSec:     engine.total,
		RemainingSec: engine.remaining,
		SessionID:    engine.sessionID,
		RunID:        engine.runID,
		Phase:        engine.phase,
		Kind:         engine.kind,
		Unsaved:      engine.unsaved,
	}
}

func (engine *Engine) enterRunningLocked(now time.Time) {
	engine.phase = model.PhaseRunning
	engine.resumedAt = now
	engine.baseRemaining = engine.remaining
}

// detachLoopLocked signals the current tick loop to exit and returns its done
// channel. The loop exits without touching state because it checks the stop
// channel under mu. A loop that finished on completion has no stop channel
// left but its done channel is still returned.
func (engine *Engine) detachLoopLocked() chan struct{} {
	if engine.stopCh != nil {
		close(engine.stopCh)
	}
	done := engine.doneCh
	engine.stopCh = nil
	engine.doneCh = nil
	return done
}

// launchLoop waits for previous to exit before starting a new loop, so two
// loops never run at once. Callers hold cmdMu.
func (engine *Engine) launchLoop(previous chan struct{}) {
	waitLoop(previous)

	stop := make(chan struct{})
	done := make(chan struct{})
	engine.mu.Lock()
	if engine.phase != model.PhaseRunning {
		engine.mu.Unlock()
		return
	}
	engine.stopCh = stop
	engine.doneCh = done
	engine.mu.Unlock()

	go engine.run(stop, done)
}

func waitLoop(done chan struct{}) {
	if done != nil {
		<-done
	}
}

func (engine *Engine) run(stop, done chan struct{}) {
	defer close(done)
	ticker := engine.clock.NewTicker(engine.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if engine.tick(stop) {
				return
			}
		}
	}
}

// tick reports whether the loop should exit. A panic inside a tick is logged
// and the loop keeps going.
func (engine *Engine) tick(stop chan struct{}) (finished bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			engine.logger.Error().Str("panic", fmt.Sprint(recovered)).Msg("tick failed")
			finished = false
		}
	}()

	engine.mu.Lock()
	defer engine.mu.Unlock()

	select {
	case <-stop:
		return true
	default:
	}
	if engine.phase != model.PhaseRunning {
		return true
	}

	target := engine.baseRemaining - engine.elapsedTicksLocked()
	if target < 0 {
		target = 0
	}
	for engine.remaining > target {
		engine.remaining--
		engine.publish(events.Event{
			Type:         events.TimerTicked,
			SessionID:    engine.sessionID,
			RunID:        engine.runID,
			Kind:         engine.kind,
			RemainingSec: engine.remaining,
			TotalSec:     engine.total,
		})
	}

	if engine.remaining > 0 {
		engine.saveSnapshotLocked()
		return false
	}

	engine.phase = model.PhaseCompleted
	engine.stopCh = nil
	engine.clearSnapshotLocked()
	engine.publish(events.Event{
		Type:      events.TimerCompleted,
		SessionID: engine.sessionID,
		RunID:     engine.runID,
		Kind:      engine.kind,
		TotalSec:  engine.total,
	})
	engine.logger.Info().Str("session", engine.sessionID).Msg("timer completed")
	return true
}

// elapsedTicksLocked derives whole ticks since the last resume from the clock,
// so a descheduled or suspended process catches up instead of drifting.
func (engine *Engine) elapsedTicksLocked() int {
	elapsed := engine.clock.Since(engine.resumedAt)
	if elapsed < 0 {
		return 0
	}
	return int((elapsed + engine.interval/2) / engine.interval)
}

func (engine *Engine) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		SessionID:    engine.sessionID,
		Kind:         engine.kind,
		TotalSec:     engine.total,
		RemainingSec: engine.remaining,
		Paused:       engine.phase == model.PhasePaused,
		SavedAt:      engine.clock.Now().Unix(),
	}
}

func (engine *Engine) saveSnapshotLocked() {
	if engine.store == nil {
		return
	}
	if err := engine.store.SaveSnapshot(engine.snapshotLocked()); err != nil {
		if !engine.unsaved {
			engine.logger.Warn().Err(err).Msg("save snapshot failed, session continues in memory")
		}
		engine.unsaved = true
		return
	}
	engine.unsaved = false
}

func (engine *Engine) clearSnapshotLocked() {
	if engine.store == nil {
		return
	}
	if err := engine.store.ClearSnapshot(); err != nil {
		engine.logger.Warn().Err(err).Msg("clear snapshot failed")
	}
}

func (engine *Engine) publish(event events.Event) {
	if engine.bus != nil {
		engine.bus.Publish(event)
	}
}

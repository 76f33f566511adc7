// Package audio plays work and break music: one file on loop or a shuffled
// folder. Playback runs on its own goroutine and never blocks timer callers.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"focusplay/internal/core/errs"
	"focusplay/internal/core/events"
	"focusplay/internal/core/model"
)

// DefaultExtensions lists the media types played from folders.
var DefaultExtensions = []string{".mp3", ".wav", ".flac", ".ogg"}

// DefaultMinPlay is the shortest playback counted as a real play. Anything
// quicker is treated as an empty track.
const DefaultMinPlay = 100 * time.Millisecond

// maxShortPlays bounds consecutive empty plays of a looping track.
const maxShortPlays = 3

// Player decodes and outputs media files.
type Player interface {
	// Inspect checks that path can be decoded.
	Inspect(path string) error
	// Play blocks until path finished playing or ctx is cancelled.
	Play(ctx context.Context, path string) error
	// SetVolume applies a linear level in [0,1] to current and future playback.
	SetVolume(level float64)
}

// Options configures a Controller.
type Options struct {
	Extensions []string
	Recursive  bool
	Volume     int
	Rand       *rand.Rand
	Logger     *zerolog.Logger
	// MinPlay defaults to DefaultMinPlay; a negative value disables the check.
	MinPlay time.Duration
}

// Controller owns the Audio State. Commands are serialized by cmdMu; mu guards
// state shared with the playback goroutine.
type Controller struct {
	cmdMu sync.Mutex
	mu    sync.Mutex

	player     Player
	bus        events.Publisher
	logger     zerolog.Logger
	extensions map[string]bool
	recursive  bool
	rnd        *rand.Rand
	minPlay    time.Duration

	volume     int
	state      model.AudioState
	generation int
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a stopped Controller.
func New(player Player, bus events.Publisher, options Options) *Controller {
	if len(options.Extensions) == 0 {
		options.Extensions = DefaultExtensions
	}
	if options.Rand == nil {
		options.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if options.MinPlay == 0 {
		options.MinPlay = DefaultMinPlay
	}
	logger := zerolog.Nop()
	if options.Logger != nil {
		logger = options.Logger.With().Str("component", "audio").Logger()
	}
	extensions := make(map[string]bool, len(options.Extensions))
	for _, ext := range options.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}
	volume := clampVolume(options.Volume)
	player.SetVolume(float64(volume) / 100)
	return &Controller{
		player:     player,
		bus:        bus,
		logger:     logger,
		extensions: extensions,
		recursive:  options.Recursive,
		rnd:        options.Rand,
		minPlay:    options.MinPlay,
		volume:     volume,
		state:      model.AudioState{State: model.AudioStopped, Volume: volume},
	}
}

// PlayLooping plays a single file on indefinite loop, replacing any stream.
func (controller *Controller) PlayLooping(path string) error {
	controller.cmdMu.Lock()
	defer controller.cmdMu.Unlock()
	controller.haltLocked()

	if err := controller.checkFile(path); err != nil {
		controller.fail(path, err)
		return err
	}

	trackName := filepath.Base(path)
	go controller.loop(controller.begin(trackName, "Looping"), path)
	controller.logger.Info().Str("path", path).Msg("looping track")
	return nil
}

// PlayShuffleFolder plays the media files in folder in shuffled order,
// reshuffling once every track has played.
func (controller *Controller) PlayShuffleFolder(folder string) error {
	controller.cmdMu.Lock()
	defer controller.cmdMu.Unlock()
	controller.haltLocked()

	tracks, err := controller.scan(folder)
	if err != nil {
		controller.fail(folder, err)
		return err
	}

	info := fmt.Sprintf("Shuffle folder · %d tracks", len(tracks))
	order := controller.shuffled(tracks, "")
	go controller.shuffle(controller.begin(filepath.Base(order[0]), info), tracks, order, info)
	controller.logger.Info().Str("folder", folder).Int("tracks", len(tracks)).Msg("shuffling folder")
	return nil
}

// Stop halts playback. Stopping a stopped controller does nothing.
func (controller *Controller) Stop() {
	controller.cmdMu.Lock()
	defer controller.cmdMu.Unlock()
	if controller.haltLocked() {
		controller.logger.Info().Msg("audio stopped")
	}
}

// SetVolume clamps v to [0,100], applies it to the active stream and keeps it
// for streams started later. It returns the applied value.
func (controller *Controller) SetVolume(v int) int {
	v = clampVolume(v)
	controller.mu.Lock()
	controller.volume = v
	controller.state.Volume = v
	controller.mu.Unlock()
	controller.player.SetVolume(float64(v) / 100)
	return v
}

// GetState returns the current Audio State.
func (controller *Controller) GetState() model.AudioState {
	controller.mu.Lock()
	defer controller.mu.Unlock()
	return controller.state
}

func clampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// haltLocked cancels the active stream, waits for its goroutine and publishes
// the stopped state. It reports whether anything was playing. Callers hold cmdMu.
func (controller *Controller) haltLocked() bool {
	controller.mu.Lock()
	cancel := controller.cancel
	done := controller.done
	controller.cancel = nil
	controller.done = nil
	controller.generation++
	wasPlaying := controller.state.State == model.AudioPlaying
	controller.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if !wasPlaying {
		return false
	}
	controller.setState(model.AudioStopped, "", "")
	return true
}

// stream describes one playback goroutine.
type stream struct {
	ctx        context.Context
	generation int
	done       chan struct{}
}

func (controller *Controller) begin(trackName, info string) stream {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	controller.mu.Lock()
	controller.generation++
	generation := controller.generation
	controller.cancel = cancel
	controller.done = done
	controller.mu.Unlock()
	controller.setState(model.AudioPlaying, trackName, info)
	return stream{ctx: ctx, generation: generation, done: done}
}

func (controller *Controller) fail(source string, err error) {
	controller.logger.Warn().Err(err).Str("source", source).Msg("audio source rejected")
	controller.setState(model.AudioStopped, filepath.Base(source), "Error: "+err.Error())
}

func (controller *Controller) setState(state model.PlaybackState, trackName, info string) {
	controller.mu.Lock()
	controller.state = model.AudioState{State: state, TrackName: trackName, TrackInfo: info, Volume: controller.volume}
	payload := controller.state
	controller.mu.Unlock()
	controller.publish(payload)
}

// advance updates the track name if generation is still current.
func (controller *Controller) advance(generation int, state model.PlaybackState, trackName, info string) bool {
	controller.mu.Lock()
	if controller.generation != generation {
		controller.mu.Unlock()
		return false
	}
	controller.state = model.AudioState{State: state, TrackName: trackName, TrackInfo: info, Volume: controller.volume}
	payload := controller.state
	controller.mu.Unlock()
	controller.publish(payload)
	return true
}

func (controller *Controller) publish(state model.AudioState) {
	if controller.bus != nil {
		controller.bus.Publish(events.Event{Type: events.AudioStateChanged, Audio: state})
	}
}

func (controller *Controller) checkFile(path string) error {
	if path == "" {
		return errs.AudioSource(path, errors.New("empty path"))
	}
	info, err := os.Stat(path)
	if err != nil {
		return errs.AudioSource(path, err)
	}
	if info.IsDir() {
		return errs.AudioSource(path, errors.New("is a directory"))
	}
	if err := controller.player.Inspect(path); err != nil {
		return errs.AudioSource(path, err)
	}
	return nil
}

func (controller *Controller) scan(folder string) ([]string, error) {
	if folder == "" {
		return nil, errs.AudioSource(folder, errors.New("empty path"))
	}
	info, err := os.Stat(folder)
	if err != nil {
		return nil, errs.AudioSource(folder, err)
	}
	if !info.IsDir() {
		return nil, errs.AudioSource(folder, errors.New("not a directory"))
	}

	var tracks []string
	err = filepath.WalkDir(folder, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if path != folder && !controller.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if controller.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			tracks = append(tracks, path)
		}
		return nil
	})
	if err != nil {
		return nil, errs.AudioSource(folder, err)
	}
	if len(tracks) == 0 {
		return nil, errs.AudioSource(folder, errors.New("no playable files"))
	}
	sort.Strings(tracks)
	return tracks, nil
}

// shuffled returns a random order of tracks that does not start with avoid.
func (controller *Controller) shuffled(tracks []string, avoid string) []string {
	order := append([]string(nil), tracks...)
	controller.mu.Lock()
	controller.rnd.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	controller.mu.Unlock()
	if len(order) > 1 && order[0] == avoid {
		order[0], order[len(order)-1] = order[len(order)-1], order[0]
	}
	return order
}

func (controller *Controller) loop(current stream, path string) {
	defer close(current.done)
	short := 0
	for current.ctx.Err() == nil {
		empty, err := controller.play(current.ctx, path)
		if current.ctx.Err() != nil {
			return
		}
		if err != nil {
			controller.logger.Error().Err(err).Str("path", path).Msg("playback failed")
			controller.advance(current.generation, model.AudioStopped, filepath.Base(path), "Error: "+err.Error())
			return
		}
		if !empty {
			short = 0
			continue
		}
		short++
		if short >= maxShortPlays {
			controller.logger.Error().Str("path", path).Msg("track has no audio")
			controller.advance(current.generation, model.AudioStopped, filepath.Base(path), "Error: track is empty")
			return
		}
	}
}

// play runs one track and reports whether it ended too quickly to count.
func (controller *Controller) play(ctx context.Context, path string) (bool, error) {
	began := time.Now()
	if err := controller.player.Play(ctx, path); err != nil {
		return false, err
	}
	return controller.minPlay > 0 && time.Since(began) < controller.minPlay, nil
}

func (controller *Controller) shuffle(current stream, tracks, order []string, info string) {
	defer close(current.done)
	ctx := current.ctx
	failures := 0
	last := ""
	for ctx.Err() == nil {
		for index, track := range order {
			if ctx.Err() != nil {
				return
			}
			if index > 0 || last != "" {
				if !controller.advance(current.generation, model.AudioPlaying, filepath.Base(track), info) {
					return
				}
			}
			empty, err := controller.play(ctx, track)
			last = track
			if ctx.Err() != nil {
				return
			}
			if err == nil && empty {
				err = errors.New("track is empty")
			}
			if err != nil {
				failures++
				controller.logger.Warn().Err(err).Str("path", track).Msg("skipping unplayable track")
				if failures >= len(tracks) {
					controller.advance(current.generation, model.AudioStopped, "", "Error: no playable tracks")
					return
				}
				continue
			}
			failures = 0
		}
		order = controller.shuffled(tracks, last)
	}
}

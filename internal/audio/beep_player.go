package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
)

// DefaultSampleRate is the speaker rate every stream is resampled to.
const DefaultSampleRate = 44100

// BeepPlayer outputs audio through the system speaker.
type BeepPlayer struct {
	sampleRate beep.SampleRate

	initOnce sync.Once
	initErr  error

	mu     sync.Mutex
	level  float64
	volume *effects.Volume
}

// NewBeepPlayer creates a player. The speaker is opened on first playback.
func NewBeepPlayer(sampleRate int) *BeepPlayer {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &BeepPlayer{sampleRate: beep.SampleRate(sampleRate), level: 0.7}
}

// Inspect decodes the stream header of path.
func (player *BeepPlayer) Inspect(path string) error {
	streamer, _, closeFile, err := decode(path)
	if err != nil {
		return err
	}
	_ = streamer.Close()
	closeFile()
	return nil
}

// Play streams path to the speaker until it ends or ctx is cancelled.
func (player *BeepPlayer) Play(ctx context.Context, path string) error {
	player.initOnce.Do(func() {
		player.initErr = speaker.Init(player.sampleRate, player.sampleRate.N(time.Second/10))
	})
	if player.initErr != nil {
		return fmt.Errorf("init speaker: %w", player.initErr)
	}

	streamer, format, closeFile, err := decode(path)
	if err != nil {
		return err
	}
	defer closeFile()
	defer streamer.Close()

	player.mu.Lock()
	volume := &effects.Volume{
		Streamer: beep.Resample(4, format.SampleRate, player.sampleRate, streamer),
		Base:     2,
		Volume:   linearToLog(player.level),
		Silent:   player.level == 0,
	}
	player.volume = volume
	player.mu.Unlock()

	done := make(chan struct{})
	speaker.Play(beep.Seq(volume, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return streamer.Err()
	case <-ctx.Done():
		speaker.Clear()
		return nil
	}
}

// SetVolume applies level to the active stream and to later ones.
func (player *BeepPlayer) SetVolume(level float64) {
	player.mu.Lock()
	defer player.mu.Unlock()
	player.level = level
	if player.volume == nil {
		return
	}
	speaker.Lock()
	player.volume.Volume = linearToLog(level)
	player.volume.Silent = level == 0
	speaker.Unlock()
}

// linearToLog maps a linear level to a base-2 gain: 1.0 is 0, 0.5 is -1.
func linearToLog(level float64) float64 {
	if level <= 0 {
		return -6
	}
	return math.Log2(level)
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, func(), error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, nil, err
	}
	closeFile := func() {
		_ = file.Close()
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(file)
	case ".wav":
		streamer, format, err = wav.Decode(file)
	case ".flac":
		streamer, format, err = flac.Decode(file)
	case ".ogg":
		streamer, format, err = vorbis.Decode(file)
	default:
		err = fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
	if err != nil {
		closeFile()
		return nil, beep.Format{}, nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return streamer, format, closeFile, nil
}

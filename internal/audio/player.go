package audio

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// Player plays decoded speech on the default output device.
// Only one stream plays at a time; Flush drops whatever is playing.
type Player struct {
	mu     sync.Mutex
	logger *slog.Logger

	// Volume control (0.0 to 1.0)
	volume float64

	// Whether speaker has been initialized
	initialized bool

	// Sample rate for the speaker
	sampleRate beep.SampleRate
}

// NewPlayer creates a new audio player.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		logger:     logger,
		volume:     1.0,
		sampleRate: beep.SampleRate(44100),
	}
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = clamp01(volume)
	p.logger.Debug("volume set", "volume", p.volume)
}

// GetVolume returns the current volume.
func (p *Player) GetVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play starts streamer and returns immediately. onDone runs on its own
// goroutine once the stream is exhausted; it is not called if the stream is
// flushed first.
func (p *Player) Play(streamer beep.Streamer, format beep.Format, onDone func()) error {
	if streamer == nil {
		return fmt.Errorf("nothing to play")
	}

	if err := p.ensureInitialized(format.SampleRate); err != nil {
		return err
	}

	p.mu.Lock()
	volume := p.volume
	sampleRate := p.sampleRate
	p.mu.Unlock()

	if format.SampleRate != sampleRate {
		streamer = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	if volume < 1.0 {
		streamer = &effects.Volume{
			Streamer: streamer,
			Base:     2,
			Volume:   volumeToExponent(volume),
			Silent:   volume == 0,
		}
	}

	// The callback runs under the speaker lock, so hand off before doing
	// anything that may touch the speaker again.
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		if onDone != nil {
			go onDone()
		}
	})))

	return nil
}

// Flush stops everything that is currently playing.
func (p *Player) Flush() {
	p.mu.Lock()
	initialized := p.initialized
	p.mu.Unlock()

	if initialized {
		speaker.Clear()
	}
}

// ensureInitialized initializes the speaker if not already done.
func (p *Player) ensureInitialized(sampleRate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	// Use a reasonable buffer size for low latency
	bufferSize := sampleRate.N(time.Millisecond * 100)

	if err := speaker.Init(sampleRate, bufferSize); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	p.sampleRate = sampleRate
	p.initialized = true
	p.logger.Debug("speaker initialized", "sample_rate", sampleRate)
	return nil
}

// Close stops all playback and releases the output device.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		speaker.Clear()
		speaker.Close()
		p.initialized = false
	}
	p.logger.Debug("audio player closed")
}

// volumeToExponent converts a linear volume (0-1) to a base-2 exponent for
// effects.Volume: 0.5 -> -1, 0.25 -> -2.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -10
	}
	return math.Log2(volume)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

package tts

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/language"

	"github.com/jmylchreest/bankvoice/internal/audio"
)

// ErrNotInitialized is returned by Speak before a successful Init.
var ErrNotInitialized = errors.New("tts not initialized")

// focusTimeout bounds each audio focus request and release.
const focusTimeout = 2 * time.Second

// Sink plays synthesized audio. Play must not call onDone before it returns.
type Sink interface {
	Play(streamer beep.Streamer, format beep.Format, onDone func()) error
	Flush()
	SetVolume(volume float64)
	GetVolume() float64
}

// ProgressListener receives utterance lifecycle callbacks.
type ProgressListener interface {
	OnStart(utteranceID string)
	OnDone(utteranceID string)
	OnError(utteranceID string, code ErrorCode)
}

// Options configure a Manager.
type Options struct {
	Locale           language.Tag
	FallbackLocale   language.Tag
	Rate             float64
	Pitch            float64
	Volume           float64 // 0.0 to 1.0
	SynthesisTimeout time.Duration
}

// DefaultOptions speak Vietnamese at normal rate and pitch, falling back to
// American English.
func DefaultOptions() Options {
	return Options{
		Locale:           language.MustParse("vi-VN"),
		FallbackLocale:   language.AmericanEnglish,
		Rate:             1.0,
		Pitch:            1.0,
		Volume:           1.0,
		SynthesisTimeout: 15 * time.Second,
	}
}

// Manager serializes speech through one engine and one sink.
type Manager struct {
	mu     sync.Mutex
	logger *slog.Logger

	engine   Engine
	sink     Sink
	focus    audio.Focus
	listener ProgressListener

	opts  Options
	ready bool

	// In-flight utterance; empty when idle.
	current string
	cancel  context.CancelFunc
}

// NewManager creates a Manager. It is not ready until Init succeeds.
func NewManager(engine Engine, sink Sink, focus audio.Focus, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if focus == nil {
		focus = audio.NoFocus{}
	}
	sink.SetVolume(opts.Volume)

	return &Manager{
		logger: logger,
		engine: engine,
		sink:   sink,
		focus:  focus,
		opts:   opts,
	}
}

// SetProgressListener sets the listener for utterance callbacks.
func (m *Manager) SetProgressListener(l ProgressListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listener = l
}

// Init selects the voice and reports whether the manager is ready.
// It may be called again at any time; an utterance in flight is dropped.
func (m *Manager) Init(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopLocked() {
		m.abandonFocus()
	}
	m.ready = false

	if err := m.engine.Available(ctx); err != nil {
		m.logger.Error("TTS initialization failed", "engine", m.engine.Name(), "error", err)
		return false
	}

	voices, err := m.engine.Voices(ctx)
	if err != nil {
		m.logger.Warn("failed to list voices", "error", err)
	}
	m.logger.Debug("available voices", "count", len(voices))

	base, _ := m.opts.Locale.Base()
	for _, v := range voices {
		if vb, _ := v.Language.Base(); vb == base {
			m.logger.Debug("matching voice", "name", v.Name, "id", v.ID, "locale", v.Language)
		}
	}
	m.logger.Debug("TTS engine", "name", m.engine.Name())

	status := m.engine.SetLanguage(ctx, m.opts.Locale)
	m.logger.Debug("TTS language set", "locale", m.opts.Locale, "result", status)

	switch status {
	case LangMissingData:
		m.logger.Error("language data is missing", "locale", m.opts.Locale)
	case LangNotSupported:
		m.logger.Error("language is not supported", "locale", m.opts.Locale)
		fb := m.engine.SetLanguage(ctx, m.opts.FallbackLocale)
		if fb == LangAvailable || fb == LangCountryAvailable {
			m.logger.Warn("falling back to second locale", "locale", m.opts.FallbackLocale)
			m.ready = true
		}
	default:
		m.engine.SetPitch(m.opts.Pitch)
		m.engine.SetRate(m.opts.Rate)
		m.logger.Info("TTS initialized", "locale", m.opts.Locale, "engine", m.engine.Name())
		m.ready = true
	}

	return m.ready
}

// Speak queues text, interrupting anything in flight, and returns once it
// is queued.
func (m *Manager) Speak(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		m.logger.Error("TTS not initialized, cannot speak")
		return ErrNotInitialized
	}

	m.logger.Debug("speak requested", "speaking", m.current != "", "volume", m.sink.GetVolume())

	ctx, cancel := context.WithTimeout(context.Background(), focusTimeout)
	granted, err := m.focus.Request(ctx)
	cancel()
	if err != nil {
		m.logger.Warn("audio focus request failed", "error", err)
	}
	m.logger.Debug("audio focus requested", "granted", granted)

	m.stopLocked()

	id := NewUtteranceID()
	synthCtx, synthCancel := context.WithTimeout(context.Background(), m.opts.SynthesisTimeout)
	m.current = id
	m.cancel = synthCancel

	go m.run(synthCtx, id, text)

	m.logger.Debug("queued text for speech", "id", id, "text", text)
	return nil
}

func (m *Manager) run(ctx context.Context, id, text string) {
	streamer, format, err := m.engine.Synthesize(ctx, text)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		m.fail(id, CodeOf(err), err)
		return
	}

	m.mu.Lock()
	if m.current != id {
		m.mu.Unlock()
		return
	}
	listener := m.listener
	m.mu.Unlock()

	m.logger.Debug("TTS started speaking", "id", id)
	if listener != nil {
		listener.OnStart(id)
	}

	// Speak may have replaced id while OnStart ran.
	m.mu.Lock()
	if m.current != id {
		m.mu.Unlock()
		m.logger.Debug("utterance dropped before playback", "id", id)
		return
	}
	err = m.sink.Play(streamer, format, func() { m.done(id) })
	m.mu.Unlock()

	if err != nil {
		m.fail(id, ErrorOutput, err)
	}
}

// done handles normal completion of id.
func (m *Manager) done(id string) {
	listener, wasCurrent := m.settle(id)
	if !wasCurrent {
		return
	}

	m.logger.Debug("TTS completed", "id", id)
	if listener != nil {
		listener.OnDone(id)
	}
	m.abandonFocus()
}

// fail handles an error while producing id.
func (m *Manager) fail(id string, code ErrorCode, err error) {
	listener, wasCurrent := m.settle(id)
	if !wasCurrent {
		return
	}

	m.logger.Error("TTS error", "id", id, "code", code, "error", err)
	if listener != nil {
		listener.OnError(id, code)
	}
	m.abandonFocus()
}

// settle clears id as the in-flight utterance if it still is.
func (m *Manager) settle(id string) (ProgressListener, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != id {
		return m.listener, false
	}
	m.current = ""
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return m.listener, true
}

func (m *Manager) abandonFocus() {
	ctx, cancel := context.WithTimeout(context.Background(), focusTimeout)
	defer cancel()
	m.focus.Abandon(ctx)
}

// stopLocked drops the utterance in flight and reports whether there was
// one. Must be called with mu held.
func (m *Manager) stopLocked() bool {
	if m.current == "" {
		return false
	}
	m.logger.Debug("utterance interrupted", "id", m.current)
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.sink.Flush()
	m.current = ""
	return true
}

// Configure applies rate, pitch, volume and timeout at once. Locale changes
// take effect on the next Init.
func (m *Manager) Configure(opts Options) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opts = opts
	m.sink.SetVolume(opts.Volume)
	if m.ready {
		m.engine.SetRate(opts.Rate)
		m.engine.SetPitch(opts.Pitch)
	}
	m.logger.Debug("TTS options updated", "rate", opts.Rate, "pitch", opts.Pitch, "volume", opts.Volume)
}

// Shutdown stops playback and marks the manager unready.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	wasSpeaking := m.stopLocked()
	m.ready = false
	m.mu.Unlock()

	if wasSpeaking {
		m.abandonFocus()
	}
	m.logger.Debug("TTS shutdown")
}

// IsReady reports whether Speak will accept text.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// NewUtteranceID returns a unique, time-ordered utterance identifier.
func NewUtteranceID() string {
	return "TTS_ID_" + ulid.Make().String()
}

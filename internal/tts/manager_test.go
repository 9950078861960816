package tts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type fakeEngine struct {
	mu sync.Mutex

	availableErr error
	statuses     map[string]LanguageStatus
	synthErr     error
	synthBlock   chan struct{}

	languages []string
	rate      float64
	pitch     float64
	spoken    []string
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Available(context.Context) error { return e.availableErr }

func (e *fakeEngine) Voices(context.Context) ([]Voice, error) {
	return []Voice{
		{Name: "Vietnamese", ID: "vi", Language: language.Vietnamese},
		{Name: "English", ID: "en-us", Language: language.AmericanEnglish},
	}, nil
}

func (e *fakeEngine) SetLanguage(_ context.Context, tag language.Tag) LanguageStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.languages = append(e.languages, tag.String())
	if s, ok := e.statuses[tag.String()]; ok {
		return s
	}
	return LangAvailable
}

func (e *fakeEngine) SetRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
}

func (e *fakeEngine) SetPitch(pitch float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pitch = pitch
}

func (e *fakeEngine) Synthesize(ctx context.Context, text string) (beep.Streamer, beep.Format, error) {
	if e.synthBlock != nil {
		select {
		case <-e.synthBlock:
		case <-ctx.Done():
			return nil, beep.Format{}, ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.spoken = append(e.spoken, text)
	if e.synthErr != nil {
		return nil, beep.Format{}, e.synthErr
	}
	return beep.Silence(10), beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}, nil
}

type fakeSink struct {
	mu      sync.Mutex
	playErr error
	hold    bool // keep playing until Flush
	volume  float64
	plays   int
	flushes int
}

func (s *fakeSink) Play(_ beep.Streamer, _ beep.Format, onDone func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.plays++
	if !s.hold {
		go onDone()
	}
	return nil
}

func (s *fakeSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays, s.flushes
}

func (s *fakeSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

func (s *fakeSink) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
}

func (s *fakeSink) GetVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

type fakeFocus struct {
	requests atomic.Int32
	abandons atomic.Int32
}

func (f *fakeFocus) Request(context.Context) (bool, error) {
	f.requests.Add(1)
	return true, nil
}

func (f *fakeFocus) Abandon(context.Context) {
	f.abandons.Add(1)
}

type recordingListener struct {
	mu     sync.Mutex
	starts []string
	dones  []string
	errors []ErrorCode

	onStart func(id string)
}

func (l *recordingListener) OnStart(id string) {
	l.mu.Lock()
	l.starts = append(l.starts, id)
	hook := l.onStart
	l.mu.Unlock()

	if hook != nil {
		hook(id)
	}
}

func (l *recordingListener) OnDone(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dones = append(l.dones, id)
}

func (l *recordingListener) OnError(_ string, code ErrorCode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, code)
}

func (l *recordingListener) counts() (int, int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.starts), len(l.dones), len(l.errors)
}

func newTestManager(engine *fakeEngine, sink *fakeSink) (*Manager, *fakeFocus, *recordingListener) {
	focus := &fakeFocus{}
	listener := &recordingListener{}
	opts := DefaultOptions()
	opts.Rate = 1.25
	opts.Pitch = 0.9
	m := NewManager(engine, sink, focus, opts, nil)
	m.SetProgressListener(listener)
	return m, focus, listener
}

func TestManager_Init(t *testing.T) {
	tests := []struct {
		name      string
		engine    *fakeEngine
		wantReady bool
		wantLangs []string
	}{
		{
			name:      "vietnamese available",
			engine:    &fakeEngine{},
			wantReady: true,
			wantLangs: []string{"vi-VN"},
		},
		{
			name: "vietnamese country available",
			engine: &fakeEngine{statuses: map[string]LanguageStatus{
				"vi-VN": LangCountryAvailable,
			}},
			wantReady: true,
			wantLangs: []string{"vi-VN"},
		},
		{
			name: "vietnamese missing data",
			engine: &fakeEngine{statuses: map[string]LanguageStatus{
				"vi-VN": LangMissingData,
			}},
			wantReady: false,
			wantLangs: []string{"vi-VN"},
		},
		{
			name: "fallback to english",
			engine: &fakeEngine{statuses: map[string]LanguageStatus{
				"vi-VN": LangNotSupported,
			}},
			wantReady: true,
			wantLangs: []string{"vi-VN", "en-US"},
		},
		{
			name: "fallback country available",
			engine: &fakeEngine{statuses: map[string]LanguageStatus{
				"vi-VN": LangNotSupported,
				"en-US": LangCountryAvailable,
			}},
			wantReady: true,
			wantLangs: []string{"vi-VN", "en-US"},
		},
		{
			name: "fallback unusable",
			engine: &fakeEngine{statuses: map[string]LanguageStatus{
				"vi-VN": LangNotSupported,
				"en-US": LangNotSupported,
			}},
			wantReady: false,
			wantLangs: []string{"vi-VN", "en-US"},
		},
		{
			name:      "engine unavailable",
			engine:    &fakeEngine{availableErr: errors.New("espeak-ng not found")},
			wantReady: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestManager(tt.engine, &fakeSink{})

			assert.Equal(t, tt.wantReady, m.Init(context.Background()))
			assert.Equal(t, tt.wantReady, m.IsReady())
			assert.Equal(t, tt.wantLangs, tt.engine.languages)
		})
	}
}

func TestManager_InitSetsRateAndPitch(t *testing.T) {
	engine := &fakeEngine{}
	m, _, _ := newTestManager(engine, &fakeSink{})
	require.True(t, m.Init(context.Background()))

	assert.Equal(t, 1.25, engine.rate)
	assert.Equal(t, 0.9, engine.pitch)
}

func TestManager_SpeakBeforeInit(t *testing.T) {
	engine := &fakeEngine{}
	m, focus, _ := newTestManager(engine, &fakeSink{})

	assert.ErrorIs(t, m.Speak("Bạn vừa nhận 100 ngàn đồng"), ErrNotInitialized)
	assert.Zero(t, focus.requests.Load())
	assert.Empty(t, engine.spoken)
}

func TestManager_SpeakDone(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{}
	m, focus, listener := newTestManager(engine, sink)
	require.True(t, m.Init(context.Background()))

	require.NoError(t, m.Speak("Bạn vừa nhận 1500000 ngàn đồng"))
	assert.Equal(t, int32(1), focus.requests.Load())

	assert.Eventually(t, func() bool {
		_, dones, _ := listener.counts()
		return dones == 1
	}, time.Second, 5*time.Millisecond)

	starts, _, errs := listener.counts()
	assert.Equal(t, 1, starts)
	assert.Zero(t, errs)
	assert.Equal(t, listener.starts[0], listener.dones[0])
	assert.Contains(t, listener.starts[0], "TTS_ID_")
	assert.Equal(t, int32(1), focus.abandons.Load())
}

func TestManager_SpeakError(t *testing.T) {
	engine := &fakeEngine{synthErr: &SynthesisError{Code: ErrorSynthesis, Err: errors.New("boom")}}
	m, focus, listener := newTestManager(engine, &fakeSink{})
	require.True(t, m.Init(context.Background()))

	require.NoError(t, m.Speak("xin chào"))

	assert.Eventually(t, func() bool {
		_, _, errs := listener.counts()
		return errs == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []ErrorCode{ErrorSynthesis}, listener.errors)
	assert.Equal(t, int32(1), focus.abandons.Load())
}

func TestManager_PlayError(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{playErr: errors.New("no device")}
	m, focus, listener := newTestManager(engine, sink)
	require.True(t, m.Init(context.Background()))

	require.NoError(t, m.Speak("xin chào"))

	assert.Eventually(t, func() bool {
		_, _, errs := listener.counts()
		return errs == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []ErrorCode{ErrorOutput}, listener.errors)
	assert.Equal(t, int32(1), focus.abandons.Load())
}

func TestManager_FlushInterruptsPrevious(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{hold: true}
	m, focus, listener := newTestManager(engine, sink)
	require.True(t, m.Init(context.Background()))

	require.NoError(t, m.Speak("một"))
	assert.Eventually(t, func() bool {
		plays, _ := sink.counts()
		return plays == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Speak("hai"))
	assert.Eventually(t, func() bool {
		plays, _ := sink.counts()
		return plays == 2
	}, time.Second, 5*time.Millisecond)

	_, flushes := sink.counts()
	assert.Equal(t, 1, flushes)
	starts, dones, _ := listener.counts()
	assert.Equal(t, 2, starts)
	assert.Zero(t, dones)
	assert.Zero(t, focus.abandons.Load())
}

func TestManager_ShutdownCancelsSynthesis(t *testing.T) {
	engine := &fakeEngine{synthBlock: make(chan struct{})}
	m, focus, listener := newTestManager(engine, &fakeSink{})
	require.True(t, m.Init(context.Background()))

	require.NoError(t, m.Speak("một"))
	m.Shutdown()

	assert.False(t, m.IsReady())
	assert.ErrorIs(t, m.Speak("hai"), ErrNotInitialized)
	assert.Equal(t, int32(1), focus.abandons.Load())

	// The cancelled synthesis reports nothing.
	time.Sleep(20 * time.Millisecond)
	starts, dones, errs := listener.counts()
	assert.Zero(t, starts+dones+errs)
}

func TestManager_SpeakBeforePlaybackDropsPrevious(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{hold: true}
	m, focus, listener := newTestManager(engine, sink)
	require.True(t, m.Init(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	listener.onStart = func(string) {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	require.NoError(t, m.Speak("một"))
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("first utterance never started")
	}

	require.NoError(t, m.Speak("hai"))
	close(release)

	assert.Eventually(t, func() bool {
		plays, _ := sink.counts()
		return plays == 1
	}, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool {
		plays, _ := sink.counts()
		return plays > 1
	}, 50*time.Millisecond, 5*time.Millisecond)

	_, flushes := sink.counts()
	assert.Equal(t, 1, flushes)

	starts, dones, errs := listener.counts()
	assert.Equal(t, 2, starts)
	assert.Zero(t, dones+errs)
	assert.Zero(t, focus.abandons.Load())
}

func TestManager_StaleCompletionIsIgnored(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{hold: true}
	m, focus, listener := newTestManager(engine, sink)
	require.True(t, m.Init(context.Background()))

	require.NoError(t, m.Speak("một"))
	assert.Eventually(t, func() bool {
		starts, _, _ := listener.counts()
		return starts == 1
	}, time.Second, 5*time.Millisecond)

	m.done("TTS_ID_stale")
	m.fail("TTS_ID_stale", ErrorOutput, errors.New("late"))

	_, dones, errs := listener.counts()
	assert.Zero(t, dones+errs)
	assert.Zero(t, focus.abandons.Load())
}

func TestManager_InitDuringSpeechReleasesFocus(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{hold: true}
	m, focus, listener := newTestManager(engine, sink)
	require.True(t, m.Init(context.Background()))

	require.NoError(t, m.Speak("một"))
	assert.Eventually(t, func() bool {
		plays, _ := sink.counts()
		return plays == 1
	}, time.Second, 5*time.Millisecond)

	require.True(t, m.Init(context.Background()))
	assert.Equal(t, int32(1), focus.abandons.Load())

	_, flushes := sink.counts()
	assert.Equal(t, 1, flushes)
	_, dones, _ := listener.counts()
	assert.Zero(t, dones)
}

func TestManager_Configure(t *testing.T) {
	engine := &fakeEngine{}
	sink := &fakeSink{}
	m, _, _ := newTestManager(engine, sink)
	require.True(t, m.Init(context.Background()))

	opts := DefaultOptions()
	opts.Rate = 1.5
	opts.Volume = 0.4
	m.Configure(opts)

	assert.Equal(t, 1.5, engine.rate)
	assert.Equal(t, 0.4, sink.GetVolume())
}

func TestNewUtteranceID(t *testing.T) {
	a := NewUtteranceID()
	b := NewUtteranceID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("TTS_ID_")+26)
}

package tts

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"golang.org/x/text/language"
)

const (
	// espeak defaults that correspond to rate and pitch 1.0.
	espeakBaseWPM   = 175
	espeakBasePitch = 50
	espeakMaxPitch  = 99
)

// runFunc executes name with args, feeding stdin, and returns stdout.
type runFunc func(ctx context.Context, name string, args []string, stdin string) ([]byte, error)

// Espeak drives the espeak-ng (or espeak) command line synthesizer.
type Espeak struct {
	mu     sync.Mutex
	binary string
	logger *slog.Logger
	run    runFunc

	voices       []Voice
	voicesLoaded bool

	voice string
	rate  float64
	pitch float64
}

// NewEspeak creates an engine that runs binary.
func NewEspeak(binary string, logger *slog.Logger) *Espeak {
	if logger == nil {
		logger = slog.Default()
	}
	return &Espeak{
		binary: binary,
		logger: logger,
		run:    runCommand,
		rate:   1.0,
		pitch:  1.0,
	}
}

// Name returns the binary name.
func (e *Espeak) Name() string {
	return e.binary
}

// Available checks the binary is on PATH.
func (e *Espeak) Available(ctx context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return &SynthesisError{Code: ErrorNotInstalledYet, Err: err}
	}
	return nil
}

// Voices lists installed voices. The list is cached after the first
// successful call.
func (e *Espeak) Voices(ctx context.Context) ([]Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadVoices(ctx)
}

func (e *Espeak) loadVoices(ctx context.Context) ([]Voice, error) {
	if e.voicesLoaded {
		return e.voices, nil
	}

	out, err := e.run(ctx, e.binary, []string{"--voices"}, "")
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}

	e.voices = parseVoices(out)
	e.voicesLoaded = true
	return e.voices, nil
}

// SetLanguage picks the installed voice closest to tag.
func (e *Espeak) SetLanguage(ctx context.Context, tag language.Tag) LanguageStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	voices, err := e.loadVoices(ctx)
	if err != nil {
		e.logger.Error("failed to load voice data", "engine", e.binary, "error", err)
		return LangMissingData
	}
	if len(voices) == 0 {
		return LangMissingData
	}

	voice, status := matchVoice(voices, tag)
	if !status.Usable() {
		return status
	}

	e.voice = voice.ID
	e.logger.Debug("voice selected", "voice", voice.Name, "id", voice.ID, "status", status)
	return status
}

// matchVoice returns the voice best matching tag and how good the match is.
func matchVoice(voices []Voice, tag language.Tag) (Voice, LanguageStatus) {
	tags := make([]language.Tag, len(voices))
	for i, v := range voices {
		tags[i] = v.Language
	}

	_, idx, confidence := language.NewMatcher(tags).Match(tag)
	switch confidence {
	case language.Exact:
		return voices[idx], LangAvailable
	case language.High:
		return voices[idx], LangCountryAvailable
	default:
		return Voice{}, LangNotSupported
	}
}

// SetRate sets the speech rate.
func (e *Espeak) SetRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
}

// SetPitch sets the pitch.
func (e *Espeak) SetPitch(pitch float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pitch = pitch
}

// Synthesize renders text to a WAV file and loads it into memory.
func (e *Espeak) Synthesize(ctx context.Context, text string) (beep.Streamer, beep.Format, error) {
	if strings.TrimSpace(text) == "" {
		return nil, beep.Format{}, &SynthesisError{Code: ErrorInvalidRequest, Err: errors.New("empty text")}
	}

	e.mu.Lock()
	args := e.synthArgs()
	e.mu.Unlock()

	tmp, err := os.CreateTemp("", "bankvoice-*.wav")
	if err != nil {
		return nil, beep.Format{}, &SynthesisError{Code: ErrorOutput, Err: err}
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(path) }()

	args = append(args, "-w", path, "--stdin")
	if _, err := e.run(ctx, e.binary, args, text); err != nil {
		return nil, beep.Format{}, &SynthesisError{Code: runErrorCode(ctx, err), Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, beep.Format{}, &SynthesisError{Code: ErrorOutput, Err: err}
	}

	streamer, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, beep.Format{}, &SynthesisError{Code: ErrorSynthesis, Err: fmt.Errorf("decode wav: %w", err)}
	}
	defer func() { _ = streamer.Close() }()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, beep.Format{}, &SynthesisError{Code: ErrorSynthesis, Err: fmt.Errorf("decode wav: %w", err)}
	}

	return buf.Streamer(0, buf.Len()), format, nil
}

// synthArgs must be called with mu held.
func (e *Espeak) synthArgs() []string {
	var args []string
	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}

	wpm := int(math.Round(espeakBaseWPM * e.rate))
	pitch := int(math.Round(espeakBasePitch * e.pitch))
	pitch = max(0, min(espeakMaxPitch, pitch))

	return append(args, "-s", strconv.Itoa(wpm), "-p", strconv.Itoa(pitch))
}

func runErrorCode(ctx context.Context, err error) ErrorCode {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return ErrorNotInstalledYet
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrorService
	default:
		return ErrorSynthesis
	}
}

func runCommand(ctx context.Context, name string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// parseVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  vi              --/M      Vietnamese_Northern sit/vi
func parseVoices(out []byte) []Voice {
	var voices []Voice

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}

		tag, err := language.Parse(fields[1])
		if err != nil {
			continue
		}

		voices = append(voices, Voice{
			Name:     fields[3],
			ID:       fields[1],
			Language: tag,
		})
	}

	return voices
}

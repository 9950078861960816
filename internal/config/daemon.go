package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "500ms", "10s", "1m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '500ms', '5s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DaemonConfig is the configuration for bankvoiced.
// Loaded from ~/.config/bankvoice/bankvoiced.toml
type DaemonConfig struct {
	Listener ListenerConfig `toml:"listener"`
	Speech   SpeechConfig   `toml:"speech"`
	Focus    FocusConfig    `toml:"focus"`
}

// ListenerConfig contains notification listener settings.
type ListenerConfig struct {
	StatusNotification bool     `toml:"status_notification"` // Post a resident notification while connected
	ReconnectDelay     Duration `toml:"reconnect_delay"`     // Gap between disable and enable on force-reconnect
	SourceHints        []string `toml:"source_hints"`        // Notify hints checked, in order, for the source id
}

// SpeechConfig contains text-to-speech settings.
type SpeechConfig struct {
	Engine           string   `toml:"engine"`            // espeak-ng or espeak
	Locale           string   `toml:"locale"`            // BCP 47 tag, e.g. "vi-VN"
	FallbackLocale   string   `toml:"fallback_locale"`   // Used when Locale is not supported
	Rate             float64  `toml:"rate"`              // 1.0 = normal
	Pitch            float64  `toml:"pitch"`             // 1.0 = normal
	Volume           int      `toml:"volume"`            // 0-100
	SynthesisTimeout Duration `toml:"synthesis_timeout"` // Upper bound for one engine run
}

// FocusConfig contains audio focus settings.
type FocusConfig struct {
	Mode       string `toml:"mode"`        // "duck", "pause", or "none"
	DuckVolume int    `toml:"duck_volume"` // 0-100, volume other players are ducked to
}

// FocusMode represents how other players are treated while speaking.
type FocusMode string

const (
	FocusModeDuck  FocusMode = "duck"
	FocusModePause FocusMode = "pause"
	FocusModeNone  FocusMode = "none"
)

// ValidFocusModes returns all valid focus mode values.
func ValidFocusModes() []FocusMode {
	return []FocusMode{FocusModeDuck, FocusModePause, FocusModeNone}
}

// ValidEngines returns the supported speech engine binaries.
func ValidEngines() []string {
	return []string{"espeak-ng", "espeak"}
}

// DefaultDaemonConfig returns a new DaemonConfig with default values.
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Listener: ListenerConfig{
			StatusNotification: true,
			ReconnectDelay:     Duration(500 * time.Millisecond),
			SourceHints:        []string{"x-android-package", "desktop-entry"},
		},
		Speech: SpeechConfig{
			Engine:           "espeak-ng",
			Locale:           "vi-VN",
			FallbackLocale:   "en-US",
			Rate:             1.0,
			Pitch:            1.0,
			Volume:           100,
			SynthesisTimeout: Duration(15 * time.Second),
		},
		Focus: FocusConfig{
			Mode:       string(FocusModeDuck),
			DuckVolume: 30,
		},
	}
}

// DaemonConfigPath returns the path to the daemon config file.
func DaemonConfigPath() string {
	return filepath.Join(ConfigDir(), "bankvoiced.toml")
}

// LoadDaemonConfig loads the daemon configuration from path.
// If path is empty the default path is used. A missing file yields defaults.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	if path == "" {
		path = DaemonConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	config := DefaultDaemonConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveDaemonConfig saves the daemon configuration to path.
func SaveDaemonConfig(path string, config *DaemonConfig) error {
	if path == "" {
		path = DaemonConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *DaemonConfig) Validate() error {
	if !slices.Contains(ValidEngines(), c.Speech.Engine) {
		return fmt.Errorf("invalid engine %q, must be one of: %v", c.Speech.Engine, ValidEngines())
	}

	if _, err := language.Parse(c.Speech.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Speech.Locale, err)
	}
	if _, err := language.Parse(c.Speech.FallbackLocale); err != nil {
		return fmt.Errorf("invalid fallback_locale %q: %w", c.Speech.FallbackLocale, err)
	}

	if c.Speech.Rate <= 0 || c.Speech.Rate > 4 {
		return fmt.Errorf("rate must be in (0, 4], got %v", c.Speech.Rate)
	}
	if c.Speech.Pitch <= 0 || c.Speech.Pitch > 2 {
		return fmt.Errorf("pitch must be in (0, 2], got %v", c.Speech.Pitch)
	}
	if c.Speech.Volume < 0 || c.Speech.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Speech.Volume)
	}
	if c.Speech.SynthesisTimeout.Duration() <= 0 {
		return fmt.Errorf("synthesis_timeout must be positive")
	}

	if !slices.Contains(ValidFocusModes(), FocusMode(c.Focus.Mode)) {
		return fmt.Errorf("invalid focus mode %q, must be one of: %v", c.Focus.Mode, ValidFocusModes())
	}
	if c.Focus.DuckVolume < 0 || c.Focus.DuckVolume > 100 {
		return fmt.Errorf("duck_volume must be between 0 and 100, got %d", c.Focus.DuckVolume)
	}

	if c.Listener.ReconnectDelay.Duration() < 0 {
		return fmt.Errorf("reconnect_delay cannot be negative")
	}

	return nil
}

// SpeechLocales returns the parsed primary and fallback locales.
// Call Validate first; unparsable values fall back to vi-VN and en-US.
func (c *DaemonConfig) SpeechLocales() (primary, fallback language.Tag) {
	primary, err := language.Parse(c.Speech.Locale)
	if err != nil {
		primary = language.MustParse("vi-VN")
	}
	fallback, err = language.Parse(c.Speech.FallbackLocale)
	if err != nil {
		fallback = language.AmericanEnglish
	}
	return primary, fallback
}

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// Focus arbitrates which application may play audio.
type Focus interface {
	// Request takes transient focus. It reports whether focus was granted.
	Request(ctx context.Context) (bool, error)
	// Abandon gives focus back to whoever held it before.
	Abandon(ctx context.Context)
}

// NoFocus never touches other players and always grants focus.
type NoFocus struct{}

// Request always grants focus.
func (NoFocus) Request(context.Context) (bool, error) { return true, nil }

// Abandon does nothing.
func (NoFocus) Abandon(context.Context) {}

// FocusMode selects how MPRISFocus treats players that are playing.
type FocusMode string

const (
	// FocusDuck lowers the volume of playing players.
	FocusDuck FocusMode = "duck"
	// FocusPause pauses playing players.
	FocusPause FocusMode = "pause"
	// FocusNone leaves other players alone.
	FocusNone FocusMode = "none"
)

// heldPlayer remembers what was done to a player so it can be undone.
type heldPlayer struct {
	name   string
	paused bool
	volume float64
}

// MPRISFocus takes transient focus from MPRIS media players.
type MPRISFocus struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	logger *slog.Logger

	mode       FocusMode
	duckVolume float64 // 0.0 to 1.0

	held []heldPlayer
}

// NewMPRISFocus connects to the session bus.
func NewMPRISFocus(mode FocusMode, duckVolume float64, logger *slog.Logger) (*MPRISFocus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &MPRISFocus{
		conn:       conn,
		logger:     logger,
		mode:       mode,
		duckVolume: clamp01(duckVolume),
	}, nil
}

// SetMode changes the focus mode for subsequent requests.
func (f *MPRISFocus) SetMode(mode FocusMode, duckVolume float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = mode
	f.duckVolume = clamp01(duckVolume)
}

// Request ducks or pauses every player that is currently playing.
// Focus is granted unless the player list cannot be read.
func (f *MPRISFocus) Request(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Already holding focus from a previous utterance.
	if f.mode == FocusNone || len(f.held) > 0 {
		return true, nil
	}

	players, err := f.listPlayers(ctx)
	if err != nil {
		return false, err
	}

	for _, name := range players {
		obj := f.conn.Object(name, mprisPath)

		status, err := obj.GetProperty(mprisPlayerIface + ".PlaybackStatus")
		if err != nil {
			f.logger.Debug("failed to read playback status", "player", name, "error", err)
			continue
		}
		if s, _ := status.Value().(string); s != "Playing" {
			continue
		}

		switch f.mode {
		case FocusPause:
			if err := obj.CallWithContext(ctx, mprisPlayerIface+".Pause", 0).Err; err != nil {
				f.logger.Warn("failed to pause player", "player", name, "error", err)
				continue
			}
			f.held = append(f.held, heldPlayer{name: name, paused: true})
		default:
			v, err := obj.GetProperty(mprisPlayerIface + ".Volume")
			if err != nil {
				continue
			}
			volume, ok := v.Value().(float64)
			if !ok || volume <= f.duckVolume {
				continue
			}
			if err := obj.SetProperty(mprisPlayerIface+".Volume", dbus.MakeVariant(f.duckVolume)); err != nil {
				f.logger.Warn("failed to duck player", "player", name, "error", err)
				continue
			}
			f.held = append(f.held, heldPlayer{name: name, volume: volume})
		}
	}

	f.logger.Debug("audio focus granted", "mode", f.mode, "players", len(f.held))
	return true, nil
}

// Abandon restores every player touched by Request.
func (f *MPRISFocus) Abandon(ctx context.Context) {
	f.mu.Lock()
	held := f.held
	f.held = nil
	f.mu.Unlock()

	for _, p := range held {
		obj := f.conn.Object(p.name, mprisPath)
		var err error
		if p.paused {
			err = obj.CallWithContext(ctx, mprisPlayerIface+".Play", 0).Err
		} else {
			err = obj.SetProperty(mprisPlayerIface+".Volume", dbus.MakeVariant(p.volume))
		}
		if err != nil {
			f.logger.Warn("failed to restore player", "player", p.name, "error", err)
		}
	}

	if len(held) > 0 {
		f.logger.Debug("audio focus abandoned", "players", len(held))
	}
}

func (f *MPRISFocus) listPlayers(ctx context.Context) ([]string, error) {
	var names []string
	if err := f.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	return FilterPlayers(names), nil
}

// FilterPlayers returns the MPRIS player names among bus names.
func FilterPlayers(names []string) []string {
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players
}

package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/jmylchreest/bankvoice/internal/listener"
)

// Speaker queues text for speech.
type Speaker interface {
	Speak(text string) error
}

// Connection is the part of the listener the control surface drives.
type Connection interface {
	RequestRebind() (bool, error)
	IsConnected() bool
	ForceReconnect() (bool, error)
}

// Commands implements the control object's command surface.
type Commands struct {
	logger   *slog.Logger
	speaker  Speaker
	conn     Connection
	access   listener.AccessChecker
	settings string

	// openPath opens a path in the user's file manager.
	openPath func(path string) error
}

// NewCommands creates Commands. settingsDir is what OpenNotificationSettings
// opens.
func NewCommands(speaker Speaker, conn Connection, access listener.AccessChecker, settingsDir string, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		logger:   logger,
		speaker:  speaker,
		conn:     conn,
		access:   access,
		settings: settingsDir,
		openPath: xdgOpen,
	}
}

// Speak speaks text immediately, interrupting any announcement in flight.
func (c *Commands) Speak(text string) error {
	return c.speaker.Speak(text)
}

// IsNotificationAccessGranted reports the current access grant. A state
// file that cannot be read counts as not granted.
func (c *Commands) IsNotificationAccessGranted() bool {
	granted, err := c.access()
	if err != nil {
		c.logger.Warn("failed to read access state", "error", err)
		return false
	}
	return granted
}

// OpenNotificationSettings opens the bankvoice settings directory.
func (c *Commands) OpenNotificationSettings() error {
	if err := os.MkdirAll(c.settings, 0700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	return c.openPath(c.settings)
}

// RebindNotificationService requests a listener rebind.
func (c *Commands) RebindNotificationService() (bool, error) {
	return c.conn.RequestRebind()
}

// IsServiceConnected reports whether the listener is connected.
func (c *Commands) IsServiceConnected() bool {
	return c.conn.IsConnected()
}

// ForceReconnectService toggles the listener component off and on.
func (c *Commands) ForceReconnectService() (bool, error) {
	return c.conn.ForceReconnect()
}

func xdgOpen(path string) error {
	cmd := exec.Command("xdg-open", path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("xdg-open: %w", err)
	}
	// Reap the child without blocking the caller.
	go func() { _ = cmd.Wait() }()
	return nil
}

package dbus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

const (
	// ControlInterface is the bankvoice control interface name.
	ControlInterface = "io.github.jmylchreest.BankVoice"
	// ControlPath is the control object path.
	ControlPath = "/io/github/jmylchreest/BankVoice"
	// ControlBusName is the bus name claimed by the daemon.
	ControlBusName = "io.github.jmylchreest.BankVoice"
)

// Commands is the command surface offered to the front-end.
type Commands interface {
	Speak(text string) error
	IsNotificationAccessGranted() bool
	OpenNotificationSettings() error
	RebindNotificationService() (bool, error)
	IsServiceConnected() bool
	ForceReconnectService() (bool, error)
}

// ControlServer exports Commands on the session bus.
type ControlServer struct {
	mu       sync.Mutex
	conn     *dbus.Conn
	logger   *slog.Logger
	commands Commands
	running  bool
}

// NewControlServer creates a new ControlServer.
func NewControlServer(commands Commands, logger *slog.Logger) *ControlServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlServer{
		logger:   logger,
		commands: commands,
	}
}

// Start connects to the session bus, exports the control object and claims
// ControlBusName.
func (s *ControlServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("control server already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, ControlPath, ControlInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: ControlPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    ControlInterface,
				Methods: controlMethods(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ControlPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(ControlBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", ControlBusName)
	}

	s.conn = conn
	s.running = true

	s.logger.Info("control server started", "interface", ControlInterface, "path", ControlPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *ControlServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(ControlBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	_ = s.conn.Export(nil, ControlPath, ControlInterface)
	_ = s.conn.Export(nil, ControlPath, "org.freedesktop.DBus.Introspectable")
	// Don't close the connection as it's shared (SessionBus)

	s.logger.Info("control server stopped")
	return nil
}

// Speak speaks text through the daemon's speech manager.
// D-Bus method: Speak(s) -> nothing
func (s *ControlServer) Speak(text string) *dbus.Error {
	if strings.TrimSpace(text) == "" {
		return newDBusError(CodeInvalidArgument, "Text is null")
	}
	if err := s.commands.Speak(text); err != nil {
		s.logger.Warn("speak command failed", "error", err)
		return newDBusError(CodeTTS, "TTS not initialized or failed to speak")
	}
	return nil
}

// IsNotificationAccessGranted reports whether the daemon may observe notifications.
// D-Bus method: IsNotificationAccessGranted() -> b
func (s *ControlServer) IsNotificationAccessGranted() (bool, *dbus.Error) {
	return s.commands.IsNotificationAccessGranted(), nil
}

// OpenNotificationSettings opens the place where access is granted.
// D-Bus method: OpenNotificationSettings() -> nothing
func (s *ControlServer) OpenNotificationSettings() *dbus.Error {
	if err := s.commands.OpenNotificationSettings(); err != nil {
		return newDBusError(CodeSettings, "Failed to open settings: "+err.Error())
	}
	return nil
}

// RebindNotificationService asks the listener to reconnect.
// D-Bus method: RebindNotificationService() -> b
func (s *ControlServer) RebindNotificationService() (bool, *dbus.Error) {
	ok, err := s.commands.RebindNotificationService()
	if err != nil {
		return false, newDBusError(CodeRebind, "Failed to rebind service: "+err.Error())
	}
	return ok, nil
}

// IsServiceConnected reports whether the listener is connected.
// D-Bus method: IsServiceConnected() -> b
func (s *ControlServer) IsServiceConnected() (bool, *dbus.Error) {
	connected := s.commands.IsServiceConnected()
	s.logger.Debug("service connected status", "connected", connected)
	return connected, nil
}

// ForceReconnectService toggles the listener off and on again.
// D-Bus method: ForceReconnectService() -> b
func (s *ControlServer) ForceReconnectService() (bool, *dbus.Error) {
	ok, err := s.commands.ForceReconnectService()
	if err != nil {
		s.logger.Warn("force reconnect failed", "error", err)
		return false, newDBusError(CodeReconnect, "Failed to force reconnect: "+err.Error())
	}
	return ok, nil
}

// controlMethods returns the D-Bus method introspection data.
func controlMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Speak",
			Args: []introspect.Arg{
				{Name: "text", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "IsNotificationAccessGranted",
			Args: []introspect.Arg{
				{Name: "granted", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "OpenNotificationSettings",
		},
		{
			Name: "RebindNotificationService",
			Args: []introspect.Arg{
				{Name: "requested", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "IsServiceConnected",
			Args: []introspect.Arg{
				{Name: "connected", Type: "b", Direction: "out"},
			},
		},
		{
			Name: "ForceReconnectService",
			Args: []introspect.Arg{
				{Name: "started", Type: "b", Direction: "out"},
			},
		},
	}
}

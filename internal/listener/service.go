// Package listener owns the notification listener lifecycle: binding the bus
// monitor, tracking whether it is connected, and reconnecting after it drops.
package listener

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/bankvoice/internal/dbus"
	"github.com/jmylchreest/bankvoice/internal/model"
)

// Bind errors.
var (
	ErrAccessNotGranted  = errors.New("notification access not granted")
	ErrComponentDisabled = errors.New("listener component disabled")
)

// DefaultReconnectDelay is the gap between disabling and re-enabling the
// component on ForceReconnect.
const DefaultReconnectDelay = 500 * time.Millisecond

// Monitor observes notifications posted on the bus.
type Monitor interface {
	SetNotifyHandler(handler dbus.NotificationHandler)
	SetDisconnectHandler(handler dbus.DisconnectHandler)
	Start() error
	Stop() error
}

// MonitorFactory creates a fresh Monitor for each bind.
type MonitorFactory func() Monitor

// AccessChecker reports whether the listener has been granted access.
type AccessChecker func() (bool, error)

// EventHandler receives every observed notification.
type EventHandler func(e *model.Event)

// Service binds and rebinds the notification monitor.
type Service struct {
	mu     sync.Mutex
	logger *slog.Logger

	newMonitor MonitorFactory
	access     AccessChecker
	handler    EventHandler

	monitor     Monitor
	sourceHints []string

	connected atomic.Bool
	enabled   atomic.Bool

	reconnectDelay time.Duration
	reenableTimer  *time.Timer

	onConnected    func()
	onDisconnected func()
}

// NewService creates an unbound Service with the component enabled.
func NewService(newMonitor MonitorFactory, access AccessChecker, handler EventHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		logger:         logger,
		newMonitor:     newMonitor,
		access:         access,
		handler:        handler,
		reconnectDelay: DefaultReconnectDelay,
	}
	s.enabled.Store(true)
	return s
}

// SetConnectionHooks sets callbacks run after the listener connects and
// after it disconnects.
func (s *Service) SetConnectionHooks(onConnected, onDisconnected func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onConnected = onConnected
	s.onDisconnected = onDisconnected
}

// SetSourceHints sets the notification hints consulted for the source id.
func (s *Service) SetSourceHints(hints []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceHints = append([]string(nil), hints...)
}

// SetReconnectDelay sets the ForceReconnect delay.
func (s *Service) SetReconnectDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectDelay = d
}

// IsConnected reports whether the monitor is currently receiving.
func (s *Service) IsConnected() bool {
	return s.connected.Load()
}

// IsEnabled reports whether the listener component is enabled.
func (s *Service) IsEnabled() bool {
	return s.enabled.Load()
}

// Bind starts the monitor. Binding an already bound service is a no-op.
func (s *Service) Bind() error {
	s.mu.Lock()

	if s.monitor != nil {
		s.mu.Unlock()
		return nil
	}

	if !s.enabled.Load() {
		s.mu.Unlock()
		return ErrComponentDisabled
	}

	granted, err := s.access()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("check notification access: %w", err)
	}
	if !granted {
		s.mu.Unlock()
		return ErrAccessNotGranted
	}

	m := s.newMonitor()
	m.SetNotifyHandler(s.handleNotification)
	m.SetDisconnectHandler(func(err error) { s.handleDisconnect(m, err) })

	if err := m.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("start notification monitor: %w", err)
	}

	s.monitor = m
	s.connected.Store(true)
	onConnected := s.onConnected
	s.mu.Unlock()

	s.logger.Info("notification listener connected, ready to receive notifications")
	if onConnected != nil {
		onConnected()
	}
	return nil
}

// Unbind stops the monitor without requesting a rebind.
func (s *Service) Unbind() {
	s.mu.Lock()
	m := s.monitor
	s.monitor = nil
	s.connected.Store(false)
	onDisconnected := s.onDisconnected
	s.mu.Unlock()

	if m == nil {
		return
	}

	if err := m.Stop(); err != nil {
		s.logger.Warn("failed to stop notification monitor", "error", err)
	}
	s.logger.Info("notification listener unbound")
	if onDisconnected != nil {
		onDisconnected()
	}
}

// RequestRebind binds the listener if it is not already bound. It reports
// false without error when access is not granted or the component is
// disabled.
func (s *Service) RequestRebind() (bool, error) {
	err := s.Bind()
	switch {
	case err == nil:
		s.logger.Debug("rebind requested successfully")
		return true, nil
	case errors.Is(err, ErrAccessNotGranted), errors.Is(err, ErrComponentDisabled):
		s.logger.Warn("rebind not possible", "reason", err)
		return false, nil
	default:
		return false, err
	}
}

// ForceReconnect disables the component, dropping the listener, then
// re-enables it after the reconnect delay and requests a rebind.
// It returns immediately.
func (s *Service) ForceReconnect() (bool, error) {
	s.mu.Lock()
	if s.reenableTimer != nil {
		s.reenableTimer.Stop()
	}
	delay := s.reconnectDelay
	s.mu.Unlock()

	s.enabled.Store(false)
	s.Unbind()
	s.logger.Debug("component disabled, will re-enable after delay", "delay", delay)

	timer := time.AfterFunc(delay, func() {
		s.enabled.Store(true)
		s.logger.Debug("component re-enabled")

		if _, err := s.RequestRebind(); err != nil {
			s.logger.Error("rebind after component toggle failed", "error", err)
			return
		}
		s.logger.Debug("rebind requested after component toggle")
	})

	s.mu.Lock()
	s.reenableTimer = timer
	s.mu.Unlock()

	return true, nil
}

// Close cancels a pending re-enable and unbinds.
func (s *Service) Close() {
	s.mu.Lock()
	if s.reenableTimer != nil {
		s.reenableTimer.Stop()
		s.reenableTimer = nil
	}
	s.mu.Unlock()

	s.Unbind()
}

func (s *Service) handleNotification(n *dbus.DBusNotification, _ uint32) {
	s.mu.Lock()
	hints := s.sourceHints
	s.mu.Unlock()

	e := model.NewEvent(n.SourceID(hints), n.Summary, n.Body)
	if err := e.Validate(); err != nil {
		s.logger.Debug("ignoring notification", "error", err)
		return
	}

	if s.handler != nil {
		s.handler(e)
	}
}

// handleDisconnect runs on the monitor's goroutine when its connection drops.
func (s *Service) handleDisconnect(m Monitor, err error) {
	s.mu.Lock()
	if s.monitor != m {
		s.mu.Unlock()
		return
	}
	s.monitor = nil
	s.connected.Store(false)
	onDisconnected := s.onDisconnected
	s.mu.Unlock()

	s.logger.Error("notification listener disconnected, will not receive notifications", "error", err)
	if onDisconnected != nil {
		onDisconnected()
	}

	if _, err := s.RequestRebind(); err != nil {
		s.logger.Error("failed to request rebind", "error", err)
		return
	}
	s.logger.Debug("requested rebind for notification listener")
}

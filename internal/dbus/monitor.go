package dbus

import (
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	// NotificationsInterface is the freedesktop notification interface name.
	NotificationsInterface = "org.freedesktop.Notifications"
	// NotificationsPath is the freedesktop notification object path.
	NotificationsPath = "/org/freedesktop/Notifications"
)

// ErrMonitorStopped is passed to the disconnect handler when the bus
// connection closed without Stop being called.
var ErrMonitorStopped = errors.New("monitor connection closed")

// NotificationHandler is called when a Notify call is observed.
type NotificationHandler func(notification *DBusNotification, id uint32)

// DisconnectHandler is called once when the monitor loses its connection.
type DisconnectHandler func(err error)

// Monitor passively observes D-Bus notification traffic without claiming ownership.
// This allows running alongside whatever notification daemon the session uses.
type Monitor struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	logger *slog.Logger

	onNotify     NotificationHandler
	onDisconnect DisconnectHandler

	stopping bool
	done     chan struct{}
}

// NewMonitor creates a new notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
	}
}

// SetNotifyHandler sets the callback for received notifications.
func (m *Monitor) SetNotifyHandler(handler NotificationHandler) {
	m.onNotify = handler
}

// SetDisconnectHandler sets the callback for an unexpected disconnect.
func (m *Monitor) SetDisconnectHandler(handler DisconnectHandler) {
	m.onDisconnect = handler
}

// Start begins monitoring D-Bus for notification traffic.
// A private connection is used because a monitoring connection can no
// longer be used for anything else.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.stopping = false
	m.done = make(chan struct{})
	m.mu.Unlock()

	// Eavesdrop must be registered before BecomeMonitor, otherwise the
	// first messages are routed to the default handler and lost.
	ch := make(chan *dbus.Message, 100)
	conn.Eavesdrop(ch)

	rules := []string{
		"type='method_call',interface='" + NotificationsInterface + "',member='Notify'",
	}

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		rules,
		uint32(0),
	).Err

	if err != nil {
		// BecomeMonitor might not be available (older D-Bus versions)
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		if err := m.addEavesdropMatch(conn); err != nil {
			_ = conn.Close()
			return err
		}
	} else {
		m.logger.Info("started D-Bus monitor using BecomeMonitor")
	}

	go m.processMessages(conn, ch)

	return nil
}

// addEavesdropMatch uses the older AddMatch API for eavesdropping.
func (m *Monitor) addEavesdropMatch(conn *dbus.Conn) error {
	matchRule := "type='method_call',interface='" + NotificationsInterface + "',member='Notify',eavesdrop='true'"

	err := conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch",
		0,
		matchRule,
	).Err
	if err != nil {
		return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
	}

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	return nil
}

// processMessages reads messages until the connection goes away.
func (m *Monitor) processMessages(conn *dbus.Conn, ch chan *dbus.Message) {
	defer func() {
		m.mu.Lock()
		stopping := m.stopping
		done := m.done
		m.mu.Unlock()

		close(done)

		if !stopping && m.onDisconnect != nil {
			m.onDisconnect(ErrMonitorStopped)
		}
	}()

	ctx := conn.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if IsNotifyCall(msg) {
				m.handleNotify(msg)
			}
		}
	}
}

// IsNotifyCall reports whether msg is an org.freedesktop.Notifications.Notify call.
func IsNotifyCall(msg *dbus.Message) bool {
	if msg == nil || msg.Type != dbus.TypeMethodCall {
		return false
	}
	iface, ok := msg.Headers[dbus.FieldInterface]
	if !ok || iface.Value() != NotificationsInterface {
		return false
	}
	member, ok := msg.Headers[dbus.FieldMember]
	return ok && member.Value() == "Notify"
}

// handleNotify parses a Notify method call and invokes the handler.
func (m *Monitor) handleNotify(msg *dbus.Message) {
	notification, err := FromMessageBody(msg.Body)
	if err != nil {
		m.logger.Warn("skipping notification", "error", err)
		return
	}

	// In monitor mode we never see the server's reply with the real ID.
	id := MonitorID(notification, msg.Serial())

	m.logger.Debug("captured notification",
		"app", notification.AppName,
		"summary", notification.Summary,
		"id", id)

	if m.onNotify != nil {
		m.onNotify(notification, id)
	}
}

// MonitorID creates a pseudo-ID for an observed notification from its
// content and the message serial.
func MonitorID(n *DBusNotification, serial uint32) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(n.AppName))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(n.Summary))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(n.Body))
	return h.Sum32() ^ serial
}

// Stop closes the monitor connection. The disconnect handler is not called.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	conn := m.conn
	done := m.done
	m.stopping = true
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	if done != nil {
		<-done
	}
	return err
}

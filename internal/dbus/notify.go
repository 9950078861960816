package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Sender posts and closes notifications through the session's
// notification server.
type Sender struct {
	logger *slog.Logger
	obj    dbus.BusObject
}

// NewSender connects to the session bus.
func NewSender(logger *slog.Logger) (*Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Sender{
		logger: logger,
		obj:    conn.Object(NotificationsInterface, NotificationsPath),
	}, nil
}

// Notify posts n and returns the server-assigned ID.
func (s *Sender) Notify(ctx context.Context, n *DBusNotification) (uint32, error) {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	var id uint32
	err := s.obj.CallWithContext(ctx, NotificationsInterface+".Notify", 0,
		n.AppName,
		n.ReplacesID,
		n.AppIcon,
		n.Summary,
		n.Body,
		actions,
		hints,
		n.ExpireTimeout,
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}

	s.logger.Debug("posted notification", "id", id, "summary", n.Summary)
	return id, nil
}

// Close asks the server to close the notification with id.
func (s *Sender) Close(ctx context.Context, id uint32) error {
	err := s.obj.CallWithContext(ctx, NotificationsInterface+".CloseNotification", 0, id).Err
	if err != nil {
		return fmt.Errorf("close notification %d: %w", id, err)
	}
	return nil
}

package dbus

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ControlClient calls the daemon's control object.
type ControlClient struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// NewControlClient connects to the session bus.
func NewControlClient() (*ControlClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &ControlClient{
		conn: conn,
		obj:  conn.Object(ControlBusName, ControlPath),
	}, nil
}

func (c *ControlClient) call(ctx context.Context, method string, args ...any) *dbus.Call {
	return c.obj.CallWithContext(ctx, ControlInterface+"."+method, 0, args...)
}

// Speak asks the daemon to speak text.
func (c *ControlClient) Speak(ctx context.Context, text string) error {
	return fromDBusError(c.call(ctx, "Speak", text).Err)
}

// IsNotificationAccessGranted asks whether notification access is granted.
func (c *ControlClient) IsNotificationAccessGranted(ctx context.Context) (bool, error) {
	return c.callBool(ctx, "IsNotificationAccessGranted")
}

// OpenNotificationSettings asks the daemon to open the access settings.
func (c *ControlClient) OpenNotificationSettings(ctx context.Context) error {
	return fromDBusError(c.call(ctx, "OpenNotificationSettings").Err)
}

// RebindNotificationService asks the listener to reconnect.
func (c *ControlClient) RebindNotificationService(ctx context.Context) (bool, error) {
	return c.callBool(ctx, "RebindNotificationService")
}

// IsServiceConnected asks whether the listener is connected.
func (c *ControlClient) IsServiceConnected(ctx context.Context) (bool, error) {
	return c.callBool(ctx, "IsServiceConnected")
}

// ForceReconnectService asks the listener to toggle off and on.
func (c *ControlClient) ForceReconnectService(ctx context.Context) (bool, error) {
	return c.callBool(ctx, "ForceReconnectService")
}

func (c *ControlClient) callBool(ctx context.Context, method string) (bool, error) {
	var result bool
	if err := c.call(ctx, method).Store(&result); err != nil {
		return false, fromDBusError(err)
	}
	return result, nil
}

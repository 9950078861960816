package dbus

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

// Urgency levels matching the freedesktop notification spec.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// DBusNotification represents an observed Notify call.
// It contains the raw parameters from the org.freedesktop.Notifications.Notify method.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// StringHint returns the string value of the named hint, or "".
func (n *DBusNotification) StringHint(key string) string {
	if v, ok := n.Hints[key]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *DBusNotification) Urgency() int {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return int(b)
		}
	}
	return UrgencyNormal
}

// DesktopEntry extracts the desktop-entry hint.
func (n *DBusNotification) DesktopEntry() string {
	return n.StringHint("desktop-entry")
}

// Transient returns true if the transient hint is set.
func (n *DBusNotification) Transient() bool {
	if v, ok := n.Hints["transient"]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// SourceID identifies the application that posted the notification.
// The hints are tried in order; the first non-empty one wins, otherwise the
// app name is used. Mirrored phone notifications carry the Android package
// name in a hint, local apps usually only set desktop-entry.
func (n *DBusNotification) SourceID(hints []string) string {
	for _, key := range hints {
		if s := strings.TrimSpace(n.StringHint(key)); s != "" {
			return s
		}
	}
	return strings.TrimSpace(n.AppName)
}

// FromMessageBody decodes the arguments of a Notify call.
// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
func FromMessageBody(body []any) (*DBusNotification, error) {
	if len(body) < 8 {
		return nil, errMalformed("body has %d arguments", len(body))
	}

	notification := &DBusNotification{}

	var ok bool
	if notification.AppName, ok = body[0].(string); !ok {
		return nil, errMalformed("invalid app_name type %T", body[0])
	}
	if notification.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, errMalformed("invalid replaces_id type %T", body[1])
	}
	if notification.AppIcon, ok = body[2].(string); !ok {
		return nil, errMalformed("invalid app_icon type %T", body[2])
	}
	if notification.Summary, ok = body[3].(string); !ok {
		return nil, errMalformed("invalid summary type %T", body[3])
	}
	if notification.Body, ok = body[4].(string); !ok {
		return nil, errMalformed("invalid body type %T", body[4])
	}

	if actions, ok := body[5].([]string); ok {
		notification.Actions = actions
	}
	if hints, ok := body[6].(map[string]dbus.Variant); ok {
		notification.Hints = hints
	}
	if timeout, ok := body[7].(int32); ok {
		notification.ExpireTimeout = timeout
	}

	return notification, nil
}

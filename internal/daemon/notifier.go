package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/jmylchreest/bankvoice/internal/dbus"
)

const (
	appName = "bankvoiced"

	statusSummary = "Đang lắng nghe thông báo"
	statusBody    = "Nhấn để mở ứng dụng"

	notifyTimeout = 2 * time.Second
)

// NotificationLevel indicates the urgency/severity of an internal notification.
type NotificationLevel int

const (
	// NotificationLevelInfo is for informational messages (low urgency).
	NotificationLevelInfo NotificationLevel = iota
	// NotificationLevelWarning is for warning messages (normal urgency).
	NotificationLevelWarning
	// NotificationLevelError is for error messages (critical urgency).
	NotificationLevelError
)

// NotificationSender posts and closes desktop notifications.
type NotificationSender interface {
	Notify(ctx context.Context, n *dbus.DBusNotification) (uint32, error)
	Close(ctx context.Context, id uint32) error
}

// Notifier posts bankvoiced's own notifications: the resident status
// notification while listening, and rate-limited one-off messages.
type Notifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sender NotificationSender

	// Rate limiting
	lastNotifyTime map[string]time.Time // key -> last notification time
	minInterval    time.Duration        // minimum time between same notifications

	statusEnabled bool
	statusID      uint32
}

// NewNotifier creates a Notifier. A nil sender disables all notifications.
func NewNotifier(sender NotificationSender, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		logger:         logger,
		sender:         sender,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second, // Don't repeat same notification within 5 seconds
		statusEnabled:  true,
	}
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *Notifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// SetStatusEnabled turns the resident status notification on or off.
// Disabling it closes one that is showing.
func (n *Notifier) SetStatusEnabled(enabled bool) {
	n.mu.Lock()
	n.statusEnabled = enabled
	n.mu.Unlock()

	if !enabled {
		n.HideStatus()
	}
}

// ShowStatus posts the resident "listening" notification, replacing the
// previous one if it is still showing.
func (n *Notifier) ShowStatus() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.statusEnabled || n.sender == nil {
		return
	}

	notification := &dbus.DBusNotification{
		AppName:    appName,
		ReplacesID: n.statusID,
		AppIcon:    "dialog-information",
		Summary:    statusSummary,
		Body:       statusBody,
		Hints: map[string]godbus.Variant{
			"urgency":       godbus.MakeVariant(byte(dbus.UrgencyLow)),
			"category":      godbus.MakeVariant("device"),
			"resident":      godbus.MakeVariant(true),
			"desktop-entry": godbus.MakeVariant(appName),
		},
		ExpireTimeout: 0, // Never expires
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	id, err := n.sender.Notify(ctx, notification)
	if err != nil {
		n.logger.Error("failed to post status notification", "error", err)
		return
	}
	n.statusID = id
	n.logger.Debug("status notification posted", "id", id)
}

// HideStatus closes the resident notification if it is showing.
func (n *Notifier) HideStatus() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.statusID == 0 || n.sender == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := n.sender.Close(ctx, n.statusID); err != nil {
		n.logger.Warn("failed to close status notification", "id", n.statusID, "error", err)
	}
	n.statusID = 0
}

// Notify sends a transient notification if not rate-limited.
// The key is used for rate limiting - same key won't notify again within minInterval.
func (n *Notifier) Notify(key, summary, body string, level NotificationLevel) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.sender == nil {
		n.logger.Debug("internal notification skipped: no sender", "summary", summary)
		return
	}

	// Rate limiting check
	if lastTime, ok := n.lastNotifyTime[key]; ok {
		if time.Since(lastTime) < n.minInterval {
			n.logger.Debug("internal notification rate-limited", "key", key, "summary", summary)
			return
		}
	}
	n.lastNotifyTime[key] = time.Now()

	// Map level to D-Bus urgency
	urgency := byte(dbus.UrgencyNormal)
	icon := "dialog-warning"
	switch level {
	case NotificationLevelInfo:
		urgency = byte(dbus.UrgencyLow)
		icon = "dialog-information"
	case NotificationLevelError:
		urgency = byte(dbus.UrgencyCritical)
		icon = "dialog-error"
	}

	notification := &dbus.DBusNotification{
		AppName: appName,
		AppIcon: icon,
		Summary: summary,
		Body:    body,
		Hints: map[string]godbus.Variant{
			"urgency":       godbus.MakeVariant(urgency),
			"category":      godbus.MakeVariant("device"),
			"transient":     godbus.MakeVariant(true),
			"desktop-entry": godbus.MakeVariant(appName),
		},
		ExpireTimeout: 5000,
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	n.logger.Debug("sending internal notification", "key", key, "summary", summary, "level", level)
	if _, err := n.sender.Notify(ctx, notification); err != nil {
		n.logger.Warn("failed to send internal notification", "key", key, "error", err)
	}
}

// NotifyConfigReloaded sends a notification about config being reloaded.
func (n *Notifier) NotifyConfigReloaded() {
	n.Notify(
		"config-reload",
		"Configuration Reloaded",
		"bankvoiced configuration has been successfully reloaded.",
		NotificationLevelInfo,
	)
}

// NotifyConfigError sends a notification about config validation error.
func (n *Notifier) NotifyConfigError(err error) {
	n.Notify(
		"config-error",
		"Configuration Error",
		"Failed to reload configuration: "+err.Error(),
		NotificationLevelWarning,
	)
}

// NotifySpeechUnavailable warns that announcements cannot be spoken.
func (n *Notifier) NotifySpeechUnavailable() {
	n.Notify(
		"tts-unavailable",
		"Speech Unavailable",
		"No usable text-to-speech voice was found. Install espeak-ng with Vietnamese voice data.",
		NotificationLevelError,
	)
}

// Package dbus holds the session-bus plumbing for bankvoice. It passively
// monitors org.freedesktop.Notifications Notify calls, exports the
// io.github.jmylchreest.BankVoice control object used by the front-end, and
// posts the daemon's own status notification.
package dbus

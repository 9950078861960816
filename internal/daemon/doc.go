// Package daemon provides the main orchestration for bankvoiced.
// It coordinates the notification listener, the speech manager, the control
// object on the session bus, the status notification, and hot-reload of the
// configuration and access state.
package daemon

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/store"
)

// accessCmd represents the access command group.
var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Manage notification access",
	Long: `Manage whether bankvoiced may read notifications.

bankvoiced only binds its notification listener while access is granted.
A running daemon notices the change and connects or disconnects on its own.

Use 'bankvoice access status' to check the current state.
Use 'bankvoice access grant' to allow the daemon to listen.
Use 'bankvoice access revoke' to stop it listening.`,
	RunE: accessStatusRun,
}

var accessGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant notification access",
	RunE:  func(cmd *cobra.Command, args []string) error { return setAccess(true) },
}

var accessRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke notification access",
	RunE:  func(cmd *cobra.Command, args []string) error { return setAccess(false) },
}

var accessStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show notification access status",
	RunE:  accessStatusRun,
}

func init() {
	accessCmd.AddCommand(accessGrantCmd)
	accessCmd.AddCommand(accessRevokeCmd)
	accessCmd.AddCommand(accessStatusCmd)
	rootCmd.AddCommand(accessCmd)
}

func setAccess(grant bool) error {
	status, err := updateAccess(grant)
	if err != nil {
		return err
	}
	return printOutput(status, status.writeText)
}

// updateAccess grants or revokes the listener's access and returns the
// resulting state. The state file is only rewritten when something changed.
func updateAccess(grant bool) (accessStatus, error) {
	state, err := store.LoadSharedState()
	if err != nil {
		return accessStatus{}, fmt.Errorf("failed to load state: %w", err)
	}

	var changed bool
	if grant {
		changed = state.GrantAccess(store.ListenerComponent)
	} else {
		changed = state.RevokeAccess(store.ListenerComponent)
	}

	if changed {
		if err := store.SaveSharedState(state); err != nil {
			return accessStatus{}, fmt.Errorf("failed to save state: %w", err)
		}
	}

	return newAccessStatus(state), nil
}

// accessStatus is the machine-readable access state.
type accessStatus struct {
	Granted   bool      `json:"granted" yaml:"granted"`
	Listeners []string  `json:"enabled_notification_listeners" yaml:"enabled_notification_listeners"`
	ChangedAt time.Time `json:"changed_at,omitzero" yaml:"changed_at,omitempty"`
}

func newAccessStatus(state *store.SharedState) accessStatus {
	status := accessStatus{
		Granted:   state.IsAccessGranted(store.ListenerComponent),
		Listeners: state.EnabledNotificationListeners,
	}
	if state.AccessChangedAt > 0 {
		status.ChangedAt = time.Unix(state.AccessChangedAt, 0)
	}
	return status
}

func (s accessStatus) writeText(w io.Writer) {
	if s.Granted {
		fmt.Fprintln(w, "Notification access: granted")
	} else {
		fmt.Fprintln(w, "Notification access: not granted")
	}
	if !s.ChangedAt.IsZero() {
		fmt.Fprintf(w, "  Last change: %s\n", humanize.Time(s.ChangedAt))
	}
}

func accessStatusRun(cmd *cobra.Command, args []string) error {
	state, err := store.LoadSharedState()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	status := newAccessStatus(state)
	return printOutput(status, status.writeText)
}

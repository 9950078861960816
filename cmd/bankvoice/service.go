package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the listener is connected",
	Long: `Show notification access and whether bankvoiced's listener is currently
connected. Exits non-zero if the daemon cannot be reached.`,
	RunE: runStatus,
}

var rebindCmd = &cobra.Command{
	Use:   "rebind",
	Short: "Ask the daemon to rebind its listener",
	RunE:  runRebind,
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Force the listener off and on again",
	Long: `Disable the listener, re-enable it after a short delay, and rebind.
Use this when the listener reports connected but announcements stopped.`,
	RunE: runReconnect,
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Open the bankvoice settings directory",
	RunE:  runSettings,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rebindCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(settingsCmd)
}

// serviceStatus is the machine-readable daemon state.
type serviceStatus struct {
	AccessGranted bool `json:"access_granted" yaml:"access_granted"`
	Connected     bool `json:"connected" yaml:"connected"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := daemonClient()
	if err != nil {
		return err
	}
	defer cancel()

	var status serviceStatus
	if status.AccessGranted, err = client.IsNotificationAccessGranted(ctx); err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	if status.Connected, err = client.IsServiceConnected(ctx); err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}

	return printOutput(status, func(w io.Writer) {
		fmt.Fprintf(w, "Notification access: %s\n", yesNo(status.AccessGranted, "granted", "not granted"))
		fmt.Fprintf(w, "Listener: %s\n", yesNo(status.Connected, "connected", "disconnected"))
	})
}

func runRebind(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := daemonClient()
	if err != nil {
		return err
	}
	defer cancel()

	ok, err := client.RebindNotificationService(ctx)
	if err != nil {
		return err
	}
	if !ok {
		granted, _ := store.AccessGranted()
		if !granted {
			return fmt.Errorf("rebind not possible: run 'bankvoice access grant' first")
		}
		return fmt.Errorf("rebind not possible right now")
	}
	fmt.Println("Rebind requested")
	return nil
}

func runReconnect(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := daemonClient()
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := client.ForceReconnectService(ctx); err != nil {
		return err
	}
	fmt.Println("Reconnect requested")
	return nil
}

func runSettings(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := daemonClient()
	if err != nil {
		return err
	}
	defer cancel()

	return client.OpenNotificationSettings(ctx)
}

func yesNo(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

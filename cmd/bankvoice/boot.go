package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/listener"
	"github.com/jmylchreest/bankvoice/internal/store"
)

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Request a listener rebind at session start",
	Long: `Run once when the desktop session starts, for example from an XDG
autostart entry or a systemd user unit ordered after bankvoiced.

If notification access has been granted, the daemon is asked to rebind its
listener. Otherwise nothing happens. The command always exits 0.`,
	Run: func(cmd *cobra.Command, args []string) {
		client, ctx, cancel, err := daemonClient()
		if err != nil {
			logger.Error("failed to connect to session bus", "error", err)
			return
		}
		defer cancel()

		listener.Boot(ctx, store.AccessGranted, client, logger)
	},
}

func init() {
	rootCmd.AddCommand(bootCmd)
}

// Package main is the entry point for the bankvoiced announcement daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/config"
	"github.com/jmylchreest/bankvoice/internal/daemon"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var opts struct {
	verbose    bool
	configPath string
}

var rootCmd = &cobra.Command{
	Use:   "bankvoiced",
	Short: "Speak banking notifications aloud",
	Long: `bankvoiced watches desktop notifications on the session bus and speaks
an announcement in Vietnamese when a banking or e-wallet app reports money
received or spent.

Notifications mirrored from a phone (for example by KDE Connect) carry the
Android package name, which is matched against a fixed list of banking apps.
The daemon only listens once access has been granted with
'bankvoice access grant'.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.Flags().StringVar(&opts.configPath, "config", "",
		"Path to config file (default: ~/.config/bankvoice/bankvoiced.toml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting bankvoiced", "version", version)

	configPath := opts.configPath
	if configPath == "" {
		configPath = config.DaemonConfigPath()
	}

	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	d, err := daemon.New(cfg, configPath, logger)
	if err != nil {
		logger.Error("failed to initialize daemon", "error", err)
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon failed", "error", err)
		return err
	}
	return nil
}

// Package main provides the CLI entrypoint for bankvoice.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/config"
	"github.com/jmylchreest/bankvoice/internal/dbus"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		format     string
		timeout    time.Duration
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bankvoice",
	Short: "Control the bankvoiced announcement daemon",
	Long: `bankvoice is the front-end for bankvoiced.

It grants or revokes notification access, edits the announcement
preferences, checks whether the listener is connected, and can ask the
daemon to reconnect or to speak arbitrary text.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if globalOpts.format == "" {
			globalOpts.format = cfg.Output.Format
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/bankvoice/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.format, "format", "f", "",
		"Output format (text, json, yaml)")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", 5*time.Second,
		"Timeout for calls to the daemon")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// daemonClient connects to the daemon's control object and returns a
// context bounded by --timeout.
func daemonClient() (*dbus.ControlClient, context.Context, context.CancelFunc, error) {
	client, err := dbus.NewControlClient()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), globalOpts.timeout)
	return client, ctx, cancel, nil
}

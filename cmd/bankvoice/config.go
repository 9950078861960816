package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/config"
)

var configOpts struct {
	force        bool
	daemonConfig string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default configuration files",
	Long: `Write the default CLI config and the default bankvoiced.toml.

Existing files are left alone unless --force is given. A running daemon
picks up a rewritten bankvoiced.toml without a restart.`,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file paths",
	RunE:  runConfigPath,
}

func init() {
	configInitCmd.Flags().BoolVar(&configOpts.force, "force", false,
		"Overwrite existing files")
	configCmd.PersistentFlags().StringVar(&configOpts.daemonConfig, "daemon-config", "",
		"Path to the daemon config (default: ~/.config/bankvoice/bankvoiced.toml)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configPaths lists where each config file lives.
type configPaths struct {
	CLI    string `json:"cli" yaml:"cli"`
	Daemon string `json:"daemon" yaml:"daemon"`
}

func resolveConfigPaths() configPaths {
	paths := configPaths{CLI: globalOpts.configPath, Daemon: configOpts.daemonConfig}
	if paths.CLI == "" {
		paths.CLI = config.ConfigPath()
	}
	if paths.Daemon == "" {
		paths.Daemon = config.DaemonConfigPath()
	}
	return paths
}

// writeDefaultConfigs writes default config files and returns the paths
// written. Existing files are skipped unless force is set.
func writeDefaultConfigs(paths configPaths, force bool) ([]string, error) {
	var written []string

	if force || !fileExists(paths.CLI) {
		if err := config.DefaultConfig().Save(paths.CLI); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", paths.CLI, err)
		}
		written = append(written, paths.CLI)
	}

	if force || !fileExists(paths.Daemon) {
		if err := config.SaveDaemonConfig(paths.Daemon, config.DefaultDaemonConfig()); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", paths.Daemon, err)
		}
		written = append(written, paths.Daemon)
	}

	return written, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	written, err := writeDefaultConfigs(resolveConfigPaths(), configOpts.force)
	if err != nil {
		return err
	}

	return printOutput(written, func(w io.Writer) {
		if len(written) == 0 {
			fmt.Fprintln(w, "Config files already exist (use --force to overwrite)")
			return
		}
		for _, p := range written {
			fmt.Fprintf(w, "Wrote %s\n", p)
		}
	})
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	paths := resolveConfigPaths()
	return printOutput(paths, func(w io.Writer) {
		fmt.Fprintf(w, "CLI:    %s\n", paths.CLI)
		fmt.Fprintf(w, "Daemon: %s\n", paths.Daemon)
	})
}

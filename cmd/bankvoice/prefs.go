package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/bankvoice/internal/store"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change announcement preferences",
	Long: `Show or change the preferences bankvoiced reads for every notification.

Keys:
  voice_enabled  speak announcements at all (true/false, default true)
  min_amount     smallest amount announced, compared by magnitude (default 0)

Changes apply to the next notification; the daemon does not need a restart.

Examples:
  bankvoice prefs
  bankvoice prefs set voice_enabled false
  bankvoice prefs set min_amount 1,000,000
  bankvoice prefs reset min_amount`,
	RunE: runPrefsShow,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefsSet,
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset [key...]",
	Short: "Reset preferences to their defaults",
	RunE:  runPrefsReset,
}

func init() {
	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsResetCmd)
	rootCmd.AddCommand(prefsCmd)
}

// prefsView is the effective preference set.
type prefsView struct {
	VoiceEnabled bool  `json:"voice_enabled" yaml:"voice_enabled"`
	MinAmount    int64 `json:"min_amount" yaml:"min_amount"`
}

func openPrefs() (*store.Prefs, error) {
	path, err := store.PrefsPath()
	if err != nil {
		return nil, err
	}
	return store.NewPrefs(path), nil
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	prefs, err := openPrefs()
	if err != nil {
		return err
	}

	var view prefsView
	if view.VoiceEnabled, err = prefs.Bool(store.KeyVoiceEnabled, store.DefaultVoiceEnabled); err != nil {
		logger.Warn("invalid preference, showing default", "key", store.KeyVoiceEnabled, "error", err)
	}
	if view.MinAmount, err = prefs.Int64(store.KeyMinAmount, store.DefaultMinAmount); err != nil {
		logger.Warn("invalid preference, showing default", "key", store.KeyMinAmount, "error", err)
	}

	return printOutput(view, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %t\n", store.KeyVoiceEnabled, view.VoiceEnabled)
		fmt.Fprintf(w, "%s: %s\n", store.KeyMinAmount, humanize.Comma(view.MinAmount))
	})
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	key, raw := args[0], args[1]

	value, err := parsePrefValue(key, raw)
	if err != nil {
		return err
	}

	prefs, err := openPrefs()
	if err != nil {
		return err
	}
	if err := prefs.Set(key, value); err != nil {
		return err
	}

	logger.Debug("preference set", "key", key, "value", value, "path", prefs.Path())
	return nil
}

func runPrefsReset(cmd *cobra.Command, args []string) error {
	keys := args
	if len(keys) == 0 {
		keys = prefKeys
	}

	prefs, err := openPrefs()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := checkPrefKey(key); err != nil {
			return err
		}
		if err := prefs.Remove(key); err != nil {
			return err
		}
	}
	return nil
}

// parsePrefValue converts raw to the type stored under key. Amounts may use
// thousands separators.
func parsePrefValue(key, raw string) (any, error) {
	switch key {
	case store.KeyVoiceEnabled:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false, got %q", key, raw)
		}
		return b, nil
	case store.KeyMinAmount:
		n, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number, got %q", key, raw)
		}
		if n < 0 {
			return nil, fmt.Errorf("%s cannot be negative", key)
		}
		return n, nil
	default:
		return nil, checkPrefKey(key)
	}
}

var prefKeys = []string{store.KeyVoiceEnabled, store.KeyMinAmount}

func checkPrefKey(key string) error {
	if slices.Contains(prefKeys, key) {
		return nil
	}
	return fmt.Errorf("unknown preference %q (want one of %s)", key, strings.Join(prefKeys, ", "))
}

// Package gate decides whether a parsed transaction should be spoken, based
// on the user's preferences at the moment the notification arrives.
package gate

import (
	"log/slog"

	"github.com/jmylchreest/bankvoice/internal/model"
	"github.com/jmylchreest/bankvoice/internal/store"
)

// Reasons a transaction is suppressed.
const (
	ReasonVoiceDisabled  = "voice_disabled"
	ReasonBelowThreshold = "below_threshold"
)

// PrefReader reads typed preference values.
type PrefReader interface {
	Bool(key string, def bool) (bool, error)
	Int64(key string, def int64) (int64, error)
}

// Decision is the outcome of evaluating one transaction.
type Decision struct {
	Speak        bool   `json:"speak" yaml:"speak"`
	Reason       string `json:"reason,omitempty" yaml:"reason,omitempty"`
	VoiceEnabled bool   `json:"voice_enabled" yaml:"voice_enabled"`
	MinAmount    int64  `json:"min_amount" yaml:"min_amount"`
}

// Gate applies the voice toggle and amount threshold.
type Gate struct {
	prefs  PrefReader
	logger *slog.Logger
}

// New creates a Gate reading from prefs.
func New(prefs PrefReader, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{prefs: prefs, logger: logger}
}

// Evaluate reads preferences fresh and decides whether tx is spoken.
// Unreadable or malformed values fall back to the defaults.
func (g *Gate) Evaluate(tx model.Transaction) Decision {
	enabled, err := g.prefs.Bool(store.KeyVoiceEnabled, store.DefaultVoiceEnabled)
	if err != nil {
		g.logger.Warn("failed to read preference, using default",
			"key", store.KeyVoiceEnabled, "default", store.DefaultVoiceEnabled, "error", err)
		enabled = store.DefaultVoiceEnabled
	}

	minAmount, err := g.prefs.Int64(store.KeyMinAmount, store.DefaultMinAmount)
	if err != nil {
		g.logger.Warn("failed to read preference, using default",
			"key", store.KeyMinAmount, "default", store.DefaultMinAmount, "error", err)
		minAmount = store.DefaultMinAmount
	}

	d := Decision{VoiceEnabled: enabled, MinAmount: minAmount}
	switch {
	case !enabled:
		d.Reason = ReasonVoiceDisabled
	case tx.Abs() < minAmount:
		d.Reason = ReasonBelowThreshold
	default:
		d.Speak = true
	}
	return d
}

// Package announce turns observed notifications into spoken announcements.
package announce

import (
	"errors"
	"log/slog"

	"github.com/jmylchreest/bankvoice/internal/gate"
	"github.com/jmylchreest/bankvoice/internal/model"
	"github.com/jmylchreest/bankvoice/internal/parser"
	"github.com/jmylchreest/bankvoice/internal/tts"
)

// Speaker queues text for speech.
type Speaker interface {
	Speak(text string) error
}

// Outcome describes what happened to one event.
type Outcome struct {
	Allowed     bool               `json:"allowed" yaml:"allowed"`
	Transaction *model.Transaction `json:"transaction,omitempty" yaml:"transaction,omitempty"`
	Decision    *gate.Decision     `json:"decision,omitempty" yaml:"decision,omitempty"`
	Phrase      string             `json:"phrase,omitempty" yaml:"phrase,omitempty"`
	Spoken      bool               `json:"spoken" yaml:"spoken"`
}

// Processor filters, parses, gates and speaks notifications.
type Processor struct {
	gate    *gate.Gate
	speaker Speaker
	logger  *slog.Logger
}

// NewProcessor creates a Processor. speaker may be nil for dry runs.
func NewProcessor(g *gate.Gate, speaker Speaker, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{gate: g, speaker: speaker, logger: logger}
}

// Evaluate runs the pipeline without speaking.
func (p *Processor) Evaluate(e *model.Event) Outcome {
	var out Outcome

	if !parser.IsAllowed(e.Source) {
		return out
	}
	out.Allowed = true

	tx, err := parser.ParseAmount(e.Text)
	if err != nil {
		if !errors.Is(err, parser.ErrNoAmount) {
			p.logger.Error("error processing transaction", "source", e.Source, "error", err)
		}
		return out
	}
	out.Transaction = &tx

	d := p.gate.Evaluate(tx)
	out.Decision = &d
	if d.Speak {
		out.Phrase = tts.Phrase(tx)
	}
	return out
}

// Handle runs the pipeline for e and speaks the result when the gate allows.
// It never panics on malformed input; failures are logged.
func (p *Processor) Handle(e *model.Event) Outcome {
	p.logger.Debug("notification from source", "source", e.Source)

	out := p.Evaluate(e)
	if !out.Allowed {
		return out
	}

	p.logger.Debug("transaction notification",
		"source", e.Source,
		"title", e.Title,
		"text", e.TextTruncated(200),
	)

	switch {
	case out.Transaction == nil:
		p.logger.Debug("no amount in notification text", "source", e.Source)
	case out.Phrase == "":
		p.logger.Debug("announcement suppressed",
			"amount", out.Transaction.Amount, "reason", out.Decision.Reason)
	case p.speaker == nil:
	default:
		if err := p.speaker.Speak(out.Phrase); err != nil {
			p.logger.Error("failed to speak announcement", "error", err)
			break
		}
		out.Spoken = true
		p.logger.Info("announced transaction",
			"source", e.Source,
			"amount", out.Transaction.Amount,
			"direction", out.Transaction.Direction(),
		)
	}

	return out
}

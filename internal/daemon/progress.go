package daemon

import (
	"log/slog"

	"github.com/jmylchreest/bankvoice/internal/tts"
)

// speechProgress logs utterance progress and warns the user when the speech
// engine itself is broken rather than a single utterance.
type speechProgress struct {
	logger   *slog.Logger
	notifier *Notifier
}

func newSpeechProgress(notifier *Notifier, logger *slog.Logger) *speechProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &speechProgress{logger: logger, notifier: notifier}
}

func (p *speechProgress) OnStart(id string) {
	p.logger.Debug("utterance started", "id", id)
}

func (p *speechProgress) OnDone(id string) {
	p.logger.Debug("utterance done", "id", id)
}

func (p *speechProgress) OnError(id string, code tts.ErrorCode) {
	p.logger.Warn("utterance failed", "id", id, "code", code.String())

	switch code {
	case tts.ErrorNotInstalledYet, tts.ErrorService:
		p.notifier.NotifySpeechUnavailable()
	}
}

package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/bankvoice/internal/tts"
)

func TestSpeechProgress(t *testing.T) {
	tests := []struct {
		name       string
		code       tts.ErrorCode
		wantNotify bool
	}{
		{"engine missing", tts.ErrorNotInstalledYet, true},
		{"engine timed out", tts.ErrorService, true},
		{"single synthesis failure", tts.ErrorSynthesis, false},
		{"output device", tts.ErrorOutput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			p := newSpeechProgress(NewNotifier(sender, nil), nil)

			p.OnStart("TTS_ID_1")
			p.OnDone("TTS_ID_1")
			assert.Empty(t, sender.posted)

			p.OnError("TTS_ID_2", tt.code)
			if tt.wantNotify {
				if assert.Len(t, sender.posted, 1) {
					assert.Equal(t, "Speech Unavailable", sender.posted[0].Summary)
				}
			} else {
				assert.Empty(t, sender.posted)
			}
		})
	}
}

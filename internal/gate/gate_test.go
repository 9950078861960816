package gate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bankvoice/internal/model"
	"github.com/jmylchreest/bankvoice/internal/store"
)

func newPrefs(t *testing.T, content string) *store.Prefs {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	return store.NewPrefs(path)
}

func TestGate_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		prefs      string
		amount     int64
		wantSpeak  bool
		wantReason string
	}{
		{"defaults", "", 500000, true, ""},
		{"voice disabled", `{"voice_enabled": false}`, 1500000, false, ReasonVoiceDisabled},
		{"below threshold", `{"min_amount": 1000000}`, 500000, false, ReasonBelowThreshold},
		{"above threshold", `{"min_amount": 1000000}`, 2000000, true, ""},
		{"equal to threshold", `{"min_amount": 1000000}`, 1000000, true, ""},
		{"debit compared by magnitude", `{"min_amount": 1000000}`, -2000000, true, ""},
		{"small debit suppressed", `{"min_amount": 1000000}`, -500000, false, ReasonBelowThreshold},
		{"malformed toggle uses default", `{"voice_enabled": "no"}`, 100, true, ""},
		{"malformed threshold uses default", `{"min_amount": "lots"}`, 100, true, ""},
		{"corrupt file uses defaults", `{not json`, 100, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(newPrefs(t, tt.prefs), nil)
			d := g.Evaluate(model.Transaction{Amount: tt.amount})
			assert.Equal(t, tt.wantSpeak, d.Speak)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestGate_ReadsFreshValues(t *testing.T) {
	prefs := newPrefs(t, "")
	g := New(prefs, nil)
	tx := model.Transaction{Amount: 500000}

	assert.True(t, g.Evaluate(tx).Speak)

	require.NoError(t, prefs.Set(store.KeyVoiceEnabled, false))
	assert.False(t, g.Evaluate(tx).Speak)

	require.NoError(t, prefs.Set(store.KeyVoiceEnabled, true))
	require.NoError(t, prefs.Set(store.KeyMinAmount, 1000000))
	d := g.Evaluate(tx)
	assert.False(t, d.Speak)
	assert.Equal(t, int64(1000000), d.MinAmount)
}

type failingPrefs struct{}

func (failingPrefs) Bool(string, bool) (bool, error)    { return false, errors.New("disk gone") }
func (failingPrefs) Int64(string, int64) (int64, error) { return 99, errors.New("disk gone") }

func TestGate_ReadErrorAppliesDefaults(t *testing.T) {
	d := New(failingPrefs{}, nil).Evaluate(model.Transaction{Amount: 1})
	assert.True(t, d.Speak)
	assert.True(t, d.VoiceEnabled)
	assert.Zero(t, d.MinAmount)
}

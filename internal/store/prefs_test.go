package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrefs(t *testing.T, content string) *Prefs {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	return NewPrefs(path)
}

func TestPrefs_DefaultsWhenMissing(t *testing.T) {
	p := newTestPrefs(t, "")

	enabled, err := p.Bool(KeyVoiceEnabled, DefaultVoiceEnabled)
	require.NoError(t, err)
	assert.True(t, enabled)

	minAmount, err := p.Int64(KeyMinAmount, DefaultMinAmount)
	require.NoError(t, err)
	assert.Equal(t, int64(0), minAmount)
}

func TestPrefs_ReadsValues(t *testing.T) {
	p := newTestPrefs(t, `{"voice_enabled": false, "min_amount": 1000000}`)

	enabled, err := p.Bool(KeyVoiceEnabled, DefaultVoiceEnabled)
	require.NoError(t, err)
	assert.False(t, enabled)

	minAmount, err := p.Int64(KeyMinAmount, DefaultMinAmount)
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), minAmount)
}

func TestPrefs_WrongTypeFallsBack(t *testing.T) {
	p := newTestPrefs(t, `{"voice_enabled": "yes", "min_amount": 1.5}`)

	enabled, err := p.Bool(KeyVoiceEnabled, DefaultVoiceEnabled)
	assert.ErrorIs(t, err, ErrWrongType)
	assert.True(t, enabled)

	minAmount, err := p.Int64(KeyMinAmount, DefaultMinAmount)
	assert.ErrorIs(t, err, ErrWrongType)
	assert.Equal(t, DefaultMinAmount, minAmount)
}

func TestPrefs_WholeFloatAccepted(t *testing.T) {
	p := newTestPrefs(t, `{"min_amount": 2e6}`)

	minAmount, err := p.Int64(KeyMinAmount, DefaultMinAmount)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), minAmount)
}

func TestPrefs_SetIsVisibleToNextRead(t *testing.T) {
	p := newTestPrefs(t, "")

	require.NoError(t, p.Set(KeyMinAmount, 500000))
	require.NoError(t, p.Set(KeyVoiceEnabled, false))

	minAmount, err := p.Int64(KeyMinAmount, DefaultMinAmount)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), minAmount)

	// A second handle on the same file sees the write: no caching.
	other := NewPrefs(p.Path())
	enabled, err := other.Bool(KeyVoiceEnabled, DefaultVoiceEnabled)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, p.Remove(KeyVoiceEnabled))
	require.NoError(t, p.Remove("missing"))
	enabled, err = other.Bool(KeyVoiceEnabled, DefaultVoiceEnabled)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestPrefs_CorruptedFile(t *testing.T) {
	p := newTestPrefs(t, "{")

	_, err := p.All()
	assert.Error(t, err)

	enabled, err := p.Bool(KeyVoiceEnabled, DefaultVoiceEnabled)
	assert.Error(t, err)
	assert.True(t, enabled)
}

func TestPrefs_EmptyFile(t *testing.T) {
	p := newTestPrefs(t, "  \n")

	values, err := p.All()
	require.NoError(t, err)
	assert.Empty(t, values)
}

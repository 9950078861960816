package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent("  com.VCB ", "VCB", "Bạn vừa nhận 1,500,000 VND")

	assert.Equal(t, "com.VCB", e.Source)
	assert.Equal(t, "VCB", e.Title)
	assert.False(t, e.ReceivedAt.IsZero())
	require.NoError(t, e.Validate())
}

func TestEvent_Validate(t *testing.T) {
	e := NewEvent("", "title", "text")
	assert.ErrorIs(t, e.Validate(), ErrEmptySource)
}

func TestEvent_TextTruncated(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   string
	}{
		{"short", "hello", 10, "hello"},
		{"collapse whitespace", "a\n  b\tc", 10, "a b c"},
		{"truncated", "Tài khoản vừa chi 200,000đ", 10, "Tài kho..."},
		{"tiny limit", "abcdef", 2, "ab"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{Text: tt.text}
			assert.Equal(t, tt.want, e.TextTruncated(tt.maxLen))
		})
	}
}

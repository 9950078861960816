// Package model defines the core data structures for bankvoice.
package model

import (
	"errors"
	"strings"
	"time"
)

// Event is a notification observed on the bus, reduced to the fields the
// listener cares about. It is never persisted.
type Event struct {
	// Source identifies the posting application, e.g. "com.VCB".
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// Validation errors.
var (
	ErrEmptySource = errors.New("source cannot be empty")
)

// NewEvent creates an Event stamped with the current time.
func NewEvent(source, title, text string) *Event {
	return &Event{
		Source:     strings.TrimSpace(source),
		Title:      title,
		Text:       text,
		ReceivedAt: time.Now(),
	}
}

// Validate checks that the event carries a source.
func (e *Event) Validate() error {
	if e.Source == "" {
		return ErrEmptySource
	}
	return nil
}

// TextTruncated returns the text collapsed to single spaces and cut to maxLen
// runes, with "..." appended when truncated.
func (e *Event) TextTruncated(maxLen int) string {
	if maxLen <= 0 {
		return ""
	}

	text := []rune(strings.Join(strings.Fields(e.Text), " "))
	if len(text) <= maxLen {
		return string(text)
	}
	if maxLen <= 3 {
		return string(text[:maxLen])
	}
	return string(text[:maxLen-3]) + "..."
}

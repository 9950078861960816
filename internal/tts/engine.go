package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/gopxl/beep/v2"
	"golang.org/x/text/language"
)

// LanguageStatus is the result of selecting a language on an Engine.
type LanguageStatus int

const (
	LangAvailable           LanguageStatus = 0
	LangCountryAvailable    LanguageStatus = 1
	LangCountryVarAvailable LanguageStatus = 2
	LangMissingData         LanguageStatus = -1
	LangNotSupported        LanguageStatus = -2
)

// LanguageStatusNames maps status values to display names.
var LanguageStatusNames = map[LanguageStatus]string{
	LangAvailable:           "available",
	LangCountryAvailable:    "country_available",
	LangCountryVarAvailable: "country_var_available",
	LangMissingData:         "missing_data",
	LangNotSupported:        "not_supported",
}

func (s LanguageStatus) String() string {
	if name, ok := LanguageStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Usable reports whether speech can be produced in the selected language.
func (s LanguageStatus) Usable() bool {
	return s >= LangAvailable
}

// ErrorCode classifies a failed utterance.
type ErrorCode int

const (
	ErrorGeneric         ErrorCode = -1
	ErrorSynthesis       ErrorCode = -3
	ErrorService         ErrorCode = -4
	ErrorOutput          ErrorCode = -5
	ErrorNetwork         ErrorCode = -6
	ErrorNetworkTimeout  ErrorCode = -7
	ErrorInvalidRequest  ErrorCode = -8
	ErrorNotInstalledYet ErrorCode = -9
)

var errorCodeNames = map[ErrorCode]string{
	ErrorGeneric:         "ERROR",
	ErrorSynthesis:       "ERROR_SYNTHESIS",
	ErrorService:         "ERROR_SERVICE",
	ErrorOutput:          "ERROR_OUTPUT",
	ErrorNetwork:         "ERROR_NETWORK",
	ErrorNetworkTimeout:  "ERROR_NETWORK_TIMEOUT",
	ErrorInvalidRequest:  "ERROR_INVALID_REQUEST",
	ErrorNotInstalledYet: "ERROR_NOT_INSTALLED_YET",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN_ERROR (%d)", int(c))
}

// SynthesisError is returned by engines with the code that describes it.
type SynthesisError struct {
	Code ErrorCode
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode carried by err, or ErrorGeneric.
func CodeOf(err error) ErrorCode {
	var se *SynthesisError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrorGeneric
}

// Voice is one voice offered by an engine.
type Voice struct {
	Name     string       `json:"name"`
	ID       string       `json:"id"`
	Language language.Tag `json:"language"`
}

// Engine synthesizes text into audio.
type Engine interface {
	// Name identifies the engine in logs.
	Name() string

	// Available returns an error when the engine cannot run at all.
	Available(ctx context.Context) error

	// Voices lists the installed voices.
	Voices(ctx context.Context) ([]Voice, error)

	// SetLanguage selects the voice used for subsequent synthesis.
	SetLanguage(ctx context.Context, tag language.Tag) LanguageStatus

	// SetRate sets the speech rate; 1.0 is normal.
	SetRate(rate float64)

	// SetPitch sets the voice pitch; 1.0 is normal.
	SetPitch(pitch float64)

	// Synthesize renders text in the selected voice.
	Synthesize(ctx context.Context, text string) (beep.Streamer, beep.Format, error)
}

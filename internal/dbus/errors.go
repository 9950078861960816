package dbus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// ErrMalformedNotify is returned when a Notify call cannot be decoded.
var ErrMalformedNotify = errors.New("malformed Notify call")

func errMalformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedNotify, fmt.Sprintf(format, args...))
}

// Error codes returned by the control object. They are appended to
// ControlInterface+".Error." to form the D-Bus error name.
const (
	CodeTTS             = "TTS_ERROR"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeSettings        = "SETTINGS_ERROR"
	CodeRebind          = "REBIND_ERROR"
	CodeReconnect       = "RECONNECT_ERROR"
)

// CommandError is a failed control command as seen by a client.
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// newDBusError builds the reply error for code.
func newDBusError(code, message string) *dbus.Error {
	return dbus.NewError(ControlInterface+".Error."+code, []any{message})
}

// fromDBusError converts an error reply into a CommandError.
// Errors that are not control-object errors are returned unchanged.
func fromDBusError(err error) error {
	if err == nil {
		return nil
	}

	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErr):
	case errors.As(err, &dbusErrPtr):
		dbusErr = *dbusErrPtr
	default:
		return err
	}

	code, ok := strings.CutPrefix(dbusErr.Name, ControlInterface+".Error.")
	if !ok || code == "" {
		return err
	}

	cmdErr := &CommandError{Code: code}
	if len(dbusErr.Body) > 0 {
		if msg, ok := dbusErr.Body[0].(string); ok {
			cmdErr.Message = msg
		}
	}
	return cmdErr
}

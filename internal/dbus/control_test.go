package dbus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommands struct {
	spoken      []string
	speakErr    error
	granted     bool
	settingsErr error
	rebindOK    bool
	rebindErr   error
	connected   bool
	reconnectOK bool
	reconnErr   error
}

func (f *fakeCommands) Speak(text string) error {
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeCommands) IsNotificationAccessGranted() bool { return f.granted }
func (f *fakeCommands) OpenNotificationSettings() error   { return f.settingsErr }
func (f *fakeCommands) RebindNotificationService() (bool, error) {
	return f.rebindOK, f.rebindErr
}
func (f *fakeCommands) IsServiceConnected() bool { return f.connected }
func (f *fakeCommands) ForceReconnectService() (bool, error) {
	return f.reconnectOK, f.reconnErr
}

func errorCode(t *testing.T, err *dbus.Error) string {
	t.Helper()
	require.NotNil(t, err)
	cmdErr := fromDBusError(err)
	var ce *CommandError
	require.ErrorAs(t, cmdErr, &ce)
	return ce.Code
}

func TestControlServer_Speak(t *testing.T) {
	cmds := &fakeCommands{}
	s := NewControlServer(cmds, nil)

	assert.Nil(t, s.Speak("Xin chào"))
	assert.Equal(t, []string{"Xin chào"}, cmds.spoken)

	assert.Equal(t, CodeInvalidArgument, errorCode(t, s.Speak("  ")))

	cmds.speakErr = errors.New("not ready")
	assert.Equal(t, CodeTTS, errorCode(t, s.Speak("hello")))
}

func TestControlServer_Queries(t *testing.T) {
	cmds := &fakeCommands{granted: true, connected: true}
	s := NewControlServer(cmds, nil)

	granted, dErr := s.IsNotificationAccessGranted()
	assert.Nil(t, dErr)
	assert.True(t, granted)

	connected, dErr := s.IsServiceConnected()
	assert.Nil(t, dErr)
	assert.True(t, connected)
}

func TestControlServer_Errors(t *testing.T) {
	cmds := &fakeCommands{
		settingsErr: errors.New("no opener"),
		rebindErr:   errors.New("access denied"),
		reconnErr:   errors.New("not running"),
	}
	s := NewControlServer(cmds, nil)

	assert.Equal(t, CodeSettings, errorCode(t, s.OpenNotificationSettings()))

	_, dErr := s.RebindNotificationService()
	assert.Equal(t, CodeRebind, errorCode(t, dErr))

	_, dErr = s.ForceReconnectService()
	assert.Equal(t, CodeReconnect, errorCode(t, dErr))
}

func TestControlServer_Success(t *testing.T) {
	cmds := &fakeCommands{rebindOK: true, reconnectOK: true}
	s := NewControlServer(cmds, nil)

	assert.Nil(t, s.OpenNotificationSettings())

	ok, dErr := s.RebindNotificationService()
	assert.Nil(t, dErr)
	assert.True(t, ok)

	ok, dErr = s.ForceReconnectService()
	assert.Nil(t, dErr)
	assert.True(t, ok)
}

func TestFromDBusError(t *testing.T) {
	assert.NoError(t, fromDBusError(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, fromDBusError(plain))

	foreign := dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown", Body: []any{"nope"}}
	assert.Equal(t, foreign, fromDBusError(foreign))

	err := fromDBusError(*newDBusError(CodeRebind, "Failed to rebind service: x"))
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, CodeRebind, ce.Code)
	assert.Equal(t, "REBIND_ERROR: Failed to rebind service: x", ce.Error())
}

package listener

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bankvoice/internal/dbus"
	"github.com/jmylchreest/bankvoice/internal/model"
)

type fakeMonitor struct {
	startErr     error
	onNotify     dbus.NotificationHandler
	onDisconnect dbus.DisconnectHandler
	stopped      atomic.Bool
}

func (m *fakeMonitor) SetNotifyHandler(h dbus.NotificationHandler)   { m.onNotify = h }
func (m *fakeMonitor) SetDisconnectHandler(h dbus.DisconnectHandler) { m.onDisconnect = h }
func (m *fakeMonitor) Start() error                                  { return m.startErr }
func (m *fakeMonitor) Stop() error {
	m.stopped.Store(true)
	return nil
}

type harness struct {
	mu       sync.Mutex
	monitors []*fakeMonitor
	startErr error
	granted  atomic.Bool
	events   []*model.Event

	connects    atomic.Int32
	disconnects atomic.Int32
}

func (h *harness) factory() Monitor {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := &fakeMonitor{startErr: h.startErr}
	h.monitors = append(h.monitors, m)
	return m
}

func (h *harness) last() *fakeMonitor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.monitors[len(h.monitors)-1]
}

func (h *harness) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.monitors)
}

func newHarness(granted bool) (*harness, *Service) {
	h := &harness{}
	h.granted.Store(granted)

	s := NewService(h.factory,
		func() (bool, error) { return h.granted.Load(), nil },
		func(e *model.Event) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, e)
		},
		nil,
	)
	s.SetConnectionHooks(
		func() { h.connects.Add(1) },
		func() { h.disconnects.Add(1) },
	)
	s.SetSourceHints([]string{"x-android-package", "desktop-entry"})
	return h, s
}

func TestService_BindRequiresAccess(t *testing.T) {
	h, s := newHarness(false)

	assert.ErrorIs(t, s.Bind(), ErrAccessNotGranted)
	assert.False(t, s.IsConnected())
	assert.Zero(t, h.count())

	ok, err := s.RequestRebind()
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestService_BindAccessCheckFails(t *testing.T) {
	s := NewService(func() Monitor { return &fakeMonitor{} },
		func() (bool, error) { return false, errors.New("state unreadable") },
		nil, nil)

	err := s.Bind()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccessNotGranted)
}

func TestService_BindConnects(t *testing.T) {
	h, s := newHarness(true)

	require.NoError(t, s.Bind())
	assert.True(t, s.IsConnected())
	assert.Equal(t, int32(1), h.connects.Load())

	// Second bind is a no-op.
	require.NoError(t, s.Bind())
	assert.Equal(t, 1, h.count())
	assert.Equal(t, int32(1), h.connects.Load())
}

func TestService_BindStartFails(t *testing.T) {
	h, s := newHarness(true)
	h.startErr = errors.New("no session bus")

	assert.Error(t, s.Bind())
	assert.False(t, s.IsConnected())
	assert.Zero(t, h.connects.Load())

	ok, err := s.RequestRebind()
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestService_DeliversEvents(t *testing.T) {
	h, s := newHarness(true)
	require.NoError(t, s.Bind())

	m := h.last()
	m.onNotify(&dbus.DBusNotification{
		AppName: "KDE Connect",
		Summary: "VCB",
		Body:    "+1,500,000 VND",
		Hints: map[string]godbus.Variant{
			"x-android-package": godbus.MakeVariant("com.VCB"),
		},
	}, 1)
	m.onNotify(&dbus.DBusNotification{Summary: "no source"}, 2)

	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.events, 1)
	assert.Equal(t, "com.VCB", h.events[0].Source)
	assert.Equal(t, "VCB", h.events[0].Title)
	assert.Equal(t, "+1,500,000 VND", h.events[0].Text)
}

func TestService_DisconnectRebindsOnce(t *testing.T) {
	h, s := newHarness(true)
	require.NoError(t, s.Bind())

	first := h.last()
	first.onDisconnect(errors.New("connection closed"))

	assert.Equal(t, int32(1), h.disconnects.Load())
	assert.True(t, s.IsConnected())
	assert.Equal(t, 2, h.count())
	assert.Equal(t, int32(2), h.connects.Load())

	// A stale monitor reporting again changes nothing.
	first.onDisconnect(errors.New("connection closed"))
	assert.Equal(t, 2, h.count())
	assert.Equal(t, int32(1), h.disconnects.Load())
}

func TestService_DisconnectWithoutAccessStaysDown(t *testing.T) {
	h, s := newHarness(true)
	require.NoError(t, s.Bind())

	h.granted.Store(false)
	h.last().onDisconnect(errors.New("connection closed"))

	assert.False(t, s.IsConnected())
	assert.Equal(t, 1, h.count())
}

func TestService_Unbind(t *testing.T) {
	h, s := newHarness(true)
	require.NoError(t, s.Bind())

	s.Unbind()
	assert.False(t, s.IsConnected())
	assert.True(t, h.last().stopped.Load())
	assert.Equal(t, int32(1), h.disconnects.Load())

	// Unbinding twice is harmless.
	s.Unbind()
	assert.Equal(t, int32(1), h.disconnects.Load())
}

func TestService_ForceReconnect(t *testing.T) {
	h, s := newHarness(true)
	s.SetReconnectDelay(20 * time.Millisecond)
	require.NoError(t, s.Bind())

	ok, err := s.ForceReconnect()
	require.NoError(t, err)
	assert.True(t, ok)

	assert.False(t, s.IsEnabled())
	assert.False(t, s.IsConnected())
	assert.ErrorIs(t, s.Bind(), ErrComponentDisabled)

	assert.Eventually(t, s.IsConnected, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsEnabled())
	assert.Equal(t, 2, h.count())
}

func TestService_CloseCancelsReenable(t *testing.T) {
	h, s := newHarness(true)
	s.SetReconnectDelay(50 * time.Millisecond)
	require.NoError(t, s.Bind())

	_, err := s.ForceReconnect()
	require.NoError(t, err)
	s.Close()

	time.Sleep(100 * time.Millisecond)
	assert.False(t, s.IsConnected())
	assert.Equal(t, 1, h.count())
}

type fakeRebinder struct {
	calls int
	ok    bool
	err   error
}

func (r *fakeRebinder) RebindNotificationService(context.Context) (bool, error) {
	r.calls++
	return r.ok, r.err
}

func TestBoot(t *testing.T) {
	granted := func() (bool, error) { return true, nil }
	denied := func() (bool, error) { return false, nil }

	r := &fakeRebinder{ok: true}
	assert.True(t, Boot(context.Background(), granted, r, nil))
	assert.Equal(t, 1, r.calls)

	r = &fakeRebinder{ok: true}
	assert.False(t, Boot(context.Background(), denied, r, nil))
	assert.Zero(t, r.calls)

	r = &fakeRebinder{err: errors.New("daemon not running")}
	assert.False(t, Boot(context.Background(), granted, r, nil))
	assert.Equal(t, 1, r.calls)

	failing := func() (bool, error) { return false, errors.New("unreadable") }
	r = &fakeRebinder{}
	assert.False(t, Boot(context.Background(), failing, r, nil))
	assert.Zero(t, r.calls)
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmylchreest/bankvoice/internal/announce"
	"github.com/jmylchreest/bankvoice/internal/audio"
	"github.com/jmylchreest/bankvoice/internal/config"
	"github.com/jmylchreest/bankvoice/internal/dbus"
	"github.com/jmylchreest/bankvoice/internal/gate"
	"github.com/jmylchreest/bankvoice/internal/listener"
	"github.com/jmylchreest/bankvoice/internal/model"
	"github.com/jmylchreest/bankvoice/internal/store"
	"github.com/jmylchreest/bankvoice/internal/tts"
)

// ttsInitTimeout bounds voice discovery when the listener (re)connects.
const ttsInitTimeout = 10 * time.Second

// Daemon wires the listener, speech and control surfaces together.
type Daemon struct {
	logger     *slog.Logger
	cfg        *config.DaemonConfig
	configPath string

	player   *audio.Player
	focus    audio.Focus
	speech   *tts.Manager
	listener *listener.Service
	control  *dbus.ControlServer
	notifier *Notifier

	configWatcher *ConfigWatcher
	stateWatcher  *FileWatcher
}

// New builds a Daemon from cfg. Nothing touches the bus until Run.
func New(cfg *config.DaemonConfig, configPath string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	prefsPath, err := store.PrefsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get prefs path: %w", err)
	}

	d := &Daemon{
		logger:     logger,
		cfg:        cfg,
		configPath: configPath,
		player:     audio.NewPlayer(logger),
		focus:      newFocus(cfg, logger),
	}

	engine := tts.NewEspeak(cfg.Speech.Engine, logger)
	d.speech = tts.NewManager(engine, d.player, d.focus, SpeechOptions(cfg), logger)

	processor := announce.NewProcessor(gate.New(store.NewPrefs(prefsPath), logger), d.speech, logger)

	var sender NotificationSender
	if s, err := dbus.NewSender(logger); err != nil {
		logger.Warn("status notifications disabled", "error", err)
	} else {
		sender = s
	}
	d.notifier = NewNotifier(sender, logger)
	d.notifier.SetStatusEnabled(cfg.Listener.StatusNotification)
	d.speech.SetProgressListener(newSpeechProgress(d.notifier, logger))

	d.listener = listener.NewService(
		func() listener.Monitor { return dbus.NewMonitor(logger) },
		store.AccessGranted,
		func(e *model.Event) { processor.Handle(e) },
		logger,
	)
	d.listener.SetSourceHints(cfg.Listener.SourceHints)
	d.listener.SetReconnectDelay(cfg.Listener.ReconnectDelay.Duration())
	d.listener.SetConnectionHooks(d.onListenerConnected, d.onListenerDisconnected)

	commands := NewCommands(d.speech, d.listener, store.AccessGranted, config.ConfigDir(), logger)
	d.control = dbus.NewControlServer(commands, logger)

	return d, nil
}

// Run starts every component and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.control.Start(); err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}

	d.startWatchers()

	if err := d.listener.Bind(); err != nil {
		if errors.Is(err, listener.ErrAccessNotGranted) {
			d.logger.Info("notification access not granted, run 'bankvoice access grant'")
		} else {
			d.logger.Error("failed to bind notification listener", "error", err)
		}
	}

	d.logger.Info("bankvoiced ready")
	<-ctx.Done()

	d.shutdown()
	return nil
}

func (d *Daemon) startWatchers() {
	cw, err := NewConfigWatcher(d.configPath, d.cfg, d.logger)
	if err == nil {
		cw.SetReloadCallback(d.applyConfig)
		cw.SetErrorCallback(d.notifier.NotifyConfigError)
		err = cw.Start()
	}
	if err != nil {
		d.logger.Warn("config hot-reload disabled", "error", err)
	} else {
		d.configWatcher = cw
	}

	statePath, err := store.StateFilePath()
	if err != nil {
		d.logger.Warn("access state watching disabled", "error", err)
		return
	}
	sw, err := NewFileWatcher(statePath, d.onAccessChanged, d.logger)
	if err == nil {
		err = sw.Start()
	}
	if err != nil {
		d.logger.Warn("access state watching disabled", "error", err)
		return
	}
	d.stateWatcher = sw
}

func (d *Daemon) shutdown() {
	d.logger.Info("shutting down")

	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(); err != nil {
			d.logger.Warn("error stopping config watcher", "error", err)
		}
	}
	if d.stateWatcher != nil {
		if err := d.stateWatcher.Stop(); err != nil {
			d.logger.Warn("error stopping state watcher", "error", err)
		}
	}

	d.listener.Close()
	d.speech.Shutdown()
	d.notifier.HideStatus()

	if err := d.control.Stop(); err != nil {
		d.logger.Warn("error stopping control server", "error", err)
	}
	d.player.Close()

	d.logger.Info("bankvoiced stopped")
}

// onListenerConnected re-initializes speech and posts the status
// notification.
func (d *Daemon) onListenerConnected() {
	ctx, cancel := context.WithTimeout(context.Background(), ttsInitTimeout)
	defer cancel()

	if !d.speech.Init(ctx) {
		d.notifier.NotifySpeechUnavailable()
	}
	d.notifier.ShowStatus()
}

func (d *Daemon) onListenerDisconnected() {
	d.notifier.HideStatus()
}

// onAccessChanged binds or unbinds the listener when the grant changes.
func (d *Daemon) onAccessChanged() {
	granted, err := store.AccessGranted()
	if err != nil {
		d.logger.Warn("failed to read access state", "error", err)
		return
	}

	switch {
	case granted && !d.listener.IsConnected() && d.listener.IsEnabled():
		d.logger.Info("notification access granted")
		if _, err := d.listener.RequestRebind(); err != nil {
			d.logger.Error("failed to bind notification listener", "error", err)
		}
	case !granted && d.listener.IsConnected():
		d.logger.Info("notification access revoked")
		d.listener.Unbind()
	}
}

// applyConfig applies a reloaded config to the running components.
func (d *Daemon) applyConfig(old, cfg *config.DaemonConfig) {
	if cfg.Speech.Engine != old.Speech.Engine {
		d.logger.Warn("speech engine change requires a restart", "engine", cfg.Speech.Engine)
	}

	d.speech.Configure(SpeechOptions(cfg))
	if f, ok := d.focus.(*audio.MPRISFocus); ok {
		f.SetMode(audio.FocusMode(cfg.Focus.Mode), float64(cfg.Focus.DuckVolume)/100)
	}

	d.listener.SetSourceHints(cfg.Listener.SourceHints)
	d.listener.SetReconnectDelay(cfg.Listener.ReconnectDelay.Duration())

	d.notifier.SetStatusEnabled(cfg.Listener.StatusNotification)
	if cfg.Listener.StatusNotification && !old.Listener.StatusNotification && d.listener.IsConnected() {
		d.notifier.ShowStatus()
	}

	d.notifier.NotifyConfigReloaded()
}

// SpeechOptions converts the speech section of cfg to manager options.
func SpeechOptions(cfg *config.DaemonConfig) tts.Options {
	primary, fallback := cfg.SpeechLocales()
	return tts.Options{
		Locale:           primary,
		FallbackLocale:   fallback,
		Rate:             cfg.Speech.Rate,
		Pitch:            cfg.Speech.Pitch,
		Volume:           float64(cfg.Speech.Volume) / 100,
		SynthesisTimeout: cfg.Speech.SynthesisTimeout.Duration(),
	}
}

func newFocus(cfg *config.DaemonConfig, logger *slog.Logger) audio.Focus {
	f, err := audio.NewMPRISFocus(audio.FocusMode(cfg.Focus.Mode), float64(cfg.Focus.DuckVolume)/100, logger)
	if err != nil {
		logger.Warn("audio focus disabled", "error", err)
		return audio.NoFocus{}
	}
	return f
}

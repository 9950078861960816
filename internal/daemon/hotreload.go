package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/bankvoice/internal/config"
)

// FileWatcher invokes a callback when one file is written or replaced.
// It watches the containing directory so atomic renames are seen.
type FileWatcher struct {
	mu      sync.Mutex
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	path     string
	onChange func()

	done    chan struct{}
	stopped chan struct{}
	running bool
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, onChange func(), logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &FileWatcher{
		logger:   logger,
		watcher:  watcher,
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start begins watching. The directory is created if missing.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.running {
		return nil
	}

	dir := filepath.Dir(fw.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create watched directory: %w", err)
	}
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fw.running = true
	go fw.watch()

	fw.logger.Debug("file watcher started", "path", fw.path)
	return nil
}

func (fw *FileWatcher) watch() {
	defer close(fw.stopped)
	filename := filepath.Base(fw.path)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Only care about our file
			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				fw.logger.Debug("file changed", "path", fw.path, "op", event.Op)
				if fw.onChange != nil {
					fw.onChange()
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// Stop stops the watcher and waits for the loop to exit.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		return nil
	}
	fw.running = false
	close(fw.done)
	fw.mu.Unlock()

	err := fw.watcher.Close()
	<-fw.stopped
	return err
}

// ConfigWatcher reloads the daemon config when its file changes and only
// publishes configs that validate.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger
	files  *FileWatcher

	configPath    string
	currentConfig *config.DaemonConfig

	onReloadCallback func(oldConfig, newConfig *config.DaemonConfig)
	onErrorCallback  func(err error)
}

// NewConfigWatcher creates a ConfigWatcher for configPath.
func NewConfigWatcher(configPath string, initial *config.DaemonConfig, logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w := &ConfigWatcher{
		logger:        logger,
		configPath:    configPath,
		currentConfig: initial,
	}

	files, err := NewFileWatcher(configPath, w.reload, logger)
	if err != nil {
		return nil, err
	}
	w.files = files
	return w, nil
}

// SetReloadCallback sets the callback to invoke when config is successfully
// reloaded. It receives the previously published config alongside the new one.
func (w *ConfigWatcher) SetReloadCallback(callback func(oldConfig, newConfig *config.DaemonConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// Start begins watching the config file.
func (w *ConfigWatcher) Start() error {
	return w.files.Start()
}

// Stop stops watching the config file.
func (w *ConfigWatcher) Stop() error {
	return w.files.Stop()
}

func (w *ConfigWatcher) reload() {
	w.mu.RLock()
	reloadCallback := w.onReloadCallback
	errorCallback := w.onErrorCallback
	w.mu.RUnlock()

	newConfig, err := config.LoadDaemonConfig(w.configPath)
	if err != nil {
		w.logger.Warn("config file changed but validation failed", "error", err)
		if errorCallback != nil {
			errorCallback(err)
		}
		return
	}

	w.mu.Lock()
	oldConfig := w.currentConfig
	w.currentConfig = newConfig
	w.mu.Unlock()

	w.logger.Info("config reloaded successfully")
	if reloadCallback != nil {
		reloadCallback(oldConfig, newConfig)
	}
}

// Package store holds the small on-disk state shared between bankvoice and
// bankvoiced: the notification-access grant and the user preferences.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// ListenerComponent is the component name recorded when notification access
// is granted to the daemon.
const ListenerComponent = "bankvoiced"

// DataDir returns the path to the bankvoice data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/bankvoice.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "bankvoice"), nil
}

// SharedState contains state that is shared between bankvoice and bankvoiced.
// This is persisted to ~/.local/share/bankvoice/state.json
type SharedState struct {
	// Components allowed to observe notifications.
	EnabledNotificationListeners []string `json:"enabled_notification_listeners"`
	AccessChangedAt              int64    `json:"access_changed_at,omitempty"`

	// Version for compatibility
	SchemaVersion int `json:"schema_version"`
}

const (
	// CurrentSchemaVersion is the current version of the state schema.
	CurrentSchemaVersion = 1
)

// stateFileMutex protects concurrent access to the state file.
var stateFileMutex sync.RWMutex

// DefaultSharedState returns a new SharedState with default values.
func DefaultSharedState() *SharedState {
	return &SharedState{
		SchemaVersion: CurrentSchemaVersion,
	}
}

// StateFilePath returns the path to the state file.
func StateFilePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "state.json"), nil
}

// LoadSharedState loads the shared state from disk.
// If the file doesn't exist, returns a default state.
func LoadSharedState() (*SharedState, error) {
	stateFileMutex.RLock()
	defer stateFileMutex.RUnlock()

	path, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSharedState(), nil
		}
		return nil, err
	}

	var state SharedState
	if err := json.Unmarshal(data, &state); err != nil {
		// If the file is corrupted, return default state
		return DefaultSharedState(), nil
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	return &state, nil
}

// SaveSharedState saves the shared state to disk.
func SaveSharedState(state *SharedState) error {
	stateFileMutex.Lock()
	defer stateFileMutex.Unlock()

	path, err := StateFilePath()
	if err != nil {
		return err
	}

	if state.SchemaVersion == 0 {
		state.SchemaVersion = CurrentSchemaVersion
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data)
}

// IsAccessGranted reports whether component may observe notifications.
func (s *SharedState) IsAccessGranted(component string) bool {
	return slices.Contains(s.EnabledNotificationListeners, component)
}

// GrantAccess records component as an enabled notification listener.
// Returns false if it was already granted.
func (s *SharedState) GrantAccess(component string) bool {
	if s.IsAccessGranted(component) {
		return false
	}
	s.EnabledNotificationListeners = append(s.EnabledNotificationListeners, component)
	s.AccessChangedAt = time.Now().Unix()
	return true
}

// RevokeAccess removes component from the enabled listeners.
// Returns false if it was not granted.
func (s *SharedState) RevokeAccess(component string) bool {
	idx := slices.Index(s.EnabledNotificationListeners, component)
	if idx < 0 {
		return false
	}
	s.EnabledNotificationListeners = slices.Delete(s.EnabledNotificationListeners, idx, idx+1)
	s.AccessChangedAt = time.Now().Unix()
	return true
}

// AccessGranted loads the shared state and checks the daemon's grant.
// A missing state file means no access.
func AccessGranted() (bool, error) {
	state, err := LoadSharedState()
	if err != nil {
		return false, err
	}
	return state.IsAccessGranted(ListenerComponent), nil
}

// writeFileAtomic writes data to a temp file next to path and renames it.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// Preference keys written by the front-end and read by the daemon.
const (
	KeyVoiceEnabled = "voice_enabled"
	KeyMinAmount    = "min_amount"
)

// Preference defaults used when a key is missing or malformed.
const (
	DefaultVoiceEnabled       = true
	DefaultMinAmount    int64 = 0
)

// ErrWrongType is returned when a stored value has an unexpected type.
var ErrWrongType = errors.New("preference has wrong type")

// PrefsPath returns the path to the preferences file.
func PrefsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "prefs.json"), nil
}

// Prefs is a flat key-value store backed by a JSON object on disk.
// Every read goes to disk; nothing is cached.
type Prefs struct {
	mu   sync.Mutex
	path string
}

// NewPrefs creates a Prefs store for path.
func NewPrefs(path string) *Prefs {
	return &Prefs{path: path}
}

// Path returns the backing file path.
func (p *Prefs) Path() string {
	return p.path
}

// All reads every stored key. A missing file yields an empty map.
func (p *Prefs) All() (map[string]any, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	values := map[string]any{}
	if len(bytes.TrimSpace(data)) == 0 {
		return values, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", p.path, err)
	}
	return values, nil
}

// Bool returns the boolean stored under key, or def if the key is absent.
func (p *Prefs) Bool(key string, def bool) (bool, error) {
	values, err := p.All()
	if err != nil {
		return def, err
	}

	raw, ok := values[key]
	if !ok {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return def, fmt.Errorf("%w: %s is %T", ErrWrongType, key, raw)
	}
	return b, nil
}

// Int64 returns the integer stored under key, or def if the key is absent.
func (p *Prefs) Int64(key string, def int64) (int64, error) {
	values, err := p.All()
	if err != nil {
		return def, err
	}

	raw, ok := values[key]
	if !ok {
		return def, nil
	}
	n, err := toInt64(raw)
	if err != nil {
		return def, fmt.Errorf("%w: %s: %w", ErrWrongType, key, err)
	}
	return n, nil
}

// Set stores value under key, rewriting the file atomically.
func (p *Prefs) Set(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, err := p.All()
	if err != nil {
		return err
	}
	values[key] = value
	return p.write(values)
}

// Remove deletes key. Removing a missing key is not an error.
func (p *Prefs) Remove(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, err := p.All()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return p.write(values)
}

func (p *Prefs) write(values map[string]any) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := writeFileAtomic(p.path, data); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// toInt64 accepts JSON numbers that hold whole values.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt64(f)
	case float64:
		return floatToInt64(n)
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%v is not a whole number", f)
	}
	return int64(f), nil
}

// Package config implements the ConfigStore: a structured configuration
// document that hands out typed sections by key.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/jinzhu/copier"
	"github.com/kiosk404/echobot/pkg/logger"
	"github.com/spf13/viper"
)

// ErrNoConfigFile is returned by Reload and Watch on a store not backed by a
// file.
var ErrNoConfigFile = errors.New("config store is not backed by a file")

// Section is implemented by typed configuration sections.
type Section interface {
	SectionKey() string
}

// Defaulter is implemented by sections that fill their own defaults before
// decoding. It must be implemented on the pointer receiver.
type Defaulter interface {
	SetDefaults()
}

// Store wraps a viper instance. Keys are case-insensitive.
type Store struct {
	mu   sync.RWMutex
	v    *viper.Viper
	path string
}

// New returns an empty store.
func New() *Store {
	return &Store{v: viper.New()}
}

// NewFromMap returns a store holding settings.
func NewFromMap(settings map[string]interface{}) *Store {
	s := New()
	if len(settings) > 0 {
		_ = s.v.MergeConfigMap(settings)
	}
	return s
}

// Load reads a TOML, YAML or JSON document. An empty path yields an empty
// store.
func Load(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	s := &Store{v: viper.New(), path: path}
	s.v.SetConfigFile(path)
	if err := s.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	logger.Info("[Config] loaded %q (%d top-level keys)", path, len(s.v.AllSettings()))
	return s, nil
}

// Path returns the backing file, if any.
func (s *Store) Path() string {
	return s.path
}

// HasSection reports whether key is present.
func (s *Store) HasSection(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.IsSet(key)
}

// Section decodes the value at key into out.
func (s *Store) Section(key string, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(key) {
		return fmt.Errorf("config section %q not found", key)
	}
	if err := s.v.UnmarshalKey(key, out, viper.DecodeHook(decodeHook())); err != nil {
		return fmt.Errorf("failed to decode config section %q: %w", key, err)
	}
	return nil
}

// Get decodes the section T declares. A missing section yields T with its
// defaults applied.
func Get[T Section](s *Store) (T, error) {
	var out T
	if d, ok := any(&out).(Defaulter); ok {
		d.SetDefaults()
	}
	key := out.SectionKey()
	if !s.HasSection(key) {
		return out, nil
	}
	if err := s.Section(key, &out); err != nil {
		return out, err
	}
	return out, nil
}

// GetRaw returns the value at a dot-separated path.
func (s *Store) GetRaw(path string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.v.IsSet(path) {
		return nil, false
	}
	return s.v.Get(path), true
}

// GetString returns the string at path or def.
func (s *Store) GetString(path, def string) string {
	if v, ok := s.GetRaw(path); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return def
}

// Set overrides the value at path.
func (s *Store) Set(path string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.Set(path, value)
}

// Merge deep-merges other into s; values from other win.
func (s *Store) Merge(other *Store) error {
	settings := other.AllSettings()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// AllSettings returns the merged settings as nested maps.
func (s *Store) AllSettings() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllSettings()
}

// Keys returns every leaf key in dot notation.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v.AllKeys()
}

// Reload re-reads the backing file. Keys removed from the file disappear;
// values set with Set are lost.
func (s *Store) Reload() error {
	if s.path == "" {
		return ErrNoConfigFile
	}
	fresh := viper.New()
	fresh.SetConfigFile(s.path)
	if err := fresh.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to reload config file %q: %w", s.path, err)
	}
	s.mu.Lock()
	s.v = fresh
	s.mu.Unlock()
	logger.Info("[Config] reloaded %q", s.path)
	return nil
}

// Watch reloads the store whenever the backing file changes and then calls
// fn. It returns immediately.
func (s *Store) Watch(fn func(fsnotify.Event)) error {
	if s.path == "" {
		return ErrNoConfigFile
	}
	watcher := viper.New()
	watcher.SetConfigFile(s.path)
	if err := watcher.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to watch config file %q: %w", s.path, err)
	}
	watcher.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if err := s.Reload(); err != nil {
			logger.Warn("[Config] reload after %s failed: %v", e.Op, err)
			return
		}
		if fn != nil {
			fn(e)
		}
	})
	watcher.WatchConfig()
	return nil
}

// Snapshot returns an independent deep copy of the store's settings.
func (s *Store) Snapshot() (*Store, error) {
	src := s.AllSettings()
	dst := make(map[string]interface{}, len(src))
	if err := copier.CopyWithOption(&dst, &src, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to snapshot config: %w", err)
	}
	snap := NewFromMap(dst)
	snap.path = s.path
	return snap, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// NormalizeKey lowercases a key the way the store does.
func NormalizeKey(key string) string {
	return strings.ToLower(key)
}

package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"
	"github.com/balaguysimon-ops/timestretch-ffmpeg/domain/audio"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 100 * time.Millisecond

// ConfigWatcher reloads the configuration when CONFIG_FILE changes and
// notifies subscribers. Only the reloadable parts (limits, rate limit) are
// expected to take effect without a restart.
type ConfigWatcher struct {
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	reload    func() (*Config, error)
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewConfigWatcher starts watching initial.ConfigFile. With no config file
// the watcher is inert and only serves GetConfig.
func NewConfigWatcher(initial *Config, logger *zap.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &ConfigWatcher{
		config: initial,
		logger: logger,
		reload: LoadConfig,
		stopCh: make(chan struct{}),
	}

	if initial.ConfigFile == "" {
		logger.Debug("Configuration hot reloading disabled: no CONFIG_FILE")
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := fsWatcher.Add(filepath.Dir(initial.ConfigFile)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}
	w.watcher = fsWatcher

	go w.watchLoop(filepath.Clean(initial.ConfigFile))

	logger.Info("Configuration hot reloading enabled", zap.String("file", initial.ConfigFile))
	return w, nil
}

func (w *ConfigWatcher) watchLoop(path string) {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.reloadConfig)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

func (w *ConfigWatcher) reloadConfig() {
	newConfig, err := w.reload()
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	old := w.config
	w.config = newConfig
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	if old.Limits != newConfig.Limits {
		w.logger.Info("Limits changed",
			zap.Any("old", old.Limits),
			zap.Any("new", newConfig.Limits),
		)
	}
	if old.RateLimitPerMinute != newConfig.RateLimitPerMinute {
		w.logger.Info("Rate limit changed",
			zap.Int("old", old.RateLimitPerMinute),
			zap.Int("new", newConfig.RateLimitPerMinute),
		)
	}

	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Config callback panicked",
						zap.Int("callback_index", i),
						zap.Any("panic", r),
					)
				}
			}()
			cb(newConfig)
		}()
	}
}

// OnChange registers a callback run after each successful reload.
func (w *ConfigWatcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// GetConfig returns the current configuration.
func (w *ConfigWatcher) GetConfig() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops the watcher. Safe to call more than once.
func (w *ConfigWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// LimitsStore holds the current limits and implements ports.LimitsProvider.
type LimitsStore struct {
	v atomic.Pointer[audio.Limits]
}

var _ ports.LimitsProvider = (*LimitsStore)(nil)

// NewLimitsStore creates a store holding initial.
func NewLimitsStore(initial audio.Limits) *LimitsStore {
	s := &LimitsStore{}
	s.Set(initial)
	return s
}

// Limits returns the current limits.
func (s *LimitsStore) Limits() audio.Limits {
	return *s.v.Load()
}

// Set replaces the current limits.
func (s *LimitsStore) Set(l audio.Limits) {
	s.v.Store(&l)
}

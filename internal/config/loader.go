package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/locate918/eventengine/internal/logger"
)

// Loader holds the current configuration and reloads it when the file
// changes. A reload that fails to parse or validate keeps the old config.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked after every successful reload.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Reload re-reads the file and notifies the callbacks.
func (l *Loader) Reload() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*Config), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

// Watch hot-reloads the config on file changes until stop is called. The
// directory is watched so editors that replace the file are noticed.
func (l *Loader) Watch() (stop func(), err error) {
	if l.path == "" {
		return func() {}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		w.Close() // nolint:errcheck
		return nil, fmt.Errorf("config watcher add %s: %w", l.path, err)
	}
	target := filepath.Clean(l.path)

	done := make(chan struct{})
	go func() {
		defer w.Close() // nolint:errcheck
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}
				if _, err := l.Reload(); err != nil {
					logger.Warn("Config reload failed, keeping previous config", logger.Fields{"path": l.path, "error": err.Error()})
					continue
				}
				logger.Info("Config reloaded", logger.Fields{"path": l.path})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error", logger.Fields{"error": err.Error()})
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/fyrsmithlabs/logkit/pkg/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize config watcher")

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes on disk and hands the
// new Config to a callback. A reload that fails validation is logged and
// the previous configuration stays in effect.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *logging.Logger
	onChange func(*Config)
	debounce time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for path. Nothing is watched until Start.
func NewWatcher(path string, logger *logging.Logger, onChange func(*Config)) (*Watcher, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		path:     path,
		watcher:  fw,
		logger:   logger.Child("config"),
		onChange: onChange,
		debounce: defaultDebounce,
		stop:     make(chan struct{}),
	}, nil
}

// Start watches the directory holding the file, so editors that replace
// the file by rename are seen too. Events are processed in a goroutine
// until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Editors emit bursts; reload once they settle.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			trigger = timer.C
		case <-trigger:
			trigger = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(logging.Fields{"error": err.Error()}, "config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadWithFile(w.path)
	if err != nil {
		w.logger.Warn(logging.Fields{"path": w.path, "error": err.Error()}, "config reload failed")
		return
	}
	w.logger.Debug(logging.Fields{"path": w.path}, "config reloaded")
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// ApplyLogLevel returns a callback that moves logger to the reloaded level.
// Other settings need a restart.
func ApplyLogLevel(logger *logging.Logger) func(*Config) {
	return func(cfg *Config) {
		level, err := logging.LevelFromString(cfg.Logging.Level)
		if err != nil {
			return
		}
		prev := logger.Level()
		if prev == level {
			return
		}
		logger.SetLevel(level)
		logger.Info(logging.Fields{"from": logging.LevelString(prev), "to": logging.LevelString(level)}, "log level changed")
	}
}

package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"sentinel-hq/warden/pkg/detection"
)

// Override describes the desired operating state for one detector, as read
// from the mode-overrides file.
type Override struct {
	// Mode is "live", "shadow" or "disabled".
	Mode string `yaml:"mode"`

	// ShadowFor is the shadow window length. Required when Mode is "shadow".
	ShadowFor time.Duration `yaml:"shadow_for"`
}

// overridesFile is the on-disk shape of the mode-overrides file.
type overridesFile struct {
	Detectors map[string]Override `yaml:"detectors"`
}

// LoadOverrides reads a mode-overrides file.
func LoadOverrides(path string) (map[string]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file %q: %w", path, err)
	}

	var file overridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file %q: %w", path, err)
	}

	return file.Detectors, nil
}

// ApplyOverrides applies operating-mode overrides to the registered gates.
// The operation is best-effort: failures are collected per detector and
// joined, and the remaining overrides still apply.
func (r *Registry) ApplyOverrides(overrides map[string]Override) error {
	var errs []error
	for name, override := range overrides {
		mode, err := detection.ParseMode(override.Mode)
		if err != nil {
			errs = append(errs, fmt.Errorf("detector %q: %w", name, err))
			continue
		}

		switch mode {
		case detection.ModeShadow:
			err = r.EnableShadow(name, override.ShadowFor)
		default:
			err = r.SetMode(name, mode)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("detector %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// OverridesWatcher watches the mode-overrides file and hot-applies it to the
// registry when it changes. Changes are debounced to avoid reload storms from
// editors that write in multiple steps.
type OverridesWatcher struct {
	registry *Registry
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewOverridesWatcher creates a watcher for the given overrides file.
func NewOverridesWatcher(registry *Registry, path string, debounce time.Duration) (*OverridesWatcher, error) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &OverridesWatcher{
		registry: registry,
		path:     path,
		debounce: debounce,
		watcher:  watcher,
		logger:   slog.Default().With("component", "gate.overrides", "path", path),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch applies the current file once and then blocks, re-applying it on
// every change until the context is cancelled or Stop is called.
func (w *OverridesWatcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("overrides watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch overrides file: %w", err)
	}

	w.apply()
	w.logger.Info("overrides watcher started", "debounce_ms", w.debounce.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.stopCh:
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			w.scheduleApply()

			// Some editors replace the file; re-add the watch after renames.
			if event.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				if err := w.watcher.Add(w.path); err != nil {
					w.logger.Warn("failed to re-watch overrides file", "error", err)
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("overrides watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and waits for the watch loop to exit.
func (w *OverridesWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	return w.watcher.Close()
}

// scheduleApply debounces file events into a single apply.
func (w *OverridesWatcher) scheduleApply() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.apply)
}

// apply loads and applies the overrides file.
func (w *OverridesWatcher) apply() {
	overrides, err := LoadOverrides(w.path)
	if err != nil {
		w.logger.Error("failed to load overrides", "error", err)
		return
	}

	if err := w.registry.ApplyOverrides(overrides); err != nil {
		w.logger.Warn("some overrides failed to apply", "error", err)
	}

	w.logger.Info("overrides applied", "detectors", len(overrides))
}

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gadenbuie/countdown/internal/countdown"
)

// DefaultDebounce collapses the burst of events editors produce on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads the config file whenever it changes.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Logger   *slog.Logger
	// OnChange receives every successfully loaded config.
	OnChange func(*Config)
}

// Run watches until ctx is cancelled. The parent directory is watched so
// files replaced by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		cfg, err := Load(target)
		if err != nil {
			logger.Warn("config reload failed", slog.String("path", target), slog.Any("error", err))
			return
		}
		logger.Info("config reloaded", slog.String("path", target), slog.Int("timers", len(cfg.Timers)))
		if w.OnChange != nil {
			w.OnChange(cfg)
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, reload)
			mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", slog.Any("error", err))
		}
	}
}

// Apply pushes the timer sections of cfg to the matching engines of r.
// A changed duration restarts a running timer; timers not in r are skipped.
func Apply(r *countdown.Registry, cfg *Config, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	applied := 0
	for _, t := range cfg.Timers {
		e, ok := r.Get(t.ID)
		if !ok {
			logger.Debug("config timer not running", slog.String("timer_id", t.ID))
			continue
		}
		e.SetValues(countdown.PatchFrom(t.Countdown()))
		applied++
	}
	return applied
}

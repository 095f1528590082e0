package compose

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the composer file at path whenever it changes and passes the
// new configuration to apply. Bursts of events within debounce collapse into
// one reload. Invalid documents are logged and skipped. Watch blocks until
// ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, logger *zap.Logger,
	apply func(context.Context, *Config) error,
) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	file := filepath.Clean(path)
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(file)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(file), err)
	}

	logger.Info("Watching composer file", zap.String("path", file))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != file {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			cfg, err := LoadFile(file)
			if err != nil {
				logger.Warn("Ignoring invalid composer file", zap.String("path", file), zap.Error(err))
				continue
			}
			logger.Info("Composer file changed", zap.String("path", file))
			if err := apply(ctx, cfg); err != nil {
				logger.Warn("Failed to apply composer file", zap.String("path", file), zap.Error(err))
			}
		}
	}
}

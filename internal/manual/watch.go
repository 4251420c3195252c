package manual

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"helperbot/internal/domain"
)

// ReloadFunc receives the freshly parsed manual after a change on disk.
type ReloadFunc func(ctx context.Context, docs []domain.Document) error

// Watcher re-reads the manual when one of its files changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	patterns []string
	logger   *zap.Logger
	debounce time.Duration
}

// NewWatcher watches the directories holding patterns. Directories rather
// than files are watched so editors that replace files on save still trigger.
func NewWatcher(patterns []string, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dirs := make(map[string]struct{})
	for _, p := range patterns {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
	}

	return &Watcher{
		watcher:  w,
		patterns: patterns,
		logger:   logger,
		debounce: 200 * time.Millisecond,
	}, nil
}

// Run blocks until ctx is done, calling reload after each burst of changes.
func (w *Watcher) Run(ctx context.Context, reload ReloadFunc) error {
	var (
		timer   *time.Timer
		timeout <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.matches(event.Name) || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timeout = timer.C

		case <-timeout:
			timeout = nil
			docs, err := LoadFiles(ctx, w.patterns)
			if err != nil {
				w.logger.Warn("manual reload failed", zap.Error(err))
				continue
			}
			if err := reload(ctx, docs); err != nil {
				w.logger.Warn("manual reindex failed", zap.Error(err))
				continue
			}
			w.logger.Info("manual reloaded", zap.Int("documents", len(docs)))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("manual watcher error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) matches(name string) bool {
	for _, p := range w.patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
		if filepath.Clean(p) == filepath.Clean(name) {
			return true
		}
	}
	return false
}

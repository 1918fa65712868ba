package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchPattern matches documents written under their default name.
const DefaultWatchPattern = "*_lineage.json"

// Watch reports the target name of every document in the sink directory that
// is created or rewritten and whose name matches pattern (doublestar syntax).
// The directory is watched non-recursively. The returned channel is closed
// when ctx is done or the watcher fails.
func (s *Sink) Watch(ctx context.Context, pattern string) (<-chan string, error) {
	if pattern == "" {
		pattern = DefaultWatchPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Path, err)
	}

	w := &watchWorker{
		sink:    s,
		pattern: pattern,
		watcher: watcher,
		out:     make(chan string, 16),
	}
	s.setWatcherActive(true)

	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		s.config.Logger.Error("lineage watcher stopped", "error", err)
		if s.config.ErrorHandler != nil {
			s.config.ErrorHandler(err)
		}
	}))

	return w.out, nil
}

type watchWorker struct {
	sink    *Sink
	pattern string
	watcher *fsnotify.Watcher
	out     chan string
}

// run is the main event loop of the watcher.
func (w *watchWorker) run(ctx context.Context) (err error) {
	logger := w.sink.config.Logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	defer close(w.out)
	defer w.sink.setWatcherActive(false)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			target, ok := w.match(event)
			if !ok {
				continue
			}
			logger.Debug("lineage document changed", "target", target, "op", event.Op.String())
			select {
			case w.out <- target:
			case <-ctx.Done():
				return nil
			}

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", wErr)
		}
	}
}

// match maps a filesystem event to a target name. Temp files of atomic
// writes are ignored; the rename that completes a write shows up as a Create
// of the target itself.
func (w *watchWorker) match(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, TempFilePrefix) {
		return "", false
	}
	if ok, _ := doublestar.Match(w.pattern, name); !ok {
		return "", false
	}
	return name, true
}

func (s *Sink) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

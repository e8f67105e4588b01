// Package watch re-runs a handler when term files change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-set/v3"
	"go.uber.org/zap"
)

// DefaultDelay groups bursts of writes into one event.
const DefaultDelay = 100 * time.Millisecond

// Handler is called with the path of a changed file.
type Handler func(ctx context.Context, path string)

// Watcher watches files and directories for writes.
type Watcher struct {
	watcher    *fsnotify.Watcher
	logger     *zap.Logger
	handler    Handler
	extensions *set.Set[string]
	delay      time.Duration
	files      *set.Set[string]
	dirs       *set.Set[string]
	handled    map[string]time.Time
}

// New creates a watcher calling handler for files with one of extensions.
func New(logger *zap.Logger, handler Handler, extensions ...string) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		watcher:    fw,
		logger:     logger,
		handler:    handler,
		extensions: set.From(extensions),
		delay:      DefaultDelay,
		files:      set.New[string](8),
		dirs:       set.New[string](8),
		handled:    make(map[string]time.Time),
	}, nil
}

// SetDelay overrides DefaultDelay.
func (w *Watcher) SetDelay(d time.Duration) {
	w.delay = d
}

// Add watches paths. Directories are watched recursively; files are watched
// through their parent directory so that editors replacing them are seen.
func (w *Watcher) Add(paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}
		if !info.IsDir() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			w.files.Insert(abs)
			if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("error adding %s to watcher: %w", path, err)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				abs, err := filepath.Abs(p)
				if err != nil {
					return err
				}
				w.dirs.Insert(abs)
				return w.watcher.Add(p)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	return nil
}

// Run dispatches events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}

func (w *Watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if w.files.Contains(abs) {
		return true
	}
	return w.dirs.Contains(filepath.Dir(abs)) && w.extensions.Contains(filepath.Ext(abs))
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !w.relevant(event.Name) {
		return
	}

	if last, ok := w.handled[event.Name]; ok && time.Since(last) < w.delay {
		return
	}

	// let the writer finish before reading the file
	time.Sleep(w.delay)
	w.logger.Debug("file changed", zap.String("path", event.Name))
	w.handler(ctx, event.Name)
	w.handled[event.Name] = time.Now()
}

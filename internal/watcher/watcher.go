package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWindow is the quiet period before a batch is emitted.
const DefaultWindow = 500 * time.Millisecond

// Handler receives each debounced batch. Errors are logged and watching continues.
type Handler func(ctx context.Context, events []Event) error

// Options configure a Watcher.
type Options struct {
	Window time.Duration
	// Extensions limits file events to these lowercase extensions. Empty accepts all.
	Extensions []string
	// IgnoreDirs are directory names never watched.
	IgnoreDirs []string
	Logger     *zap.Logger
}

// Watcher watches a folder tree with fsnotify.
type Watcher struct {
	opts Options
	log  *zap.Logger
}

// New creates a watcher.
func New(opts Options) *Watcher {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Watcher{opts: opts, log: opts.Logger.Named("watcher")}
}

// Run watches root until ctx is done, calling handle with each batch.
func (w *Watcher) Run(ctx context.Context, root string, handle Handler) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addRecursive(fsw, root); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	deb := NewDebouncer(w.opts.Window)
	defer deb.Stop()

	w.log.Info("Watching folder", zap.String("root", root), zap.Duration("window", w.opts.Window))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, deb, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Watcher error", zap.Error(err))
		case batch, ok := <-deb.Output():
			if !ok {
				return nil
			}
			w.log.Info("Changes detected", zap.Int("paths", len(batch)))
			if err := handle(ctx, batch); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.log.Error("Change handler failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, deb *Debouncer, ev fsnotify.Event) {
	if w.ignoredPath(ev.Name) {
		return
	}

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
		if isDir {
			if err := w.addRecursive(fsw, ev.Name); err != nil {
				w.log.Warn("Failed to watch new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			return
		}
	case ev.Has(fsnotify.Write):
		op = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return
	}

	if isDir || !w.acceptsFile(ev.Name) {
		return
	}
	deb.Add(Event{Path: ev.Name, Operation: op})
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(w.opts.IgnoreDirs, d.Name()) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

// ignoredPath reports whether any directory component of path is ignored.
func (w *Watcher) ignoredPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
		if slices.Contains(w.opts.IgnoreDirs, part) {
			return true
		}
	}
	return false
}

func (w *Watcher) acceptsFile(path string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	return slices.Contains(w.opts.Extensions, strings.ToLower(filepath.Ext(path)))
}

package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Holder publishes the current catalog. Catalogs themselves never change;
// a reload swaps in a freshly built one.
type Holder struct {
	cur atomic.Pointer[Catalog]
}

// NewHolder creates a holder serving c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.cur.Store(c)
	return h
}

// Current returns the catalog in effect, possibly nil.
func (h *Holder) Current() *Catalog {
	return h.cur.Load()
}

// Swap replaces the catalog in effect.
func (h *Holder) Swap(c *Catalog) {
	h.cur.Store(c)
}

// Reload rebuilds the catalog from path and swaps it in.
// On failure the previous catalog stays in effect.
func (h *Holder) Reload(path string, opts ...Option) error {
	c, err := Load(path, opts...)
	if err != nil {
		return err
	}
	h.Swap(c)
	return nil
}

// Watcher reloads a Holder whenever its catalog source changes on disk.
type Watcher struct {
	path    string
	holder  *Holder
	opts    []Option
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching path (a file or a directory tree).
func NewWatcher(path string, holder *Holder, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("stat catalog: %w", err)
	}

	// Editors often replace files by rename, so watch the parent of a file.
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return fw.Add(p)
			}
			return nil
		})
	} else {
		err = fw.Add(filepath.Dir(path))
	}
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch catalog: %w", err)
	}

	return &Watcher{
		path:    path,
		holder:  holder,
		opts:    opts,
		logger:  logger,
		watcher: fw,
	}, nil
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if err := w.holder.Reload(w.path, w.opts...); err != nil {
				w.logger.Warn("catalog reload failed, keeping previous catalog",
					"path", w.path, "event", ev.String(), "error", err)
				continue
			}
			w.logger.Info("catalog reloaded",
				"path", w.path, "entries", w.holder.Current().Len())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

// relevant filters out events for unrelated files and pure chmods.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	info, err := os.Stat(w.path)
	if err == nil && info.IsDir() {
		return true
	}
	return filepath.Clean(ev.Name) == filepath.Clean(w.path)
}

// Package watcher re-runs ingestion when article sources change on disk.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/inkwell-dev/website/pkg/config"
)

// TriggerFunc performs one ingestion run.
type TriggerFunc func(ctx context.Context)

// Watcher debounces filesystem events under the article directory and calls
// the trigger. At most one run is in flight; events arriving during a run
// schedule a single follow-up.
type Watcher struct {
	fsw        *fsnotify.Watcher
	dir        string
	extensions []string
	debounce   time.Duration
	trigger    TriggerFunc
	pending    chan struct{}
	logger     *slog.Logger
}

func New(cfg config.ArticlesConfig, trigger TriggerFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}
	return &Watcher{
		fsw:        fsw,
		dir:        cfg.Dir,
		extensions: exts,
		debounce:   debounce,
		trigger:    trigger,
		pending:    make(chan struct{}, 1),
		logger:     slog.Default().With("component", "article-watcher", "dir", cfg.Dir),
	}, nil
}

// Run watches until ctx is cancelled. It returns an error only when the
// directory cannot be watched at start.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	if err := w.addTree(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching article directory", "debounce", w.debounce)

	go w.runLoop(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("article watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.logger.Debug("source changed", "path", event.Name, "op", event.Op.String())
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)

		case <-timer.C:
			w.request()
		}
	}
}

// relevant filters events down to source file changes. New directories are
// added to the watch set as a side effect, since fsnotify is not recursive.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	ext := filepath.Ext(name)
	for _, want := range w.extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// addTree watches root and every non-hidden directory below it. Non-directory
// roots are ignored.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// request schedules a run. It never blocks: if a run is already queued the
// request folds into it.
func (w *Watcher) request() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

func (w *Watcher) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.pending:
			w.trigger(ctx)
		}
	}
}

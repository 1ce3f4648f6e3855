// Package watcher keeps the index in sync with the filesystem. It watches
// every directory under the configured roots via fsnotify and translates
// events into service calls: creates and writes (re)index the file, removes
// and renames drop it.
//
// Write events are debounced per path. Editors and copies emit bursts of
// writes for a single logical change; only the last event within the
// debounce window triggers a reindex.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mwaghorn2000/oxidex/internal/service"
	"github.com/mwaghorn2000/oxidex/pkg/config"
	apperrors "github.com/mwaghorn2000/oxidex/pkg/errors"
	"github.com/mwaghorn2000/oxidex/pkg/metrics"
)

// Watcher mirrors filesystem changes under the configured roots into the
// index.
type Watcher struct {
	svc        *service.Service
	fsw        *fsnotify.Watcher
	debounce   time.Duration
	skipHidden bool
	metrics    *metrics.Metrics

	mu     sync.Mutex
	timers map[string]*time.Timer

	logger *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

// New creates a Watcher over svc. Call Watch to register roots and Run to
// start processing events.
func New(svc *service.Service, cfg config.WatcherConfig, skipHidden bool, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w := &Watcher{
		svc:        svc,
		fsw:        fsw,
		debounce:   debounce,
		skipHidden: skipHidden,
		timers:     make(map[string]*time.Timer),
		logger:     slog.Default().With("component", "watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch registers root and every directory beneath it.
func (w *Watcher) Watch(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipHidden && hidden(d.Name()) && path != root {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run processes events until ctx is cancelled, then closes the underlying
// watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started", "debounce_ms", w.debounce.Milliseconds())
	defer w.fsw.Close()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	path := event.Name
	if w.skipHidden && hidden(filepath.Base(path)) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		w.observe("create")
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			// New directory: watch it and index anything already inside
			// (a moved-in tree arrives as a single create).
			if err := w.Watch(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			w.indexTree(ctx, path)
			return
		}
		w.schedule(ctx, path)

	case event.Op.Has(fsnotify.Write):
		w.observe("write")
		w.schedule(ctx, path)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.observe("remove")
		w.cancelPending(path)
		if err := w.svc.RemoveByPath(ctx, path); err != nil {
			if !errors.Is(err, apperrors.ErrDocumentNotFound) {
				w.logger.Warn("failed to remove document", "path", path, "error", err)
			}
		}
	}
}

// schedule (re)arms the debounce timer for path. The reindex fires only when
// the path stays quiet for the full debounce window.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.reindex(ctx, path)
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) reindex(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || !info.Mode().IsRegular() {
		return
	}
	if _, err := w.svc.AddDocument(ctx, path); err != nil {
		w.logger.Warn("failed to index file", "path", path, "error", err)
		return
	}
	w.logger.Debug("file indexed", "path", path)
}

func (w *Watcher) indexTree(ctx context.Context, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if w.skipHidden && hidden(d.Name()) {
			return nil
		}
		w.schedule(ctx, path)
		return nil
	})
}

func (w *Watcher) observe(op string) {
	if w.metrics != nil {
		w.metrics.WatcherEventsTotal.WithLabelValues(op).Inc()
	}
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

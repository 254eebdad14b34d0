// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dropwatch uploads files as they appear in a "drop folder".
//
// A file is uploaded once it has stopped changing for the debounce period.
// Files that settle in the same tick are uploaded together as one batch,
// in name order.
package dropwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/ragdesk/internal/logging"
	"github.com/jeranaias/ragdesk/internal/upload"
)

// Uploader is the part of upload.Queue the watcher drives.
type Uploader interface {
	EnqueueAndUpload(ctx context.Context, sources []upload.Source) (upload.BatchResult, error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a file must be quiet before upload (default 500ms).
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.log = logging.OrDiscard(l) }
}

// WithBatchHook is called after every uploaded batch.
func WithBatchHook(fn func(paths []string, res upload.BatchResult)) Option {
	return func(w *Watcher) { w.onBatch = fn }
}

// Watcher is created with New and driven by Run.
type Watcher struct {
	dir      string
	uploader Uploader
	debounce time.Duration
	log      *slog.Logger
	onBatch  func([]string, upload.BatchResult)

	fsw     *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]time.Time // path -> last change
}

// New starts watching dir. Events are buffered until Run is called.
func New(dir string, uploader Uploader, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("drop folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drop folder %s is not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		uploader: uploader,
		debounce: 500 * time.Millisecond,
		log:      logging.Discard(),
		fsw:      fsw,
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched folder.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run processes events until ctx is done. Uploads run on the calling
// goroutine, so batches never overlap.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.log.Warn("drop folder events overflowed; some files may be missed", "dir", w.dir)
				continue
			}
			w.log.Warn("drop folder watch error", "dir", w.dir, "err", err)

		case now := <-ticker.C:
			if paths := w.settled(now); len(paths) > 0 {
				w.uploadBatch(ctx, paths)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if ignored(filepath.Base(event.Name)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err == nil && info.Mode().IsRegular() {
			w.pending[event.Name] = time.Now()
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		delete(w.pending, event.Name)
	}
}

// settled removes and returns paths quiet for at least the debounce period.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, changed := range w.pending {
		if now.Sub(changed) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) uploadBatch(ctx context.Context, paths []string) {
	// Files removed while settling are skipped.
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return
	}

	w.log.Info("uploading dropped files", "dir", w.dir, "count", len(existing))
	res, err := w.uploader.EnqueueAndUpload(ctx, upload.PathSources(existing...))
	if err != nil {
		w.log.Warn("drop folder upload failed", "err", err)
		return
	}
	if failed := res.Failed(); len(failed) > 0 {
		w.log.Warn("some dropped files failed to upload", "files", strings.Join(failed, ", "))
	}
	if w.onBatch != nil {
		w.onBatch(existing, res)
	}
}

// ignored filters editor swap files and partial downloads.
func ignored(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return true
	}
	for _, suffix := range []string{"~", ".tmp", ".swp", ".part", ".crdownload"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

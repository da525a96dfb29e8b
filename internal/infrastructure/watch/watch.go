package watch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/livepen/internal/domain/transfer"
)

// DefaultDebounce coalesces the bursts of events a single save produces
const DefaultDebounce = 100 * time.Millisecond

// Importer receives the contents of the watched file
type Importer interface {
	Import(r io.Reader, filename string) error
}

// Watcher re-imports a local HTML file into a session whenever it changes
type Watcher struct {
	path     string
	target   Importer
	logger   *zap.Logger
	debounce time.Duration
	maxBytes int64

	mu     sync.Mutex
	loaded time.Time // Modification time of the last successful import
}

// New creates a watcher for path. maxBytes bounds the file like an upload.
func New(path string, target Importer, maxBytes int64, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := transfer.Validate(abs, nil); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     abs,
		target:   target,
		logger:   logger.With(zap.String("file", abs)),
		debounce: DefaultDebounce,
		maxBytes: maxBytes,
	}, nil
}

// WithDebounce overrides DefaultDebounce
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Load imports the file once
func (w *Watcher) Load() error {
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("open watched file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat watched file: %w", err)
	}
	data, err := transfer.ReadUpload(f, w.path, w.maxBytes)
	if err != nil {
		return err
	}
	if err := w.target.Import(bytes.NewReader(data), filepath.Base(w.path)); err != nil {
		return err
	}

	w.mu.Lock()
	w.loaded = info.ModTime()
	w.mu.Unlock()
	return nil
}

// stale reports whether the file changed since the last successful Load
func (w *Watcher) stale() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded.IsZero() || !info.ModTime().Equal(w.loaded)
}

// Run reloads the file on every change until ctx is done. It also loads the
// file on start unless an earlier Load already imported its current content.
// The parent directory is watched so editors that save by renaming a
// temporary file are followed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	if w.stale() {
		if err := w.Load(); err != nil {
			return err
		}
	}
	w.logger.Info("watching file")

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			if err := w.Load(); err != nil {
				// Keep watching; the next save may fix it
				w.logger.Warn("reload failed", zap.Error(err))
				continue
			}
			w.logger.Info("file reloaded")
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Package watch extracts the requirements of every PDF that lands in a
// directory and saves them next to the other exports.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/a3tai/pci-dss-extractor/internal/export"
	"github.com/a3tai/pci-dss-extractor/internal/logging"
	"github.com/a3tai/pci-dss-extractor/internal/pdf"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one directory (not recursively) for PDF files
type Watcher struct {
	dir          string
	service      *pdf.Service
	writer       *export.Writer
	format       export.Format
	language     string
	debounce     time.Duration
	syncExisting bool
	onResult     func(*pdf.FileResult)
	logger       *zap.Logger

	mu        sync.Mutex
	timers    map[string]*time.Timer
	processed map[string]fileStamp
	inflight  sync.WaitGroup
	closed    bool
	ready     chan struct{}
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// Option configures a Watcher
type Option func(*Watcher)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logging.OrNop(l) }
}

// WithDebounce sets how long a file must stay quiet before it is processed
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFormat sets the export format
func WithFormat(f export.Format) Option {
	return func(w *Watcher) { w.format = f }
}

// WithLanguage forces the extraction language
func WithLanguage(code string) Option {
	return func(w *Watcher) { w.language = code }
}

// WithSyncExisting also processes the PDFs already present at start
func WithSyncExisting(enabled bool) Option {
	return func(w *Watcher) { w.syncExisting = enabled }
}

// WithResultHook is called after each processed file, successful or not
func WithResultHook(fn func(*pdf.FileResult)) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// New creates a watcher for dir. Results are saved through writer.
func New(dir string, service *pdf.Service, writer *export.Writer, opts ...Option) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory cannot be empty")
	}
	if service == nil || writer == nil {
		return nil, fmt.Errorf("pdf service and writer are required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}

	w := &Watcher{
		dir:       abs,
		service:   service,
		writer:    writer,
		format:    export.FormatJSON,
		debounce:  defaultDebounce,
		logger:    zap.NewNop(),
		timers:    make(map[string]*time.Timer),
		processed: make(map[string]fileStamp),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Ready is closed once the directory is being watched
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the directory until ctx is cancelled. Files still being
// processed when ctx ends are allowed to finish.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory",
		zap.String("dir", w.dir),
		zap.String("output", w.writer.Dir()),
		zap.String("format", string(w.format)))
	close(w.ready)
	defer w.shutdown()

	if w.syncExisting {
		w.syncDirectory(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !pdf.HasPDFExtension(ev.Name) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.schedule(ctx, ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
		w.mu.Lock()
		delete(w.processed, ev.Name)
		w.mu.Unlock()
	}
}

// schedule processes path once it has been quiet for the debounce period
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.inflight.Add(1)
		w.mu.Unlock()
		defer w.inflight.Done()

		if ctx.Err() != nil {
			return
		}
		w.Process(ctx, path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.inflight.Wait()
}

func (w *Watcher) syncDirectory(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to list watch directory", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && pdf.HasPDFExtension(e.Name()) {
			w.schedule(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

// Process extracts one file and saves the result. A file whose size and
// modification time did not change since its last run is skipped and
// nil is returned.
func (w *Watcher) Process(ctx context.Context, path string) *pdf.FileResult {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("cannot stat file", zap.String("path", path), zap.Error(err))
		}
		return nil
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	if prev, ok := w.processed[path]; ok && prev == stamp {
		w.mu.Unlock()
		return nil
	}
	w.processed[path] = stamp
	w.mu.Unlock()

	res, err := w.service.ExtractFile(ctx, path, w.language)
	if err == nil {
		res.OutputPath, err = w.writer.Write(res.Result, w.format)
		if err != nil {
			res.SetError(err)
		}
	}

	if err != nil {
		w.logger.Warn("watched file not extracted", zap.String("path", path), zap.Error(err))
	} else {
		w.logger.Info("watched file extracted",
			zap.String("path", path),
			zap.String("output", res.OutputPath),
			zap.Int("requirements", res.Result.Summary.Total),
			zap.String("language", res.Result.Summary.LanguageDetection.Code))
	}

	if w.onResult != nil {
		w.onResult(res)
	}
	return res
}

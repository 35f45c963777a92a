package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hazyhaar/electoral-roll/pkg/debounce"
)

// Subdirectories of the drop directory that receive processed files.
const (
	ImportedDir = "imported"
	FailedDir   = "failed"
)

// DefaultSettle is how long a dropped file must stay unchanged before it is
// imported. Copies over SMB or scp arrive as many writes.
const DefaultSettle = 2 * time.Second

// Watcher imports spreadsheets dropped into a directory. Each file is
// debounced on its own: a burst of write events yields one import once the
// file has settled. Imported files move to ImportedDir, unreadable ones to
// FailedDir, so nothing is imported twice.
type Watcher struct {
	dir    string
	im     *Importer
	settle time.Duration
	clock  debounce.Clock
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*debounce.Debouncer
	closed  bool
	ctx     context.Context
	wg      sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.settle = d }
}

// WithWatcherClock injects the clock behind the per-file debouncers.
func WithWatcherClock(c debounce.Clock) WatcherOption {
	return func(w *Watcher) { w.clock = c }
}

// NewWatcher returns a Watcher for dir. Call Run to start it.
func NewWatcher(dir string, im *Importer, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		dir:     dir,
		im:      im,
		settle:  DefaultSettle,
		clock:   debounce.RealClock,
		logger:  logger,
		pending: make(map[string]*debounce.Debouncer),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run watches the directory until ctx is cancelled. Files already present
// when Run starts are scheduled like new arrivals. On return no import is
// running and none is scheduled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := ensureDir(w.dir); err != nil {
		return fmt.Errorf("watch dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.ctx = ctx
	w.closed = false
	w.mu.Unlock()
	defer w.shutdown()

	w.logger.Info("watching drop directory", "dir", w.dir, "settle", w.settle)
	w.scan()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Scheduled returns the number of files waiting to settle.
func (w *Watcher) Scheduled() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("scan drop directory", "error", err)
		return
	}
	for _, e := range entries {
		if e.Type().IsRegular() && Supported(e.Name()) {
			w.schedule(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Dir(ev.Name) != filepath.Clean(w.dir) || !Supported(ev.Name) {
		return
	}
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.schedule(ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.forget(ev.Name)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	d, ok := w.pending[path]
	if !ok {
		d = debounce.New(w.settle, func() { w.process(path) }, debounce.WithClock(w.clock))
		w.pending[path] = d
	}
	d.Trigger()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	d, ok := w.pending[path]
	delete(w.pending, path)
	w.mu.Unlock()
	if ok {
		d.Stop()
	}
}

// process runs on the debouncer's timer goroutine.
func (w *Watcher) process(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	ctx := w.ctx
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()

	n, err := w.im.ImportFile(ctx, path)
	if err != nil && ctx.Err() != nil {
		// Interrupted by shutdown; the startup scan retries it.
		w.logger.Info("drop import interrupted, file left in place", "file", path)
		return
	}
	target := ImportedDir
	if err != nil {
		w.logger.Error("drop import failed", "file", path, "error", err)
		target = FailedDir
	}
	dest, mvErr := moveInto(path, filepath.Join(w.dir, target), w.clock.Now())
	if mvErr != nil {
		w.logger.Error("move processed file", "file", path, "error", mvErr)
		return
	}
	if err == nil {
		w.logger.Info("drop import done", "file", path, "rows", n, "moved_to", dest)
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	pending := w.pending
	w.pending = make(map[string]*debounce.Debouncer)
	w.mu.Unlock()

	for _, d := range pending {
		d.Stop()
	}
	w.wg.Wait()
}

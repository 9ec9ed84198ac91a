// Package watcher ingests files dropped into workspace directories, using
// fsnotify with per-file debouncing.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDebounce = 400 * time.Millisecond
	// defaultSyncWorkers bounds how many workspaces sync at once.
	defaultSyncWorkers = 4
)

// Handler is called with the workspace a file belongs to.
type Handler func(ctx context.Context, workspaceID, path string) error

// Watcher watches the workspaces root and every workspace directory directly
// below it. Files are only considered one level deep, so each workspace's
// index directory is never watched.
type Watcher struct {
	root        string
	extensions  []string
	onIndex     Handler
	onRemove    Handler
	debounce    time.Duration
	syncWorkers int
	watcher     *fsnotify.Watcher
	ctx         context.Context
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	workspaces  map[string]bool
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for watcher events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before it is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithSyncWorkers bounds the number of workspaces SyncExisting handles in parallel.
func WithSyncWorkers(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.syncWorkers = n
		}
	}
}

// NewWatcher creates a watcher over root (DATA_DIR/workspaces). extensions
// filter which files are handled (empty = all). onIndex runs for new or
// rewritten files, onRemove for deleted or renamed ones.
func NewWatcher(root string, extensions []string, onIndex, onRemove Handler, opts ...Option) *Watcher {
	w := &Watcher{
		root:        filepath.Clean(root),
		extensions:  extensions,
		onIndex:     onIndex,
		onRemove:    onRemove,
		debounce:    defaultDebounce,
		syncWorkers: defaultSyncWorkers,
		debounceMap: make(map[string]*time.Timer),
		workspaces:  make(map[string]bool),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		w.mu.Unlock()
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := watcher.Add(w.root); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.ctx = ctx
	w.started = true
	entries, err := os.ReadDir(w.root)
	if err != nil {
		w.mu.Unlock()
		w.Stop()
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			w.addWorkspaceLocked(e.Name())
		}
	}
	w.logger.Debug("watcher starting",
		zap.String("root", w.root),
		zap.Strings("extensions", w.extensions),
		zap.Int("workspaces", len(w.workspaces)))
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	parent := filepath.Dir(path)

	// A directory appearing under the root is a new workspace.
	if parent == w.root {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewWorkspace(filepath.Base(path))
			}
		}
		return
	}
	if filepath.Dir(parent) != w.root {
		return
	}
	wsID := filepath.Base(parent)
	if !w.wanted(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			return
		}
		w.debounceIndex(wsID, path)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		w.call(w.onRemove, wsID, path)
	}
}

// handleNewWorkspace watches a newly created workspace directory and ingests
// anything already copied into it.
func (w *Watcher) handleNewWorkspace(id string) {
	w.mu.Lock()
	added := w.addWorkspaceLocked(id)
	w.mu.Unlock()
	if added {
		go w.syncWorkspace(w.context(), id)
	}
}

func (w *Watcher) addWorkspaceLocked(id string) bool {
	if w.watcher == nil || w.workspaces[id] {
		return false
	}
	dir := filepath.Join(w.root, id)
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Debug("watcher failed to add workspace", zap.String("path", dir), zap.Error(err))
		return false
	}
	w.workspaces[id] = true
	w.logger.Debug("watcher added workspace", zap.String("workspace", id))
	return true
}

// wanted filters out hidden files, such as in-flight uploads, and unwatched extensions.
func (w *Watcher) wanted(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	if len(extensions) == 0 {
		return true
	}
	for _, e := range extensions {
		eNorm := strings.TrimPrefix(strings.ToLower(e), ".")
		extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
		if eNorm == extNorm {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceIndex(wsID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.logger.Debug("watcher ingesting file (debounced)", zap.String("path", path))
		w.call(w.onIndex, wsID, path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) call(h Handler, wsID, path string) {
	if h == nil {
		return
	}
	if err := h(w.context(), wsID, path); err != nil {
		w.logger.Warn("watcher handler failed",
			zap.String("workspace", wsID),
			zap.String("path", path),
			zap.Error(err))
	}
}

func (w *Watcher) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

// syncWorkspace runs onIndex for every wanted file in one workspace directory.
// Failures are logged so one bad file does not stop the rest.
func (w *Watcher) syncWorkspace(ctx context.Context, id string) {
	entries, err := os.ReadDir(filepath.Join(w.root, id))
	if err != nil {
		w.logger.Debug("watcher sync failed", zap.String("workspace", id), zap.Error(err))
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(w.root, id, e.Name())
		if !e.Type().IsRegular() || !w.wanted(path) {
			continue
		}
		w.call(w.onIndex, id, path)
	}
}

// Workspaces returns the watched workspace IDs, sorted.
func (w *Watcher) Workspaces() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.workspaces))
	for id := range w.workspaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SyncExisting ingests files already present in every watched workspace.
// Workspaces are synced in parallel; files within one workspace in order.
// Call it after Start.
func (w *Watcher) SyncExisting(ctx context.Context) error {
	ids := w.Workspaces()
	w.logger.Debug("watcher syncing existing files", zap.Strings("workspaces", ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.syncWorkers)
	for _, id := range ids {
		g.Go(func() error {
			w.syncWorkspace(gctx, id)
			return gctx.Err()
		})
	}
	return g.Wait()
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}

// Package workspace owns the on-disk layout of workspaces and serializes
// access to each workspace's vector index.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/pdfchat/internal/models"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/vector"
)

const (
	workspacesDir = "workspaces"
	indexDir      = "index"
	// indexBase is the base path of the index artifacts inside indexDir.
	indexBase = "faiss"
)

// ErrInvalidName is returned for workspace names that are not safe directory names.
var ErrInvalidName = errors.New("invalid workspace name")

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidName reports whether name can be used as a workspace ID.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Manager maps workspace IDs to directories under DATA_DIR/workspaces and
// keeps one loaded *vector.Index per workspace. Index access goes through Do,
// which holds the workspace's lock for the duration of the callback.
type Manager struct {
	root    string
	store   storage.Storage
	vecOpts vector.Options
	logger  *zap.Logger
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	indexes map[string]*vector.Index
	loads   singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets a logger for workspace and index lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager rooted at dataDir. vecOpts configures every index it opens.
func NewManager(dataDir string, store storage.Storage, vecOpts vector.Options, opts ...Option) (*Manager, error) {
	root := filepath.Join(dataDir, workspacesDir)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspaces directory: %w", err)
	}
	m := &Manager{
		root:    root,
		store:   store,
		vecOpts: vecOpts,
		logger:  zap.NewNop(),
		locks:   make(map[string]*sync.Mutex),
		indexes: make(map[string]*vector.Index),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.vecOpts.Logger == nil {
		m.vecOpts.Logger = m.logger
	}
	return m, nil
}

// Create makes the workspace directories and records the workspace. Creating
// an existing workspace returns it unchanged.
func (m *Manager) Create(ctx context.Context, name string) (*models.Workspace, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(filepath.Join(m.Dir(name), indexDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}
	ws, err := m.store.GetWorkspace(ctx, name)
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	ws = &models.Workspace{ID: name, Name: name}
	if err := m.store.CreateWorkspace(ctx, ws); err != nil {
		// Lost a race with a concurrent Create.
		if existing, getErr := m.store.GetWorkspace(ctx, name); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to record workspace: %w", err)
	}
	m.logger.Info("workspace created", zap.String("workspace", name))
	return ws, nil
}

// Get returns a recorded workspace, or an error wrapping storage.ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*models.Workspace, error) {
	if !ValidName(id) {
		return nil, fmt.Errorf("workspace %q: %w", id, storage.ErrNotFound)
	}
	return m.store.GetWorkspace(ctx, id)
}

// List returns all recorded workspaces.
func (m *Manager) List(ctx context.Context) ([]*models.Workspace, error) {
	return m.store.ListWorkspaces(ctx)
}

// Root returns DATA_DIR/workspaces.
func (m *Manager) Root() string {
	return m.root
}

// Dir returns the directory holding a workspace's uploaded files.
func (m *Manager) Dir(id string) string {
	return filepath.Join(m.root, id)
}

// IndexPath returns the base path of a workspace's index artifacts.
func (m *Manager) IndexPath(id string) string {
	return filepath.Join(m.root, id, indexDir, indexBase)
}

// HasIndex reports whether the workspace has a saved index.
func (m *Manager) HasIndex(id string) bool {
	return ValidName(id) && vector.Exists(m.IndexPath(id))
}

// Files returns the regular files directly inside the workspace directory, sorted by name.
func (m *Manager) Files(id string) ([]string, error) {
	entries, err := os.ReadDir(m.Dir(id))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(m.Dir(id), e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (m *Manager) lock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// index returns the cached index for id, loading it from disk at most once
// however many callers ask concurrently.
func (m *Manager) index(id string) (*vector.Index, error) {
	m.mu.Lock()
	idx, ok := m.indexes[id]
	m.mu.Unlock()
	if ok {
		return idx, nil
	}
	v, err, _ := m.loads.Do(id, func() (interface{}, error) {
		m.mu.Lock()
		if idx, ok := m.indexes[id]; ok {
			m.mu.Unlock()
			return idx, nil
		}
		m.mu.Unlock()

		idx, err := vector.New(m.vecOpts)
		if err != nil {
			return nil, err
		}
		if err := idx.Load(m.IndexPath(id)); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("workspace %s: %w", id, err)
		}
		m.logger.Debug("workspace index loaded",
			zap.String("workspace", id),
			zap.String("type", idx.Type()),
			zap.Int("size", idx.Len()))

		m.mu.Lock()
		m.indexes[id] = idx
		m.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vector.Index), nil
}

// Do runs fn with the workspace's index while holding the workspace lock.
// Changes fn makes are not persisted unless fn saves them (see IndexPath).
func (m *Manager) Do(ctx context.Context, id string, fn func(idx *vector.Index) error) error {
	// Load outside the lock so concurrent first callers share one load.
	if _, err := m.index(id); err != nil {
		return err
	}
	l := m.lock(id)
	l.Lock()
	defer l.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	// Re-resolve under the lock: Rebuild may have swapped the index meanwhile.
	idx, err := m.index(id)
	if err != nil {
		return err
	}
	return fn(idx)
}

// Rebuild builds a fresh index with fill, saves it over the workspace's
// artifacts and swaps it in. The previous index stays active if fill or the
// save fails.
func (m *Manager) Rebuild(ctx context.Context, id string, fill func(idx *vector.Index) error) error {
	return m.replace(ctx, id, fill, true)
}

// Restore builds a fresh index with fill and swaps it in without saving. It
// drops in-memory changes whose save failed; the artifacts on disk are
// rewritten by the next successful Save or Rebuild.
func (m *Manager) Restore(ctx context.Context, id string, fill func(idx *vector.Index) error) error {
	return m.replace(ctx, id, fill, false)
}

func (m *Manager) replace(ctx context.Context, id string, fill func(idx *vector.Index) error, save bool) error {
	l := m.lock(id)
	l.Lock()
	defer l.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	fresh, err := vector.New(m.vecOpts)
	if err != nil {
		return err
	}
	if err := fill(fresh); err != nil {
		_ = fresh.Close()
		return err
	}
	if save {
		if err := fresh.Save(m.IndexPath(id)); err != nil {
			_ = fresh.Close()
			return err
		}
	}
	m.mu.Lock()
	old := m.indexes[id]
	m.indexes[id] = fresh
	m.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	m.logger.Info("workspace index rebuilt",
		zap.String("workspace", id),
		zap.Int("size", fresh.Len()),
		zap.Bool("saved", save))
	return nil
}

// Stats returns the vector count of each loaded index.
func (m *Manager) Stats() map[string]int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.indexes))
	for id := range m.indexes {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	out := make(map[string]int, len(ids))
	for _, id := range ids {
		l := m.lock(id)
		l.Lock()
		m.mu.Lock()
		if idx, ok := m.indexes[id]; ok {
			out[id] = idx.Len()
		}
		m.mu.Unlock()
		l.Unlock()
	}
	return out
}

// Close releases every loaded index.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for id, idx := range m.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("workspace %s: %w", id, err))
		}
		delete(m.indexes, id)
	}
	return errors.Join(errs...)
}

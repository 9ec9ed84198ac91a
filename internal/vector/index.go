package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Options configures an Index.
type Options struct {
	// IndexType is "auto" (default), "memory" or "faiss".
	IndexType string
	// Dimension fixes D up front; 0 lets the first Add decide.
	Dimension int
	// Compress zstd-compresses the brute-force vector artifact.
	Compress bool
	Logger   *zap.Logger
}

// Index is one workspace's embedding index: a similarity backend plus the
// metadata ledger aligned with it. It has no internal locking; callers must
// serialize Add, Search, Save and Load on the same instance.
type Index struct {
	kind     IndexType
	dim      int
	compress bool
	backend  Backend
	ledger   *Ledger
	logger   *zap.Logger
}

// Hit is a search result: the stored record joined with its similarity score.
type Hit struct {
	Record
	Score float64
}

// MarshalJSON flattens the record so extra metadata keys sit beside source, page, text and score.
func (h Hit) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(h.Extra)+4)
	for k, v := range h.Extra {
		out[k] = v
	}
	out["source"] = h.Source
	out["page"] = h.Page
	out["text"] = h.Text
	out["score"] = h.Score
	return json.Marshal(out)
}

// New creates an empty index. The backend is chosen once here: with IndexType
// "auto" FAISS is used when compiled in, brute force otherwise.
func New(opts Options) (*Index, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	kind, err := ResolveIndexType(opts.IndexType)
	if err != nil {
		return nil, err
	}
	if (opts.IndexType == "" || IndexType(opts.IndexType) == IndexTypeAuto) && kind == IndexTypeMemory {
		logger.Debug("FAISS not compiled in, using brute-force vector index")
	}
	backend, err := NewBackend(kind, opts.Dimension, opts.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	return &Index{
		kind:     kind,
		dim:      opts.Dimension,
		compress: opts.Compress,
		backend:  backend,
		ledger:   NewLedger(),
		logger:   logger,
	}, nil
}

// Add appends vectors and their records as one unit. The whole batch is
// validated first; on error neither the vectors nor the ledger change.
func (x *Index) Add(ctx context.Context, vectors [][]float32, records []Record) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: %d vectors, %d records", ErrLengthMismatch, len(vectors), len(records))
	}
	if len(vectors) == 0 {
		return nil
	}
	if _, err := checkRows(x.Dimension(), vectors); err != nil {
		return err
	}
	if err := x.backend.Add(vectors); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	x.ledger.Extend(records)
	return nil
}

// AddOne appends a single embedding and its record.
func (x *Index) AddOne(ctx context.Context, vector []float32, record Record) error {
	return x.Add(ctx, [][]float32{vector}, []Record{record})
}

// Search returns up to k hits by descending cosine similarity (inner product of
// unit vectors). k <= 0 and an empty index both yield an empty result.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	matches, err := x.backend.Search(query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		if m.Row < 0 || m.Row >= x.ledger.Len() {
			return nil, corruptf("search returned row %d, ledger has %d records", m.Row, x.ledger.Len())
		}
		hits = append(hits, Hit{Record: x.ledger.At(m.Row), Score: m.Score})
	}
	return hits, nil
}

// Save writes the full current state under base path, replacing any previous save.
// The vector artifact is written before the metadata artifact.
func (x *Index) Save(path string) error {
	if err := x.backend.Save(path); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeMetaFile(metaPath(path), x.Dimension(), x.backend.Type(), x.ledger.snapshot()); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	x.logger.Debug("vector index saved",
		zap.String("path", path),
		zap.String("type", x.backend.Type()),
		zap.Int("size", x.Len()))
	return nil
}

// Load replaces the in-memory state with the save at path. A path with no save
// yields an empty index. Unreadable or inconsistent state is an error and leaves
// the current contents untouched.
func (x *Index) Load(path string) error {
	env, metaOK, err := readMetaFile(metaPath(path))
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	dim := x.dim
	if metaOK && env.Dim != 0 {
		if dim != 0 && env.Dim != dim {
			return fmt.Errorf("load metadata: %w", dimensionError(env.Dim, dim))
		}
		dim = env.Dim
	}
	backend, err := NewBackend(x.kind, dim, x.compress)
	if err != nil {
		return err
	}
	vecOK, err := backend.Load(path)
	if err != nil {
		_ = backend.Close()
		return fmt.Errorf("load vectors: %w", err)
	}
	ledger := NewLedger()
	switch {
	case !metaOK && !vecOK:
		// Nothing saved yet.
	case !metaOK:
		_ = backend.Close()
		return corruptf("%s: vector artifact without metadata", path)
	case !vecOK && env.Count > 0:
		_ = backend.Close()
		return corruptf("%s: %d records but no %s vector artifact (saved by %q backend)", path, env.Count, x.kind, env.Backend)
	default:
		if backend.Len() != env.Count {
			_ = backend.Close()
			return corruptf("%s: %d vectors but %d records", path, backend.Len(), env.Count)
		}
		ledger.records = env.Records
	}
	_ = x.backend.Close()
	x.backend = backend
	x.ledger = ledger
	x.logger.Debug("vector index loaded",
		zap.String("path", path),
		zap.Bool("existed", metaOK || vecOK),
		zap.Int("size", ledger.Len()))
	return nil
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	return x.backend.Len()
}

// Dimension returns D, or 0 while unset.
func (x *Index) Dimension() int {
	if d := x.backend.Dimension(); d != 0 {
		return d
	}
	return x.dim
}

// Type returns the active backend type ("memory" or "faiss").
func (x *Index) Type() string {
	return x.backend.Type()
}

// Close releases backend resources.
func (x *Index) Close() error {
	return x.backend.Close()
}

// Exists reports whether a save is present at base path.
func Exists(path string) bool {
	_, err := os.Stat(metaPath(path))
	return err == nil
}

// Package ingest turns workspace files into indexed passages: extract pages,
// chunk, embed, append to the workspace index and record in SQLite.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/pdfchat/internal/chunk"
	"github.com/hyperjump/pdfchat/internal/embedding"
	"github.com/hyperjump/pdfchat/internal/extract"
	"github.com/hyperjump/pdfchat/internal/fileid"
	"github.com/hyperjump/pdfchat/internal/models"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/vector"
	"github.com/hyperjump/pdfchat/internal/workspace"
)

// metaDocumentID is the extra record key linking a passage back to its document row.
const metaDocumentID = "document_id"

// Ingester indexes files into workspaces.
type Ingester struct {
	store      storage.Storage
	workspaces *workspace.Manager
	embedder   embedding.Embedder
	extractor  *extract.Extractor
	chunker    *chunk.Chunker
	logger     *zap.Logger
	// Serializes whole ingest operations per workspace, so a rebuild never
	// reads SQLite between another ingest's index save and its row writes.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithLogger sets a logger for ingest events.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// NewIngester creates an ingester with the given dependencies.
func NewIngester(
	store storage.Storage,
	workspaces *workspace.Manager,
	embedder embedding.Embedder,
	extractor *extract.Extractor,
	chunker *chunk.Chunker,
	opts ...Option,
) *Ingester {
	in := &Ingester{
		store:      store,
		workspaces: workspaces,
		embedder:   embedder,
		extractor:  extractor,
		chunker:    chunker,
		logger:     zap.NewNop(),
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Ingester) lock(workspaceID string) func() {
	in.mu.Lock()
	l, ok := in.locks[workspaceID]
	if !ok {
		l = &sync.Mutex{}
		in.locks[workspaceID] = l
	}
	in.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// passage is one chunk ready to embed.
type passage struct {
	page  int
	text  string
	table string
}

// IngestFile indexes the file at path into the workspace and returns the
// number of passages added. A file already ingested with the same size and
// modification time is skipped (0, nil). A changed file replaces its previous
// passages by rebuilding the workspace index from stored vectors.
func (in *Ingester) IngestFile(ctx context.Context, workspaceID, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	if !extract.Supported(absPath) {
		return 0, fmt.Errorf("%w: %s", extract.ErrUnsupportedFormat, filepath.Base(absPath))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", absPath)
	}

	defer in.lock(workspaceID)()

	docID := fileid.DocID(workspaceID, absPath)
	existing, err := in.store.GetDocument(ctx, docID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}
	if existing != nil && existing.Size == info.Size() && existing.ModTime.Equal(info.ModTime()) {
		in.logger.Debug("ingest skipping unchanged file", zap.String("path", absPath))
		return 0, nil
	}

	pages, err := in.extractor.ExtractPages(absPath)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", filepath.Base(absPath), err)
	}
	passages := in.split(pages)

	source := filepath.Base(absPath)
	texts := make([]string, len(passages))
	records := make([]vector.Record, len(passages))
	for i, p := range passages {
		texts[i] = embedding.Passage(p.text)
		records[i] = vector.Record{
			Source: source,
			Page:   p.page,
			Text:   p.text,
			Extra:  map[string]interface{}{metaDocumentID: docID},
		}
	}
	var vectors [][]float32
	if len(texts) > 0 {
		vectors, err = in.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to generate embeddings: %w", err)
		}
	}

	if existing != nil {
		err = in.workspaces.Rebuild(ctx, workspaceID, func(idx *vector.Index) error {
			if err := in.fillFromStore(ctx, idx, workspaceID, docID); err != nil {
				return err
			}
			return idx.Add(ctx, vectors, records)
		})
	} else if len(vectors) > 0 {
		saved := true
		err = in.workspaces.Do(ctx, workspaceID, func(idx *vector.Index) error {
			if err := idx.Add(ctx, vectors, records); err != nil {
				return err
			}
			if err := idx.Save(in.workspaces.IndexPath(workspaceID)); err != nil {
				saved = false
				return err
			}
			return nil
		})
		if !saved {
			in.rollback(ctx, workspaceID, docID)
		}
	}
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", source, err)
	}

	doc := &models.Document{
		ID:          docID,
		WorkspaceID: workspaceID,
		Filename:    source,
		Path:        absPath,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Pages:       len(pages),
		Chunks:      len(passages),
	}
	if err := in.record(ctx, doc, passages, vectors); err != nil {
		in.rollback(ctx, workspaceID, docID)
		return 0, err
	}
	in.logger.Info("file ingested",
		zap.String("workspace", workspaceID),
		zap.String("file", source),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(passages)))
	return len(passages), nil
}

func (in *Ingester) split(pages []extract.Page) []passage {
	var out []passage
	for _, pg := range pages {
		var table string
		if len(pg.Table) > 0 {
			if b, err := json.Marshal(pg.Table); err == nil {
				table = string(b)
			}
		}
		for _, text := range in.chunker.Split(pg.Text) {
			out = append(out, passage{page: pg.Number, text: text, table: table})
		}
	}
	return out
}

// record replaces the document row and its chunks.
func (in *Ingester) record(ctx context.Context, doc *models.Document, passages []passage, vectors [][]float32) error {
	if err := in.store.DeleteChunksByDocumentID(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	if err := in.store.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	if len(passages) == 0 {
		return nil
	}
	chunks := make([]*models.Chunk, len(passages))
	for i, p := range passages {
		chunks[i] = &models.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Page:       p.page,
			Text:       p.text,
			Vector:     vectors[i],
			TableJSON:  p.table,
		}
	}
	if err := in.store.BatchCreateChunks(ctx, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// rollback forgets docID and brings the workspace index back in line with
// SQLite after a failed save or record, so a retry ingests the file afresh.
// When the rebuilt index cannot be saved it still replaces the cached one.
func (in *Ingester) rollback(ctx context.Context, workspaceID, docID string) {
	ctx = context.WithoutCancel(ctx)
	if err := in.store.DeleteDocument(ctx, docID); err != nil {
		in.logger.Warn("rollback: failed to delete document", zap.String("document", docID), zap.Error(err))
		return
	}
	fill := func(idx *vector.Index) error {
		return in.fillFromStore(ctx, idx, workspaceID, docID)
	}
	err := in.workspaces.Rebuild(ctx, workspaceID, fill)
	if err == nil {
		return
	}
	in.logger.Warn("rollback: failed to save rebuilt index", zap.String("workspace", workspaceID), zap.Error(err))
	if err := in.workspaces.Restore(ctx, workspaceID, fill); err != nil {
		in.logger.Error("rollback: failed to restore index", zap.String("workspace", workspaceID), zap.Error(err))
	}
}

// fillFromStore appends the stored passages of every workspace document except skipDocID.
func (in *Ingester) fillFromStore(ctx context.Context, idx *vector.Index, workspaceID, skipDocID string) error {
	docs, err := in.store.ListDocuments(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	for _, doc := range docs {
		if doc.ID == skipDocID {
			continue
		}
		chunks, err := in.store.GetChunksByDocumentID(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to get chunks: %w", err)
		}
		vectors := make([][]float32, 0, len(chunks))
		records := make([]vector.Record, 0, len(chunks))
		for _, c := range chunks {
			if len(c.Vector) == 0 {
				in.logger.Warn("stored chunk has no vector, skipping",
					zap.String("document", doc.Filename), zap.String("chunk", c.ID))
				continue
			}
			vectors = append(vectors, c.Vector)
			records = append(records, vector.Record{
				Source: doc.Filename,
				Page:   c.Page,
				Text:   c.Text,
				Extra:  map[string]interface{}{metaDocumentID: doc.ID},
			})
		}
		if err := idx.Add(ctx, vectors, records); err != nil {
			return fmt.Errorf("re-add %s: %w", doc.Filename, err)
		}
	}
	return nil
}

// RemoveFile drops a file's passages from the workspace. Unknown files are ignored.
func (in *Ingester) RemoveFile(ctx context.Context, workspaceID, path string) error {
	defer in.lock(workspaceID)()

	docID := fileid.DocID(workspaceID, path)
	if _, err := in.store.GetDocument(ctx, docID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	err := in.workspaces.Rebuild(ctx, workspaceID, func(idx *vector.Index) error {
		return in.fillFromStore(ctx, idx, workspaceID, docID)
	})
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	if err := in.store.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	in.logger.Info("file removed", zap.String("workspace", workspaceID), zap.String("file", filepath.Base(path)))
	return nil
}

// Reindex rebuilds the workspace index from the passages stored in SQLite.
func (in *Ingester) Reindex(ctx context.Context, workspaceID string) error {
	defer in.lock(workspaceID)()
	return in.workspaces.Rebuild(ctx, workspaceID, func(idx *vector.Index) error {
		return in.fillFromStore(ctx, idx, workspaceID, "")
	})
}

// SyncWorkspace ingests every supported file in the workspace directory and
// returns the number of passages added. It stops at the first error.
func (in *Ingester) SyncWorkspace(ctx context.Context, workspaceID string) (int, error) {
	files, err := in.workspaces.Files(workspaceID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range files {
		if !extract.Supported(f) || strings.HasPrefix(filepath.Base(f), ".") {
			continue
		}
		n, err := in.IngestFile(ctx, workspaceID, f)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

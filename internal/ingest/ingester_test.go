package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/pdfchat/internal/chunk"
	"github.com/hyperjump/pdfchat/internal/embedding"
	"github.com/hyperjump/pdfchat/internal/extract"
	"github.com/hyperjump/pdfchat/internal/fileid"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/vector"
	"github.com/hyperjump/pdfchat/internal/workspace"
)

type fixture struct {
	ingester   *Ingester
	store      *storage.SQLiteStorage
	workspaces *workspace.Manager
	embedder   embedding.Embedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "studio.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ws, err := workspace.NewManager(filepath.Join(dir, "data"), store, vector.Options{IndexType: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	if _, err := ws.Create(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewMockEmbedder(64)
	in := NewIngester(store, ws, emb, extract.NewExtractor(), chunk.NewChunker(60))
	return &fixture{ingester: in, store: store, workspaces: ws, embedder: emb}
}

func (f *fixture) write(t *testing.T, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(f.workspaces.Dir("alpha"), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	return path
}

func (f *fixture) indexLen(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.workspaces.Do(context.Background(), "alpha", func(idx *vector.Index) error {
		n = idx.Len()
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return n
}

func (f *fixture) search(t *testing.T, q string) []vector.Hit {
	t.Helper()
	ctx := context.Background()
	qv, err := f.embedder.Embed(ctx, embedding.Query(q))
	if err != nil {
		t.Fatal(err)
	}
	var hits []vector.Hit
	if err := f.workspaces.Do(ctx, "alpha", func(idx *vector.Index) error {
		hits, err = idx.Search(ctx, qv, 3)
		return err
	}); err != nil {
		t.Fatal(err)
	}
	return hits
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const policy = "Refunds are issued within five business days. Shipping is free for orders over fifty dollars.\n\nSupport is available on weekdays."

func TestIngestFile_indexesAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.write(t, "policy.txt", policy, t0)

	n, err := f.ingester.IngestFile(ctx, "alpha", path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("chunks = %d, want 3", n)
	}
	if !f.workspaces.HasIndex("alpha") {
		t.Error("index should be saved")
	}
	if got := f.indexLen(t); got != 3 {
		t.Errorf("index Len = %d, want 3", got)
	}

	docID := fileid.DocID("alpha", path)
	doc, err := f.store.GetDocument(ctx, docID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Filename != "policy.txt" || doc.Chunks != 3 || doc.Pages != 1 {
		t.Errorf("unexpected document: %+v", doc)
	}
	chunks, _ := f.store.GetChunksByDocumentID(ctx, docID)
	if len(chunks) != 3 || len(chunks[0].Vector) != 64 {
		t.Errorf("unexpected chunks: %d", len(chunks))
	}

	hits := f.search(t, "refunds issued business days")
	if len(hits) == 0 || hits[0].Source != "policy.txt" || hits[0].Page != 1 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Text != "Refunds are issued within five business days." {
		t.Errorf("top hit = %q", hits[0].Text)
	}
	if hits[0].Extra[metaDocumentID] != docID {
		t.Errorf("hit document_id = %v", hits[0].Extra[metaDocumentID])
	}
}

func TestIngestFile_skipsUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.write(t, "policy.txt", policy, t0)
	if _, err := f.ingester.IngestFile(ctx, "alpha", path); err != nil {
		t.Fatal(err)
	}
	n, err := f.ingester.IngestFile(ctx, "alpha", path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("unchanged file added %d chunks", n)
	}
	if got := f.indexLen(t); got != 3 {
		t.Errorf("index Len = %d, want 3", got)
	}
}

func TestIngestFile_changedFileReplacesPassages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := f.write(t, "other.txt", "Warehouses are located in Osaka.", t0)
	path := f.write(t, "policy.txt", policy, t0)
	for _, p := range []string{other, path} {
		if _, err := f.ingester.IngestFile(ctx, "alpha", p); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.indexLen(t); got != 4 {
		t.Fatalf("index Len = %d, want 4", got)
	}

	f.write(t, "policy.txt", "Refunds now take ten days.", t0.Add(time.Hour))
	n, err := f.ingester.IngestFile(ctx, "alpha", path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("chunks = %d, want 1", n)
	}
	if got := f.indexLen(t); got != 2 {
		t.Errorf("index Len after update = %d, want 2", got)
	}
	for _, h := range f.search(t, "refunds days") {
		if h.Text == "Refunds are issued within five business days." {
			t.Error("stale passage still indexed")
		}
	}
	chunks, _ := f.store.GetChunksByDocumentID(ctx, fileid.DocID("alpha", path))
	if len(chunks) != 1 {
		t.Errorf("stored chunks = %d, want 1", len(chunks))
	}
}

func TestRemoveFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.write(t, "keep.txt", "Warehouses are located in Osaka.", t0)
	drop := f.write(t, "drop.txt", policy, t0)
	for _, p := range []string{keep, drop} {
		if _, err := f.ingester.IngestFile(ctx, "alpha", p); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.ingester.RemoveFile(ctx, "alpha", drop); err != nil {
		t.Fatal(err)
	}
	if got := f.indexLen(t); got != 1 {
		t.Errorf("index Len = %d, want 1", got)
	}
	if _, err := f.store.GetDocument(ctx, fileid.DocID("alpha", drop)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("document should be deleted, got %v", err)
	}
	if err := f.ingester.RemoveFile(ctx, "alpha", "never-seen.pdf"); err != nil {
		t.Errorf("removing unknown file: %v", err)
	}
}

func TestReindexAndSyncWorkspace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.write(t, "a.txt", policy, t0)
	f.write(t, "b.md", "Warehouses are located in Osaka.", t0)
	f.write(t, "ignored.bin", "binary", t0)

	n, err := f.ingester.SyncWorkspace(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("SyncWorkspace added %d chunks, want 4", n)
	}
	if n, _ := f.ingester.SyncWorkspace(ctx, "alpha"); n != 0 {
		t.Errorf("second sync added %d chunks", n)
	}

	if err := os.Remove(f.workspaces.IndexPath("alpha") + ".meta"); err != nil {
		t.Fatal(err)
	}
	if err := f.ingester.Reindex(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if !f.workspaces.HasIndex("alpha") {
		t.Error("reindex should save the index")
	}
	if got := f.indexLen(t); got != 4 {
		t.Errorf("index Len after reindex = %d, want 4", got)
	}
}

func TestIngestFile_errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bin := f.write(t, "tool.exe", "MZ", t0)
	if _, err := f.ingester.IngestFile(ctx, "alpha", bin); !errors.Is(err, extract.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := f.ingester.IngestFile(ctx, "alpha", filepath.Join(f.workspaces.Dir("alpha"), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
	dir := filepath.Join(f.workspaces.Dir("alpha"), "folder.txt")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ingester.IngestFile(ctx, "alpha", dir); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIngestFile_emptyDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.write(t, "blank.txt", "   \n\n  ", t0)
	n, err := f.ingester.IngestFile(ctx, "alpha", path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("chunks = %d, want 0", n)
	}
	if f.workspaces.HasIndex("alpha") {
		t.Error("empty document should not create an index")
	}
	doc, err := f.store.GetDocument(ctx, fileid.DocID("alpha", path))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Chunks != 0 {
		t.Errorf("doc chunks = %d", doc.Chunks)
	}
}

func TestIngestFile_failedSaveRetriesCleanly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := f.write(t, "a.txt", "Alpha beta gamma. Delta epsilon zeta.", t0)

	// A directory where the metadata artifact goes makes the final rename fail.
	blocker := f.workspaces.IndexPath("alpha") + ".meta"
	if err := os.MkdirAll(filepath.Join(blocker, "keep"), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ingester.IngestFile(ctx, "alpha", path); err == nil {
		t.Fatal("expected save error")
	}
	if got := f.indexLen(t); got != 0 {
		t.Errorf("index Len after failed save = %d, want 0", got)
	}
	if _, err := f.store.GetDocument(ctx, fileid.DocID("alpha", path)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("document should not be recorded, got %v", err)
	}

	if err := os.RemoveAll(blocker); err != nil {
		t.Fatal(err)
	}
	n, err := f.ingester.IngestFile(ctx, "alpha", path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("chunks = %d, want 1", n)
	}
	if got := f.indexLen(t); got != 1 {
		t.Errorf("index Len after retry = %d, want 1", got)
	}
	hits := f.search(t, "alpha beta gamma")
	if len(hits) != 1 {
		t.Fatalf("hits = %+v, want one", hits)
	}

	reloaded, err := vector.New(vector.Options{IndexType: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	defer reloaded.Close()
	if err := reloaded.Load(f.workspaces.IndexPath("alpha")); err != nil {
		t.Fatal(err)
	}
	if reloaded.Len() != 1 {
		t.Errorf("saved index Len = %d, want 1", reloaded.Len())
	}
}

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/pdfchat/internal/chunk"
	"github.com/hyperjump/pdfchat/internal/embedding"
	"github.com/hyperjump/pdfchat/internal/extract"
	"github.com/hyperjump/pdfchat/internal/ingest"
	"github.com/hyperjump/pdfchat/internal/models"
	"github.com/hyperjump/pdfchat/internal/storage"
	"github.com/hyperjump/pdfchat/internal/vector"
	"github.com/hyperjump/pdfchat/internal/workspace"
)

type fixture struct {
	engine     *Engine
	ingester   *ingest.Ingester
	store      *storage.SQLiteStorage
	workspaces *workspace.Manager
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
	emb := embedding.NewMockEmbedder(256)
	return &fixture{
		engine:     NewEngine(store, ws, emb),
		ingester:   ingest.NewIngester(store, ws, emb, extract.NewExtractor(), chunk.NewChunker(20)),
		store:      store,
		workspaces: ws,
	}
}

func (f *fixture) ingest(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(f.workspaces.Dir("alpha"), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ingester.IngestFile(context.Background(), "alpha", path); err != nil {
		t.Fatal(err)
	}
}

func TestChat_NoIndex(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"alpha", "missing"} {
		resp, err := f.engine.Chat(context.Background(), id, "anything?")
		if err != nil {
			t.Fatal(err)
		}
		if resp.Answer != NoIndex {
			t.Errorf("%s: answer = %q", id, resp.Answer)
		}
		if resp.Citations == nil || len(resp.Citations) != 0 {
			t.Errorf("%s: citations = %#v, want empty slice", id, resp.Citations)
		}
	}
}

func TestChat_AnswersWithCitations(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "pets.txt", "Cats sleep most of the day.\n\nDogs bark at the mail carrier.\n\nFish swim in circles.")

	resp, err := f.engine.Chat(context.Background(), "alpha", "why do dogs bark")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Citations) == 0 || len(resp.Citations) > 3 {
		t.Fatalf("citations = %d", len(resp.Citations))
	}
	if !strings.Contains(resp.Citations[0].Text, "Dogs bark") {
		t.Errorf("top citation = %q", resp.Citations[0].Text)
	}
	if !strings.HasPrefix(resp.Answer, resp.Citations[0].Text+"\n(pets.txt:1)") {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.MessageID == "" {
		t.Fatal("assistant message not recorded")
	}

	history, err := f.engine.History(context.Background(), "alpha", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d messages, want 2", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "why do dogs bark" {
		t.Errorf("first message = %+v", history[0])
	}
	if history[1].Role != models.RoleAssistant || history[1].ID != resp.MessageID {
		t.Errorf("second message = %+v", history[1])
	}
	if !strings.Contains(history[1].AnswerJSON, `"source":"pets.txt"`) {
		t.Errorf("answer json = %s", history[1].AnswerJSON)
	}
}

func TestChat_CitationLimit(t *testing.T) {
	f := newFixture(t)
	f.engine = NewEngine(f.store, f.workspaces, embedding.NewMockEmbedder(256), WithTopK(2), WithCitations(1))
	f.ingest(t, "a.txt", "Red apples.\n\nGreen apples.\n\nYellow apples.")

	resp, err := f.engine.Chat(context.Background(), "alpha", "apples")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Citations) != 1 {
		t.Errorf("citations = %d, want 1", len(resp.Citations))
	}
}

func TestFeedback(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "a.txt", "The launch window opens in May.")
	resp, err := f.engine.Chat(context.Background(), "alpha", "when is the launch")
	if err != nil {
		t.Fatal(err)
	}

	fb, err := f.engine.Feedback(context.Background(), resp.MessageID, &models.FeedbackRequest{Label: " UP ", Notes: "helpful"})
	if err != nil {
		t.Fatal(err)
	}
	if fb.Label != models.FeedbackUp || fb.MessageID != resp.MessageID {
		t.Errorf("feedback = %+v", fb)
	}

	if _, err := f.engine.Feedback(context.Background(), resp.MessageID, &models.FeedbackRequest{Label: "meh"}); err == nil {
		t.Error("expected validation error")
	}
	_, err = f.engine.Feedback(context.Background(), "nope", &models.FeedbackRequest{Label: "down"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

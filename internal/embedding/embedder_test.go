package embedding

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/pdfchat/internal/vector"
)

func TestMockEmbedder_unitAndDeterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()
	a, err := e.Embed(ctx, "refund policy for damaged goods")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "refund policy for damaged goods")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	if math.Abs(vector.L2Norm(a)-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", vector.L2Norm(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("embedding should be deterministic")
		}
	}
}

func TestMockEmbedder_sharedWordsScoreHigher(t *testing.T) {
	e := NewMockEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, Query("what is the refund policy"))
	related, _ := e.Embed(ctx, Passage("Our refund policy allows returns within 30 days."))
	unrelated, _ := e.Embed(ctx, Passage("Quarterly revenue grew in Europe."))
	if vector.InnerProduct(q, related) <= vector.InnerProduct(q, unrelated) {
		t.Errorf("related passage should score higher: %v vs %v",
			vector.InnerProduct(q, related), vector.InnerProduct(q, unrelated))
	}
}

func TestMockEmbedder_EmbedBatch(t *testing.T) {
	e := NewMockEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("default dimensions = %d", e.Dimensions())
	}
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Errorf("len = %d", len(out))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestNew_missingModelFallsBack(t *testing.T) {
	emb, err := New(Options{ModelPath: filepath.Join(t.TempDir(), "none.onnx"), Dimensions: 32})
	if err != nil {
		t.Fatal(err)
	}
	defer emb.Close()
	if _, ok := emb.(*MockEmbedder); !ok {
		t.Errorf("expected MockEmbedder fallback, got %T", emb)
	}
	if emb.Dimensions() != 32 {
		t.Errorf("dimensions = %d", emb.Dimensions())
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := NewMockEmbedder(768)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, Query("what does the warranty cover for water damage"))
	}
}

package vector

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
)

func benchIndex(b *testing.B, n, dim int, compress bool) *Index {
	b.Helper()
	idx, err := New(Options{IndexType: string(IndexTypeMemory), Dimension: dim, Compress: compress})
	if err != nil {
		b.Fatal(err)
	}
	rng := rand.New(rand.NewSource(1))
	vecs := make([][]float32, n)
	recs := make([]Record, n)
	for i := range vecs {
		vecs[i] = randomUnit(rng, dim)
		recs[i] = Record{Source: "bench.pdf", Page: i/10 + 1, Text: fmt.Sprintf("passage %d", i)}
	}
	if err := idx.Add(context.Background(), vecs, recs); err != nil {
		b.Fatal(err)
	}
	return idx
}

func BenchmarkIndexSearch(b *testing.B) {
	for _, n := range []int{1000, 10000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			idx := benchIndex(b, n, 768, false)
			defer idx.Close()
			q := randomUnit(rand.New(rand.NewSource(2)), 768)
			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := idx.Search(ctx, q, 6); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkIndexSaveLoad(b *testing.B) {
	for _, compress := range []bool{false, true} {
		b.Run(fmt.Sprintf("compress=%v", compress), func(b *testing.B) {
			idx := benchIndex(b, 2000, 768, compress)
			defer idx.Close()
			path := filepath.Join(b.TempDir(), "faiss")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := idx.Save(path); err != nil {
					b.Fatal(err)
				}
				fresh, err := New(Options{IndexType: string(IndexTypeMemory), Compress: compress})
				if err != nil {
					b.Fatal(err)
				}
				if err := fresh.Load(path); err != nil {
					b.Fatal(err)
				}
				_ = fresh.Close()
			}
		})
	}
}

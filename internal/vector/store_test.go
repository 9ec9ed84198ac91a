package vector

import (
	"errors"
	"testing"
)

func TestStore_AppendEstablishesDimension(t *testing.T) {
	s := NewStore(0)
	if err := s.Append([][]float32{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	if s.Dimension() != 3 || s.Len() != 1 {
		t.Fatalf("dim=%d len=%d, want 3/1", s.Dimension(), s.Len())
	}
	err := s.Append([][]float32{{1, 2}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestStore_RejectsWholeBatch(t *testing.T) {
	s := NewStore(2)
	err := s.Append([][]float32{{1, 0}, {0, 1}, {1, 1, 1}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("partial append: len=%d", s.Len())
	}
}

func TestStore_RowCopiesInput(t *testing.T) {
	s := NewStore(0)
	in := []float32{1, 2}
	if err := s.Append([][]float32{in}); err != nil {
		t.Fatal(err)
	}
	in[0] = 9
	if got := s.Row(0)[0]; got != 1 {
		t.Errorf("store aliased caller slice: row[0]=%v", got)
	}
}

func TestStore_EmptyEmbedding(t *testing.T) {
	s := NewStore(0)
	if err := s.Append([][]float32{{}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for empty embedding, got %v", err)
	}
}

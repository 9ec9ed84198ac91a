package vector

import "fmt"

// Store is a dense row-major (N, D) table of embeddings in insertion order.
// It is append-only and owned by a single backend.
type Store struct {
	dim  int
	data []float32
}

// NewStore creates an empty store. A dimension of 0 means the first Append fixes it.
func NewStore(dim int) *Store {
	return &Store{dim: dim}
}

// Dimension returns D, or 0 while unset.
func (s *Store) Dimension() int {
	return s.dim
}

// Len returns the number of rows.
func (s *Store) Len() int {
	if s.dim == 0 {
		return 0
	}
	return len(s.data) / s.dim
}

// Row returns row i. The returned slice must not be modified.
func (s *Store) Row(i int) []float32 {
	return s.data[i*s.dim : (i+1)*s.dim : (i+1)*s.dim]
}

// Append validates the whole batch and then appends it. On error the store is unchanged.
func (s *Store) Append(rows [][]float32) error {
	dim, err := checkRows(s.dim, rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	s.dim = dim
	s.data = append(s.data, flatten(dim, rows)...)
	return nil
}

// checkRows returns the dimension the batch establishes (dim when already set).
func checkRows(dim int, rows [][]float32) (int, error) {
	if len(rows) == 0 {
		return dim, nil
	}
	if dim == 0 {
		dim = len(rows[0])
		if dim == 0 {
			return 0, fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
		}
	}
	for i, row := range rows {
		if len(row) != dim {
			return 0, fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, i, len(row), dim)
		}
	}
	return dim, nil
}

func flatten(dim int, rows [][]float32) []float32 {
	out := make([]float32, len(rows)*dim)
	for i, row := range rows {
		copy(out[i*dim:(i+1)*dim], row)
	}
	return out
}

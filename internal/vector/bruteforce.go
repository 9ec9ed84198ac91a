package vector

import (
	"cmp"
	"slices"
)

// BruteForceBackend computes inner products against every stored row.
// Suitable for small workspaces and whenever FAISS is not compiled in.
type BruteForceBackend struct {
	store    *Store
	compress bool
}

// NewBruteForceBackend creates an empty brute-force backend. dim may be 0 (set by first Add).
// When compress is true the vector artifact payload is zstd-compressed on Save.
func NewBruteForceBackend(dim int, compress bool) *BruteForceBackend {
	return &BruteForceBackend{store: NewStore(dim), compress: compress}
}

// Type returns the index type identifier.
func (b *BruteForceBackend) Type() string {
	return string(IndexTypeMemory)
}

// Add appends rows to the store.
func (b *BruteForceBackend) Add(rows [][]float32) error {
	return b.store.Append(rows)
}

// Search scores every row and returns the k best. Equal scores keep insertion order.
func (b *BruteForceBackend) Search(query []float32, k int) ([]Match, error) {
	dim := b.store.Dimension()
	if dim != 0 && len(query) != dim {
		return nil, dimensionError(len(query), dim)
	}
	n := b.store.Len()
	if k <= 0 || n == 0 {
		return nil, nil
	}
	matches := make([]Match, n)
	for i := 0; i < n; i++ {
		matches[i] = Match{Row: i, Score: InnerProduct(query, b.store.Row(i))}
	}
	slices.SortStableFunc(matches, func(x, y Match) int {
		return cmp.Compare(y.Score, x.Score)
	})
	if k > n {
		k = n
	}
	return matches[:k:k], nil
}

// Save writes the raw (N, D) table to base + ".vec".
func (b *BruteForceBackend) Save(base string) error {
	return writeVectorFile(vectorPath(base), b.store.Dimension(), b.store.Len(), b.store.data, b.compress)
}

// Load reads base + ".vec". A configured dimension must match the file.
func (b *BruteForceBackend) Load(base string) (bool, error) {
	dim, data, ok, err := readVectorFile(vectorPath(base))
	if err != nil || !ok {
		return ok, err
	}
	if want := b.store.Dimension(); want != 0 && dim != 0 && dim != want {
		return true, dimensionError(dim, want)
	}
	if dim == 0 {
		dim = b.store.Dimension()
	}
	b.store = &Store{dim: dim, data: data}
	return true, nil
}

// Len returns the number of stored rows.
func (b *BruteForceBackend) Len() int {
	return b.store.Len()
}

// Dimension returns D, or 0 while unset.
func (b *BruteForceBackend) Dimension() int {
	return b.store.Dimension()
}

// Close is a no-op for BruteForceBackend.
func (b *BruteForceBackend) Close() error {
	return nil
}

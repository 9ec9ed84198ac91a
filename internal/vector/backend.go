// Package vector provides the per-workspace embedding index: a vector store, a
// metadata ledger aligned with it, two interchangeable similarity backends and
// the on-disk codec for both.
package vector

// Backend is a similarity search structure over the rows of one index.
// Implementations: BruteForceBackend and FAISSBackend.
type Backend interface {
	// Add appends rows in order. The batch has already been validated by the caller.
	Add(rows [][]float32) error
	// Search returns up to k rows by descending inner product with query.
	Search(query []float32, k int) ([]Match, error)
	// Save writes the backend's vector artifact for base path.
	Save(base string) error
	// Load replaces the contents from the artifact at base path. It reports false
	// when no artifact exists.
	Load(base string) (bool, error)
	Len() int
	// Dimension returns D, or 0 while unset.
	Dimension() int
	Type() string
	Close() error
}

// Match is one backend hit: the insertion row and its similarity score.
type Match struct {
	Row   int
	Score float64
}

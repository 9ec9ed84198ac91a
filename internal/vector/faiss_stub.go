//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

// FAISSBackend is a stub used when FAISS is not compiled in.
// Build with -tags=faiss to enable FAISS support.
type FAISSBackend struct{}

// NewFAISSBackend always fails without FAISS.
func NewFAISSBackend(dim int) (*FAISSBackend, error) {
	return nil, ErrFAISSUnavailable
}

// Add is not implemented without FAISS.
func (f *FAISSBackend) Add(rows [][]float32) error {
	return ErrFAISSUnavailable
}

// Search is not implemented without FAISS.
func (f *FAISSBackend) Search(query []float32, k int) ([]Match, error) {
	return nil, ErrFAISSUnavailable
}

// Save is not implemented without FAISS.
func (f *FAISSBackend) Save(base string) error {
	return ErrFAISSUnavailable
}

// Load is not implemented without FAISS.
func (f *FAISSBackend) Load(base string) (bool, error) {
	return false, ErrFAISSUnavailable
}

// Len returns 0 without FAISS.
func (f *FAISSBackend) Len() int {
	return 0
}

// Dimension returns 0 without FAISS.
func (f *FAISSBackend) Dimension() int {
	return 0
}

// Close is a no-op without FAISS.
func (f *FAISSBackend) Close() error {
	return nil
}

// Type returns the index type identifier.
func (f *FAISSBackend) Type() string {
	return string(IndexTypeFAISS)
}

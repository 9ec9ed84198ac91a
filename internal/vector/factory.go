package vector

import "fmt"

// IndexType represents the similarity backend to use.
type IndexType string

const (
	// IndexTypeAuto selects FAISS when compiled in and brute force otherwise.
	IndexTypeAuto IndexType = "auto"
	// IndexTypeMemory uses in-memory brute-force search. Good for small workspaces (<10k chunks).
	IndexTypeMemory IndexType = "memory"
	// IndexTypeFAISS uses a FAISS IndexFlatIP.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// ResolveIndexType maps a configured index type to the backend that will actually be built.
// "auto" (or empty) becomes "faiss" when FAISS is available and "memory" otherwise.
func ResolveIndexType(indexType string) (IndexType, error) {
	switch IndexType(indexType) {
	case IndexTypeAuto, "":
		if IsFAISSAvailable() {
			return IndexTypeFAISS, nil
		}
		return IndexTypeMemory, nil
	case IndexTypeMemory, IndexTypeFAISS:
		return IndexType(indexType), nil
	default:
		return "", fmt.Errorf("%w: %s (supported: auto, memory, faiss)", ErrUnknownIndexType, indexType)
	}
}

// NewBackend creates a backend of a resolved type. dim may be 0 (fixed by the first Add).
func NewBackend(t IndexType, dim int, compress bool) (Backend, error) {
	if dim < 0 {
		return nil, fmt.Errorf("dimension must not be negative")
	}
	switch t {
	case IndexTypeMemory:
		return NewBruteForceBackend(dim, compress), nil
	case IndexTypeFAISS:
		f, err := NewFAISSBackend(dim)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndexType, t)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	b, err := NewFAISSBackend(1)
	if err != nil {
		return false
	}
	_ = b.Close()
	return true
}

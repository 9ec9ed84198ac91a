package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned when an embedding or query does not have the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrLengthMismatch is returned when an add batch has a different number of vectors and records.
	ErrLengthMismatch = errors.New("vectors and metadata length mismatch")
	// ErrCorruptIndex is returned when persisted state exists but cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt persisted index")
	// ErrFAISSUnavailable is returned when FAISS support is not compiled in.
	ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")
	// ErrUnknownIndexType is returned by the factory for an unsupported index type.
	ErrUnknownIndexType = errors.New("unknown index type")
)

// ChecksumMismatchError is returned when a persisted artifact fails CRC32 verification.
type ChecksumMismatchError struct {
	Path     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch: expected 0x%08x, got 0x%08x", e.Path, e.Expected, e.Actual)
}

// Unwrap lets errors.Is(err, ErrCorruptIndex) match checksum failures.
func (e *ChecksumMismatchError) Unwrap() error {
	return ErrCorruptIndex
}

func dimensionError(got, want int) error {
	return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, got, want)
}

func corruptf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorruptIndex, fmt.Sprintf(format, args...))
}

//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"
)

// FAISSBackend keeps rows in a native FAISS IndexFlatIP. Row i is FAISS label i,
// so search labels are insertion indices. Tie order among equal scores is FAISS-native.
type FAISSBackend struct {
	index *C.FaissIndexFlatIP
	dim   int
}

// NewFAISSBackend creates a FAISS backend. With dim 0 the native index is created on first Add.
func NewFAISSBackend(dim int) (*FAISSBackend, error) {
	if dim < 0 {
		return nil, fmt.Errorf("dimension must not be negative")
	}
	f := &FAISSBackend{dim: dim}
	if dim > 0 {
		if err := f.create(dim); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *FAISSBackend) create(dim int) error {
	var index *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dim)); ret != 0 {
		return fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	f.index = index
	f.dim = dim
	return nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Type returns the index type identifier.
func (f *FAISSBackend) Type() string {
	return string(IndexTypeFAISS)
}

// Add inserts rows into the native index in order.
func (f *FAISSBackend) Add(rows [][]float32) error {
	if len(rows) == 0 {
		return nil
	}
	dim, err := checkRows(f.dim, rows)
	if err != nil {
		return err
	}
	if f.index == nil {
		if err := f.create(dim); err != nil {
			return err
		}
	}
	flat := flatten(dim, rows)
	ret := C.faiss_Index_add(
		f.index,
		C.idx_t(len(rows)),
		(*C.float)(unsafe.Pointer(&flat[0])),
	)
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns the top-k rows by inner product.
func (f *FAISSBackend) Search(query []float32, k int) ([]Match, error) {
	if f.dim != 0 && len(query) != f.dim {
		return nil, dimensionError(len(query), f.dim)
	}
	ntotal := f.Len()
	if k <= 0 || ntotal == 0 {
		return nil, nil
	}
	if k > ntotal {
		k = ntotal
	}
	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}
	matches := make([]Match, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 {
			continue
		}
		matches = append(matches, Match{Row: int(labels[i]), Score: float64(distances[i])})
	}
	return matches, nil
}

// Save writes the native index to base + ".faiss" through a temp file.
func (f *FAISSBackend) Save(base string) error {
	path := faissPath(base)
	if f.index == nil {
		// Nothing to write yet; drop any stale artifact so Load sees an empty index.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale FAISS index: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	cPath := C.CString(tmp)
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename FAISS index: %w", err)
	}
	return nil
}

// Load reads base + ".faiss". A configured dimension must match the file.
func (f *FAISSBackend) Load(base string) (bool, error) {
	path := faissPath(base)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat FAISS index: %w", err)
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return true, corruptf("read FAISS index: %s", faissLastError())
	}
	dim := int(C.faiss_Index_d(loaded))
	if f.dim != 0 && dim != f.dim {
		C.faiss_Index_free(loaded)
		return true, dimensionError(dim, f.dim)
	}
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded
	f.dim = dim
	return true, nil
}

// Len returns the number of rows in the native index.
func (f *FAISSBackend) Len() int {
	if f.index == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.index))
}

// Dimension returns D, or 0 while unset.
func (f *FAISSBackend) Dimension() int {
	return f.dim
}

// Close frees the FAISS index resources.
func (f *FAISSBackend) Close() error {
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

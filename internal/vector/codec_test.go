package vector

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := []float32{1, 0, 0, 0.5, 0.25, -1}
	for _, compress := range []bool{false, true} {
		path := filepath.Join(dir, "v.vec")
		require.NoError(t, writeVectorFile(path, 3, 2, data, compress))
		dim, got, ok, err := readVectorFile(path)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, dim)
		assert.Equal(t, data, got)
	}
}

func TestVectorFile_CompressionShrinksRepetitiveData(t *testing.T) {
	dir := t.TempDir()
	data := make([]float32, 64*128)
	for i := range data {
		data[i] = float32(i % 4)
	}
	plain := filepath.Join(dir, "plain.vec")
	packed := filepath.Join(dir, "packed.vec")
	require.NoError(t, writeVectorFile(plain, 128, 64, data, false))
	require.NoError(t, writeVectorFile(packed, 128, 64, data, true))
	ps, err := os.Stat(plain)
	require.NoError(t, err)
	cs, err := os.Stat(packed)
	require.NoError(t, err)
	assert.Less(t, cs.Size(), ps.Size())
}

func TestVectorFile_Missing(t *testing.T) {
	_, _, ok, err := readVectorFile(filepath.Join(t.TempDir(), "nope.vec"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadFrame_Rejects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.meta")
	require.NoError(t, writeMetaFile(path, 2, "memory", nil))

	t.Run("wrong magic", func(t *testing.T) {
		_, ok, err := readFrame(path, vectorMagic)
		assert.True(t, ok)
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})

	t.Run("future version", func(t *testing.T) {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data[len(metaMagic)] = formatVersion + 1
		bad := filepath.Join(dir, "v2.meta")
		require.NoError(t, os.WriteFile(bad, data, 0644))
		_, _, err = readMetaFile(bad)
		assert.ErrorIs(t, err, ErrCorruptIndex)
	})
}

func TestMetaFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.meta")
	recs := []Record{
		{Source: "a.pdf", Page: 1, Text: "x"},
		{Source: "b.pdf", Page: 7, Text: "y", Extra: map[string]interface{}{"doc_id": "d2"}},
	}
	require.NoError(t, writeMetaFile(path, 768, "faiss", recs))
	env, ok, err := readMetaFile(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 768, env.Dim)
	assert.Equal(t, "faiss", env.Backend)
	require.Len(t, env.Records, 2)
	assert.Equal(t, "b.pdf", env.Records[1].Source)
	assert.Equal(t, 7, env.Records[1].Page)
	assert.Equal(t, "d2", env.Records[1].Extra["doc_id"])
}

func TestMetaFile_ExtraIntegersReloadAsInt64(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.meta")
	recs := []Record{{Source: "a.pdf", Page: 9, Text: "x", Extra: map[string]interface{}{"n": 5, "neg": -7}}}
	require.NoError(t, writeMetaFile(path, 2, "memory", recs))
	env, _, err := readMetaFile(path)
	require.NoError(t, err)
	require.Len(t, env.Records, 1)
	assert.Equal(t, int64(5), env.Records[0].Extra["n"])
	assert.Equal(t, int64(-7), env.Records[0].Extra["neg"])
}

func TestVectorFile_RejectsOverflowingRowCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.vec")
	// n*dim*4 wraps to 16 bytes, matching the payload length.
	const dim = 4
	n := uint64(1)<<62 + 1
	body := make([]byte, vectorHeaderSize, vectorHeaderSize+16)
	binary.LittleEndian.PutUint32(body[1:5], dim)
	binary.LittleEndian.PutUint64(body[5:13], n)
	binary.LittleEndian.PutUint64(body[13:21], 16)
	body = append(body, make([]byte, 16)...)
	require.NoError(t, writeFrame(path, vectorMagic, body))

	_, _, ok, err := readVectorFile(path)
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestAtomicWriteFile_LeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "f.bin")
	require.NoError(t, atomicWriteFile(path, []byte("one")))
	require.NoError(t, atomicWriteFile(path, []byte("two")))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

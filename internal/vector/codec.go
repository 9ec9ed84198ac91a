package vector

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Artifact suffixes appended to an index base path.
const (
	vectorSuffix = ".vec"
	metaSuffix   = ".meta"
	faissSuffix  = ".faiss"
)

const (
	vectorMagic   = "PCVEC"
	metaMagic     = "PCMET"
	formatVersion = 1

	flagZstd = 1 << 0

	// magic + version
	frameHeaderSize = len(vectorMagic) + 1
	// frame header + crc32 trailer
	frameOverhead = frameHeaderSize + 4
	// flags(1) dim(4) n(8) payloadLen(8)
	vectorHeaderSize = 1 + 4 + 8 + 8
)

func vectorPath(base string) string { return base + vectorSuffix }
func metaPath(base string) string   { return base + metaSuffix }
func faissPath(base string) string  { return base + faissSuffix }

// metaEnvelope is the shared metadata artifact written by both backends.
type metaEnvelope struct {
	Version int      `msgpack:"version"`
	Dim     int      `msgpack:"dim"`
	Backend string   `msgpack:"backend"`
	Count   int      `msgpack:"count"`
	Records []Record `msgpack:"records"`
}

// writeFrame atomically replaces path with magic, version, body and a CRC32 of everything before it.
func writeFrame(path, magic string, body []byte) error {
	buf := make([]byte, 0, frameOverhead+len(body))
	buf = append(buf, magic...)
	buf = append(buf, formatVersion)
	buf = append(buf, body...)
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	return atomicWriteFile(path, buf)
}

// readFrame returns the verified body of path. ok is false when the file does not exist.
func readFrame(path, magic string) (body []byte, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(data) < frameOverhead {
		return nil, true, corruptf("%s: truncated (%d bytes)", filepath.Base(path), len(data))
	}
	if string(data[:len(magic)]) != magic {
		return nil, true, corruptf("%s: bad magic", filepath.Base(path))
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, true, corruptf("%s: unsupported format version %d", filepath.Base(path), v)
	}
	end := len(data) - 4
	want := binary.LittleEndian.Uint32(data[end:])
	if got := crc32.ChecksumIEEE(data[:end]); got != want {
		return nil, true, &ChecksumMismatchError{Path: path, Expected: want, Actual: got}
	}
	return data[frameHeaderSize:end], true, nil
}

// atomicWriteFile writes data to a temp file in the target directory and renames it over path.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeVectorFile persists the raw (n, dim) table. Format after the frame header:
// flags (1), dim (4), n (8), payload length (8), payload (n*dim little-endian float32,
// zstd-compressed when flagZstd is set).
func writeVectorFile(path string, dim, n int, data []float32, compress bool) error {
	payload := float32SliceToBytes(data[:n*dim])
	var flags byte
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		payload = enc.EncodeAll(payload, nil)
		_ = enc.Close()
		flags |= flagZstd
	}
	body := make([]byte, vectorHeaderSize, vectorHeaderSize+len(payload))
	body[0] = flags
	binary.LittleEndian.PutUint32(body[1:5], uint32(dim))
	binary.LittleEndian.PutUint64(body[5:13], uint64(n))
	binary.LittleEndian.PutUint64(body[13:21], uint64(len(payload)))
	body = append(body, payload...)
	return writeFrame(path, vectorMagic, body)
}

// readVectorFile loads a table written by writeVectorFile. ok is false when the file does not exist.
func readVectorFile(path string) (dim int, data []float32, ok bool, err error) {
	body, ok, err := readFrame(path, vectorMagic)
	if err != nil || !ok {
		return 0, nil, ok, err
	}
	if len(body) < vectorHeaderSize {
		return 0, nil, true, corruptf("%s: truncated header", filepath.Base(path))
	}
	flags := body[0]
	dim = int(binary.LittleEndian.Uint32(body[1:5]))
	n := binary.LittleEndian.Uint64(body[5:13])
	payloadLen := binary.LittleEndian.Uint64(body[13:21])
	payload := body[vectorHeaderSize:]
	if uint64(len(payload)) != payloadLen {
		return 0, nil, true, corruptf("%s: payload is %d bytes, header says %d", filepath.Base(path), len(payload), payloadLen)
	}
	if flags&flagZstd != 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return 0, nil, true, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		payload, err = dec.DecodeAll(payload, nil)
		if err != nil {
			return 0, nil, true, corruptf("%s: decompress: %v", filepath.Base(path), err)
		}
	}
	if dim == 0 && n != 0 {
		return 0, nil, true, corruptf("%s: %d rows with zero dimension", filepath.Base(path), n)
	}
	if dim != 0 && n > uint64(len(payload))/4/uint64(dim) {
		return 0, nil, true, corruptf("%s: %d rows of dimension %d exceed %d payload bytes", filepath.Base(path), n, dim, len(payload))
	}
	if uint64(len(payload)) != n*uint64(dim)*4 {
		return 0, nil, true, corruptf("%s: %d payload bytes for %d rows of dimension %d", filepath.Base(path), len(payload), n, dim)
	}
	return dim, bytesToFloat32Slice(payload), true, nil
}

// writeMetaFile persists the dimension, backend type and metadata ledger.
func writeMetaFile(path string, dim int, backend string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	body, err := msgpack.Marshal(&metaEnvelope{
		Version: formatVersion,
		Dim:     dim,
		Backend: backend,
		Count:   len(records),
		Records: records,
	})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return writeFrame(path, metaMagic, body)
}

// readMetaFile loads the metadata artifact. ok is false when the file does not exist.
func readMetaFile(path string) (*metaEnvelope, bool, error) {
	body, ok, err := readFrame(path, metaMagic)
	if err != nil || !ok {
		return nil, ok, err
	}
	// Loose decoding reads every integer in Record.Extra back as int64 (or
	// uint64) instead of the smallest type that held it on the wire.
	var env metaEnvelope
	dec := msgpack.NewDecoder(bytes.NewReader(body))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&env); err != nil {
		return nil, true, corruptf("%s: decode metadata: %v", filepath.Base(path), err)
	}
	if env.Count != len(env.Records) {
		return nil, true, corruptf("%s: %d records, header says %d", filepath.Base(path), len(env.Records), env.Count)
	}
	if env.Dim < 0 {
		return nil, true, corruptf("%s: negative dimension %d", filepath.Base(path), env.Dim)
	}
	return &env, true, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

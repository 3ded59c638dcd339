package dataset

import (
	"fmt"
	"math"
	"os"

	"github.com/quantfold/countfit/compress"
	"github.com/quantfold/countfit/endian"
	"github.com/quantfold/countfit/errs"
	"github.com/quantfold/countfit/internal/options"
	"github.com/quantfold/countfit/internal/pool"
)

// Binary dataset format, little-endian throughout:
//
//	[0:4]   magic "CFD1"
//	[4]     format version (currently 1)
//	[5]     compression kind of the payload
//	[6:8]   reserved, zero
//	[8:12]  column count (uint32)
//	[12:20] row count (uint64)
//	[20:28] content fingerprint (xxHash64, see Fingerprint)
//	[28:]   column directory: per column uint16 name length + name bytes
//	...     payload: per column, rows as float64 bit patterns (compressed)
//
// The header and directory stay uncompressed so tooling can inspect shape
// and provenance without decompressing the payload.
const (
	binaryVersion    = 1
	binaryHeaderSize = 28
)

var binaryMagic = [4]byte{'C', 'F', 'D', '1'}

// WriteBinary writes the dataset in the compact binary format and reports
// payload compression statistics. The payload codec defaults to Zstd;
// override it with WithCompression.
func (d *Dataset) WriteBinary(path string, opts ...WriteOption) (compress.Stats, error) {
	cfg := &writeConfig{kind: compress.Zstd}
	if err := options.Apply(cfg, opts...); err != nil {
		return compress.Stats{}, err
	}

	encoded, stats, err := d.encodeBinary(cfg.kind)
	if err != nil {
		return compress.Stats{}, err
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return compress.Stats{}, fmt.Errorf("failed to write %s: %w", path, err)
	}

	return stats, nil
}

// ReadBinary reads a dataset written by WriteBinary and verifies its content
// fingerprint.
func ReadBinary(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	d, err := decodeBinary(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return d, nil
}

func (d *Dataset) encodeBinary(kind compress.Kind) ([]byte, compress.Stats, error) {
	engine := endian.Little()
	ncols := d.NumCols()
	nrows := d.NumRows()

	// Raw columnar payload, assembled in a pooled buffer.
	buf := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(buf)
	for _, col := range d.cols {
		for _, v := range col {
			buf.B = engine.AppendUint64(buf.B, math.Float64bits(v))
		}
	}

	codec, err := compress.ForKind(kind)
	if err != nil {
		return nil, compress.Stats{}, err
	}
	payload, err := codec.Compress(buf.Bytes())
	if err != nil {
		return nil, compress.Stats{}, fmt.Errorf("failed to compress payload: %w", err)
	}
	stats := compress.Stats{
		Kind:        kind,
		RawSize:     int64(buf.Len()),
		EncodedSize: int64(len(payload)),
	}

	dirSize := 0
	for _, name := range d.names {
		dirSize += 2 + len(name)
	}

	out := make([]byte, 0, binaryHeaderSize+dirSize+len(payload))
	out = append(out, binaryMagic[:]...)
	out = append(out, binaryVersion, byte(kind), 0, 0)
	out = engine.AppendUint32(out, uint32(ncols))
	out = engine.AppendUint64(out, uint64(nrows))
	out = engine.AppendUint64(out, d.Fingerprint())
	for _, name := range d.names {
		out = engine.AppendUint16(out, uint16(len(name)))
		out = append(out, name...)
	}
	out = append(out, payload...)

	return out, stats, nil
}

func decodeBinary(data []byte) (*Dataset, error) {
	engine := endian.Little()

	if len(data) < binaryHeaderSize {
		return nil, fmt.Errorf("%w: file shorter than header", errs.ErrInvalidFormat)
	}
	if [4]byte(data[0:4]) != binaryMagic {
		return nil, fmt.Errorf("%w: bad magic", errs.ErrInvalidFormat)
	}
	if data[4] > binaryVersion {
		return nil, fmt.Errorf("%w: version %d", errs.ErrUnsupportedVersion, data[4])
	}

	kind := compress.Kind(data[5])
	ncols := int(engine.Uint32(data[8:12]))
	nrows64 := engine.Uint64(data[12:20])
	wantHash := engine.Uint64(data[20:28])

	if ncols == 0 || nrows64 == 0 {
		return nil, fmt.Errorf("%w: empty shape", errs.ErrEmptyDataset)
	}
	const maxRows = 1 << 40
	if nrows64 > maxRows {
		return nil, fmt.Errorf("%w: implausible row count %d", errs.ErrInvalidFormat, nrows64)
	}
	nrows := int(nrows64)

	// Column directory.
	names := make([]string, ncols)
	off := binaryHeaderSize
	for i := 0; i < ncols; i++ {
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated directory", errs.ErrInvalidFormat)
		}
		nameLen := int(engine.Uint16(data[off : off+2]))
		off += 2
		if off+nameLen > len(data) {
			return nil, fmt.Errorf("%w: truncated column name", errs.ErrInvalidFormat)
		}
		names[i] = string(data[off : off+nameLen])
		off += nameLen
	}

	codec, err := compress.ForKind(kind)
	if err != nil {
		return nil, err
	}
	payload, err := codec.Decompress(data[off:])
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	if len(payload) != ncols*nrows*8 {
		return nil, fmt.Errorf("%w: payload is %d bytes, expected %d",
			errs.ErrInvalidFormat, len(payload), ncols*nrows*8)
	}

	cols := make([][]float64, ncols)
	pos := 0
	for j := range cols {
		col := make([]float64, nrows)
		for i := range col {
			col[i] = math.Float64frombits(engine.Uint64(payload[pos : pos+8]))
			pos += 8
		}
		cols[j] = col
	}

	d, err := New(names, cols)
	if err != nil {
		return nil, err
	}
	if got := d.Fingerprint(); got != wantHash {
		return nil, fmt.Errorf("%w: fingerprint mismatch: got %016x, want %016x",
			errs.ErrInvalidFormat, got, wantHash)
	}

	return d, nil
}

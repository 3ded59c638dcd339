// Package compress provides the payload codecs used by the dataset file
// formats and the run log artifact store.
//
// Dataset payloads are columnar little-endian float64 blocks, which compress
// well under every supported algorithm. Zstd gives the best ratio and is the
// default for archived simulation outputs; S2 and LZ4 trade ratio for speed
// on hot reload paths.
package compress

import "fmt"

// Compressor compresses a single payload.
//
// Memory management:
//   - The returned slice is newly allocated and owned by the caller
//     (except for the no-op codec, which returns the input unchanged).
//   - The input slice is not modified.
//   - Internal buffers may be pooled and reused across calls.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload previously produced by the matching
// Compressor. Implementations validate the input framing and return an error
// on corrupted or mismatched data.
//
// All implementations are safe for concurrent use.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines compression and decompression for one algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// Stats summarizes one compression operation, for logging write results.
type Stats struct {
	// Kind is the algorithm that produced the payload.
	Kind Kind
	// RawSize is the payload size before compression.
	RawSize int64
	// EncodedSize is the payload size after compression.
	EncodedSize int64
}

// Ratio returns encoded size over raw size. Values below 1.0 indicate the
// payload shrank; 0.0 is returned for an empty payload.
func (s Stats) Ratio() float64 {
	if s.RawSize == 0 {
		return 0.0
	}

	return float64(s.EncodedSize) / float64(s.RawSize)
}

// Savings returns the space saved as a percentage in [0, 100] for payloads
// that shrank; negative values indicate expansion.
func (s Stats) Savings() float64 {
	return (1.0 - s.Ratio()) * 100.0
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d -> %d bytes (%.1f%% saved)", s.Kind, s.RawSize, s.EncodedSize, s.Savings())
}

var builtinCodecs = map[Kind]Codec{
	None: NewNoOpCodec(),
	Zstd: NewZstdCodec(),
	S2:   NewS2Codec(),
	LZ4:  NewLZ4Codec(),
}

// ForKind returns the built-in Codec for the given kind.
func ForKind(kind Kind) (Codec, error) {
	if codec, ok := builtinCodecs[kind]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression kind: %s", kind)
}

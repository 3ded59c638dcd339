package compress

// ZstdCodec provides Zstandard compression for dataset payloads.
//
// Zstd offers the best compression ratio of the supported algorithms and is
// the default for archived datasets and run log artifacts. Two
// implementations are selected by build tag: the cgo build uses
// valyala/gozstd (libzstd bindings), the pure-Go build uses
// klauspost/compress/zstd with pooled encoders and decoders.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a Zstd codec with default settings.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

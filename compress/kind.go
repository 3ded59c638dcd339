package compress

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies a compression algorithm for dataset payloads.
//
// The numeric values are part of the binary dataset format and must not be
// reordered.
type Kind uint8

const (
	None Kind = 0x1 // None represents no compression.
	Zstd Kind = 0x2 // Zstd represents Zstandard compression.
	S2   Kind = 0x3 // S2 represents S2 compression.
	LZ4  Kind = 0x4 // LZ4 represents LZ4 block compression.
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// Ext returns the conventional file name extension for the kind, including
// the leading dot. None has no extension.
func (k Kind) Ext() string {
	switch k {
	case Zstd:
		return ".zst"
	case S2:
		return ".s2"
	case LZ4:
		return ".lz4"
	default:
		return ""
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k >= None && k <= LZ4
}

// ParseKind converts a name like "zstd" or "lz4" to its Kind.
// Matching is case-insensitive; the empty string means None.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None, nil
	case "zstd", "zst":
		return Zstd, nil
	case "s2":
		return S2, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression kind: %q", name)
	}
}

// DetectKind infers the compression kind from a file name extension.
// Unrecognized extensions map to None.
func DetectKind(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".s2":
		return S2
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

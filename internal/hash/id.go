// Package hash provides the xxHash64 helpers shared by dataset
// fingerprinting and bootstrap seed derivation.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Mix hashes the given words into a single 64-bit value. The bootstrap
// derives per-replication seeds from (base seed, index) this way; plain
// addition would hand consecutive replications correlated streams.
func Mix(words ...uint64) uint64 {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}

	return xxhash.Sum64(buf)
}

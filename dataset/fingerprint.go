package dataset

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/quantfold/countfit/endian"
)

// Fingerprint returns a 64-bit xxHash64 content hash of the dataset: column
// names in order, then every value as its IEEE 754 bit pattern.
//
// The hash is deterministic across platforms and stable across the CSV and
// binary round-trips, so it serves as both a file integrity check and a run
// provenance key in the run log.
func (d *Dataset) Fingerprint() uint64 {
	digest := xxhash.New()
	engine := endian.Little()

	var scratch [8]byte
	for _, name := range d.names {
		_, _ = digest.WriteString(name)
		// NUL separator keeps ("ab","c") distinct from ("a","bc").
		_, _ = digest.Write([]byte{0})
	}
	for _, col := range d.cols {
		for _, v := range col {
			engine.PutUint64(scratch[:], math.Float64bits(v))
			_, _ = digest.Write(scratch[:])
		}
	}

	return digest.Sum64()
}

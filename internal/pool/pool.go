// Package pool provides reusable scratch buffers for the hot paths of the
// module: bootstrap replications refit the model thousands of times, and the
// dataset codecs assemble multi-megabyte payloads. Pooling the intermediate
// slices keeps those loops allocation-free after warmup.
package pool

import "sync"

var float64SlicePool = sync.Pool{
	New: func() any { return &[]float64{} },
}

// GetFloat64Slice retrieves a float64 slice of the requested length from the
// pool. Contents are unspecified; callers must overwrite every element.
// The returned cleanup function must be called (typically with defer) to
// return the slice to the pool.
//
// Example:
//
//	mu, done := pool.GetFloat64Slice(model.NumObs())
//	defer done()
func GetFloat64Slice(size int) ([]float64, func()) {
	ptr, _ := float64SlicePool.Get().(*[]float64)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]float64, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { float64SlicePool.Put(ptr) }
}

// Package pool provides typed slice pools that reduce allocation churn in
// the block compressor's (C9) per-block hot path: the identifier batch
// and the delta+varint length-array scratch are requested and released
// once per block, rather than allocated fresh per block per thread.
package pool

import "sync"

var (
	uint64SlicePool = sync.Pool{
		New: func() any { return &[]uint64{} },
	}
	stringSlicePool = sync.Pool{
		New: func() any { return &[]string{} },
	}
)

// GetUint64Slice retrieves a []uint64 of exact length size from the pool,
// reusing backing storage when the pooled slice already has enough
// capacity. Used for read-length arrays.
//
// The caller must invoke the returned cleanup function (typically via
// defer) to return the slice to the pool.
func GetUint64Slice(size int) ([]uint64, func()) {
	ptr, _ := uint64SlicePool.Get().(*[]uint64)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]uint64, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { uint64SlicePool.Put(ptr) }
}

// GetStringSlice retrieves a []string of exact length size from the pool.
// Used for per-block identifier batches.
func GetStringSlice(size int) ([]string, func()) {
	ptr, _ := stringSlicePool.Get().(*[]string)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]string, size)
	} else {
		slice = slice[:size]
	}
	*ptr = slice

	return slice, func() { stringSlicePool.Put(ptr) }
}

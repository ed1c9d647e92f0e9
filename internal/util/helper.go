package util

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// Clamp limits v to the inclusive range [lo, hi].
//
// It panics if lo > hi; the bounds are compile-time constants at every call
// site in this module, so a reversed range is a programmer error.
func Clamp[T int | int8 | int16 | int32 | int64 | float32 | float64](v, lo, hi T) T {
	if lo > hi {
		panic("util: Clamp bounds reversed")
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}

	return v
}

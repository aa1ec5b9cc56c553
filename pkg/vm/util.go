package vm

import "math"

// doubleFromBits reconstructs a float64 from the little-endian bit
// pattern ALLOC_REAL_D8 carries in the code stream.
func doubleFromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}

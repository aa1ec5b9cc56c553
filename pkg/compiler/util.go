package compiler

import "math"

func doubleBits(f float64) uint64 { return math.Float64bits(f) }

package tensor

// DivRoundUp divides and rounds up to the next integer.
func DivRoundUp(numerator, denominator int) int {
	return (numerator + denominator - 1) / denominator
}

// RoundUpToNearestMultiple rounds value up to the nearest multiple of m.
func RoundUpToNearestMultiple(value, m int) int {
	return DivRoundUp(value, m) * m
}

// ElementOffset returns the linear offset of element (d0, d1, d2, d3) in a
// densely packed tensor of the given shape, with the last dimension
// fastest-varying. The same addressing serves NHWC activations and
// HWIO/HWIM weights.
func ElementOffset(shape Shape, d0, d1, d2, d3 int) int {
	return ((d0*shape[1]+d1)*shape[2]+d2)*shape[3] + d3
}

// Rotate180 returns a copy of a weight tensor rotated by 180 degrees in the
// spatial (H, W) plane. The two trailing dimensions are untouched; for each
// (y, x) position the trailing block is copied as a contiguous run.
func Rotate180(data []byte, shape Shape) []byte {
	flipped := make([]byte, len(data))
	n := shape[2] * shape[3]
	for y := 0; y < shape[0]; y++ {
		for x := 0; x < shape[1]; x++ {
			src := ElementOffset(shape, y, x, 0, 0)
			dst := ElementOffset(shape, shape[0]-1-y, shape[1]-1-x, 0, 0)
			copy(flipped[dst:dst+n], data[src:src+n])
		}
	}
	return flipped
}

// Pad extends data to newSize, filling the tail with padValue. The input
// slice is not modified.
func Pad(data []byte, newSize int, padValue byte) []byte {
	if newSize <= len(data) {
		return append([]byte(nil), data...)
	}
	result := make([]byte, newSize)
	copy(result, data)
	for i := len(data); i < newSize; i++ {
		result[i] = padValue
	}
	return result
}

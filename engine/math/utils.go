package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// CeilDiv returns ceil(a / b) for positive integers without touching floats.
func CeilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// AlignUp rounds `value` up to the nearest multiple of `alignment`.
// Alignment must be greater than zero.
func AlignUp[T constraints.Integer](value, alignment T) T {
	return CeilDiv(value, alignment) * alignment
}

// RunningAverage blends a new sample into an accumulated value using the
// same formula the ray generation shader applies per pixel:
// frame 0 stores the sample as-is, frame k blends with weight 1/(k+1).
// Batch indices must therefore be strictly increasing and contiguous from 0.
func RunningAverage(accumulated, sample float32, frameIndex uint32) float32 {
	t := 1.0 / float32(frameIndex+1)
	return accumulated + (sample-accumulated)*t
}

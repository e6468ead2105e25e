package spectrum

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Split copies the real and imaginary parts of in into re and im.
// re and im must be at least len(in) long. It does not allocate.
func Split(re, im []float64, in []complex128) {
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}
}

// Magnitude returns |X[k]| for each complex spectrum bin.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re := make([]float64, len(in))
	im := make([]float64, len(in))

	Split(re, im, in)
	vecmath.Magnitude(out, re, im)

	return out
}

// MagnitudeFromParts computes |X[k]| = sqrt(re[k]^2 + im[k]^2) into dst.
//
// This is the zero-allocation fast path for callers that already have real and
// imaginary parts in separate slices. All three slices must have the same length.
func MagnitudeFromParts(dst, re, im []float64) {
	vecmath.Magnitude(dst, re, im)
}

// Polar returns mag * e^(i*phase).
func Polar(mag, phase float64) complex128 {
	s, c := math.Sincos(phase)
	return complex(mag*c, mag*s)
}

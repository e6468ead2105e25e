// Package window implements the raised-cosine taper used for both analysis
// and synthesis in the spectral remapper.
//
// The taper is
//
//	w(i) = 0.5 * (shape - (1-shape) * cos(2*pi*((i+offset) mod N) / N))
//
// shape in [0,1] sets the taper depth (0.5 is half a periodic Hann window,
// 1 a flat 0.5) and offset rotates which sample is the taper's phase origin
// without moving the samples themselves.
package window

import "math"

// DefaultShape is the shape factor the host exposes by default.
const DefaultShape = 0.5

// Weight returns the raised-cosine weight of sample i in a window of the
// given size. offset may be any non-negative or negative integer.
func Weight(size, i, offset int, shape float64) float64 {
	pos := (i + offset) % size
	if pos < 0 {
		pos += size
	}

	return 0.5 * (shape - (1-shape)*math.Cos(2*math.Pi*float64(pos)/float64(size)))
}

// Generate returns a freshly allocated weight table of the given size.
func Generate(size, offset int, shape float64) ([]float64, error) {
	if err := validateLength(size); err != nil {
		return nil, err
	}
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	out := make([]float64, size)
	Fill(out, offset, shape)

	return out, nil
}

// Fill writes the weight table for a window of len(dst) samples into dst.
// It does not allocate.
func Fill(dst []float64, offset int, shape float64) {
	size := len(dst)
	for i := range dst {
		dst[i] = Weight(size, i, offset, shape)
	}
}

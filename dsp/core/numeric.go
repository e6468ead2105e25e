package core

import (
	"fmt"
	"math"
	"math/bits"
)

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in hot DSP loops.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// FormatGainDB renders a linear gain as dB text, "-inf dB" for silence.
func FormatGainDB(linear float64) string {
	db := LinearToDB(linear)
	if math.IsNaN(db) || math.IsInf(db, -1) {
		return "-inf dB"
	}

	// Values that round to zero print without a sign.
	if math.Abs(db) < 0.005 {
		db = 0
	}

	return fmt.Sprintf("%.2f dB", db)
}

// NextPowerOf2 returns the smallest power of two >= n. Values <= 1 map to 1.
func NextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len(uint(n-1))
}

package window

// Analysis holds properties of a weight table relevant to overlap-add
// resynthesis.
type Analysis struct {
	// CoherentGain is sum(w[n]) / N, the DC response of the window.
	CoherentGain float64
	// ENBW is the equivalent noise bandwidth in bins.
	ENBW float64
	// OverlapGain is the mean of sum_m w^2(n + m*hop), the gain of a
	// squared-taper analysis/synthesis pair before overlap compensation.
	OverlapGain float64
	// OverlapRipple is the peak deviation of that sum from its mean.
	OverlapRipple float64
}

// Analyze computes coherent gain, ENBW and the squared-taper overlap-add
// sum of coeffs for the given hop. hop must divide len(coeffs).
func Analyze(coeffs []float64, hop int) (Analysis, error) {
	n := len(coeffs)
	if err := validateLength(n); err != nil {
		return Analysis{}, err
	}
	if hop <= 0 || n%hop != 0 {
		return Analysis{}, errInvalidHop
	}

	sum := 0.0
	sumSq := 0.0
	for _, c := range coeffs {
		sum += c
		sumSq += c * c
	}

	a := Analysis{CoherentGain: sum / float64(n)}
	if sum != 0 {
		a.ENBW = float64(n) * sumSq / (sum * sum)
	}

	// Every position sees n/hop overlapping frames.
	lo, hi := 0.0, 0.0
	for i := range hop {
		acc := 0.0
		for j := i; j < n; j += hop {
			acc += coeffs[j] * coeffs[j]
		}
		if i == 0 || acc < lo {
			lo = acc
		}
		if i == 0 || acc > hi {
			hi = acc
		}
	}

	a.OverlapGain = sumSq / float64(hop)
	a.OverlapRipple = max(hi-a.OverlapGain, a.OverlapGain-lo)

	return a, nil
}

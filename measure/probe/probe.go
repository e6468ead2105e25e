// Package probe renders a test tone through a remapping engine and
// measures what comes out: level, gain and where the energy went.
package probe

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-remap/dsp/core"
	"github.com/cwbudde/algo-remap/dsp/pvoc"
	"github.com/cwbudde/algo-remap/dsp/spectrum"
	"github.com/cwbudde/algo-remap/dsp/window"
)

// settleWindows is how many window lengths of output are discarded before
// measuring; the first cycles see a partially filled input ring.
const settleWindows = 3

const maxAnalysisSize = 1 << 16

var (
	errInvalidTone = errors.New("probe: tone frequency must be in (0, nyquist)")
	errTooShort    = errors.New("probe: duration too short to settle")
)

// Config describes the probe tone.
type Config struct {
	// Frequency of the sine in Hz.
	Frequency float64
	// Amplitude of the sine; 0 selects 0.5.
	Amplitude float64
	// Samples is the rendered length; 0 selects settle time plus 8 windows.
	Samples int
}

// Report holds measurements over the settled part of the output.
type Report struct {
	InputRMS  float64
	OutputRMS float64
	Peak      float64
	// Gain is OutputRMS / InputRMS; 0 when the input is silent.
	Gain float64
	// Dominant is the strongest output frequency in Hz, interpolated
	// between bins.
	Dominant float64
	// Centroid is the magnitude-weighted mean frequency in Hz.
	Centroid float64
	// Residual is the output amplitude left at the input frequency,
	// relative to the input amplitude. 1 means the tone was untouched.
	Residual float64
	// Flatness is the spectral flatness in [0,1]; near 0 for a pure tone.
	Flatness float64
	// Measured is the number of samples the report covers.
	Measured int
}

// GainDB renders Gain in dB.
func (r Report) GainDB() string {
	return core.FormatGainDB(r.Gain)
}

// Run renders cfg through v with the given controls. The engine keeps the
// state the tone leaves behind; callers that reuse it should Reset it.
func Run(v *pvoc.Vocoder, ctl pvoc.Controls, cfg Config) (Report, error) {
	if ctl.WindowSize <= 0 {
		ctl.WindowSize = v.WindowSize()
	}
	if !(ctl.SampleRate > 0) {
		ctl.SampleRate = v.SampleRate()
	}

	sr := ctl.SampleRate
	if !(cfg.Frequency > 0 && cfg.Frequency < sr/2) {
		return Report{}, fmt.Errorf("%w: %v Hz at %v Hz", errInvalidTone, cfg.Frequency, sr)
	}

	amp := cfg.Amplitude
	if amp == 0 {
		amp = 0.5
	}

	size := core.NextPowerOf2(max(ctl.WindowSize, pvoc.MinWindowSize))
	settle := settleWindows * size
	n := cfg.Samples
	if n == 0 {
		n = settle + 8*size
	}
	if n <= settle+1 {
		return Report{}, fmt.Errorf("%w: %d samples, need more than %d", errTooShort, n, settle+1)
	}

	in := make([]float64, n)
	w := 2 * math.Pi * cfg.Frequency / sr
	for i := range in {
		in[i] = amp * math.Sin(w*float64(i))
	}

	out := append([]float64(nil), in...)
	if err := v.Process(ctl, out); err != nil {
		return Report{}, err
	}

	steady := out[settle:]
	r := Report{
		InputRMS:  rms(in[settle-v.Latency() : n-v.Latency()]),
		OutputRMS: rms(steady),
		Peak:      peak(steady),
		Measured:  len(steady),
	}
	if r.InputRMS > 0 {
		r.Gain = r.OutputRMS / r.InputRMS
	}

	left, err := spectrum.ToneAmplitude(steady, cfg.Frequency, sr)
	if err != nil {
		return Report{}, fmt.Errorf("probe: %w", err)
	}
	r.Residual = left / math.Abs(amp)

	mag, err := magnitudeSpectrum(steady)
	if err != nil {
		return Report{}, err
	}

	binHz := sr / float64(2*(len(mag)-1))
	r.Dominant = dominant(mag) * binHz
	r.Centroid = centroid(mag) * binHz
	r.Flatness = flatness(mag)

	return r, nil
}

// magnitudeSpectrum returns the one-sided magnitude of the longest
// power-of-two prefix of x, tapered by the engine's default window.
func magnitudeSpectrum(x []float64) ([]float64, error) {
	m := 1
	for m*2 <= len(x) && m*2 <= maxAnalysisSize {
		m *= 2
	}
	if m < 4 {
		return nil, errTooShort
	}

	plan, err := algofft.NewPlan64(m)
	if err != nil {
		return nil, fmt.Errorf("probe: fft plan: %w", err)
	}

	taper := make([]float64, m)
	window.Fill(taper, 0, window.DefaultShape)

	buf := make([]complex128, m)
	for i := range buf {
		buf[i] = complex(x[i]*taper[i], 0)
	}
	if err := plan.Forward(buf, buf); err != nil {
		return nil, fmt.Errorf("probe: forward fft: %w", err)
	}

	return spectrum.Magnitude(buf[:m/2+1]), nil
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(x)))
}

func peak(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		p = max(p, math.Abs(v))
	}

	return p
}

// dominant returns the fractional bin of the largest magnitude, refined by
// a parabola through the neighbouring bins.
func dominant(mag []float64) float64 {
	best := 0
	for i, v := range mag {
		if v > mag[best] {
			best = i
		}
	}

	if best == 0 || best == len(mag)-1 {
		return float64(best)
	}

	a, b, c := mag[best-1], mag[best], mag[best+1]
	den := a - 2*b + c
	if den == 0 {
		return float64(best)
	}

	return float64(best) + 0.5*(a-c)/den
}

func centroid(mag []float64) float64 {
	num, den := 0.0, 0.0
	for i, v := range mag {
		num += float64(i) * v
		den += v
	}
	if den == 0 {
		return 0
	}

	return num / den
}

// flatness is the ratio of geometric to arithmetic mean of the power
// spectrum. Empty bins count as a tiny floor so a pure tone stays finite.
func flatness(mag []float64) float64 {
	const floor = 1e-30

	logSum, sum := 0.0, 0.0
	for _, v := range mag {
		p := max(v*v, floor)
		logSum += math.Log(p)
		sum += p
	}

	n := float64(len(mag))
	if sum == 0 {
		return 0
	}

	return math.Exp(logSum/n) / (sum / n)
}

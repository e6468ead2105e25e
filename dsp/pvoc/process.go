package pvoc

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-remap/dsp/core"
	"github.com/cwbudde/algo-remap/dsp/spectrum"
	"github.com/cwbudde/algo-remap/dsp/window"
)

// Process runs samples through the engine in place.
//
// Window size and sample rate are reconciled with ctl before the first
// sample; a window size change resets the engine and fires the latency
// callback. Every output sample is the input delayed by WindowSize()
// samples after remapping.
//
// A mapping that fails while streaming drops the failing bins for that
// cycle; processing continues and the first failure is returned wrapped
// in ErrMappingFailed.
func (v *Vocoder) Process(ctl Controls, samples []float64) error {
	changed, err := v.SetWindowSize(ctl.WindowSize)
	if err != nil {
		return err
	}

	if changed && v.onLatency != nil {
		v.onLatency(v.size)
	}

	v.SetSampleRate(ctl.SampleRate)

	v.ctl = ctl
	v.ctl.WindowSize = v.size
	v.ctl.SampleRate = v.sampleRate

	v.mapErr = nil

	for i, x := range samples {
		v.in.Push(x)

		samples[i] = core.FlushDenormals(v.out.At(v.readOffset) * overlapCompensation)

		v.readOffset++
		if v.readOffset == v.size {
			v.readOffset = 0
		}

		v.inputCount++
		if v.inputCount < v.hop {
			continue
		}

		v.out.ExtendZero(v.hop)
		v.inputCount -= v.hop
		v.readOffset = (v.readOffset + v.size - v.hop) % v.size

		if err := v.cycle(); err != nil {
			return err
		}
	}

	if v.mapErr != nil {
		return fmt.Errorf("%w: %w", ErrMappingFailed, v.mapErr)
	}

	return nil
}

// cycle runs one analysis, remap and synthesis pass over the current
// input window and overlap-adds the result into the output ring. Mapping
// failures are recorded in v.mapErr; only transform failures are returned.
func (v *Vocoder) cycle() error {
	ctl := &v.ctl
	n := v.size
	half := n / 2

	v.updateWindow(ctl.WindowOffset, ctl.WindowShape)

	v.in.CopyTo(v.frame)
	vecmath.MulBlockInPlace(v.frame, v.win)

	for i, x := range v.frame {
		v.analysis[i] = complex(x, 0)
	}
	clear(v.synthesis)

	if err := v.plan.Forward(v.analysis, v.analysis); err != nil {
		return fmt.Errorf("pvoc: forward FFT failed: %w", err)
	}

	spectrum.Split(v.re, v.im, v.analysis[:half+1])
	spectrum.MagnitudeFromParts(v.mag, v.re, v.im)

	v.synthesis[0] = v.analysis[0]

	nyquist := v.sampleRate / 2
	hopSeconds := float64(v.hop) / v.sampleRate
	scale := float64(n) / v.sampleRate

	for k := 1; k <= half; k++ {
		centre := v.binFreq[k]

		freq, mag, err := v.slot.Map(&ctl.Params, centre, v.mag[k])
		if err != nil {
			if v.mapErr == nil {
				v.mapErr = err
			}
			continue
		}

		// Written so that NaN is rejected as well.
		if !(freq >= 0 && freq < nyquist) || math.IsNaN(mag) || math.IsInf(mag, 0) {
			continue
		}

		phase := v.prevPhase[k] + 2*math.Pi*centre*hopSeconds
		v.prevPhase[k] = math.Atan2(v.im[k], v.re[k])

		idx := freq * scale
		lo := int(idx)
		frac := idx - float64(lo)
		z := spectrum.Polar(mag, phase)

		if lo <= half {
			v.synthesis[lo] += complex(1-frac, 0) * z
		}
		if lo < half {
			v.synthesis[lo+1] += complex(frac, 0) * z
		}
	}

	v.synthesis[0] = complex(real(v.synthesis[0]), 0)
	v.synthesis[half] = complex(real(v.synthesis[half]), 0)
	for k := 1; k < half; k++ {
		s := v.synthesis[k]
		v.synthesis[n-k] = complex(real(s), -imag(s))
	}

	if err := v.plan.Inverse(v.timeFrame, v.synthesis); err != nil {
		return fmt.Errorf("pvoc: inverse FFT failed: %w", err)
	}

	// The inverse plan is normalised by 1/N already.
	gain := ctl.Gain
	for i := range n {
		v.out.Add(i, real(v.timeFrame[i])*v.win[i]*gain)
	}

	return nil
}

func (v *Vocoder) updateWindow(offset int, shape float64) {
	offset %= v.size
	if offset < 0 {
		offset += v.size
	}

	if v.winValid && offset == v.winOffset && shape == v.winShape {
		return
	}

	window.Fill(v.win, offset, shape)
	v.winOffset = offset
	v.winShape = shape
	v.winValid = true
}

package pvoc

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-remap/dsp/buffer"
	"github.com/cwbudde/algo-remap/dsp/core"
	"github.com/cwbudde/algo-remap/dsp/remap"
)

const (
	// OverlapFactor is the number of frames covering every output sample.
	OverlapFactor = 4

	// overlapCompensation undoes the summing of OverlapFactor frames.
	overlapCompensation = float64(OverlapFactor)

	// MinWindowSize is the smallest window the engine runs with.
	MinWindowSize = OverlapFactor
)

var (
	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("pvoc: sample rate must be positive and finite")
	// ErrMappingFailed wraps a mapping error raised while streaming.
	ErrMappingFailed = errors.New("pvoc: mapping failed while streaming")
)

// Option configures a Vocoder.
type Option func(*Vocoder)

// WithCompiler shares a mapping compiler (and its cache) between engines.
func WithCompiler(c *remap.Compiler) Option {
	return func(v *Vocoder) {
		if c != nil {
			v.compiler = c
		}
	}
}

// WithLatencyFunc registers fn to be called with the new latency in
// samples whenever the window size changes during Process.
func WithLatencyFunc(fn func(samples int)) Option {
	return func(v *Vocoder) {
		v.onLatency = fn
	}
}

// Vocoder is the streaming spectral remapping engine.
type Vocoder struct {
	sampleRate float64
	size       int
	hop        int

	plan *algofft.Plan[complex128]

	in  *buffer.Ring[float64]
	out *buffer.Ring[float64]

	prevPhase []float64
	binFreq   []float64

	analysis  []complex128
	synthesis []complex128
	timeFrame []complex128

	// Per-cycle scratch.
	frame []float64
	re    []float64
	im    []float64
	mag   []float64

	win       []float64
	winOffset int
	winShape  float64
	winValid  bool

	inputCount int
	readOffset int
	mapErr     error

	// Controls of the running Process call; a field so the mapping sees
	// them through a pointer without a per-call allocation.
	ctl Controls

	compiler  *remap.Compiler
	slot      *remap.Slot
	onLatency func(int)
}

// New returns an engine with the given window size (rounded up to a power
// of two, at least MinWindowSize) and sample rate.
func New(windowSize int, sampleRate float64, opts ...Option) (*Vocoder, error) {
	if !validSampleRate(sampleRate) {
		return nil, fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	v := &Vocoder{sampleRate: sampleRate}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}

	v.slot = remap.NewSlot(v.compiler)

	if err := v.rebuild(normalizeWindowSize(windowSize)); err != nil {
		return nil, err
	}

	return v, nil
}

// WindowSize returns the analysis window size N.
func (v *Vocoder) WindowSize() int { return v.size }

// HopSize returns the hop size N/OverlapFactor.
func (v *Vocoder) HopSize() int { return v.hop }

// Latency returns the processing latency in samples, always N.
func (v *Vocoder) Latency() int { return v.size }

// SampleRate returns the sample rate in Hz.
func (v *Vocoder) SampleRate() float64 { return v.sampleRate }

// BinFrequency returns the centre frequency of bin k in Hz.
func (v *Vocoder) BinFrequency(k int) float64 { return v.binFreq[k] }

// MappingHash returns the content hash of the installed mapping source.
func (v *Vocoder) MappingHash() uint64 { return v.slot.Hash() }

// MappingActive reports whether a compiled mapping is installed.
func (v *Vocoder) MappingActive() bool { return v.slot.Active() }

// InstallMapping compiles, validates and activates mapping source. Empty
// source restores the identity mapping. Errors are *remap.CompileError or
// *remap.RuntimeError and leave the active mapping unchanged.
func (v *Vocoder) InstallMapping(src string) error {
	return v.slot.Install(src)
}

// ClearMapping restores the identity mapping.
func (v *Vocoder) ClearMapping() {
	v.slot.Clear()
}

// Close releases the mapping's resources.
func (v *Vocoder) Close() {
	v.slot.Close()
}

// SetWindowSize reconfigures the engine for a new window size. The size is
// rounded up to a power of two and floored at MinWindowSize. When that
// differs from the current size every buffer, table and counter is rebuilt
// from zero and in-flight audio is dropped. It reports whether the size
// changed.
func (v *Vocoder) SetWindowSize(windowSize int) (bool, error) {
	n := normalizeWindowSize(windowSize)
	if n == v.size {
		return false, nil
	}

	if err := v.rebuild(n); err != nil {
		return false, err
	}

	return true, nil
}

// SetSampleRate updates the bin frequency table. Buffers and phase history
// are kept. It reports whether the rate changed; invalid rates are ignored.
func (v *Vocoder) SetSampleRate(sampleRate float64) bool {
	if sampleRate == v.sampleRate || !validSampleRate(sampleRate) {
		return false
	}

	v.sampleRate = sampleRate
	fillBinFrequencies(v.binFreq, sampleRate)

	return true
}

// Reset clears buffered audio, phase history and hop counters without
// changing the configuration.
func (v *Vocoder) Reset() {
	v.in.Reset()
	v.out.Reset()
	clear(v.prevPhase)
	v.inputCount = 0
	v.readOffset = 0
}

func (v *Vocoder) rebuild(n int) error {
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return fmt.Errorf("pvoc: failed to create FFT plan: %w", err)
	}

	in, err := buffer.NewRing[float64](n)
	if err != nil {
		return fmt.Errorf("pvoc: %w", err)
	}

	out, err := buffer.NewRing[float64](n)
	if err != nil {
		return fmt.Errorf("pvoc: %w", err)
	}

	half := n/2 + 1

	v.size = n
	v.hop = n / OverlapFactor
	v.plan = plan
	v.in = in
	v.out = out
	v.prevPhase = make([]float64, n)
	v.binFreq = make([]float64, n)
	v.analysis = make([]complex128, n)
	v.synthesis = make([]complex128, n)
	v.timeFrame = make([]complex128, n)
	v.frame = make([]float64, n)
	v.re = make([]float64, half)
	v.im = make([]float64, half)
	v.mag = make([]float64, half)
	v.win = make([]float64, n)
	v.winValid = false
	v.inputCount = 0
	v.readOffset = 0

	fillBinFrequencies(v.binFreq, v.sampleRate)

	return nil
}

func fillBinFrequencies(dst []float64, sampleRate float64) {
	n := float64(len(dst))
	for k := range dst {
		dst[k] = float64(k) * sampleRate / n
	}
}

func normalizeWindowSize(n int) int {
	return max(core.NextPowerOf2(n), MinWindowSize)
}

func validSampleRate(sr float64) bool {
	return sr > 0 && !math.IsNaN(sr) && !math.IsInf(sr, 0)
}

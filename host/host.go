package host

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"

	"github.com/cwbudde/algo-remap/dsp/core"
	"github.com/cwbudde/algo-remap/dsp/pvoc"
	"github.com/cwbudde/algo-remap/dsp/remap"
)

// Engines is the number of independent engines; channel i runs on engine i%Engines.
const Engines = 2

var (
	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("host: invalid sample rate")
	// ErrChannelMismatch is returned when an interleaved buffer's layout
	// does not describe its data.
	ErrChannelMismatch = errors.New("host: channel layout mismatch")
)

// Transport is the host's playback snapshot. Zero values mean unknown.
type Transport struct {
	// Tempo in beats per minute.
	Tempo float64
	// Position is the playhead in seconds.
	Position float64
}

// Option configures a Host.
type Option func(*settings)

type settings struct {
	processor []core.ProcessorOption
	logger    *slog.Logger
	clock     func() time.Time
	latency   func(samples int)
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for the script's sys_time and mapping timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLatencyReporter registers fn to be called whenever the reported
// latency changes, including once from New.
func WithLatencyReporter(fn func(samples int)) Option {
	return func(s *settings) { s.latency = fn }
}

// WithSampleRate sets the initial sample rate.
func WithSampleRate(sampleRate float64) Option {
	return withProcessor(core.WithSampleRate(sampleRate))
}

// WithBlockSize sets the block size scratch buffers are preallocated for.
func WithBlockSize(blockSize int) Option {
	return withProcessor(core.WithBlockSize(blockSize))
}

// WithWindowSize sets the initial window size parameter.
func WithWindowSize(windowSize int) Option {
	return withProcessor(core.WithWindowSize(windowSize))
}

// WithChannels sets the expected channel count.
func WithChannels(channels int) Option {
	return withProcessor(core.WithChannels(channels))
}

func withProcessor(opt core.ProcessorOption) Option {
	return func(s *settings) { s.processor = append(s.processor, opt) }
}

// Host drives the remapping engines for a multichannel stream.
type Host struct {
	mu sync.Mutex

	cfg       core.ProcessorConfig
	params    *Registry
	compiler  *remap.Compiler
	engines   [Engines]*pvoc.Vocoder
	transport Transport
	mapping   MappingState
	running   string

	// Processing failure last logged, keyed by the mapping hash that
	// produced it.
	failing  bool
	failHash uint64

	scratch []float64
	planar  [][]float64

	logger    *slog.Logger
	clock     func() time.Time
	start     time.Time
	latency   atomic.Int64
	onLatency func(samples int)
}

// New creates a host with default parameters and the identity mapping.
func New(opts ...Option) (*Host, error) {
	s := settings{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	cfg := core.ApplyProcessorOptions(s.processor...)
	if !validSampleRate(cfg.SampleRate) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSampleRate, cfg.SampleRate)
	}

	h := &Host{
		cfg:       cfg,
		params:    NewRegistry(),
		compiler:  remap.NewCompiler(0),
		logger:    s.logger,
		clock:     s.clock,
		onLatency: s.latency,
		scratch:   make([]float64, cfg.BlockSize),
		mapping:   MappingState{Hash: remap.EmptyHash},
	}
	h.start = h.clock()
	h.params.SetWindowSize(cfg.WindowSize)

	size := h.params.WindowSize()
	for i := range h.engines {
		v, err := pvoc.New(size, cfg.SampleRate,
			pvoc.WithCompiler(h.compiler),
			pvoc.WithLatencyFunc(h.reportLatency))
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("host: engine %d: %w", i, err)
		}
		h.engines[i] = v
	}

	h.reportLatency(size)
	h.logger.Debug("host created",
		"sample_rate", cfg.SampleRate,
		"window_size", size,
		"channels", cfg.Channels)

	return h, nil
}

// Close releases the engines' script states.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.engines {
		if e != nil {
			e.Close()
		}
	}
}

// Params returns the parameter registry.
func (h *Host) Params() *Registry { return h.params }

// Latency returns the latency last reported, in samples.
func (h *Host) Latency() int { return int(h.latency.Load()) }

// SampleRate returns the current sample rate.
func (h *Host) SampleRate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cfg.SampleRate
}

// SetSampleRate changes the processing rate; engines pick it up on the
// next Process call without losing audio history.
func (h *Host) SetSampleRate(sampleRate float64) error {
	if !validSampleRate(sampleRate) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.cfg.SampleRate = sampleRate

	return nil
}

// SetTransport stores the transport snapshot for the following Process calls.
func (h *Host) SetTransport(t Transport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.transport = t
}

// Reset clears the audio history of every engine.
func (h *Host) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.engines {
		e.Reset()
	}
}

// Process remaps planar float32 channels in place.
func (h *Host) Process(channels [][]float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for ch, buf := range channels {
		h.scratch = core.EnsureLen(h.scratch, len(buf))
		core.Widen(h.scratch, buf)

		if err := h.processChannel(ch, h.scratch); err != nil {
			errs = append(errs, err)
		}

		core.Narrow(buf, h.scratch)
	}

	return h.finish(errs)
}

// Process64 remaps planar float64 channels in place.
func (h *Host) Process64(channels [][]float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for ch, buf := range channels {
		if err := h.processChannel(ch, buf); err != nil {
			errs = append(errs, err)
		}
	}

	return h.finish(errs)
}

// ProcessInterleaved remaps an interleaved buffer in place. A non-zero
// buffer sample rate that differs from the host's is adopted first.
func (h *Host) ProcessInterleaved(buf *audio.Float32Buffer) error {
	if buf == nil || buf.Format == nil {
		return fmt.Errorf("%w: missing format", ErrChannelMismatch)
	}

	nch := buf.Format.NumChannels
	if nch <= 0 || len(buf.Data)%nch != 0 {
		return fmt.Errorf("%w: %d samples for %d channels", ErrChannelMismatch, len(buf.Data), nch)
	}

	if sr := float64(buf.Format.SampleRate); sr > 0 {
		if err := h.SetSampleRate(sr); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	frames := buf.NumFrames()
	if cap(h.planar) < nch {
		h.planar = make([][]float64, nch)
	}
	h.planar = h.planar[:nch]

	for ch := range h.planar {
		h.planar[ch] = core.EnsureLen(h.planar[ch], frames)
		for i := range frames {
			h.planar[ch][i] = float64(buf.Data[i*nch+ch])
		}
	}

	var errs []error
	for ch, samples := range h.planar {
		if err := h.processChannel(ch, samples); err != nil {
			errs = append(errs, err)
		}
	}

	for ch, samples := range h.planar {
		for i, x := range samples {
			buf.Data[i*nch+ch] = float32(x)
		}
	}

	return h.finish(errs)
}

// processChannel runs one channel through its engine. Callers hold h.mu.
func (h *Host) processChannel(ch int, samples []float64) error {
	slot := ch % Engines

	if err := h.engines[slot].Process(h.controls(slot), samples); err != nil {
		return fmt.Errorf("host: channel %d: %w", ch, err)
	}

	return nil
}

// finish joins per-channel errors. A failure is logged when it starts or
// when the mapping producing it changes, not on every block. Callers hold h.mu.
func (h *Host) finish(errs []error) error {
	err := errors.Join(errs...)
	hash := h.engines[0].MappingHash()

	switch {
	case err != nil && (!h.failing || hash != h.failHash):
		h.logger.Warn("processing error", "hash", fmt.Sprintf("%016x", hash), "error", err)
		h.failing = true
		h.failHash = hash
	case err == nil && h.failing:
		h.logger.Info("processing recovered", "hash", fmt.Sprintf("%016x", hash))
		h.failing = false
	}

	return err
}

// controls snapshots parameters and transport for one engine. Callers hold h.mu.
func (h *Host) controls(slot int) pvoc.Controls {
	p := h.params

	ctl := pvoc.Controls{
		Params: remap.Params{
			Channel:       slot,
			Tempo:         h.transport.Tempo,
			TransportTime: h.transport.Position,
			SystemTime:    h.clock().Sub(h.start).Seconds(),
			WindowSize:    p.WindowSize(),
			SampleRate:    h.cfg.SampleRate,
		},
		Gain:         p.Get(ParamGain).Plain(),
		WindowOffset: int(math.Round(p.Get(ParamWindowOffset).Plain())),
		WindowShape:  p.Get(ParamWindowShape).Plain(),
	}
	for i := range ctl.Macros {
		ctl.Macros[i] = p.Get(ParamMacroA + ParamID(i)).Plain()
	}

	return ctl
}

func (h *Host) reportLatency(samples int) {
	if h.latency.Swap(int64(samples)) == int64(samples) {
		return
	}

	h.logger.Debug("latency changed", "samples", samples)
	if h.onLatency != nil {
		h.onLatency(samples)
	}
}

func validSampleRate(sr float64) bool {
	return sr > 0 && !math.IsInf(sr, 0)
}

package host

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cwbudde/algo-remap/dsp/core"
	"github.com/cwbudde/algo-remap/dsp/window"
)

// ParamID identifies an automatable host parameter.
type ParamID uint32

const (
	ParamMacroA ParamID = iota
	ParamMacroB
	ParamMacroC
	ParamMacroD
	ParamGain
	ParamWindowSize
	ParamWindowOffset
	ParamWindowShape

	paramCount
)

// Window size parameter range, as powers of two.
const (
	MinWindowExponent     = 7
	MaxWindowExponent     = 12
	DefaultWindowExponent = 11

	MaxWindowOffset = 4096
	MaxGain         = 4
)

// Param is a single automatable parameter.
//
// The value is stored normalized to [0,1] and may be read and written from
// any goroutine.
type Param struct {
	ID        ParamID
	Name      string
	Unit      string
	Min       float64
	Max       float64
	Default   float64
	StepCount int

	value  atomic.Uint64
	format func(plain float64) string
	parse  func(text string) (float64, error)
}

func newParam(id ParamID, name, unit string, lo, hi, def float64, steps int) *Param {
	p := &Param{
		ID:        id,
		Name:      name,
		Unit:      unit,
		Min:       lo,
		Max:       hi,
		Default:   def,
		StepCount: steps,
	}
	p.SetPlain(def)

	return p
}

// Value returns the normalized value.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue stores a normalized value, clamped to [0,1]. NaN maps to 0.
func (p *Param) SetValue(normalized float64) {
	if !(normalized >= 0) {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	p.value.Store(math.Float64bits(normalized))
}

// Plain returns the value in the parameter's own units.
func (p *Param) Plain() float64 {
	return p.Denormalize(p.Value())
}

// SetPlain stores a value given in the parameter's own units.
func (p *Param) SetPlain(plain float64) {
	p.SetValue(p.Normalize(plain))
}

// Reset restores the default value.
func (p *Param) Reset() {
	p.SetPlain(p.Default)
}

// Normalize maps a plain value onto [0,1].
func (p *Param) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}

	return core.Clamp((plain-p.Min)/(p.Max-p.Min), 0, 1)
}

// Denormalize maps a normalized value onto the plain range. Stepped
// parameters snap to the nearest step.
func (p *Param) Denormalize(normalized float64) float64 {
	if p.StepCount > 0 {
		steps := float64(p.StepCount)
		normalized = math.Round(normalized*steps) / steps
	}

	return p.Min + normalized*(p.Max-p.Min)
}

// Format renders a normalized value for display.
func (p *Param) Format(normalized float64) string {
	plain := p.Denormalize(normalized)
	if p.format != nil {
		return p.format(plain)
	}
	if p.StepCount > 0 {
		return fmt.Sprintf("%.0f", plain)
	}

	return fmt.Sprintf("%.2f", plain)
}

// String renders the current value.
func (p *Param) String() string {
	return p.Format(p.Value())
}

// Parse converts display text to a normalized value.
func (p *Param) Parse(text string) (float64, error) {
	text = strings.TrimSpace(text)

	var (
		plain float64
		err   error
	)
	if p.parse != nil {
		plain, err = p.parse(text)
	} else {
		plain, err = strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(text, p.Unit)), 64)
	}
	if err != nil {
		return 0, fmt.Errorf("host: parse %s: %w", p.Name, err)
	}

	return p.Normalize(plain), nil
}

// Registry is the fixed set of host parameters, indexed by ParamID.
type Registry struct {
	params [paramCount]*Param
}

// NewRegistry returns the parameter set at default values.
func NewRegistry() *Registry {
	r := &Registry{}

	for i, name := range [...]string{"a", "b", "c", "d"} {
		id := ParamMacroA + ParamID(i)
		r.params[id] = newParam(id, name, "", 0, 1, 0, 0)
	}

	gain := newParam(ParamGain, "Gain", "dB", 0, MaxGain, 1, 0)
	gain.format = core.FormatGainDB
	gain.parse = parseGainDB
	r.params[ParamGain] = gain

	size := newParam(ParamWindowSize, "Window Size", "samples",
		MinWindowExponent, MaxWindowExponent, DefaultWindowExponent,
		MaxWindowExponent-MinWindowExponent)
	size.format = func(exp float64) string {
		return strconv.Itoa(1 << int(math.Round(exp)))
	}
	size.parse = parseWindowSize
	r.params[ParamWindowSize] = size

	r.params[ParamWindowOffset] = newParam(ParamWindowOffset, "Window Offset", "samples",
		0, MaxWindowOffset, 0, MaxWindowOffset)
	r.params[ParamWindowShape] = newParam(ParamWindowShape, "Window Factor", "",
		0, 1, window.DefaultShape, 0)

	return r
}

// Get returns the parameter with the given ID, or nil.
func (r *Registry) Get(id ParamID) *Param {
	if id >= paramCount {
		return nil
	}

	return r.params[id]
}

// All returns the parameters in ID order.
func (r *Registry) All() []*Param {
	return r.params[:]
}

// Count returns the number of parameters.
func (r *Registry) Count() int { return int(paramCount) }

// ResetAll restores every parameter to its default.
func (r *Registry) ResetAll() {
	for _, p := range r.params {
		p.Reset()
	}
}

// WindowSize returns the window length selected by the window size parameter.
func (r *Registry) WindowSize() int {
	return 1 << int(math.Round(r.params[ParamWindowSize].Plain()))
}

// SetWindowSize selects the exponent whose window is closest to n from above,
// clamped to the supported range.
func (r *Registry) SetWindowSize(n int) {
	exp := MinWindowExponent
	for exp < MaxWindowExponent && 1<<exp < n {
		exp++
	}

	r.params[ParamWindowSize].SetPlain(float64(exp))
}

func parseGainDB(text string) (float64, error) {
	text = strings.TrimSpace(strings.TrimSuffix(text, "dB"))
	if text == "-inf" {
		return 0, nil
	}

	db, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}

	return core.DBToLinear(db), nil
}

func parseWindowSize(text string) (float64, error) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(text, "samples")))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("window size %d is not positive", n)
	}

	return math.Log2(float64(core.NextPowerOf2(n))), nil
}

package remap

// Params are the per-call inputs a mapping can read besides the bin's
// frequency and magnitude.
type Params struct {
	// Macros are the four free host values exposed as a, b, c and d.
	Macros        [4]float64
	Channel       int
	Tempo         float64
	TransportTime float64
	SystemTime    float64
	WindowSize    int
	SampleRate    float64
}

// Mapper transforms one spectral component.
type Mapper interface {
	Map(p *Params, frequency, magnitude float64) (float64, float64, error)
}

// Identity leaves every component unchanged.
type Identity struct{}

// Map returns frequency and magnitude unchanged.
func (Identity) Map(_ *Params, frequency, magnitude float64) (float64, float64, error) {
	return frequency, magnitude, nil
}

// Func adapts an ordinary function to Mapper.
type Func func(p *Params, frequency, magnitude float64) (float64, float64, error)

// Map calls f.
func (f Func) Map(p *Params, frequency, magnitude float64) (float64, float64, error) {
	return f(p, frequency, magnitude)
}

var (
	_ Mapper = Identity{}
	_ Mapper = Func(nil)
	_ Mapper = (*Script)(nil)
)

package pvoc

import "github.com/cwbudde/algo-remap/dsp/remap"

// Controls are the host values for one Process call.
//
// The embedded Params carry the mapping inputs; their WindowSize and
// SampleRate are also the requested engine configuration.
type Controls struct {
	remap.Params

	// Gain is the linear output gain.
	Gain float64
	// WindowOffset rotates the taper's phase origin; taken mod WindowSize.
	WindowOffset int
	// WindowShape is the taper depth in [0,1].
	WindowShape float64
}

// DefaultControls returns neutral controls for the given configuration.
func DefaultControls(windowSize int, sampleRate float64) Controls {
	return Controls{
		Params: remap.Params{
			WindowSize: windowSize,
			SampleRate: sampleRate,
		},
		Gain:        1,
		WindowShape: 0.5,
	}
}

// Package pvoc implements a streaming phase-vocoder that remaps every
// spectral component of its input through a user mapping.
//
// Samples are processed one at a time, in place. Every hop (a quarter of
// the window) the engine windows the last N input samples, transforms
// them, passes each bin's centre frequency and magnitude through the
// mapping, rebuilds a spectrum from the results and overlap-adds its
// inverse transform into the output. The output lags the input by exactly
// one window, which is the latency a host should report.
//
// Phase is tracked per source bin: each component keeps advancing at its
// own centre frequency wherever the mapping sends its energy.
//
// A Vocoder processes one channel and is not safe for concurrent use.
package pvoc

// Package spectrum provides FFT-adjacent helpers for the spectral engine.
//
// The package does not implement an FFT. It works on complex bins produced
// by an external FFT plan: splitting them into real/imaginary parts,
// computing magnitudes with SIMD kernels, measuring band energy, and
// single-bin tone measurement with the Goertzel algorithm.
package spectrum

// Package buffer provides the fixed-capacity circular sample store used by
// the streaming spectral engine.
//
// A Ring is addressed by age rather than by physical slot: index 0 is the
// oldest retained sample and index Cap()-1 the most recently pushed one.
// Negative indices count back from the write cursor, so At(-1) is the newest
// sample as well. Rings never grow; a new size needs a new Ring.
package buffer

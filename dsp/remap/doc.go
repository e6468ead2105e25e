// Package remap holds the frequency/magnitude transform applied to every
// analysis bin of the spectral engine.
//
// A transform is either the Identity mapper or a compiled Lua script. The
// script sees its inputs as globals
//
//	a, b, c, d          host macro values in [0,1]
//	sound_channel_id    channel index
//	bpm                 host tempo, 0 when unknown
//	daw_time            host transport position in seconds, 0 when unknown
//	sys_time            seconds since the host started
//	window_size         analysis window size in samples
//	sample_rate         sample rate in Hz
//	frequency           bin centre frequency in Hz
//	magnitude           bin magnitude
//
// and may reassign frequency and magnitude. Anything it leaves alone, or
// sets to a non-number, keeps its input value. For example
//
//	frequency = frequency * (1 + a)
//	if frequency > 8000 then magnitude = 0 end
//
// A Slot owns the active transform of one engine. Installing new source
// compiles it, runs it once on neutral input, and only then commits it; a
// script that fails either step never becomes active.
package remap

// Package host wraps the phase-vocoder remapper for a plugin or stream host.
//
// A Host owns one engine per processing slot (two, with channel i routed to
// slot i%2), the automatable parameters, the transport snapshot and the
// mapping state shown to the user. Parameters are lock-free atomics; mapping
// installation and Process share one mutex so the audio path never sees a
// half-installed mapping.
package host

// Package engine implements the real-time DSP core: oscillators, LFOs,
// amplitude modulation, envelopes, mono/stereo layers, the mixer, and the
// AudioEngine façade that ties them together. Everything reachable from
// FillMonoBuffer/FillStereoBuffer is allocation-free, lock-free, and
// deterministic; see DESIGN.md for the concurrency discipline.
package engine

// Engine-wide constants, per spec.md §6.
const (
	// SRDefault is the sample rate used when none is supplied.
	SRDefault = 48000
	// MaxLayers bounds the number of layers a snapshot or pool may hold.
	MaxLayers = 8
	// MaxBuffer is the largest block size the engine pre-sizes scratch for.
	MaxBuffer = 4096
	// ControlRate is the number of audio samples between LFO updates.
	ControlRate = 16
	// MixHeadroom is the fixed attenuation applied after summing layers.
	MixHeadroom = 0.5
	// MaxConsecutiveErrors is the fault count that latches a critical error.
	MaxConsecutiveErrors = 3
	// DefaultAttackS is the default envelope attack time, in seconds.
	DefaultAttackS = 10.0
	// DefaultReleaseS is the default envelope release time, in seconds.
	DefaultReleaseS = 30.0
	// MinEnvS is the floor on attack/release time, preventing division by
	// zero and impulsive edges.
	MinEnvS = 0.1

	// MinSampleRate and MaxSampleRate bound AudioEngine construction.
	MinSampleRate = 8000
	MaxSampleRate = 192000
)

package engine

import "math"

// SineOscillator is a phase-accumulating sine carrier. Phase is kept in
// double precision so that multi-hour sessions do not drift audibly; the
// cast to float32 happens only at the point of writing a sample. See
// spec.md §4.1.
type SineOscillator struct {
	phase    float64 // radians, wrapped into [0, 2*pi)
	phaseInc float64 // radians per sample
}

// SetFrequency sets the phase increment for frequency f at sample rate sr.
// Call only between blocks: either from the audio thread before a block, or
// from a single writer while no block is in flight.
func (o *SineOscillator) SetFrequency(f, sr float64) {
	o.phaseInc = 2 * math.Pi * f / sr
}

// Process writes sin(phase) into each element of block and advances the
// phase by phaseInc, wrapping by subtraction rather than modulo so that a
// pathologically large phaseInc never leaves phase unbounded.
func (o *SineOscillator) Process(block []float32) {
	phase := o.phase
	inc := o.phaseInc
	for i := range block {
		block[i] = float32(math.Sin(phase))
		phase = wrapPhase(phase + inc)
	}
	o.phase = phase
}

// Reset sets the phase back to zero.
func (o *SineOscillator) Reset() {
	o.phase = 0
}

const twoPi = 2 * math.Pi

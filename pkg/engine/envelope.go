package engine

import "math"

// Envelope is an asymmetric exponential attack/release gain, per spec.md
// §4.4. Each sample moves current toward target by the fraction
// k = 1 / (max(MinEnvS, t) * sr), a one-pole smoother with a time constant
// of about t seconds. k is used directly rather than derived from
// exp(-1/(t*sr)), the coefficient some DSP code uses for the same shape.
type Envelope struct {
	current float64
	target  float64

	attackCoef  float64
	releaseCoef float64
}

// Configure sets the attack/release coefficients for sample rate sr.
// attackS and releaseS are clamped below at MinEnvS to avoid division by
// zero and impulsive edges.
func (e *Envelope) Configure(attackS, releaseS, sr float64) {
	e.attackCoef = 1.0 / (math.Max(MinEnvS, attackS) * sr)
	e.releaseCoef = 1.0 / (math.Max(MinEnvS, releaseS) * sr)
}

// Trigger sets the envelope's target to 1 (attack) or 0 (release).
func (e *Envelope) Trigger(active bool) {
	if active {
		e.target = 1
	} else {
		e.target = 0
	}
}

// Reset returns the envelope to silence with no pending target.
func (e *Envelope) Reset() {
	e.current = 0
	e.target = 0
}

// Current returns the envelope's current gain, for metering.
func (e *Envelope) Current() float64 { return e.current }

// Process multiplies block in place by the envelope, advancing one sample
// of attack or release per output sample.
func (e *Envelope) Process(block []float32) {
	current := e.current
	target := e.target
	for i := range block {
		var k float64
		if target > current {
			k = e.attackCoef
		} else {
			k = e.releaseCoef
		}
		current += (target - current) * k
		if current < 0 {
			current = 0
		} else if current > 1 {
			current = 1
		}
		block[i] *= float32(current)
	}
	e.current = current
}

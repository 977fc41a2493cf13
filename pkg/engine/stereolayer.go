package engine

import "tonalengine/pkg/config"

// StereoLayer drives two MonoLayers from one configuration: left renders at
// CarrierHz, right at CarrierHz+StereoOffsetHz. They are triggered and reset
// together but carry independent oscillator phases, so the only difference
// between the channels is carrier frequency — per spec.md §4.6, the
// left-right difference must be a perceptual (binaural) phenomenon only,
// never an amplitude difference produced by the layer itself.
type StereoLayer struct {
	left  MonoLayer
	right MonoLayer
}

// Initialize configures both inner MonoLayers.
func (s *StereoLayer) Initialize(sr, attackS, releaseS float64) {
	s.left.Initialize(sr, attackS, releaseS)
	s.right.Initialize(sr, attackS, releaseS)
}

// UpdateAndProcess renders cfg into leftBlock and rightBlock. leftBlock and
// rightBlock must be the same length.
func (s *StereoLayer) UpdateAndProcess(leftBlock, rightBlock []float32, sr float64, cfg config.LayerConfiguration) {
	s.left.UpdateAndProcess(leftBlock, sr, cfg)

	rightCfg := cfg
	rightCfg = withCarrierHz(rightCfg, cfg.CarrierHz()+cfg.StereoOffsetHz())
	s.right.UpdateAndProcess(rightBlock, sr, rightCfg)
}

// TriggerAttack starts both channels' envelopes together.
func (s *StereoLayer) TriggerAttack() {
	s.left.TriggerAttack()
	s.right.TriggerAttack()
}

// TriggerRelease releases both channels together.
func (s *StereoLayer) TriggerRelease() {
	s.left.TriggerRelease()
	s.right.TriggerRelease()
}

// EnvelopeValue returns the left channel's envelope value; left and right
// share envelope semantics and are triggered together, so either suffices
// for metering.
func (s *StereoLayer) EnvelopeValue() float64 {
	return s.left.EnvelopeValue()
}

// Reset resets both channels.
func (s *StereoLayer) Reset() {
	s.left.Reset()
	s.right.Reset()
}

// withCarrierHz rebuilds a LayerConfiguration with a different carrier
// frequency, reusing every other field. Validation was already performed
// when cfg was constructed (including the Nyquist check against
// carrierHz+stereoOffsetHz), so this intentionally bypasses New rather than
// re-validating a frequency that has already been cleared.
func withCarrierHz(cfg config.LayerConfiguration, carrierHz float64) config.LayerConfiguration {
	return config.Unsafe(cfg, carrierHz)
}

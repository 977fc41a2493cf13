package engine

import "tonalengine/pkg/config"

// preModHeadroom is the fixed attenuation applied to the carrier before AM,
// per spec.md §4.5. Combined with AmModulator's [1-depth, 1] gain range,
// this guarantees a single layer's output never leaves [-1, 1] regardless
// of modulator depth.
const preModHeadroom = 0.5

// MonoLayer renders one signal path: carrier -> pre-mod headroom -> AM ->
// envelope -> weight. It owns all of its DSP state and is driven exclusively
// by the audio thread after Initialize.
type MonoLayer struct {
	osc      SineOscillator
	lfo      LFO
	env      Envelope
	ammod    AmModulator
	modScratch [MaxBuffer]float32

	initialized bool
}

// Initialize configures the envelope for sample rate sr and marks the layer
// ready to render.
func (m *MonoLayer) Initialize(sr, attackS, releaseS float64) {
	m.env.Configure(attackS, releaseS, sr)
	m.initialized = true
}

// UpdateAndProcess renders cfg into block. If the layer has not been
// initialized, block is cleared and the call returns. Otherwise the
// oscillator and LFO frequencies are re-set from cfg (safe because this
// only ever runs on the audio thread between blocks) and the carrier ->
// headroom -> AM -> envelope -> weight chain runs in place. The envelope's
// attack/release target is set independently by TriggerAttack/TriggerRelease,
// not by this call, so a release tail started before a Stop keeps decaying
// across any number of subsequent UpdateAndProcess calls instead of being
// re-triggered back to attack on the very next one.
func (m *MonoLayer) UpdateAndProcess(block []float32, sr float64, cfg config.LayerConfiguration) {
	if !m.initialized {
		clearBlock(block)
		return
	}

	m.osc.SetFrequency(cfg.CarrierHz(), sr)
	if cfg.ModulatorHz() > 0 {
		m.lfo.SetFrequency(cfg.ModulatorHz(), sr)
	}

	m.osc.Process(block)
	scaleBlock(block, preModHeadroom)

	if cfg.ModulatorHz() > 0 && cfg.ModulatorDepth() > 0 {
		mod := m.modScratch[:len(block)]
		m.lfo.Process(mod)
		m.ammod.Apply(block, mod, cfg.ModulatorDepth())
	}

	m.env.Process(block)

	weight := cfg.Weight()
	if weight == 0 {
		clearBlock(block)
	} else if weight != 1 {
		scaleBlock(block, weight)
	}
}

// TriggerAttack moves the envelope's target to 1. Called once when the
// engine transitions to Playing.
func (m *MonoLayer) TriggerAttack() {
	m.env.Trigger(true)
}

// TriggerRelease moves the envelope's target to 0; rendering continues with
// a fading release tail rather than stopping immediately.
func (m *MonoLayer) TriggerRelease() {
	m.env.Trigger(false)
}

// EnvelopeValue returns the envelope's current gain, for metering.
func (m *MonoLayer) EnvelopeValue() float64 {
	return m.env.Current()
}

// Reset clears oscillator, LFO, and envelope state, but does not affect
// m.initialized.
func (m *MonoLayer) Reset() {
	m.osc.Reset()
	m.lfo.Reset()
	m.env.Reset()
}

func clearBlock(block []float32) {
	for i := range block {
		block[i] = 0
	}
}

func scaleBlock(block []float32, gain float64) {
	g := float32(gain)
	for i := range block {
		block[i] *= g
	}
}

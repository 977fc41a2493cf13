package engine

import (
	"math"

	"tonalengine/pkg/config"
)

// Mixer owns a fixed-size pool of mono and stereo layer slots and renders a
// LayerSnapshot into a mono or stereo output buffer, per spec.md §4.7. The
// pool is allocated once in Initialize; rendering never allocates.
type Mixer struct {
	monoLayers   [config.MaxLayers]MonoLayer
	stereoLayers [config.MaxLayers]StereoLayer

	monoScratch  [MaxBuffer]float32
	leftScratch  [MaxBuffer]float32
	rightScratch [MaxBuffer]float32

	activeLayerCount int
	outputMode       config.ChannelMode
	initialized      bool
}

// Initialize allocates (in the sense of configuring) layerCount mono and
// stereo slots for sample rate sr, attack/release times attackS/releaseS,
// and output mode mode. layerCount must be within [1, config.MaxLayers].
func (mx *Mixer) Initialize(layerCount int, sr float64, mode config.ChannelMode, attackS, releaseS float64) error {
	if layerCount < 1 || layerCount > config.MaxLayers {
		return newError(KindInvalidConfiguration, "layer count out of range")
	}
	for i := 0; i < config.MaxLayers; i++ {
		mx.monoLayers[i].Initialize(sr, attackS, releaseS)
		mx.stereoLayers[i].Initialize(sr, attackS, releaseS)
	}
	mx.activeLayerCount = layerCount
	mx.outputMode = mode
	mx.initialized = true
	return nil
}

// RenderMono clears out and additively sums each configured layer's mono
// render into it, then applies MixHeadroom. Fails if the mixer was not
// initialized in Mono mode.
func (mx *Mixer) RenderMono(out []float32, sr float64, configs []config.LayerConfiguration) error {
	if mx.outputMode != config.Mono {
		return newError(KindChannelModeMismatch, "mixer was initialized for stereo output")
	}
	clearBlock(out)

	n := mx.activeLayerCount
	if len(configs) < n {
		n = len(configs)
	}
	scratch := mx.monoScratch[:len(out)]
	for i := 0; i < n; i++ {
		mx.monoLayers[i].UpdateAndProcess(scratch, sr, configs[i])
		addBlock(out, scratch)
	}
	scaleBlock(out, MixHeadroom)
	return nil
}

// RenderStereo clears left and right and additively sums each configured
// layer into them: Stereo-mode layers render via the corresponding stereo
// slot into both channels; Mono-mode layers render via the mono slot and
// are panned with an equal-power law. Fails if the mixer was not
// initialized in Stereo mode, or if left and right differ in length.
func (mx *Mixer) RenderStereo(left, right []float32, sr float64, configs []config.LayerConfiguration) error {
	if mx.outputMode != config.Stereo {
		return newError(KindChannelModeMismatch, "mixer was initialized for mono output")
	}
	if len(left) != len(right) {
		return newError(KindInvalidBufferGeometry, "left and right buffers differ in length")
	}
	clearBlock(left)
	clearBlock(right)

	n := mx.activeLayerCount
	if len(configs) < n {
		n = len(configs)
	}
	leftScratch := mx.leftScratch[:len(left)]
	rightScratch := mx.rightScratch[:len(right)]
	monoScratch := mx.monoScratch[:len(left)]

	for i := 0; i < n; i++ {
		cfg := configs[i]
		if cfg.ChannelMode() == config.Stereo {
			mx.stereoLayers[i].UpdateAndProcess(leftScratch, rightScratch, sr, cfg)
			addBlock(left, leftScratch)
			addBlock(right, rightScratch)
			continue
		}

		mx.monoLayers[i].UpdateAndProcess(monoScratch, sr, cfg)
		theta := (cfg.Pan() + 1) * math.Pi / 4
		gainL := float32(math.Cos(theta))
		gainR := float32(math.Sin(theta))
		for j, sample := range monoScratch {
			left[j] += sample * gainL
			right[j] += sample * gainR
		}
	}

	scaleBlock(left, MixHeadroom)
	scaleBlock(right, MixHeadroom)
	return nil
}

// TriggerAttackAll starts every active layer's envelope, mono and stereo
// alike. Called once when the engine transitions to Playing.
func (mx *Mixer) TriggerAttackAll() {
	for i := 0; i < mx.activeLayerCount; i++ {
		mx.monoLayers[i].TriggerAttack()
		mx.stereoLayers[i].TriggerAttack()
	}
}

// TriggerReleaseAll releases every active layer, mono and stereo alike.
func (mx *Mixer) TriggerReleaseAll() {
	for i := 0; i < mx.activeLayerCount; i++ {
		mx.monoLayers[i].TriggerRelease()
		mx.stereoLayers[i].TriggerRelease()
	}
}

// Reset resets every layer slot's DSP state, active or not.
func (mx *Mixer) Reset() {
	for i := 0; i < config.MaxLayers; i++ {
		mx.monoLayers[i].Reset()
		mx.stereoLayers[i].Reset()
	}
}

// LayerEnvelopeValue returns the envelope value of layer i, using the slot
// that matches the mixer's current output mode. Bounds-safe: returns 0 for
// any out-of-range index rather than failing.
func (mx *Mixer) LayerEnvelopeValue(i int) float64 {
	if i < 0 || i >= mx.activeLayerCount {
		return 0
	}
	if mx.outputMode == config.Stereo {
		return mx.stereoLayers[i].EnvelopeValue()
	}
	return mx.monoLayers[i].EnvelopeValue()
}

func addBlock(dst, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}
